package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/carelinkhealth/onboarding/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	timeout   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onboardctl",
	Short: "Operator CLI for the onboarding profile import service",
	Long: `onboardctl inspects and manages external profile imports held by an
onboarding server: check provider status, read an imported profile and its
onboarding projection, purge an import, or build a start URL for a session.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.onboardctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("ONBOARDCTL")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.onboardctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "onboarding server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(startURLCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithTimeout(timeout))
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the identity provider is configured on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if res.Configured {
			fmt.Fprintln(cmd.OutOrStdout(), "external import: enabled")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "external import: disabled")
		}
		return nil
	},
}

// ── profile ──────────────────────────────────────────────────────────────────

// profileRow holds the outcome of a single profile lookup.
type profileRow struct {
	sessionID string
	result    *client.ProfileResult
	err       error
}

var profileFormat string

var profileCmd = &cobra.Command{
	Use:   "profile <session_id> [session_id] ...",
	Short: "Show the imported profile for one or more onboarding sessions",
	Long: `profile fetches imported profiles and their onboarding projection.

A single session prints a detailed view; several sessions are looked up
concurrently and printed as a table:

  onboardctl profile sess-1 sess-2 sess-3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileFormat, "format", "text", "Output format: text or json")
}

func runProfile(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	rows := fetchProfiles(cmd.Context(), c, args)

	out := cmd.OutOrStdout()
	switch profileFormat {
	case "json":
		return printProfilesJSON(out, rows)
	default:
		return printProfilesText(out, rows)
	}
}

// fetchProfiles looks up every session concurrently and returns rows in input order.
func fetchProfiles(ctx context.Context, c *client.Client, sessionIDs []string) []profileRow {
	rows := make([]profileRow, len(sessionIDs))
	done := make(chan struct{}, len(sessionIDs))
	for i, sid := range sessionIDs {
		go func() {
			res, err := c.Profile(ctx, sid)
			rows[i] = profileRow{sessionID: sid, result: res, err: err}
			done <- struct{}{}
		}()
	}
	for range sessionIDs {
		<-done
	}
	return rows
}

func printProfilesJSON(w io.Writer, rows []profileRow) error {
	type jsonRow struct {
		SessionID string                `json:"session_id"`
		Result    *client.ProfileResult `json:"result,omitempty"`
		Error     string                `json:"error,omitempty"`
	}
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = jsonRow{SessionID: r.sessionID, Result: r.result}
		if r.err != nil {
			out[i].Error = r.err.Error()
		}
	}
	var v any = out
	if len(out) == 1 {
		v = out[0]
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProfilesText(w io.Writer, rows []profileRow) error {
	if len(rows) == 1 {
		r := rows[0]
		if errors.Is(r.err, client.ErrNotFound) {
			fmt.Fprintf(w, "no imported profile for session %s\n", r.sessionID)
			return nil
		}
		if r.err != nil {
			return fmt.Errorf("profile %q: %w", r.sessionID, r.err)
		}
		m := r.result.MappedData
		fmt.Fprintf(w, "Session:         %s\n", r.sessionID)
		fmt.Fprintf(w, "External ID:     %s\n", r.result.Profile.ExternalID)
		fmt.Fprintf(w, "Name:            %s\n", m.FullName)
		fmt.Fprintf(w, "Email:           %s\n", m.Email)
		if m.MedicalSchool != "" {
			fmt.Fprintf(w, "Medical School:  %s\n", m.MedicalSchool)
		}
		if m.GraduationYear != nil {
			fmt.Fprintf(w, "Graduation Year: %d\n", *m.GraduationYear)
		}
		if len(m.CurrentInstitutions) > 0 {
			fmt.Fprintf(w, "Institutions:    %s\n", strings.Join(m.CurrentInstitutions, ", "))
		}
		for _, b := range m.BoardCertifications {
			fmt.Fprintf(w, "Certification:   %s (%s)\n", b.Certification, b.Board)
		}
		fmt.Fprintf(w, "Expires:         %s\n", r.result.ExpiresAt.Format(time.RFC3339))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tNAME\tSCHOOL\tEXPIRES\tERROR")
	for _, r := range rows {
		switch {
		case errors.Is(r.err, client.ErrNotFound):
			fmt.Fprintf(tw, "%s\t\t\t\tnot found\n", r.sessionID)
		case r.err != nil:
			fmt.Fprintf(tw, "%s\t\t\t\t%s\n", r.sessionID, r.err.Error())
		default:
			m := r.result.MappedData
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
				r.sessionID, m.FullName, m.MedicalSchool, r.result.ExpiresAt.Format(time.RFC3339))
		}
	}
	return tw.Flush()
}

// ── purge ────────────────────────────────────────────────────────────────────

var purgeCmd = &cobra.Command{
	Use:   "purge <session_id>",
	Short: "Delete the imported profile for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Purge(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ import for session %s purged\n", args[0])
		return nil
	},
}

// ── start-url ────────────────────────────────────────────────────────────────

var startRedirect string

var startURLCmd = &cobra.Command{
	Use:   "start-url <session_id>",
	Short: "Print the URL a browser opens to begin an import",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.StartURL(args[0], startRedirect))
		return nil
	},
}

func init() {
	startURLCmd.Flags().StringVar(&startRedirect, "redirect", "", "Frontend path to return to after the import")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the onboardctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "onboardctl %s\n", version)
	},
}
