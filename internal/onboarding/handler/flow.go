package handler

import (
	"net/url"
	"strings"
)

// stage names the point of the import flow where a request ended.
type stage string

const (
	stageAwaitingCallback stage = "awaiting_callback"
	stageExchanging       stage = "exchanging"
	stageFetchingProfile  stage = "fetching_profile"
	stagePersisting       stage = "persisting"
	stageCompleted        stage = "completed"
)

// Error codes carried in the error_code redirect parameter and logs.
const (
	codeProviderDenied     = "provider_denied"
	codeMissingCode        = "missing_code"
	codeMalformedState     = "malformed_state"
	codeStateMismatch      = "state_mismatch"
	codeStateExpired       = "state_expired"
	codeExchangeFailed     = "exchange_failed"
	codeProfileFetchFailed = "profile_fetch_failed"
	codePersistFailed      = "persist_failed"
)

// Messages shown to the end user. Provider diagnostics never appear here.
const (
	msgSessionExpired = "Your session expired, please retry."
	msgDenied         = "The connection was cancelled. Please try again."
	msgIncomplete     = "The connection could not be completed. Please try again."
	msgImportFailed   = "We couldn't import your profile. Please try again."
)

// flowError is a terminal failure of the callback request.
type flowError struct {
	code    string
	stage   stage
	message string
	err     error
}

func (e *flowError) Error() string {
	if e.err != nil {
		return e.code + ": " + e.err.Error()
	}
	return e.code
}

func (e *flowError) Unwrap() error { return e.err }

// integrity reports whether the failure came from state validation.
func (e *flowError) integrity() bool {
	switch e.code {
	case codeMalformedState, codeStateMismatch, codeStateExpired:
		return true
	}
	return false
}

// sanitizeRedirectPath accepts only site-relative paths. Anything that could
// send the browser to another host yields "".
func sanitizeRedirectPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}
	return p
}

// buildRedirect joins the front end base URL, path and params. Params
// override any query already present on path.
func buildRedirect(frontendURL, path, defaultPath string, params url.Values) string {
	if path == "" {
		path = defaultPath
	}
	u, err := url.Parse(strings.TrimRight(frontendURL, "/") + path)
	if err != nil {
		u, _ = url.Parse(strings.TrimRight(frontendURL, "/") + defaultPath)
		if u == nil {
			u = &url.URL{Path: defaultPath}
		}
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}
