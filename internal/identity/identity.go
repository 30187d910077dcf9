// Package identity signs and verifies the anti-forgery state carried through
// the external identity provider's authorization redirect.
package identity
