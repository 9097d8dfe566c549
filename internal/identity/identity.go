// Package identity resolves whose draft the engine is working on.
package identity

import (
	"context"
	"os"
	"strings"
)

// Provider returns the identity of the current user. The second result is
// false when no user is signed in; nothing may be persisted then.
type Provider interface {
	Current(ctx context.Context) (string, bool)
}

// Static always returns the same identity. A blank value means nobody is
// signed in.
type Static string

// Current implements Provider.
func (s Static) Current(context.Context) (string, bool) {
	id := strings.TrimSpace(string(s))
	return id, id != ""
}

// EnvVar is consulted by FromEnv.
const EnvVar = "RECEPTIONIST_IDENTITY"

// FromEnv returns a Static provider for configured, falling back to the
// RECEPTIONIST_IDENTITY environment variable and then the OS user name.
func FromEnv(configured string) Static {
	if strings.TrimSpace(configured) != "" {
		return Static(configured)
	}
	if v := os.Getenv(EnvVar); strings.TrimSpace(v) != "" {
		return Static(v)
	}
	return Static(os.Getenv("USER"))
}
