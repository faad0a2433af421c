package azcli

import (
	"context"
	"fmt"
	"os"
)

const (
	loginCommand         = "az login --allow-no-subscriptions"
	loginFallbackCommand = "az login"
	logoutCommand        = "az logout"
)

// Session holds the identity payload az login produced for this run plus the
// tenant-admin fact the registrar derives from it. It is not retained after
// the run; az keeps its own credential cache on disk.
type Session struct {
	Identity      []any
	IsTenantAdmin bool
}

// LoggedIn reports whether login produced at least one account entry.
func (s *Session) LoggedIn() bool {
	return s != nil && len(s.Identity) > 0
}

// UserPrincipalName returns the signed-in user's principal name from the
// first account entry, or an empty string.
func (s *Session) UserPrincipalName() string {
	if !s.LoggedIn() {
		return ""
	}
	entry, _ := s.Identity[0].(map[string]any)
	user, _ := entry["user"].(map[string]any)
	name, _ := user["name"].(string)
	return name
}

// SessionManager logs the user in and out of the Azure CLI.
type SessionManager struct {
	executor Executor
}

func NewSessionManager(executor Executor) *SessionManager {
	return &SessionManager{executor: executor}
}

// Login opens the interactive browser login. A failed login is a valid
// outcome, so a non-zero exit is tolerated. An empty payload triggers exactly
// one fallback: logout, then login without the no-subscription relaxation.
// The fallback result is final even when it is also empty.
func (m *SessionManager) Login(ctx context.Context) (*Session, error) {
	opts := Options{ParseJSON: true, TolerateExitError: true}

	result, err := m.executor.Run(ctx, loginCommand, opts)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if len(result.Entries()) == 0 {
		fmt.Fprintln(os.Stderr, "Login produced no account; retrying once without --allow-no-subscriptions.")
		_, _ = m.executor.Run(ctx, logoutCommand, Options{TolerateExitError: true})
		result, err = m.executor.Run(ctx, loginFallbackCommand, opts)
		if err != nil {
			return nil, fmt.Errorf("fallback login: %w", err)
		}
	}

	return &Session{Identity: result.Entries()}, nil
}

// Logout ends the az session. A non-zero exit is tolerated.
func (m *SessionManager) Logout(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, logoutCommand, Options{TolerateExitError: true}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
