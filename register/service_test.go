package register

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"addinsso/azcli"
)

type scriptedExecutor struct {
	calls   []string
	respond func(commandLine string) (azcli.Result, error)
}

func (s *scriptedExecutor) Run(_ context.Context, commandLine string, _ azcli.Options) (azcli.Result, error) {
	s.calls = append(s.calls, commandLine)
	return s.respond(commandLine)
}

func (s *scriptedExecutor) callsMatching(substring string) []string {
	var matched []string
	for _, call := range s.calls {
		if strings.Contains(call, substring) {
			matched = append(matched, call)
		}
	}
	return matched
}

func objectResult(fields map[string]any) azcli.Result {
	return azcli.Result{Raw: "{}", Data: fields}
}

func graphList(entries ...any) azcli.Result {
	return objectResult(map[string]any{"value": entries})
}

type fakeStore struct {
	secrets map[string]string
}

func (f *fakeStore) AddSecret(appName, secret string) error {
	if f.secrets == nil {
		f.secrets = make(map[string]string)
	}
	f.secrets[appName] = secret
	return nil
}

func sessionFor(upn string) *azcli.Session {
	return &azcli.Session{Identity: []any{
		map[string]any{"user": map[string]any{"name": upn, "type": "user"}},
	}}
}

// tenantResponder scripts the full az surface for a tenant whose admin role
// is held by adminUPN and whose SharePoint service principal already has
// existingReplyURLs configured.
func tenantResponder(adminUPN string, existingReplyURLs []any) func(string) (azcli.Result, error) {
	return func(commandLine string) (azcli.Result, error) {
		switch {
		case strings.HasPrefix(commandLine, "az ad app create"):
			return objectResult(map[string]any{"id": "obj-1", "appId": "app-1"}), nil
		case strings.Contains(commandLine, "directoryRoles/role-1/members"):
			return graphList(map[string]any{"userPrincipalName": adminUPN}), nil
		case strings.Contains(commandLine, "directoryRoles"):
			return graphList(map[string]any{"id": "role-1", "displayName": "Global Administrator"}), nil
		case strings.Contains(commandLine, "graph.microsoft.com/v1.0/organization"):
			return graphList(map[string]any{"displayName": "Contoso"}), nil
		case strings.HasPrefix(commandLine, "az ad app show"):
			return objectResult(map[string]any{"appId": "app-1"}), nil
		case strings.HasPrefix(commandLine, "az ad sp show"):
			return objectResult(map[string]any{"id": "sp-obj-1", "replyUrls": existingReplyURLs}), nil
		case strings.HasPrefix(commandLine, "az ad app credential reset"):
			return objectResult(map[string]any{"appId": "app-1", "password": "s3cret-value"}), nil
		default:
			return azcli.Result{}, nil
		}
	}
}

func newTestRegistrar(t *testing.T, executor azcli.Executor, store CredentialStore) *Registrar {
	t.Helper()
	commands, err := DefaultCommands()
	if err != nil {
		t.Fatalf("DefaultCommands: %v", err)
	}
	registrar := NewRegistrar(RegistrarConfig{
		Executor: executor,
		Commands: commands,
		Store:    store,
		Out:      io.Discard,
	})
	registrar.poller = &Poller{executor: executor, attempts: defaultReadinessAttempts, delay: time.Microsecond}
	return registrar
}

func TestRegistrar_NonAdminEndToEnd(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: tenantResponder("admin@contoso.com", nil)}
	store := &fakeStore{}
	registrar := newTestRegistrar(t, executor, store)

	app, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("user@contoso.com"),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if app == nil {
		t.Fatalf("expected a populated application record")
	}
	if app.ID != "obj-1" || app.AppID != "app-1" || app.DisplayName != "Contoso Add-in" {
		t.Fatalf("unexpected record: %+v", app)
	}
	if !app.IdentifierURISet || !app.AudienceSet {
		t.Fatalf("identifier URI and audience steps must run: %+v", app)
	}
	if app.ConsentGranted || app.ReplyURLsSet {
		t.Fatalf("non-admin run must not touch consent or reply URLs: %+v", app)
	}
	if app.Secret != "s3cret-value" {
		t.Fatalf("unexpected secret: %q", app.Secret)
	}
	if store.secrets["Contoso Add-in"] != "s3cret-value" {
		t.Fatalf("secret not forwarded to the credential store: %v", store.secrets)
	}

	if calls := executor.callsMatching("admin-consent"); len(calls) != 0 {
		t.Fatalf("unexpected consent commands: %v", calls)
	}
	if calls := executor.callsMatching("az ad sp"); len(calls) != 0 {
		t.Fatalf("unexpected service principal commands: %v", calls)
	}
}

func TestRegistrar_AdminGrantsConsentAndSetsReplyURLs(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: tenantResponder("admin@contoso.com", nil)}
	registrar := newTestRegistrar(t, executor, &fakeStore{})
	session := sessionFor("admin@contoso.com")

	app, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: session,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !session.IsTenantAdmin {
		t.Fatalf("expected the admin fact to be recorded on the session")
	}
	if !app.ConsentGranted || !app.ReplyURLsSet {
		t.Fatalf("admin run must grant consent and set reply URLs: %+v", app)
	}

	if calls := executor.callsMatching("admin-consent"); len(calls) != 1 {
		t.Fatalf("expected exactly one consent command, got %v", calls)
	}
	updates := executor.callsMatching("az ad sp update")
	if len(updates) != 1 {
		t.Fatalf("expected exactly one reply URL update, got %v", updates)
	}
	if !strings.Contains(updates[0], "https://contoso-my.sharepoint.com/_forms/singlesignon.aspx") ||
		!strings.Contains(updates[0], "https://contoso.sharepoint.com/_forms/singlesignon.aspx") {
		t.Fatalf("update must carry both SSO URLs: %q", updates[0])
	}
	if !strings.Contains(updates[0], "sp-obj-1") {
		t.Fatalf("update must target the service principal object id: %q", updates[0])
	}
}

func TestRegistrar_ReplyURLsAlreadyConfigured(t *testing.T) {
	t.Parallel()

	existing := []any{"https://contoso-my.sharepoint.com/_forms/singlesignon.aspx"}
	executor := &scriptedExecutor{respond: tenantResponder("admin@contoso.com", existing)}
	registrar := newTestRegistrar(t, executor, &fakeStore{})

	app, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("admin@contoso.com"),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !app.ReplyURLsSet {
		t.Fatalf("already-configured URLs still count as set: %+v", app)
	}
	if calls := executor.callsMatching("az ad sp update"); len(calls) != 0 {
		t.Fatalf("no update command may be issued when a URL is already present: %v", calls)
	}
}

func TestRegistrar_EmptyCreateResultIsHandled(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: func(string) (azcli.Result, error) {
		return azcli.Result{}, nil
	}}
	registrar := newTestRegistrar(t, executor, &fakeStore{})

	app, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("user@contoso.com"),
	})
	if err != nil {
		t.Fatalf("an empty create result is a handled failure, got %v", err)
	}
	if app != nil {
		t.Fatalf("expected an absent record, got %+v", app)
	}
	if len(executor.calls) != 1 {
		t.Fatalf("no dependent step may run after a failed create: %v", executor.calls)
	}
}

func TestRegistrar_CreateResultMissingIdentifiersFails(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: func(string) (azcli.Result, error) {
		return objectResult(map[string]any{"appId": "app-1"}), nil
	}}
	registrar := newTestRegistrar(t, executor, &fakeStore{})

	_, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("user@contoso.com"),
	})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) || regErr.Step != "create-application" {
		t.Fatalf("expected create-application RegistrationError, got %v", err)
	}
}

func TestRegistrar_StepFailureSurfacesRegistrationError(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: func(commandLine string) (azcli.Result, error) {
		if strings.HasPrefix(commandLine, "az ad app create") {
			return objectResult(map[string]any{"id": "obj-1", "appId": "app-1"}), nil
		}
		return azcli.Result{}, &azcli.ExecutionError{Command: commandLine, Stderr: "update denied"}
	}}
	registrar := newTestRegistrar(t, executor, &fakeStore{})

	_, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("user@contoso.com"),
	})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegistrationError, got %v", err)
	}
	if regErr.Step != "set-identifier-uri" {
		t.Fatalf("expected the failing step name, got %q", regErr.Step)
	}
}

func TestRegistrar_ReadinessExhaustionSkipsConsentOnly(t *testing.T) {
	t.Parallel()

	base := tenantResponder("admin@contoso.com", nil)
	executor := &scriptedExecutor{}
	executor.respond = func(commandLine string) (azcli.Result, error) {
		if strings.HasPrefix(commandLine, "az ad app show") {
			return azcli.Result{}, &azcli.ExecutionError{Command: commandLine, Stderr: "does not exist"}
		}
		return base(commandLine)
	}
	registrar := newTestRegistrar(t, executor, &fakeStore{})
	registrar.poller = &Poller{executor: executor, attempts: 3, delay: time.Microsecond}

	app, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("admin@contoso.com"),
	})
	if err != nil {
		t.Fatalf("readiness exhaustion must not fail the run: %v", err)
	}
	if app.ConsentGranted {
		t.Fatalf("consent must be skipped when the app never becomes visible")
	}
	if !app.ReplyURLsSet {
		t.Fatalf("reply URL configuration must still run: %+v", app)
	}
	if app.Secret == "" {
		t.Fatalf("registration must complete with a secret")
	}
	if calls := executor.callsMatching("admin-consent"); len(calls) != 0 {
		t.Fatalf("unexpected consent commands: %v", calls)
	}
}

func TestRegistrar_StoreFailureFailsSecretStep(t *testing.T) {
	t.Parallel()

	executor := &scriptedExecutor{respond: tenantResponder("admin@contoso.com", nil)}
	registrar := newTestRegistrar(t, executor, failingStore{})

	_, err := registrar.Register(context.Background(), Params{
		AppName: "Contoso Add-in",
		Port:    "3000",
		Session: sessionFor("user@contoso.com"),
	})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) || regErr.Step != "create-secret" {
		t.Fatalf("expected create-secret RegistrationError, got %v", err)
	}
}

type failingStore struct{}

func (failingStore) AddSecret(string, string) error {
	return fmt.Errorf("keychain locked")
}

func TestHostPrefix(t *testing.T) {
	t.Parallel()

	if got := hostPrefix("Contoso Ltd"); got != "contosoltd" {
		t.Fatalf("unexpected host prefix: %q", got)
	}
	if got := hostPrefix("  Fabrikam  "); got != "fabrikam" {
		t.Fatalf("unexpected host prefix: %q", got)
	}
}
