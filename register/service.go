package register

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"addinsso/azcli"
	"addinsso/internal/templating"
	"addinsso/telemetry"
)

// SharePoint Online's well-known application id. Its service principal in
// the tenant carries the tenant-wide SSO reply URLs.
const sharePointApplicationID = "00000003-0000-0ff1-ce00-000000000000"

// Graph still reports the global admin role as "Company Administrator" in
// some tenants.
var tenantAdminRoleNames = map[string]bool{
	"Global Administrator":  true,
	"Company Administrator": true,
}

// CredentialStore receives the issued application secret, keyed by app name.
type CredentialStore interface {
	AddSecret(appName, secret string) error
}

// Application is the record built up step by step during registration.
// ID is the directory object id, AppID the application (client) id; both are
// required before any configuration step runs.
type Application struct {
	ID          string
	AppID       string
	DisplayName string
	Secret      string

	IdentifierURISet bool
	AudienceSet      bool
	ConsentGranted   bool
	ReplyURLsSet     bool
}

// Params carries the caller-supplied inputs for one registration run.
type Params struct {
	AppName string
	Port    string
	Session *azcli.Session
}

// Registrar drives the az command sequence that registers an application
// for add-in SSO.
type Registrar struct {
	executor azcli.Executor
	commands CommandSet
	store    CredentialStore
	reporter telemetry.Reporter
	poller   *Poller
	out      io.Writer
}

type RegistrarConfig struct {
	Executor azcli.Executor
	Commands CommandSet
	Store    CredentialStore
	Reporter telemetry.Reporter
	Poller   *Poller
	Out      io.Writer
}

func NewRegistrar(cfg RegistrarConfig) *Registrar {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = telemetry.Nop{}
	}
	poller := cfg.Poller
	if poller == nil {
		poller = NewPoller(cfg.Executor)
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Registrar{
		executor: cfg.Executor,
		commands: cfg.Commands,
		store:    cfg.Store,
		reporter: reporter,
		poller:   poller,
		out:      out,
	}
}

// Register runs the full sequence: create the application, set its
// identifier URI and sign-in audience, configure tenant-wide access when the
// signed-in user is an admin, and issue a secret. A create command that
// produces no result is a handled failure returning a nil record without
// error; any other step failure aborts with a RegistrationError naming the
// step. Artifacts created before a failure are left as-is.
func (r *Registrar) Register(ctx context.Context, params Params) (*Application, error) {
	app, err := r.createApplication(ctx, params)
	if err != nil {
		r.reporter.Exception("create-application", err)
		return nil, err
	}
	if app == nil {
		fmt.Fprintln(r.out, "Application creation produced no result; nothing was registered.")
		r.reporter.Event("create-application-empty", map[string]string{"appName": params.AppName})
		return nil, nil
	}

	steps := []struct {
		name string
		fn   func(context.Context, Params, *Application) error
	}{
		{"set-identifier-uri", r.setIdentifierURI},
		{"set-sign-in-audience", r.setSignInAudience},
		{"configure-tenant-access", r.configureTenantAccess},
		{"create-secret", r.createSecret},
	}
	for _, step := range steps {
		if err := step.fn(ctx, params, app); err != nil {
			r.reporter.Exception(step.name, err)
			return nil, &RegistrationError{Step: step.name, Err: err}
		}
		r.reporter.Event(step.name, map[string]string{"appId": app.AppID})
	}
	return app, nil
}

func (r *Registrar) createApplication(ctx context.Context, params Params) (*Application, error) {
	commandLine, err := templating.Render(r.commands.CreateApplication, map[string]string{
		"appName": params.AppName,
		"port":    params.Port,
	})
	if err != nil {
		return nil, &RegistrationError{Step: "create-application", Err: err}
	}
	result, err := r.executor.Run(ctx, commandLine, azcli.Options{ParseJSON: true})
	if err != nil {
		return nil, &RegistrationError{Step: "create-application", Err: err}
	}
	if result.Empty() {
		return nil, nil
	}

	app := &Application{
		ID:          result.StringField("id"),
		AppID:       result.StringField("appId"),
		DisplayName: params.AppName,
	}
	if app.ID == "" || app.AppID == "" {
		return nil, &RegistrationError{
			Step: "create-application",
			Err:  fmt.Errorf("create result is missing id or appId"),
		}
	}
	return app, nil
}

func (r *Registrar) setIdentifierURI(ctx context.Context, params Params, app *Application) error {
	commandLine, err := templating.Render(r.commands.SetIdentifierURI, map[string]string{
		"appID": app.AppID,
		"port":  params.Port,
	})
	if err != nil {
		return err
	}
	if _, err := r.executor.Run(ctx, commandLine, azcli.Options{}); err != nil {
		return err
	}
	app.IdentifierURISet = true
	return nil
}

func (r *Registrar) setSignInAudience(ctx context.Context, _ Params, app *Application) error {
	commandLine, err := templating.Render(r.commands.SetSignInAudience, map[string]string{
		"objectID": app.ID,
	})
	if err != nil {
		return err
	}
	if _, err := r.executor.Run(ctx, commandLine, azcli.Options{}); err != nil {
		return err
	}
	app.AudienceSet = true
	return nil
}

// configureTenantAccess grants admin consent and configures the tenant SSO
// reply URLs, but only when the signed-in user holds the tenant admin role.
func (r *Registrar) configureTenantAccess(ctx context.Context, params Params, app *Application) error {
	admin, err := r.isTenantAdmin(ctx, params.Session)
	if err != nil {
		return err
	}
	if params.Session != nil {
		params.Session.IsTenantAdmin = admin
	}
	if !admin {
		fmt.Fprintln(r.out, "Signed-in user is not a tenant admin; skipping admin consent and tenant reply URLs.")
		return nil
	}

	showCommand, err := templating.Render(r.commands.ShowApplication, map[string]string{"appID": app.AppID})
	if err != nil {
		return err
	}
	ready, err := r.poller.WaitUntilReady(ctx, showCommand)
	if err != nil {
		return err
	}
	if !ready {
		fmt.Fprintf(r.out, "Application %s never became visible; skipping admin consent. Grant it later with: az ad app permission admin-consent --id %s\n", app.AppID, app.AppID)
	} else {
		consentCommand, err := templating.Render(r.commands.GrantAdminConsent, map[string]string{"appID": app.AppID})
		if err != nil {
			return err
		}
		if _, err := r.executor.Run(ctx, consentCommand, azcli.Options{}); err != nil {
			return fmt.Errorf("grant admin consent: %w", err)
		}
		app.ConsentGranted = true
	}

	return r.configureReplyURLs(ctx, app)
}

// isTenantAdmin cross-references the tenant's admin-role member list against
// the signed-in user's principal name.
func (r *Registrar) isTenantAdmin(ctx context.Context, session *azcli.Session) (bool, error) {
	upn := session.UserPrincipalName()
	if upn == "" {
		return false, nil
	}

	roles, err := r.executor.Run(ctx, r.commands.GetDirectoryRoles, azcli.Options{ParseJSON: true})
	if err != nil {
		return false, fmt.Errorf("list directory roles: %w", err)
	}
	roleID := ""
	for _, entry := range graphValue(roles) {
		role, _ := entry.(map[string]any)
		if name, _ := role["displayName"].(string); tenantAdminRoleNames[name] {
			roleID, _ = role["id"].(string)
			break
		}
	}
	if roleID == "" {
		return false, nil
	}

	membersCommand, err := templating.Render(r.commands.GetAdminRoleMembers, map[string]string{
		"tenantAdminID": roleID,
	})
	if err != nil {
		return false, err
	}
	members, err := r.executor.Run(ctx, membersCommand, azcli.Options{ParseJSON: true})
	if err != nil {
		return false, fmt.Errorf("list admin role members: %w", err)
	}
	for _, entry := range graphValue(members) {
		member, _ := entry.(map[string]any)
		if name, _ := member["userPrincipalName"].(string); strings.EqualFold(name, upn) {
			return true, nil
		}
	}
	return false, nil
}

// configureReplyURLs adds the tenant's OneDrive and SharePoint SSO URLs to
// the SharePoint Online service principal. Idempotent: when either URL is
// already configured the update is skipped entirely.
func (r *Registrar) configureReplyURLs(ctx context.Context, app *Application) error {
	tenantName, err := r.tenantHostPrefix(ctx)
	if err != nil {
		return err
	}
	if tenantName == "" {
		fmt.Fprintln(r.out, "Tenant display name unavailable; skipping tenant reply URLs.")
		return nil
	}

	spCommand, err := templating.Render(r.commands.GetServicePrincipal, map[string]string{
		"servicePrincipalID": sharePointApplicationID,
	})
	if err != nil {
		return err
	}
	sp, err := r.executor.Run(ctx, spCommand, azcli.Options{ParseJSON: true})
	if err != nil {
		return fmt.Errorf("show SharePoint service principal: %w", err)
	}
	spObjectID := sp.StringField("id")
	if spObjectID == "" {
		return fmt.Errorf("SharePoint service principal has no object id")
	}

	oneDriveURL := fmt.Sprintf("https://%s-my.sharepoint.com/_forms/singlesignon.aspx", tenantName)
	sharePointURL := fmt.Sprintf("https://%s.sharepoint.com/_forms/singlesignon.aspx", tenantName)
	existing, _ := sp.Object()["replyUrls"].([]any)
	for _, raw := range existing {
		if url, _ := raw.(string); url == oneDriveURL || url == sharePointURL {
			fmt.Fprintln(r.out, "Tenant SSO reply URLs already configured.")
			app.ReplyURLsSet = true
			return nil
		}
	}

	updateCommand, err := templating.Render(r.commands.SetTenantReplyURLs, map[string]string{
		"servicePrincipalID": spObjectID,
		"tenantName":         tenantName,
	})
	if err != nil {
		return err
	}
	if _, err := r.executor.Run(ctx, updateCommand, azcli.Options{}); err != nil {
		return fmt.Errorf("set tenant reply URLs: %w", err)
	}
	app.ReplyURLsSet = true
	return nil
}

// tenantHostPrefix derives the sharepoint.com host prefix from the tenant's
// display name.
func (r *Registrar) tenantHostPrefix(ctx context.Context) (string, error) {
	result, err := r.executor.Run(ctx, r.commands.GetOrganization, azcli.Options{ParseJSON: true})
	if err != nil {
		return "", fmt.Errorf("read organization: %w", err)
	}
	value := graphValue(result)
	if len(value) == 0 {
		return "", nil
	}
	organization, _ := value[0].(map[string]any)
	displayName, _ := organization["displayName"].(string)
	return hostPrefix(displayName), nil
}

func hostPrefix(displayName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(displayName), " ", ""))
}

func (r *Registrar) createSecret(ctx context.Context, _ Params, app *Application) error {
	commandLine, err := templating.Render(r.commands.CreateSecret, map[string]string{"appID": app.AppID})
	if err != nil {
		return err
	}
	result, err := r.executor.Run(ctx, commandLine, azcli.Options{ParseJSON: true})
	if err != nil {
		return err
	}
	secret := result.StringField("password")
	if secret == "" {
		return fmt.Errorf("credential reset produced no password")
	}
	app.Secret = secret

	if r.store != nil {
		if err := r.store.AddSecret(app.DisplayName, secret); err != nil {
			return fmt.Errorf("store secret for %q: %w", app.DisplayName, err)
		}
	}
	return nil
}

func graphValue(result azcli.Result) []any {
	value, _ := result.Object()["value"].([]any)
	return value
}
