package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"addinsso/azcli"
	"addinsso/config"
	"addinsso/manifest"
	"addinsso/register"
	"addinsso/ssodata"
	"addinsso/telemetry"
)

var (
	configurePort         string
	configureEnvFile      string
	configureFallbackPage string
	configureSkipWrite    bool
)

var configureCmd = &cobra.Command{
	Use:   "configure <manifest-path>",
	Short: "Register an Azure AD application for the add-in and wire it into the project.",
	Long: `Register an Azure AD application for single sign-on and write its identifiers
back into the project.

The command checks that the Azure CLI is installed and installs it if missing
(after a fresh install, restart your shell and re-run). It then opens a browser
login, creates the application named after the manifest's display name, sets its
identifier URI and sign-in audience, and issues a client secret. When the
signed-in user is a tenant admin it also grants admin consent and configures the
tenant-wide SSO reply URLs.`,
	Example: `
  # Register the add-in described by a manifest
  addinsso configure ./manifest.xml

  # Use a different development port and project env file
  addinsso configure ./manifest.xml --port 44355 --env-file ./app/.env
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		manifestPath := args[0]

		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		port := configurePort
		if port == "" {
			port = cfg.SSO.Port
		}
		envFile := configureEnvFile
		if envFile == "" {
			envFile = cfg.Project.EnvFile
		}
		fallbackPage := configureFallbackPage
		if fallbackPage == "" {
			fallbackPage = cfg.Project.FallbackPage
		}

		appName, err := manifest.ReadDisplayName(manifestPath)
		if err != nil {
			return err
		}

		var reporter telemetry.Reporter = telemetry.Nop{}
		if cfg.Telemetry.Enabled {
			if path := telemetry.DefaultUsagePath(); path != "" {
				reporter = telemetry.NewFileReporter(path)
			}
		}
		executor := azcli.NewShellExecutor(reporter)

		installer := azcli.NewInstallManager(executor)
		installed, err := installer.IsInstalled(ctx)
		if err != nil {
			return err
		}
		if !installed {
			fmt.Println("Azure CLI not found; installing it now. This can take a few minutes.")
			if err := installer.Install(ctx); err != nil {
				return err
			}
			if installer.RestartRequired() {
				fmt.Println("Azure CLI installed. Restart your shell so PATH changes take effect, then re-run this command.")
			} else {
				fmt.Println("Azure CLI installed. Re-run this command to register the add-in.")
			}
			return nil
		}

		commands, err := loadCommandTemplates(cfg.SSO.CommandTemplates)
		if err != nil {
			return err
		}
		credentialPath, err := ssodata.DefaultCredentialPath()
		if err != nil {
			return err
		}

		sessions := azcli.NewSessionManager(executor)
		fmt.Println("Opening a browser for Azure login...")
		session, err := sessions.Login(ctx)
		if err != nil {
			return err
		}
		if !session.LoggedIn() {
			return errors.New("Azure login produced no account; log in with `az login` manually and retry")
		}
		defer func() {
			if err := sessions.Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: logout failed: %v\n", err)
			}
		}()

		registrar := register.NewRegistrar(register.RegistrarConfig{
			Executor: executor,
			Commands: commands,
			Store:    ssodata.NewFileCredentialStore(credentialPath),
			Reporter: reporter,
		})
		app, err := registrar.Register(ctx, register.Params{
			AppName: appName,
			Port:    port,
			Session: session,
		})
		if err != nil {
			return err
		}
		if app == nil {
			return fmt.Errorf("application %q was not registered", appName)
		}

		if !configureSkipWrite {
			if err := ssodata.WriteApplicationData(app.AppID, port, manifestPath, envFile, fallbackPage); err != nil {
				return err
			}
		}

		fmt.Printf("Registered application %q (appId %s).\n", app.DisplayName, app.AppID)
		if app.ConsentGranted {
			fmt.Println("Admin consent granted.")
		} else {
			fmt.Println("Admin consent not granted; a tenant admin can grant it later.")
		}
		fmt.Printf("Client secret stored in %s.\n", credentialPath)
		return nil
	},
}

func loadCommandTemplates(override string) (register.CommandSet, error) {
	if override != "" {
		return register.LoadCommands(override)
	}
	return register.DefaultCommands()
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().StringVar(&configurePort, "port", "", "Development server port used to template localhost URLs (default from config: 3000)")
	configureCmd.Flags().StringVar(&configureEnvFile, "env-file", "", "Project .env file to update with CLIENT_ID and PORT (default from config: .env)")
	configureCmd.Flags().StringVar(&configureFallbackPage, "fallback-page", "", "Fallback auth dialog page to update (optional)")
	configureCmd.Flags().BoolVar(&configureSkipWrite, "skip-write", false, "Register only; do not write identifiers into project files")
}
