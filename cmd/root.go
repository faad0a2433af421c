package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/spf13/cobra"

	"addinsso/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "addinsso",
	Short: "Register an Azure AD application for Office Add-in single sign-on.",
	Long: `
**********************************************
*               ADD-IN SSO                   *
**********************************************

This CLI registers an Azure AD application for single sign-on in an Office Add-in
project. It checks that the Azure CLI is installed (installing it if needed), logs
you in, registers and configures the application, and writes the resulting
identifiers and secret back into the project files.
`,
	Example: `
  # Create configuration file
  addinsso config create

  # Register the add-in described by a manifest, templating URLs with port 3000
  addinsso configure ./manifest.xml

  # Use a different development port
  addinsso configure ./manifest.xml --port 44355
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.addinsso.yaml, then ./.addinsso.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".addinsso" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".addinsso")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// Config is optional; defaults cover a plain run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Config file error: %v\n", err)
		}
	}
}
