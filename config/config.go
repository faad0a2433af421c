package config

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeySSOPort             = "sso.port"
	KeySSOCommandTemplates = "sso.command_templates"
	KeyProjectEnvFile      = "project.env_file"
	KeyProjectFallbackPage = "project.fallback_page"
	KeyTelemetryEnabled    = "telemetry.enabled"
)

type Config struct {
	SSO       SSOConfig       `mapstructure:"sso" validate:"required"`
	Project   ProjectConfig   `mapstructure:"project"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type SSOConfig struct {
	// Port templates the localhost URLs of the registered application.
	Port string `mapstructure:"port" validate:"required,numeric"`
	// CommandTemplates optionally overrides the embedded az command
	// template file.
	CommandTemplates string `mapstructure:"command_templates"`
}

type ProjectConfig struct {
	EnvFile      string `mapstructure:"env_file" validate:"required"`
	FallbackPage string `mapstructure:"fallback_page"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySSOPort, "3000")
	v.SetDefault(KeySSOCommandTemplates, "")
	v.SetDefault(KeyProjectEnvFile, ".env")
	v.SetDefault(KeyProjectFallbackPage, "")
	v.SetDefault(KeyTelemetryEnabled, true)
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# addinsso configuration
sso:
  port: "3000"
  # command_templates: ./commands.yaml

project:
  env_file: .env
  # fallback_page: ./src/fallbackauthdialog.html

telemetry:
  enabled: true
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
