package register

import (
	_ "embed"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultCommandTemplates []byte

// CommandSet holds the az command templates the registrar renders. Templates
// are a contract boundary: their placeholder names must match what the
// registrar substitutes.
type CommandSet struct {
	CreateApplication   string `yaml:"createApplication"`
	SetIdentifierURI    string `yaml:"setIdentifierUri"`
	SetSignInAudience   string `yaml:"setSignInAudience"`
	GetDirectoryRoles   string `yaml:"getDirectoryRoles"`
	GetAdminRoleMembers string `yaml:"getAdminRoleMembers"`
	GetOrganization     string `yaml:"getOrganization"`
	ShowApplication     string `yaml:"showApplication"`
	GrantAdminConsent   string `yaml:"grantAdminConsent"`
	GetServicePrincipal string `yaml:"getServicePrincipal"`
	SetTenantReplyURLs  string `yaml:"setTenantReplyUrls"`
	CreateSecret        string `yaml:"createSecret"`
}

// DefaultCommands parses the embedded template asset.
func DefaultCommands() (CommandSet, error) {
	return parseCommands(defaultCommandTemplates, "embedded commands.yaml")
}

// LoadCommands parses a template file overriding the embedded asset.
func LoadCommands(path string) (CommandSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return CommandSet{}, fmt.Errorf("read command templates: %w", err)
	}
	return parseCommands(content, path)
}

func parseCommands(content []byte, source string) (CommandSet, error) {
	var commands CommandSet
	if err := yaml.Unmarshal(content, &commands); err != nil {
		return CommandSet{}, fmt.Errorf("parse command templates %s: %w", source, err)
	}

	// Every template must be present; a missing one would only surface
	// mid-registration otherwise.
	value := reflect.ValueOf(commands)
	for i := 0; i < value.NumField(); i++ {
		if strings.TrimSpace(value.Field(i).String()) == "" {
			tag := value.Type().Field(i).Tag.Get("yaml")
			return CommandSet{}, fmt.Errorf("command templates %s: missing template %q", source, tag)
		}
	}
	return commands, nil
}
