// Package manifest reads the add-in manifest fields this tool needs. Office
// add-in manifests are XML; only the display name is consumed here.
package manifest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

type officeApp struct {
	DisplayName struct {
		DefaultValue string `xml:"DefaultValue,attr"`
	} `xml:"DisplayName"`
}

// ReadDisplayName returns the add-in's display name from the manifest at
// path.
func ReadDisplayName(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}

	var app officeApp
	if err := xml.Unmarshal(content, &app); err != nil {
		return "", fmt.Errorf("parse manifest %s: %w", path, err)
	}

	name := strings.TrimSpace(app.DisplayName.DefaultValue)
	if name == "" {
		return "", fmt.Errorf("manifest %s has no display name", path)
	}
	return name, nil
}
