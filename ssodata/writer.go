// Package ssodata writes the registered application's identifiers and secret
// back into the add-in project: the manifest, the .env file, and the fallback
// auth page all carry scaffold placeholders that are resolved here.
package ssodata

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Placeholder tokens the Office add-in scaffolding leaves in project files.
const (
	applicationIDPlaceholder = "{application GUID here}"
	portPlaceholder          = "{PORT}"
)

// Env keys maintained in the project's .env file.
const (
	envKeyClientID = "CLIENT_ID"
	envKeyPort     = "PORT"
)

// WriteApplicationData resolves the scaffold placeholders in the manifest and
// fallback auth page and upserts the application id and port into the .env
// file. An empty fallbackPath skips the fallback page.
func WriteApplicationData(appID, port, manifestPath, envPath, fallbackPath string) error {
	if err := replaceInFile(manifestPath, appID, port); err != nil {
		return err
	}
	if fallbackPath != "" {
		if err := replaceInFile(fallbackPath, appID, port); err != nil {
			return err
		}
	}
	return upsertEnv(envPath, map[string]string{
		envKeyClientID: appID,
		envKeyPort:     port,
	})
}

func replaceInFile(path, appID, port string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	updated := strings.ReplaceAll(string(content), applicationIDPlaceholder, appID)
	updated = strings.ReplaceAll(updated, portPlaceholder, port)
	if updated == string(content) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func upsertEnv(path string, values map[string]string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read env file %s: %w", path, err)
		}
		env = make(map[string]string)
	}
	for key, value := range values {
		env[key] = value
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write env file %s: %w", path, err)
	}
	return nil
}
