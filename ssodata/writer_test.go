package ssodata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestWriteApplicationData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "manifest.xml",
		`<WebApplicationInfo><Id>{application GUID here}</Id><Resource>api://localhost:{PORT}/{application GUID here}</Resource></WebApplicationInfo>`)
	fallbackPath := writeFile(t, dir, "fallbackauthdialog.html",
		`<script>const clientId = "{application GUID here}";</script>`)
	envPath := writeFile(t, dir, ".env", "NODE_ENV=development\n")

	if err := WriteApplicationData("app-1", "3000", manifestPath, envPath, fallbackPath); err != nil {
		t.Fatalf("WriteApplicationData: %v", err)
	}

	manifestContent, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if strings.Contains(string(manifestContent), "{application GUID here}") {
		t.Fatalf("manifest placeholder not replaced: %s", manifestContent)
	}
	if !strings.Contains(string(manifestContent), "api://localhost:3000/app-1") {
		t.Fatalf("expected resolved resource URI: %s", manifestContent)
	}

	fallbackContent, err := os.ReadFile(fallbackPath)
	if err != nil {
		t.Fatalf("read fallback page: %v", err)
	}
	if !strings.Contains(string(fallbackContent), `const clientId = "app-1"`) {
		t.Fatalf("fallback placeholder not replaced: %s", fallbackContent)
	}

	env, err := godotenv.Read(envPath)
	if err != nil {
		t.Fatalf("read env: %v", err)
	}
	if env["CLIENT_ID"] != "app-1" || env["PORT"] != "3000" {
		t.Fatalf("unexpected env values: %v", env)
	}
	if env["NODE_ENV"] != "development" {
		t.Fatalf("existing env keys must survive the upsert: %v", env)
	}
}

func TestWriteApplicationData_CreatesEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "manifest.xml", "<OfficeApp/>")
	envPath := filepath.Join(dir, ".env")

	if err := WriteApplicationData("app-1", "3000", manifestPath, envPath, ""); err != nil {
		t.Fatalf("WriteApplicationData: %v", err)
	}
	env, err := godotenv.Read(envPath)
	if err != nil {
		t.Fatalf("read env: %v", err)
	}
	if env["CLIENT_ID"] != "app-1" {
		t.Fatalf("unexpected env values: %v", env)
	}
}

func TestWriteApplicationData_MissingManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := WriteApplicationData("app-1", "3000", filepath.Join(dir, "absent.xml"), filepath.Join(dir, ".env"), "")
	if err == nil {
		t.Fatalf("expected error for a missing manifest")
	}
}
