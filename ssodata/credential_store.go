package ssodata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// FileCredentialStore maps application names to issued secrets in a
// dotenv-format file, one key per application.
type FileCredentialStore struct {
	path string
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// DefaultCredentialPath returns $HOME/.addinsso/credentials.env.
func DefaultCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".addinsso", "credentials.env"), nil
}

// AddSecret stores the secret under the application's name, replacing any
// previous secret for the same application.
func (s *FileCredentialStore) AddSecret(appName, secret string) error {
	env, err := godotenv.Read(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read credential store %s: %w", s.path, err)
		}
		env = make(map[string]string)
	}
	env[envKey(appName)] = secret

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential store directory: %w", err)
	}
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("write credential store %s: %w", s.path, err)
	}
	// godotenv creates the file with default permissions; secrets stay
	// owner-only.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restrict credential store permissions: %w", err)
	}
	return nil
}

func envKey(appName string) string {
	key := strings.ToUpper(strings.TrimSpace(appName))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
}
