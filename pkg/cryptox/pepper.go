package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreatePepper loads the pepper from file, generating and saving one
// if the file does not exist yet. An empty path means no pepper.
//
// Losing the pepper file makes every stored Argon2id hash unverifiable, so
// back it up alongside the database.
func LoadOrCreatePepper(file string) (string, error) {
	if file == "" {
		return "", nil
	}

	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	pepperBytes, err := os.ReadFile(file)
	if err == nil {
		return strings.TrimSpace(string(pepperBytes)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	// Generate a new pepper and save it to the file
	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	pepper := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(file, []byte(pepper), 0600); err != nil {
		return "", err
	}
	return pepper, nil
}
