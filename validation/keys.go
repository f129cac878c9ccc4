package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/openland/landauction/receipt"
)

// DefaultTrustedKeysPath returns the default path to the trusted key file
func DefaultTrustedKeysPath() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	return filepath.Join(dir, "trusted_keys.json")
}

// LoadTrustedKeysFromFile loads published signing keys from a JSON file
func LoadTrustedKeysFromFile(path string) ([]TrustedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trusted key file: %w", err)
	}

	var config TrustedKeyConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse trusted key file: %w", err)
	}

	if len(config.Keys) == 0 {
		return nil, fmt.Errorf("no keys found in trusted key file")
	}

	return config.Keys, nil
}

// ValidateTrustedKey checks if a public key matches any published key.
// A listed key matches on its PEM when present, otherwise on its key id.
// Returns: (match bool, matched key index)
// If no match, returns (false, -1)
func ValidateTrustedKey(publicKeyPEM string, known []TrustedKey) (bool, int) {
	keyID, err := receipt.KeyIDForPEM(publicKeyPEM)
	if err != nil {
		return false, -1
	}
	provided := strings.TrimSpace(publicKeyPEM)

	for i, key := range known {
		if key.PublicKey != "" {
			if strings.TrimSpace(key.PublicKey) == provided {
				return true, i
			}
			continue
		}
		if strings.EqualFold(key.KeyID, keyID) {
			return true, i
		}
	}
	return false, -1
}
