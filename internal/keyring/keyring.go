package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "envvault"

// ErrNotFound is returned when no passphrase is stored for a profile
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a profile passphrase in the OS keyring
func SavePassphrase(profile string, passphrase string) error {
	return keyring.Set(serviceName, profile, passphrase)
}

// GetPassphrase retrieves a profile passphrase from the OS keyring
func GetPassphrase(profile string) (string, error) {
	return keyring.Get(serviceName, profile)
}

// DeletePassphrase removes a profile passphrase from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassphrase(profile string) error {
	err := keyring.Delete(serviceName, profile)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored for the profile
func HasPassphrase(profile string) bool {
	_, err := keyring.Get(serviceName, profile)
	return err == nil
}
