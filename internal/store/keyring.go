package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "courier"

var _ CredentialStore = (*KeyringCredentialStore)(nil)

// KeyringCredentialStore persists session secrets in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type KeyringCredentialStore struct{}

// NewKeyringCredentialStore returns a new KeyringCredentialStore.
func NewKeyringCredentialStore() *KeyringCredentialStore {
	return &KeyringCredentialStore{}
}

// SaveCredentials stores the secrets for the given user in the OS keyring.
func (k *KeyringCredentialStore) SaveCredentials(userID string, creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(serviceName, userID, string(data)); err != nil {
		return fmt.Errorf("failed to save credentials to keyring: %w", err)
	}
	return nil
}

// LoadCredentials retrieves the secrets for the given user from the OS keyring.
func (k *KeyringCredentialStore) LoadCredentials(userID string) (*Credentials, error) {
	data, err := keyring.Get(serviceName, userID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("no credentials for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from keyring: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

// DeleteCredentials removes the secrets for the given user. Missing entries
// are not an error.
func (k *KeyringCredentialStore) DeleteCredentials(userID string) error {
	if err := keyring.Delete(serviceName, userID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}
