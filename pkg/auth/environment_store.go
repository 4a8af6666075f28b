package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore.
const (
	EnvAccessToken = "TAP_INSTAGRAM_ACCESS_TOKEN"
	EnvAccountName = "TAP_INSTAGRAM_ACCOUNT"
)

// EnvironmentStore is a read-only CredentialStore that exposes the token in
// TAP_INSTAGRAM_ACCESS_TOKEN as a single account.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. A non-empty name must match
// TAP_INSTAGRAM_ACCOUNT, or "default" when that is unset.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := os.Getenv(EnvAccessToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	envName := e.name()
	if name != "" && name != envName {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Name:         envName,
		AccessToken:  token,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the token variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment holds a token for name
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}

func (e *EnvironmentStore) name() string {
	if name := os.Getenv(EnvAccountName); name != "" {
		return name
	}
	return "default"
}
