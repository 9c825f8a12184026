package auth

import (
	"os"
	"time"
)

// EnvironmentLabel is the label reported for credentials sourced from
// the environment.
const EnvironmentLabel = "environment"

// EnvironmentStore implements CredentialStore over process environment
// variables. It is read-only and answers only for its own label, so it
// can sit first in the chain without shadowing stored entries.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(label string) (*Credentials, error) {
	if label != "" && label != EnvironmentLabel {
		return nil, ErrCredentialsNotFound
	}

	userID := os.Getenv("IG_USER_ID")
	token := os.Getenv("IG_ACCESS_TOKEN")
	if userID == "" || token == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{
		Label:        EnvironmentLabel,
		UserID:       userID,
		AccessToken:  token,
		AppID:        os.Getenv("IG_APP_ID"),
		AppSecret:    os.Getenv("IG_APP_SECRET"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single entry if the environment is fully populated
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(label string) bool {
	creds, err := e.Retrieve(label)
	return err == nil && creds != nil
}
