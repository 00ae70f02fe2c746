package credentials

import (
	"os"
	"time"
)

// EnvironmentStore implements Store using environment variables. It serves
// one account and is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(record *Record) error {
	return ErrStoreUnavailable
}

// Retrieve gets the password from environment variables
func (e *EnvironmentStore) Retrieve(username string) (*Record, error) {
	envUser := os.Getenv("IGPUBLISHER_USERNAME")
	envPass := os.Getenv("IGPUBLISHER_PASSWORD")

	if envUser == "" || envPass == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != envUser {
		return nil, ErrCredentialsNotFound
	}

	return &Record{
		Username:  envUser,
		Password:  envPass,
		UpdatedAt: time.Now(),
	}, nil
}

// List returns a single record if environment variables are set
func (e *EnvironmentStore) List() ([]*Record, error) {
	record, err := e.Retrieve("")
	if err != nil {
		return []*Record{}, nil
	}
	return []*Record{record}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for the username
func (e *EnvironmentStore) Exists(username string) bool {
	record, err := e.Retrieve(username)
	return err == nil && record != nil
}
