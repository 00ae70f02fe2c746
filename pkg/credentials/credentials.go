package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Record holds an account's login password
type Record struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the interface for storing and retrieving account passwords
type Store interface {
	// Store saves the record
	Store(record *Record) error

	// Retrieve gets the record for a specific username
	Retrieve(username string) (*Record, error)

	// List returns all stored records
	List() ([]*Record, error)

	// Delete removes the record for a specific username
	Delete(username string) error

	// Exists checks if a record exists for a username
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []Store
}

// NewManager creates a credential manager backed by the system keychain when
// available, an encrypted file, and environment variables as last resort
func NewManager() (*Manager, error) {
	var stores []Store

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves the record using the first store that accepts it
func (m *Manager) Store(record *Record) error {
	if record.Username == "" {
		return errors.New("username is required")
	}
	if record.Password == "" {
		return errors.New("password is required")
	}

	record.UpdatedAt = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(record); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the record from the first store that has it
func (m *Manager) Retrieve(username string) (*Record, error) {
	for _, store := range m.stores {
		if record, err := store.Retrieve(username); err == nil && record != nil {
			return record, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for user: %s", username)
}

// List returns all stored records across all stores
func (m *Manager) List() ([]*Record, error) {
	recordMap := make(map[string]*Record)

	for _, store := range m.stores {
		records, err := store.List()
		if err != nil {
			continue
		}
		for _, record := range records {
			// Use the most recently updated version
			if existing, ok := recordMap[record.Username]; !ok || record.UpdatedAt.After(existing.UpdatedAt) {
				recordMap[record.Username] = record
			}
		}
	}

	var result []*Record
	for _, record := range recordMap {
		result = append(result, record)
	}

	return result, nil
}

// Delete removes the record from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for user: %s", username)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igpublisher")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igpublisher")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igpublisher")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igpublisher")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// maskString masks all but the first 2 characters of a string
func maskString(s string) string {
	if len(s) <= 4 {
		return "********"
	}
	return s[:2] + "******"
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
