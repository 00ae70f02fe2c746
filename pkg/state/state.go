package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igpublisher/pkg/logger"
)

// Upload records one published video.
type Upload struct {
	Key     string    `json:"key"`
	At      time.Time `json:"at"`
	MediaID string    `json:"media_id,omitempty"`
	Code    string    `json:"code,omitempty"`
}

// State tracks which media objects an account has already published. Keys
// are append-only; a published video stays recorded even if the source
// object later disappears.
type State struct {
	Username     string    `json:"username"`
	UploadedKeys []string  `json:"uploaded_keys"`
	LastUploaded *Upload   `json:"last_uploaded,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// IsUploaded reports whether the key is already recorded
func (s *State) IsUploaded(key string) bool {
	for _, k := range s.UploadedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Record appends the upload, deduplicating the key
func (s *State) Record(upload Upload) {
	if !s.IsUploaded(upload.Key) {
		s.UploadedKeys = append(s.UploadedKeys, upload.Key)
	}
	u := upload
	s.LastUploaded = &u
}

// Manager handles per-account upload state files
type Manager struct {
	dir    string
	logger logger.Logger
}

// NewManager creates a state manager rooted at the given directory
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{
		dir:    dir,
		logger: logger.GetLogger(),
	}, nil
}

// Path returns the state file path for a username
func (m *Manager) Path(username string) string {
	return filepath.Join(m.dir, fmt.Sprintf("uploaded-%s.json", username))
}

// Load reads the state for a username. A missing file yields an empty state,
// not an error.
func (m *Manager) Load(username string) (*State, error) {
	file, err := os.Open(m.Path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Username: username, Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	var st State
	if err := json.NewDecoder(file).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if st.Username == "" {
		st.Username = username
	}

	m.logger.DebugWithFields("Upload state loaded", map[string]interface{}{
		"username": st.Username,
		"uploaded": len(st.UploadedKeys),
	})

	return &st, nil
}

// Save writes the state to disk atomically
func (m *Manager) Save(st *State) error {
	st.UpdatedAt = time.Now()
	if st.Version == 0 {
		st.Version = 1
	}

	path := m.Path(st.Username)
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(st); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	m.logger.DebugWithFields("Upload state saved", map[string]interface{}{
		"username": st.Username,
		"uploaded": len(st.UploadedKeys),
	})

	return nil
}

// Delete removes the state file for a username
func (m *Manager) Delete(username string) error {
	if err := os.Remove(m.Path(username)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// Exists checks if a state file exists for a username
func (m *Manager) Exists(username string) bool {
	_, err := os.Stat(m.Path(username))
	return err == nil
}
