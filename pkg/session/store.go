package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igpublisher/pkg/logger"
)

// Session is the serialized authentication state for one account. The
// auth-state blob belongs to the client library; its presence on disk does
// not imply validity.
type Session struct {
	Username  string          `json:"username"`
	Device    json.RawMessage `json:"device"`
	AuthState json.RawMessage `json:"auth_state"`
	SavedAt   time.Time       `json:"saved_at"`
}

// Store persists at most one Session file per username under a directory.
type Store struct {
	dir string
	log logger.Logger
}

// NewStore creates a session store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{
		dir: dir,
		log: logger.GetLogger(),
	}, nil
}

// Path returns the session file path for a username.
func (s *Store) Path(username string) string {
	return filepath.Join(s.dir, username+".json")
}

// Load reads the persisted session for a username. A missing file yields
// (nil, nil); a file that cannot be decoded yields a SessionCorruptError.
func (s *Store) Load(username string) (*Session, error) {
	path := s.Path(username)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &SessionCorruptError{Username: username, Path: path, Err: err}
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, &SessionCorruptError{Username: username, Path: path, Err: err}
	}
	if sess.Username == "" || len(sess.AuthState) == 0 {
		return nil, &SessionCorruptError{
			Username: username,
			Path:     path,
			Err:      fmt.Errorf("missing required session fields"),
		}
	}

	s.log.DebugWithFields("session loaded from disk", map[string]interface{}{
		"username": username,
		"saved_at": sess.SavedAt,
	})

	return &sess, nil
}

// Save writes the session atomically: temp file, fsync, rename. A concurrent
// reader never observes a partial write.
func (s *Store) Save(sess *Session) error {
	if sess == nil || sess.Username == "" {
		return fmt.Errorf("session username is required")
	}
	sess.SavedAt = time.Now()

	path := s.Path(sess.Username)
	tempPath := path + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sess); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.log.DebugWithFields("session saved", map[string]interface{}{
		"username": sess.Username,
		"path":     path,
	})

	return nil
}

// Delete removes the persisted session for a username if present.
func (s *Store) Delete(username string) error {
	if err := os.Remove(s.Path(username)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Exists reports whether a session file is present for a username.
func (s *Store) Exists(username string) bool {
	_, err := os.Stat(s.Path(username))
	return err == nil
}
