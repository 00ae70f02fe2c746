package credentials

import (
	"fmt"
	"sync"
)

// MockStore implements Store for testing purposes
type MockStore struct {
	records map[string]*Record
	mu      sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]*Record),
	}
}

// Store saves the record to the mock store
func (m *MockStore) Store(record *Record) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if record == nil || record.Username == "" {
		return ErrInvalidCredentials
	}

	// Create a copy to avoid external modifications
	recordCopy := *record
	m.records[record.Username] = &recordCopy

	return nil
}

// Retrieve gets the record from the mock store
func (m *MockStore) Retrieve(username string) (*Record, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidCredentials
	}

	record, exists := m.records[username]
	if !exists {
		return nil, ErrCredentialsNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

// List returns all stored records from the mock store
func (m *MockStore) List() ([]*Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*Record
	for _, record := range m.records {
		recordCopy := *record
		records = append(records, &recordCopy)
	}

	return records, nil
}

// Delete removes the record from the mock store
func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return ErrInvalidCredentials
	}

	if _, exists := m.records[username]; !exists {
		return ErrCredentialsNotFound
	}

	delete(m.records, username)
	return nil
}

// Exists checks if a record exists in the mock store
func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.records[username]
	return exists
}

// Clear removes all records from the mock store (useful for test cleanup)
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]*Record)
}

// Count returns the number of records in the mock store (useful for testing)
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// NewMockManager creates a Manager with a mock store for testing
func NewMockManager() (*Manager, *MockStore) {
	mockStore := NewMockStore()
	manager := &Manager{
		stores: []Store{mockStore},
	}
	return manager, mockStore
}

// GetRecord returns a copy of the record for inspection (useful for testing)
func (m *MockStore) GetRecord(username string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[username]
	if !exists {
		return nil, fmt.Errorf("record not found: %s", username)
	}

	recordCopy := *record
	return &recordCopy, nil
}
