package credentials

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	// Use mock manager for reliable testing
	manager, mockStore := NewMockManager()

	record := &Record{
		Username:  "testuser",
		Password:  "hunter22hunter22",
		UpdatedAt: time.Now(),
	}

	err := manager.Store(record)
	if err != nil {
		t.Errorf("Failed to store record: %v", err)
	}

	retrieved, err := manager.Retrieve("testuser")
	if err != nil {
		t.Errorf("Failed to retrieve record: %v", err)
	}

	if retrieved.Username != record.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, record.Username)
	}
	if retrieved.Password != record.Password {
		t.Errorf("Password mismatch: got %s, want %s", retrieved.Password, record.Password)
	}

	records, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list records: %v", err)
	}
	if len(records) == 0 {
		t.Error("Expected at least one record in list")
	}

	err = manager.Delete("testuser")
	if err != nil {
		t.Errorf("Failed to delete record: %v", err)
	}

	_, err = manager.Retrieve("testuser")
	if err == nil {
		t.Error("Expected error retrieving deleted record")
	}

	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 records after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsIncompleteRecord(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Record{Password: "secret"}); err == nil {
		t.Error("Expected error for record without username")
	}
	if err := manager.Store(&Record{Username: "user"}); err == nil {
		t.Error("Expected error for record without password")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_creds.enc")

	os.Setenv("IGPUBLISHER_PASSPHRASE", "test_passphrase_123")
	defer os.Unsetenv("IGPUBLISHER_PASSPHRASE")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	record := &Record{
		Username: "encrypted_user",
		Password: "encrypted_password_value",
	}

	err = store.Store(record)
	if err != nil {
		t.Errorf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Errorf("Failed to retrieve from encrypted file: %v", err)
	}

	if retrieved.Password != record.Password {
		t.Errorf("Password mismatch after encryption/decryption")
	}

	// Verify file is actually encrypted
	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Contains(fileContent, []byte("encrypted_password_value")) {
		t.Error("File contains plaintext password")
	}
}

func TestEnvironmentStore(t *testing.T) {
	os.Setenv("IGPUBLISHER_USERNAME", "env_user")
	os.Setenv("IGPUBLISHER_PASSWORD", "env_password")
	defer os.Unsetenv("IGPUBLISHER_USERNAME")
	defer os.Unsetenv("IGPUBLISHER_PASSWORD")

	store := NewEnvironmentStore()

	record, err := store.Retrieve("env_user")
	if err != nil {
		t.Errorf("Failed to retrieve from environment: %v", err)
	}

	if record.Password != "env_password" {
		t.Errorf("Password mismatch: got %s, want env_password", record.Password)
	}

	// A different username must not get the environment password
	if _, err := store.Retrieve("other_user"); err == nil {
		t.Error("Expected error for mismatched username")
	}

	// Test that store is not supported
	err = store.Store(&Record{})
	if err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestManagerWithEncryptedStore(t *testing.T) {
	tempDir := t.TempDir()

	os.Setenv("IGPUBLISHER_PASSPHRASE", "test_passphrase_manager")
	defer os.Unsetenv("IGPUBLISHER_PASSPHRASE")

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(tempDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	manager := NewManagerWithStores(encryptedStore)

	record := &Record{
		Username:  "realuser",
		Password:  "real_password",
		UpdatedAt: time.Now(),
	}

	err = manager.Store(record)
	if err != nil {
		t.Fatalf("Failed to store record: %v", err)
	}

	records, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record in list, got %d", len(records))
	}

	retrieved, err := manager.Retrieve("realuser")
	if err != nil {
		t.Fatalf("Failed to retrieve record: %v", err)
	}

	if retrieved.Username != record.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, record.Username)
	}
	if retrieved.Password != record.Password {
		t.Errorf("Password mismatch: got %s, want %s", retrieved.Password, record.Password)
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	records, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(records))
	}

	record := &Record{
		Username: "mockuser",
		Password: "mock_password",
	}

	err = store.Store(record)
	if err != nil {
		t.Errorf("Failed to store record: %v", err)
	}

	if store.Count() != 1 {
		t.Errorf("Expected 1 record, got %d", store.Count())
	}

	if !store.Exists("mockuser") {
		t.Error("Record should exist")
	}

	// Test error injection
	store.ListError = fmt.Errorf("injected error")
	_, err = store.List()
	if err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestTerminalProviderUsesStoredPassword(t *testing.T) {
	manager, mockStore := NewMockManager()
	if err := mockStore.Store(&Record{Username: "stored", Password: "from_store"}); err != nil {
		t.Fatal(err)
	}

	provider := &TerminalProvider{
		manager: manager,
		in:      strings.NewReader(""),
		out:     &bytes.Buffer{},
	}

	password, err := provider.Password("stored")
	if err != nil {
		t.Fatalf("Failed to get password: %v", err)
	}
	if password != "from_store" {
		t.Errorf("Expected stored password, got %s", password)
	}
}

func TestTerminalProviderPromptsWhenMissing(t *testing.T) {
	manager, _ := NewMockManager()

	var out bytes.Buffer
	provider := &TerminalProvider{
		manager: manager,
		in:      strings.NewReader("typed_password\n"),
		out:     &out,
	}

	password, err := provider.Password("missing")
	if err != nil {
		t.Fatalf("Failed to get password: %v", err)
	}
	if password != "typed_password" {
		t.Errorf("Expected typed password, got %s", password)
	}
	if !strings.Contains(out.String(), "missing") {
		t.Error("Expected prompt to name the account")
	}
}

func TestTerminalProviderVerificationCode(t *testing.T) {
	var out bytes.Buffer
	provider := &TerminalProvider{
		in:  strings.NewReader("  123456  \n789000\n"),
		out: &out,
	}

	code, err := provider.VerificationCode("Enter the code sent to your email")
	if err != nil {
		t.Fatalf("Failed to read code: %v", err)
	}
	if code != "123456" {
		t.Errorf("Expected trimmed code 123456, got %q", code)
	}

	// Consecutive prompts read consecutive lines
	code, err = provider.VerificationCode("Enter the new code")
	if err != nil {
		t.Fatalf("Failed to read second code: %v", err)
	}
	if code != "789000" {
		t.Errorf("Expected second code 789000, got %q", code)
	}
}
