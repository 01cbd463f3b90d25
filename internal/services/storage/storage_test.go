package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

func newStore(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store, dir
}

func TestJSONRoundtrip(t *testing.T) {
	store, _ := newStore(t)
	path := store.Path("users", "alice", "plan.json")

	if err := store.WriteJSON(path, doc{Name: "checking", Balance: "1000.00"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Name != "checking" || got.Balance != "1000.00" {
		t.Errorf("got %+v", got)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestReadMissingDocument(t *testing.T) {
	store, _ := newStore(t)
	var got doc
	err := store.ReadJSON(store.Path("nope.json"), &got)
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	store, dir := newStore(t)
	path := filepath.Join(dir, "users", "alice", "plan.json")
	original := doc{Name: "rent", Balance: "-1200.00"}

	if err := store.WriteJSON(path, original); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	password := "testpassword123"
	if err := store.EnableEncryption(password); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	if !store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return true")
	}

	raw, _ := os.ReadFile(path)
	if !isAgeEncrypted(raw) {
		t.Error("document should be encrypted on disk")
	}

	var got doc
	if err := store.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON after encryption: %v", err)
	}
	if got != original {
		t.Errorf("got %+v, want %+v", got, original)
	}

	store.Lock()
	if err := store.ReadJSON(path, &got); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked while locked, got %v", err)
	}
	if err := store.WriteJSON(path, original); !errors.Is(err, ErrLocked) {
		t.Errorf("expected write to fail while locked, got %v", err)
	}

	if err := store.Unlock(password); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	if err := store.DisableEncryption(password); err != nil {
		t.Fatalf("Failed to disable encryption: %v", err)
	}
	if store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return false after disable")
	}

	raw, _ = os.ReadFile(path)
	if isAgeEncrypted(raw) {
		t.Error("document should be plain text after disable")
	}
	if _, err := os.Stat(filepath.Join(dir, markerFile)); !os.IsNotExist(err) {
		t.Error("marker file should be removed")
	}
}

func TestReopenEncryptedDirectory(t *testing.T) {
	store, dir := newStore(t)
	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("EnableEncryption: %v", err)
	}

	reopened, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !reopened.IsEncrypted() || reopened.IsUnlocked() {
		t.Fatal("reopened directory should be encrypted and locked")
	}
	if err := reopened.Unlock("testpassword123"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !reopened.IsUnlocked() {
		t.Error("expected unlocked storage")
	}
}

func TestWrongPassword(t *testing.T) {
	store, _ := newStore(t)
	if err := store.EnableEncryption("correctpassword"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	store.Lock()

	if err := store.Unlock("wrongpassword"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}
	if err := store.DisableEncryption("wrongpassword"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword from disable, got %v", err)
	}
}

func TestPasswordTooShort(t *testing.T) {
	store, _ := newStore(t)
	if err := store.EnableEncryption("short"); err == nil {
		t.Error("Expected error for short password")
	}
}

func TestNewDocumentsEncrypted(t *testing.T) {
	store, dir := newStore(t)
	if err := store.EnableEncryption("testpassword123"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	path := filepath.Join(dir, "new.json")
	if err := store.WriteJSON(path, doc{Name: "new"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !isAgeEncrypted(raw) {
		t.Error("new document should be encrypted on disk")
	}
}

func TestSubdirs(t *testing.T) {
	store, _ := newStore(t)
	for _, user := range []string{"alice", "bob"} {
		if err := store.WriteJSON(store.Path("users", user, "plan.json"), doc{}); err != nil {
			t.Fatal(err)
		}
	}

	names, err := store.Subdirs(store.Path("users"))
	if err != nil {
		t.Fatalf("Subdirs: %v", err)
	}
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("got %v", names)
	}

	none, err := store.Subdirs(store.Path("missing"))
	if err != nil || len(none) != 0 {
		t.Errorf("missing dir: got %v, %v", none, err)
	}
}
