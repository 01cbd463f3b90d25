// Package storage provides file access under a data directory, transparently
// encrypting documents with age when the directory has been locked down.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
	"github.com/sirupsen/logrus"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the data password
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"moneyclip-encryption-verify","version":1}`

	// MinPasswordLength is the shortest password EnableEncryption accepts
	MinPasswordLength = 8
)

var (
	// ErrLocked is returned when an encrypted document is read before Unlock
	ErrLocked = errors.New("storage is locked")
	// ErrIncorrectPassword is returned when a password fails verification
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrNotExist is returned for documents that have never been written
	ErrNotExist = fs.ErrNotExist
)

// Storage reads and writes documents below a base directory
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	log       *logrus.Entry
	mu        sync.RWMutex
}

// New opens the data directory, creating it if needed
func New(baseDir string, log *logrus.Entry) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Storage{
		baseDir: baseDir,
		log:     log.WithField("component", "storage"),
	}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the base directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// Path joins elements onto the base directory
func (s *Storage) Path(elem ...string) string {
	return filepath.Join(append([]string{s.baseDir}, elem...)...)
}

// IsEncrypted returns true if the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked returns true unless the directory is encrypted and no key is loaded
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock loads the key for an encrypted directory
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}
	identity, recipient, err := s.verify(password)
	if err != nil {
		return err
	}
	s.identity = identity
	s.recipient = recipient
	s.log.Info("data directory unlocked")
	return nil
}

// Lock clears the key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.recipient = nil
}

// verify checks password against the verification file. Caller holds mu.
func (s *Storage) verify(password string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, nil, fmt.Errorf("create recipient: %w", err)
	}

	sealed, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read verification file: %w", err)
	}
	plain, err := decryptData(sealed, identity)
	if err != nil || string(plain) != verifyMagic {
		return nil, nil, ErrIncorrectPassword
	}
	return identity, recipient, nil
}

// ReadFile reads a file, decrypting it when needed
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isAgeEncrypted(data) {
		return data, nil
	}
	if s.identity == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
	}
	return decryptData(data, s.identity)
}

// WriteFile writes a file atomically, encrypting it when enabled
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && !skipEncryption(path) {
		if s.recipient == nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrLocked)
		}
		sealed, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
		data = sealed
	}
	return atomicWrite(path, data, perm)
}

// ReadJSON decodes the document at path into v
func (s *Storage) ReadJSON(path string, v any) error {
	data, err := s.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON and writes it to path
func (s *Storage) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return s.WriteFile(path, data, 0o600)
}

// Subdirs lists the directory names directly below dir
func (s *Storage) Subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Files lists the regular files below dir, recursively. A missing dir has
// no files.
func (s *Storage) Files(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// atomicWrite writes data to a temp file and renames it over path
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// skipEncryption reports files that always stay in plain text
func skipEncryption(path string) bool {
	base := filepath.Base(path)
	return base == markerFile || base == verifyFile
}

// isAgeEncrypted checks for the age header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
