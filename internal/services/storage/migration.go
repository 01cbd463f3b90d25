package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// EnableEncryption encrypts every JSON document with password
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return errors.New("encryption is already enabled")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("encrypt verification file: %w", err)
	}
	if err := atomicWrite(verifyPath, sealed, 0o644); err != nil {
		return fmt.Errorf("write verification file: %w", err)
	}

	seal := func(data []byte) ([]byte, error) {
		if isAgeEncrypted(data) {
			return nil, nil
		}
		return encryptData(data, recipient)
	}
	done, err := s.rewriteDocuments(seal)
	if err != nil {
		// best effort rollback
		s.rewritePaths(done, func(data []byte) ([]byte, error) { return decryptData(data, identity) })
		os.Remove(verifyPath)
		return err
	}

	if err := atomicWrite(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0o644); err != nil {
		return fmt.Errorf("create marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	s.log.WithField("files", len(done)).Info("encryption enabled")
	return nil
}

// DisableEncryption decrypts every document; password must match
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return errors.New("encryption is not enabled")
	}
	identity, _, err := s.verify(password)
	if err != nil {
		return err
	}

	open := func(data []byte) ([]byte, error) {
		if !isAgeEncrypted(data) {
			return nil, nil
		}
		return decryptData(data, identity)
	}
	done, err := s.rewriteDocuments(open)
	if err != nil {
		return err
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	s.log.WithField("files", len(done)).Info("encryption disabled")
	return nil
}

// rewriteDocuments applies transform to every .json document under the base
// directory. A nil result leaves the file untouched. It returns the paths it
// rewrote, including on failure.
func (s *Storage) rewriteDocuments(transform func([]byte) ([]byte, error)) ([]string, error) {
	files, err := s.Files(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir: %w", err)
	}
	var docs []string
	for _, path := range files {
		if skipEncryption(path) || strings.ToLower(filepath.Ext(path)) != ".json" {
			continue
		}
		docs = append(docs, path)
	}
	return s.rewritePaths(docs, transform)
}

func (s *Storage) rewritePaths(paths []string, transform func([]byte) ([]byte, error)) ([]string, error) {
	var done []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return done, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		out, err := transform(data)
		if err != nil {
			return done, fmt.Errorf("rewrite %s: %w", filepath.Base(path), err)
		}
		if out == nil {
			continue
		}
		if err := atomicWrite(path, out, 0o600); err != nil {
			return done, fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}
	return done, nil
}
