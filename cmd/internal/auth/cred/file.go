package cred

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Codec transforms the credential file's on-disk bytes. A nil codec means
// the file is stored as plain JSON. *devkey.Sealer satisfies it.
type Codec interface {
	Seal(plain []byte) ([]byte, error)
	Open(raw []byte) ([]byte, error)
}

// FileStore keeps credentials in a single local file, loaded once at
// construction and rewritten on every mutation.
//
// The file holds a flat string map so both credential keys live and die in
// one atomic write.
type FileStore struct {
	path  string
	codec Codec

	mu     sync.RWMutex
	values map[string]string
}

// NewFileStore opens (or lazily creates) a plain-JSON credential file.
func NewFileStore(path string) (*FileStore, error) {
	return newFileStore(path, nil)
}

// NewSealedFileStore opens a credential file whose contents pass through
// the given codec (typically a devkey sealer) on read and write.
func NewSealedFileStore(path string, codec Codec) (*FileStore, error) {
	if codec == nil {
		return nil, fmt.Errorf("sealed credential store requires a codec")
	}
	return newFileStore(path, codec)
}

func newFileStore(path string, codec Codec) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("credential file path is required")
	}

	s := &FileStore{
		path:   path,
		codec:  codec,
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Token implements Store.
func (s *FileStore) Token() (string, error) { return s.get(keyAccessToken) }

// SetToken implements Store.
func (s *FileStore) SetToken(token string) error { return s.set(keyAccessToken, token) }

// Identity implements Store.
func (s *FileStore) Identity() (string, error) { return s.get(keyIdentity) }

// SetIdentity implements Store.
func (s *FileStore) SetIdentity(identityJSON string) error { return s.set(keyIdentity, identityJSON) }

// Clear implements Store: both keys are removed in one write.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, keyAccessToken)
	delete(s.values, keyIdentity)
	return s.persistLocked()
}

func (s *FileStore) get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.persistLocked()
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read credential file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	if s.codec != nil {
		b, err = s.codec.Open(b)
		if err != nil {
			return fmt.Errorf("unseal credential file: %w", err)
		}
	}

	if err := json.Unmarshal(b, &s.values); err != nil {
		return fmt.Errorf("decode credential file: %w", err)
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	b, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	if s.codec != nil {
		b, err = s.codec.Seal(b)
		if err != nil {
			return fmt.Errorf("seal credential file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
