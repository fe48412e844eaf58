package devkey

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyInfo is the HKDF info string. Changing it invalidates every sealed
// credential file in the wild.
const keyInfo = "strathconnect-credential-file-v1"

var (
	// ErrSealedTooShort is returned when a sealed blob is shorter than a nonce.
	ErrSealedTooShort = errors.New("sealed blob too short")
)

// Sealer encrypts and decrypts blobs under a device-derived AES-256 key.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from the given device fingerprint.
func NewSealer(fingerprint string) (*Sealer, error) {
	if fingerprint == "" {
		return nil, ErrNoFingerprint
	}

	h := hkdf.New(sha256.New, []byte(fingerprint), nil, []byte(keyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext with AES-256-GCM. Output layout: nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return append(nonce, gcm.Seal(nil, nonce, plaintext, nil)...), nil
}

// Open decrypts a blob produced by Seal. Any tampering fails authentication.
func (s *Sealer) Open(blob []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	ns := gcm.NonceSize()
	if len(blob) < ns {
		return nil, ErrSealedTooShort
	}
	return gcm.Open(nil, blob[:ns], blob[ns:], nil)
}

func (s *Sealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
