package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// blobVersion prefixes every sealed blob so the format can change later
	blobVersion = 0x01

	nonceSize = 12
	keySize   = 32

	// minMasterKeyLen keeps trivially short master keys out
	minMasterKeyLen = 16
)

// hkdfInfo binds derived keys to this use
var hkdfInfo = []byte("plana-core ai settings v1")

var (
	// ErrMasterKeyTooShort is returned for a master key under 16 bytes
	ErrMasterKeyTooShort = errors.New("master key must be at least 16 bytes")

	// ErrInvalidBlobSize is returned when the sealed blob is too small
	ErrInvalidBlobSize = errors.New("sealed blob is too small")

	// ErrUnsupportedVersion is returned for an unknown blob version
	ErrUnsupportedVersion = errors.New("unsupported sealed blob version")

	// ErrDecryptionFailed is returned for a wrong key or corrupted data
	ErrDecryptionFailed = errors.New("failed to open sealed blob")
)

// Encryptor seals values with AES-256-GCM under a key derived from a
// master key with HKDF-SHA256.
// Sealed format: version(1) || nonce(12) || ciphertext(N)
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor derives the data key from masterKey and salt.
// The salt may be empty.
func NewEncryptor(masterKey, salt []byte) (*Encryptor, error) {
	if len(masterKey) < minMasterKeyLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrMasterKeyTooShort, len(masterKey))
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, salt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// Seal JSON-encodes value and encrypts it.
func (e *Encryptor) Seal(value any) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 0, 1+nonceSize+len(plaintext)+e.gcm.Overhead())
	blob = append(blob, blobVersion)
	blob = append(blob, nonce...)
	return e.gcm.Seal(blob, nonce, plaintext, nil), nil
}

// Open decrypts blob into value, which must be a pointer.
func (e *Encryptor) Open(blob []byte, value any) error {
	if len(blob) < 1+nonceSize+e.gcm.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != blobVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	plaintext, err := e.gcm.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], nil)
	if err != nil {
		return ErrDecryptionFailed
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshal opened value: %w", err)
	}
	return nil
}

// APIKeys is the sealed part of the AI settings
type APIKeys struct {
	Gemini string `json:"gemini,omitempty"`
	OpenAI string `json:"openai,omitempty"`
}

// SealKeys is Seal for APIKeys. An empty key set seals to nil.
func (e *Encryptor) SealKeys(keys APIKeys) ([]byte, error) {
	if keys == (APIKeys{}) {
		return nil, nil
	}
	return e.Seal(keys)
}

// OpenKeys is Open for APIKeys. A nil blob opens to an empty key set.
func (e *Encryptor) OpenKeys(blob []byte) (APIKeys, error) {
	var keys APIKeys
	if len(blob) == 0 {
		return keys, nil
	}
	err := e.Open(blob, &keys)
	return keys, err
}
