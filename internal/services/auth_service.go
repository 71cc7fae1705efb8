// Package services holds the application services sitting between the HTTP
// handlers and the object store: credential sealing, the listing catalog,
// savings jobs, download tokens and connection health.
package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

var ErrMalformedToken = errors.New("malformed token")

// AuthService seals storage credentials into an opaque cookie value with
// AES-GCM. The server itself stays stateless; the browser carries the
// sealed credentials on every request.
type AuthService struct {
	encryptionKey []byte
}

// NewAuthService reads the 32-byte key from DGC_SESSION_KEY or generates an
// ephemeral one. A generated key invalidates sessions on restart, which is
// acceptable for a single-process console.
func NewAuthService() *AuthService {
	key := os.Getenv("DGC_SESSION_KEY")
	if len(key) != 32 {
		newKey := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
			panic("failed to generate session key")
		}
		return &AuthService{encryptionKey: newKey}
	}
	return &AuthService{encryptionKey: []byte(key)}
}

// EncryptCredentials seals the credentials into a cookie-safe string.
func (s *AuthService) EncryptCredentials(creds deltaglider.Credentials) (string, error) {
	data, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	sealed, err := seal(s.encryptionKey, data)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptCredentials reverses EncryptCredentials. Any tampering or a key
// change makes the GCM open fail.
func (s *AuthService) DecryptCredentials(encrypted string) (*deltaglider.Credentials, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, ErrMalformedToken
	}
	plaintext, err := openSealed(s.encryptionKey, ciphertext)
	if err != nil {
		return nil, err
	}
	var creds deltaglider.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func seal(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func openSealed(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrMalformedToken
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrMalformedToken
	}
	return plaintext, nil
}
