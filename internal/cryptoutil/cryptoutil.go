// Package cryptoutil encrypts stored OAuth tokens at rest.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smallbiznis/invoicereminder/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

var Module = fx.Module("cryptoutil",
	fx.Provide(Provide),
)

// ErrIntegrity means the ciphertext was tampered with or sealed by another key.
var ErrIntegrity = errors.New("ciphertext_integrity")

// Encryptor encrypts and decrypts token strings.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

const (
	prefixV1   = "v1:"
	noopPrefix = "noop:"
	hkdfInfo   = "invoicereminder/email-auth-token/v1"
)

// AESGCMEncryptor implements Encryptor using AES-256-GCM.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCMEncryptor derives a 32-byte key from secret with HKDF-SHA256.
func NewAESGCMEncryptor(secret []byte) (*AESGCMEncryptor, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("encryption secret must be at least 16 bytes, got %d", len(secret))
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a random nonce as "v1:" + base64(nonce||ct).
func (e *AESGCMEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *AESGCMEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, prefixV1) {
		return "", fmt.Errorf("%w: unknown ciphertext version", ErrIntegrity)
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext[len(prefixV1):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrIntegrity)
	}
	pt, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(pt), nil
}

// NoopEncryptor stores plaintext behind a marker. Only for local development.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(plaintext string) (string, error) {
	return noopPrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (NoopEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, noopPrefix) {
		return "", fmt.Errorf("%w: invalid noop ciphertext", ErrIntegrity)
	}
	b, err := base64.StdEncoding.DecodeString(ciphertext[len(noopPrefix):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(b), nil
}

// Provide builds the configured encryptor. Production requires a secret.
func Provide(cfg config.Config, log *zap.Logger) (Encryptor, error) {
	secret := strings.TrimSpace(cfg.TokenEncryptionSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("TOKEN_ENCRYPTION_SECRET is required in production")
		}
		log.Warn("cryptoutil.noop_encryptor", zap.String("environment", cfg.Environment))
		return NoopEncryptor{}, nil
	}
	return NewAESGCMEncryptor([]byte(secret))
}
