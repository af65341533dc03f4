package cryptoutil

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/smallbiznis/invoicereminder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newEncryptor(t *testing.T, secret string) *AESGCMEncryptor {
	t.Helper()
	enc, err := NewAESGCMEncryptor([]byte(secret))
	require.NoError(t, err)
	return enc
}

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	enc := newEncryptor(t, "0123456789abcdef0123456789abcdef")

	for _, plaintext := range []string{
		"",
		"ya29.a0AfH6SMB-refresh",
		"Caixa Econômica Federal",
		"日本語のトークン 🔐",
		strings.Repeat("x", 4096),
	} {
		ciphertext, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ciphertext, "v1:"))

		got, err := enc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESGCMEncryptor_NonceIsRandom(t *testing.T) {
	enc := newEncryptor(t, "0123456789abcdef0123456789abcdef")

	a, err := enc.Encrypt("same")
	require.NoError(t, err)
	b, err := enc.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESGCMEncryptor_WrongKey(t *testing.T) {
	enc := newEncryptor(t, "0123456789abcdef0123456789abcdef")
	other := newEncryptor(t, "fedcba9876543210fedcba9876543210")

	ciphertext, err := enc.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestAESGCMEncryptor_Tampered(t *testing.T) {
	enc := newEncryptor(t, "0123456789abcdef0123456789abcdef")

	ciphertext, err := enc.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, "v1:"))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := "v1:" + base64.StdEncoding.EncodeToString(raw)

	_, err = enc.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrIntegrity)

	for _, bad := range []string{"", "v2:abc", "v1:!!!", "v1:" + base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err = enc.Decrypt(bad)
		assert.ErrorIs(t, err, ErrIntegrity, "input %q", bad)
	}
}

func TestNewAESGCMEncryptor_ShortSecret(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 bytes")
}

func TestNoopEncryptor(t *testing.T) {
	var enc NoopEncryptor
	ciphertext, err := enc.Encrypt("token")
	require.NoError(t, err)

	got, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "token", got)

	_, err = enc.Decrypt("v1:abc")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestProvide(t *testing.T) {
	log := zaptest.NewLogger(t)

	enc, err := Provide(config.Config{Environment: "development"}, log)
	require.NoError(t, err)
	assert.IsType(t, NoopEncryptor{}, enc)

	_, err = Provide(config.Config{Environment: "production"}, log)
	assert.Error(t, err)

	enc, err = Provide(config.Config{Environment: "production", TokenEncryptionSecret: "0123456789abcdef0123456789abcdef"}, log)
	require.NoError(t, err)
	assert.IsType(t, &AESGCMEncryptor{}, enc)
}
