package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialCipherRejectsEmptyKey(t *testing.T) {
	_, err := NewCredentialCipher("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCredentialCipher("test-passphrase")
	require.NoError(t, err)

	bundle := `{"host":"db.internal","port":5432,"user":"app","password":"s3cret"}`
	encrypted, err := c.Encrypt(bundle)
	require.NoError(t, err)
	assert.NotEqual(t, bundle, encrypted)

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, bundle, decrypted)
}

func TestEncryptEmptyPassesThrough(t *testing.T) {
	c, err := NewCredentialCipher("k")
	require.NoError(t, err)

	out, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	out, err = c.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, err := NewCredentialCipher("key-one")
	require.NoError(t, err)
	c2, err := NewCredentialCipher("key-two")
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("payload")
	require.NoError(t, err)

	_, err = c2.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptGarbageFails(t *testing.T) {
	c, err := NewCredentialCipher("k")
	require.NoError(t, err)

	_, err = c.Decrypt("!!not-base64!!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	short := base64.StdEncoding.EncodeToString([]byte("tiny"))
	_, err = c.Decrypt(short)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestBase64KeyUsedDirectly(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	c, err := NewCredentialCipher(key)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("x")
	require.NoError(t, err)
	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "x", decrypted)
}
