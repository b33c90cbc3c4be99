package encryption_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/soil-node/pkg/encryption"
	"github.com/benmeehan/soil-node/pkg/file"
)

func TestEncryptionManager_RoundTrip(t *testing.T) {
	em := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, em.InitializeWithKey(bytes.Repeat([]byte{0x42}, 32)))

	ciphertext, err := em.Encrypt([]byte("session-state"))
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "session-state")

	plaintext, err := em.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("session-state"), plaintext)
}

func TestEncryptionManager_InitializeDerived_Deterministic(t *testing.T) {
	secret := []byte("0123456789abcdef")
	salt := []byte{0x70, 0xb3, 0xd5, 0x7e}

	first := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, first.InitializeDerived(secret, salt))
	second := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, second.InitializeDerived(secret, salt))

	ciphertext, err := first.Encrypt([]byte{1, 2, 3})
	require.NoError(t, err)

	plaintext, err := second.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, plaintext)
}

func TestEncryptionManager_Decrypt_WrongKey(t *testing.T) {
	a := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, a.InitializeDerived([]byte("secret-a"), nil))
	b := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, b.InitializeDerived([]byte("secret-b"), nil))

	ciphertext, err := a.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEncryptionManager_Initialize_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.key")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x01}, 32), 0600))

	em := encryption.NewEncryptionManager(file.NewFileService())
	assert.NoError(t, em.Initialize(path))

	short := filepath.Join(t.TempDir(), "short.key")
	require.NoError(t, os.WriteFile(short, []byte{0x01}, 0600))
	assert.Error(t, encryption.NewEncryptionManager(file.NewFileService()).Initialize(short))
}

func TestEncryptionManager_NotInitialized(t *testing.T) {
	em := encryption.NewEncryptionManager(file.NewFileService())

	_, err := em.Encrypt([]byte("x"))
	assert.Error(t, err)
}
