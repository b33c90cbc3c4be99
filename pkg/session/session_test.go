package session_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/soil-node/pkg/encryption"
	"github.com/benmeehan/soil-node/pkg/file"
	"github.com/benmeehan/soil-node/pkg/session"
)

// memoryStorage is an in-memory PersistentStore.
type memoryStorage struct {
	data     []byte
	readErr  error
	writeErr error
	writes   int
}

func (m *memoryStorage) Read() ([]byte, error) {
	if m.data == nil {
		return nil, m.readErr
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, m.readErr
}

func (m *memoryStorage) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.data = make([]byte, len(p))
	copy(m.data, p)
	m.writes++
	return len(p), nil
}

func newSealer(t *testing.T, secret string) *encryption.EncryptionManager {
	em := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, em.InitializeDerived([]byte(secret), nil))
	return em
}

func TestStore_Restore_Empty(t *testing.T) {
	store := session.NewStore(&memoryStorage{}, nil, zerolog.Nop())

	restored := store.Restore()

	assert.False(t, restored.Present)
	assert.Nil(t, restored.Payload)
}

func TestStore_Restore_ReadError(t *testing.T) {
	store := session.NewStore(&memoryStorage{readErr: errors.New("io failure")}, nil, zerolog.Nop())

	assert.False(t, store.Restore().Present)
}

func TestStore_SaveTwiceRestoresIdentical(t *testing.T) {
	storage := &memoryStorage{}
	store := session.NewStore(storage, newSealer(t, "app-key"), zerolog.Nop())
	s := session.DeviceSession{Present: true, Payload: []byte(`{"dev_addr":"260b1234","f_cnt_up":7}`)}

	require.NoError(t, store.Save(s))
	first := store.Restore()
	require.NoError(t, store.Save(s))
	second := store.Restore()

	assert.Equal(t, s, first)
	assert.Equal(t, s, second)
	assert.Equal(t, 2, storage.writes)
	assert.False(t, bytes.Contains(storage.data, []byte("260b1234")), "payload must be sealed at rest")
}

func TestStore_Save_Absent(t *testing.T) {
	storage := &memoryStorage{}
	store := session.NewStore(storage, nil, zerolog.Nop())

	err := store.Save(session.DeviceSession{})

	assert.ErrorIs(t, err, session.ErrEmptySession)
	assert.Zero(t, storage.writes)
}

func TestStore_Save_WriteError(t *testing.T) {
	store := session.NewStore(&memoryStorage{writeErr: errors.New("disk full")}, nil, zerolog.Nop())

	err := store.Save(session.DeviceSession{Present: true, Payload: []byte{1}})

	assert.Error(t, err)
}

func TestStore_Restore_Corrupt(t *testing.T) {
	store := session.NewStore(&memoryStorage{data: []byte("not json")}, nil, zerolog.Nop())

	assert.False(t, store.Restore().Present)
}

func TestStore_Restore_WrongKey(t *testing.T) {
	storage := &memoryStorage{}
	require.NoError(t, session.NewStore(storage, newSealer(t, "old-key"), zerolog.Nop()).
		Save(session.DeviceSession{Present: true, Payload: []byte{1, 2, 3}}))

	restored := session.NewStore(storage, newSealer(t, "new-key"), zerolog.Nop()).Restore()

	assert.False(t, restored.Present)
}

func TestStore_Restore_UnsupportedVersion(t *testing.T) {
	store := session.NewStore(&memoryStorage{data: []byte(`{"v":9,"payload":"AQI="}`)}, nil, zerolog.Nop())

	assert.False(t, store.Restore().Present)
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	s := session.DeviceSession{Present: true, Payload: []byte("opaque-session")}

	require.NoError(t, session.NewFileStore(dir, newSealer(t, "k"), zerolog.Nop()).Save(s))

	// A fresh store models the next wake cycle after deep sleep.
	restored := session.NewFileStore(dir, newSealer(t, "k"), zerolog.Nop()).Restore()
	assert.Equal(t, s, restored)
}

func TestFileStore_Restore_NothingSaved(t *testing.T) {
	restored := session.NewFileStore(t.TempDir(), nil, zerolog.Nop()).Restore()

	assert.False(t, restored.Present)
}
