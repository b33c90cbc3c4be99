// Package session persists the opaque network session across deep-sleep power cycles.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/extremofile"

	"github.com/benmeehan/soil-node/pkg/encryption"
)

const recordVersion = 1

var (
	ErrEmptySession      = errors.New("refusing to save an absent session")
	ErrUnsupportedRecord = errors.New("unsupported session record version")
)

// DeviceSession is the persisted network membership. Payload is owned by the network layer.
type DeviceSession struct {
	Present bool
	Payload []byte
}

// SessionStore restores and saves the device session.
type SessionStore interface {
	// Restore never fails: any unusable state yields an absent session.
	Restore() DeviceSession
	Save(s DeviceSession) error
}

// PersistentStore is the storage primitive that survives loss of volatile memory.
// Read returns nil data and nil error when nothing was stored yet.
type PersistentStore interface {
	Read() ([]byte, error)
	io.Writer
}

type record struct {
	Version int    `json:"v"`
	Payload []byte `json:"payload"`
}

// Store seals session payloads and writes them as one record.
type Store struct {
	storage PersistentStore
	sealer  encryption.EncryptionManagerInterface
	logger  zerolog.Logger
}

// NewStore creates a Store. A nil sealer stores payloads unsealed.
func NewStore(storage PersistentStore, sealer encryption.EncryptionManagerInterface, logger zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		sealer:  sealer,
		logger:  logger,
	}
}

// NewFileStore creates a Store backed by an atomic main+backup file pair in dir.
func NewFileStore(dir string, sealer encryption.EncryptionManagerInterface, logger zerolog.Logger) *Store {
	storage := extremofile.New(extremofile.Config{
		Dir:      dir,
		DirPerm:  0700,
		FilePerm: 0600,
	})
	return NewStore(storage, sealer, logger)
}

// Restore reads the last saved session.
func (s *Store) Restore() DeviceSession {
	tbegin := time.Now()
	data, err := s.storage.Read()
	s.logger.Debug().Dur("duration", time.Since(tbegin)).Msg("Session storage read")

	if data == nil {
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read session storage, starting without session")
		} else {
			s.logger.Info().Msg("No saved session found")
		}
		return DeviceSession{}
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring non-critical session storage error")
	}

	payload, err := s.decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding unusable saved session")
		return DeviceSession{}
	}

	s.logger.Info().Int("size", len(payload)).Msg("Session restored")
	return DeviceSession{Present: true, Payload: payload}
}

// Save writes the whole session in one atomic record.
func (s *Store) Save(session DeviceSession) error {
	if !session.Present {
		return ErrEmptySession
	}

	payload := session.Payload
	if s.sealer != nil {
		sealed, err := s.sealer.Encrypt(session.Payload)
		if err != nil {
			return fmt.Errorf("failed to seal session: %w", err)
		}
		payload = sealed
	}

	data, err := json.Marshal(record{Version: recordVersion, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to serialize session record: %w", err)
	}

	tbegin := time.Now()
	if _, err := s.storage.Write(data); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	s.logger.Debug().Dur("duration", time.Since(tbegin)).Int("size", len(data)).Msg("Session saved")
	return nil
}

func (s *Store) decode(data []byte) ([]byte, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRecord, rec.Version)
	}
	if len(rec.Payload) == 0 {
		return nil, errors.New("session record has no payload")
	}
	if s.sealer == nil {
		return rec.Payload, nil
	}
	return s.sealer.Decrypt(rec.Payload)
}
