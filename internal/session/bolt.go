package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltStore keeps sessions in a single bbolt bucket keyed by chat id.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBoltStore opens (or creates) the database file at path.
func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func boltKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

func (b *BoltStore) Get(_ context.Context, chatID int64) (*Session, error) {
	var s Session
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(sessionsBucket).Get(boltKey(chatID))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &s)
	})
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", chatID, err)
	}
	if !found || expired(&s, b.ttl, b.now()) {
		return &Session{}, nil
	}
	return &s, nil
}

func (b *BoltStore) Save(_ context.Context, chatID int64, s *Session) error {
	stored := s.Clone()
	stored.UpdatedAt = b.now()
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put(boltKey(chatID), payload)
	})
}

func (b *BoltStore) Clear(_ context.Context, chatID int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete(boltKey(chatID))
	})
}

func (b *BoltStore) Close() error { return b.db.Close() }
