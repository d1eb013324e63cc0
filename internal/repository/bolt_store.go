package repository

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"lipa/internal/models"
)

var (
	intentsBucket      = []byte("intents")
	checkoutIDBucket   = []byte("intents_by_checkout_request_id")
	idempotencyBucket  = []byte("intents_by_idempotency_key")
	boltIntentsBuckets = [][]byte{intentsBucket, checkoutIDBucket, idempotencyBucket}
)

// BoltIntentStore persists intents as JSON values in a single bolt file.
// Intents with a NaN amount cannot be encoded and are rejected by Put.
type BoltIntentStore struct {
	db *bolt.DB
}

// NewBoltIntentStore opens (or creates) the database at path and makes sure
// every bucket exists.
func NewBoltIntentStore(path string) (*BoltIntentStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltIntentsBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltIntentStore{db: db}, nil
}

func (s *BoltIntentStore) Close() error {
	return s.db.Close()
}

func (s *BoltIntentStore) Put(intent *models.PaymentIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent %s: %w", intent.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(intentsBucket).Put([]byte(intent.ID), data)
	})
}

func (s *BoltIntentStore) GetByID(id string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(intentsBucket).Get([]byte(id))
		if v == nil {
			return ErrIntentNotFound
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BoltIntentStore) IndexByCheckoutRequestID(checkoutRequestID, id string) error {
	return s.index(checkoutIDBucket, checkoutRequestID, id)
}

func (s *BoltIntentStore) IndexByIdempotencyKey(key, id string) error {
	return s.index(idempotencyBucket, key, id)
}

func (s *BoltIntentStore) ResolveCheckoutRequestID(checkoutRequestID string) (string, error) {
	return s.resolve(checkoutIDBucket, checkoutRequestID)
}

func (s *BoltIntentStore) ResolveIdempotencyKey(key string) (string, error) {
	return s.resolve(idempotencyBucket, key)
}

func (s *BoltIntentStore) index(bucket []byte, key, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), []byte(id))
	})
}

func (s *BoltIntentStore) resolve(bucket []byte, key string) (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return ErrIntentNotFound
		}
		// bolt values are only valid inside the transaction
		id = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
