package mirror

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/crm-analytics/domain"
)

// Store wraps BoltDB to keep a copy of each customer's last complete history.
// It is read when the primary history store cannot serve a request.
type Store struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "history"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
		now:    time.Now,
	}, nil
}

// Save replaces the mirrored history of one customer.
func (s *Store) Save(_ context.Context, tenantID, customerID string, history domain.CustomerHistory) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if tenantID == "" || customerID == "" {
		return domain.ErrInvalidPayload
	}
	entry := Entry{TenantID: tenantID, CustomerID: customerID, History: history}
	entry.normalize(s.now().UTC())

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(buildKey(tenantID, customerID), payload)
	})
}

// Load returns the mirrored history of one customer and when it was captured.
func (s *Store) Load(_ context.Context, tenantID, customerID string) (domain.CustomerHistory, time.Time, error) {
	if s == nil || s.db == nil {
		return domain.CustomerHistory{}, time.Time{}, bolt.ErrDatabaseNotOpen
	}

	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(buildKey(tenantID, customerID))
		if v == nil {
			return domain.ErrMirrorEntryNotFound
		}
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return domain.CustomerHistory{}, time.Time{}, err
	}
	return entry.History, entry.MirroredAt, nil
}

// Size returns the number of mirrored customers.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes entries mirrored before olderThan and reports how many were dropped.
// Entries that no longer decode are dropped as well.
func (s *Store) Cleanup(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil || entry.MirroredAt.Before(olderThan) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}
