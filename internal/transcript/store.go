// Package transcript persists a record of every model invocation so a run
// can be audited after the fact. Records live in a bbolt database keyed by
// a uuid handle; the handle is the provenance id stored on moves and
// decisions.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "transcripts"

// ErrNotFound is returned when no record exists for a handle.
var ErrNotFound = fmt.Errorf("transcript not found")

// Record is one model call: the full request, whatever came back, and the
// usage metadata. Failed calls are recorded too, with Error set.
type Record struct {
	ID               string          `json:"id"`
	Model            string          `json:"model"`
	Request          json.RawMessage `json:"request"`
	Response         string          `json:"response,omitempty"`
	Error            string          `json:"error,omitempty"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	Cost             float64         `json:"cost"`
	DurationMS       int64           `json:"duration_ms"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Store is a bbolt-backed transcript database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) a transcript database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating transcript bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores rec, assigning a fresh uuid handle when rec.ID is empty,
// and returns the handle.
func (s *Store) Record(rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling transcript: %w", err)
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(rec.ID), data)
	}); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return rec.ID, nil
}

// Get fetches the record for a handle.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// All returns every record, ordered by key.
func (s *Store) All() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding transcript: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// TotalCost sums the recorded cost across every call in the store.
func (s *Store) TotalCost() (float64, error) {
	records, err := s.All()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, rec := range records {
		total += rec.Cost
	}
	return total, nil
}
