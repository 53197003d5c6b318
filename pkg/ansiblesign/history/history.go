// Package history keeps a local journal of sign and verify runs in a Badger
// database so past results can be listed and inspected.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key prefixes.
const (
	prefixEntry = "h:" // h:<unix nanos, big endian><id> -> Entry JSON
	prefixID    = "i:" // i:<id> -> entry key
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("history entry not found")

// Operation names the kind of run an entry records.
type Operation string

const (
	OpSign     Operation = "sign"
	OpVerify   Operation = "verify"
	OpChecksum Operation = "checksum"
	OpGenerate Operation = "generate"
)

// Entry is one journaled run.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Operation Operation `json:"operation" yaml:"operation"`
	Root      string    `json:"root" yaml:"root"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Files     int       `json:"files" yaml:"files"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`

	// Outcome is "success" or a failure kind such as "checksum_mismatch".
	Outcome string `json:"outcome" yaml:"outcome"`

	// Detail is a one-line human description.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Succeeded reports whether the run passed.
func (e *Entry) Succeeded() bool {
	return e.Outcome == "success"
}

// DefaultPath returns the journal directory under the XDG data home.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "ansible-sign", "history")
}

// Journal is the Badger-backed history store.
type Journal struct {
	db *badger.DB
	mu sync.Mutex
}

// Open opens or creates a journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("history path cannot be empty")
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history at %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// OpenInMemory opens a journal that lives only as long as the process.
func OpenInMemory() (*Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e, filling in ID and Timestamp when they are empty, and
// returns the stored entry.
func (j *Journal) Record(e Entry) (*Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling history entry: %w", err)
	}
	key := entryKey(e.Timestamp, e.ID)

	j.mu.Lock()
	defer j.mu.Unlock()

	err = j.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixID+e.ID), key)
	})
	if err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}
	return &e, nil
}

// List returns entries newest first. A limit of 0 or less returns all.
func (j *Journal) List(limit int) ([]Entry, error) {
	entries := []Entry{}

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks from just past the prefix.
		seek := append([]byte(prefixEntry), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				// Skip entries that can't be parsed
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get retrieves an entry by ID.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	var e Entry
	err := j.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get([]byte(prefixID + id))
		if err != nil {
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Cleanup removes entries older than retentionDays and returns how many were
// removed. A retention of 0 or less removes everything.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if retentionDays <= 0 {
		cutoff = time.Now().Add(time.Hour)
	}
	limit := entryKey(cutoff, "")

	j.mu.Lock()
	defer j.mu.Unlock()

	var stale [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(limit) {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
		id := key[len(prefixEntry)+8:]
		if err := wb.Delete(append([]byte(prefixID), id...)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// entryKey orders entries by time. Pre-epoch timestamps clamp to zero.
func entryKey(ts time.Time, id string) []byte {
	nanos := ts.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	key := make([]byte, 0, len(prefixEntry)+8+len(id))
	key = append(key, prefixEntry...)
	key = binary.BigEndian.AppendUint64(key, uint64(nanos))
	return append(key, id...)
}
