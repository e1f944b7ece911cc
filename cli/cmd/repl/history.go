package repl

import (
	"encoding/binary"
	"slices"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// BaseHistory is the file name of the history database in the cache
// directory.
const BaseHistory = "history.db"

// DefaultHistoryLimit is the number of entries kept when no limit is given.
const DefaultHistoryLimit = 1000

//nolint:gochecknoglobals
var historyBucket = []byte("history")

// HistoryEntry represents a single history entry with its mode.
type HistoryEntry struct {
	Line string
	Mode inputMode

	seq uint64
}

// History is the REPL input history. Entries persist in a bbolt database;
// a History opened without one keeps entries in memory only.
type History struct {
	db      *bbolt.DB
	limit   int
	entries []HistoryEntry
	mu      sync.RWMutex
}

// NewHistory returns an in-memory History.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &History{limit: limit}
}

// OpenHistory opens or creates the history database at path and loads its
// entries, oldest first. Another cs process holding the database makes
// OpenHistory fail after a short timeout.
func OpenHistory(path string, limit int) (*History, error) {
	h := NewHistory(limit)

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(historyBucket)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			if len(k) != 8 || len(v) == 0 {
				return nil
			}

			h.entries = append(h.entries, HistoryEntry{
				Line: string(v[1:]),
				Mode: inputMode(v[0]),
				seq:  binary.BigEndian.Uint64(k),
			})

			return nil
		})
	})
	if err != nil {
		db.Close()

		return nil, err
	}

	h.db = db

	return h, nil
}

// Close releases the database.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}

	err := h.db.Close()
	h.db = nil

	return err
}

// Write appends entry in mode. An existing identical entry moves to the
// end, and the oldest entries are dropped beyond the limit.
func (h *History) Write(entry string, mode inputMode) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1].Line == entry && h.entries[n-1].Mode == mode {
		return nil
	}

	var drop []HistoryEntry

	h.entries = slices.DeleteFunc(h.entries, func(e HistoryEntry) bool {
		if e.Line == entry && e.Mode == mode {
			drop = append(drop, e)

			return true
		}

		return false
	})

	next := HistoryEntry{Line: entry, Mode: mode}
	if n := len(h.entries); n > 0 {
		next.seq = h.entries[n-1].seq + 1
	}

	h.entries = append(h.entries, next)

	if over := len(h.entries) - h.limit; over > 0 {
		drop = append(drop, h.entries[:over]...)
		h.entries = slices.Delete(h.entries, 0, over)
	}

	if h.db == nil {
		return nil
	}

	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(historyBucket)

		for _, e := range drop {
			if err := b.Delete(seqKey(e.seq)); err != nil {
				return err
			}
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		h.entries[len(h.entries)-1].seq = seq

		return b.Put(seqKey(seq), append([]byte{byte(mode)}, entry...))
	})
}

// GetEntry retrieves a historic entry by index. Index 0 is the oldest
// entry.
func (h *History) GetEntry(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns all history entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.entries)
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
