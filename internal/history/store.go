// Package history keeps a bounded, newest-first record of generated results
// persisted as one JSON array in the local key/value store.
package history

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"affiliate-studio/internal/localstore"
)

const (
	DefaultKey      = "studio_history"
	DefaultCapacity = 50
)

type Item struct {
	ID       string `json:"id" yaml:"id" parquet:"id"`
	URL      string `json:"url" yaml:"url" parquet:"url"`
	Angle    string `json:"angle" yaml:"angle" parquet:"angle"`
	Mode     string `json:"mode" yaml:"mode" parquet:"mode"`
	Category string `json:"category" yaml:"category" parquet:"category"`
	// Timestamp is epoch milliseconds.
	Timestamp int64 `json:"timestamp" yaml:"timestamp" parquet:"timestamp"`
}

func (i Item) Time() time.Time { return time.UnixMilli(i.Timestamp) }

// Backend is the persistence the store writes through to.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type Options struct {
	Key      string
	Capacity int
	Logger   *slog.Logger
	Now      func() time.Time
}

type Store struct {
	backend  Backend
	key      string
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	items     []Item
	persisted bool
}

// Open loads the persisted list. A missing or unreadable record starts an
// empty history rather than failing. A nil backend keeps history in memory.
func Open(backend Backend, opts Options) *Store {
	s := &Store{
		backend:   backend,
		key:       strings.TrimSpace(opts.Key),
		capacity:  opts.Capacity,
		logger:    opts.Logger,
		now:       opts.Now,
		persisted: backend != nil,
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.capacity <= 0 {
		s.capacity = DefaultCapacity
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}

	if backend == nil {
		return s
	}

	raw, err := backend.Get(s.key)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
	case err != nil:
		s.logger.Warn("history load failed", "key", s.key, "error", err)
	default:
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil {
			s.logger.Warn("history record is corrupt, starting empty", "key", s.key, "error", err)
		} else {
			if len(items) > s.capacity {
				items = items[:s.capacity]
			}
			s.items = items
		}
	}
	return s
}

// NewItem stamps an id and the current time on a result.
func (s *Store) NewItem(url, angle, mode, category string) Item {
	return Item{
		ID:        uuid.NewString(),
		URL:       url,
		Angle:     angle,
		Mode:      mode,
		Category:  category,
		Timestamp: s.now().UnixMilli(),
	}
}

// Append puts items in front of the list in the order given and evicts the
// oldest entries past capacity.
func (s *Store) Append(items ...Item) []Item {
	if len(items) == 0 {
		return s.List()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A batch larger than the whole history keeps its latest entries.
	if extra := len(items) - s.capacity; extra > 0 {
		s.logger.Debug("history evicted oldest items", "count", extra)
		items = items[extra:]
	}

	next := make([]Item, 0, len(items)+len(s.items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Timestamp == 0 {
			it.Timestamp = s.now().UnixMilli()
		}
		next = append(next, it)
	}
	next = append(next, s.items...)

	if evicted := len(next) - s.capacity; evicted > 0 {
		s.logger.Debug("history evicted oldest items", "count", evicted)
		next = next[:s.capacity]
	}
	s.items = next
	s.persistLocked()
	return cloneItems(s.items)
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID != id {
			continue
		}
		next := make([]Item, 0, len(s.items)-1)
		next = append(next, s.items[:i]...)
		next = append(next, s.items[i+1:]...)
		s.items = next
		s.persistLocked()
		return true
	}
	return false
}

// Clear empties the list and removes the persisted record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if s.backend == nil {
		return
	}
	if err := s.backend.Delete(s.key); err != nil {
		s.logger.Warn("history clear failed", "key", s.key, "error", err)
		s.persisted = false
		return
	}
	s.persisted = true
}

func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Capacity() int { return s.capacity }

// Persisted is false once a write failed; the in-memory list stays
// authoritative for the rest of the session.
func (s *Store) Persisted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persisted
}

// persistLocked writes the list through. Over quota it keeps the longest
// newest-first prefix that fits, or removes the record, so storage never
// holds an item the in-memory list has dropped.
func (s *Store) persistLocked() {
	if s.backend == nil {
		return
	}

	floor := 0
	if len(s.items) > 0 {
		floor = 1
	}
	for n := len(s.items); n >= floor; n-- {
		raw, err := json.Marshal(nonNil(s.items[:n]))
		if err != nil {
			s.logger.Error("history encode failed", "error", err)
			s.persisted = false
			return
		}
		err = s.backend.Set(s.key, raw)
		if err == nil {
			s.persisted = n == len(s.items)
			if !s.persisted {
				s.logger.Warn("history partially persisted: storage quota exceeded", "items", len(s.items), "stored", n)
			}
			return
		}
		if !errors.Is(err, localstore.ErrQuotaExceeded) {
			s.logger.Error("history persist failed", "error", err)
			s.dropRecordLocked()
			return
		}
	}

	s.logger.Warn("history not persisted: storage quota exceeded", "items", len(s.items))
	s.dropRecordLocked()
}

func (s *Store) dropRecordLocked() {
	s.persisted = false
	if err := s.backend.Delete(s.key); err != nil {
		s.logger.Error("history record removal failed", "key", s.key, "error", err)
	}
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

func cloneItems(in []Item) []Item {
	if len(in) == 0 {
		return []Item{}
	}
	return append([]Item(nil), in...)
}
