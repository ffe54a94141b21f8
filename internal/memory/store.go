// Package memory keeps the assistant's long-term facts about the user.
//
// Records live in an in-process cache and are persisted as a single JSON
// blob under MemoryKey in a key/value collaborator. The cache is ordered by
// importance, highest first, and never holds more than MaxRecords entries.
package memory

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"jarvis/pkg"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	// MemoryKey is the key/value entry holding the serialized records
	MemoryKey = "jarvis_ltm"
	// MaxRecords bounds the cache after every consolidation
	MaxRecords = 50
)

// KVEntry is one key/value pair from the backing store
type KVEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KVStore is the persistence collaborator for the memory blob
type KVStore interface {
	List(ctx context.Context) ([]KVEntry, error)
	Upsert(ctx context.Context, key, value string) error
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for record ids and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEntropy overrides the randomness used for record ids
func WithEntropy(r io.Reader) Option {
	return func(s *Store) { s.entropy = r }
}

// WithLogger sets the logger for load and persist failures
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store is the bounded, importance-ranked long-term memory
type Store struct {
	kv      KVStore
	log     zerolog.Logger
	now     func() time.Time
	entropy io.Reader

	mu      sync.Mutex
	records []pkg.MemoryRecord
	loaded  bool
	// unsaved marks records appended before a successful load
	unsaved bool

	// persistMu serializes writes so the newest snapshot lands last
	persistMu sync.Mutex
	pending   sync.WaitGroup
}

// NewStore creates a memory store backed by kv
func NewStore(kv KVStore, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.entropy == nil {
		s.entropy = ulid.Monotonic(rand.New(rand.NewSource(s.now().UnixNano())), 0)
	}
	return s
}

// LoadAll returns the cached records, reading them from the backing store on
// first use. Read and decode failures are logged and yield the current cache.
func (s *Store) LoadAll(ctx context.Context) []pkg.MemoryRecord {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		s.load(ctx)
	}
	return s.Records()
}

// Records returns a copy of the cache without touching the backing store
func (s *Store) Records() []pkg.MemoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pkg.MemoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of cached records
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) load(ctx context.Context) {
	entries, err := s.kv.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load long-term memory")
		return
	}

	var records []pkg.MemoryRecord
	for _, entry := range entries {
		if entry.Key != MemoryKey || entry.Value == "" {
			continue
		}
		// an undecodable blob is replaced by the next write
		if err := sonic.UnmarshalString(entry.Value, &records); err != nil {
			s.log.Error().Err(err).Msg("Failed to decode long-term memory")
			records = nil
		}
		break
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	// records appended before the first load are kept alongside stored ones
	s.records = consolidate(append(records, s.records...))
	s.loaded = true
	s.log.Debug().Int("records", len(s.records)).Msg("Long-term memory loaded")

	if s.unsaved {
		s.unsaved = false
		s.schedulePersist(ctx)
	}
}

// Append consolidates a new fact into memory and returns it. The cache is
// updated before Append returns; persistence happens in the background and
// failures are only logged. Call Flush to wait for it.
//
// While the backing store cannot be read, nothing is written: the record
// stays in the cache and is merged and saved on the next successful load.
func (s *Store) Append(ctx context.Context, content string, importance int) pkg.MemoryRecord {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		s.load(ctx)
	}

	s.mu.Lock()
	now := s.now()
	record := pkg.MemoryRecord{
		ID:         ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Content:    content,
		Importance: importance,
		Timestamp:  now.UnixMilli(),
	}
	s.records = consolidate(append(s.records, record))
	if !s.loaded {
		s.unsaved = true
		s.mu.Unlock()
		s.log.Warn().Msg("Long-term memory not loaded, deferring save")
		return record
	}
	s.mu.Unlock()

	s.schedulePersist(ctx)
	return record
}

func (s *Store) schedulePersist(ctx context.Context) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.persist(context.WithoutCancel(ctx))
	}()
}

// persist writes the newest cache snapshot to the backing store
func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	blob, err := sonic.MarshalString(s.Records())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode long-term memory")
		return
	}
	if err := s.kv.Upsert(ctx, MemoryKey, blob); err != nil {
		s.log.Error().Err(err).Msg("Failed to save long-term memory")
		return
	}
	s.log.Debug().Int("bytes", len(blob)).Msg("Long-term memory saved")
}

// Flush blocks until every pending persist has finished
func (s *Store) Flush() {
	s.pending.Wait()
}

// AsText renders the records as "- content" lines, empty when there are none
func (s *Store) AsText() string {
	records := s.Records()
	if len(records) == 0 {
		return ""
	}
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("- %s", r.Content)
	}
	return strings.Join(lines, "\n")
}

// consolidate orders records by importance, keeping insertion order among
// equals, and drops everything past MaxRecords
func consolidate(records []pkg.MemoryRecord) []pkg.MemoryRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Importance > records[j].Importance
	})
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	return records
}
