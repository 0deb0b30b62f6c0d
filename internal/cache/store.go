package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Default capacity and retention bounds.
const (
	DefaultMaxEntries = 50
	DefaultRetention  = 168 * time.Hour
)

const indexFile = "index.json"

// Entry describes one cached artifact.
type Entry struct {
	Key          string     `json:"key"`
	Path         string     `json:"path"`
	CreatedAt    time.Time  `json:"createdAt"`
	SizeBytes    int64      `json:"sizeBytes"`
	PlayCount    int64      `json:"playCount,omitempty"`
	LastPlayedAt *time.Time `json:"lastPlayedAt,omitempty"`
}

// Stats reports store activity since startup.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// Key derives the content address for a (text, voice) pair. Identical pairs
// resolve to the same key across process restarts.
func Key(text, voiceID string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(voiceID))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a single-process, single-filesystem artifact cache. The index is
// the source of truth; an index entry whose backing file is missing is
// treated as a miss and dropped. Mutations are serialized, reads share a
// read lock.
type Store struct {
	dir        string
	maxEntries int
	retention  time.Duration

	mu    sync.RWMutex
	index map[string]*Entry
	stats Stats

	now func() time.Time
}

// New opens (or creates) a store rooted at dir. A pre-existing index is
// loaded; a corrupt or missing index starts empty.
func New(dir string, maxEntries int, retention time.Duration) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	s := &Store{
		dir:        dir,
		maxEntries: maxEntries,
		retention:  retention,
		index:      make(map[string]*Entry),
		now:        time.Now,
	}
	if err := s.loadIndex(); err != nil {
		// Non-fatal: orphaned files are unreferenced and harmless.
		s.index = make(map[string]*Entry)
	}
	return s, nil
}

// Lookup returns the entry for key if it exists, its backing file is
// present, and it is within the retention window. A missing backing file
// removes the stale index entry as a side effect.
func (s *Store) Lookup(key string) (Entry, bool) {
	s.mu.RLock()
	entry, ok := s.index[key]
	if !ok {
		s.mu.RUnlock()
		s.miss()
		return Entry{}, false
	}
	if s.now().Sub(entry.CreatedAt) > s.retention {
		s.mu.RUnlock()
		s.miss()
		return Entry{}, false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		s.mu.RUnlock()
		s.dropStale(key)
		s.miss()
		return Entry{}, false
	}
	e := *entry
	s.mu.RUnlock()

	s.mu.Lock()
	s.stats.Hits++
	s.mu.Unlock()
	return e, true
}

// Store writes the artifact to disk, commits the index entry, then enforces
// the eviction invariants. The file write strictly precedes the index
// commit so a crash never leaves the index referencing a partial file.
func (s *Store) Store(key string, data []byte) (Entry, error) {
	path := filepath.Join(s.dir, key+".mp3")
	if err := writeAtomic(path, data); err != nil {
		return Entry{}, fmt.Errorf("write artifact: %w", err)
	}

	s.mu.Lock()
	entry := &Entry{
		Key:       key,
		Path:      path,
		CreatedAt: s.now(),
		SizeBytes: int64(len(data)),
	}
	s.index[key] = entry
	if err := s.saveIndex(); err != nil {
		delete(s.index, key)
		s.mu.Unlock()
		return Entry{}, fmt.Errorf("persist index: %w", err)
	}
	e := *entry
	s.mu.Unlock()

	if err := s.Evict(); err != nil {
		return e, err
	}
	return e, nil
}

// Evict removes entries older than the retention window, then the oldest
// entries by creation time until the count invariant holds. Files are
// deleted before the index is rewritten; a crash mid-delete self-heals via
// the missing-file rule in Lookup. Idempotent.
func (s *Store) Evict() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-s.retention)
	for key, entry := range s.index {
		if entry.CreatedAt.Before(cutoff) {
			s.removeLocked(key)
			removed++
		}
	}

	if len(s.index) > s.maxEntries {
		entries := make([]*Entry, 0, len(s.index))
		for _, e := range s.index {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		})
		for _, e := range entries[:len(s.index)-s.maxEntries] {
			s.removeLocked(e.Key)
			removed++
		}
	}

	if removed == 0 {
		return nil
	}
	if err := s.saveIndex(); err != nil {
		return fmt.Errorf("persist index after eviction: %w", err)
	}
	return nil
}

// Clear removes every entry and its backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.index {
		s.removeLocked(key)
	}
	if err := s.saveIndex(); err != nil {
		return fmt.Errorf("persist index after clear: %w", err)
	}
	return nil
}

// RecordPlayback bumps playback bookkeeping for key. Best effort: a missing
// entry or a failed index write is not an error the caller can act on.
func (s *Store) RecordPlayback(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		return
	}
	entry.PlayCount++
	now := s.now()
	entry.LastPlayedAt = &now
	_ = s.saveIndex()
}

// Entries returns a snapshot of the index ordered by creation time,
// newest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}

// Stats returns store activity counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.stats
	st.Entries = len(s.index)
	return st
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// removeLocked deletes an entry's file and index record. Caller holds the
// write lock; the caller is responsible for persisting the index.
func (s *Store) removeLocked(key string) {
	entry, ok := s.index[key]
	if !ok {
		return
	}
	os.Remove(entry.Path)
	delete(s.index, key)
	s.stats.Evictions++
}

// dropStale removes an index entry whose backing file disappeared.
func (s *Store) dropStale(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		return
	}
	if _, err := os.Stat(entry.Path); err == nil {
		return
	}
	delete(s.index, key)
	_ = s.saveIndex()
}

func (s *Store) miss() {
	s.mu.Lock()
	s.stats.Misses++
	s.mu.Unlock()
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.index)
}

// saveIndex rewrites the index file. Caller holds the write lock.
func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, indexFile), data)
}

// writeAtomic writes to a temp file and renames it into place so readers
// never observe a partial write.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
