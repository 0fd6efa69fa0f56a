// Package cache maps normalized video identities to their extraction state
// and guarantees at-most-one concurrent extraction per identity.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/clipquery/clipquery/internal/storage"
	"github.com/clipquery/clipquery/internal/video"
)

// State is the lifecycle state of a cache entry.
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Record is the committed result of processing one video. Immutable after
// commit.
type Record struct {
	ID       video.ID
	Title    string
	Method   string
	Segments []video.Segment
	Chapters []video.Chapter
}

// Duration returns the end time of the last transcript segment.
func (r *Record) Duration() float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	return r.Segments[len(r.Segments)-1].End
}

// StateError reports a read of an entry that is not READY.
type StateError struct {
	ID    video.ID
	State State
}

func (e *StateError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("video %s is not cached", e.ID)
	}
	return fmt.Sprintf("video %s is in state %s", e.ID, e.State)
}

type entry struct {
	state  State
	record *Record
	err    error
}

// Stats is a read-only snapshot of the cache contents.
type Stats struct {
	Total   int `json:"total"`
	Ready   int `json:"ready"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// Cache is the keyed store for extraction records. Unbounded; entries stay
// until cleared. When a storage backend is supplied, READY records survive
// restarts.
type Cache struct {
	mu      sync.RWMutex
	entries map[video.ID]*entry
	group   singleflight.Group
	store   *storage.Store
}

// New creates a cache. store may be nil to disable persistence; otherwise
// previously stored records are loaded as READY entries.
func New(store *storage.Store) (*Cache, error) {
	c := &Cache{
		entries: make(map[video.ID]*entry),
		store:   store,
	}
	if store != nil {
		if err := c.load(); err != nil {
			return nil, fmt.Errorf("loading cached records: %w", err)
		}
	}
	return c, nil
}

func (c *Cache) load() error {
	recs, err := c.store.ListVideos()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		segs, err := c.store.GetSegments(rec.ID)
		if err != nil {
			return fmt.Errorf("segments for %s: %w", rec.ID, err)
		}
		chs, err := c.store.GetChapters(rec.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("chapters for %s: %w", rec.ID, err)
		}
		c.entries[video.ID(rec.ID)] = &entry{
			state: StateReady,
			record: &Record{
				ID:       video.ID(rec.ID),
				Title:    rec.Title,
				Method:   rec.Method,
				Segments: segs,
				Chapters: chs,
			},
		}
	}
	if len(recs) > 0 {
		slog.Info("cache restored from storage", "videos", len(recs))
	}
	return nil
}

// GetOrCreate returns the READY record for id, running build at most once
// across concurrent callers when the record is absent. A FAILED entry is
// retried on the next call; concurrent callers during the retry still share
// one execution.
func (c *Cache) GetOrCreate(ctx context.Context, id video.ID, build func(ctx context.Context) (*Record, error)) (*Record, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	if ok && e.state == StateReady {
		c.mu.RUnlock()
		return e.record, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(string(id), func() (any, error) {
		// A caller that queued behind a completed flight re-checks before
		// doing any work.
		c.mu.RLock()
		if e, ok := c.entries[id]; ok && e.state == StateReady {
			c.mu.RUnlock()
			return e.record, nil
		}
		c.mu.RUnlock()

		c.setState(id, &entry{state: StatePending})

		rec, err := build(ctx)
		if err != nil {
			c.setState(id, &entry{state: StateFailed, err: err})
			return nil, err
		}

		c.setState(id, &entry{state: StateReady, record: rec})
		c.persist(rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

func (c *Cache) setState(id video.ID, e *entry) {
	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()
}

func (c *Cache) persist(rec *Record) {
	if c.store == nil {
		return
	}
	err := c.store.SaveVideo(storage.VideoRecord{
		ID:       string(rec.ID),
		Title:    rec.Title,
		Duration: rec.Duration(),
		Method:   rec.Method,
	}, rec.Segments)
	if err == nil && len(rec.Chapters) > 0 {
		err = c.store.SaveChapters(string(rec.ID), rec.Chapters)
	}
	if err != nil {
		// Persistence is best-effort; the in-memory entry stays authoritative.
		slog.Warn("failed to persist video record", "video", string(rec.ID), "error", err)
	}
}

// Get returns the READY record for id without triggering extraction. The
// error is a *StateError when the entry is missing, pending, or failed.
func (c *Cache) Get(id video.ID) (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, &StateError{ID: id}
	}
	if e.state != StateReady {
		return nil, &StateError{ID: id, State: e.state}
	}
	return e.record, nil
}

// Stats returns the entry count broken down by state.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		switch e.state {
		case StateReady:
			s.Ready++
		case StatePending:
			s.Pending++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}

// Clear removes every entry and wipes persisted records.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[video.ID]*entry)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteAllVideos(); err != nil {
			return fmt.Errorf("clearing stored records: %w", err)
		}
	}
	return nil
}
