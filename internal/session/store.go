// Package session keeps the uploaded dataset of each client in memory.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datahub-cli/internal/dataset"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Session owns the current table of one client. The table is immutable and is
// swapped wholesale on re-upload.
type Session struct {
	ID         string         `json:"id"`
	FileName   string         `json:"file_name"`
	Table      *dataset.Table `json:"-"`
	LoadedAt   time.Time      `json:"loaded_at"`
	LastAccess time.Time      `json:"last_access"`
}

// Store is a concurrency-safe in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore returns a store whose sessions expire after ttl of inactivity.
// ttl <= 0 disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: map[string]*Session{}, ttl: ttl, now: time.Now}
}

// Create registers a new session for table.
func (s *Store) Create(name string, t *dataset.Table) *Session {
	now := s.now()
	sess := &Session{ID: uuid.NewString(), FileName: name, Table: t, LoadedAt: now, LastAccess: now}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess.snapshot()
}

// Get returns a copy of the session and marks it as accessed.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.LastAccess = s.now()
	return sess.snapshot(), nil
}

// Replace swaps the table of an existing session.
func (s *Store) Replace(id, name string, t *dataset.Table) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	sess.FileName, sess.Table, sess.LoadedAt, sess.LastAccess = name, t, now, now
	return sess.snapshot(), nil
}

// Delete ends a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle since before now-ttl and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, log *slog.Logger) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 && log != nil {
				log.Debug("expired idle sessions", "count", n, "live", s.Len())
			}
		}
	}
}

func (s *Session) snapshot() *Session {
	c := *s
	return &c
}
