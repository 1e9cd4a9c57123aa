// Package session keeps the selection state of each form user in memory.
package session

import (
	"fmt"
	"time"

	"github.com/DIMO-Network/fipe-quoter/internal/cascade"
	"github.com/patrickmn/go-cache"
	"github.com/segmentio/ksuid"
)

// Store holds sessions until they sit idle for longer than the TTL.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// New creates a new session store.
func New(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Get returns the session with the given ID and extends its lifetime.
func (s *Store) Get(id string) (*cascade.Session, bool) {
	if _, err := ksuid.Parse(id); err != nil {
		return nil, false
	}
	v, found := s.cache.Get(Key(id))
	if !found {
		return nil, false
	}
	sess := v.(*cascade.Session)
	s.cache.Set(Key(id), sess, s.ttl)
	return sess, true
}

// Create starts a new session with a fresh ID.
func (s *Store) Create() *cascade.Session {
	sess := cascade.NewSession(ksuid.New().String())
	s.cache.Set(Key(sess.ID), sess, s.ttl)
	return sess
}

// GetOrCreate returns the session with the given ID or a new one when it is
// unknown or expired. created reports whether a new session was started.
func (s *Store) GetOrCreate(id string) (sess *cascade.Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.cache.Delete(Key(id))
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Key returns the cache key of a session ID.
func Key(id string) string {
	return fmt.Sprintf("session:%s", id)
}
