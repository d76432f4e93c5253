// Package delivery holds finished conversion results until the requester
// downloads and releases them.
package delivery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults used when the Store is built with zero values.
const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 64
)

var (
	// ErrNotFound is returned for unknown, released or expired handles.
	ErrNotFound = errors.New("download not found or expired")
	// ErrFull is returned by Put when the store holds Capacity results.
	ErrFull = errors.New("too many pending downloads — release or download earlier results first")
)

// Item is a stored result.
type Item struct {
	ID       string
	Filename string
	MIMEType string
	Data     []byte
	Created  time.Time
}

// Store is an in-memory, mutex-guarded set of results keyed by a random
// UUID handle. Every result must be released explicitly or swept after its TTL.
type Store struct {
	TTL      time.Duration
	Capacity int

	mu    sync.Mutex
	items map[string]*Item
	now   func() time.Time
}

// NewStore returns a Store; zero arguments select the defaults.
func NewStore(ttl time.Duration, capacity int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		TTL:      ttl,
		Capacity: capacity,
		items:    make(map[string]*Item),
		now:      time.Now,
	}
}

// Put stores a result and returns its handle. Expired items are swept
// first so they do not count against the capacity.
func (s *Store) Put(filename, mimeType string, data []byte) (*Item, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("could not generate download handle: %w", err)
	}
	id := u.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.items) >= s.Capacity {
		return nil, ErrFull
	}
	it := &Item{ID: id, Filename: filename, MIMEType: mimeType, Data: data, Created: s.now()}
	s.items[id] = it
	return it, nil
}

// Get returns the item for id unless it was released or has expired.
func (s *Store) Get(id string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(it) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	return it, nil
}

// Release revokes a handle. Releasing an unknown handle is an error so
// callers notice double releases.
func (s *Store) Release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Sweep removes expired items and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Len returns the number of held items, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) sweepLocked() int {
	n := 0
	for id, it := range s.items {
		if s.expired(it) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

func (s *Store) expired(it *Item) bool {
	return s.now().Sub(it.Created) > s.TTL
}
