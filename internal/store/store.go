// Package store holds the client-side copies of server data. Each store
// serializes its own fetches with a sequence number so that only the most
// recently started fetch may publish its result.
package store

import (
	"context"
	"sync"

	"granaflow/internal/api"
)

// Authenticator yields an API client for the current session.
type Authenticator interface {
	Authenticate(ctx context.Context) (*api.Client, error)
}

// subscribers is a small listener registry shared by the stores.
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[T]) publish(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
