// Package memory implements core.Store in-process, for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authhub/authhub/internal/store/core"
)

type Store struct {
	mu          sync.RWMutex
	connections map[string]*core.Connection
	requests    map[string]*core.AccessRequest
}

func New() *Store {
	return &Store{
		connections: make(map[string]*core.Connection),
		requests:    make(map[string]*core.AccessRequest),
	}
}

func (s *Store) CreateConnection(_ context.Context, c *core.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.connections[c.ID] = &cp
	return nil
}

func (s *Store) GetConnection(_ context.Context, id string) (*core.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListConnectionsExpiring(_ context.Context, before time.Time) ([]*core.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Connection
	for _, c := range s.connections {
		if c.Status == core.ConnectionActive && c.TokenExpiresAt.Before(before) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateConnectionStatus(_ context.Context, id string, status core.ConnectionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return core.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateConnectionExpiry(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return core.ErrNotFound
	}
	c.TokenExpiresAt = expiresAt
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CreateAccessRequest(_ context.Context, r *core.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *Store) GetAccessRequest(_ context.Context, id string) (*core.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateAccessRequestStatus(_ context.Context, id string, status core.AccessRequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return core.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
