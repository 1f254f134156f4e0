// Package localstore provides the durable key/value storage the console keeps
// on the device: the offline action queue and the last order snapshot.
package localstore

import (
    "context"
    "sync"
)

// Storage is a string key/value store. Get reports ok=false for a missing key.
type Storage interface {
    Get(ctx context.Context, key string) (value string, ok bool, err error)
    Set(ctx context.Context, key, value string) error
    Remove(ctx context.Context, key string) error
}

// Memory keeps values in process. Used in tests and when nothing durable is configured.
type Memory struct {
    mu sync.Mutex
    m  map[string]string
}

func NewMemory() *Memory { return &Memory{m: map[string]string{}} }

func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    v, ok := s.m[key]
    return v, ok, nil
}

func (s *Memory) Set(_ context.Context, key, value string) error {
    s.mu.Lock()
    s.m[key] = value
    s.mu.Unlock()
    return nil
}

func (s *Memory) Remove(_ context.Context, key string) error {
    s.mu.Lock()
    delete(s.m, key)
    s.mu.Unlock()
    return nil
}
