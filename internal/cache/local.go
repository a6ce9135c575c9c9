package cache

import (
	"context"
	"sync"
	"time"
)

// LocalLocker serializes work per key inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type LocalMarker struct {
	mu     sync.Mutex
	marked map[string]time.Time
}

func NewLocalMarker() *LocalMarker {
	return &LocalMarker{marked: make(map[string]time.Time)}
}

func (m *LocalMarker) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if exp, ok := m.marked[key]; ok && (ttl == 0 || now.Before(exp)) {
		return false, nil
	}
	m.marked[key] = now.Add(ttl)
	return true, nil
}
