package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are reference counted and dropped
// once nobody holds or waits for them.
type Local struct {
	mu          sync.Mutex
	entries     map[string]*entry
	waitTimeout time.Duration
}

func NewLocal(waitTimeout time.Duration) *Local {
	return &Local{
		entries:     make(map[string]*entry),
		waitTimeout: waitTimeout,
	}
}

func (l *Local) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalizeKeys(keys)
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquireOne(ctx, key); err != nil {
			l.releaseAll(held)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held) })
	}, nil
}

func (l *Local) acquireOne(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(key, e)
		l.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
	}
}

func (l *Local) releaseAll(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(keys) - 1; i >= 0; i-- {
		e := l.entries[keys[i]]
		<-e.ch
		l.unref(keys[i], e)
	}
}

func (l *Local) unref(key string, e *entry) {
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
