package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrTimeout is returned when the keys could not all be held before the wait deadline.
var ErrTimeout = errors.New("lock_timeout")

// Release gives back every key held by one Acquire. Calling it more than once is a no-op.
type Release func()

// Locker grants exclusive ownership of a set of keys.
type Locker interface {
	// Acquire blocks until every key is held or ctx ends. Keys are taken in sorted
	// order so two callers with overlapping sets cannot deadlock.
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
