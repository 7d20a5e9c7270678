// Package directory validates member references against what the chat layer
// reported for the current invocation.
package directory

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/member/domain"
)

type hintsKey struct{}

// WithHints attaches the references the chat layer resolved upstream, keyed by
// reference with their display names.
func WithHints(ctx context.Context, hints map[string]string) context.Context {
	normalized := make(map[string]string, len(hints))
	for ref, name := range hints {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		normalized[ref] = strings.TrimSpace(name)
	}
	return context.WithValue(ctx, hintsKey{}, normalized)
}

func hintsFromContext(ctx context.Context) (map[string]string, bool) {
	hints, ok := ctx.Value(hintsKey{}).(map[string]string)
	return hints, ok
}

// Hinted accepts snowflake-shaped references. When the invocation carries hints,
// only hinted references resolve.
type Hinted struct{}

func NewHinted() domain.Directory {
	return Hinted{}
}

func (Hinted) Lookup(ctx context.Context, _ string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if id, err := snowflake.ParseString(ref); err != nil || id <= 0 {
		return "", domain.ErrUnresolvable
	}

	hints, ok := hintsFromContext(ctx)
	if !ok {
		return "", nil
	}
	name, found := hints[ref]
	if !found {
		return "", domain.ErrUnresolvable
	}
	return name, nil
}
