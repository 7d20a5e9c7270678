package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Resolve returns the member id for ref, creating the member on first sight.
	// Unknown upstream references fail with ErrUnresolvable.
	Resolve(ctx context.Context, serverRef, ref, displayNameHint string) (Member, error)
	// GetByExternalRef returns ErrNotFound for references never resolved before.
	GetByExternalRef(ctx context.Context, ref string) (Member, error)
	// GetByIDs returns the members for ids in the order given, skipping unknown ids.
	GetByIDs(ctx context.Context, ids []snowflake.ID) ([]Member, error)
}

// Directory validates external references against the chat platform.
type Directory interface {
	// Lookup returns the platform display name for ref, or ErrUnresolvable.
	Lookup(ctx context.Context, serverRef, ref string) (string, error)
}

var (
	ErrInvalidRef   = errors.New("invalid_member_ref")
	ErrUnresolvable = errors.New("member_unresolvable")
	ErrNotFound     = errors.New("not_found")
)
