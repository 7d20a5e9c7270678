package domain

import (
	"context"
	"errors"
)

type Service interface {
	// GetOrCreate returns the server for externalRef, creating it on first use.
	GetOrCreate(ctx context.Context, externalRef, displayName string) (Server, error)
	// GetByExternalRef returns ErrNotFound for servers never seen before.
	GetByExternalRef(ctx context.Context, externalRef string) (Server, error)
}

var (
	ErrInvalidExternalRef = errors.New("invalid_external_ref")
	ErrNotFound           = errors.New("not_found")
)
