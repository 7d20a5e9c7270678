package domain

import (
	"context"

	"github.com/smallbiznis/clanbot/pkg/db"
)

type Repository interface {
	Insert(ctx context.Context, exec db.Executor, externalRef, displayName string) (*Server, error)
	FindByExternalRef(ctx context.Context, exec db.Executor, externalRef string) (*Server, error)
}
