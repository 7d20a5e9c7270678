package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/pkg/db"
)

type Repository interface {
	Insert(ctx context.Context, exec db.Executor, externalRef, displayName string) (*Member, error)
	FindByExternalRef(ctx context.Context, exec db.Executor, externalRef string) (*Member, error)
	FindByIDs(ctx context.Context, exec db.Executor, ids []snowflake.ID) ([]Member, error)
	UpdateDisplayName(ctx context.Context, exec db.Executor, id snowflake.ID, displayName string) error
}
