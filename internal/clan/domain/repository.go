package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/pkg/db"
)

type Repository interface {
	FindByID(ctx context.Context, exec db.Executor, id snowflake.ID) (*Clan, error)
	FindActiveByMember(ctx context.Context, exec db.Executor, serverID, memberID snowflake.ID) (*Clan, error)
	FindByNameOrTag(ctx context.Context, exec db.Executor, serverID snowflake.ID, name, tag string) (*Clan, error)
	ListActive(ctx context.Context, exec db.Executor, serverID snowflake.ID, afterID snowflake.ID, limit int) ([]Clan, error)

	Insert(ctx context.Context, exec db.Executor, clan *Clan) error
	// UpdateMembership writes members, history, and timestamp when the stored version
	// still equals expectedVersion. It reports false when another writer got there first.
	UpdateMembership(ctx context.Context, exec db.Executor, clan *Clan, expectedVersion int64) (bool, error)
	InsertMemberships(ctx context.Context, exec db.Executor, serverID, clanID snowflake.ID, memberIDs []snowflake.ID) error
	DeleteMemberships(ctx context.Context, exec db.Executor, clanID snowflake.ID, memberIDs []snowflake.ID) error
}
