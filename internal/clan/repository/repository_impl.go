package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/clan/domain"
	"github.com/smallbiznis/clanbot/pkg/db"
)

var columns = []string{
	"id", "server_id", "leader_id", "name", "tag", "member_ids", "modifier_history",
	"active", "last_updated_at", "version", "created_at",
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, exec db.Executor, id snowflake.ID) (*domain.Clan, error) {
	return r.first(ctx, exec, "id = ?", id)
}

func (r *repo) FindActiveByMember(ctx context.Context, exec db.Executor, serverID, memberID snowflake.ID) (*domain.Clan, error) {
	return r.first(ctx, exec,
		`active = ? AND server_id = ? AND id IN (SELECT clan_id FROM clan_memberships WHERE server_id = ? AND member_id = ?)`,
		true, serverID, serverID, memberID,
	)
}

func (r *repo) FindByNameOrTag(ctx context.Context, exec db.Executor, serverID snowflake.ID, name, tag string) (*domain.Clan, error) {
	return r.first(ctx, exec, "active = ? AND server_id = ? AND (name = ? OR tag = ?)", true, serverID, name, tag)
}

func (r *repo) ListActive(ctx context.Context, exec db.Executor, serverID snowflake.ID, afterID snowflake.ID, limit int) ([]domain.Clan, error) {
	var rows []domain.Clan
	err := exec.Select(ctx, &rows, domain.Table, columns,
		"active = ? AND server_id = ? AND id > ?", []any{true, serverID, afterID},
		db.OrderBy("id", false), db.Limit(limit),
	)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Insert(ctx context.Context, exec db.Executor, clan *domain.Clan) error {
	_, err := exec.Insert(ctx, domain.Table, map[string]any{
		"id":               clan.ID.Int64(),
		"server_id":        clan.ServerID,
		"leader_id":        clan.LeaderID,
		"name":             clan.Name,
		"tag":              clan.Tag,
		"member_ids":       clan.MemberIDs,
		"modifier_history": clan.ModifierHistory,
		"active":           clan.Active,
		"last_updated_at":  clan.LastUpdatedAt,
		"version":          clan.Version,
	})
	return err
}

func (r *repo) UpdateMembership(ctx context.Context, exec db.Executor, clan *domain.Clan, expectedVersion int64) (bool, error) {
	affected, err := exec.Update(ctx, domain.Table, map[string]any{
		"member_ids":       clan.MemberIDs,
		"modifier_history": clan.ModifierHistory,
		"last_updated_at":  clan.LastUpdatedAt,
		"version":          clan.Version,
	}, "id = ? AND version = ? AND active = ?", clan.ID, expectedVersion, true)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *repo) InsertMemberships(ctx context.Context, exec db.Executor, serverID, clanID snowflake.ID, memberIDs []snowflake.ID) error {
	for _, memberID := range memberIDs {
		_, err := exec.Insert(ctx, domain.MembershipTable, map[string]any{
			"server_id": serverID,
			"member_id": memberID,
			"clan_id":   clanID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteMemberships(ctx context.Context, exec db.Executor, clanID snowflake.ID, memberIDs []snowflake.ID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	_, err := exec.Delete(ctx, domain.MembershipTable, "clan_id = ? AND member_id IN ?", clanID, memberIDs)
	return err
}

func (r *repo) first(ctx context.Context, exec db.Executor, filter string, params ...any) (*domain.Clan, error) {
	var rows []domain.Clan
	if err := exec.Select(ctx, &rows, domain.Table, columns, filter, params, db.Limit(1)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
