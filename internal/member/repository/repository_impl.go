package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/member/domain"
	"github.com/smallbiznis/clanbot/pkg/db"
)

var columns = []string{"id", "external_ref", "display_name", "created_at"}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, exec db.Executor, externalRef, displayName string) (*domain.Member, error) {
	id, err := exec.Insert(ctx, domain.Table, map[string]any{
		"external_ref": externalRef,
		"display_name": displayName,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Member{
		ID:          snowflake.ID(id),
		ExternalRef: externalRef,
		DisplayName: displayName,
	}, nil
}

func (r *repo) FindByExternalRef(ctx context.Context, exec db.Executor, externalRef string) (*domain.Member, error) {
	var rows []domain.Member
	if err := exec.Select(ctx, &rows, domain.Table, columns, "external_ref = ?", []any{externalRef}, db.Limit(1)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindByIDs(ctx context.Context, exec db.Executor, ids []snowflake.ID) ([]domain.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []domain.Member
	if err := exec.Select(ctx, &rows, domain.Table, columns, "id IN ?", []any{ids}); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateDisplayName(ctx context.Context, exec db.Executor, id snowflake.ID, displayName string) error {
	_, err := exec.Update(ctx, domain.Table, map[string]any{"display_name": displayName}, "id = ?", id)
	return err
}
