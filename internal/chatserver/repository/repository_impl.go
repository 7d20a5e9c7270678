package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/chatserver/domain"
	"github.com/smallbiznis/clanbot/pkg/db"
)

var columns = []string{"id", "external_ref", "display_name", "created_at"}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, exec db.Executor, externalRef, displayName string) (*domain.Server, error) {
	id, err := exec.Insert(ctx, domain.Table, map[string]any{
		"external_ref": externalRef,
		"display_name": displayName,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Server{
		ID:          snowflake.ID(id),
		ExternalRef: externalRef,
		DisplayName: displayName,
	}, nil
}

func (r *repo) FindByExternalRef(ctx context.Context, exec db.Executor, externalRef string) (*domain.Server, error) {
	var rows []domain.Server
	if err := exec.Select(ctx, &rows, domain.Table, columns, "external_ref = ?", []any{externalRef}, db.Limit(1)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
