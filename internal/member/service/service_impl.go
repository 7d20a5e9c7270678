package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/member/domain"
	"github.com/smallbiznis/clanbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Gateway   *db.Gateway
	Log       *zap.Logger
	Repo      domain.Repository
	Directory domain.Directory
}

type Service struct {
	gateway   db.Executor
	log       *zap.Logger
	repo      domain.Repository
	directory domain.Directory
}

func New(p Params) domain.Service {
	return &Service{
		gateway:   p.Gateway,
		log:       p.Log.Named("member.service"),
		repo:      p.Repo,
		directory: p.Directory,
	}
}

func (s *Service) Resolve(ctx context.Context, serverRef, ref, displayNameHint string) (domain.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Member{}, domain.ErrInvalidRef
	}
	hint := strings.TrimSpace(displayNameHint)

	// The directory is consulted even for known members; a ref the chat layer
	// can no longer see does not resolve.
	name, err := s.directory.Lookup(ctx, serverRef, ref)
	if err != nil {
		return domain.Member{}, err
	}
	if hint != "" {
		name = hint
	}

	existing, err := s.repo.FindByExternalRef(ctx, s.gateway, ref)
	if err != nil {
		return domain.Member{}, err
	}
	if existing != nil {
		return s.refreshDisplayName(ctx, *existing, name), nil
	}

	created, err := s.repo.Insert(ctx, s.gateway, ref, name)
	if err == nil {
		s.log.Debug("member registered",
			zap.String("external_ref", ref),
			zap.String("member_id", created.ID.String()),
		)
		return *created, nil
	}

	var storageErr *db.StorageError
	if !errors.As(err, &storageErr) || !storageErr.Duplicate() {
		return domain.Member{}, err
	}

	existing, err = s.repo.FindByExternalRef(ctx, s.gateway, ref)
	if err != nil {
		return domain.Member{}, err
	}
	if existing == nil {
		return domain.Member{}, storageErr
	}
	return *existing, nil
}

func (s *Service) GetByExternalRef(ctx context.Context, ref string) (domain.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Member{}, domain.ErrInvalidRef
	}

	item, err := s.repo.FindByExternalRef(ctx, s.gateway, ref)
	if err != nil {
		return domain.Member{}, err
	}
	if item == nil {
		return domain.Member{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Member, error) {
	rows, err := s.repo.FindByIDs(ctx, s.gateway, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]domain.Member, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// refreshDisplayName keeps the stored name in step with the platform; failures only cost freshness.
func (s *Service) refreshDisplayName(ctx context.Context, m domain.Member, hint string) domain.Member {
	if hint == "" || hint == m.DisplayName {
		return m
	}
	if err := s.repo.UpdateDisplayName(ctx, s.gateway, m.ID, hint); err != nil {
		s.log.Warn("display name refresh failed", zap.String("member_id", m.ID.String()), zap.Error(err))
		return m
	}
	m.DisplayName = hint
	return m
}
