package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/clanbot/internal/chatserver/domain"
	"github.com/smallbiznis/clanbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Gateway *db.Gateway
	Log     *zap.Logger
	Repo    domain.Repository
}

type Service struct {
	gateway db.Executor
	log     *zap.Logger
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		gateway: p.Gateway,
		log:     p.Log.Named("chatserver.service"),
		repo:    p.Repo,
	}
}

// GetOrCreate returns the stored server. When a concurrent first use wins the insert,
// the unique external_ref rejects ours and the winner is read back.
func (s *Service) GetOrCreate(ctx context.Context, externalRef, displayName string) (domain.Server, error) {
	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return domain.Server{}, domain.ErrInvalidExternalRef
	}
	displayName = strings.TrimSpace(displayName)

	existing, err := s.repo.FindByExternalRef(ctx, s.gateway, externalRef)
	if err != nil {
		return domain.Server{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	created, err := s.repo.Insert(ctx, s.gateway, externalRef, displayName)
	if err == nil {
		s.log.Info("server registered",
			zap.String("external_ref", externalRef),
			zap.String("server_id", created.ID.String()),
		)
		return *created, nil
	}

	var storageErr *db.StorageError
	if !errors.As(err, &storageErr) || !storageErr.Duplicate() {
		return domain.Server{}, err
	}

	existing, err = s.repo.FindByExternalRef(ctx, s.gateway, externalRef)
	if err != nil {
		return domain.Server{}, err
	}
	if existing == nil {
		return domain.Server{}, storageErr
	}
	return *existing, nil
}

func (s *Service) GetByExternalRef(ctx context.Context, externalRef string) (domain.Server, error) {
	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return domain.Server{}, domain.ErrInvalidExternalRef
	}

	item, err := s.repo.FindByExternalRef(ctx, s.gateway, externalRef)
	if err != nil {
		return domain.Server{}, err
	}
	if item == nil {
		return domain.Server{}, domain.ErrNotFound
	}
	return *item, nil
}
