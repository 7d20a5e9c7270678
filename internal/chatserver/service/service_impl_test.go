package service

import (
	"context"
	"sync"
	"testing"

	"github.com/smallbiznis/clanbot/internal/chatserver/domain"
	"github.com/smallbiznis/clanbot/internal/chatserver/repository"
	"github.com/smallbiznis/clanbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	_, gw := dbtest.New(t)
	return New(Params{Gateway: gw, Log: zap.NewNop(), Repo: repository.Provide()})
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "guild-1", "Guild One")
	require.NoError(t, err)
	second, err := svc.GetOrCreate(ctx, " guild-1 ", "Renamed")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Guild One", second.DisplayName)
}

func TestGetOrCreateRejectsEmptyRef(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetOrCreate(context.Background(), "  ", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidExternalRef)
}

func TestGetOrCreateConcurrentFirstUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			server, err := svc.GetOrCreate(ctx, "guild-race", "Race")
			errs[i] = err
			ids[i] = server.ID.String()
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestGetByExternalRefDoesNotCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetByExternalRef(ctx, "guild-x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := svc.GetOrCreate(ctx, "guild-x", "X")
	require.NoError(t, err)

	found, err := svc.GetByExternalRef(ctx, "guild-x")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}
