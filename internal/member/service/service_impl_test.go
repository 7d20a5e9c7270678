package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/member/domain"
	"github.com/smallbiznis/clanbot/internal/member/repository"
	"github.com/smallbiznis/clanbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDirectory struct {
	names map[string]string
	calls atomic.Int32
}

func (d *stubDirectory) Lookup(_ context.Context, _ string, ref string) (string, error) {
	d.calls.Add(1)
	name, ok := d.names[ref]
	if !ok {
		return "", domain.ErrUnresolvable
	}
	return name, nil
}

func newTestService(t *testing.T, dir domain.Directory) domain.Service {
	t.Helper()
	_, gw := dbtest.New(t)
	return New(Params{Gateway: gw, Log: zap.NewNop(), Repo: repository.Provide(), Directory: dir})
}

func TestResolveCreatesOnceAndRefreshesName(t *testing.T) {
	dir := &stubDirectory{names: map[string]string{"100": "alice"}}
	svc := newTestService(t, dir)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "guild", "100", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", first.DisplayName)

	second, err := svc.Resolve(ctx, "guild", "100", "alice-renamed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice-renamed", second.DisplayName)

	assert.Equal(t, int32(2), dir.calls.Load())
}

func TestResolveKnownMemberMissingUpstream(t *testing.T) {
	dir := &stubDirectory{names: map[string]string{"100": "alice"}}
	svc := newTestService(t, dir)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "guild", "100", "")
	require.NoError(t, err)

	delete(dir.names, "100")
	_, err = svc.Resolve(ctx, "guild", "100", "alice")
	assert.ErrorIs(t, err, domain.ErrUnresolvable)

	found, err := svc.GetByExternalRef(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "alice", found.DisplayName)
}

func TestResolveRefreshesNameFromDirectory(t *testing.T) {
	dir := &stubDirectory{names: map[string]string{"100": "alice"}}
	svc := newTestService(t, dir)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "guild", "100", "")
	require.NoError(t, err)

	dir.names["100"] = "alice-upstream"
	m, err := svc.Resolve(ctx, "guild", "100", "")
	require.NoError(t, err)
	assert.Equal(t, "alice-upstream", m.DisplayName)
}

func TestResolveUnknownUpstream(t *testing.T) {
	svc := newTestService(t, &stubDirectory{names: map[string]string{}})

	_, err := svc.Resolve(context.Background(), "guild", "999", "ghost")
	assert.ErrorIs(t, err, domain.ErrUnresolvable)

	_, err = svc.Resolve(context.Background(), "guild", " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRef)
}

func TestResolveConcurrentFirstSight(t *testing.T) {
	svc := newTestService(t, &stubDirectory{names: map[string]string{"555": "bob"}})
	ctx := context.Background()

	const workers = 12
	ids := make([]snowflake.ID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			m, err := svc.Resolve(ctx, "guild", "555", "")
			ids[i], errs[i] = m.ID, err
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestGetByIDsKeepsRequestedOrder(t *testing.T) {
	svc := newTestService(t, &stubDirectory{names: map[string]string{"1": "a", "2": "b"}})
	ctx := context.Background()

	a, err := svc.Resolve(ctx, "guild", "1", "")
	require.NoError(t, err)
	b, err := svc.Resolve(ctx, "guild", "2", "")
	require.NoError(t, err)

	members, err := svc.GetByIDs(ctx, []snowflake.ID{b.ID, 12345, a.ID})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, b.ID, members[0].ID)
	assert.Equal(t, a.ID, members[1].ID)
}

func TestGetByExternalRef(t *testing.T) {
	svc := newTestService(t, &stubDirectory{names: map[string]string{"7": "seven"}})
	ctx := context.Background()

	_, err := svc.GetByExternalRef(ctx, "7")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := svc.Resolve(ctx, "guild", "7", "")
	require.NoError(t, err)

	found, err := svc.GetByExternalRef(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}
