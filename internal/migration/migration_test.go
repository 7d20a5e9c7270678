package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return conn
}

func TestApplySQLiteIsIdempotent(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()

	require.NoError(t, Apply(ctx, conn, "sqlite"))
	require.NoError(t, Apply(ctx, conn, "sqlite"))

	for _, table := range []string{"servers", "members", "clans", "clan_memberships"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestActiveNameUniqueOnlyAmongActiveClans(t *testing.T) {
	conn := setupDB(t)
	require.NoError(t, Apply(context.Background(), conn, "sqlite"))

	require.NoError(t, conn.Exec(`INSERT INTO servers (id, external_ref) VALUES (1, 'guild')`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO members (id, external_ref) VALUES (1, 'm1')`).Error)

	insert := `INSERT INTO clans (id, server_id, leader_id, name, tag, member_ids, modifier_history, active, last_updated_at)
		VALUES (?, 1, 1, 'Wolves', ?, '[1]', '[1]', ?, CURRENT_TIMESTAMP)`
	require.NoError(t, conn.Exec(insert, 10, "W1", false).Error)
	require.NoError(t, conn.Exec(insert, 11, "W2", true).Error)
	assert.Error(t, conn.Exec(insert, 12, "W3", true).Error)
}

func TestMembershipUniquePerServer(t *testing.T) {
	conn := setupDB(t)
	require.NoError(t, Apply(context.Background(), conn, "sqlite"))

	require.NoError(t, conn.Exec(`INSERT INTO servers (id, external_ref) VALUES (1, 'guild')`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO members (id, external_ref) VALUES (1, 'm1')`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO clans (id, server_id, leader_id, name, tag, member_ids, modifier_history, active, last_updated_at)
		VALUES (10, 1, 1, 'A', 'A', '[1]', '[1]', 1, CURRENT_TIMESTAMP), (11, 1, 1, 'B', 'B', '[1]', '[1]', 1, CURRENT_TIMESTAMP)`).Error)

	require.NoError(t, conn.Exec(`INSERT INTO clan_memberships (id, server_id, member_id, clan_id) VALUES (1, 1, 1, 10)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO clan_memberships (id, server_id, member_id, clan_id) VALUES (2, 1, 1, 11)`).Error)
}

func TestUnsupportedTarget(t *testing.T) {
	err := Apply(context.Background(), &gorm.DB{}, "mysql")
	assert.Error(t, err)
}
