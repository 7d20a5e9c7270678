// Package dbtest opens migrated in-memory SQLite gateways for package tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/smallbiznis/clanbot/internal/migration"
	"github.com/smallbiznis/clanbot/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New returns a gateway over a private shared-cache memory database with the schema applied.
func New(t *testing.T) (*gorm.DB, *db.Gateway) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.Exec("PRAGMA busy_timeout = 5000").Error)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.Apply(context.Background(), conn, "sqlite"))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return conn, db.NewGateway(db.GatewayParams{
		DB:     conn,
		Node:   node,
		Log:    zap.NewNop(),
		Config: config.Config{DBAcquireTimeoutMS: 5000},
	})
}
