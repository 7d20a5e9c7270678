package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/chatserver"
	"github.com/smallbiznis/clanbot/internal/clan"
	"github.com/smallbiznis/clanbot/internal/clock"
	"github.com/smallbiznis/clanbot/internal/command"
	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/smallbiznis/clanbot/internal/lock"
	"github.com/smallbiznis/clanbot/internal/member"
	"github.com/smallbiznis/clanbot/internal/migration"
	"github.com/smallbiznis/clanbot/internal/observability"
	"github.com/smallbiznis/clanbot/internal/server"
	"github.com/smallbiznis/clanbot/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,
		lock.Module,

		// Functional Domains
		chatserver.Module,
		member.Module,
		clan.Module,
		command.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
