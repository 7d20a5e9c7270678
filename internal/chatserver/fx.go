package chatserver

import (
	"github.com/smallbiznis/clanbot/internal/chatserver/repository"
	"github.com/smallbiznis/clanbot/internal/chatserver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chatserver.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
