package clan

import (
	"github.com/smallbiznis/clanbot/internal/clan/repository"
	"github.com/smallbiznis/clanbot/internal/clan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("clan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
