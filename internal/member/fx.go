package member

import (
	"github.com/smallbiznis/clanbot/internal/member/directory"
	"github.com/smallbiznis/clanbot/internal/member/repository"
	"github.com/smallbiznis/clanbot/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(directory.NewHinted),
	fx.Provide(service.New),
)
