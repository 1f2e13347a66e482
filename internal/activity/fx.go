package activity

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/salespipe/internal/activity/repository"
	"github.com/smallbiznis/salespipe/internal/activity/service"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
