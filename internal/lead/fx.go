package lead

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/salespipe/internal/lead/repository"
	"github.com/smallbiznis/salespipe/internal/lead/service"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewLeadStore),
	fx.Provide(service.NewService),
)
