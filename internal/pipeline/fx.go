package pipeline

import (
	"go.uber.org/fx"

	authdomain "github.com/smallbiznis/salespipe/internal/auth/domain"
	"github.com/smallbiznis/salespipe/internal/pipeline/domain"
	"github.com/smallbiznis/salespipe/internal/pipeline/repository"
	"github.com/smallbiznis/salespipe/internal/pipeline/service"
)

var Module = fx.Module("pipeline.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) authdomain.PipelineSeeder { return svc }),
)
