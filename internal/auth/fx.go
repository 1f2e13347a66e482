package auth

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/salespipe/internal/auth/repository"
	"github.com/smallbiznis/salespipe/internal/auth/service"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewResetTokenRepository),
	fx.Provide(service.NewService),
)
