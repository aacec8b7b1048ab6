package auth

import (
	"github.com/smallbiznis/telecomservice/internal/auth/repository"
	"github.com/smallbiznis/telecomservice/internal/auth/service"
	"github.com/smallbiznis/telecomservice/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
