package auth

import (
	"github.com/smallbiznis/streamhub/internal/auth/events"
	"github.com/smallbiznis/streamhub/internal/auth/repository"
	"github.com/smallbiznis/streamhub/internal/auth/service"
	"github.com/smallbiznis/streamhub/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(events.NewBroker),
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
