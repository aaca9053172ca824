package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/auth"
	"github.com/smallbiznis/streamhub/internal/catalog"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/config"
	"github.com/smallbiznis/streamhub/internal/entitlement"
	"github.com/smallbiznis/streamhub/internal/migration"
	"github.com/smallbiznis/streamhub/internal/observability"
	"github.com/smallbiznis/streamhub/internal/organization"
	"github.com/smallbiznis/streamhub/internal/plan"
	"github.com/smallbiznis/streamhub/internal/ratelimit"
	"github.com/smallbiznis/streamhub/internal/realtime"
	"github.com/smallbiznis/streamhub/internal/redisclient"
	"github.com/smallbiznis/streamhub/internal/seed"
	"github.com/smallbiznis/streamhub/internal/server"
	"github.com/smallbiznis/streamhub/internal/signup"
	"github.com/smallbiznis/streamhub/internal/subscription"
	"github.com/smallbiznis/streamhub/internal/task"
	"github.com/smallbiznis/streamhub/internal/user"
	"github.com/smallbiznis/streamhub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisclient.Module,
		realtime.Module,

		// Functional Domains
		auth.Module,
		organization.Module,
		plan.Module,
		user.Module,
		subscription.Module,
		catalog.Module,
		entitlement.Module,
		signup.Module,
		task.Module,
		ratelimit.Module,

		seed.Module,
		migration.Module,

		server.Module,
		fx.Invoke(func(s *server.Server) {
			s.RegisterAuthRoutes()
			s.RegisterAPIRoutes()
			s.RegisterAdminRoutes()
			s.RegisterFallback()
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
