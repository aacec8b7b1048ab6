package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/audit"
	"github.com/smallbiznis/telecomservice/internal/auth"
	"github.com/smallbiznis/telecomservice/internal/authorization"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/company"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/internal/consumption"
	"github.com/smallbiznis/telecomservice/internal/migration"
	"github.com/smallbiznis/telecomservice/internal/observability"
	"github.com/smallbiznis/telecomservice/internal/product"
	"github.com/smallbiznis/telecomservice/internal/ratelimit"
	"github.com/smallbiznis/telecomservice/internal/scheduler"
	"github.com/smallbiznis/telecomservice/internal/seed"
	"github.com/smallbiznis/telecomservice/internal/server"
	"github.com/smallbiznis/telecomservice/pkg/db"
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

		// Functional Domains
		company.Module,
		product.Module,
		audit.Module,
		auth.Module,
		authorization.Module,
		ratelimit.Module,
		consumption.Module,

		// Startup and background work
		migration.Module,
		seed.Module,
		scheduler.Module,

		server.Module,
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
