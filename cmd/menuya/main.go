package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/account"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	"github.com/smallbiznis/menuya/internal/discount"
	"github.com/smallbiznis/menuya/internal/lock"
	"github.com/smallbiznis/menuya/internal/migration"
	"github.com/smallbiznis/menuya/internal/notification"
	"github.com/smallbiznis/menuya/internal/observability"
	"github.com/smallbiznis/menuya/internal/order"
	"github.com/smallbiznis/menuya/internal/ratelimit"
	"github.com/smallbiznis/menuya/internal/realtime"
	"github.com/smallbiznis/menuya/internal/receipt"
	"github.com/smallbiznis/menuya/internal/server"
	"github.com/smallbiznis/menuya/internal/table"
	"github.com/smallbiznis/menuya/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		ratelimit.Module,
		changefeed.Module,

		// Collaborators
		notification.Module,
		receipt.Module,
		authorization.Module,

		// Functional Domains
		table.Module,
		discount.Module,
		order.Module,
		account.Module,

		realtime.Module,
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
