package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/salespipe/internal/config"
	"github.com/smallbiznis/salespipe/internal/migration"
	"github.com/smallbiznis/salespipe/internal/observability"
	"github.com/smallbiznis/salespipe/internal/server"
	"github.com/smallbiznis/salespipe/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
