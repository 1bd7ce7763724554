package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/internal/migration"
	"github.com/smallbiznis/bizhub/internal/observability"
	"github.com/smallbiznis/bizhub/internal/server"
	"github.com/smallbiznis/bizhub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
