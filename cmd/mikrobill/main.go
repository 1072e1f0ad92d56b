package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tarumnet/mikrobill/internal/clock"
	"github.com/tarumnet/mikrobill/internal/config"
	"github.com/tarumnet/mikrobill/internal/observability"
	"github.com/tarumnet/mikrobill/internal/server"
	"github.com/tarumnet/mikrobill/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
