package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/triviabees/internal/clock"
	"github.com/smallbiznis/triviabees/internal/commission"
	"github.com/smallbiznis/triviabees/internal/config"
	"github.com/smallbiznis/triviabees/internal/observability"
	"github.com/smallbiznis/triviabees/internal/order"
	"github.com/smallbiznis/triviabees/internal/profile"
	"github.com/smallbiznis/triviabees/internal/ratelimit"
	"github.com/smallbiznis/triviabees/internal/referral"
	"github.com/smallbiznis/triviabees/internal/scheduler"
	"github.com/smallbiznis/triviabees/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Services the settlement job depends on.
		ratelimit.Module,
		profile.Module,
		referral.Module,
		commission.Module,
		order.Module,

		// No server module.
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake uses a node id distinct from the API process.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
