package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/config"
	"github.com/smallbiznis/invoicereminder/internal/cryptoutil"
	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	"github.com/smallbiznis/invoicereminder/internal/invoice"
	"github.com/smallbiznis/invoicereminder/internal/lock"
	"github.com/smallbiznis/invoicereminder/internal/migration"
	"github.com/smallbiznis/invoicereminder/internal/observability"
	"github.com/smallbiznis/invoicereminder/internal/pdftext"
	"github.com/smallbiznis/invoicereminder/internal/providers"
	"github.com/smallbiznis/invoicereminder/internal/schedule"
	"github.com/smallbiznis/invoicereminder/internal/scheduler"
	"github.com/smallbiznis/invoicereminder/internal/server"
	"github.com/smallbiznis/invoicereminder/internal/user"
	"github.com/smallbiznis/invoicereminder/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cryptoutil.Module,
		lock.Module,

		// Domains
		user.Module,
		invoice.Module,
		schedule.Module,
		pdftext.Module,
		providers.Module,
		dispatch.Module,
		fx.Provide(
			func(s *dispatch.Service) scheduler.Runner { return s },
			func(s *dispatch.Service) server.Dispatcher { return s },
			func(s *scheduler.Scheduler) server.ScheduleStatus { return s },
		),
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
