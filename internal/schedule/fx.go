package schedule

import (
	"github.com/smallbiznis/invoicereminder/internal/schedule/repository"
	"github.com/smallbiznis/invoicereminder/internal/schedule/service"
	"github.com/smallbiznis/invoicereminder/internal/scheduler"
	"go.uber.org/fx"
)

var Module = fx.Module("schedule.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(repository.NewStore, fx.As(new(scheduler.ScheduleStore))),
	),
	fx.Provide(func(s *scheduler.Scheduler) service.Triggers { return s }),
	fx.Provide(service.New),
)
