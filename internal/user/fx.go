package user

import (
	"github.com/smallbiznis/invoicereminder/internal/user/repository"
	"github.com/smallbiznis/invoicereminder/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
