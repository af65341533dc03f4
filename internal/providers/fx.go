package providers

import (
	"github.com/smallbiznis/invoicereminder/internal/providers/gmail"
	"github.com/smallbiznis/invoicereminder/internal/providers/telegram"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	gmail.Module,
	telegram.Module,
)
