package dispatch

import (
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/internal/pdftext"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatch",
	fx.Provide(
		func(s userdomain.Service) UserStore { return s },
		func(s invoicedomain.Service) InvoiceStore { return s },
		func(e *pdftext.Extractor) Extractor { return e },
	),
	fx.Provide(New),
)
