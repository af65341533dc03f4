package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
)

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

func (p *MarotoRenderer) Render(ctx context.Context, slip Slip) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slip.DocumentType.Valid() {
		return nil, fmt.Errorf("%w: %q", barcode.ErrUnsupportedDocumentType, slip.DocumentType)
	}
	if slip.Line == "" {
		return nil, fmt.Errorf("%w: empty digitable line", barcode.ErrInvalidArgument)
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, slip.Issuer, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Beneficiário: "+slip.Beneficiary, props.Text{Top: 0}),
			text.New("Pagador: "+slip.Payer, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Vencimento: "+slip.DueDate, props.Text{Top: 0, Align: align.Right}),
			text.New("Valor: R$ "+slip.Amount, props.Text{Top: 5, Align: align.Right, Style: fontstyle.Bold}),
		),
	)

	if slip.DocumentType == barcode.DocumentTypeAccountInvoice {
		m.AddRow(8,
			text.NewCol(12, slip.BankHeader, props.Text{Size: 11, Style: fontstyle.Bold}),
		)
	}
	m.AddRow(10,
		text.NewCol(12, slip.Line, props.Text{Size: 11, Family: "courier"}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return doc.GetBytes(), nil
}
