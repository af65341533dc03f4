// Package pdf renders payment slips carrying a text-layer barcode line, the
// same layout the pdftext extractor reads back.
package pdf

import (
	"context"

	"github.com/smallbiznis/invoicereminder/internal/barcode"
)

// Slip is the printable content of one payment slip.
type Slip struct {
	DocumentType barcode.DocumentType
	Issuer       string
	Beneficiary  string
	Payer        string
	// BankHeader is the "ddd-d" bank code line printed above an account
	// invoice's digitable line.
	BankHeader string
	Line       string
	DueDate    string
	Amount     string
}

type Renderer interface {
	Render(ctx context.Context, slip Slip) ([]byte, error)
}

// SampleAccountSlip is an Itaú account invoice due 1077 days after the
// account anchor date, for 161,65.
func SampleAccountSlip() Slip {
	return Slip{
		DocumentType: barcode.DocumentTypeAccountInvoice,
		Issuer:       "Banco Itaú S.A.",
		Beneficiary:  "Energia Paulista",
		Payer:        "Ana Souza",
		BankHeader:   "341-7",
		Line:         "34191.09008 14292.880391 20803.050002 4 10770000016165",
		DueDate:      "10/05/2025",
		Amount:       "161,65",
	}
}

// SampleBankSlip is a bank invoice for 27,54 due 07/04/2025.
func SampleBankSlip() Slip {
	return Slip{
		DocumentType: barcode.DocumentTypeBankInvoice,
		Issuer:       "Saneamento Municipal",
		Beneficiary:  "Saneamento Municipal",
		Payer:        "Ana Souza",
		Line:         "83670000000 0 27540221202 9 50407000000 6 00001559022 7",
		DueDate:      "07/04/2025",
		Amount:       "27,54",
	}
}
