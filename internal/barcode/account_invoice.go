package barcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"gorm.io/datatypes"
)

// accountLinePattern matches "ddd-d" on its own line followed by the dotted
// payment line: three or four "n.nnnnn(n)" groups, a check digit and the
// trailing factor/amount digits. Extracted PDF text may put blank lines
// between the two.
var accountLinePattern = regexp.MustCompile(`\d{3}-\d[ \t]*(?:\r?\n[ \t]*)+(?:\d+\.\d{5,6}[ \t]+){3,4}\d[ \t]+\d+`)

const (
	accountDueOffset    = 33
	accountDueLength    = 4
	accountAmountOffset = 37
	accountAmountLength = 10
)

// accountDateAnchor is day zero for the due-date factor.
var accountDateAnchor = time.Date(2022, time.May, 29, 0, 0, 0, 0, time.Local)

// AccountInvoice decodes the dashed bank-code header plus dotted payment line.
func AccountInvoice(text, payee string) (invoicedomain.Invoice, error) {
	if err := requireText(text); err != nil {
		return invoicedomain.Invoice{}, err
	}

	match := accountLinePattern.FindString(text)
	if match == "" {
		match = strings.TrimSpace(text)
	}

	header, line, found := strings.Cut(match, "\n")
	if !found {
		return invoicedomain.Invoice{}, fmt.Errorf("%w: missing line break after bank code", ErrMalformedBarcode)
	}
	header = strings.TrimSpace(header)
	if len(header) < 3 {
		return invoicedomain.Invoice{}, fmt.Errorf("%w: bank code %q", ErrMalformedBarcode, header)
	}
	bankID, err := strconv.Atoi(header[:3])
	if err != nil {
		return invoicedomain.Invoice{}, fmt.Errorf("%w: bank code %q", ErrMalformedBarcode, header[:3])
	}
	bank, err := BankLabel(bankID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	code := strings.TrimSpace(line)
	digits := strings.NewReplacer(".", "", " ", "", "\t", "", "\r", "").Replace(code)

	dueField, err := digitsAt(digits, accountDueOffset, accountDueLength)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	amountField, err := digitsAt(digits, accountAmountOffset, accountAmountLength)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return invoicedomain.Invoice{
		Bank:        bank,
		Beneficiary: payee,
		Amount:      decimal.New(int64(atoi(amountField)), -2),
		DueDate:     datatypes.Date(accountDateAnchor.AddDate(0, 0, atoi(dueField))),
		Barcode:     code,
	}, nil
}
