package barcode

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"gorm.io/datatypes"
)

var bankLinePattern = regexp.MustCompile(`\d{11}\s\d \d{11}\s\d \d{11}\s\d \d{11}\s\d`)

const (
	bankAmountOffset  = 12
	bankAmountLength  = 4
	bankDueDateOffset = 24
	bankDueDateLength = 6
)

// BankInvoice decodes the four-group bank slip line. The amount and due date
// offsets are fixed positions in the space-stripped line.
func BankInvoice(text, payee string) (invoicedomain.Invoice, error) {
	if err := requireText(text); err != nil {
		return invoicedomain.Invoice{}, err
	}

	// No match leaves an empty code; the offset reads below reject it.
	code := strings.ReplaceAll(bankLinePattern.FindString(text), " ", "")

	amountField, err := digitsAt(code, bankAmountOffset, bankAmountLength)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	dueField, err := digitsAt(code, bankDueDateOffset, bankDueDateLength)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	due, err := decodeBankDueDate(dueField)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return invoicedomain.Invoice{
		Bank:        payee,
		Beneficiary: payee,
		Amount:      decimal.New(int64(atoi(amountField)), -2),
		DueDate:     datatypes.Date(due),
		Barcode:     code,
	}, nil
}

// decodeBankDueDate reads YYMMDD as: year 2000 + YY/2, month and day each
// written with their two digits swapped.
func decodeBankDueDate(field string) (time.Time, error) {
	year := 2000 + atoi(field[0:2])/2
	month := atoi(reverse(field[2:4]))
	day := atoi(reverse(field[4:6]))
	return calendarDate(year, month, day, time.UTC)
}

func calendarDate(year, month, day int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrMalformedBarcode, month)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if day < 1 || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrMalformedBarcode, day, year, month)
	}
	return t, nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
