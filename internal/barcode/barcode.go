// Package barcode decodes the payment line printed on Brazilian bank slips
// and utility bills into invoices. Decoders are pure functions over text.
package barcode

import (
	"errors"
	"fmt"
	"strings"

	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
)

// DocumentType selects the decoder variant for a scanned attachment.
type DocumentType string

const (
	DocumentTypeBankInvoice    DocumentType = "BankInvoice"
	DocumentTypeAccountInvoice DocumentType = "AccountInvoice"
)

var (
	ErrInvalidArgument         = errors.New("invalid_argument")
	ErrBankNotFound            = errors.New("bank_not_found")
	ErrUnsupportedDocumentType = errors.New("unsupported_document_type")
	ErrMalformedBarcode        = errors.New("malformed_barcode")
)

// Decoder turns extracted document text into an invoice. The returned
// invoice has no id and no owner.
type Decoder func(text, payee string) (invoicedomain.Invoice, error)

// ParseDocumentType accepts the stored tag case-insensitively.
func ParseDocumentType(value string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case strings.ToLower(string(DocumentTypeBankInvoice)):
		return DocumentTypeBankInvoice, nil
	case strings.ToLower(string(DocumentTypeAccountInvoice)):
		return DocumentTypeAccountInvoice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, value)
	}
}

func (t DocumentType) Valid() bool {
	_, err := ParseDocumentType(string(t))
	return err == nil
}

// For returns the decoder for t. Unknown types fail at selection.
func For(t DocumentType) (Decoder, error) {
	switch t {
	case DocumentTypeBankInvoice:
		return BankInvoice, nil
	case DocumentTypeAccountInvoice:
		return AccountInvoice, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, string(t))
	}
}

// CreateInvoice decodes text with the variant selected by t.
func CreateInvoice(t DocumentType, text, payee string) (invoicedomain.Invoice, error) {
	decode, err := For(t)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return decode(text, payee)
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidArgument)
	}
	return nil
}

func digitsAt(code string, offset, length int) (string, error) {
	if offset < 0 || length <= 0 || offset+length > len(code) {
		return "", fmt.Errorf("%w: need %d digits at offset %d, code has %d", ErrMalformedBarcode, length, offset, len(code))
	}
	field := code[offset : offset+length]
	for i := 0; i < len(field); i++ {
		if field[i] < '0' || field[i] > '9' {
			return "", fmt.Errorf("%w: non-digit in field %q", ErrMalformedBarcode, field)
		}
	}
	return field, nil
}

func atoi(digits string) int {
	n := 0
	for i := 0; i < len(digits); i++ {
		n = n*10 + int(digits[i]-'0')
	}
	return n
}
