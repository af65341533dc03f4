package dispatch

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/smallbiznis/invoicereminder/internal/config"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
)

type messageView struct {
	Bank        string
	Beneficiary string
	Barcode     string
	DueDate     string
	Amount      string
}

// formatter renders invoices with the current notification template. The
// parsed template is reused until the configured source changes.
type formatter struct {
	holder *config.NotificationConfigHolder

	mu     sync.Mutex
	source string
	tmpl   *template.Template
}

func newFormatter(holder *config.NotificationConfigHolder) *formatter {
	return &formatter{holder: holder}
}

func (f *formatter) Format(inv invoicedomain.Invoice) (string, error) {
	cfg := f.holder.Get()
	tmpl, err := f.template(cfg.MessageTemplate)
	if err != nil {
		return "", err
	}

	view := messageView{
		Bank:        inv.Bank,
		Beneficiary: inv.Beneficiary,
		Barcode:     inv.Barcode,
		DueDate:     inv.Due().Format(cfg.DateLayout),
		Amount:      strings.Replace(inv.Amount.StringFixed(2), ".", ",", 1),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}

func (f *formatter) template(source string) (*template.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tmpl != nil && f.source == source {
		return f.tmpl, nil
	}
	tmpl, err := template.New("notification").Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse notification template: %w", err)
	}
	f.source = source
	f.tmpl = tmpl
	return tmpl, nil
}
