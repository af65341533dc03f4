// Package pdftext extracts the text layer of invoice PDFs and hands it to the
// barcode decoder selected by the scan definition.
package pdftext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/invoicereminder/internal/barcode"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

var Module = fx.Module("pdftext",
	fx.Provide(func() PageReader { return FitzReader{} }),
	fx.Provide(New),
)

// ErrEmptyDocument is returned for a zero-length attachment.
var ErrEmptyDocument = fmt.Errorf("empty_document: %w", barcode.ErrInvalidArgument)

// PageReader returns the plain text of every page, in page order.
type PageReader interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

type Params struct {
	fx.In

	Reader PageReader
	Log    *zap.Logger
}

type Extractor struct {
	reader PageReader
	log    *zap.Logger
}

func New(p Params) *Extractor {
	reader := p.Reader
	if reader == nil {
		reader = FitzReader{}
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{reader: reader, log: log.Named("pdftext")}
}

// ReadTextContentFromPdf extracts the text of data and decodes it as docType.
func (e *Extractor) ReadTextContentFromPdf(ctx context.Context, data []byte, payee string, docType barcode.DocumentType) (invoicedomain.Invoice, error) {
	if len(data) == 0 {
		return invoicedomain.Invoice{}, ErrEmptyDocument
	}
	decode, err := barcode.For(docType)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	text, err := e.Text(ctx, data)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return decode(text, payee)
}

// Text returns the normalized text of all pages concatenated.
func (e *Extractor) Text(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	pages, err := e.reader.Pages(ctx, data)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var sb strings.Builder
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		repaired := repairEncoding(normalizeLineEndings(page))
		if repaired != page {
			e.log.Debug("pdftext.page.normalized", zap.Int("page", i+1))
		}
		sb.WriteString(repaired)
	}
	return sb.String(), nil
}

var lineEndingReplacer = strings.NewReplacer(" \r\n", "\n", " \n", "\n")

func normalizeLineEndings(text string) string {
	return lineEndingReplacer.Replace(text)
}

// repairEncoding undoes UTF-8 text that was decoded as Windows-1252
// ("ItaÃº" becomes "Itaú"). Text that does not round-trip is left alone.
func repairEncoding(text string) string {
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil || encoded == text {
		return text
	}
	if !utf8.ValidString(encoded) {
		return text
	}
	return encoded
}
