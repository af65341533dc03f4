package pdftext

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	pages []string
	err   error
	calls int
}

func (f *fakeReader) Pages(context.Context, []byte) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

func newExtractor(t *testing.T, reader PageReader) *Extractor {
	return New(Params{Reader: reader, Log: zaptest.NewLogger(t)})
}

func TestReadTextContentFromPdfRejectsEmpty(t *testing.T) {
	reader := &fakeReader{}
	e := newExtractor(t, reader)

	for _, docType := range []barcode.DocumentType{barcode.DocumentTypeBankInvoice, barcode.DocumentTypeAccountInvoice, "other"} {
		for _, data := range [][]byte{nil, {}} {
			_, err := e.ReadTextContentFromPdf(context.Background(), data, "payee", docType)
			assert.ErrorIs(t, err, ErrEmptyDocument)
			assert.ErrorIs(t, err, barcode.ErrInvalidArgument)
		}
	}
	assert.Zero(t, reader.calls)
}

func TestReadTextContentFromPdfUnsupportedType(t *testing.T) {
	reader := &fakeReader{}
	e := newExtractor(t, reader)

	_, err := e.ReadTextContentFromPdf(context.Background(), []byte("%PDF"), "payee", "Receipt")
	assert.ErrorIs(t, err, barcode.ErrUnsupportedDocumentType)
	assert.Zero(t, reader.calls)
}

func TestReadTextContentFromPdfAccountInvoice(t *testing.T) {
	reader := &fakeReader{pages: []string{
		"Recibo do pagador \n",
		"341-7 \r\n34191.09008 14292.880391 20803.050002 4 10770000016165",
	}}
	e := newExtractor(t, reader)

	inv, err := e.ReadTextContentFromPdf(context.Background(), []byte("%PDF"), "Energia", barcode.DocumentTypeAccountInvoice)
	require.NoError(t, err)
	assert.Equal(t, "[341] - Itaú", inv.Bank)
	assert.Equal(t, "Energia", inv.Beneficiary)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("161.65")))
}

func TestReadTextContentFromPdfBankInvoice(t *testing.T) {
	reader := &fakeReader{pages: []string{"83670000000 0 27540221202 9 50407000000 6 00001559022 7"}}
	e := newExtractor(t, reader)

	inv, err := e.ReadTextContentFromPdf(context.Background(), []byte("%PDF"), "Condominio", barcode.DocumentTypeBankInvoice)
	require.NoError(t, err)
	assert.True(t, inv.Amount.IsPositive())
	assert.NotEmpty(t, inv.Barcode)
}

func TestTextPropagatesReaderError(t *testing.T) {
	e := newExtractor(t, &fakeReader{err: errors.New("corrupt xref")})

	_, err := e.Text(context.Background(), []byte("%PDF"))
	assert.ErrorContains(t, err, "corrupt xref")
}

func TestTextHonoursCancellation(t *testing.T) {
	e := newExtractor(t, &fakeReader{pages: []string{"a", "b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Text(ctx, []byte("%PDF"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", normalizeLineEndings("a \nb \r\nc"))
	assert.Equal(t, "a\r\nb", normalizeLineEndings("a\r\nb"))
}

func TestRepairEncoding(t *testing.T) {
	assert.Equal(t, "Itaú", repairEncoding("ItaÃº"))
	assert.Equal(t, "Caixa Econômica", repairEncoding("Caixa EconÃ´mica"))
	assert.Equal(t, "Itaú", repairEncoding("Itaú"))
	assert.Equal(t, "plain ascii", repairEncoding("plain ascii"))
	assert.Equal(t, "日本", repairEncoding("日本"))
}
