// Command samplepdf writes sample bank and account slips as PDF files. The
// output feeds local runs of the extractor and decoders.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/smallbiznis/invoicereminder/internal/providers/pdf"
	"go.uber.org/zap"
)

func main() {
	outDir := flag.String("out", ".", "directory for the generated PDFs")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("samplepdf.mkdir_failed", zap.String("dir", *outDir), zap.Error(err))
	}

	renderer := pdf.New()
	samples := map[string]pdf.Slip{
		"bank_invoice.pdf":    pdf.SampleBankSlip(),
		"account_invoice.pdf": pdf.SampleAccountSlip(),
	}
	for name, slip := range samples {
		data, err := renderer.Render(context.Background(), slip)
		if err != nil {
			log.Fatal("samplepdf.render_failed", zap.String("file", name), zap.Error(err))
		}
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatal("samplepdf.write_failed", zap.String("file", path), zap.Error(err))
		}
		log.Info("samplepdf.written", zap.String("file", path), zap.Int("bytes", len(data)))
	}
}
