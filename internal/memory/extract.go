package memory

import (
	"bytes"

	"github.com/ledongthuc/pdf"

	"llmhostd/pkg/errs"
)

// DocumentExtractor produces plain text from a document's raw bytes,
// the ingestion pipeline's first step for sources that aren't already
// plain text. Grounded on poly-extract/src/pdf.rs's get_text_from_pdf.
type DocumentExtractor interface {
	ExtractText(mime string, data []byte) (string, error)
}

// PDFExtractor reads PDF documents with github.com/ledongthuc/pdf, the
// closest ecosystem equivalent of poly-extract's pdf_extract crate.
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(mime string, data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errs.DocumentExtractionFailed("open pdf: %v", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", errs.DocumentExtractionFailed("extract text from pdf: %v", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", errs.DocumentExtractionFailed("read extracted pdf text: %v", err)
	}
	return buf.String(), nil
}
