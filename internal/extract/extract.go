// Package extract turns uploaded document bytes into plain text. Images go
// through the OCR engine; PDFs already carry text and are read directly.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/carevault/medreports/internal/ocr"
)

// Extractor dispatches on content type.
type Extractor struct {
	engine ocr.Engine
}

// New constructs an Extractor around an OCR engine.
func New(engine ocr.Engine) *Extractor {
	return &Extractor{engine: engine}
}

// Text extracts plain text from data. Unknown content types are handed to the
// OCR engine, which rejects anything it cannot decode.
func (e *Extractor) Text(ctx context.Context, data []byte, contentType, language string) (string, error) {
	if strings.HasPrefix(contentType, "application/pdf") {
		return pdfText(data)
	}
	res, err := e.engine.Recognize(ctx, ocr.Input{Image: data, Language: language})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func pdfText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return strings.TrimSpace(builder.String()), nil
}
