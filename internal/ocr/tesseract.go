package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine using the gosseract client. A fresh client
// is created per call; gosseract clients are not safe for concurrent reuse.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image.
func (e *TesseractEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	c := e.clientFactory()
	defer c.Close()
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return Result{}, &RecognitionError{Engine: e.Name(), Err: err}
	}
	if in.Language != "" {
		if err := c.SetLanguage(in.Language); err != nil {
			return Result{}, &RecognitionError{Engine: e.Name(), Err: err}
		}
	}
	text, err := c.Text()
	if err != nil {
		return Result{}, &RecognitionError{Engine: e.Name(), Err: err}
	}
	return Result{Text: strings.TrimSpace(text)}, nil
}
