// Package ocr defines the text recognition contract and its Tesseract-backed
// implementation.
package ocr

import (
	"context"
	"fmt"
)

// Input encapsulates a single image submitted for recognition.
type Input struct {
	// Image is the encoded image payload (PNG or JPEG bytes).
	Image []byte
	// Language is a trained-data hint such as "eng". Empty means engine default.
	Language string
}

// Result captures recognition output for a single input.
type Result struct {
	// Text is the linearized text extracted from the image. May be empty when
	// the image contains no recognizable text; that is not an error.
	Text string
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// RecognitionError reports that the engine could not process the input
// (corrupt data, unsupported encoding, engine initialization failure).
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s: recognize: %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
