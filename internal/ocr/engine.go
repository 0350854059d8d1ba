// Package ocr runs an OCR engine over a transcript image and returns one
// text fragment per recognized line.
package ocr

import (
	"context"

	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// Options tune a single recognition call.
type Options struct {
	Language    string // tesseract language list, e.g. "vie+eng"
	PSM         int    // page segmentation mode; 0 keeps the engine default
	OEM         int    // 1 = LSTM; 0 keeps the engine default
	TessdataDir string
}

// Engine recognizes text lines in an encoded image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opt Options) ([]transcript.Fragment, error)
}

// MeanConfidence is the average fragment confidence, 0 for no fragments.
func MeanConfidence(fragments []transcript.Fragment) float64 {
	if len(fragments) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fragments {
		sum += f.Confidence
	}
	return sum / float64(len(fragments))
}
