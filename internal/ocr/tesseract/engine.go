//go:build ocr

// Package tesseract recognizes transcript lines in-process through
// libtesseract (gosseract). It requires the "ocr" build tag:
//
//	go build -tags ocr ./...
//
// Without the tag, New returns an engine whose Recognize fails with
// ErrNotEnabled.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// Engine implements ocr.Engine with one gosseract client per call.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a libtesseract-backed engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract-lib" }

// Recognize runs OCR on one image and returns a fragment per text line.
func (e *Engine) Recognize(ctx context.Context, image []byte, opt ocr.Options) ([]transcript.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer c.Close()

	if opt.TessdataDir != "" {
		if err := c.SetTessdataPrefix(opt.TessdataDir); err != nil {
			return nil, fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(languages(opt.Language)...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if opt.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opt.PSM)); err != nil {
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	out := make([]transcript.Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, transcript.Fragment{Text: text, Confidence: b.Confidence / 100.0})
	}
	return out, nil
}

func languages(list string) []string {
	if list == "" {
		return []string{"vie", "eng"}
	}
	return strings.Split(list, "+")
}
