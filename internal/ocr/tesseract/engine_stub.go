//go:build !ocr

package tesseract

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// ErrNotEnabled is returned when the binary was built without the "ocr" tag.
var ErrNotEnabled = errors.New("libtesseract support not enabled: build with -tags ocr")

type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "tesseract-lib" }

func (e *Engine) Recognize(context.Context, []byte, ocr.Options) ([]transcript.Fragment, error) {
	return nil, common.NewAppError(common.CodeUnsupported, ErrNotEnabled.Error(), common.ErrUnsupported)
}
