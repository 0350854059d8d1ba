//go:build !ocr

package tesseract

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

func TestStubReportsNotEnabled(t *testing.T) {
	_, err := New().Recognize(context.Background(), []byte{1}, ocrOptions())
	if !errors.Is(err, common.ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
}
