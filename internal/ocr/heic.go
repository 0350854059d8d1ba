package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 of the source file so the
// HEIC converter can reuse a cached PNG.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// HEICConverter turns HEIC/HEIF bytes into PNG bytes with an external tool
// (heif-convert, magick or sips). When CacheDir is set and the context
// carries a content hash, the PNG is kept at {CacheDir}/{hash}.png.
type HEICConverter struct {
	Converter string
	CacheDir  string
	Runner    Runner
	Logger    *slog.Logger
}

func (c HEICConverter) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ToPNG converts data and returns the PNG bytes.
func (c HEICConverter) ToPNG(ctx context.Context, data []byte) ([]byte, error) {
	logger := c.logger()
	hashHex, hashed := contentHashFromCtx(ctx)
	cached := ""
	if c.CacheDir != "" && hashed {
		cached = filepath.Join(c.CacheDir, hashHex+".png")
		if b, err := os.ReadFile(cached); err == nil {
			logger.Debug("using cached heic->png", "cache", cached)
			return b, nil
		}
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			return nil, common.NewAppError(common.CodeOCR, "create heic cache dir", err)
		}
	}

	tmpDir, err := os.MkdirTemp("", "tr-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "page.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	var args []string
	switch c.Converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, common.NewAppError(common.CodeUnsupported,
			"HEIC not supported: set HEIC_CONVERTER to one of heif-convert | magick | sips",
			common.ErrUnsupported)
	}
	if _, errb, err := runner.Run(ctx, c.Converter, args...); err != nil {
		return nil, common.NewAppError(common.CodeOCR,
			fmt.Sprintf("%s failed: %s", c.Converter, truncate(string(errb), 512)), err)
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, common.NewAppError(common.CodeOCR, "HEIC conversion produced no output", err)
	}

	if cached != "" {
		// write-then-rename so concurrent workers never read a partial file
		tmp := cached + ".tmp"
		if err := os.WriteFile(tmp, png, 0o644); err != nil {
			logger.Warn("heic cache write failed", "cache", cached, "error", err)
		} else if err := os.Rename(tmp, cached); err != nil && !errors.Is(err, os.ErrExist) {
			_ = os.Remove(tmp)
			logger.Warn("heic cache rename failed", "cache", cached, "error", err)
		} else {
			logger.Debug("cached heic->png", "cache", cached)
		}
	}
	return png, nil
}
