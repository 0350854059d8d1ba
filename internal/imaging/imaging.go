// Package imaging prepares transcript photos for OCR: orientation, skew,
// table detection, stamp removal and sharpening.
package imaging

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

// ErrNoScoreTable is returned when a page has too little ink to hold a
// score table.
var ErrNoScoreTable = errors.New("page has no score table")

// DefaultInkRatio is the minimum share of ink pixels for a page to count
// as a score table.
const DefaultInkRatio = 0.02

// Options selects preprocessing steps.
type Options struct {
	Deskew       bool
	RemoveStamps bool
	Sharpen      bool
	RequireTable bool
	// MinInkRatio overrides DefaultInkRatio when positive.
	MinInkRatio float64
}

// OptionsFromConfig maps environment configuration to Options.
func OptionsFromConfig(cfg common.ImagingConfig) Options {
	return Options{
		Deskew:       cfg.Deskew,
		RemoveStamps: cfg.RemoveStamps,
		Sharpen:      cfg.Sharpen,
		RequireTable: cfg.RequireTable,
	}
}

// Result is the processed image and what was done to it.
type Result struct {
	Data        []byte
	Format      string
	Width       int
	Height      int
	Rotated     bool
	SkewAngle   float64 // degrees, 0 when not corrected
	InkRatio    float64
	StampPixels int
}

type Preprocessor struct {
	opts   Options
	logger *slog.Logger
}

func NewPreprocessor(opts Options, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinInkRatio <= 0 {
		opts.MinInkRatio = DefaultInkRatio
	}
	return &Preprocessor{opts: opts, logger: logger}
}

// Process decodes data, runs the enabled steps and re-encodes the result in
// the source format where possible.
func (p *Preprocessor) Process(ctx context.Context, data []byte) (*Result, error) {
	src, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	img := toNRGBA(src)
	if b := img.Bounds(); b.Dx() > b.Dy() {
		img = rotate90CCW(img)
		res.Rotated = true
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.opts.Deskew {
		angle := EstimateSkew(toGray(img))
		if abs(angle) >= minSkewDegrees && abs(angle) <= maxSkewDegrees {
			img = rotate(img, -angle)
			res.SkewAngle = angle
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.InkRatio = InkRatio(toGray(img))
	if p.opts.RequireTable && res.InkRatio <= p.opts.MinInkRatio {
		p.logger.Info("imaging.no_table", "ink_ratio", res.InkRatio)
		return nil, common.NewAppError(common.CodeImage, "score table check failed", ErrNoScoreTable)
	}

	if p.opts.RemoveStamps {
		res.StampPixels = RemoveStamps(img)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out image.Image = img
	if p.opts.Sharpen {
		gray := boxBlur3(toGray(img))
		out = Sharpen(gray, sharpenAlpha, sharpenBeta)
	}

	encoded, outFormat, err := Encode(out, format)
	if err != nil {
		return nil, err
	}
	b := out.Bounds()
	res.Data, res.Format, res.Width, res.Height = encoded, outFormat, b.Dx(), b.Dy()

	p.logger.Debug("imaging.done",
		"format", outFormat,
		"rotated", res.Rotated,
		"skew", res.SkewAngle,
		"ink_ratio", res.InkRatio,
		"stamp_pixels", res.StampPixels,
	)
	return res, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
