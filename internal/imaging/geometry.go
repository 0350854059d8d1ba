package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	minSkewDegrees = 3.0
	maxSkewDegrees = 15.0
	// skew is estimated on a copy no wider than this
	skewSampleWidth = 800
)

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// rotate90CCW turns a landscape page upright.
func rotate90CCW(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// (x, y) -> (y, w-1-x)
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(y, w-1-x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// rotate turns src by degrees about its center (positive is clockwise on
// screen, since y grows downward). Uncovered corners are painted white.
func rotate(src *image.NRGBA, degrees float64) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	s2d := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)
	return dst
}

// EstimateSkew returns the angle in degrees of the dominant text lines,
// positive when lines run downward to the right. It searches ±15 degrees
// for the rotation that makes the row projection of ink the most peaked.
func EstimateSkew(gray *image.Gray) float64 {
	sample := downscale(gray, skewSampleWidth)
	xs, ys := inkPoints(sample)
	if len(xs) == 0 {
		return 0
	}
	diag := int(math.Hypot(float64(sample.Bounds().Dx()), float64(sample.Bounds().Dy()))) + 2

	best, bestScore := 0.0, -1.0
	search := func(from, to, step float64) {
		for a := from; a <= to+1e-9; a += step {
			if s := projectionScore(xs, ys, a, diag); s > bestScore {
				best, bestScore = a, s
			}
		}
	}
	search(-maxSkewDegrees, maxSkewDegrees, 1)
	search(best-1, best+1, 0.1)
	return math.Round(best*10) / 10
}

func downscale(src *image.Gray, maxWidth int) *image.Gray {
	b := src.Bounds()
	if b.Dx() <= maxWidth {
		return src
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewGray(image.Rect(0, 0, maxWidth, max(h, 1)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func inkPoints(g *image.Gray) (xs, ys []float64) {
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y < 128 {
				xs = append(xs, float64(x-b.Min.X))
				ys = append(ys, float64(y-b.Min.Y))
			}
		}
	}
	return xs, ys
}

// projectionScore bins ink by its distance along the normal of lines at
// angle degrees and sums the squared bin counts.
func projectionScore(xs, ys []float64, degrees float64, bins int) float64 {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	hist := make([]float64, 2*bins)
	for i := range xs {
		d := int(math.Round(-xs[i]*sin+ys[i]*cos)) + bins
		if d >= 0 && d < len(hist) {
			hist[d]++
		}
	}
	score := 0.0
	for _, c := range hist {
		score += c * c
	}
	return score
}
