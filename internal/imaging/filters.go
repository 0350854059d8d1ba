package imaging

import (
	"image"
	"math"
)

const (
	inkBlock  = 35
	inkOffset = 15

	sharpenAlpha = 1.5
	sharpenBeta  = -0.5
	sharpenSigma = 3.0
)

// InkRatio is the share of pixels darker than their local mean by more than
// a fixed offset, the adaptive-threshold measure of printed content.
func InkRatio(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	integral := integralImage(g)
	r := inkBlock / 2
	ink := 0
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r+1, w)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] - integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))
			if float64(g.Pix[y*g.Stride+x]) < mean-inkOffset {
				ink++
			}
		}
	}
	return float64(ink) / float64(w*h)
}

func integralImage(g *image.Gray) []int64 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(g.Pix[y*g.Stride+x])
			out[(y+1)*(w+1)+x+1] = out[y*(w+1)+x+1] + row
		}
	}
	return out
}

// boxBlur3 softens heavy strokes with a 3x3 binomial kernel.
func boxBlur3(g *image.Gray) *image.Gray {
	return convolve(g, []float64{0.25, 0.5, 0.25})
}

// Sharpen applies an unsharp mask: alpha*img + beta*gaussian(img).
func Sharpen(g *image.Gray, alpha, beta float64) *image.Gray {
	blurred := convolve(g, gaussianKernel(sharpenSigma))
	out := image.NewGray(image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()))
	for y := 0; y < out.Rect.Dy(); y++ {
		for x := 0; x < out.Rect.Dx(); x++ {
			v := alpha*float64(g.Pix[y*g.Stride+x]) + beta*float64(blurred.Pix[y*blurred.Stride+x])
			out.Pix[y*out.Stride+x] = clamp8(v)
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	r := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+r] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// convolve runs a separable kernel horizontally then vertically, clamping
// at the borders.
func convolve(g *image.Gray, k []float64) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	r := len(k) / 2
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := 0.0
			for i, kv := range k {
				xx := min(max(x+i-r, 0), w-1)
				s += kv * float64(g.Pix[y*g.Stride+xx])
			}
			tmp[y*w+x] = s
		}
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := 0.0
			for i, kv := range k {
				yy := min(max(y+i-r, 0), h-1)
				s += kv * tmp[yy*w+x]
			}
			out.Pix[y*out.Stride+x] = clamp8(s)
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
