package imaging

import (
	"image"
)

const stampRadius = 3

// isStampRed reports whether an RGB color falls in the red hue bands of an
// ink stamp: hue within 20 degrees of red with saturation and value of at
// least 50/255.
func isStampRed(r, g, b uint8) bool {
	h, s, v := hsv(r, g, b)
	if s < 50.0/255 || v < 50.0/255 {
		return false
	}
	return h <= 20 || h >= 320
}

// hsv returns hue in degrees [0, 360) and saturation/value in [0, 1].
func hsv(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	hi := max(rf, gf, bf)
	lo := min(rf, gf, bf)
	v = hi
	d := hi - lo
	if hi == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / hi
	switch hi {
	case rf:
		h = 60 * (gf - bf) / d
	case gf:
		h = 60 * ((bf-rf)/d + 2)
	default:
		h = 60 * ((rf-gf)/d + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// RemoveStamps repaints red stamp pixels with the mean of the non-red
// pixels around them, or white when there are none, and returns how many
// pixels were repainted. img is modified in place.
func RemoveStamps(img *image.NRGBA) int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if isStampRed(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				mask[y*w+x] = true
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			var sr, sg, sb, n int
			for yy := max(y-stampRadius, 0); yy < min(y+stampRadius+1, h); yy++ {
				for xx := max(x-stampRadius, 0); xx < min(x+stampRadius+1, w); xx++ {
					if mask[yy*w+xx] {
						continue
					}
					j := img.PixOffset(b.Min.X+xx, b.Min.Y+yy)
					sr += int(src[j])
					sg += int(src[j+1])
					sb += int(src[j+2])
					n++
				}
			}
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if n == 0 {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255, 255, 255
			} else {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = uint8(sr/n), uint8(sg/n), uint8(sb/n)
			}
			img.Pix[i+3] = 255
		}
	}
	return count
}
