package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"testing"
)

func whitePage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// ruledPage draws dark text-like lines every spacing pixels, tilted by
// degrees.
func ruledPage(w, h, spacing int, degrees float64) *image.NRGBA {
	img := whitePage(w, h)
	slope := math.Tan(degrees * math.Pi / 180)
	for y0 := -h; y0 < 2*h; y0 += spacing {
		for x := 20; x < w-20; x++ {
			y := float64(y0) + float64(x)*slope
			for dy := 0; dy < 3; dy++ {
				yy := int(y) + dy
				if yy >= 0 && yy < h {
					img.Set(x, yy, color.Black)
				}
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeDecode(t *testing.T) {
	img := ruledPage(60, 80, 10, 0)
	for _, format := range []string{"png", "jpeg", "bmp", "tiff"} {
		data, got, err := Encode(img, format)
		if err != nil {
			t.Fatalf("Encode(%s): %v", format, err)
		}
		if got != format {
			t.Fatalf("Encode(%s) wrote %s", format, got)
		}
		back, decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", format, err)
		}
		if decoded != format || back.Bounds().Dx() != 60 || back.Bounds().Dy() != 80 {
			t.Fatalf("Decode(%s) = %s %v", format, decoded, back.Bounds())
		}
	}

	if _, got, _ := Encode(img, "webp"); got != "png" {
		t.Fatalf("webp should fall back to png, got %s", got)
	}
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("Decode of garbage should fail")
	}
}

func TestRotate90CCW(t *testing.T) {
	img := whitePage(3, 2)
	img.Set(2, 0, color.Black) // top-right
	out := rotate90CCW(img)
	if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if r, _, _, _ := out.At(0, 0).RGBA(); r != 0 {
		t.Fatal("top-right pixel should move to top-left")
	}
}

func TestEstimateSkew(t *testing.T) {
	for _, want := range []float64{0, 6, -8} {
		got := EstimateSkew(toGray(ruledPage(400, 300, 20, want)))
		if math.Abs(got-want) > 1 {
			t.Errorf("EstimateSkew(%v) = %v", want, got)
		}
	}
}

func TestDeskewStraightensLines(t *testing.T) {
	tilted := ruledPage(400, 300, 20, 6)
	angle := EstimateSkew(toGray(tilted))
	straight := rotate(tilted, -angle)
	if got := EstimateSkew(toGray(straight)); math.Abs(got) > 1 {
		t.Fatalf("after deskew skew = %v", got)
	}
}

func TestInkRatio(t *testing.T) {
	if got := InkRatio(toGray(whitePage(100, 100))); got != 0 {
		t.Fatalf("blank page ink = %v", got)
	}
	if got := InkRatio(toGray(ruledPage(200, 200, 12, 0))); got <= DefaultInkRatio {
		t.Fatalf("ruled page ink = %v", got)
	}
}

func TestRemoveStamps(t *testing.T) {
	img := ruledPage(60, 60, 30, 0)
	red := color.NRGBA{R: 220, G: 30, B: 40, A: 255}
	draw.Draw(img, image.Rect(20, 20, 30, 30), image.NewUniform(red), image.Point{}, draw.Src)

	if n := RemoveStamps(img); n != 100 {
		t.Fatalf("repainted %d pixels, want 100", n)
	}
	for y := 20; y < 30; y++ {
		for x := 20; x < 30; x++ {
			c := img.NRGBAAt(x, y)
			if isStampRed(c.R, c.G, c.B) {
				t.Fatalf("pixel (%d,%d) still red: %v", x, y, c)
			}
		}
	}
	if c := img.NRGBAAt(25, 0); c.R != 0 {
		t.Fatal("black text pixel changed")
	}
}

func TestIsStampRed(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    bool
	}{
		{220, 30, 40, true},
		{200, 20, 120, true}, // magenta-red, hue ~336
		{30, 30, 30, false},
		{255, 255, 255, false},
		{40, 60, 200, false},
		{40, 5, 5, false}, // too dark
	}
	for _, tt := range tests {
		if got := isStampRed(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("isStampRed(%d,%d,%d) = %v", tt.r, tt.g, tt.b, got)
		}
	}
}

func TestSharpenUniformIsStable(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range g.Pix {
		g.Pix[i] = 128
	}
	out := Sharpen(g, sharpenAlpha, sharpenBeta)
	for i, v := range out.Pix {
		if v != 128 {
			t.Fatalf("pixel %d = %d, want 128", i, v)
		}
	}
}

func TestProcess(t *testing.T) {
	p := NewPreprocessor(Options{Deskew: true, RemoveStamps: true, Sharpen: true, RequireTable: true}, nil)

	landscape := ruledPage(300, 200, 12, 0)
	res, err := p.Process(context.Background(), encodePNG(t, landscape))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Rotated || res.Width != 200 || res.Height != 300 || res.Format != "png" {
		t.Fatalf("Result = %+v", res)
	}
	if _, _, err := Decode(res.Data); err != nil {
		t.Fatalf("output not decodable: %v", err)
	}

	_, err = p.Process(context.Background(), encodePNG(t, whitePage(100, 150)))
	if !errors.Is(err, ErrNoScoreTable) {
		t.Fatalf("blank page error = %v, want ErrNoScoreTable", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, encodePNG(t, landscape)); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled Process error = %v", err)
	}
}
