package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

// Decode reads any registered raster format and reports its name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", common.NewAppError(common.CodeImage, "decode image",
			fmt.Errorf("%w: %v", common.ErrUnsupported, err))
	}
	return img, format, nil
}

// Encode writes img in format. Formats without an encoder here (webp, gif)
// fall back to png; the returned name is the format actually written.
func Encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		format = "png"
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", common.NewAppError(common.CodeImage, "encode "+format, err)
	}
	return buf.Bytes(), format, nil
}

// Extension is the file extension for an encoded format.
func Extension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "tiff":
		return ".tif"
	default:
		return "." + format
	}
}
