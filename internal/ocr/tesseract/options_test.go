package tesseract

import "github.com/joseph-ayodele/transcript-reader/internal/ocr"

func ocrOptions() ocr.Options {
	return ocr.Options{Language: "eng", PSM: 6}
}
