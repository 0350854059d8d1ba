package constants

import "strings"

// AllowedExtensions holds the image extensions accepted for transcript ingestion.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
	"gif":  {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHEIC reports whether ext (with or without dot) is an HEIC/HEIF container.
func IsHEIC(ext string) bool {
	e := NormalizeExt(ext)
	return e == "heic" || e == "heif"
}
