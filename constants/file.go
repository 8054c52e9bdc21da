package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for exam ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// Defaults for document handling.
const (
	MaxDownloadMBDefault = 50  // content-length cap for remote documents
	RasterDPIDefault     = 200 // legibility vs payload-size trade-off point
	MetadataPageCount    = 3   // pages sent to the metadata extraction call
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether a normalized extension is accepted for ingestion.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
