package extract

import (
	"regexp"
	"strings"

	"github.com/starford/notepress/internal/checksum"
)

// subtypeExt maps declared image subtypes to canonical file extensions.
var subtypeExt = map[string]string{
	"png":         "png",
	"jpeg":        "jpg",
	"jpg":         "jpg",
	"gif":         "gif",
	"webp":        "webp",
	"tiff":        "tiff",
	"bmp":         "bmp",
	"x-adobe-dng": "dng",
	"dng":         "dng",
	"svg+xml":     "svg",
	"svg":         "svg",
	"heic":        "heic",
	"heif":        "heif",
}

// dirDigestLen is the number of hex digits of the id digest kept in
// sanitized directory names.
const dirDigestLen = 8

var unsafeSegmentRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Extension returns the file extension for a declared image subtype.
// Subtypes missing from the table are used verbatim.
func Extension(subtype string) string {
	if ext, ok := subtypeExt[strings.ToLower(subtype)]; ok {
		return ext
	}
	return subtype
}

// MediaType returns the normalized media type for a declared image subtype.
func MediaType(subtype string) string {
	return "image/" + strings.ToLower(subtype)
}

// DirName returns the attachment directory for a record id. Ids that are
// already safe path segments are returned unchanged; any other id is
// sanitized and suffixed with a digest of the raw id so that distinct ids
// never share a directory.
func DirName(recordID string) string {
	dir := unsafeSegmentRe.ReplaceAllString(recordID, "_")
	switch dir {
	case "", ".", "..":
		dir = strings.Repeat("_", max(len(dir), 1))
	}
	if dir == recordID {
		return dir
	}
	return dir + "-" + checksum.Sum([]byte(recordID))[:dirDigestLen]
}
