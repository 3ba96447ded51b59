package search

import (
	"regexp"
	"strings"
)

// chunkName matches the blob paths written by the chunking pipeline:
// ".../intermediate/<name>.pdf_chunk_<n>_pages_<a>_to_<b>.pdf".
var chunkName = regexp.MustCompile(`.*intermediate/(.*)\.pdf_chunk_.*(_pages_\d+_to_\d+\.pdf)`)

// CleanFileName turns a chunk blob path into a readable label, e.g.
// "raw/intermediate/sea_level.pdf_chunk_2_pages_11_to_20.pdf" becomes
// "sea.level_pages_11_to_20.pdf". Only the first underscore of the result is
// replaced with a dot. Names that do not match are returned with that same
// single replacement applied.
func CleanFileName(fileName string) string {
	return strings.Replace(chunkName.ReplaceAllString(fileName, "$1$2"), "_", ".", 1)
}

// BaseName returns the part of a chunk file name before "_chunk_", which
// identifies the source PDF all of its chunks share.
func BaseName(fileName string) string {
	base, _, _ := strings.Cut(fileName, "_chunk_")
	return base
}
