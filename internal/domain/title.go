package domain

import (
	"path/filepath"
	"strings"
)

// titleMarker is the filename convention token separating the
// primary-language title from the alternate-language one, e.g.
// "CoverEnglishTitleCoverEng.jpg" carries title "Cover" and
// alternate title "CoverEng".
const titleMarker = "EnglishTitle"

// SplitTitle derives the record title pair from an original filename.
// Without the marker the whole base name becomes the title.
func SplitTitle(originalName string) (title, titleAlt string) {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if idx := strings.Index(base, titleMarker); idx >= 0 {
		return base[:idx], base[idx+len(titleMarker):]
	}
	return base, ""
}
