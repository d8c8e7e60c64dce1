package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// GenerateKey builds the backend-namespace address for a stored object:
//
//	<prefix><category>/<unix-ms>_<fileID>_<sanitizedBase><ext>
//
// The timestamp component means repeated uploads of the same original name
// never collide; the fileID component ties the key irreversibly to the
// metadata record, so re-running an upload for the same record reuses a
// stable identity. Pure function of its inputs plus the supplied clock
// value: no I/O, cannot fail.
func GenerateKey(prefix, category, fileID, originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	return fmt.Sprintf("%s%s/%d_%s_%s%s",
		prefix, category, now.UnixMilli(), fileID, sanitizeBaseName(base), ext)
}

// sanitizeBaseName strips every character outside the safe
// alphanumeric/underscore/hyphen set so the key is valid in any backend
// namespace.
func sanitizeBaseName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "upload"
	}
	return sb.String()
}
