package fps4

import "strings"

// NormalizePath converts a user-provided member path to fs.ValidPath form.
//
// Backslashes become slashes, leading and trailing slashes are stripped,
// runs of slashes collapse to one, and an empty path becomes ".":
//
//	"\\chara\\face.tm2" → "chara/face.tm2"
//	"/btl//map/" → "btl/map"
//	"" → "."
//
// "." and ".." elements are preserved; fs.FS methods reject them through
// fs.ValidPath.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "."
	}
	return strings.Join(kept, "/")
}
