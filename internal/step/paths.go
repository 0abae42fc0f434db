package step

import "strings"

// ParentDir returns the directory portion of p exactly as spelled, so
// "./out/f.txt" yields "./out". Paths without a directory part, "." parents
// and the filesystem root report ok=false.
func ParentDir(p string) (string, bool) {
	trimmed := strings.TrimRight(p, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "", false
	}
	dir := strings.TrimRight(trimmed[:idx], "/")
	if dir == "" || dir == "." {
		return "", false
	}
	return dir, true
}
