package navigation

import (
	"net/url"
	"path/filepath"
	"strings"
)

// PathToURI converts a file path to a file:// URI
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p := filepath.ToSlash(abs)
	if isDriveLetterPath(p) {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// URIToPath converts a file:// URI to an OS path. Windows drive letter URIs
// (file:///C:/src/main.go) lose the leading slash. Anything that is not a
// file URI is returned unchanged.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}

	p := strings.TrimPrefix(uri, "file://")
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	} else if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}

	if len(p) >= 3 && p[0] == '/' && isDriveLetterPath(p[1:]) {
		// Keep forward slashes so the result is stable on every OS
		return p[1:]
	}
	return filepath.FromSlash(p)
}

// isDriveLetterPath reports whether p starts with "C:" style volume
func isDriveLetterPath(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
