package navigation

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIToPath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"windows drive", "file:///C:/src/app/main.go", "C:/src/app/main.go"},
		{"windows escaped colon", "file:///c%3A/src/main.go", "c:/src/main.go"},
		{"escaped space", "file:///home/dev/my%20app/a.go", filepath.FromSlash("/home/dev/my app/a.go")},
		{"plain", "file:///home/dev/a.go", filepath.FromSlash("/home/dev/a.go")},
		{"not a file uri", "untitled:Untitled-1", "untitled:Untitled-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URIToPath(tt.uri))
		})
	}
}

func TestPathToURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	uri := PathToURI("/home/dev/my app/a.go")
	assert.Equal(t, "file:///home/dev/my%20app/a.go", uri)
	assert.Equal(t, "/home/dev/my app/a.go", URIToPath(uri))
}
