package chunker

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".py":    "python",
	".rs":    "rust",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cc":    "cpp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".cs":    "csharp",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".proto": "protobuf",
	".sql":   "sql",
	".sh":    "shell",
}

// Language returns the language of path by extension, or "" when the file
// is not indexed
func Language(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}

// IsTestFile reports whether path follows a test file naming convention
func IsTestFile(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{
		"_test.go",
		".test.ts", ".test.tsx", ".test.js", ".test.jsx",
		".spec.ts", ".spec.tsx", ".spec.js", ".spec.jsx",
		"_test.py", "_spec.rb", "_test.rs",
	} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.HasPrefix(lower, "test_") && strings.HasSuffix(lower, ".py")
}
