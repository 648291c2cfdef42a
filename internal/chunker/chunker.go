package chunker

import (
	"path/filepath"
	"strings"

	"github.com/dshills/coderecall/internal/parser"
	"github.com/dshills/coderecall/internal/storage"
)

const (
	DefaultWindowLines   = 60
	DefaultOverlap       = 10
	DefaultMaxChunkLines = 200
)

// Chunk types
const (
	TypeDecl   = "declaration"
	TypeWindow = "window"
)

// Config controls chunk sizes. Zero values take the defaults.
type Config struct {
	WindowLines   int // lines per window for files without declarations
	Overlap       int // lines shared by consecutive windows, negative for none
	MaxChunkLines int // declarations longer than this are split into windows
}

func (c Config) withDefaults() Config {
	if c.WindowLines <= 0 {
		c.WindowLines = DefaultWindowLines
	}
	if c.Overlap == 0 {
		c.Overlap = DefaultOverlap
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowLines {
		c.Overlap = 0
	}
	if c.MaxChunkLines <= 0 {
		c.MaxChunkLines = DefaultMaxChunkLines
	}
	return c
}

// Chunker splits source files into searchable chunks
type Chunker struct {
	cfg    Config
	parser *parser.Parser
}

// New creates a new Chunker instance
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.withDefaults(), parser: parser.New()}
}

// ChunkFile splits content into chunks. Go files are cut at top-level
// declarations; other files, and Go files that yield no declarations, are
// cut into overlapping line windows. Blank chunks are dropped.
func (c *Chunker) ChunkFile(path string, content []byte) []*storage.Chunk {
	lines := splitLines(string(content))
	if len(lines) == 0 {
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".go") {
		if chunks := c.chunkGo(path, content, lines); len(chunks) > 0 {
			return chunks
		}
	}
	return c.windows(lines, 1, len(lines), "", "")
}

// chunkGo emits one chunk per declaration, splitting oversized ones
func (c *Chunker) chunkGo(path string, content []byte, lines []string) []*storage.Chunk {
	res, err := c.parser.Parse(path, content)
	if err != nil {
		return nil
	}

	var chunks []*storage.Chunk
	for _, d := range res.Decls {
		start, end := clamp(d.StartLine, d.EndLine, len(lines))
		if start > end {
			continue
		}
		if end-start+1 > c.cfg.MaxChunkLines {
			chunks = append(chunks, c.windows(lines, start, end, d.Name, string(d.Kind))...)
			continue
		}
		if ch := newChunk(lines, start, end, d.Name, string(d.Kind), TypeDecl); ch != nil {
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

// windows cuts lines[from..to] (1-based, inclusive) into overlapping windows
func (c *Chunker) windows(lines []string, from, to int, name, kind string) []*storage.Chunk {
	size := c.cfg.WindowLines
	if name != "" && size > c.cfg.MaxChunkLines {
		size = c.cfg.MaxChunkLines
	}
	step := size - c.cfg.Overlap
	if step <= 0 {
		step = size
	}

	var chunks []*storage.Chunk
	for start := from; start <= to; start += step {
		end := start + size - 1
		if end > to {
			end = to
		}
		if ch := newChunk(lines, start, end, name, kind, TypeWindow); ch != nil {
			chunks = append(chunks, ch)
		}
		if end == to {
			break
		}
	}
	return chunks
}

func newChunk(lines []string, start, end int, name, kind, chunkType string) *storage.Chunk {
	content := strings.Join(lines[start-1:end], "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return &storage.Chunk{
		SymbolName: name,
		SymbolKind: kind,
		Content:    content,
		StartLine:  start,
		EndLine:    end,
		ChunkType:  chunkType,
	}
}

func clamp(start, end, n int) (int, int) {
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	return start, end
}

// splitLines splits on newlines, dropping the empty tail after a final newline
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
