// Package chunker splits source files into the chunks stored in the index.
//
// Go files are cut at top-level declarations, each chunk carrying the
// declared symbol's name and kind so lexical backends can weight symbol
// matches. Declarations longer than Config.MaxChunkLines are split into
// windows that keep the symbol name. Every other file is cut into
// overlapping line windows:
//
//	lines 1-60, 51-110, 101-160, ...   (WindowLines 60, Overlap 10)
//
// Line numbers are 1-based and inclusive, matching the ranges reported by
// the navigation service.
package chunker
