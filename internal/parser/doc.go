// Package parser extracts the top-level declarations of Go source files.
//
// Each function, method and type becomes one Decl with its line span
// (widened to its doc comment); const and var blocks become one Decl per
// block. Files with syntax errors still yield the declarations of the
// partial AST:
//
//	res, err := parser.New().Parse("server.go", src)
//	for _, d := range res.Decls {
//	    fmt.Printf("%s %s %d-%d\n", d.Kind, d.Name, d.StartLine, d.EndLine)
//	}
package parser
