package parser

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/dshills/coderecall/pkg/types"
)

// Decl is one top-level declaration of a Go file
type Decl struct {
	Name      string // empty for grouped const/var blocks
	Kind      types.SymbolKind
	Receiver  string // methods only
	StartLine int    // first line of the doc comment when there is one
	EndLine   int
}

// Result is what Parse extracted from one file
type Result struct {
	PackageName string
	Decls       []Decl
	// SyntaxError is set when the file did not parse cleanly; Decls then
	// come from the partial AST.
	SyntaxError error
}

// Parser extracts declarations from Go source
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Parse parses src and returns its top-level declarations in source order.
// An error is returned only when src has no package clause.
func (p *Parser) Parse(filename string, src []byte) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	// Without a package clause the file is not Go at all
	if file == nil || !file.Package.IsValid() {
		if err == nil {
			err = errors.New("missing package clause")
		}
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	result := &Result{SyntaxError: err}
	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	e := &declExtractor{fset: fset}
	for _, d := range file.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			e.extractFunction(n)
		case *ast.GenDecl:
			e.extractGenDecl(n)
		}
	}
	result.Decls = e.decls
	return result, nil
}

// declExtractor collects declarations from one file
type declExtractor struct {
	fset  *token.FileSet
	decls []Decl
}

func (e *declExtractor) line(pos token.Pos) int {
	return e.fset.Position(pos).Line
}

// span returns the line range of node, widened to its doc comment
func (e *declExtractor) span(node ast.Node, doc *ast.CommentGroup) (int, int) {
	start := e.line(node.Pos())
	if doc != nil {
		if l := e.line(doc.Pos()); l < start {
			start = l
		}
	}
	return start, e.line(node.End())
}

// extractFunction records function and method declarations
func (e *declExtractor) extractFunction(fn *ast.FuncDecl) {
	d := Decl{
		Name: fn.Name.Name,
		Kind: types.KindFunction,
	}
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		d.Kind = types.KindMethod
		d.Receiver = receiverType(fn.Recv.List[0].Type)
	}
	d.StartLine, d.EndLine = e.span(fn, fn.Doc)
	e.decls = append(e.decls, d)
}

// extractGenDecl records types one by one and const/var blocks as a whole
func (e *declExtractor) extractGenDecl(gen *ast.GenDecl) {
	switch gen.Tok {
	case token.TYPE:
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			d := Decl{Name: ts.Name.Name, Kind: typeKind(ts)}
			if gen.Lparen.IsValid() {
				d.StartLine, d.EndLine = e.span(ts, ts.Doc)
			} else {
				d.StartLine, d.EndLine = e.span(gen, gen.Doc)
			}
			e.decls = append(e.decls, d)
		}

	case token.CONST, token.VAR:
		kind := types.KindVar
		if gen.Tok == token.CONST {
			kind = types.KindConst
		}
		d := Decl{Kind: kind}
		if len(gen.Specs) == 1 {
			if vs, ok := gen.Specs[0].(*ast.ValueSpec); ok && len(vs.Names) == 1 {
				d.Name = vs.Names[0].Name
			}
		}
		d.StartLine, d.EndLine = e.span(gen, gen.Doc)
		e.decls = append(e.decls, d)
	}
}

func typeKind(ts *ast.TypeSpec) types.SymbolKind {
	switch ts.Type.(type) {
	case *ast.StructType:
		return types.KindStruct
	case *ast.InterfaceType:
		return types.KindInterface
	default:
		return types.KindType
	}
}

// receiverType extracts the receiver type name from a method
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}
