package coverage

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"sort"
	"strconv"
	"sync"
)

const (
	// artifactName is the transient unit name used for parse diagnostics.
	artifactName = "artifact.go"

	// coverImportPath is the synthetic package exposing the hit recorder
	// to interpreted code.
	coverImportPath = "coverhit"
)

// instrument parses source and inserts a coverhit.Hit call before every
// function-body statement. It returns the rewritten source together with
// the ascending list of statement lines, in original artifact coordinates.
// The injected calls carry the original line number as a literal, so the
// reprinted layout never affects reported lines.
func instrument(source string) (string, []int, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, artifactName, source, 0)
	if err != nil {
		return "", nil, err
	}

	lines := make(map[int]struct{})
	// Switch and select bodies hold clauses, not statements; injecting
	// between the clauses would not parse. Only their clause bodies are
	// instrumented, via the CaseClause/CommClause arms below.
	clauseBodies := make(map[*ast.BlockStmt]struct{})
	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.SwitchStmt:
			clauseBodies[node.Body] = struct{}{}
		case *ast.TypeSwitchStmt:
			clauseBodies[node.Body] = struct{}{}
		case *ast.SelectStmt:
			clauseBodies[node.Body] = struct{}{}
		case *ast.IfStmt:
			// Rewrite `else if` into an else block so the nested
			// condition line lands in a statement list and gets its
			// own hit call.
			if elseIf, ok := node.Else.(*ast.IfStmt); ok {
				node.Else = &ast.BlockStmt{List: []ast.Stmt{elseIf}}
			}
		case *ast.BlockStmt:
			if _, ok := clauseBodies[node]; !ok {
				node.List = instrumentStmts(fset, node.List, lines)
			}
		case *ast.CaseClause:
			node.Body = instrumentStmts(fset, node.Body, lines)
		case *ast.CommClause:
			node.Body = instrumentStmts(fset, node.Body, lines)
		}
		return true
	})

	// The artifact must import the recorder package.
	importDecl := &ast.GenDecl{
		Tok: token.IMPORT,
		Specs: []ast.Spec{
			&ast.ImportSpec{
				Path: &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(coverImportPath)},
			},
		},
	}
	file.Decls = append([]ast.Decl{importDecl}, file.Decls...)

	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, file); err != nil {
		return "", nil, err
	}

	statements := make([]int, 0, len(lines))
	for line := range lines {
		statements = append(statements, line)
	}
	sort.Ints(statements)

	return buf.String(), statements, nil
}

// instrumentStmts rewrites a statement list so each statement is preceded
// by a recorder call for its original line.
func instrumentStmts(fset *token.FileSet, stmts []ast.Stmt, lines map[int]struct{}) []ast.Stmt {
	out := make([]ast.Stmt, 0, 2*len(stmts))
	for _, s := range stmts {
		line := fset.Position(s.Pos()).Line
		if line > 0 {
			lines[line] = struct{}{}
			out = append(out, hitCall(line))
		}
		out = append(out, s)
	}
	return out
}

// hitCall builds the statement `coverhit.Hit(line)`.
func hitCall(line int) ast.Stmt {
	return &ast.ExprStmt{
		X: &ast.CallExpr{
			Fun: &ast.SelectorExpr{
				X:   ast.NewIdent(coverImportPath),
				Sel: ast.NewIdent("Hit"),
			},
			Args: []ast.Expr{
				&ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(line)},
			},
		},
	}
}

// recorder accumulates hit lines for a single analyzer call. Generated
// tests are free to spawn goroutines, so access is serialized.
type recorder struct {
	mu         sync.Mutex
	statements map[int]struct{}
	hits       map[int]struct{}
}

func newRecorder(statements []int) *recorder {
	r := &recorder{
		statements: make(map[int]struct{}, len(statements)),
		hits:       make(map[int]struct{}, len(statements)),
	}
	for _, line := range statements {
		r.statements[line] = struct{}{}
	}
	return r
}

// Hit marks a statement line as executed. Called from interpreted code.
func (r *recorder) Hit(line int) {
	r.mu.Lock()
	r.hits[line] = struct{}{}
	r.mu.Unlock()
}

// missing returns registered statement lines that never executed, ascending.
func (r *recorder) missing() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []int
	for line := range r.statements {
		if _, ok := r.hits[line]; !ok {
			out = append(out, line)
		}
	}
	sort.Ints(out)
	return out
}
