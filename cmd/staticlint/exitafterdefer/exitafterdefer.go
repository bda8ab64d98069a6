// Package exitafterdefer reports calls in main.main that end the process once a
// defer has been registered, since the deferred cleanup never runs.
package exitafterdefer

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the exitafterdefer analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "exitafterdefer",
	Doc:      "reports os.Exit, log.Fatal and zap Fatal calls in main.main that follow a defer",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// exiting lists, per package path, the functions and methods that never return.
var exiting = map[string]map[string]struct{}{
	"os":              {"Exit": {}},
	"log":             {"Fatal": {}, "Fatalf": {}, "Fatalln": {}},
	"go.uber.org/zap": {"Fatal": {}, "Fatalf": {}, "Fatalw": {}, "Fatalln": {}},
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg == nil || pass.Pkg.Name() != "main" {
		return nil, nil
	}

	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, errors.New("exitafterdefer: inspector result missing")
	}

	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fd, ok := n.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || fd.Name.Name != "main" || fd.Body == nil {
			return
		}

		first := firstDefer(fd.Body)
		if first == token.NoPos {
			return
		}
		ast.Inspect(fd.Body, func(nn ast.Node) bool {
			switch x := nn.(type) {
			case *ast.FuncLit:
				return false
			case *ast.CallExpr:
				if x.Pos() > first {
					if name, ok := exitCall(pass, x); ok {
						pass.Reportf(x.Pos(), "%s after defer skips deferred calls; return an error from a helper instead", name)
					}
				}
			}
			return true
		})
	})

	return nil, nil
}

// firstDefer returns the position of the earliest defer in body outside of function literals.
func firstDefer(body *ast.BlockStmt) token.Pos {
	first := token.NoPos
	ast.Inspect(body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.DeferStmt:
			if first == token.NoPos || x.Pos() < first {
				first = x.Pos()
			}
		}
		return true
	})
	return first
}

// exitCall reports whether call never returns and names the callee.
func exitCall(pass *analysis.Pass, call *ast.CallExpr) (string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || pass.TypesInfo == nil {
		return "", false
	}
	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}
	names, ok := exiting[fn.Pkg().Path()]
	if !ok {
		return "", false
	}
	if _, ok := names[fn.Name()]; !ok {
		return "", false
	}
	return fn.Pkg().Name() + "." + fn.Name(), true
}
