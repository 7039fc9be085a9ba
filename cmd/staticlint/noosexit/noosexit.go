package noosexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports calls inside main.main that terminate the process without
// running deferred calls: os.Exit and the log.Fatal family. The service relies
// on deferred cleanup (closing the storage, flushing the logger) in main.
var Analyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "prohibits direct use of os.Exit and log.Fatal in main.main",
	Run:  run,
}

var forbiddenCalls = map[string]map[string]bool{
	"os": {
		"Exit": true,
	},
	"log": {
		"Fatal":   true,
		"Fatalf":  true,
		"Fatalln": true,
	},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}

				pkgPath, ok := importedPackage(pass, sel.X)
				if ok && forbiddenCalls[pkgPath][sel.Sel.Name] {
					pass.Reportf(call.Pos(), "avoid using %s.%s in main.main", pkgPath, sel.Sel.Name)
				}

				return true
			})
		}
	}
	return nil, nil
}

// importedPackage resolves the package an identifier refers to, so renamed
// imports are caught and local variables called os are not.
func importedPackage(pass *analysis.Pass, expr ast.Expr) (string, bool) {
	ident, ok := expr.(*ast.Ident)
	if !ok {
		return "", false
	}

	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	if !ok {
		return "", false
	}

	return pkgName.Imported().Path(), true
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
