// Package main rewrites enumer-generated files to build errors with
// cockroachdb/errors instead of fmt.Errorf.
//
// Usage:
//
//	enumerfix <file> [<file>...]
package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/ast/astutil"
)

const (
	minArgs         = 2
	filePermissions = 0o644

	errorsImport = "github.com/cockroachdb/errors"
)

// ErrUsage indicates incorrect usage of the tool.
var ErrUsage = errors.New("usage: enumerfix <file> [<file>...]")

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < minArgs {
		return ErrUsage
	}

	for _, filename := range args[1:] {
		if err := fixFile(filename); err != nil {
			return errors.Wrapf(err, "fixing %s", filename)
		}
	}

	return nil
}

func fixFile(filename string) error {
	//nolint:gosec // G304: File path from CLI argument is expected
	content, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}

	fixed, err := fixSource(content)
	if err != nil {
		return err
	}

	if bytes.Equal(fixed, content) {
		return nil
	}

	return errors.Wrap(os.WriteFile(filename, fixed, filePermissions), "writing file")
}

// fixSource replaces fmt.Errorf calls with errors.Newf and fixes the imports.
// Sources without fmt.Errorf are returned unchanged.
func fixSource(src []byte) ([]byte, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "parsing file")
	}

	if !rewriteErrorf(file) {
		return src, nil
	}

	astutil.AddImport(fset, file, errorsImport)

	if !astutil.UsesImport(file, "fmt") {
		astutil.DeleteImport(fset, file, "fmt")
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, errors.Wrap(err, "formatting file")
	}

	return buf.Bytes(), nil
}

// rewriteErrorf turns every fmt.Errorf selector into errors.Newf and reports
// whether anything changed.
func rewriteErrorf(file *ast.File) bool {
	changed := false

	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}

		pkg, ok := sel.X.(*ast.Ident)
		if !ok || pkg.Name != "fmt" || sel.Sel.Name != "Errorf" {
			return true
		}

		pkg.Name = "errors"
		sel.Sel.Name = "Newf"
		changed = true

		return false
	})

	return changed
}
