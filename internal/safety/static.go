package safety

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// deniedPackages are capabilities no synthesized candidate may import,
// keyed by import path. Matching is by path, so renaming the import does
// not evade the check.
var deniedPackages = map[string]string{
	"os/exec":  "command execution",
	"syscall":  "raw system calls",
	"plugin":   "dynamic code loading",
	"unsafe":   "unsafe memory access",
	"net":      "network access",
	"net/http": "network access",
}

// deniedCalls are specific functions denied inside otherwise allowed
// packages, keyed by import path then identifier.
var deniedCalls = map[string]map[string]string{
	"os": {
		"StartProcess": "process spawn",
	},
}

// StaticCheck parses the candidate and walks its AST for denylisted
// capabilities. Candidates may be full files or statement fragments;
// fragments are wrapped into a file before parsing. Code that does not even
// parse is rejected outright.
func StaticCheck(code string) Verdict {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", WrapFragment(code), 0)
	if err != nil {
		return Reject(fmt.Sprintf("candidate does not parse: %v", err))
	}

	// Resolve local import names to paths first, then judge selectors by
	// path rather than by whatever name the import was given.
	imports := make(map[string]string)
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return Reject(fmt.Sprintf("unreadable import path %s", imp.Path.Value))
		}
		if reason, denied := deniedPackages[path]; denied {
			return Reject(fmt.Sprintf("import %q: %s", path, reason))
		}
		name := path
		if i := strings.LastIndex(path, "/"); i >= 0 {
			name = path[i+1:]
		}
		if imp.Name != nil {
			if imp.Name.Name == "." {
				return Reject(fmt.Sprintf("dot import of %q obscures call origins", path))
			}
			name = imp.Name.Name
		}
		imports[name] = path
	}

	var verdict = Accept()
	ast.Inspect(file, func(n ast.Node) bool {
		if !verdict.Accepted {
			return false
		}
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		path, imported := imports[ident.Name]
		if !imported {
			return true
		}
		if reason, denied := deniedCalls[path][sel.Sel.Name]; denied {
			verdict = Reject(fmt.Sprintf("%s.%s: %s", path, sel.Sel.Name, reason))
			return false
		}
		return true
	})
	return verdict
}

// WrapFragment turns a statement fragment into a parseable file. Candidates
// that already declare a package pass through unchanged.
func WrapFragment(code string) string {
	if strings.HasPrefix(strings.TrimSpace(code), "package ") {
		return code
	}
	return "package main\n\nfunc main() {\n" + code + "\n}\n"
}
