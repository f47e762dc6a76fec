// Package arch_test holds structural checks over the internal packages.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

const modulePath = "github.com/papapumpkin/gantry"

// enginePackages compute over a task store and never reach the terminal or
// the disk.
var enginePackages = []string{"calendar", "dag", "graph", "schedule", "task"}

// internalDir returns the absolute path of internal/, found relative to
// this file.
func internalDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(filepath.Dir(file))
}

// internalPackages lists the directories under internal/ holding Go
// source, arch_test excluded.
func internalPackages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(internalDir(t))
	if err != nil {
		t.Fatal(err)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(parsePackage(t, e.Name())) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	return pkgs
}

// parsePackage parses the non-test files of internal/<pkg> with comments.
func parsePackage(t *testing.T, pkg string) []*ast.File {
	t.Helper()
	dir := filepath.Join(internalDir(t), pkg)
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	var files []*ast.File
	for _, p := range paths {
		if strings.HasSuffix(p, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, p, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", p, err)
		}
		files = append(files, f)
	}
	return files
}

// importPaths returns the sorted, deduplicated import paths of pkg.
func importPaths(t *testing.T, pkg string) []string {
	t.Helper()
	var out []string
	for _, f := range parsePackage(t, pkg) {
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if !slices.Contains(out, path) {
				out = append(out, path)
			}
		}
	}
	slices.Sort(out)
	return out
}

// internalName maps an import path to its internal package name, or "" for
// anything outside internal/.
func internalName(path string) string {
	rel, ok := strings.CutPrefix(path, modulePath+"/internal/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rel, "/")
	return name
}

func TestHelpersSeeEnginePackages(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	for _, want := range enginePackages {
		if !slices.Contains(pkgs, want) {
			t.Errorf("internalPackages() = %v, missing %s", pkgs, want)
		}
	}
	if !slices.Contains(importPaths(t, "graph"), modulePath+"/internal/dag") {
		t.Error("importPaths(graph) does not list internal/dag")
	}
	if got := internalName(modulePath + "/internal/task"); got != "task" {
		t.Errorf("internalName = %q, want task", got)
	}
	if got := internalName("github.com/google/uuid"); got != "" {
		t.Errorf("internalName of external path = %q", got)
	}
}
