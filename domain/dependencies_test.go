package domain_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/reglet-dev/devkit/"

// domainImports maps every non-test source file under the domain tree to
// its import paths.
func domainImports(t *testing.T) map[string][]string {
	t.Helper()

	fset := token.NewFileSet()
	imports := make(map[string][]string)
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range f.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return err
			}
			imports[path] = append(imports[path], p)
		}
		return nil
	})
	require.NoError(t, err)
	return imports
}

// The domain layer may only depend on the standard library and on other
// domain packages. Everything that touches wazero, the wire format or the
// filesystem lives outside it.
func TestDomainImportsOnlyStdlibAndDomain(t *testing.T) {
	imports := domainImports(t)
	require.NotEmpty(t, imports)

	for file, paths := range imports {
		for _, p := range paths {
			first, _, _ := strings.Cut(p, "/")
			if !strings.Contains(first, ".") {
				continue
			}
			assert.True(t, strings.HasPrefix(p, modulePath+"domain/"),
				"%s imports %s, outside the domain layer", file, p)
		}
	}
}

func TestDomainPackagesExist(t *testing.T) {
	for _, dir := range []string{"entities", "errors", "ports", "value"} {
		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		require.NoError(t, err)
		assert.NotEmpty(t, files, "domain/%s has no Go files", dir)
	}
}
