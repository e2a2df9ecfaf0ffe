package index

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

const srcQ = `package q

type Bad struct{ Val int }

func (b *Bad) Do() {}

type Base struct{}

type Derived struct{ Base }

type Closer interface{ Close() error }

type ReadCloser interface {
	Closer
	Read()
}

type Number interface{ ~int | ~float64 }

type List[T any] struct{ items []T }

func (l *List[T]) Push(v T) { l.items = append(l.items, v) }

func Make[T any]() T {
	var zero T
	return zero
}

func Sum[T Number](xs ...T) T {
	var s T
	for _, x := range xs {
		s += x
	}
	return s
}

func Wrap[T interface{ Bad | Base }](v T) T { return v }

var Global int

const Limit = 3

func Helper() {}
`

const srcP = `package p

import "example.com/q"

type Local struct{ q.Derived }

func Use() {
	var b q.Bad
	b.Do()
	_ = b.Val
	var l q.List[q.Bad]
	l.Push(b)
	_ = q.Make[q.Bad]()
	_ = q.Global + q.Limit
	q.Helper()
}
`

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// fixture holds the two type-checked packages above.
type fixture struct {
	fset  *token.FileSet
	q     *types.Package
	p     *types.Package
	pInfo *types.Info
	pFile *ast.File
}

func newInfo() *types.Info {
	return &types.Info{
		Types:     make(map[ast.Expr]types.TypeAndValue),
		Defs:      make(map[*ast.Ident]types.Object),
		Uses:      make(map[*ast.Ident]types.Object),
		Instances: make(map[*ast.Ident]types.Instance),
	}
}

func typeCheck(t *testing.T, fset *token.FileSet, path, filename, src string, imp types.Importer) (*types.Package, *types.Info, *ast.File) {
	t.Helper()
	f, err := parser.ParseFile(fset, filename, src, 0)
	require.NoError(t, err)
	info := newInfo()
	conf := types.Config{Importer: imp}
	pkg, err := conf.Check(path, fset, []*ast.File{f}, info)
	require.NoError(t, err)
	return pkg, info, f
}

func loadFixture(t *testing.T) *fixture {
	t.Helper()
	fset := token.NewFileSet()
	noImports := importerFunc(func(path string) (*types.Package, error) {
		return nil, fmt.Errorf("unexpected import %q", path)
	})
	q, _, _ := typeCheck(t, fset, "example.com/q", "q.go", srcQ, noImports)

	imp := importerFunc(func(path string) (*types.Package, error) {
		if path == "example.com/q" {
			return q, nil
		}
		return nil, fmt.Errorf("unexpected import %q", path)
	})
	p, info, f := typeCheck(t, fset, "example.com/p", "p.go", srcP, imp)
	return &fixture{fset: fset, q: q, p: p, pInfo: info, pFile: f}
}

// pkg wraps the p package the way packages.Load would hand it over.
func (fx *fixture) pkg() *packages.Package {
	return &packages.Package{
		ID:        "example.com/p",
		PkgPath:   "example.com/p",
		Name:      "p",
		Fset:      fx.fset,
		Types:     fx.p,
		TypesInfo: fx.pInfo,
		Syntax:    []*ast.File{fx.pFile},
	}
}

func (fx *fixture) named(name string) *types.Named {
	return fx.q.Scope().Lookup(name).Type().(*types.Named)
}

func (fx *fixture) object(name string) types.Object {
	return fx.q.Scope().Lookup(name)
}

// use returns the object the first use of name in p refers to.
func (fx *fixture) use(t *testing.T, name string) types.Object {
	t.Helper()
	var found types.Object
	pos := token.NoPos
	for ident, obj := range fx.pInfo.Uses {
		if ident.Name == name && (found == nil || ident.Pos() < pos) {
			found, pos = obj, ident.Pos()
		}
	}
	require.NotNil(t, found, "no use of %s", name)
	return found
}

// instance returns the instantiation recorded at the first use of name in p.
func (fx *fixture) instance(t *testing.T, name string) types.Instance {
	t.Helper()
	for ident, inst := range fx.pInfo.Instances {
		if ident.Name == name {
			return inst
		}
	}
	t.Fatalf("no instance of %s", name)
	return types.Instance{}
}
