package index

import (
	"cmp"
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
	"github.com/abramin/compatlens/internal/logging"
	"github.com/abramin/compatlens/internal/resolve"
)

// Diagnostic is one reference to a listed entity.
type Diagnostic struct {
	Position token.Position `json:"position"`
	Package  string         `json:"package"`
	// Name is the identifier as written in the source.
	Name string `json:"name"`
	// Reference is the canonical ID of the referenced symbol.
	Reference string            `json:"reference"`
	Entity    entity.Identifier `json:"entity"`
}

// CheckOptions configures a Checker.
type CheckOptions struct {
	// Workers bounds the packages checked concurrently; zero means GOMAXPROCS.
	Workers            int
	MaxConstraintDepth int
	NoCache            bool
	IgnoreDeprecated   bool
	// Exclude drops references located in matching files.
	Exclude func(filename string) bool
	// IgnorePackage drops every reference made from a matching package.
	IgnorePackage func(pkgPath string) bool
	Observer      resolve.Observer
	Logger        *slog.Logger
}

// Checker finds references to listed entities in type-checked packages.
type Checker struct {
	fset     *token.FileSet
	opts     CheckOptions
	logger   *slog.Logger
	symbols  *Symbols
	direct   *resolve.Direct
	resolver resolve.Resolver
	cache    *resolve.Caching[Symbol]
}

// NewChecker returns a Checker resolving against idx.
func NewChecker(fset *token.FileSet, idx *catalog.Index, opts CheckOptions) *Checker {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxConstraintDepth <= 0 {
		opts.MaxConstraintDepth = resolve.DefaultMaxConstraintDepth
	}

	c := &Checker{
		fset:    fset,
		opts:    opts,
		logger:  logging.OrDiscard(opts.Logger),
		symbols: NewSymbols(),
	}
	c.direct = resolve.NewDirect(idx, resolve.WithObserver(opts.Observer))
	c.resolver = resolve.NewHierarchical(c.direct)
	if !opts.NoCache {
		c.cache = resolve.NewCaching[Symbol](c.resolver)
		c.resolver = c.cache
	}
	return c
}

// Symbols returns the checker's symbol table.
func (c *Checker) Symbols() *Symbols {
	return c.symbols
}

// CacheStats reports resolver cache hits and misses.
func (c *Checker) CacheStats() (hits, misses uint64) {
	if c.cache == nil {
		return 0, 0
	}
	return c.cache.Stats()
}

// Check inspects every package and returns the sorted, de-duplicated
// diagnostics.
func (c *Checker) Check(ctx context.Context, pkgs []*packages.Package) ([]Diagnostic, error) {
	results := make([][]Diagnostic, len(pkgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, pkg := range pkgs {
		if c.opts.IgnorePackage != nil && c.opts.IgnorePackage(pkg.PkgPath) {
			c.logger.Debug("ignoring package", "pkg", pkg.PkgPath)
			continue
		}
		g.Go(func() error {
			collector := resolve.NewCollector(c.direct,
				resolve.WithObserver(c.opts.Observer),
				resolve.WithMaxConstraintDepth(c.opts.MaxConstraintDepth),
			)
			diags, err := c.checkPackage(gctx, pkg, collector)
			if err != nil {
				return err
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Diagnostic
	for _, r := range results {
		all = append(all, r...)
	}
	return dedupe(all), nil
}

func (c *Checker) checkPackage(ctx context.Context, pkg *packages.Package, collector *resolve.Collector) ([]Diagnostic, error) {
	info := pkg.TypesInfo
	if info == nil {
		return nil, nil
	}

	var out []Diagnostic
	add := func(ident *ast.Ident, ref string, matches ...*entity.Identifier) {
		for _, m := range matches {
			if m == nil || (c.opts.IgnoreDeprecated && m.IsDeprecated()) {
				continue
			}
			out = append(out, Diagnostic{
				Position:  c.fset.Position(ident.Pos()),
				Package:   pkg.PkgPath,
				Name:      ident.Name,
				Reference: ref,
				Entity:    *m,
			})
		}
	}

	n := 0
	for ident, obj := range info.Uses {
		if n++; n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if c.excluded(ident) {
			continue
		}
		ref, matches, err := c.resolveObject(ctx, obj, collector)
		if err != nil {
			return nil, err
		}
		add(ident, ref, matches...)
	}

	for ident, inst := range info.Instances {
		if n++; n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if c.excluded(ident) {
			continue
		}
		ref, matches, err := c.resolveInstance(ctx, inst, collector)
		if err != nil {
			return nil, err
		}
		add(ident, ref, matches...)
	}

	return out, nil
}

func (c *Checker) excluded(ident *ast.Ident) bool {
	if c.opts.Exclude == nil {
		return false
	}
	return c.opts.Exclude(c.fset.Position(ident.Pos()).Filename)
}

// resolveObject resolves a referenced object. Type names are checked
// together with everything their closure reaches; other objects go through
// the hierarchical resolver.
func (c *Checker) resolveObject(ctx context.Context, obj types.Object, collector *resolve.Collector) (string, []*entity.Identifier, error) {
	if tn, ok := obj.(*types.TypeName); ok {
		ts := c.symbols.ForType(tn.Type())
		// Uses of a type parameter inside its generic body say nothing new;
		// its constraints are references of their own.
		if ts == nil || ts.IsTypeParameter() {
			return "", nil, nil
		}
		matches, err := collector.CollectForType(ctx, ts)
		return ts.ID(), matches, err
	}

	sym := c.symbols.ForObject(obj)
	if sym == nil {
		return "", nil, nil
	}
	hit, err := c.resolver.Resolve(ctx, sym)
	if err != nil || hit == nil {
		return sym.ID(), nil, err
	}
	return sym.ID(), []*entity.Identifier{hit}, nil
}

// resolveInstance checks the type arguments of an instantiation, whether
// written out or inferred.
func (c *Checker) resolveInstance(ctx context.Context, inst types.Instance, collector *resolve.Collector) (string, []*entity.Identifier, error) {
	if n, ok := inst.Type.(*types.Named); ok {
		ts := c.symbols.ForType(n)
		if ts == nil {
			return "", nil, nil
		}
		matches, err := collector.CollectForType(ctx, ts)
		return ts.ID(), matches, err
	}

	var ref string
	var out []*entity.Identifier
	if inst.TypeArgs == nil {
		return "", nil, nil
	}
	for i := 0; i < inst.TypeArgs.Len(); i++ {
		ts := c.symbols.ForType(inst.TypeArgs.At(i))
		if ts == nil {
			continue
		}
		if ref == "" {
			ref = ts.ID()
		}
		var matches []*entity.Identifier
		var err error
		if ts.IsTypeParameter() {
			matches, err = collector.CollectForTypeParameter(ctx, ts)
		} else {
			matches, err = collector.CollectForType(ctx, ts)
		}
		if err != nil {
			return "", nil, err
		}
		out = append(out, matches...)
	}
	return ref, out, nil
}

type diagKey struct {
	file   string
	offset int
	id     string
}

// dedupe sorts diagnostics by position and entity and drops repeats of the
// same entity at the same position.
func dedupe(in []Diagnostic) []Diagnostic {
	slices.SortFunc(in, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Position.Filename, b.Position.Filename),
			cmp.Compare(a.Position.Offset, b.Position.Offset),
			a.Entity.Compare(b.Entity),
		)
	})
	seen := make(map[diagKey]bool, len(in))
	out := in[:0]
	for _, d := range in {
		k := diagKey{d.Position.Filename, d.Position.Offset, d.Entity.ID()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}
