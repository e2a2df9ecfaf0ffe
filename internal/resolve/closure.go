package resolve

import (
	"context"

	"github.com/abramin/compatlens/internal/entity"
)

// DefaultMaxConstraintDepth bounds recursion through type parameter constraints.
const DefaultMaxConstraintDepth = 40

// WithMaxConstraintDepth overrides DefaultMaxConstraintDepth for a Collector.
func WithMaxConstraintDepth(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.maxDepth = n
		}
	}
}

// Collector gathers every listed entry reachable from a type reference: the
// type itself, its nearest listed ancestor, its interfaces, its type arguments
// and, for type parameters, their constraints.
//
// A Collector keeps per-call state and must not be shared between goroutines.
type Collector struct {
	direct   *Direct
	observer Observer
	maxDepth int
	visited  map[string]struct{}
}

// NewCollector returns a Collector that checks entries through direct.
func NewCollector(direct *Direct, opts ...Option) *Collector {
	o := buildOptions(opts)
	return &Collector{
		direct:   direct,
		observer: o.observer,
		maxDepth: o.maxDepth,
		visited:  make(map[string]struct{}),
	}
}

// CollectForType returns all matches in the closure of t. Each entity is
// reported at most once per call.
func (c *Collector) CollectForType(ctx context.Context, t TypeSymbol) ([]*entity.Identifier, error) {
	clear(c.visited)
	var out []*entity.Identifier
	if err := c.collectType(ctx, t, 0, &out); err != nil {
		return nil, err
	}
	c.observer.ObserveClosure(len(out))
	return out, nil
}

// CollectForTypeParameter returns all matches reachable through the
// constraints of tp.
func (c *Collector) CollectForTypeParameter(ctx context.Context, tp TypeSymbol) ([]*entity.Identifier, error) {
	clear(c.visited)
	var out []*entity.Identifier
	if err := c.collectTypeParameter(ctx, tp, 0, &out); err != nil {
		return nil, err
	}
	c.observer.ObserveClosure(len(out))
	return out, nil
}

// visit marks t and reports whether it was new.
func (c *Collector) visit(t TypeSymbol) bool {
	id := t.ID()
	if _, ok := c.visited[id]; ok {
		return false
	}
	c.visited[id] = struct{}{}
	return true
}

func (c *Collector) check(ctx context.Context, t TypeSymbol, out *[]*entity.Identifier) (bool, error) {
	hit, err := c.direct.ResolveAs(ctx, t, entity.Type)
	if err != nil {
		return false, err
	}
	if hit == nil {
		return false, nil
	}
	*out = append(*out, hit)
	return true, nil
}

func (c *Collector) collectType(ctx context.Context, t TypeSymbol, depth int, out *[]*entity.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	if t.IsTypeParameter() {
		return c.collectTypeParameter(ctx, t, depth, out)
	}
	if t.IsSpecial() || !c.visit(t) {
		return nil
	}

	if _, err := c.check(ctx, t, out); err != nil {
		return err
	}

	// Only the nearest listed ancestor is reported.
	for base := t.BaseType(); base != nil; base = base.BaseType() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if base.IsSpecial() || !c.visit(base) {
			break
		}
		hit, err := c.check(ctx, base, out)
		if err != nil {
			return err
		}
		if hit {
			break
		}
	}

	for _, iface := range t.AllInterfaces() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if iface == nil || iface.IsSpecial() || !c.visit(iface) {
			continue
		}
		if _, err := c.check(ctx, iface, out); err != nil {
			return err
		}
	}

	for _, arg := range t.TypeArguments() {
		if err := c.collectType(ctx, arg, depth, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) collectTypeParameter(ctx context.Context, tp TypeSymbol, depth int, out *[]*entity.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tp == nil || depth >= c.maxDepth || !c.visit(tp) {
		return nil
	}
	for _, constraint := range tp.ConstraintTypes() {
		if constraint == nil {
			continue
		}
		var err error
		if constraint.IsTypeParameter() {
			err = c.collectTypeParameter(ctx, constraint, depth+1, out)
		} else {
			err = c.collectType(ctx, constraint, depth+1, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
