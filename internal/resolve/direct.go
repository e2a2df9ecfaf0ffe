package resolve

import (
	"context"

	"github.com/abramin/compatlens/internal/entity"
)

// maxNormalizeDepth bounds chains of ReducedFrom and OriginalDefinition.
const maxNormalizeDepth = 8

// Direct looks a symbol up in the index, normalizing reduced extension methods
// and generic instantiations to their canonical forms first.
type Direct struct {
	index    Lookuper
	observer Observer
}

// Option configures Direct and Collector.
type Option func(*options)

type options struct {
	observer Observer
	maxDepth int
}

// WithObserver reports every index lookup to o.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

func buildOptions(opts []Option) options {
	o := options{observer: nopObserver{}, maxDepth: DefaultMaxConstraintDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

// NewDirect returns a Direct resolver over index.
func NewDirect(index Lookuper, opts ...Option) *Direct {
	o := buildOptions(opts)
	return &Direct{index: index, observer: o.observer}
}

// Resolve looks sym up under its own kind.
func (d *Direct) Resolve(ctx context.Context, sym Symbol) (*entity.Identifier, error) {
	if sym == nil {
		return nil, ctx.Err()
	}
	return d.ResolveAs(ctx, sym, sym.Kind())
}

// ResolveAs looks sym up as an entity of the given kind.
func (d *Direct) ResolveAs(ctx context.Context, sym Symbol, kind entity.Kind) (*entity.Identifier, error) {
	return d.resolve(ctx, sym, kind, 0)
}

func (d *Direct) resolve(ctx context.Context, sym Symbol, kind entity.Kind, depth int) (*entity.Identifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sym == nil || depth > maxNormalizeDepth {
		return nil, nil
	}

	if kind == entity.Method {
		if reduced := sym.ReducedFrom(); reduced != nil {
			hit, err := d.resolve(ctx, reduced, entity.Method, depth+1)
			if hit != nil || err != nil {
				return hit, err
			}
		}
	}

	if orig := sym.OriginalDefinition(); orig != nil && orig.ID() != sym.ID() {
		hit, err := d.resolve(ctx, orig, kind, depth+1)
		if hit != nil || err != nil {
			return hit, err
		}
	}

	return d.lookup(kind, sym.ID()), nil
}

func (d *Direct) lookup(kind entity.Kind, id string) *entity.Identifier {
	if kind == entity.Undefined || len(id) < 2 {
		return nil
	}
	hit, ok := d.index.Lookup(kind, id)
	d.observer.ObserveLookup(kind, ok)
	if !ok {
		return nil
	}
	return hit
}
