package resolve

import (
	"context"

	"github.com/abramin/compatlens/internal/entity"
)

// Hierarchical extends Direct with the enclosing namespace, the declaring
// type's inheritance chain and the property or event behind an accessor. It
// returns the closest match only.
type Hierarchical struct {
	direct *Direct
}

// NewHierarchical wraps direct.
func NewHierarchical(direct *Direct) *Hierarchical {
	return &Hierarchical{direct: direct}
}

func (h *Hierarchical) Resolve(ctx context.Context, sym Symbol) (*entity.Identifier, error) {
	if sym == nil {
		return nil, ctx.Err()
	}
	if hit, err := h.direct.Resolve(ctx, sym); hit != nil || err != nil {
		return hit, err
	}

	kind := sym.Kind()
	if kind == entity.Namespace || kind == entity.Undefined {
		return nil, nil
	}

	if ns := sym.ContainingNamespace(); ns != nil && !ns.IsGlobalNamespace() {
		if hit, err := h.direct.ResolveAs(ctx, ns, entity.Namespace); hit != nil || err != nil {
			return hit, err
		}
	}

	declaring := sym.ContainingType()
	if declaring == nil && kind == entity.Type {
		return nil, nil
	}

	// type A struct{ *A } is legal Go, so the chain may repeat.
	seen := make(map[string]struct{})
	for t := declaring; t != nil; t = t.BaseType() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := seen[t.ID()]; ok {
			break
		}
		seen[t.ID()] = struct{}{}

		if hit, err := h.direct.ResolveAs(ctx, t, entity.Type); hit != nil || err != nil {
			return hit, err
		}
	}

	if kind != entity.Method {
		return nil, nil
	}
	if assoc := sym.AssociatedSymbol(); assoc != nil {
		return h.direct.Resolve(ctx, assoc)
	}
	return nil, nil
}
