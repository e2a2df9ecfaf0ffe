package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
)

// fakeSym is a hand-built symbol graph node.
type fakeSym struct {
	kind   entity.Kind
	id     string
	global bool

	ns        *fakeSym
	declaring *fakeSym
	orig      *fakeSym
	reduced   *fakeSym
	assoc     *fakeSym

	base        *fakeSym
	ifaces      []*fakeSym
	args        []*fakeSym
	typeParam   bool
	constraints []*fakeSym
	special     bool
}

func (s *fakeSym) Kind() entity.Kind       { return s.kind }
func (s *fakeSym) ID() string              { return s.id }
func (s *fakeSym) IsGlobalNamespace() bool { return s.global }
func (s *fakeSym) IsTypeParameter() bool   { return s.typeParam }
func (s *fakeSym) IsSpecial() bool         { return s.special }

func (s *fakeSym) ContainingNamespace() Symbol { return asSymbol(s.ns) }
func (s *fakeSym) OriginalDefinition() Symbol  { return asSymbol(s.orig) }
func (s *fakeSym) ReducedFrom() Symbol         { return asSymbol(s.reduced) }
func (s *fakeSym) AssociatedSymbol() Symbol    { return asSymbol(s.assoc) }
func (s *fakeSym) ContainingType() TypeSymbol  { return asType(s.declaring) }
func (s *fakeSym) BaseType() TypeSymbol        { return asType(s.base) }

func (s *fakeSym) AllInterfaces() []TypeSymbol   { return asTypes(s.ifaces) }
func (s *fakeSym) TypeArguments() []TypeSymbol   { return asTypes(s.args) }
func (s *fakeSym) ConstraintTypes() []TypeSymbol { return asTypes(s.constraints) }

func asSymbol(s *fakeSym) Symbol {
	if s == nil {
		return nil
	}
	return s
}

func asType(s *fakeSym) TypeSymbol {
	if s == nil {
		return nil
	}
	return s
}

func asTypes(in []*fakeSym) []TypeSymbol {
	out := make([]TypeSymbol, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

func typ(id string) *fakeSym {
	return &fakeSym{kind: entity.Type, id: id}
}

func namespace(id string) *fakeSym {
	return &fakeSym{kind: entity.Namespace, id: id}
}

func index(t *testing.T, raws ...string) *catalog.Index {
	t.Helper()
	entries := make([]entity.Identifier, 0, len(raws))
	for _, raw := range raws {
		id, err := entity.Parse(raw)
		require.NoError(t, err, raw)
		entries = append(entries, id)
	}
	return catalog.Build(entries)
}

// recordingObserver counts resolution events.
type recordingObserver struct {
	hits, misses int
	closures     []int
}

func (o *recordingObserver) ObserveLookup(_ entity.Kind, hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) ObserveClosure(matches int) {
	o.closures = append(o.closures, matches)
}
