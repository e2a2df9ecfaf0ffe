package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/compatlens/internal/entity"
)

func ids(matches []*entity.Identifier) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.ID())
	}
	return out
}

func TestCollectShortCircuitsBaseChain(t *testing.T) {
	z := typ("T:ns.Z")
	y := typ("T:ns.Y")
	y.base = z
	x := typ("T:ns.X")
	x.base = y

	c := NewCollector(NewDirect(index(t, "T:ns-Y", "T:ns-Z")))
	got, err := c.CollectForType(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Y"}, ids(got))
}

func TestCollectReportsTypeAndNearestAncestor(t *testing.T) {
	d, _, _, _ := chain()
	c := NewCollector(NewDirect(index(t, "T:ns-D", "T:ns-B", "T:ns-A")))

	got, err := c.CollectForType(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.D", "T:ns.B"}, ids(got))
}

func TestCollectGenericArguments(t *testing.T) {
	incompatible := typ("T:ns.Incompatible")
	list := &fakeSym{
		kind: entity.Type,
		id:   "T:coll.List[ns.Incompatible]",
		orig: typ("T:coll.List"),
		args: []*fakeSym{incompatible},
	}

	c := NewCollector(NewDirect(index(t, "T:ns-Incompatible")))
	got, err := c.CollectForType(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Incompatible"}, ids(got))

	nested := &fakeSym{
		kind: entity.Type,
		id:   "T:coll.Map[string,coll.List[ns.Incompatible]]",
		args: []*fakeSym{{kind: entity.Type, id: "T:string", special: true}, list},
	}
	got, err = c.CollectForType(context.Background(), nested)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Incompatible"}, ids(got))
}

func TestCollectInterfacesFlat(t *testing.T) {
	i1 := typ("T:ns.Closer")
	i2 := typ("T:ns.Reader")
	i3 := typ("T:ns.Seeker")
	impl := typ("T:ns.File")
	impl.ifaces = []*fakeSym{i1, i2, i1, i3}

	c := NewCollector(NewDirect(index(t, "T:ns-Closer", "T:ns-Seeker")))
	got, err := c.CollectForType(context.Background(), impl)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Closer", "T:ns.Seeker"}, ids(got))
}

func TestCollectNoDoubleCounting(t *testing.T) {
	bad := typ("T:ns.Bad")
	pair := &fakeSym{kind: entity.Type, id: "T:ns.Pair[ns.Bad,ns.Bad]", args: []*fakeSym{bad, bad}}
	pair.ifaces = []*fakeSym{bad}

	c := NewCollector(NewDirect(index(t, "T:ns-Bad")))
	got, err := c.CollectForType(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Bad"}, ids(got))

	// The visited set is reset between calls.
	got, err = c.CollectForType(context.Background(), pair)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCollectSkipsSpecialTypes(t *testing.T) {
	special := &fakeSym{kind: entity.Type, id: "T:int", special: true}
	c := NewCollector(NewDirect(index(t, "T:-int")))

	got, err := c.CollectForType(context.Background(), special)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectForTypeParameter(t *testing.T) {
	bad := typ("T:ns.Bad")
	inner := &fakeSym{kind: entity.Type, id: "T:ns.F·U", typeParam: true, constraints: []*fakeSym{bad}}
	outer := &fakeSym{kind: entity.Type, id: "T:ns.F·T", typeParam: true, constraints: []*fakeSym{inner}}

	obs := &recordingObserver{}
	c := NewCollector(NewDirect(index(t, "T:ns-Bad")), WithObserver(obs))
	got, err := c.CollectForTypeParameter(context.Background(), outer)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Bad"}, ids(got))
	assert.Equal(t, []int{1}, obs.closures)

	// A type parameter reached as a type argument goes through its constraints.
	generic := &fakeSym{kind: entity.Type, id: "T:ns.Box[T]", args: []*fakeSym{outer}}
	got, err = c.CollectForType(context.Background(), generic)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Bad"}, ids(got))
}

func TestCollectConstraintCycleTerminates(t *testing.T) {
	a := &fakeSym{kind: entity.Type, id: "T:ns.F·A", typeParam: true}
	b := &fakeSym{kind: entity.Type, id: "T:ns.F·B", typeParam: true}
	a.constraints = []*fakeSym{b}
	b.constraints = []*fakeSym{a, typ("T:ns.Bad")}

	c := NewCollector(NewDirect(index(t, "T:ns-Bad")))
	got, err := c.CollectForTypeParameter(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{"T:ns.Bad"}, ids(got))
}

// paramChain builds n type parameters, each constrained by the next, with
// the last one constrained by a listed type.
func paramChain(n int) *fakeSym {
	next := typ("T:ns.Bad")
	var head *fakeSym
	for i := n - 1; i >= 0; i-- {
		head = &fakeSym{
			kind:        entity.Type,
			id:          fmt.Sprintf("T:ns.F·P%d", i),
			typeParam:   true,
			constraints: []*fakeSym{next},
		}
		next = head
	}
	return head
}

func TestCollectConstraintDepthCap(t *testing.T) {
	idx := index(t, "T:ns-Bad")

	got, err := NewCollector(NewDirect(idx)).CollectForTypeParameter(context.Background(), paramChain(10))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = NewCollector(NewDirect(idx)).CollectForTypeParameter(context.Background(), paramChain(DefaultMaxConstraintDepth+5))
	require.NoError(t, err)
	assert.Empty(t, got)

	deep := NewCollector(NewDirect(idx), WithMaxConstraintDepth(100))
	got, err = deep.CollectForTypeParameter(context.Background(), paramChain(DefaultMaxConstraintDepth+5))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(NewDirect(index(t, "T:ns-Bad")))
	got, err := c.CollectForType(ctx, typ("T:ns.Bad"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)

	got, err = c.CollectForTypeParameter(ctx, paramChain(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}
