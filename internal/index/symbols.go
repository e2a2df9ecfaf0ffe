package index

import (
	"fmt"
	"go/types"
	"sync"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/abramin/compatlens/internal/entity"
	"github.com/abramin/compatlens/internal/resolve"
)

// Symbols maps go/types objects to resolve symbols. It hands out exactly one
// *Symbol per object, package and (identical) type, so identity-keyed caches
// see repeated references as the same symbol. Safe for concurrent use.
type Symbols struct {
	mu       sync.Mutex
	objects  map[types.Object]*Symbol
	packages map[*types.Package]*Symbol
	types    typeutil.Map // types.Type -> *Symbol
	owners   map[*types.Var]*types.Named
	scanned  map[*types.Package]bool
}

// NewSymbols returns an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		objects:  make(map[types.Object]*Symbol),
		packages: make(map[*types.Package]*Symbol),
		owners:   make(map[*types.Var]*types.Named),
		scanned:  make(map[*types.Package]bool),
	}
}

// Symbol is a Go package, type, function, method, field, variable or
// constant seen through the resolve.TypeSymbol interface.
//
// Go has no nested types, properties or events; those relations are always
// empty. Struct embedding stands in for a base type and interface embedding
// for implemented interfaces.
type Symbol struct {
	table *Symbols
	kind  entity.Kind
	id    string
	obj   types.Object   // members
	typ   types.Type     // types
	pkg   *types.Package // packages
}

// ForObject returns the symbol for obj, or nil when obj has no listable
// identity (locals, parameters, labels, builtins).
func (s *Symbols) ForObject(obj types.Object) resolve.Symbol {
	switch o := obj.(type) {
	case *types.PkgName:
		if sym := s.forPackage(o.Imported()); sym != nil {
			return sym
		}
	case *types.TypeName:
		if sym := s.forType(o.Type()); sym != nil {
			return sym
		}
	case *types.Func, *types.Var, *types.Const:
		if sym := s.forMember(obj); sym != nil {
			return sym
		}
	}
	return nil
}

// ForType returns the symbol for t. Pointers and aliases are looked through.
func (s *Symbols) ForType(t types.Type) resolve.TypeSymbol {
	if sym := s.forType(t); sym != nil {
		return sym
	}
	return nil
}

// ForPackage returns the namespace symbol of pkg.
func (s *Symbols) ForPackage(pkg *types.Package) resolve.Symbol {
	if sym := s.forPackage(pkg); sym != nil {
		return sym
	}
	return nil
}

// Len reports how many symbols have been handed out.
func (s *Symbols) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects) + len(s.packages) + s.types.Len()
}

func (s *Symbols) forPackage(pkg *types.Package) *Symbol {
	if pkg == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sym, ok := s.packages[pkg]; ok {
		return sym
	}
	sym := &Symbol{table: s, kind: entity.Namespace, id: "N:" + pkg.Path(), pkg: pkg}
	s.packages[pkg] = sym
	return sym
}

func (s *Symbols) forType(t types.Type) *Symbol {
	t = normalize(t)
	if t == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.types.At(t); v != nil {
		return v.(*Symbol)
	}
	sym := &Symbol{table: s, kind: entity.Type, id: typeID(t), typ: t}
	s.types.Set(t, sym)
	return sym
}

func (s *Symbols) forMember(obj types.Object) *Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sym, ok := s.objects[obj]; ok {
		return sym
	}
	kind, id, ok := s.memberIDLocked(obj)
	if !ok {
		s.objects[obj] = nil
		return nil
	}
	sym := &Symbol{table: s, kind: kind, id: id, obj: obj}
	s.objects[obj] = sym
	return sym
}

func (s *Symbols) memberIDLocked(obj types.Object) (entity.Kind, string, bool) {
	pkg := obj.Pkg()
	if pkg == nil {
		return entity.Undefined, "", false
	}
	switch o := obj.(type) {
	case *types.Func:
		recv := o.Signature().Recv()
		if recv == nil {
			return entity.Method, "M:" + pkg.Path() + "." + o.Name(), true
		}
		owner := receiverNamed(o)
		if owner == nil {
			return entity.Undefined, "", false
		}
		return entity.Method, "M:" + namedName(owner) + "." + o.Name(), true
	case *types.Var:
		if o.IsField() {
			owner := s.fieldOwnerLocked(o)
			if owner == nil {
				return entity.Undefined, "", false
			}
			return entity.Field, "F:" + namedName(owner) + "." + o.Name(), true
		}
		if pkg.Scope().Lookup(o.Name()) != obj {
			return entity.Undefined, "", false
		}
		return entity.Field, "F:" + pkg.Path() + "." + o.Name(), true
	case *types.Const:
		if pkg.Scope().Lookup(o.Name()) != obj {
			return entity.Undefined, "", false
		}
		return entity.Field, "F:" + pkg.Path() + "." + o.Name(), true
	}
	return entity.Undefined, "", false
}

// fieldOwnerLocked finds the package-level struct type declaring v. Fields of
// anonymous or function-local structs have no owner.
func (s *Symbols) fieldOwnerLocked(v *types.Var) *types.Named {
	v = v.Origin()
	pkg := v.Pkg()
	if pkg != nil && !s.scanned[pkg] {
		s.scanned[pkg] = true
		scope := pkg.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			n, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			st, ok := n.Underlying().(*types.Struct)
			if !ok {
				continue
			}
			for i := 0; i < st.NumFields(); i++ {
				s.owners[st.Field(i)] = n
			}
		}
	}
	return s.owners[v]
}

func (s *Symbols) fieldOwner(v *types.Var) *types.Named {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldOwnerLocked(v)
}

// Kind implements resolve.Symbol.
func (y *Symbol) Kind() entity.Kind { return y.kind }

// ID implements resolve.Symbol.
func (y *Symbol) ID() string { return y.id }

// IsGlobalNamespace is always false; Go packages do not nest.
func (y *Symbol) IsGlobalNamespace() bool { return false }

func (y *Symbol) String() string { return y.id }

// ContainingNamespace returns the package declaring the symbol.
func (y *Symbol) ContainingNamespace() resolve.Symbol {
	var pkg *types.Package
	switch {
	case y.obj != nil:
		pkg = y.obj.Pkg()
	case y.typ != nil:
		switch t := y.typ.(type) {
		case *types.Named:
			pkg = t.Obj().Pkg()
		case *types.TypeParam:
			pkg = t.Obj().Pkg()
		}
	}
	return y.table.ForPackage(pkg)
}

// ContainingType returns the receiver type of a method or the struct type
// declaring a field.
func (y *Symbol) ContainingType() resolve.TypeSymbol {
	switch o := y.obj.(type) {
	case *types.Func:
		if owner := receiverNamed(o); owner != nil {
			return y.table.ForType(owner)
		}
	case *types.Var:
		if o.IsField() {
			if owner := y.table.fieldOwner(o); owner != nil {
				return y.table.ForType(owner)
			}
		}
	}
	return nil
}

// OriginalDefinition returns the generic origin of an instantiated type,
// method or field.
func (y *Symbol) OriginalDefinition() resolve.Symbol {
	switch o := y.obj.(type) {
	case *types.Func:
		if orig := o.Origin(); orig != o {
			return y.table.ForObject(orig)
		}
	case *types.Var:
		if orig := o.Origin(); orig != o {
			return y.table.ForObject(orig)
		}
	}
	if n, ok := y.typ.(*types.Named); ok {
		if orig := n.Origin(); orig != n {
			return y.table.ForType(orig)
		}
	}
	return nil
}

// ReducedFrom is always nil; Go has no extension methods.
func (y *Symbol) ReducedFrom() resolve.Symbol { return nil }

// AssociatedSymbol is always nil; Go has no accessors.
func (y *Symbol) AssociatedSymbol() resolve.Symbol { return nil }

// BaseType returns the first embedded struct type.
func (y *Symbol) BaseType() resolve.TypeSymbol {
	n, ok := y.typ.(*types.Named)
	if !ok {
		return nil
	}
	st, ok := n.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		if en := namedOf(f.Type()); en != nil && isStruct(en) {
			return y.table.ForType(en)
		}
	}
	return nil
}

// AllInterfaces returns every named interface embedded in the type, directly
// or through other embedded interfaces and structs.
func (y *Symbol) AllInterfaces() []resolve.TypeSymbol {
	if y.typ == nil || y.IsTypeParameter() {
		return nil
	}
	var out []resolve.TypeSymbol
	seen := make(map[*types.Named]bool)
	if n, ok := y.typ.(*types.Named); ok {
		seen[n] = true
	}

	var walk func(t types.Type)
	walk = func(t types.Type) {
		switch u := t.Underlying().(type) {
		case *types.Interface:
			for i := 0; i < u.NumEmbeddeds(); i++ {
				en := namedOf(u.EmbeddedType(i))
				if en == nil || seen[en] || !isInterface(en) {
					continue
				}
				seen[en] = true
				out = append(out, y.table.ForType(en))
				walk(en)
			}
		case *types.Struct:
			for i := 0; i < u.NumFields(); i++ {
				f := u.Field(i)
				if !f.Embedded() {
					continue
				}
				en := namedOf(f.Type())
				if en == nil || seen[en] {
					continue
				}
				seen[en] = true
				if isInterface(en) {
					out = append(out, y.table.ForType(en))
				}
				walk(en)
			}
		}
	}
	walk(y.typ)
	return out
}

// TypeArguments returns the type arguments of an instantiated type, or the
// component types of a composite type.
func (y *Symbol) TypeArguments() []resolve.TypeSymbol {
	var args []types.Type
	switch t := y.typ.(type) {
	case *types.Named:
		for i := 0; i < t.TypeArgs().Len(); i++ {
			args = append(args, t.TypeArgs().At(i))
		}
	case *types.Slice:
		args = append(args, t.Elem())
	case *types.Array:
		args = append(args, t.Elem())
	case *types.Map:
		args = append(args, t.Key(), t.Elem())
	case *types.Chan:
		args = append(args, t.Elem())
	case *types.Signature:
		args = append(args, tupleTypes(t.Params())...)
		args = append(args, tupleTypes(t.Results())...)
	case *types.Tuple:
		args = tupleTypes(t)
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			args = append(args, t.Field(i).Type())
		}
	case *types.Interface:
		for i := 0; i < t.NumEmbeddeds(); i++ {
			args = append(args, t.EmbeddedType(i))
		}
	case *types.Union:
		for i := 0; i < t.Len(); i++ {
			args = append(args, t.Term(i).Type())
		}
	}
	return y.table.forTypes(args)
}

// IsTypeParameter implements resolve.TypeSymbol.
func (y *Symbol) IsTypeParameter() bool {
	_, ok := y.typ.(*types.TypeParam)
	return ok
}

// ConstraintTypes returns the types named by a type parameter's constraint:
// the constraint itself when it is a named interface, otherwise its embedded
// types and union terms.
func (y *Symbol) ConstraintTypes() []resolve.TypeSymbol {
	tp, ok := y.typ.(*types.TypeParam)
	if !ok {
		return nil
	}
	c := types.Unalias(tp.Constraint())
	if n, ok := c.(*types.Named); ok {
		return y.table.forTypes([]types.Type{n})
	}
	iface, ok := c.Underlying().(*types.Interface)
	if !ok {
		return nil
	}
	var out []types.Type
	for i := 0; i < iface.NumEmbeddeds(); i++ {
		e := iface.EmbeddedType(i)
		if u, ok := e.(*types.Union); ok {
			for j := 0; j < u.Len(); j++ {
				out = append(out, u.Term(j).Type())
			}
			continue
		}
		out = append(out, e)
	}
	return y.table.forTypes(out)
}

// IsSpecial reports predeclared types such as int, string and error.
func (y *Symbol) IsSpecial() bool {
	switch t := y.typ.(type) {
	case *types.Basic:
		return true
	case *types.Named:
		return t.Obj().Pkg() == nil
	}
	return false
}

func (s *Symbols) forTypes(in []types.Type) []resolve.TypeSymbol {
	out := make([]resolve.TypeSymbol, 0, len(in))
	for _, t := range in {
		if sym := s.forType(t); sym != nil {
			out = append(out, sym)
		}
	}
	return out
}

// normalize strips aliases and pointers.
func normalize(t types.Type) types.Type {
	for {
		switch u := t.(type) {
		case *types.Alias:
			t = types.Unalias(u)
		case *types.Pointer:
			t = u.Elem()
		default:
			return t
		}
	}
}

func namedOf(t types.Type) *types.Named {
	n, _ := normalize(t).(*types.Named)
	return n
}

func isStruct(n *types.Named) bool {
	_, ok := n.Underlying().(*types.Struct)
	return ok
}

func isInterface(n *types.Named) bool {
	_, ok := n.Underlying().(*types.Interface)
	return ok
}

func tupleTypes(t *types.Tuple) []types.Type {
	if t == nil {
		return nil
	}
	out := make([]types.Type, t.Len())
	for i := range out {
		out[i] = t.At(i).Type()
	}
	return out
}

// receiverNamed returns the named receiver type of a method. The receiver of
// a generic method's origin is written in terms of its own type parameters,
// so it is mapped back to the generic type.
func receiverNamed(fn *types.Func) *types.Named {
	recv := fn.Signature().Recv()
	if recv == nil {
		return nil
	}
	n := namedOf(recv.Type())
	if n == nil {
		return nil
	}
	if fn.Origin() == fn {
		return n.Origin()
	}
	return n
}

func qualifier(pkg *types.Package) string { return pkg.Path() }

// namedName is the dotted name of a named type: "os/exec.Cmd", or with type
// arguments for instantiations, "example.com/p.List[int]".
func namedName(n *types.Named) string {
	if n.TypeArgs().Len() > 0 {
		return types.TypeString(n, qualifier)
	}
	obj := n.Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func typeID(t types.Type) string {
	switch t := t.(type) {
	case *types.Named:
		return "T:" + namedName(t)
	case *types.TypeParam:
		// Type parameters have no global name; the declaring position keeps
		// distinct parameters apart.
		obj := t.Obj()
		prefix := ""
		if obj.Pkg() != nil {
			prefix = obj.Pkg().Path() + "."
		}
		return fmt.Sprintf("T:%s%s·%d", prefix, obj.Name(), obj.Pos())
	default:
		return "T:" + types.TypeString(t, qualifier)
	}
}
