// Package resolve decides whether a referenced program entity, or something
// structurally reachable from it, is listed in an incompatibility index.
//
// Front ends describe their entities through the Symbol and TypeSymbol
// interfaces. Resolvers never modify a symbol.
package resolve

import (
	"context"

	"github.com/abramin/compatlens/internal/entity"
)

// Symbol is the read-only view of a referenced entity. Methods that return a
// related symbol must return an untyped nil when there is none.
type Symbol interface {
	Kind() entity.Kind
	// ID is the canonical identifier, for example "M:os/exec.Cmd.Run".
	ID() string
	IsGlobalNamespace() bool
	ContainingNamespace() Symbol
	// ContainingType is the declaring type of a member or nested type.
	ContainingType() TypeSymbol
	// OriginalDefinition is the generic definition of an instantiation, or
	// nil when the symbol is not one.
	OriginalDefinition() Symbol
	// ReducedFrom is the unbound form of an extension method called as an
	// instance method.
	ReducedFrom() Symbol
	// AssociatedSymbol is the property or event an accessor method belongs to.
	AssociatedSymbol() Symbol
}

// TypeSymbol is a Symbol that denotes a type or a type parameter.
type TypeSymbol interface {
	Symbol
	BaseType() TypeSymbol
	// AllInterfaces is the full, flattened interface set of the type.
	AllInterfaces() []TypeSymbol
	TypeArguments() []TypeSymbol
	IsTypeParameter() bool
	ConstraintTypes() []TypeSymbol
	// IsSpecial reports builtin types that can never be listed.
	IsSpecial() bool
}

// Resolver finds the listed entry that applies to a symbol. A nil identifier
// with a nil error means no entry applies; the only error is ctx.Err().
type Resolver interface {
	Resolve(ctx context.Context, sym Symbol) (*entity.Identifier, error)
}

// Lookuper is the part of catalog.Index the resolvers need.
type Lookuper interface {
	Lookup(kind entity.Kind, id string) (*entity.Identifier, bool)
}

// Observer receives resolution events, typically to feed metrics.
type Observer interface {
	ObserveLookup(kind entity.Kind, hit bool)
	ObserveClosure(matches int)
}

type nopObserver struct{}

func (nopObserver) ObserveLookup(entity.Kind, bool) {}
func (nopObserver) ObserveClosure(int)              {}
