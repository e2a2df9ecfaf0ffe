// Package entity defines the identity model of program entities listed as
// incompatible with a target runtime, and the compact textual codec used by
// incompatibility list files.
//
// A canonical ID is a kind tag, a colon, and the dot-joined namespace, type
// chain and member, for example "T:os/exec.Cmd" or "M:os/exec.Cmd.Run". The raw
// list form keeps the segment boundaries explicit:
//
//	M:os/exec-Cmd.Run
//	T:System-Collections+Generic+List
//	N:io/ioutil O
//
// where '-' ends the namespace, '+' separates nested types, '.' introduces the
// member and a trailing " O" marks the entry as deprecated.
package entity

import (
	"encoding/json"
	"slices"
	"strings"
)

// Identifier is an immutable, parsed entity identifier. The zero value is an
// Undefined identifier with an empty ID.
type Identifier struct {
	kind            Kind
	id              string
	namespace       string
	containingTypes []string
	typeName        string
	memberName      string
	extra           ExtraInfo
}

// Kind returns the entity kind.
func (i Identifier) Kind() Kind { return i.kind }

// ID returns the canonical identifier, tag included.
func (i Identifier) ID() string { return i.id }

// FullName returns the canonical identifier without the two-character tag prefix.
func (i Identifier) FullName() string {
	if len(i.id) < 2 {
		return ""
	}
	return i.id[2:]
}

// Namespace returns the namespace, or "" for the global namespace.
func (i Identifier) Namespace() string { return i.namespace }

// ContainingTypes returns the chain of enclosing types, outermost first.
// For types this excludes the type itself; for members it ends with the
// declaring type.
func (i Identifier) ContainingTypes() []string { return slices.Clone(i.containingTypes) }

// TypeName returns the type's own name for types and the declaring type's
// name for members.
func (i Identifier) TypeName() string { return i.typeName }

// FullTypeName returns the dotted namespace and type chain of a type, or of a
// member's declaring type.
func (i Identifier) FullTypeName() string {
	switch {
	case i.kind == Type:
		return i.FullName()
	case i.kind.IsMember() && len(i.containingTypes) > 0:
		return joinNonEmpty(append([]string{i.namespace}, i.containingTypes...))
	default:
		return ""
	}
}

// MemberName returns the member name including any parameter list.
func (i Identifier) MemberName() string { return i.memberName }

// ExtraInfo returns the list metadata attached to the identifier.
func (i Identifier) ExtraInfo() ExtraInfo { return i.extra }

// IsDeprecated reports whether the entry is marked deprecated rather than unsupported.
func (i Identifier) IsDeprecated() bool { return i.extra == Deprecated }

// IsZero reports whether i is the zero Identifier.
func (i Identifier) IsZero() bool { return i.id == "" }

// Equal reports identity equality: same ID and same extra info.
func (i Identifier) Equal(other Identifier) bool {
	return i.id == other.id && i.extra == other.extra
}

// Compare orders identifiers by ID, then by extra info (None before Deprecated).
func (i Identifier) Compare(other Identifier) int {
	if c := strings.Compare(i.id, other.id); c != 0 {
		return c
	}
	switch {
	case i.extra < other.extra:
		return -1
	case i.extra > other.extra:
		return 1
	default:
		return 0
	}
}

// String returns the raw list form of the identifier.
func (i Identifier) String() string { return Encode(i) }

type identifierJSON struct {
	Kind            Kind     `json:"kind"`
	ID              string   `json:"id"`
	Namespace       string   `json:"namespace"`
	ContainingTypes []string `json:"containing_types,omitempty"`
	TypeName        string   `json:"type_name,omitempty"`
	FullTypeName    string   `json:"full_type_name,omitempty"`
	MemberName      string   `json:"member_name,omitempty"`
	Deprecated      bool     `json:"deprecated"`
	Raw             string   `json:"raw"`
}

// MarshalJSON renders the identifier with its derived names.
func (i Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(identifierJSON{
		Kind:            i.kind,
		ID:              i.id,
		Namespace:       i.namespace,
		ContainingTypes: i.containingTypes,
		TypeName:        i.typeName,
		FullTypeName:    i.FullTypeName(),
		MemberName:      i.memberName,
		Deprecated:      i.IsDeprecated(),
		Raw:             Encode(i),
	})
}

// UnmarshalJSON accepts the object form produced by MarshalJSON (only "raw" is
// read) or a bare raw string.
func (i *Identifier) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var obj identifierJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw = obj.Raw
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, string(MemberSeparator))
}
