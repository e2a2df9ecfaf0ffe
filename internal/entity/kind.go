package entity

import (
	"fmt"
	"strings"
)

// Kind is the kind of a program entity.
type Kind int

const (
	Undefined Kind = iota
	Namespace
	Type
	Field
	Property
	Event
	Method
)

var kindTags = map[byte]Kind{
	'N': Namespace,
	'T': Type,
	'F': Field,
	'P': Property,
	'E': Event,
	'M': Method,
}

// Kinds lists every defined kind except Undefined, in tag order of the list files.
var Kinds = []Kind{Namespace, Type, Field, Property, Event, Method}

// KindFromTag returns the kind for an identifier tag character.
func KindFromTag(tag byte) (Kind, bool) {
	k, ok := kindTags[tag]
	return k, ok
}

// Tag returns the identifier tag character, or 0 for Undefined.
func (k Kind) Tag() byte {
	switch k {
	case Namespace:
		return 'N'
	case Type:
		return 'T'
	case Field:
		return 'F'
	case Property:
		return 'P'
	case Event:
		return 'E'
	case Method:
		return 'M'
	default:
		return 0
	}
}

// IsMember reports whether entities of this kind are declared inside a type.
func (k Kind) IsMember() bool {
	switch k {
	case Field, Property, Event, Method:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "Undefined"
	case Namespace:
		return "Namespace"
	case Type:
		return "Type"
	case Field:
		return "Field"
	case Property:
		return "Property"
	case Event:
		return "Event"
	case Method:
		return "Method"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// KindOfID returns the kind named by the tag of a canonical ID such as
// "M:os/exec.Command", or Undefined when id has no valid tag.
func KindOfID(id string) Kind {
	if len(id) < 3 || id[1] != TagSeparator {
		return Undefined
	}
	k, _ := KindFromTag(id[0])
	return k
}

// ParseKind parses a kind name (case-insensitive) or a single tag character.
func ParseKind(s string) (Kind, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 1 {
		if k, ok := KindFromTag(strings.ToUpper(trimmed)[0]); ok {
			return k, nil
		}
	}
	for _, k := range append([]Kind{Undefined}, Kinds...) {
		if strings.EqualFold(trimmed, k.String()) {
			return k, nil
		}
	}
	return Undefined, fmt.Errorf("entity: unknown kind %q", s)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < Undefined || k > Method {
		return nil, fmt.Errorf("entity: cannot marshal unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts the same forms as ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ExtraInfo carries list metadata that is orthogonal to identity.
type ExtraInfo int

const (
	None ExtraInfo = iota
	Deprecated
)

func (e ExtraInfo) String() string {
	switch e {
	case None:
		return "None"
	case Deprecated:
		return "Deprecated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// MarshalText encodes the extra info by name.
func (e ExtraInfo) MarshalText() ([]byte, error) {
	switch e {
	case None, Deprecated:
		return []byte(e.String()), nil
	default:
		return nil, fmt.Errorf("entity: cannot marshal unknown extra info %d", int(e))
	}
}

// UnmarshalText decodes "None" or "Deprecated" (case-insensitive).
func (e *ExtraInfo) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "none", "":
		*e = None
	case "deprecated":
		*e = Deprecated
	default:
		return fmt.Errorf("entity: unknown extra info %q", string(text))
	}
	return nil
}
