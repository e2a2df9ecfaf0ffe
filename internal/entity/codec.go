package entity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Separators of the raw list form.
const (
	TagSeparator        = ':'
	NamespaceSeparator  = '-'
	NestedTypeSeparator = '+'
	MemberSeparator     = '.'
	ObsoleteMarker      = 'O'
)

// ErrInvalidIdentifier matches every *FormatError via errors.Is.
var ErrInvalidIdentifier = errors.New("entity: invalid identifier")

// FormatError reports a raw identifier that does not follow the list grammar.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("entity: invalid identifier %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidIdentifier) true for format errors.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

func formatError(input, reason string, args ...any) *FormatError {
	return &FormatError{Input: input, Reason: fmt.Sprintf(reason, args...)}
}

// Parse decodes one raw identifier.
func Parse(raw string) (Identifier, error) {
	if len(raw) < 2 {
		return Identifier{}, formatError(raw, "must be at least 2 characters long")
	}

	s := raw
	extra := None
	marker, msize := utf8.DecodeLastRuneInString(s)
	if sep, ssize := utf8.DecodeLastRuneInString(s[:len(s)-msize]); unicode.IsSpace(sep) {
		if marker != ObsoleteMarker {
			return Identifier{}, formatError(raw, "unrecognized trailing marker %q", s[len(s)-msize:])
		}
		extra = Deprecated
		s = s[:len(s)-msize-ssize]
	}
	if len(s) < 2 {
		return Identifier{}, formatError(raw, "must be at least 2 characters long")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return Identifier{}, formatError(raw, "unexpected whitespace")
	}

	kind, ok := KindFromTag(s[0])
	if !ok {
		return Identifier{}, formatError(raw, "unknown kind tag %q", s[:1])
	}
	if s[1] != TagSeparator {
		return Identifier{}, formatError(raw, "expected %q after kind tag", TagSeparator)
	}
	body := s[2:]

	if kind == Namespace {
		if body == "" {
			return Identifier{}, formatError(raw, "empty namespace")
		}
		if strings.ContainsAny(body, "()") {
			return Identifier{}, formatError(raw, "parameter list is only allowed on methods")
		}
		return Identifier{
			kind:      kind,
			id:        s,
			namespace: body,
			extra:     extra,
		}, nil
	}

	// The namespace ends at the last separator before any parameter list;
	// type and member names never contain the separator, namespaces may.
	head := body
	if kind == Method {
		if i := strings.IndexByte(body, '('); i >= 0 {
			head = body[:i]
		}
	} else if strings.ContainsAny(body, "()") {
		return Identifier{}, formatError(raw, "parameter list is only allowed on methods")
	}
	sep := strings.LastIndexByte(head, NamespaceSeparator)
	if sep < 0 {
		return Identifier{}, formatError(raw, "missing namespace separator %q", NamespaceSeparator)
	}
	namespace := body[:sep]
	rest := body[sep+1:]

	var params string
	if kind == Method {
		if i := strings.LastIndexByte(rest, '('); i >= 0 {
			params = rest[i:]
			rest = rest[:i]
			if !strings.HasSuffix(params, ")") {
				return Identifier{}, formatError(raw, "unterminated parameter list")
			}
		}
	}

	id := Identifier{
		kind:      kind,
		namespace: namespace,
		extra:     extra,
	}

	if kind == Type {
		chain, err := splitTypeChain(raw, rest)
		if err != nil {
			return Identifier{}, err
		}
		if len(chain) > 1 {
			id.containingTypes = chain[:len(chain)-1]
		}
		id.typeName = chain[len(chain)-1]
		id.id = buildID(kind, namespace, chain, "")
		return id, nil
	}

	member := rest
	var chain []string
	if i := strings.IndexByte(rest, MemberSeparator); i >= 0 {
		var err error
		chain, err = splitTypeChain(raw, rest[:i])
		if err != nil {
			return Identifier{}, err
		}
		member = rest[i+1:]
	}
	if member == "" {
		return Identifier{}, formatError(raw, "empty member name")
	}
	if strings.ContainsAny(member, string([]byte{NestedTypeSeparator, NamespaceSeparator})) {
		return Identifier{}, formatError(raw, "invalid member name %q", member)
	}
	member += params

	id.containingTypes = chain
	if len(chain) > 0 {
		id.typeName = chain[len(chain)-1]
	}
	id.memberName = member
	id.id = buildID(kind, namespace, chain, member)
	return id, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// hard-coded identifiers in code and tests.
func MustParse(raw string) Identifier {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Encode renders the raw list form of id. Parse(Encode(id)) yields an
// identifier equal to id.
func Encode(id Identifier) string {
	tag := id.kind.Tag()
	if tag == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte(tag)
	b.WriteByte(TagSeparator)
	b.WriteString(id.namespace)

	switch {
	case id.kind == Namespace:
	case id.kind == Type:
		b.WriteByte(NamespaceSeparator)
		for _, t := range id.containingTypes {
			b.WriteString(t)
			b.WriteByte(NestedTypeSeparator)
		}
		b.WriteString(id.typeName)
	default:
		b.WriteByte(NamespaceSeparator)
		if len(id.containingTypes) > 0 {
			b.WriteString(strings.Join(id.containingTypes, string(NestedTypeSeparator)))
			b.WriteByte(MemberSeparator)
		}
		b.WriteString(id.memberName)
	}

	if id.extra == Deprecated {
		b.WriteByte(' ')
		b.WriteByte(ObsoleteMarker)
	}
	return b.String()
}

// New builds an identifier from its parts. For Type the chain ends with the
// type's own name; for members it ends with the declaring type and may be empty
// for package-level members. The result always satisfies the list grammar.
func New(kind Kind, namespace string, typeChain []string, member string, extra ExtraInfo) (Identifier, error) {
	draft := Identifier{kind: kind, namespace: namespace, extra: extra}
	switch {
	case kind.Tag() == 0:
		return Identifier{}, fmt.Errorf("%w: kind %s has no tag", ErrInvalidIdentifier, kind)
	case kind == Namespace:
		if len(typeChain) > 0 || member != "" {
			return Identifier{}, fmt.Errorf("%w: namespace %q cannot have types or members", ErrInvalidIdentifier, namespace)
		}
	case kind == Type:
		if len(typeChain) == 0 || member != "" {
			return Identifier{}, fmt.Errorf("%w: type identifiers need a type name and no member", ErrInvalidIdentifier)
		}
		if len(typeChain) > 1 {
			draft.containingTypes = typeChain[:len(typeChain)-1]
		}
		draft.typeName = typeChain[len(typeChain)-1]
	default:
		if member == "" {
			return Identifier{}, fmt.Errorf("%w: %s identifiers need a member name", ErrInvalidIdentifier, kind)
		}
		draft.containingTypes = typeChain
		draft.memberName = member
	}
	return Parse(Encode(draft))
}

func splitTypeChain(raw, s string) ([]string, error) {
	chain := strings.Split(s, string(NestedTypeSeparator))
	for _, t := range chain {
		if t == "" {
			return nil, formatError(raw, "empty type name")
		}
		if strings.IndexByte(t, MemberSeparator) >= 0 {
			return nil, formatError(raw, "invalid type name %q", t)
		}
	}
	return chain, nil
}

func buildID(kind Kind, namespace string, chain []string, member string) string {
	parts := make([]string, 0, len(chain)+2)
	parts = append(parts, namespace)
	parts = append(parts, chain...)
	parts = append(parts, member)
	return string([]byte{kind.Tag(), TagSeparator}) + joinNonEmpty(parts)
}
