// Package attribute contains the core attribute value model shared by the
// resolver and filter engines: typed attribute values, the named attribute
// container, and the request-scoped contexts that carry them.
package attribute

import "fmt"

// ValueKind discriminates the AttributeValue variants.
type ValueKind int

const (
	KindString ValueKind = iota
	KindScopedString
	KindBytes
	KindXMLObject
	KindEmptyNull
	KindEmptyZeroLength
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindScopedString:
		return "scoped-string"
	case KindBytes:
		return "bytes"
	case KindXMLObject:
		return "xml-object"
	case KindEmptyNull:
		return "empty-null"
	case KindEmptyZeroLength:
		return "empty-zero-length"
	default:
		return "unknown"
	}
}

// Value is a tagged variant over the attribute value kinds described in
// spec.md 3: non-null strings (possibly empty-sentinel), scoped strings,
// byte payloads, opaque XML objects, and the two distinguished empty
// sentinels. Equality is structural over payload: EmptyNull, EmptyZeroLength
// and String("") are pairwise distinct.
type Value struct {
	kind  ValueKind
	str   string
	scope string
	bytes []byte
	xml   interface{}
}

// String constructs a non-null String value. It may legitimately be empty;
// use EmptyZeroLength() to represent "present but deliberately empty".
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// ScopedString constructs a ScopedString value. Both value and scope must be
// non-empty per spec.md 3; callers that cannot guarantee this should use
// NewScopedString, which validates and returns an error.
func ScopedString(value, scope string) Value {
	return Value{kind: KindScopedString, str: value, scope: scope}
}

// NewScopedString validates that both parts are non-empty before
// constructing a ScopedString value.
func NewScopedString(value, scope string) (Value, error) {
	if value == "" || scope == "" {
		return Value{}, fmt.Errorf("scoped string requires non-empty value and scope, got value=%q scope=%q", value, scope)
	}
	return ScopedString(value, scope), nil
}

// Bytes constructs a Bytes value. b must be non-empty per spec.md 3.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, bytes: b}
}

// XMLObject constructs an opaque XML-object value.
func XMLObject(opaque interface{}) Value {
	return Value{kind: KindXMLObject, xml: opaque}
}

// EmptyNullValue and EmptyZeroLengthValue back the two distinguished
// sentinels; callers receive copies by value but every copy compares equal
// via Equal because equality is structural over Kind alone for these two
// kinds.
var (
	EmptyNullValue       = Value{kind: KindEmptyNull}
	EmptyZeroLengthValue = Value{kind: KindEmptyZeroLength}
)

// EmptyNull returns the EmptyNull sentinel.
func EmptyNull() Value { return EmptyNullValue }

// EmptyZeroLength returns the EmptyZeroLength sentinel.
func EmptyZeroLength() Value { return EmptyZeroLengthValue }

// Kind reports the value's variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether v is one of the two empty sentinels.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmptyNull || v.kind == KindEmptyZeroLength
}

// IsString reports whether v carries a plain String payload.
func (v Value) IsString() bool { return v.kind == KindString }

// StringValue returns the payload for String and ScopedString kinds, and ""
// otherwise.
func (v Value) StringValue() string {
	switch v.kind {
	case KindString, KindScopedString:
		return v.str
	default:
		return ""
	}
}

// Scope returns the scope component of a ScopedString, or "" otherwise.
func (v Value) Scope() string {
	if v.kind == KindScopedString {
		return v.scope
	}
	return ""
}

// BytesValue returns the payload for Bytes kind, nil otherwise.
func (v Value) BytesValue() []byte {
	if v.kind == KindBytes {
		return v.bytes
	}
	return nil
}

// XMLValue returns the opaque payload for XMLObject kind, nil otherwise.
func (v Value) XMLValue() interface{} {
	if v.kind == KindXMLObject {
		return v.xml
	}
	return nil
}

// Equal implements structural equality: EmptyNull != EmptyZeroLength !=
// String(""), ScopedString compares both value and scope.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindScopedString:
		return v.str == other.str && v.scope == other.scope
	case KindBytes:
		return string(v.bytes) == string(other.bytes)
	case KindXMLObject:
		return fmt.Sprint(v.xml) == fmt.Sprint(other.xml)
	case KindEmptyNull, KindEmptyZeroLength:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	case KindScopedString:
		return fmt.Sprintf("ScopedString(%q,%q)", v.str, v.scope)
	case KindBytes:
		return fmt.Sprintf("Bytes(%d bytes)", len(v.bytes))
	case KindXMLObject:
		return fmt.Sprintf("XMLObject(%v)", v.xml)
	case KindEmptyNull:
		return "EmptyNull"
	case KindEmptyZeroLength:
		return "EmptyZeroLength"
	default:
		return "Invalid"
	}
}
