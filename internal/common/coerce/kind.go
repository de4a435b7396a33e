// Package coerce implements the {type, value} descriptor mini-language used by
// dynamic request bodies: a descriptor embedded anywhere in a JSON document is
// replaced by a native value of the requested kind.
package coerce

import "strings"

// Kind is the target type named by a descriptor.
type Kind int

const (
	// KindNone marks a value that is not a descriptor at all.
	KindNone Kind = iota
	// KindUnknown is a descriptor whose type name is not supported.
	KindUnknown
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindArray
	KindObject
)

var kindNames = map[string]Kind{
	"string":  KindString,
	"integer": KindInteger,
	"number":  KindNumber,
	"boolean": KindBoolean,
	"array":   KindArray,
	"object":  KindObject,
}

// ParseKind maps a type name to its Kind, ignoring case.
func ParseKind(name string) Kind {
	if k, ok := kindNames[strings.ToLower(name)]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Descriptor is a {type, value} pair found in an input document.
type Descriptor struct {
	Kind  Kind
	Type  string // type name as written
	Value interface{}
}

// IsDescriptor reports whether d was detected from a descriptor-shaped value.
func (d Descriptor) IsDescriptor() bool {
	return d.Kind != KindNone
}

// Detect inspects v and returns its descriptor form. A value is a descriptor
// when it is an object whose "type" is a non-empty string and which has a
// "value" key (null counts as present). Anything else yields KindNone.
func Detect(v interface{}) Descriptor {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Descriptor{Kind: KindNone}
	}
	typeName, ok := obj["type"].(string)
	if !ok || typeName == "" {
		return Descriptor{Kind: KindNone}
	}
	value, ok := obj["value"]
	if !ok {
		return Descriptor{Kind: KindNone}
	}
	return Descriptor{
		Kind:  ParseKind(typeName),
		Type:  typeName,
		Value: value,
	}
}
