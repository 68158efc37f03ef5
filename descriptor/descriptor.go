/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package descriptor parses JVM field/method descriptors and (best-effort)
// generic Signature strings into a typed Type model. It is
// a direct generalization of the recursive-descent approach
// modten-pkg-inspector's wasm/class-parser/main.go uses inline
// (parseDescriptorType/parseMethodDescriptor operate on a *int cursor over
// a string and return a display string); here the same grammar walk
// produces a reusable Type value instead of a pre-rendered string, since
// the lifter and emitter both need to inspect the type, not just print it.
package descriptor

import (
	"strings"

	"jdecomp/jerrors"
)

// Kind distinguishes the four branches of the Type tagged variant:
// primitive, reference, array, and void.
type Kind int

const (
	KindPrimitive Kind = iota
	KindReference
	KindArray
	KindVoid
)

// Primitive enumerates the eight JVM primitive descriptor codes.
type Primitive byte

const (
	PByte    Primitive = 'B'
	PChar    Primitive = 'C'
	PDouble  Primitive = 'D'
	PFloat   Primitive = 'F'
	PInt     Primitive = 'I'
	PLong    Primitive = 'J'
	PShort   Primitive = 'S'
	PBoolean Primitive = 'Z'
)

// JavaName returns the Java source-level keyword for a primitive code.
func (p Primitive) JavaName() string {
	switch p {
	case PByte:
		return "byte"
	case PChar:
		return "char"
	case PDouble:
		return "double"
	case PFloat:
		return "float"
	case PInt:
		return "int"
	case PLong:
		return "long"
	case PShort:
		return "short"
	case PBoolean:
		return "boolean"
	default:
		return "?"
	}
}

// IsWide reports whether values of this primitive occupy two local-
// variable slots / two operand-stack slots (long and double).
func (p Primitive) IsWide() bool { return p == PLong || p == PDouble }

// Type is the tagged variant over the four descriptor shapes: primitive, reference
// (fully-qualified class name), array (element type + dimensions), or void.
type Type struct {
	Kind      Kind
	Primitive Primitive // valid when Kind == KindPrimitive
	ClassName string    // valid when Kind == KindReference; internal slash form
	Elem      *Type     // valid when Kind == KindArray
	Dims      int       // valid when Kind == KindArray
}

// Void is the singleton representing a method's absent return value.
var Void = Type{Kind: KindVoid}

// IsWide reports whether this type occupies two stack/local slots.
func (t Type) IsWide() bool {
	return t.Kind == KindPrimitive && t.Primitive.IsWide()
}

// JavaName renders the type the way it appears in Java source: dotted
// class names, "[]" suffixes per array dimension, primitive keywords.
func (t Type) JavaName() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return t.Primitive.JavaName()
	case KindReference:
		return strings.ReplaceAll(t.ClassName, "/", ".")
	case KindArray:
		return t.Elem.JavaName() + strings.Repeat("[]", t.Dims)
	default:
		return "?"
	}
}

// Descriptor renders t back to its JVM descriptor string. Parsing then
// re-rendering a descriptor must round-trip to the identical string.
func (t Type) Descriptor() string {
	var sb strings.Builder
	writeDescriptor(&sb, t)
	return sb.String()
}

func writeDescriptor(sb *strings.Builder, t Type) {
	switch t.Kind {
	case KindVoid:
		sb.WriteByte('V')
	case KindPrimitive:
		sb.WriteByte(byte(t.Primitive))
	case KindReference:
		sb.WriteByte('L')
		sb.WriteString(t.ClassName)
		sb.WriteByte(';')
	case KindArray:
		sb.WriteString(strings.Repeat("[", t.Dims))
		writeDescriptor(sb, *t.Elem)
	}
}

const maxArrayDimensions = 255

// ParseField parses a field descriptor: B|C|D|F|I|J|S|Z | L<class>; | [<desc>.
func ParseField(desc string) (Type, error) {
	if desc == "" {
		return Type{}, jerrors.EmptyDescriptor()
	}
	t, pos, err := parseType(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if pos != len(desc) {
		return Type{}, jerrors.InvalidDescriptor(desc)
	}
	return t, nil
}

func parseType(desc string, pos int) (Type, int, error) {
	if pos >= len(desc) {
		return Type{}, pos, jerrors.InvalidDescriptor(desc)
	}
	switch desc[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return Type{Kind: KindPrimitive, Primitive: Primitive(desc[pos])}, pos + 1, nil
	case 'V':
		return Void, pos + 1, nil
	case 'L':
		end := strings.IndexByte(desc[pos:], ';')
		if end == -1 {
			return Type{}, pos, jerrors.UnterminatedObjectType(desc)
		}
		className := desc[pos+1 : pos+end]
		return Type{Kind: KindReference, ClassName: className}, pos + end + 1, nil
	case '[':
		dims := 0
		p := pos
		for p < len(desc) && desc[p] == '[' {
			dims++
			p++
		}
		if dims > maxArrayDimensions {
			return Type{}, pos, jerrors.TooManyArrayDimensions(desc)
		}
		elem, next, err := parseType(desc, p)
		if err != nil {
			return Type{}, pos, err
		}
		return Type{Kind: KindArray, Elem: &elem, Dims: dims}, next, nil
	default:
		return Type{}, pos, jerrors.InvalidDescriptor(desc)
	}
}

// Method is the parsed shape of a method descriptor: parameter types in
// declaration order plus a return type.
type Method struct {
	Params []Type
	Return Type
}

// ParseMethod parses a method descriptor: (<param-descriptor>*)<return-or-V>.
func ParseMethod(desc string) (Method, error) {
	if desc == "" || desc[0] != '(' {
		return Method{}, jerrors.InvalidDescriptor(desc)
	}
	pos := 1
	var params []Type
	for pos < len(desc) && desc[pos] != ')' {
		t, next, err := parseType(desc, pos)
		if err != nil {
			return Method{}, err
		}
		params = append(params, t)
		pos = next
	}
	if pos >= len(desc) {
		return Method{}, jerrors.InvalidDescriptor(desc)
	}
	pos++ // skip ')'
	ret, next, err := parseType(desc, pos)
	if err != nil {
		return Method{}, err
	}
	if next != len(desc) {
		return Method{}, jerrors.InvalidDescriptor(desc)
	}
	return Method{Params: params, Return: ret}, nil
}

// Descriptor renders a Method back to its JVM descriptor string.
func (m Method) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		writeDescriptor(&sb, p)
	}
	sb.WriteByte(')')
	writeDescriptor(&sb, m.Return)
	return sb.String()
}
