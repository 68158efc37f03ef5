/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package classfile decodes a full JVM .class file into a File: header,
// access flags, this/super/interfaces, field table, method table, and
// class-level attributes. It is a direct generalization of Jacobin's
// classloader.ParsedClass/field/method/attr/exception/codeAttrib structs
// (artipop-jacobin src/classloader/classloader.go), adapted from "load for
// interpretation" to "parse for decompilation": the struct shapes and
// parse-sequence are kept, but nothing here resolves method bodies into
// runtime objects or links superclasses.
package classfile

import (
	"jdecomp/constpool"
	"jdecomp/jerrors"
	"jdecomp/reader"
)

const magicValue = 0xCAFEBABE

// Supported major version range.
const (
	minMajorVersion = 45
	maxMajorVersion = 65
)

// Access flag bits, shared by classes, fields, and methods (only the
// subset meaningful to each context applies — FormatCheck enforces that).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // classes
	AccSynchronized = 0x0020 // methods
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000

	noSuperclass = 0
)

// Options configures parsing. The zero value is a usable default (strict
// UTF-8, no size policy limits).
type Options struct {
	LenientUTF8 bool
	MaxBytes    int // 0 means unlimited
	MaxMethodBytes int // 0 means unlimited
}

// ExceptionEntry is one row of a Code attribute's exception table.
type ExceptionEntry struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType int // constant-pool index, or 0 for a finally/any handler
}

// LineNumberEntry maps a bytecode PC to a source line (from LineNumberTable).
type LineNumberEntry struct {
	StartPC int
	Line    int
}

// LocalVarEntry is one row of LocalVariableTable or LocalVariableTypeTable.
type LocalVarEntry struct {
	StartPC     int
	Length      int
	Name        string
	Descriptor  string // field descriptor (LocalVariableTable) or signature (LocalVariableTypeTable)
	Slot        int
}

// Code is the decoded Code attribute of a non-abstract, non-native method.
type Code struct {
	MaxStack     int
	MaxLocals    int
	Bytes        []byte
	Exceptions   []ExceptionEntry
	LineNumbers  []LineNumberEntry
	LocalVars    []LocalVarEntry
	LocalVarTypes []LocalVarEntry
}

// Attribute is an unrecognized class, field, or method attribute,
// preserved as an opaque payload. Attributes nested inside a Code
// attribute other than LineNumberTable, LocalVariableTable, and
// LocalVariableTypeTable are not kept anywhere.
type Attribute struct {
	Name string
	Data []byte
}

// Field is one row of the field table.
type Field struct {
	AccessFlags int
	Name        string
	Descriptor  string
	Signature   string // from a Signature attribute; "" if absent
	Synthetic   bool
	Deprecated  bool
	ConstantValue *constpool.Loadable // from a ConstantValue attribute, nil if absent
	Unknown     []Attribute
}

// Method is one row of the method table.
// Methods additionally hold a decoded Code attribute when not abstract or
// native.
type Method struct {
	AccessFlags int
	Name        string
	Descriptor  string
	Signature   string
	Synthetic   bool
	Deprecated  bool
	Code        *Code // nil for abstract/native methods
	Exceptions  []string // checked exception class names, from an Exceptions attribute
	Unknown     []Attribute
}

// InnerClassEntry is one row of an InnerClasses attribute.
type InnerClassEntry struct {
	InnerName      string
	OuterName      string // "" if not a member of an enclosing class
	InnerSimpleName string // "" if anonymous
	AccessFlags    int
}

// File is the fully parsed class file.
type File struct {
	MinorVersion int
	MajorVersion int
	Pool         *constpool.Pool
	AccessFlags  int
	ThisClass    string
	SuperClass   string // "" only for java/lang/Object
	Interfaces   []string
	Fields       []Field
	Methods      []Method

	SourceFile  string
	Signature   string
	Synthetic   bool
	Deprecated  bool
	InnerClasses []InnerClassEntry
	Unknown     []Attribute
}

// Parse decodes a full class file from data.
func Parse(data []byte, opts Options) (*File, error) {
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return nil, jerrors.FileTooLarge(len(data), opts.MaxBytes)
	}

	r := reader.New(data)
	magic, err := r.U4()
	if err != nil {
		return nil, err
	}
	if magic != magicValue {
		return nil, jerrors.BadMagic(magic)
	}

	minor, err := r.U2()
	if err != nil {
		return nil, err
	}
	major, err := r.U2()
	if err != nil {
		return nil, err
	}
	if int(major) < minMajorVersion || int(major) > maxMajorVersion {
		return nil, jerrors.UnsupportedVersion(major)
	}

	pool, err := constpool.Parse(r, constpool.Options{LenientUTF8: opts.LenientUTF8})
	if err != nil {
		return nil, err
	}

	f := &File{MinorVersion: int(minor), MajorVersion: int(major), Pool: pool}

	accessFlags, err := r.U2()
	if err != nil {
		return nil, err
	}
	f.AccessFlags = int(accessFlags)

	thisIdx, err := r.U2()
	if err != nil {
		return nil, err
	}
	thisName, err := pool.ClassName(int(thisIdx))
	if err != nil {
		return nil, err
	}
	f.ThisClass = thisName

	superIdx, err := r.U2()
	if err != nil {
		return nil, err
	}
	if superIdx != noSuperclass {
		superName, err := pool.ClassName(int(superIdx))
		if err != nil {
			return nil, err
		}
		f.SuperClass = superName
	}

	ifaceCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
		f.Interfaces = append(f.Interfaces, name)
	}

	fieldCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		fld, err := parseField(r, pool)
		if err != nil {
			return nil, err
		}
		f.Fields = append(f.Fields, fld)
	}

	methodCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(methodCount); i++ {
		m, err := parseMethod(r, pool, opts)
		if err != nil {
			return nil, err
		}
		f.Methods = append(f.Methods, m)
	}

	attrCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, payload, err := readRawAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if err := applyClassAttribute(f, pool, name, payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// readRawAttribute reads one (name_index, length, bytes) attribute header
// plus its payload bytes, without interpreting them.
func readRawAttribute(r *reader.Reader, pool *constpool.Pool) (string, []byte, error) {
	nameIdx, err := r.U2()
	if err != nil {
		return "", nil, err
	}
	name, err := pool.UTF8(int(nameIdx))
	if err != nil {
		return "", nil, err
	}
	length, err := r.U4()
	if err != nil {
		return "", nil, err
	}
	payload, err := r.Bytes(int(length))
	if err != nil {
		return "", nil, err
	}
	return name, payload, nil
}

func parseField(r *reader.Reader, pool *constpool.Pool) (Field, error) {
	accessFlags, err := r.U2()
	if err != nil {
		return Field{}, err
	}
	nameIdx, err := r.U2()
	if err != nil {
		return Field{}, err
	}
	name, err := pool.UTF8(int(nameIdx))
	if err != nil {
		return Field{}, err
	}
	descIdx, err := r.U2()
	if err != nil {
		return Field{}, err
	}
	desc, err := pool.UTF8(int(descIdx))
	if err != nil {
		return Field{}, err
	}

	f := Field{AccessFlags: int(accessFlags), Name: name, Descriptor: desc}

	attrCount, err := r.U2()
	if err != nil {
		return Field{}, err
	}
	for i := 0; i < int(attrCount); i++ {
		attrName, payload, err := readRawAttribute(r, pool)
		if err != nil {
			return Field{}, err
		}
		if err := applyFieldAttribute(&f, pool, attrName, payload); err != nil {
			return Field{}, err
		}
	}
	return f, nil
}

func parseMethod(r *reader.Reader, pool *constpool.Pool, opts Options) (Method, error) {
	accessFlags, err := r.U2()
	if err != nil {
		return Method{}, err
	}
	nameIdx, err := r.U2()
	if err != nil {
		return Method{}, err
	}
	name, err := pool.UTF8(int(nameIdx))
	if err != nil {
		return Method{}, err
	}
	descIdx, err := r.U2()
	if err != nil {
		return Method{}, err
	}
	desc, err := pool.UTF8(int(descIdx))
	if err != nil {
		return Method{}, err
	}

	m := Method{AccessFlags: int(accessFlags), Name: name, Descriptor: desc}

	attrCount, err := r.U2()
	if err != nil {
		return Method{}, err
	}
	for i := 0; i < int(attrCount); i++ {
		attrName, payload, err := readRawAttribute(r, pool)
		if err != nil {
			return Method{}, err
		}
		if err := applyMethodAttribute(&m, pool, attrName, payload, opts); err != nil {
			return Method{}, err
		}
	}

	if m.Code != nil && opts.MaxMethodBytes > 0 && len(m.Code.Bytes) > opts.MaxMethodBytes {
		return Method{}, jerrors.MethodTooLong(name+desc, len(m.Code.Bytes), opts.MaxMethodBytes)
	}
	return m, nil
}
