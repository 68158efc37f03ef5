/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package constpool decodes and indexes a class file's constant pool.
// Unlike Jacobin, which fans entries out into per-kind slices (see
// classloader.ParsedClass's classRefs/fieldRefs/methodRefs/... fields),
// it keeps every entry in one slice of tagged Entry values indexed by
// constant-pool index; lookups switch on Entry.Tag without a type
// assertion.
package constpool

import (
	"jdecomp/jerrors"
	"jdecomp/reader"
)

// Tag identifies one of the 17 JVM constant-pool entry kinds.
type Tag uint8

const (
	TagUTF8               Tag = 1
	TagInteger             Tag = 3
	TagFloat               Tag = 4
	TagLong                Tag = 5
	TagDouble              Tag = 6
	TagClass               Tag = 7
	TagString              Tag = 8
	TagFieldref            Tag = 9
	TagMethodref           Tag = 10
	TagInterfaceMethodref  Tag = 11
	TagNameAndType         Tag = 12
	TagMethodHandle        Tag = 15
	TagMethodType          Tag = 16
	TagDynamic             Tag = 17
	TagInvokeDynamic       Tag = 18
	TagModule              Tag = 19
	TagPackage             Tag = 20
	// tagReserved marks the placeholder slot following a Long/Double entry.
	tagReserved Tag = 0
)

func (t Tag) String() string {
	switch t {
	case TagUTF8:
		return "UTF8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return "Reserved"
	}
}

// Entry is a single constant-pool slot: a tagged variant over the 17 pool
// kinds. Only the fields relevant to Tag are populated. A single slice of
// Entry indexed 1..count-1 is simpler to reason about than 17 separate
// slice types per pool, since this decompiler never needs to convert the
// pool into a runtime-optimized per-kind layout for execution.
type Entry struct {
	Tag Tag

	UTF8 string // TagUTF8: the decoded string

	Int32   int32   // TagInteger
	Int64   int64   // TagLong
	Float32 float32 // TagFloat
	Float64 float64 // TagDouble

	NameIndex uint16 // TagClass, TagNameAndType (name half), TagModule, TagPackage
	DescIndex uint16 // TagNameAndType (descriptor half)

	StringIndex uint16 // TagString: index of UTF8

	ClassIndex      uint16 // TagFieldref/Methodref/InterfaceMethodref/Dynamic/InvokeDynamic
	NameAndTypeIdx  uint16 // TagFieldref/Methodref/InterfaceMethodref/Dynamic/InvokeDynamic

	RefKind  uint8  // TagMethodHandle: reference_kind
	RefIndex uint16 // TagMethodHandle: reference_index

	DescriptorIndex uint16 // TagMethodType

	BootstrapMethodAttrIndex uint16 // TagDynamic, TagInvokeDynamic
}

// Pool is the fully-decoded constant pool of one class file. Entries are
// 1-indexed per the JVM spec; index 0 and the reserved slot following a
// Long/Double occupy tagReserved placeholders so callers can always index
// directly by the constant_pool index found elsewhere in the class file.
type Pool struct {
	Entries []Entry // Entries[0] is always the unused placeholder slot.
}

// Count returns constant_pool_count as the class file declared it (i.e.
// len(Entries), including the unused slot 0 and reserved double/long
// slots).
func (p *Pool) Count() int { return len(p.Entries) }

// Options configures constant-pool parsing.
type Options struct {
	// LenientUTF8 replaces an invalid modified-UTF-8 byte sequence with
	// U+FFFD instead of failing the whole class, for UTF8 entries Parse
	// would otherwise reject outright.
	LenientUTF8 bool
}

// Parse decodes constant_pool_count-1 entries from r, advancing by two
// slots after a Long or Double entry to preserve JVM slot numbering.
func Parse(r *reader.Reader, opts Options) (*Pool, error) {
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	pool := &Pool{Entries: make([]Entry, count)}

	for i := 1; i < int(count); i++ {
		tag, err := r.U1()
		if err != nil {
			return nil, err
		}
		entry, wide, err := parseEntry(r, Tag(tag), i, opts)
		if err != nil {
			return nil, err
		}
		pool.Entries[i] = entry
		if wide {
			i++ // the following slot is a reserved placeholder
			if i < int(count) {
				pool.Entries[i] = Entry{Tag: tagReserved}
			}
		}
	}
	return pool, nil
}

// parseEntry decodes a single entry's payload. wide is true for Long and
// Double, which occupy two constant-pool slots.
func parseEntry(r *reader.Reader, tag Tag, index int, opts Options) (Entry, bool, error) {
	switch tag {
	case TagUTF8:
		length, err := r.U2()
		if err != nil {
			return Entry{}, false, err
		}
		raw, err := r.Bytes(int(length))
		if err != nil {
			return Entry{}, false, err
		}
		s, err := decodeModifiedUTF8(raw, opts.LenientUTF8)
		if err != nil {
			return Entry{}, false, jerrors.InvalidUTF8(index)
		}
		return Entry{Tag: tag, UTF8: s}, false, nil

	case TagInteger:
		v, err := r.S4()
		return Entry{Tag: tag, Int32: v}, false, err

	case TagFloat:
		v, err := r.F4()
		return Entry{Tag: tag, Float32: v}, false, err

	case TagLong:
		v, err := r.S8()
		return Entry{Tag: tag, Int64: v}, true, err

	case TagDouble:
		v, err := r.F8()
		return Entry{Tag: tag, Float64: v}, true, err

	case TagClass:
		v, err := r.U2()
		return Entry{Tag: tag, NameIndex: v}, false, err

	case TagString:
		v, err := r.U2()
		return Entry{Tag: tag, StringIndex: v}, false, err

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		ci, err := r.U2()
		if err != nil {
			return Entry{}, false, err
		}
		nt, err := r.U2()
		return Entry{Tag: tag, ClassIndex: ci, NameAndTypeIdx: nt}, false, err

	case TagNameAndType:
		n, err := r.U2()
		if err != nil {
			return Entry{}, false, err
		}
		d, err := r.U2()
		return Entry{Tag: tag, NameIndex: n, DescIndex: d}, false, err

	case TagMethodHandle:
		kind, err := r.U1()
		if err != nil {
			return Entry{}, false, err
		}
		ref, err := r.U2()
		return Entry{Tag: tag, RefKind: kind, RefIndex: ref}, false, err

	case TagMethodType:
		d, err := r.U2()
		return Entry{Tag: tag, DescriptorIndex: d}, false, err

	case TagDynamic, TagInvokeDynamic:
		bsm, err := r.U2()
		if err != nil {
			return Entry{}, false, err
		}
		nt, err := r.U2()
		return Entry{Tag: tag, BootstrapMethodAttrIndex: bsm, NameAndTypeIdx: nt}, false, err

	case TagModule, TagPackage:
		n, err := r.U2()
		return Entry{Tag: tag, NameIndex: n}, false, err

	default:
		return Entry{}, false, jerrors.Newf(jerrors.KindFormat, "InvalidDescriptor", "unknown constant-pool tag %d", tag)
	}
}

func (p *Pool) at(index int) (*Entry, error) {
	if index < 1 || index >= len(p.Entries) {
		return nil, jerrors.InvalidIndex(index, len(p.Entries))
	}
	e := &p.Entries[index]
	if e.Tag == tagReserved {
		return nil, jerrors.InvalidIndex(index, len(p.Entries))
	}
	return e, nil
}

// UTF8 resolves a UTF-8 constant-pool entry to its decoded string.
func (p *Pool) UTF8(index int) (string, error) {
	e, err := p.at(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagUTF8 {
		return "", jerrors.KindMismatch(index, "UTF8", e.Tag.String())
	}
	return e.UTF8, nil
}

// ClassName resolves a Class constant-pool entry to its internal (slash-
// separated) name.
func (p *Pool) ClassName(index int) (string, error) {
	e, err := p.at(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagClass {
		return "", jerrors.KindMismatch(index, "Class", e.Tag.String())
	}
	return p.UTF8(int(e.NameIndex))
}

// NameAndType resolves a NameAndType constant-pool entry to its
// (name, descriptor) pair.
func (p *Pool) NameAndType(index int) (name, descriptor string, err error) {
	e, err := p.at(index)
	if err != nil {
		return "", "", err
	}
	if e.Tag != TagNameAndType {
		return "", "", jerrors.KindMismatch(index, "NameAndType", e.Tag.String())
	}
	name, err = p.UTF8(int(e.NameIndex))
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.UTF8(int(e.DescIndex))
	return name, descriptor, err
}

// MemberRef resolves a Fieldref/Methodref/InterfaceMethodref entry to its
// (owner class, member name, descriptor) triple.
func (p *Pool) MemberRef(index int) (ownerClass, name, descriptor string, err error) {
	e, err := p.at(index)
	if err != nil {
		return "", "", "", err
	}
	switch e.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return "", "", "", jerrors.KindMismatch(index, "Fieldref/Methodref/InterfaceMethodref", e.Tag.String())
	}
	ownerClass, err = p.ClassName(int(e.ClassIndex))
	if err != nil {
		return "", "", "", err
	}
	name, descriptor, err = p.NameAndType(int(e.NameAndTypeIdx))
	return ownerClass, name, descriptor, err
}

// DynamicRef resolves an InvokeDynamic (or Dynamic) entry to the callsite's
// (name, descriptor) pair and its bootstrap-method-attribute index; the
// bootstrap method array itself lives in the BootstrapMethods class
// attribute, which this package leaves opaque (see classfile.applyClassAttribute),
// so callers resolve the bootstrap method handle separately if needed.
func (p *Pool) DynamicRef(index int) (name, descriptor string, bootstrapIndex int, err error) {
	e, err := p.at(index)
	if err != nil {
		return "", "", 0, err
	}
	switch e.Tag {
	case TagDynamic, TagInvokeDynamic:
	default:
		return "", "", 0, jerrors.KindMismatch(index, "Dynamic/InvokeDynamic", e.Tag.String())
	}
	name, descriptor, err = p.NameAndType(int(e.NameAndTypeIdx))
	return name, descriptor, int(e.BootstrapMethodAttrIndex), err
}

// String resolves a String constant-pool entry to its literal value.
func (p *Pool) String(index int) (string, error) {
	e, err := p.at(index)
	if err != nil {
		return "", err
	}
	if e.Tag != TagString {
		return "", jerrors.KindMismatch(index, "String", e.Tag.String())
	}
	return p.UTF8(int(e.StringIndex))
}

// Loadable describes the value an ldc/ldc_w/ldc2_w instruction pushes, as
// resolved from the constant pool -- used by the class-file parser (for
// ConstantValue attributes) and the expression lifter alike.
type Loadable struct {
	Kind  Tag
	Str   string
	Int   int32
	Long  int64
	F32   float32
	F64   float64
	Class string // for TagClass: resolved class name; for TagMethodType/Handle: raw index info left to lift
}

// Load resolves any constant eligible for ldc/ldc_w/ldc2_w: Integer,
// Float, Long, Double, String, Class, MethodHandle, MethodType, or
// Dynamic.
func (p *Pool) Load(index int) (Loadable, error) {
	e, err := p.at(index)
	if err != nil {
		return Loadable{}, err
	}
	switch e.Tag {
	case TagInteger:
		return Loadable{Kind: e.Tag, Int: e.Int32}, nil
	case TagFloat:
		return Loadable{Kind: e.Tag, F32: e.Float32}, nil
	case TagLong:
		return Loadable{Kind: e.Tag, Long: e.Int64}, nil
	case TagDouble:
		return Loadable{Kind: e.Tag, F64: e.Float64}, nil
	case TagString:
		s, err := p.String(index)
		return Loadable{Kind: e.Tag, Str: s}, err
	case TagClass:
		c, err := p.ClassName(index)
		return Loadable{Kind: e.Tag, Class: c}, err
	case TagMethodType:
		d, err := p.UTF8(int(e.DescriptorIndex))
		return Loadable{Kind: e.Tag, Str: d}, err
	case TagMethodHandle, TagDynamic:
		return Loadable{Kind: e.Tag}, nil
	default:
		return Loadable{}, jerrors.KindMismatch(index, "loadable constant", e.Tag.String())
	}
}

// decodeModifiedUTF8 validates and decodes the JVM's modified UTF-8
// encoding: ordinary UTF-8 except NUL is encoded as the two-byte sequence
// 0xC0 0x80 and supplementary characters are encoded as a CESU-8-style
// surrogate pair of three-byte sequences rather than a single four-byte
// sequence. Strict validation is the default, returning jerrors.InvalidUTF8
// by way of parseEntry's caller on the first malformed byte sequence; with
// lenient set (decompiler.Options.LenientUTF8, threaded down through
// classfile.Options and Options here) each malformed sequence is replaced
// by U+FFFD and decoding continues instead of failing the class.
func decodeModifiedUTF8(raw []byte, lenient bool) (string, error) {
	out := make([]rune, 0, len(raw))
	i := 0
	for i < len(raw) {
		b0 := raw[i]
		switch {
		case b0&0x80 == 0: // 1-byte: 0xxxxxxx, but not NUL (NUL must use the 2-byte form)
			if b0 == 0 {
				if !lenient {
					return "", errInvalidUTF8
				}
				out = append(out, replacementChar)
				i++
				continue
			}
			out = append(out, rune(b0))
			i++
		case b0&0xE0 == 0xC0: // 2-byte: 110xxxxx 10xxxxxx
			if i+1 >= len(raw) || raw[i+1]&0xC0 != 0x80 {
				if !lenient {
					return "", errInvalidUTF8
				}
				out = append(out, replacementChar)
				i++
				continue
			}
			r := rune(b0&0x1F)<<6 | rune(raw[i+1]&0x3F)
			out = append(out, r)
			i += 2
		case b0&0xF0 == 0xE0: // 3-byte: 1110xxxx 10xxxxxx 10xxxxxx
			if i+2 >= len(raw) || raw[i+1]&0xC0 != 0x80 || raw[i+2]&0xC0 != 0x80 {
				if !lenient {
					return "", errInvalidUTF8
				}
				out = append(out, replacementChar)
				i++
				continue
			}
			r := rune(b0&0x0F)<<12 | rune(raw[i+1]&0x3F)<<6 | rune(raw[i+2]&0x3F)
			out = append(out, r)
			i += 3
		default:
			if !lenient {
				return "", errInvalidUTF8
			}
			out = append(out, replacementChar)
			i++
		}
	}
	return string(out), nil
}

const replacementChar = '�'

var errInvalidUTF8 = errModifiedUTF8{}

type errModifiedUTF8 struct{}

func (errModifiedUTF8) Error() string { return "invalid modified UTF-8 byte sequence" }
