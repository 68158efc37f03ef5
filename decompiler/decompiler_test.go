/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package decompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdecomp/classfile"
)

// classBuilder hand-assembles a minimal .class byte sequence, in the same
// style as classfile_test.go's buildMinimalClass -- this package tests
// against a handful of real class-file instances it constructs itself
// rather than a golden-file fixture, so no javac dependency ever enters
// the decompile-time test suite.
type classBuilder struct {
	buf  []byte
	pool [][]byte // raw entries, 1-indexed by insertion order
}

func (b *classBuilder) put(v ...byte)    { b.buf = append(b.buf, v...) }
func (b *classBuilder) putU2(v int)      { b.put(byte(v>>8), byte(v)) }
func (b *classBuilder) putU4(v int)      { b.put(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }

func (b *classBuilder) utf8(s string) int {
	var e []byte
	e = append(e, 1)
	e = append(e, byte(len(s)>>8), byte(len(s)))
	e = append(e, []byte(s)...)
	b.pool = append(b.pool, e)
	return len(b.pool)
}

func (b *classBuilder) classRef(nameIdx int) int {
	e := []byte{7, byte(nameIdx >> 8), byte(nameIdx)}
	b.pool = append(b.pool, e)
	return len(b.pool)
}

func (b *classBuilder) nameAndType(nameIdx, descIdx int) int {
	e := []byte{12, byte(nameIdx >> 8), byte(nameIdx), byte(descIdx >> 8), byte(descIdx)}
	b.pool = append(b.pool, e)
	return len(b.pool)
}

func (b *classBuilder) fieldref(classIdx, ntIdx int) int {
	e := []byte{9, byte(classIdx >> 8), byte(classIdx), byte(ntIdx >> 8), byte(ntIdx)}
	b.pool = append(b.pool, e)
	return len(b.pool)
}

func (b *classBuilder) methodref(classIdx, ntIdx int) int {
	e := []byte{10, byte(classIdx >> 8), byte(classIdx), byte(ntIdx >> 8), byte(ntIdx)}
	b.pool = append(b.pool, e)
	return len(b.pool)
}

func (b *classBuilder) integer(v int32) int {
	e := []byte{3, byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	b.pool = append(b.pool, e)
	return len(b.pool)
}

// finish assembles the header, pool, and the caller-supplied body (access
// flags through the end of the class) into one byte slice.
func (b *classBuilder) finish(body []byte) []byte {
	var out []byte
	put4 := func(v uint32) { out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	put2 := func(v int) { out = append(out, byte(v>>8), byte(v)) }

	put4(0xCAFEBABE)
	put2(0)
	put2(52)
	put2(len(b.pool) + 1)
	for _, e := range b.pool {
		out = append(out, e...)
	}
	out = append(out, body...)
	return out
}

// buildCode assembles a Code attribute payload (everything after the
// attribute's own name_index/length) for a method with no exception
// table and the given nested attributes already encoded.
func buildCode(maxStack, maxLocals int, code []byte, nested []byte, nestedCount int) []byte {
	var c []byte
	put2 := func(v int) { c = append(c, byte(v>>8), byte(v)) }
	put4 := func(v int) { c = append(c, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	put2(maxStack)
	put2(maxLocals)
	put4(len(code))
	c = append(c, code...)
	put2(0) // exception_table_length
	put2(nestedCount)
	c = append(c, nested...)
	return c
}

func TestDecompileBytesSimpleStaticMethod(t *testing.T) {
	b := &classBuilder{}
	thisName := b.utf8("Calc")
	thisClass := b.classRef(thisName)
	superName := b.utf8("java/lang/Object")
	superClass := b.classRef(superName)
	codeName := b.utf8("Code")

	addName := b.utf8("add")
	addDesc := b.utf8("(II)I")

	// iload_0; iload_1; iadd; ireturn
	code := []byte{0x1A, 0x1B, 0x60, 0xAC}
	codeAttr := buildCode(2, 2, code, nil, 0)

	var methods []byte
	put2 := func(v int) { methods = append(methods, byte(v>>8), byte(v)) }
	put4 := func(v int) { methods = append(methods, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	put2(classfile.AccStatic | classfile.AccPublic)
	put2(addName)
	put2(addDesc)
	put2(1) // attributes_count
	put2(codeName)
	put4(len(codeAttr))
	methods = append(methods, codeAttr...)

	var body []byte
	p2 := func(v int) { body = append(body, byte(v>>8), byte(v)) }
	p2(classfile.AccPublic | classfile.AccSuper)
	p2(thisClass)
	p2(superClass)
	p2(0) // interfaces_count
	p2(0) // fields_count
	p2(1) // methods_count
	body = append(body, methods...)
	p2(0) // class attributes_count

	data := b.finish(body)

	doc, err := DecompileBytes(data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Calc", doc.ClassName)
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, 1, doc.Stats.Methods)
	assert.Contains(t, doc.SourceText, "public static int add(int arg0, int arg1)")
	assert.Contains(t, doc.SourceText, "return arg0 + arg1;")
}

func TestDecompileBytesAbstractMethodHasNoBody(t *testing.T) {
	b := &classBuilder{}
	thisName := b.utf8("Shape")
	thisClass := b.classRef(thisName)
	objName := b.utf8("java/lang/Object")
	objClass := b.classRef(objName)
	areaName := b.utf8("area")
	areaDesc := b.utf8("()I")

	var methods []byte
	put2 := func(v int) { methods = append(methods, byte(v>>8), byte(v)) }
	put2(classfile.AccPublic | classfile.AccAbstract)
	put2(areaName)
	put2(areaDesc)
	put2(0) // attributes_count: no Code

	var body []byte
	p2 := func(v int) { body = append(body, byte(v>>8), byte(v)) }
	p2(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	p2(thisClass)
	p2(objClass)
	p2(0)
	p2(0)
	p2(1)
	body = append(body, methods...)
	p2(0)

	data := b.finish(body)

	doc, err := DecompileBytes(data, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, doc.SourceText, "interface Shape")
	assert.Contains(t, doc.SourceText, "int area();")
	assert.NotContains(t, doc.SourceText, "int area() {")
}

func TestDecompileBytesUndecodableMethodDegradesToStub(t *testing.T) {
	b := &classBuilder{}
	thisName := b.utf8("Bad")
	thisClass := b.classRef(thisName)
	superName := b.utf8("java/lang/Object")
	superClass := b.classRef(superName)
	codeName := b.utf8("Code")
	mName := b.utf8("broken")
	mDesc := b.utf8("()V")

	// 0xFE/0xFF are not assigned JVM opcodes.
	code := []byte{0xFE}
	codeAttr := buildCode(1, 1, code, nil, 0)

	var methods []byte
	put2 := func(v int) { methods = append(methods, byte(v>>8), byte(v)) }
	put4 := func(v int) { methods = append(methods, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	put2(classfile.AccPublic)
	put2(mName)
	put2(mDesc)
	put2(1)
	put2(codeName)
	put4(len(codeAttr))
	methods = append(methods, codeAttr...)

	var body []byte
	p2 := func(v int) { body = append(body, byte(v>>8), byte(v)) }
	p2(classfile.AccPublic | classfile.AccSuper)
	p2(thisClass)
	p2(superClass)
	p2(0)
	p2(0)
	p2(1)
	body = append(body, methods...)
	p2(0)

	data := b.finish(body)

	doc, err := DecompileBytes(data, DefaultOptions())
	require.NoError(t, err, "an undecodable method degrades the class, never aborts it")
	require.NotEmpty(t, doc.Diagnostics)
	assert.Contains(t, doc.SourceText, "could not be decompiled")
}

func TestDecompileBytesLenientUTF8OptInToleratesInvalidClassName(t *testing.T) {
	b := &classBuilder{}
	// A malformed single-byte UTF8 entry (a raw NUL byte, invalid in
	// modified UTF-8 outside its two-byte encoding) standing in for the
	// class name, the same malformed shape constpool's own UTF8 test uses.
	b.pool = append(b.pool, []byte{1, 0x00, 0x01, 0x00})
	thisClass := b.classRef(1)
	superName := b.utf8("java/lang/Object")
	superClass := b.classRef(superName)

	var body []byte
	p2 := func(v int) { body = append(body, byte(v>>8), byte(v)) }
	p2(classfile.AccPublic | classfile.AccSuper)
	p2(thisClass)
	p2(superClass)
	p2(0)
	p2(0)
	p2(0)
	p2(0)

	data := b.finish(body)

	_, err := DecompileBytes(data, DefaultOptions())
	require.Error(t, err, "strict mode (the default) rejects the malformed entry")

	doc, err := DecompileBytes(data, Options{LenientUTF8: true})
	require.NoError(t, err, "lenient mode tolerates it instead of failing the whole class")
	assert.Contains(t, doc.ClassName, "�")
}

func TestDecompileBytesRecoverVariableNamesOffUsesPositionalNames(t *testing.T) {
	b := &classBuilder{}
	thisName := b.utf8("Counter")
	thisClass := b.classRef(thisName)
	superName := b.utf8("java/lang/Object")
	superClass := b.classRef(superName)
	codeName := b.utf8("Code")
	lvtName := b.utf8("LocalVariableTable")
	mName := b.utf8("bump")
	mDesc := b.utf8("(I)I")
	paramName := b.utf8("delta")
	paramDesc := b.utf8("I")

	// iload_0; iload_1; iadd; ireturn  (static, so slot 0 is the only param)
	code := []byte{0x1A, 0x1B, 0x60, 0xAC}

	// LocalVariableTable payload: one entry naming slot 0 "delta".
	var lvt []byte
	lp2 := func(v int) { lvt = append(lvt, byte(v>>8), byte(v)) }
	lp2(1) // one entry
	lp2(0) // start_pc
	lp2(4) // length
	lp2(paramName)
	lp2(paramDesc)
	lp2(0) // slot 0

	// The attribute itself, as it appears nested inside Code's
	// attributes_count list: name_index(u2) + length(u4) + payload.
	var nested []byte
	np2 := func(v int) { nested = append(nested, byte(v>>8), byte(v)) }
	np2(lvtName)
	nested = append(nested, byte(len(lvt)>>24), byte(len(lvt)>>16), byte(len(lvt)>>8), byte(len(lvt)))
	nested = append(nested, lvt...)

	codeAttr := buildCode(2, 2, code, nested, 1)

	var methods []byte
	put2 := func(v int) { methods = append(methods, byte(v>>8), byte(v)) }
	put4 := func(v int) { methods = append(methods, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	put2(classfile.AccStatic | classfile.AccPublic)
	put2(mName)
	put2(mDesc)
	put2(1)
	put2(codeName)
	put4(len(codeAttr))
	methods = append(methods, codeAttr...)

	var body []byte
	p2 := func(v int) { body = append(body, byte(v>>8), byte(v)) }
	p2(classfile.AccPublic | classfile.AccSuper)
	p2(thisClass)
	p2(superClass)
	p2(0)
	p2(0)
	p2(1)
	body = append(body, methods...)
	p2(0)

	data := b.finish(body)

	recovered, err := DecompileBytes(data, Options{RecoverVariableNames: true})
	require.NoError(t, err)
	assert.Contains(t, recovered.SourceText, "int bump(int delta)")

	positional, err := DecompileBytes(data, Options{RecoverVariableNames: false})
	require.NoError(t, err)
	assert.Contains(t, positional.SourceText, "int bump(int arg0)")
}
