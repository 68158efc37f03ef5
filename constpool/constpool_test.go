/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package constpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdecomp/reader"
)

// buildMiniPool hand-assembles a constant pool with:
//   #1 = Utf8 "Hello"
//   #2 = Class #1           (class "Hello")
//   #3 = Long 42
//   #4 = (reserved)
//   #5 = Utf8 "World"
func buildMiniPool(t *testing.T) *Pool {
	t.Helper()
	var buf []byte
	put := func(b ...byte) { buf = append(buf, b...) }
	put(0x00, 0x06) // constant_pool_count = 6 (slots 1..5)

	// #1 Utf8 "Hello"
	put(1, 0x00, 0x05)
	put([]byte("Hello")...)

	// #2 Class -> #1
	put(7, 0x00, 0x01)

	// #3 Long 42 (occupies #3 and #4)
	put(5)
	put(0, 0, 0, 0, 0, 0, 0, 42)

	// #5 Utf8 "World"
	put(1, 0x00, 0x05)
	put([]byte("World")...)

	p, err := Parse(reader.New(buf), Options{})
	require.NoError(t, err)
	return p
}

func TestParseAndLookups(t *testing.T) {
	p := buildMiniPool(t)
	assert.Equal(t, 6, p.Count())

	name, err := p.ClassName(2)
	require.NoError(t, err)
	assert.Equal(t, "Hello", name)

	s, err := p.UTF8(5)
	require.NoError(t, err)
	assert.Equal(t, "World", s)

	l, err := p.Load(3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), l.Long)
}

func TestReservedSlotAfterLongIsInvalid(t *testing.T) {
	p := buildMiniPool(t)
	_, err := p.UTF8(4)
	assert.Error(t, err, "slot following a Long entry must be the reserved placeholder")
}

func TestInvalidIndexOutOfRange(t *testing.T) {
	p := buildMiniPool(t)
	_, err := p.UTF8(0)
	assert.Error(t, err)
	_, err = p.UTF8(99)
	assert.Error(t, err)
}

func TestKindMismatch(t *testing.T) {
	p := buildMiniPool(t)
	_, err := p.ClassName(1) // #1 is Utf8, not Class
	assert.Error(t, err)
}

func TestMemberRef(t *testing.T) {
	// #1 Utf8 "Foo", #2 Class->#1, #3 Utf8 "bar", #4 Utf8 "V",
	// #5 NameAndType(#3,#4), #6 Methodref(#2,#5)
	var buf []byte
	put := func(b ...byte) { buf = append(buf, b...) }
	put(0x00, 0x07)
	put(1, 0x00, 0x03)
	put([]byte("Foo")...)
	put(7, 0x00, 0x01)
	put(1, 0x00, 0x03)
	put([]byte("bar")...)
	put(1, 0x00, 0x01)
	put([]byte("V")...)
	put(12, 0x00, 0x03, 0x00, 0x04)
	put(10, 0x00, 0x02, 0x00, 0x05)

	p, err := Parse(reader.New(buf), Options{})
	require.NoError(t, err)

	owner, name, desc, err := p.MemberRef(6)
	require.NoError(t, err)
	assert.Equal(t, "Foo", owner)
	assert.Equal(t, "bar", name)
	assert.Equal(t, "V", desc)
}

func TestInvalidModifiedUTF8(t *testing.T) {
	var buf []byte
	put := func(b ...byte) { buf = append(buf, b...) }
	put(0x00, 0x02)
	put(1, 0x00, 0x01)
	put(0x00) // NUL byte is invalid as a raw single byte in modified UTF-8

	_, err := Parse(reader.New(buf), Options{})
	assert.Error(t, err)
}

func TestLenientModeReplacesInvalidUTF8InsteadOfFailing(t *testing.T) {
	var buf []byte
	put := func(b ...byte) { buf = append(buf, b...) }
	put(0x00, 0x02)
	put(1, 0x00, 0x01)
	put(0x00) // same malformed single NUL byte as TestInvalidModifiedUTF8

	p, err := Parse(reader.New(buf), Options{LenientUTF8: true})
	require.NoError(t, err)

	s, err := p.UTF8(1)
	require.NoError(t, err)
	assert.Equal(t, "�", s)
}
