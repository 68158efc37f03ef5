/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMinimalClass hand-assembles the same single-method class as
// classfile_test.go's buildMinimalClass, written to a temp file so the CLI
// can be exercised against a real path without a javac dependency.
func writeMinimalClass(t *testing.T) string {
	t.Helper()
	var buf []byte
	put := func(b ...byte) { buf = append(buf, b...) }
	putU2 := func(v int) { put(byte(v>>8), byte(v)) }
	putU4 := func(v int) { put(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	putUTF8 := func(s string) {
		put(1)
		putU2(len(s))
		put([]byte(s)...)
	}

	putU4(0xCAFEBABE)
	putU2(0)
	putU2(52)

	putU2(8)
	putUTF8("Foo")
	put(7)
	putU2(1)
	putUTF8("java/lang/Object")
	put(7)
	putU2(3)
	putUTF8("<init>")
	putUTF8("()V")
	putUTF8("Code")

	putU2(0x0001) // ACC_PUBLIC
	putU2(2)
	putU2(4)
	putU2(0)
	putU2(0)

	putU2(1)
	putU2(0x0001)
	putU2(5)
	putU2(6)
	putU2(1)
	putU2(7)

	var code []byte
	putCode := func(b ...byte) { code = append(code, b...) }
	putCodeU2 := func(v int) { putCode(byte(v>>8), byte(v)) }
	putCodeU4 := func(v int) { putCode(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	putCodeU2(1)
	putCodeU2(1)
	putCodeU4(1)
	putCode(0xB1) // return
	putCodeU2(0)
	putCodeU2(0)

	putU4(len(code))
	put(code...)
	putU2(0)

	path := filepath.Join(t.TempDir(), "Foo.class")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestRunDecompileWritesSourceToStdout(t *testing.T) {
	path := writeMinimalClass(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "class Foo")
}

func TestRunDecompileMissingFileReturnsError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "NoSuchFile.class")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	assert.Error(t, err)
}
