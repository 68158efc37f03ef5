/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package decompiler is the driver that wires reader -> classfile -> bytecode
// -> cfg -> lift -> emit into one class-at-a-time pipeline. It owns the
// policy decisions a lower layer has no business making: whether a
// single method's recoverable failure aborts the whole class or degrades to
// a stub, how long a class gets before a context deadline cuts it off, and
// what gets logged along the way.
package decompiler

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/cfg"
	"jdecomp/classfile"
	"jdecomp/constpool"
	"jdecomp/descriptor"
	"jdecomp/emit"
	"jdecomp/jerrors"
	"jdecomp/lift"
	"jdecomp/trace"
)

// Options configures every stage of the pipeline the driver is allowed to
// tune without touching a lower package's own defaults.
type Options struct {
	// EmitLineComments annotates emitted statements with their originating
	// bytecode PC as a trailing "// pc N" comment, for diffing decompiled
	// output against a disassembly.
	EmitLineComments bool
	// RecoverVariableNames consults LocalVariableTable entries for
	// parameter and local names (on in DefaultOptions); when off,
	// parameters get positional "argN" names, the same as for a class
	// file stripped of debug info.
	RecoverVariableNames bool
	// FoldConstructorNew collapses "new Foo(); invokespecial <init>" into
	// a single "new Foo(...)" expression.
	FoldConstructorNew bool
	// PreferForLoops rewrites an eligible while loop into a for loop at
	// print time (see emit.Options.PreferForLoops).
	PreferForLoops bool
	// MaxBytes caps the size of a .class file this driver will parse;
	// zero means classfile.Options's own default applies.
	MaxBytes int
	// IndentUnit is the emitter's indentation string; "" selects
	// emit.DefaultOptions's four-space default.
	IndentUnit string
	// LenientUTF8 accepts constant-pool UTF8 entries containing invalid
	// modified-UTF-8 byte sequences instead of failing the whole class.
	LenientUTF8 bool
	// Deadline, when non-zero, is checked between methods during
	// DecompileBytesContext; once passed, the remaining methods in the
	// class emit stub bodies instead of being lifted.
	Deadline time.Time
}

// DefaultOptions returns the driver's recommended settings: names
// recovered, constructors folded, for-loops preferred, standard
// indentation, strict UTF-8.
func DefaultOptions() Options {
	return Options{
		RecoverVariableNames: true,
		FoldConstructorNew:   true,
		PreferForLoops:       true,
	}
}

// Diagnostic is a recoverable issue surfaced from any pipeline stage,
// attached to the class's Document rather than aborting it.
type Diagnostic = jerrors.Diagnostic

// Stats summarizes one class's decompilation run.
type Stats struct {
	Methods      int
	Instructions int
	Elapsed      time.Duration
	// BySeverity counts diagnostics by jerrors.Severity.
	BySeverity map[jerrors.Severity]int
}

// Document is the decompiled output for one class file.
type Document struct {
	ClassName   string
	SourceText  string
	Stats       Stats
	Diagnostics []Diagnostic
}

// DecompileFile reads path and decompiles it. It is a thin wrapper around
// os.ReadFile + DecompileBytes.
func DecompileFile(path string, opts Options) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return DecompileBytes(data, opts)
}

// DecompileBytes decompiles one in-memory class file with no cancellation.
func DecompileBytes(data []byte, opts Options) (*Document, error) {
	return DecompileBytesContext(context.Background(), data, opts)
}

// DecompileBytesContext decompiles one in-memory class file, checking
// ctx/opts.Deadline between methods so a caller can bound how long a
// pathological class is allowed to occupy the driver.
func DecompileBytesContext(ctx context.Context, data []byte, opts Options) (*Document, error) {
	start := time.Now()

	cfOpts := classfile.Options{LenientUTF8: opts.LenientUTF8, MaxBytes: opts.MaxBytes}
	f, err := classfile.Parse(data, cfOpts)
	if err != nil {
		return nil, errors.Wrap(err, "parsing class file")
	}

	diags := classfile.FormatCheck(f)

	class, methodDiags, instrCount := buildClass(ctx, f, opts)
	diags = append(diags, methodDiags...)

	emitOpts := emit.DefaultOptions()
	if opts.IndentUnit != "" {
		emitOpts.IndentUnit = opts.IndentUnit
	}
	emitOpts.PreferForLoops = opts.PreferForLoops
	emitOpts.EmitLineComments = opts.EmitLineComments

	source, emitDiags := emit.Document(class, emitOpts)
	diags = append(diags, emitDiags...)

	stats := Stats{
		Methods:      len(f.Methods),
		Instructions: instrCount,
		Elapsed:      time.Since(start),
		BySeverity:   tally(diags),
	}

	logClass(f.ThisClass, stats, len(diags))

	return &Document{
		ClassName:   f.ThisClass,
		SourceText:  source,
		Stats:       stats,
		Diagnostics: diags,
	}, nil
}

func tally(diags []jerrors.Diagnostic) map[jerrors.Severity]int {
	counts := map[jerrors.Severity]int{}
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}

func logClass(name string, stats Stats, diagCount int) {
	trace.Class(name).Info().
		Int("methods", stats.Methods).
		Dur("elapsed", stats.Elapsed).
		Int("diagnostics", diagCount).
		Msg("decompiled class")
}

// buildClass runs the classfile -> ast.ClassDecl half of the pipeline:
// field translation is a straight descriptor-to-ast.Type mapping, while
// each method runs the full bytecode -> cfg -> lift -> structural-recovery
// chain independently so one method's failure cannot take down its
// siblings.
func buildClass(ctx context.Context, f *classfile.File, opts Options) (*ast.ClassDecl, []jerrors.Diagnostic, int) {
	class := &ast.ClassDecl{
		Modifiers:   modifiersFromAccess(f.AccessFlags, memberClass),
		Name:        simpleClassName(f.ThisClass),
		IsInterface: f.AccessFlags&classfile.AccInterface != 0,
		SourceFile:  f.SourceFile,
	}
	if f.SuperClass != "" && f.SuperClass != "java/lang/Object" {
		class.SuperClass = javaName(f.SuperClass)
	}
	for _, iface := range f.Interfaces {
		class.Interfaces = append(class.Interfaces, javaName(iface))
	}

	var diags []jerrors.Diagnostic
	for _, field := range f.Fields {
		class.Fields = append(class.Fields, buildField(field))
	}

	instrCount := 0
	for _, m := range f.Methods {
		select {
		case <-ctx.Done():
			class.Methods = append(class.Methods, stubMethod(m, "decompilation cancelled: "+ctx.Err().Error()))
			continue
		default:
		}
		if deadlinePassed(opts.Deadline) {
			class.Methods = append(class.Methods, stubMethod(m, "decompilation deadline exceeded"))
			continue
		}

		md, n, mdiags := buildMethod(f, m, opts)
		instrCount += n
		diags = append(diags, mdiags...)
		class.Methods = append(class.Methods, *md)
	}

	return class, diags, instrCount
}

func deadlinePassed(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func buildField(f classfile.Field) ast.FieldDecl {
	ty, err := descriptor.ParseField(f.Descriptor)
	astType := ast.Type{Name: "<unresolved>"}
	if err == nil {
		astType = ast.Type{Name: ty.JavaName()}
	}
	fd := ast.FieldDecl{
		Modifiers: modifiersFromAccess(f.AccessFlags, memberField),
		Type:      astType,
		Name:      f.Name,
	}
	if f.ConstantValue != nil {
		fd.Init = &ast.Expression{Kind: ast.ExprLiteral, LiteralValue: loadableValue(*f.ConstantValue), Type: astType}
	}
	return fd
}

// loadableValue extracts the typed Go value a constpool.Loadable carries,
// matching the type switch emit.literal expects (int32/int64/float32/
// float64/string).
func loadableValue(lv constpool.Loadable) any {
	switch lv.Kind {
	case constpool.TagInteger:
		return lv.Int
	case constpool.TagLong:
		return lv.Long
	case constpool.TagFloat:
		return lv.F32
	case constpool.TagDouble:
		return lv.F64
	case constpool.TagString:
		return lv.Str
	default:
		return nil
	}
}

// buildMethod runs bytecode.Decode -> cfg.Build -> lift.Method ->
// cfg.Reconstruct for one method. A format-level failure decoding the
// bytecode degrades to a stub body and a diagnostic rather than aborting
// the class; the same recoverable-degradation policy spec.md asks for at
// the method boundary.
func buildMethod(f *classfile.File, m classfile.Method, opts Options) (*ast.MethodDecl, int, []jerrors.Diagnostic) {
	desc, err := descriptor.ParseMethod(m.Descriptor)
	md := &ast.MethodDecl{
		Modifiers:     modifiersFromAccess(m.AccessFlags, memberMethod),
		Name:          m.Name,
		Throws:        javaNames(m.Exceptions),
		IsConstructor: m.Name == "<init>",
	}
	if err == nil {
		md.ReturnType = ast.Type{Name: desc.Return.JavaName(), IsVoid: desc.Return.Kind == descriptor.KindVoid}
		md.Params = paramsFromDescriptor(desc, m, opts)
	}

	if m.Code == nil {
		// abstract/native: no body to lift.
		return md, 0, nil
	}

	instrs, _, err := bytecode.Decode(m.Code.Bytes)
	if err != nil {
		reason := "method " + m.Name + " could not be decompiled: " + err.Error()
		md.Body = []ast.Statement{stubBodyStatement(reason)}
		return md, 0, []jerrors.Diagnostic{jerrors.FromError(jerrors.Wrap(jerrors.KindBytecode, "UndecodableMethod", err))}
	}

	g := cfg.Build(instrs, m.Code.Exceptions)

	liftOpts := lift.Options{
		RecoverVariableNames: opts.RecoverVariableNames,
		FoldConstructorNew:   opts.FoldConstructorNew,
	}
	blockStmts, liftDiags := lift.Method(&m, g, f.Pool, f.ThisClass, liftOpts)

	catchTypeName := func(cpIndex int) string {
		name, err := f.Pool.ClassName(cpIndex)
		if err != nil {
			return "java.lang.Throwable"
		}
		return javaName(name)
	}

	localVarName := func(slot, pc int) (string, bool) {
		if !opts.RecoverVariableNames {
			return "", false
		}
		for _, lv := range m.Code.LocalVars {
			if lv.Slot == slot && pc >= lv.StartPC && pc < lv.StartPC+lv.Length {
				return lv.Name, true
			}
		}
		return "", false
	}

	body, structDiags := cfg.Reconstruct(g, m.Code.Exceptions, blockStmts, catchTypeName, localVarName)
	md.Body = body

	diags := append(liftDiags, structDiags...)
	return md, len(instrs), diags
}

func stubMethod(m classfile.Method, reason string) ast.MethodDecl {
	return ast.MethodDecl{
		Modifiers: modifiersFromAccess(m.AccessFlags, memberMethod),
		Name:      m.Name,
		Body:      []ast.Statement{stubBodyStatement(reason)},
	}
}

func stubBodyStatement(reason string) ast.Statement {
	return ast.Statement{
		Kind: ast.StmtThrow,
		ThrowValue: &ast.Expression{
			Kind: ast.ExprNewObject,
			NewClass: "java.lang.UnsupportedOperationException",
			NewArgs: []ast.Expression{{Kind: ast.ExprLiteral, LiteralValue: reason, Type: ast.Type{Name: "java.lang.String"}}},
		},
	}
}

func paramsFromDescriptor(desc descriptor.Method, m classfile.Method, opts Options) []ast.Param {
	params := make([]ast.Param, len(desc.Params))
	slot := 0
	if m.AccessFlags&classfile.AccStatic == 0 {
		slot++
	}
	for i, p := range desc.Params {
		name := "arg" + strconv.Itoa(i)
		if opts.RecoverVariableNames && m.Code != nil {
			for _, lv := range m.Code.LocalVars {
				if lv.Slot == slot && lv.StartPC == 0 {
					name = lv.Name
					break
				}
			}
		}
		params[i] = ast.Param{Type: ast.Type{Name: p.JavaName()}, Name: name}
		slot++
		if p.IsWide() {
			slot++
		}
	}
	return params
}

func javaNames(internalNames []string) []string {
	names := make([]string, len(internalNames))
	for i, n := range internalNames {
		names[i] = javaName(n)
	}
	return names
}

// memberKind discriminates which access-flag meaning a shared bit takes:
// ACC_VOLATILE/ACC_TRANSIENT (fields) alias ACC_BRIDGE/ACC_VARARGS
// (methods), and neither applies to a class's own access flags.
type memberKind int

const (
	memberClass memberKind = iota
	memberField
	memberMethod
)

func modifiersFromAccess(flags int, kind memberKind) ast.Modifier {
	var m ast.Modifier
	if flags&classfile.AccPublic != 0 {
		m |= ast.ModPublic
	}
	if flags&classfile.AccProtected != 0 {
		m |= ast.ModProtected
	}
	if flags&classfile.AccPrivate != 0 {
		m |= ast.ModPrivate
	}
	if flags&classfile.AccAbstract != 0 {
		m |= ast.ModAbstract
	}
	if flags&classfile.AccStatic != 0 {
		m |= ast.ModStatic
	}
	if flags&classfile.AccFinal != 0 {
		m |= ast.ModFinal
	}
	if kind == memberMethod && flags&classfile.AccSynchronized != 0 {
		m |= ast.ModSynchronized
	}
	if kind == memberMethod && flags&classfile.AccNative != 0 {
		m |= ast.ModNative
	}
	if flags&classfile.AccStrict != 0 {
		m |= ast.ModStrictfp
	}
	if kind == memberField && flags&classfile.AccVolatile != 0 {
		m |= ast.ModVolatile
	}
	if kind == memberField && flags&classfile.AccTransient != 0 {
		m |= ast.ModTransient
	}
	return m
}

func javaName(internalName string) string {
	out := make([]byte, len(internalName))
	for i := 0; i < len(internalName); i++ {
		if internalName[i] == '/' {
			out[i] = '.'
		} else {
			out[i] = internalName[i]
		}
	}
	return string(out)
}

func simpleClassName(internalName string) string {
	name := javaName(internalName)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

