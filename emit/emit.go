/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package emit pretty-prints a recovered ast.ClassDecl as Java source text.
// Jacobin never renders source -- it interprets bytecode and, at most,
// formats a stack trace -- so this package's layout follows the general
// shape of a from-scratch strings.Builder-driven printer rather than
// adapting any single teacher file, the same "new, grounded on convention
// rather than a specific file" treatment already used for cfg and lift.
package emit

import (
	"strconv"
	"strings"

	"jdecomp/ast"
	"jdecomp/jerrors"
)

// BraceStyle selects where an opening brace lands relative to its header.
type BraceStyle int

const (
	// BraceSameLine puts the opening brace at the end of the header line,
	// e.g. "if (x) {" -- the conventional Java style.
	BraceSameLine BraceStyle = iota
	// BraceNextLine puts the opening brace alone on the following line.
	BraceNextLine
)

// Options configures the printer. Zero value is usable but DefaultOptions
// matches the conventional Java formatting most decompiled output expects.
type Options struct {
	IndentUnit       string
	BraceStyle       BraceStyle
	EmitLineComments bool
	// PreferForLoops rewrites a while loop whose body's last statement is
	// a simple increment/decrement of a local into the equivalent
	// for (; cond; update) form at print time. cfg.Reconstruct always
	// emits StmtWhile/StmtDoWhile, never StmtFor, so this is purely a
	// cosmetic choice made here rather than a structural-recovery one.
	PreferForLoops bool
}

// DefaultOptions returns the conventional Java formatting: four-space
// indent, same-line braces, no line-number comments, for-loop folding on.
func DefaultOptions() Options {
	return Options{
		IndentUnit:     "    ",
		BraceStyle:     BraceSameLine,
		PreferForLoops: true,
	}
}

// javaReservedWords are identifiers that cannot appear verbatim as a
// recovered name; reader.go / bytecode decoding never produces them as
// literal Java source identifiers (obfuscators and synthetic names can),
// so any collision must be escaped at print time.
var javaReservedWords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "yield": true, "record": true,
}

// printer accumulates output and the diagnostics raised while doing so
// (currently only reserved-word escaping); it holds no other state that
// outlives one Document call.
type printer struct {
	buf          strings.Builder
	opts         Options
	depth        int
	diags        []jerrors.Diagnostic
	voidReturn   bool // true while printing a method body whose return type is void
}

// Document renders root as Java source text. The second return value is
// never fatal -- reserved-word escapes are the only diagnostic this
// package raises, and the rendered text is always syntactically valid
// Java regardless of whether any were needed.
func Document(root *ast.ClassDecl, opts Options) (string, []jerrors.Diagnostic) {
	if opts.IndentUnit == "" {
		opts.IndentUnit = DefaultOptions().IndentUnit
	}
	p := &printer{opts: opts}
	p.printClass(root)
	return p.buf.String(), p.diags
}

func (p *printer) write(s string) { p.buf.WriteString(s) }

func (p *printer) indent() { p.buf.WriteString(strings.Repeat(p.opts.IndentUnit, p.depth)) }

func (p *printer) newline() { p.buf.WriteString("\n") }

// openBrace writes the brace that ends header, honoring BraceStyle.
func (p *printer) openBrace() {
	switch p.opts.BraceStyle {
	case BraceNextLine:
		p.newline()
		p.indent()
		p.write("{\n")
	default:
		p.write(" {\n")
	}
}

// lineComment renders a trailing "// pc N" annotation when
// Options.EmitLineComments is set, for diffing decompiled output against a
// disassembly; it is a no-op string otherwise.
func (p *printer) lineComment(pc int) string {
	if !p.opts.EmitLineComments || pc < 0 {
		return ""
	}
	return " // pc " + strconv.Itoa(pc)
}

func (p *printer) diag(reason, format string, args ...any) {
	p.diags = append(p.diags, jerrors.FromError(jerrors.Newf(jerrors.KindStructural, reason, format, args...)))
}

// escapeIdent quotes a recovered name that collides with a Java reserved
// word by appending "_", raising a diagnostic so a caller can tell the
// rendered identifier does not match the original bytecode-level name.
func (p *printer) escapeIdent(name string) string {
	if javaReservedWords[name] {
		p.diag("ReservedIdentifier", "recovered name %q is a Java reserved word; emitting %q instead", name, name+"_")
		return name + "_"
	}
	return name
}

// modifierOrder is the canonical emission order named by ast.Modifier's
// doc comment: one of public/protected/private, then every other
// modifier bit in this fixed sequence.
var modifierOrder = []struct {
	bit  ast.Modifier
	text string
}{
	{ast.ModPublic, "public"},
	{ast.ModProtected, "protected"},
	{ast.ModPrivate, "private"},
	{ast.ModAbstract, "abstract"},
	{ast.ModStatic, "static"},
	{ast.ModFinal, "final"},
	{ast.ModSynchronized, "synchronized"},
	{ast.ModNative, "native"},
	{ast.ModStrictfp, "strictfp"},
	{ast.ModVolatile, "volatile"},
	{ast.ModTransient, "transient"},
}

func modifiersString(m ast.Modifier) string {
	var parts []string
	for _, mo := range modifierOrder {
		if m&mo.bit != 0 {
			parts = append(parts, mo.text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

func (p *printer) printClass(c *ast.ClassDecl) {
	p.write(modifiersString(c.Modifiers))
	if c.IsInterface {
		p.write("interface ")
	} else {
		p.write("class ")
	}
	p.write(p.escapeIdent(simpleName(c.Name)))
	if c.SuperClass != "" && c.SuperClass != "java.lang.Object" {
		p.write(" extends " + c.SuperClass)
	}
	if len(c.Interfaces) > 0 {
		kw := " implements "
		if c.IsInterface {
			kw = " extends "
		}
		p.write(kw + strings.Join(c.Interfaces, ", "))
	}
	p.openBrace()
	p.depth++

	for i := range c.Fields {
		p.printField(&c.Fields[i])
	}
	if len(c.Fields) > 0 && len(c.Methods) > 0 {
		p.newline()
	}
	for i, m := range c.Methods {
		if i > 0 {
			p.newline()
		}
		p.printMethod(&c.Methods[i])
	}

	p.depth--
	p.write("}\n")
}

func simpleName(qualified string) string {
	if idx := strings.LastIndexByte(qualified, '.'); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}

func (p *printer) printField(f *ast.FieldDecl) {
	p.indent()
	p.write(modifiersString(f.Modifiers))
	p.write(f.Type.Name + " " + p.escapeIdent(f.Name))
	if f.Init != nil {
		p.write(" = " + p.printExpr(f.Init))
	}
	p.write(";\n")
}

func (p *printer) printMethod(m *ast.MethodDecl) {
	p.indent()
	p.write(modifiersString(m.Modifiers))
	if !m.IsConstructor {
		if m.ReturnType.IsVoid {
			p.write("void ")
		} else {
			p.write(m.ReturnType.Name + " ")
		}
	}
	p.write(p.escapeIdent(m.Name))
	p.write("(")
	for i, param := range m.Params {
		if i > 0 {
			p.write(", ")
		}
		p.write(param.Type.Name + " " + p.escapeIdent(param.Name))
	}
	p.write(")")
	if len(m.Throws) > 0 {
		p.write(" throws " + strings.Join(m.Throws, ", "))
	}

	if m.Body == nil {
		// abstract or native: no body, declaration ends in a semicolon.
		p.write(";\n")
		return
	}

	prevVoid := p.voidReturn
	p.voidReturn = m.ReturnType.IsVoid && !m.IsConstructor
	p.openBrace()
	p.depth++
	p.printStatements(m.Body)
	p.depth--
	p.indent()
	p.write("}\n")
	p.voidReturn = prevVoid
}
