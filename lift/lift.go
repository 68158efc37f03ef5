/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package lift converts stack-machine bytecode into expression trees by
// symbolic execution, the hardest subsystem in the pipeline. Jacobin's
// interpreter evaluates the stack concretely at runtime rather than
// building a tree, so this package replays the *semantics* implied by
// jacobin's opcode handling (value typing by descriptor first byte, as
// seen in jvm/instantiate.go's field-initialization switch) against a
// symbolic stack/locals model instead of concrete values.
package lift

import (
	"strconv"

	"jdecomp/ast"
	"jdecomp/cfg"
	"jdecomp/classfile"
	"jdecomp/constpool"
	"jdecomp/descriptor"
	"jdecomp/jerrors"
)

// Options configures the lifter's behavior.
type Options struct {
	// KeepRedundantCasts is not consulted by the lifter: no cast folding
	// is performed, so a cast immediately followed by an identical cast is
	// always kept as two casts.
	KeepRedundantCasts bool
	// RecoverVariableNames looks up LocalVariableTable entries for
	// parameter names when true (the default, set by the driver). When
	// false, every parameter renders as "argN" regardless of debug info.
	RecoverVariableNames bool
	// FoldConstructorNew enables (the driver's default) the fold of "new
	// Foo(); ...; invokespecial <init>" into a single ExprNewObject with
	// NewArgs populated; with it off, the constructor call renders as a
	// literal invokespecial on the already-pushed object instead.
	FoldConstructorNew bool
}

// Stack is the symbolic operand stack: an ordered sequence of expressions,
// long/double values occupying two conceptual slots, as on the JVM.
type Stack struct {
	values []ast.Expression
}

func (s *Stack) Push(e ast.Expression) { s.values = append(s.values, e) }

func (s *Stack) Pop() ast.Expression {
	n := len(s.values) - 1
	e := s.values[n]
	s.values = s.values[:n]
	return e
}

func (s *Stack) Peek() ast.Expression { return s.values[len(s.values)-1] }
func (s *Stack) Len() int             { return len(s.values) }

// Locals is the symbolic local-variable table: slot index -> currently
// bound expression. long/double locals occupy two consecutive slots;
// the companion slot is left unbound (nil) by convention.
type Locals struct {
	slots map[int]ast.Expression
	names map[int]string // recovered from LocalVariableTable when available
}

func newLocals() *Locals {
	return &Locals{slots: map[int]ast.Expression{}, names: map[int]string{}}
}

func (l *Locals) bind(slot int, e ast.Expression) { l.slots[slot] = e }
func (l *Locals) get(slot int) (ast.Expression, bool) {
	e, ok := l.slots[slot]
	return e, ok
}

// methodState carries per-method context threaded through block lifting.
type methodState struct {
	pool       *constpool.Pool
	className  string
	method     *classfile.Method
	methodDesc descriptor.Method
	opts       Options
	diags      []jerrors.Diagnostic

	// declaredSlots records, for every local slot that has been bound to
	// a declared type so far (seeded with "this"/the parameters, then
	// grown as each block's first store to a new slot is lifted), that
	// slot's declared Java type name. A store whose slot is absent here,
	// or present with a different type name, introduces the slot (or
	// re-introduces it under its new type) via StmtLocalDecl; any other
	// store to an already-declared slot is a plain StmtAssign.
	declaredSlots map[int]string
}

func (ms *methodState) diag(err *jerrors.Error) {
	ms.diags = append(ms.diags, jerrors.FromError(err))
}

func (ms *methodState) diagError(reason, format string, args ...any) {
	ms.diag(jerrors.Newf(jerrors.KindStructural, reason, format, args...))
}

// BlockResult is the lifted form of one basic block: the statements it
// contributes plus the stack/locals state handed to its successors.
type BlockResult struct {
	Statements []ast.Statement
	ExitStack  Stack
	ExitLocals *Locals
}

// Method lifts every basic block of g into statement lists, entry-to-exit,
// processing blocks in reverse-post-order over the CFG so a block's
// predecessors are always lifted before it. It returns a flat per-block
// statement map; structural recovery (package cfg's Reconstruct, once
// driven from this map) turns the block graph plus these statement lists
// into nested control structures.
func Method(m *classfile.Method, g *cfg.Graph, pool *constpool.Pool, className string, opts Options) (map[int][]ast.Statement, []jerrors.Diagnostic) {
	desc, err := descriptor.ParseMethod(m.Descriptor)
	ms := &methodState{pool: pool, className: className, method: m, methodDesc: desc, opts: opts, declaredSlots: map[int]string{}}
	if err != nil {
		ms.diag(jerrors.Newf(jerrors.KindBytecode, "InvalidDescriptor", "method %s has an unparseable descriptor: %v", m.Name, err))
		return nil, ms.diags
	}

	entryLocals := entryLocals(m, desc, className, opts)
	for slot, e := range entryLocals.slots {
		// this/the parameters are already declared by the method's own
		// signature; a later store to these slots is a reassignment,
		// never a fresh declaration.
		ms.declaredSlots[slot] = e.Type.Name
	}
	order := reversePostOrder(g)

	results := map[int][]ast.Statement{}
	// Every block is lifted from a fresh copy of the entry locals and an
	// empty stack: what one block stores or leaves on the stack is not
	// carried into its successors, and blocks reached from several
	// predecessors get no merge step (no synthetic temporaries, no
	// stack-height check at the join).
	for _, bi := range order {
		b := &g.Blocks[bi]
		locals := entryLocals.clone()
		stack := &Stack{}
		stmts := ms.liftBlock(b, stack, locals)
		results[bi] = stmts
	}

	return results, ms.diags
}

// storeStatement decides, for a store into slot, whether this is the
// slot's first binding (or a rebinding to an incompatible declared type)
// -- in which case Java requires a declaration, not a bare assignment --
// or an ordinary reassignment of an already-declared local.
func (ms *methodState) storeStatement(slot, pc int, target, value ast.Expression) ast.Statement {
	if declared, ok := ms.declaredSlots[slot]; !ok || declared != target.Type.Name {
		ms.declaredSlots[slot] = target.Type.Name
		return ast.Statement{
			Kind:     ast.StmtLocalDecl,
			PC:       pc,
			DeclType: target.Type,
			DeclName: target.LocalName,
			DeclSlot: slot,
			DeclInit: ptr(value),
		}
	}
	return ast.Statement{Kind: ast.StmtAssign, PC: pc, AssignTarget: ptr(target), AssignValue: ptr(value)}
}

func entryLocals(m *classfile.Method, desc descriptor.Method, className string, opts Options) *Locals {
	l := newLocals()
	slot := 0
	if m.AccessFlags&classfile.AccStatic == 0 {
		l.bind(slot, ast.Expression{Kind: ast.ExprThis, Type: ast.Type{Name: className}})
		l.names[slot] = "this"
		slot++
	}
	for i, p := range desc.Params {
		name := argName(m, i, slot, opts)
		l.bind(slot, ast.Expression{Kind: ast.ExprLocal, LocalSlot: slot, LocalName: name, Type: ast.Type{Name: p.JavaName()}})
		l.names[slot] = name
		slot++
		if p.IsWide() {
			slot++
		}
	}
	return l
}

// argName recovers a parameter's declared name from LocalVariableTable when
// opts.RecoverVariableNames is set; otherwise (or absent debug info) it
// falls back to a positional "argN" name.
func argName(m *classfile.Method, paramIndex, slot int, opts Options) string {
	if opts.RecoverVariableNames {
		for _, lv := range localVarsFor(m) {
			if lv.Slot == slot && lv.StartPC == 0 {
				return lv.Name
			}
		}
	}
	return "arg" + strconv.Itoa(paramIndex)
}

func localVarsFor(m *classfile.Method) []classfile.LocalVarEntry {
	if m.Code == nil {
		return nil
	}
	return m.Code.LocalVars
}

func (l *Locals) clone() *Locals {
	n := newLocals()
	for k, v := range l.slots {
		n.slots[k] = v
	}
	for k, v := range l.names {
		n.names[k] = v
	}
	return n
}

func reversePostOrder(g *cfg.Graph) []int {
	visited := make([]bool, len(g.Blocks))
	var post []int
	var visit func(int)
	visit = func(b int) {
		if b < 0 || b >= len(g.Blocks) || visited[b] {
			return
		}
		visited[b] = true
		for _, e := range g.Blocks[b].Succs {
			visit(e.To)
		}
		post = append(post, b)
	}
	visit(g.Entry)
	order := make([]int, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	return order
}
