/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package cfg

import (
	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/classfile"
	"jdecomp/jerrors"
)

// Reconstruct turns the flat per-block statement map lift.Method produces,
// plus this graph's dominator tree and natural loops, into nested control
// structures: if/else, while/do-while, switch (with fallthrough and
// synthesized break), and try/catch. A single global visited set is used
// rather than per-branch copies, which is sound for the reducible,
// single-entry-per-region CFGs javac emits; a block reachable from more
// than one structural parent (the signature of an irreducible graph) is
// rendered once, at the first parent to reach it, and a diagnostic is
// attached so a caller can tell the output may read oddly for that method.
func Reconstruct(g *Graph, excTable []classfile.ExceptionEntry, blockStmts map[int][]ast.Statement, catchTypeName func(cpIndex int) string, localVarName func(slot, pc int) (string, bool)) ([]ast.Statement, []jerrors.Diagnostic) {
	idom := g.Dominators()
	loops := g.NaturalLoops(idom)
	pdom := postDominators(g)

	r := &reconstructor{
		g:            g,
		idom:         idom,
		pdom:         pdom,
		blockStmts:   blockStmts,
		loopByHeader: map[int]*Loop{},
		visited:      map[int]bool{},
		catchTypeName: catchTypeName,
		localVarName:  localVarName,
	}
	for i := range loops {
		r.loopByHeader[loops[i].Header] = &loops[i]
	}
	r.tryRanges = groupExceptionRanges(g, excTable)

	body, _ := r.buildRegion(g.Entry, -1)
	return body, r.diags
}

// frame is an active enclosing loop or switch, tracked so a block reached
// out of its own region's turn (a break/continue in the original source)
// is rendered as a control-transfer statement instead of being duplicated
// or silently dropped.
type frame struct {
	isLoop bool // false => switch
	header int  // loop header (continue target); -1 for switch frames
	exit   int  // break target: loop's exit block, or switch's merge block
	label  string
}

type tryRange struct {
	startBlock int
	endPC      int // exclusive; first PC not covered by the try
	catches    []classfile.ExceptionEntry
}

type reconstructor struct {
	g            *Graph
	idom         []int
	pdom         []int
	blockStmts   map[int][]ast.Statement
	loopByHeader map[int]*Loop
	visited      map[int]bool
	diags        []jerrors.Diagnostic
	frames       []frame
	labelCount   int
	tryRanges    []tryRange
	tryStarted   map[int]bool
	catchTypeName func(int) string
	localVarName  func(slot, pc int) (string, bool)
}

func (r *reconstructor) diag(reason, format string, args ...any) {
	r.diags = append(r.diags, jerrors.FromError(jerrors.Newf(jerrors.KindStructural, reason, format, args...)))
}

// buildRegion walks the block chain starting at b, stopping when it
// reaches stopAt (exclusive) or runs out of successors, recursing into
// loops/branches/switches/try-ranges as it finds them. The second return
// value reports whether the walk ended by reaching stopAt through normal
// control flow (true fallthrough) as opposed to an explicit break/continue,
// a terminal return/throw, a dead end, or a duplicate-visit diagnostic.
func (r *reconstructor) buildRegion(b, stopAt int) ([]ast.Statement, bool) {
	var out []ast.Statement
	cur := b
	for cur >= 0 && cur != stopAt {
		if xfer, ok := r.controlTransferFor(cur); ok {
			out = append(out, xfer)
			return out, false
		}
		if r.visited[cur] {
			// Reached from a second structural parent: irreducible shape.
			r.diag("IrreducibleRegion", "block %d is reachable along more than one structural path; rendering it only at its first occurrence", cur)
			return out, false
		}

		// A try-range is checked before a loop header so "try { for (...)
		// ... }", where the protected region's first block is also the
		// loop's header, wraps the loop rather than skipping the try: the
		// inner buildRegion call made by buildTry reaches this same block
		// again and picks up the loop check below on that second pass.
		if tr, ok := r.tryStartAt(cur); ok {
			stmt, next := r.buildTry(tr)
			out = append(out, stmt)
			cur = next
			continue
		}

		if loop, ok := r.loopByHeader[cur]; ok {
			stmt, next := r.buildLoop(loop)
			out = append(out, stmt)
			cur = next
			continue
		}

		r.visited[cur] = true
		block := &r.g.Blocks[cur]
		stmts := append([]ast.Statement(nil), r.blockStmts[cur]...)

		if n := len(stmts); n > 0 && stmts[n-1].Kind == ast.StmtIf {
			ifStmt, next := r.buildIf(cur, stmts[n-1], block)
			out = append(out, stmts[:n-1]...)
			out = append(out, ifStmt)
			cur = next
			continue
		}
		if n := len(stmts); n > 0 && stmts[n-1].Kind == ast.StmtSwitch {
			swStmt, next := r.buildSwitch(cur, stmts[n-1], block)
			out = append(out, stmts[:n-1]...)
			out = append(out, swStmt)
			cur = next
			continue
		}

		out = append(out, stmts...)
		cur = r.singleSucc(block)
	}
	return out, cur == stopAt
}

// controlTransferFor reports whether cur is the break/continue target of
// any active loop or switch frame, the innermost included, in which case
// the walk must stop and emit a break/continue (labeled when the target
// frame is not the innermost one) instead of inlining (or re-visiting)
// that block's code.
func (r *reconstructor) controlTransferFor(cur int) (ast.Statement, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := r.frames[i]
		if f.isLoop && f.header == cur {
			innermost := r.innermostLoopIndex() == i
			label := ""
			if !innermost {
				label = r.ensureLabel(i)
			}
			return ast.Statement{Kind: ast.StmtContinue, Label: label}, true
		}
		if f.exit == cur {
			innermost := i == len(r.frames)-1
			label := ""
			if !innermost {
				label = r.ensureLabel(i)
			}
			return ast.Statement{Kind: ast.StmtBreak, Label: label}, true
		}
	}
	return ast.Statement{}, false
}

func (r *reconstructor) innermostLoopIndex() int {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].isLoop {
			return i
		}
	}
	return -1
}

func (r *reconstructor) ensureLabel(i int) string {
	if r.frames[i].label == "" {
		r.labelCount++
		r.frames[i].label = labelName(r.labelCount)
	}
	return r.frames[i].label
}

func labelName(n int) string {
	names := [...]string{"loop", "outer", "block"}
	idx := (n - 1) % len(names)
	suffix := (n - 1) / len(names)
	if suffix == 0 {
		return names[idx]
	}
	return names[idx] + itoaSmall(suffix)
}

func itoaSmall(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func (r *reconstructor) singleSucc(b *Block) int {
	for _, e := range b.Succs {
		if e.Kind != EdgeException {
			return e.To
		}
	}
	return -1
}

func branchAndFallthrough(b *Block) (branchTo, fallTo int) {
	branchTo, fallTo = -1, -1
	for _, e := range b.Succs {
		switch e.Kind {
		case EdgeBranch:
			branchTo = e.To
		case EdgeFallthrough:
			fallTo = e.To
		}
	}
	return
}

// buildIf recovers a two-arm if/else from a block ending in the lifter's
// StmtIf placeholder: Then is the branch-taken arm, Else the fallthrough
// arm, both stopped at the block's immediate post-dominator (their common
// merge point).
func (r *reconstructor) buildIf(cur int, placeholder ast.Statement, block *Block) (ast.Statement, int) {
	merge := r.pdom[cur]
	branchTo, fallTo := branchAndFallthrough(block)
	then, _ := r.buildRegion(branchTo, merge)
	els, _ := r.buildRegion(fallTo, merge)
	stmt := ast.Statement{Kind: ast.StmtIf, PC: placeholder.PC, Cond: placeholder.Cond, Then: then, Else: els}
	return stmt, merge
}

// buildLoop recovers a while/do-while statement from a natural loop. javac
// emits two different shapes depending on optimization level: a bottom-
// tested shape, where the latch carries the condition and branches back to
// the header (a single-block loop, header == latch, is exactly a
// do-while); and a header-tested shape, where the header itself carries the
// condition -- one arm falling through into the body, the other exiting the
// loop -- and the latch is a bare unconditional jump back to the header.
func (r *reconstructor) buildLoop(loop *Loop) (ast.Statement, int) {
	header := loop.Header
	latch := loop.Latches[0]
	if len(loop.Latches) > 1 {
		r.diag("MultiLatchLoop", "loop at block %d has %d latches; only the first is used to recover the loop test", header, len(loop.Latches))
	}
	latchBlock := &r.g.Blocks[latch]
	latchStmts := r.blockStmts[latch]
	headerBlock := &r.g.Blocks[header]
	headerStmts := r.blockStmts[header]

	var cond *ast.Expression
	exit := -1
	condAtBottom := len(latchStmts) > 0 && latchStmts[len(latchStmts)-1].Kind == ast.StmtIf && len(latchBlock.Succs) == 2
	headerTested := false
	if condAtBottom {
		placeholder := latchStmts[len(latchStmts)-1]
		branchTo, fallTo := branchAndFallthrough(latchBlock)
		if branchTo == header {
			cond = placeholder.Cond
			exit = fallTo
		} else {
			cond = negateCondition(placeholder.Cond)
			exit = branchTo
		}
	} else if header != latch && len(headerStmts) > 0 && headerStmts[len(headerStmts)-1].Kind == ast.StmtIf && len(headerBlock.Succs) == 2 {
		headerTested = true
		placeholder := headerStmts[len(headerStmts)-1]
		branchTo, fallTo := branchAndFallthrough(headerBlock)
		if loop.Body[branchTo] {
			cond = placeholder.Cond
			exit = fallTo
		} else {
			cond = negateCondition(placeholder.Cond)
			exit = branchTo
		}
	} else {
		r.diag("UnboundedLoop", "loop at block %d has no recognizable test; rendering as while (true) with no statically known exit", header)
		cond = &ast.Expression{Kind: ast.ExprLiteral, LiteralValue: true, Type: ast.Type{Name: "boolean"}}
	}

	frameIdx := len(r.frames)
	r.frames = append(r.frames, frame{isLoop: true, header: header, exit: exit})
	var body []ast.Statement
	switch {
	case header == latch:
		// do-while: the header's own statements are the body, minus the
		// trailing test, which became the loop condition above.
		r.visited[header] = true
		n := len(r.blockStmts[header])
		if n > 0 {
			n--
		}
		body = append(body, r.blockStmts[header][:n]...)
	case headerTested:
		// The header runs at the top of every iteration, test included; its
		// statements before the test are the body's leading statements, and
		// the walk resumes on whichever edge stays inside the loop, stopping
		// back at the header rather than re-rendering it.
		r.visited[header] = true
		n := len(headerStmts)
		if n > 0 {
			n--
		}
		body = append(body, headerStmts[:n]...)
		branchTo, fallTo := branchAndFallthrough(headerBlock)
		bodyStart := fallTo
		if loop.Body[branchTo] {
			bodyStart = branchTo
		}
		rest, _ := r.buildRegion(bodyStart, header)
		body = append(body, rest...)
	default:
		body, _ = r.buildRegion(header, latch)
		r.visited[latch] = true
		if condAtBottom {
			body = append(body, latchStmts[:len(latchStmts)-1]...)
		} else {
			body = append(body, latchStmts...)
		}
	}
	label := r.frames[frameIdx].label
	r.frames = r.frames[:frameIdx]

	kind := ast.StmtWhile
	if header == latch {
		kind = ast.StmtDoWhile
	}
	stmt := ast.Statement{Kind: kind, LoopCond: cond, LoopBody: body}
	if label != "" {
		stmt = ast.Statement{Kind: ast.StmtLabeled, Label: label, LabeledStmt: &stmt}
	}
	return stmt, exit
}

// negateCondition inverts a simple relational comparison -- the only
// expression shape liftConditionalBranch ever produces for a bare if* --
// so a bottom-tested "exit when false" latch can be rendered as the
// natural "loop while true" condition instead.
func negateCondition(e *ast.Expression) *ast.Expression {
	if e == nil || e.Kind != ast.ExprBinary {
		return e
	}
	inverted := *e
	switch e.BinaryOperator {
	case ast.BinEq:
		inverted.BinaryOperator = ast.BinNe
	case ast.BinNe:
		inverted.BinaryOperator = ast.BinEq
	case ast.BinLt:
		inverted.BinaryOperator = ast.BinGe
	case ast.BinGe:
		inverted.BinaryOperator = ast.BinLt
	case ast.BinLe:
		inverted.BinaryOperator = ast.BinGt
	case ast.BinGt:
		inverted.BinaryOperator = ast.BinLe
	}
	return &inverted
}

// switchCaseTarget is one key (or set of keys sharing a target) paired
// with the block it jumps to.
type switchCaseTarget struct {
	values    []int32
	isDefault bool
	target    int
}

// buildSwitch recovers a StmtSwitch's case arms from the raw jump table
// still attached to the block's terminating instruction (cfg.Block keeps
// the decoded bytecode.Instruction, so the table survives past lifting
// even though the lifted StmtSwitch placeholder only carries SwitchOn).
func (r *reconstructor) buildSwitch(cur int, placeholder ast.Statement, block *Block) (ast.Statement, int) {
	merge := r.pdom[cur]
	last := block.Instrs[len(block.Instrs)-1]
	sd := last.Switch
	if sd == nil {
		r.diag("MissingSwitchTable", "block %d ends in a switch instruction with no decoded jump table", cur)
		return ast.Statement{Kind: ast.StmtSwitch, PC: placeholder.PC, SwitchOn: placeholder.SwitchOn}, merge
	}

	var targets []switchCaseTarget
	if last.Op == bytecode.OpTableswitch {
		for i, t := range sd.Targets {
			targets = append(targets, switchCaseTarget{values: []int32{int32(sd.Low + i)}, target: r.g.blockIndexForPC(t)})
		}
	} else {
		for i, k := range sd.Keys {
			targets = append(targets, switchCaseTarget{values: []int32{int32(k)}, target: r.g.blockIndexForPC(sd.Targets[i])})
		}
	}
	targets = append(targets, switchCaseTarget{isDefault: true, target: r.g.blockIndexForPC(sd.Default)})

	merged := mergeSwitchTargets(targets)

	r.frames = append(r.frames, frame{isLoop: false, header: -1, exit: merge})
	var cases []ast.SwitchCase
	for i, m := range merged {
		hasNext := i+1 < len(merged) && m.target != merged[i+1].target
		stopAt := merge
		if hasNext {
			stopAt = merged[i+1].target
		}
		body, reachedStopNormally := r.buildRegion(m.target, stopAt)

		// A case needs no synthesized break when it already ends in its
		// own control-transfer (break/continue, inserted above when the
		// walk hit an enclosing frame's exit) or a terminal return/throw:
		// both stop control right there regardless of what follows in the
		// switch. Otherwise, reaching stopAt normally only means true
		// fallthrough when stopAt was the next case's block and not the
		// switch's own merge point.
		terminatesItself := len(body) > 0 && isTerminalStmt(body[len(body)-1].Kind)
		fallsThrough := hasNext && reachedStopNormally && !terminatesItself
		if !fallsThrough && !terminatesItself {
			body = append(body, ast.Statement{Kind: ast.StmtBreak})
		}
		cases = append(cases, ast.SwitchCase{Values: m.values, IsDefault: m.isDefault, Body: body, Fallthrough: fallsThrough})
	}
	r.frames = r.frames[:len(r.frames)-1]

	stmt := ast.Statement{Kind: ast.StmtSwitch, PC: placeholder.PC, SwitchOn: placeholder.SwitchOn, SwitchCases: cases}
	return stmt, merge
}

func isTerminalStmt(k ast.StmtKind) bool {
	switch k {
	case ast.StmtReturn, ast.StmtThrow, ast.StmtBreak, ast.StmtContinue:
		return true
	default:
		return false
	}
}

func mergeSwitchTargets(targets []switchCaseTarget) []switchCaseTarget {
	var merged []switchCaseTarget
	byTarget := map[int]int{} // target block -> index in merged
	for _, t := range targets {
		if idx, ok := byTarget[t.target]; ok && !t.isDefault && !merged[idx].isDefault {
			merged[idx].values = append(merged[idx].values, t.values...)
			continue
		}
		byTarget[t.target] = len(merged)
		merged = append(merged, t)
	}
	return merged
}

// groupExceptionRanges collapses an exception table into one entry per
// distinct protected (StartPC, EndPC) range, keeping every handler that
// shares it (the multi-catch / "catch (A | B e)" shape, or independent
// sequential catch clauses, both declare one table row per handler over
// the same range).
func groupExceptionRanges(g *Graph, excTable []classfile.ExceptionEntry) []tryRange {
	var ranges []tryRange
	byRange := map[[2]int]int{}
	for _, e := range excTable {
		key := [2]int{e.StartPC, e.EndPC}
		if idx, ok := byRange[key]; ok {
			ranges[idx].catches = append(ranges[idx].catches, e)
			continue
		}
		byRange[key] = len(ranges)
		ranges = append(ranges, tryRange{startBlock: g.blockIndexForPC(e.StartPC), endPC: e.EndPC, catches: []classfile.ExceptionEntry{e}})
	}
	return ranges
}

func (r *reconstructor) tryStartAt(cur int) (tryRange, bool) {
	if r.tryStarted == nil {
		r.tryStarted = map[int]bool{}
	}
	for _, tr := range r.tryRanges {
		if tr.startBlock == cur && !r.tryStarted[cur] {
			r.tryStarted[cur] = true
			return tr, true
		}
	}
	return tryRange{}, false
}

// catchLocal recovers the slot and declared name of the exception a catch
// clause binds. javac always emits the handler's first instruction as the
// store of the implicitly-pushed exception reference into that slot;
// LocalVariableTable (when present) names it from there, the same way
// argName/localName recover names for parameters and ordinary locals.
// Returns (0, "") when the handler body is empty or does not open with a
// store -- the printer falls back to "e" for an unnamed catch parameter.
func (r *reconstructor) catchLocal(handlerIdx, handlerPC int) (int, string) {
	if handlerIdx < 0 || handlerIdx >= len(r.g.Blocks) {
		return 0, ""
	}
	instrs := r.g.Blocks[handlerIdx].Instrs
	if len(instrs) == 0 {
		return 0, ""
	}
	first := instrs[0]
	var slot int
	switch first.Op {
	case bytecode.OpAstore:
		slot = first.VarSlot
	case bytecode.OpAstore0:
		slot = 0
	case bytecode.OpAstore1:
		slot = 1
	case bytecode.OpAstore2:
		slot = 2
	case bytecode.OpAstore3:
		slot = 3
	default:
		return 0, ""
	}
	if r.localVarName != nil {
		if name, ok := r.localVarName(slot, handlerPC); ok {
			return slot, name
		}
	}
	return slot, ""
}

// buildTry recovers a StmtTry: the protected region runs from the try's
// start block up to the first block outside [StartPC, EndPC). Each
// exception-table row sharing that range becomes a CatchClause starting at
// its HandlerPC, except that a genuine "catch (A | B e)" multi-catch emits
// several rows with the *same* HandlerPC -- the handler body is physical
// bytecode appearing once, so those rows are merged into a single clause
// with every named type, rendering the body only once rather than revisiting
// the same block per row (which would otherwise report it as irreducible).
// Finally blocks are not reconstructed: javac duplicates finally bytecode
// inline at every exit point rather than emitting a single shared block, and
// de-duplicating that back into one finally clause is left as a known gap
// (see DESIGN.md).
func (r *reconstructor) buildTry(tr tryRange) (ast.Statement, int) {
	endBlock := r.g.blockIndexForPC(tr.endPC)
	merge := r.pdom[tr.startBlock]

	body, _ := r.buildRegion(tr.startBlock, endBlock)

	var catches []ast.CatchClause
	seenHandler := map[int]int{} // HandlerPC -> index into catches
	for _, e := range tr.catches {
		handlerIdx := r.g.blockIndexForPC(e.HandlerPC)
		if handlerIdx < 0 {
			continue
		}
		typeName := "java.lang.Throwable"
		if r.catchTypeName != nil && e.CatchType != 0 {
			typeName = r.catchTypeName(e.CatchType)
		}
		if idx, ok := seenHandler[e.HandlerPC]; ok {
			catches[idx].ExceptionTypes = append(catches[idx].ExceptionTypes, typeName)
			continue
		}
		cbody, _ := r.buildRegion(handlerIdx, merge)
		seenHandler[e.HandlerPC] = len(catches)
		slot, name := r.catchLocal(handlerIdx, e.HandlerPC)
		catches = append(catches, ast.CatchClause{ExceptionTypes: []string{typeName}, LocalSlot: slot, LocalName: name, Body: cbody})
	}

	stmt := ast.Statement{Kind: ast.StmtTry, TryBody: body, Catches: catches}
	return stmt, merge
}
