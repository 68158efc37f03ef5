/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package cfg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdecomp/bytecode"
	"jdecomp/classfile"
)

func TestBuildStraightLineSingleBlock(t *testing.T) {
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIconst0, Width: 1},
		{PC: 1, Op: bytecode.OpIreturn, Width: 1},
	}
	g := Build(instrs, nil)
	require.Len(t, g.Blocks, 1)
	assert.Empty(t, g.Blocks[0].Succs)
}

// buildIfElse models: if (cond) { A } else { B }; join
//
//	b0: ifeq -> b2 (false edge), fallthrough -> b1 (true edge)
//	b1: goto -> b3
//	b2: fallthrough -> b3
//	b3: return
func buildIfElse() []bytecode.Instruction {
	return []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIfeq, Width: 3, BranchTarget: 10}, // b0
		{PC: 3, Op: bytecode.OpNop, Width: 1},                   // b1 (true branch)
		{PC: 4, Op: bytecode.OpGoto, Width: 3, BranchTarget: 11}, // b1 end
		{PC: 10, Op: bytecode.OpNop, Width: 1},                   // b2 (false branch)
		{PC: 11, Op: bytecode.OpReturn, Width: 1},                // b3 (join)
	}
}

func TestBuildIfElseEdges(t *testing.T) {
	g := Build(buildIfElse(), nil)
	require.Len(t, g.Blocks, 4)

	b0 := g.Blocks[0]
	require.Len(t, b0.Succs, 2)

	var sawBranch, sawFallthrough bool
	for _, e := range b0.Succs {
		switch e.Kind {
		case EdgeBranch:
			sawBranch = true
			assert.Equal(t, 10, g.Blocks[e.To].Start)
		case EdgeFallthrough:
			sawFallthrough = true
			assert.Equal(t, 3, g.Blocks[e.To].Start)
		}
	}
	assert.True(t, sawBranch)
	assert.True(t, sawFallthrough)

	join := g.blockIndexForPC(11)
	require.GreaterOrEqual(t, join, 0)
	assert.Len(t, g.Blocks[join].Preds, 2, "both branches must rejoin at the join block")
}

// buildLoop models: i=0; while (i<10) { i++ }
//
//	b0: fallthrough -> b1 (loop header)
//	b1: iflt -> b3 (exit), fallthrough -> b2 (body)
//	b2: goto -> b1 (back edge / latch)
//	b3: return
func buildLoop() []bytecode.Instruction {
	return []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIconst0, Width: 1},
		{PC: 1, Op: bytecode.OpIflt, Width: 3, BranchTarget: 10}, // header (b1), target = exit
		{PC: 4, Op: bytecode.OpIinc, Width: 3, VarSlot: 1, IincDelta: 1},
		{PC: 7, Op: bytecode.OpGoto, Width: 3, BranchTarget: 1}, // latch -> header
		{PC: 10, Op: bytecode.OpReturn, Width: 1},
	}
}

func TestNaturalLoopDetection(t *testing.T) {
	g := Build(buildLoop(), nil)
	idom := g.Dominators()
	loops := g.NaturalLoops(idom)
	require.Len(t, loops, 1)

	header := g.blockIndexForPC(1)
	assert.Equal(t, header, loops[0].Header)

	latch := g.blockIndexForPC(7)
	assert.Contains(t, loops[0].Latches, latch)

	body := g.blockIndexForPC(4)
	assert.True(t, loops[0].Body[body], "iinc block must be part of the loop body")
}

func TestDominatorsOnIfElse(t *testing.T) {
	g := Build(buildIfElse(), nil)
	idom := g.Dominators()

	trueBlock := g.blockIndexForPC(3)
	falseBlock := g.blockIndexForPC(10)
	join := g.blockIndexForPC(11)

	assert.True(t, Dominates(idom, g.Entry, trueBlock))
	assert.True(t, Dominates(idom, g.Entry, falseBlock))
	assert.True(t, Dominates(idom, g.Entry, join))
	assert.False(t, Dominates(idom, trueBlock, join), "true-branch block must not dominate the join (false branch can reach it directly)")
}

func TestExceptionEdges(t *testing.T) {
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpNop, Width: 1},
		{PC: 1, Op: bytecode.OpAthrow, Width: 1},
		{PC: 2, Op: bytecode.OpAstore, Width: 2, VarSlot: 1},
		{PC: 4, Op: bytecode.OpReturn, Width: 1},
	}
	excTable := []classfile.ExceptionEntry{
		{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: 0},
	}
	g := Build(instrs, excTable)

	handlerIdx := g.blockIndexForPC(2)
	protectedIdx := g.blockIndexForPC(0)

	found := false
	for _, e := range g.Blocks[protectedIdx].Succs {
		if e.Kind == EdgeException && e.To == handlerIdx {
			found = true
		}
	}
	assert.True(t, found, "protected block must have an exception edge to the handler")
}

func TestDOTRendersAllBlocks(t *testing.T) {
	g := Build(buildIfElse(), nil)
	dot := g.DOT()
	assert.Contains(t, dot, "digraph cfg")
	for _, b := range g.Blocks {
		assert.Contains(t, dot, "b"+strconv.Itoa(b.Index))
	}
}
