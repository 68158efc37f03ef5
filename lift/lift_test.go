/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package lift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/cfg"
	"jdecomp/classfile"
	"jdecomp/constpool"
	"jdecomp/descriptor"
)

func testPool() *constpool.Pool {
	// #0 unused, #1 Utf8 "Counter", #2 Class->#1, #3 Utf8 "java/lang/Object",
	// #4 Class->#3, #5 Utf8 "<init>", #6 Utf8 "()V", #7 Utf8 "count",
	// #8 Utf8 "I", #9 NameAndType(#7,#8), #10 Fieldref(#2,#9)
	return &constpool.Pool{Entries: []constpool.Entry{
		{},
		{Tag: constpool.TagUTF8, UTF8: "Counter"},
		{Tag: constpool.TagClass, NameIndex: 1},
		{Tag: constpool.TagUTF8, UTF8: "java/lang/Object"},
		{Tag: constpool.TagClass, NameIndex: 3},
		{Tag: constpool.TagUTF8, UTF8: "<init>"},
		{Tag: constpool.TagUTF8, UTF8: "()V"},
		{Tag: constpool.TagUTF8, UTF8: "count"},
		{Tag: constpool.TagUTF8, UTF8: "I"},
		{Tag: constpool.TagNameAndType, NameIndex: 7, DescIndex: 8},
		{Tag: constpool.TagFieldref, ClassIndex: 2, NameAndTypeIdx: 9},
	}}
}

func newTestState(pool *constpool.Pool, m *classfile.Method) *methodState {
	return &methodState{pool: pool, className: "Counter", method: m, opts: Options{RecoverVariableNames: true, FoldConstructorNew: true}, declaredSlots: map[int]string{}}
}

func testMethod(accessFlags int, descriptor string) *classfile.Method {
	return &classfile.Method{AccessFlags: accessFlags, Name: "m", Descriptor: descriptor}
}

func TestLiftSimpleArithmetic(t *testing.T) {
	// iload_0; iload_1; iadd; ireturn  =>  return a + b;
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIload0, Width: 1},
		{PC: 1, Op: bytecode.OpIload1, Width: 1},
		{PC: 2, Op: bytecode.OpIadd, Width: 1},
		{PC: 3, Op: bytecode.OpIreturn, Width: 1},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "(II)I"))

	locals := newLocals()
	locals.bind(0, ast.Expression{Kind: ast.ExprLocal, LocalSlot: 0, LocalName: "a", Type: ast.Type{Name: "int"}})
	locals.names[0] = "a"
	locals.bind(1, ast.Expression{Kind: ast.ExprLocal, LocalSlot: 1, LocalName: "b", Type: ast.Type{Name: "int"}})
	locals.names[1] = "b"

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, locals)
	require.Len(t, stmts, 1)
	require.Equal(t, ast.StmtReturn, stmts[0].Kind)
	require.NotNil(t, stmts[0].ReturnValue)
	sum := stmts[0].ReturnValue
	assert.Equal(t, ast.ExprBinary, sum.Kind)
	assert.Equal(t, ast.BinAdd, sum.BinaryOperator)
	assert.Equal(t, "a", sum.Left.LocalName)
	assert.Equal(t, "b", sum.Right.LocalName)
}

func TestLiftLocalStoreThenLoad(t *testing.T) {
	// iconst_1; istore_1; iload_1; ireturn  =>  int var1 = 1; return var1;
	// The first store into an unbound slot must declare it -- "var1 = 1;"
	// with no type would not even be legal Java for an undeclared name.
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIconst1, Width: 1},
		{PC: 1, Op: bytecode.OpIstore1, Width: 1, VarSlot: 1},
		{PC: 2, Op: bytecode.OpIload1, Width: 1},
		{PC: 3, Op: bytecode.OpIreturn, Width: 1},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "()I"))

	locals := newLocals()
	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, locals)
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.StmtLocalDecl, stmts[0].Kind)
	assert.Equal(t, "int", stmts[0].DeclType.Name)
	assert.Equal(t, 1, stmts[0].DeclSlot)
	require.NotNil(t, stmts[0].DeclInit)
	assert.Equal(t, int32(1), stmts[0].DeclInit.LiteralValue)
	assert.Equal(t, ast.StmtReturn, stmts[1].Kind)
	assert.Equal(t, stmts[0].DeclName, stmts[1].ReturnValue.LocalName)
}

func TestLiftLocalStoreTwiceDeclaresOnceThenAssigns(t *testing.T) {
	// iconst_1; istore_1; iconst_2; istore_1; iload_1; ireturn
	// => int var1 = 1; var1 = 2; return var1;
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpIconst1, Width: 1},
		{PC: 1, Op: bytecode.OpIstore1, Width: 1, VarSlot: 1},
		{PC: 2, Op: bytecode.OpIconst2, Width: 1},
		{PC: 3, Op: bytecode.OpIstore1, Width: 1, VarSlot: 1},
		{PC: 4, Op: bytecode.OpIload1, Width: 1},
		{PC: 5, Op: bytecode.OpIreturn, Width: 1},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "()I"))

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, newLocals())
	require.Len(t, stmts, 3)
	assert.Equal(t, ast.StmtLocalDecl, stmts[0].Kind)
	assert.Equal(t, ast.StmtAssign, stmts[1].Kind, "the slot is already declared, so the second store is a plain assignment")
	assert.Equal(t, int32(2), stmts[1].AssignValue.LiteralValue)
}

func TestLiftLocalStoreRedeclaresOnIncompatibleType(t *testing.T) {
	// A slot reused across disjoint live ranges for a source variable of a
	// different type is re-declared rather than assigned: "var1 = ..." with
	// a value of a new type would change what the name refers to silently.
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "()I"))
	ms.declaredSlots[1] = "int"

	target := ast.Expression{Kind: ast.ExprLocal, LocalSlot: 1, LocalName: "var1", Type: ast.Type{Name: "java.lang.String"}}
	value := ast.Expression{Kind: ast.ExprLiteral, LiteralValue: "hi", Type: ast.Type{Name: "java.lang.String"}}

	stmt := ms.storeStatement(1, 10, target, value)
	assert.Equal(t, ast.StmtLocalDecl, stmt.Kind)
	assert.Equal(t, "java.lang.String", stmt.DeclType.Name)
	assert.Equal(t, "java.lang.String", ms.declaredSlots[1])
}

func TestLiftFieldAccess(t *testing.T) {
	// aload_0; getfield count; ireturn => return this.count;
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpAload0, Width: 1},
		{PC: 1, Op: bytecode.OpGetfield, Width: 3, CPIndex: 10},
		{PC: 4, Op: bytecode.OpIreturn, Width: 1},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(0, "()I"))

	locals := newLocals()
	locals.bind(0, ast.Expression{Kind: ast.ExprThis, Type: ast.Type{Name: "Counter"}})
	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, locals)
	require.Len(t, stmts, 1)
	fa := stmts[0].ReturnValue
	require.Equal(t, ast.ExprFieldAccess, fa.Kind)
	assert.Equal(t, "count", fa.FieldName)
	assert.Equal(t, "int", fa.Type.Name)
	assert.False(t, fa.FieldStatic)
	require.NotNil(t, fa.FieldReceiver)
	assert.Equal(t, ast.ExprThis, fa.FieldReceiver.Kind)
}

func TestLiftConstructorCallFold(t *testing.T) {
	// new Counter; dup; invokespecial <init>; pop  =>  new Counter();
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpNew, Width: 3, CPIndex: 2},
		{PC: 3, Op: bytecode.OpDup, Width: 1},
		{PC: 4, Op: bytecode.OpInvokespecial, Width: 3, CPIndex: 10},
		{PC: 7, Op: bytecode.OpPop, Width: 1},
	}
	// CPIndex 10 is a Fieldref to "count":"I" in testPool(); rewrite it as a
	// Methodref and its NameAndType's #7/#8 as "<init>"/"()V" so liftInvoke
	// resolves an <init> call on Counter.
	pool := testPool()
	pool.Entries[10] = constpool.Entry{Tag: constpool.TagMethodref, ClassIndex: 2, NameAndTypeIdx: 9}
	pool.Entries[7] = constpool.Entry{Tag: constpool.TagUTF8, UTF8: "<init>"}
	pool.Entries[8] = constpool.Entry{Tag: constpool.TagUTF8, UTF8: "()V"}

	g := cfg.Build(instrs, nil)
	ms := newTestState(pool, testMethod(0, "()V"))

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, newLocals())
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.StmtExpr, stmts[0].Kind)
	newExpr := stmts[0].Expr
	require.Equal(t, ast.ExprNewObject, newExpr.Kind)
	assert.Equal(t, "Counter", newExpr.NewClass)
	assert.Empty(t, newExpr.NewArgs)
}

func TestLiftConditionalBranchFoldsLcmp(t *testing.T) {
	// lload_1; lload_3; lcmp; ifge L  =>  if (a >= b) ...
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpLload1, Width: 1},
		{PC: 1, Op: bytecode.OpLload3, Width: 1},
		{PC: 2, Op: bytecode.OpLcmp, Width: 1},
		{PC: 3, Op: bytecode.OpIfge, Width: 3, BranchTarget: 20},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "(JJ)V"))

	locals := newLocals()
	locals.bind(1, ast.Expression{Kind: ast.ExprLocal, LocalSlot: 1, LocalName: "a", Type: ast.Type{Name: "long"}})
	locals.bind(3, ast.Expression{Kind: ast.ExprLocal, LocalSlot: 3, LocalName: "b", Type: ast.Type{Name: "long"}})

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, locals)
	require.Len(t, stmts, 1)
	require.Equal(t, ast.StmtIf, stmts[0].Kind)
	cond := stmts[0].Cond
	require.Equal(t, ast.ExprBinary, cond.Kind)
	assert.Equal(t, ast.BinGe, cond.BinaryOperator)
	assert.Equal(t, "a", cond.Left.LocalName)
	assert.Equal(t, "b", cond.Right.LocalName)
}

func TestLiftArrayAccess(t *testing.T) {
	// aload_1; iconst_0; iaload; ireturn => return arr[0];
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpAload1, Width: 1},
		{PC: 1, Op: bytecode.OpIconst0, Width: 1},
		{PC: 2, Op: bytecode.OpIaload, Width: 1},
		{PC: 3, Op: bytecode.OpIreturn, Width: 1},
	}
	g := cfg.Build(instrs, nil)
	ms := newTestState(testPool(), testMethod(classfile.AccStatic, "([I)I"))

	locals := newLocals()
	locals.bind(1, ast.Expression{Kind: ast.ExprLocal, LocalSlot: 1, LocalName: "arr", Type: ast.Type{Name: "int[]"}})

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, locals)
	require.Len(t, stmts, 1)
	access := stmts[0].ReturnValue
	require.Equal(t, ast.ExprArrayAccess, access.Kind)
	assert.Equal(t, "arr", access.ArrayRef.LocalName)
	assert.EqualValues(t, 0, access.ArrayIndex.LiteralValue)
}

func TestEntryLocalsBindsThisAndArgs(t *testing.T) {
	m := testMethod(0, "(ILjava/lang/String;)V")
	desc, err := descriptor.ParseMethod(m.Descriptor)
	require.NoError(t, err)
	l := entryLocals(m, desc, "Counter", Options{RecoverVariableNames: true})

	this, ok := l.get(0)
	require.True(t, ok)
	assert.Equal(t, ast.ExprThis, this.Kind)
	assert.Equal(t, "Counter", this.Type.Name)

	arg0, ok := l.get(1)
	require.True(t, ok)
	assert.Equal(t, "int", arg0.Type.Name)

	arg1, ok := l.get(2)
	require.True(t, ok)
	assert.Equal(t, "java.lang.String", arg1.Type.Name)
}

func TestEntryLocalsFallsBackToArgNWhenNamesNotRecovered(t *testing.T) {
	m := testMethod(0, "(I)V")
	m.Code = &classfile.Code{LocalVars: []classfile.LocalVarEntry{{Slot: 1, StartPC: 0, Name: "count"}}}
	desc, err := descriptor.ParseMethod(m.Descriptor)
	require.NoError(t, err)

	recovered := entryLocals(m, desc, "Counter", Options{RecoverVariableNames: true})
	arg, ok := recovered.get(1)
	require.True(t, ok)
	assert.Equal(t, "count", arg.LocalName)

	fallback := entryLocals(m, desc, "Counter", Options{RecoverVariableNames: false})
	arg, ok = fallback.get(1)
	require.True(t, ok)
	assert.Equal(t, "arg0", arg.LocalName, "RecoverVariableNames=false ignores LocalVariableTable entirely")
}

func TestLiftConstructorCallNotFoldedWhenDisabled(t *testing.T) {
	// Same new/dup/invokespecial<init> shape as TestLiftConstructorCallFold,
	// but with FoldConstructorNew off: the receiver stays a bare
	// ExprNewObject and the <init> call renders as a plain invocation on it.
	instrs := []bytecode.Instruction{
		{PC: 0, Op: bytecode.OpNew, Width: 3, CPIndex: 2},
		{PC: 3, Op: bytecode.OpDup, Width: 1},
		{PC: 4, Op: bytecode.OpInvokespecial, Width: 3, CPIndex: 10},
		{PC: 7, Op: bytecode.OpPop, Width: 1},
	}
	pool := testPool()
	pool.Entries[10] = constpool.Entry{Tag: constpool.TagMethodref, ClassIndex: 2, NameAndTypeIdx: 9}
	pool.Entries[7] = constpool.Entry{Tag: constpool.TagUTF8, UTF8: "<init>"}
	pool.Entries[8] = constpool.Entry{Tag: constpool.TagUTF8, UTF8: "()V"}

	g := cfg.Build(instrs, nil)
	ms := &methodState{pool: pool, className: "Counter", method: testMethod(0, "()V"), opts: Options{FoldConstructorNew: false}}

	stmts := ms.liftBlock(&g.Blocks[0], &Stack{}, newLocals())
	require.Len(t, stmts, 2, "the <init> call, then the pop of the dup'd new-expression")
	assert.Equal(t, ast.StmtExpr, stmts[0].Kind)
	require.Equal(t, ast.StmtExpr, stmts[1].Kind)
	assert.Equal(t, ast.ExprNewObject, stmts[1].Expr.Kind)
	call := stmts[0].Expr
	require.Equal(t, ast.ExprMethodCall, call.Kind)
	assert.Equal(t, "<init>", call.CallName)
	require.NotNil(t, call.CallReceiver)
	assert.Equal(t, ast.ExprNewObject, call.CallReceiver.Kind, "the object stays unfolded, so the call renders on the bare new-expression receiver")
}
