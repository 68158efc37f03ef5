/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdecomp/ast"
	"jdecomp/jerrors"
)

func local(name string, slot int) *ast.Expression {
	return &ast.Expression{Kind: ast.ExprLocal, LocalName: name, LocalSlot: slot}
}

func litInt(v int32) *ast.Expression {
	return &ast.Expression{Kind: ast.ExprLiteral, LiteralValue: v}
}

func bin(op ast.BinaryOp, l, r *ast.Expression) *ast.Expression {
	return &ast.Expression{Kind: ast.ExprBinary, BinaryOperator: op, Left: l, Right: r}
}

func exprCall(name string) *ast.Expression {
	return &ast.Expression{Kind: ast.ExprMethodCall, CallName: name}
}

func stmtCall(name string) ast.Statement {
	return ast.Statement{Kind: ast.StmtExpr, Expr: exprCall(name)}
}

func stmtReturn(v *ast.Expression) ast.Statement {
	return ast.Statement{Kind: ast.StmtReturn, ReturnValue: v}
}

func TestDocumentSimpleMethod(t *testing.T) {
	class := &ast.ClassDecl{
		Name: "A",
		Methods: []ast.MethodDecl{
			{
				Modifiers:  ast.ModPublic,
				Name:       "add",
				Params:     []ast.Param{{Type: ast.Type{Name: "int"}, Name: "a"}, {Type: ast.Type{Name: "int"}, Name: "b"}},
				ReturnType: ast.Type{Name: "int"},
				Body:       []ast.Statement{stmtReturn(bin(ast.BinAdd, local("a", 1), local("b", 2)))},
			},
		},
	}

	out, diags := Document(class, DefaultOptions())
	assert.Empty(t, diags)
	assert.Equal(t,
		"class A {\n    public int add(int a, int b) {\n        return a + b;\n    }\n}\n",
		out)
}

func TestPrintIfElseBothReturn(t *testing.T) {
	class := &ast.ClassDecl{
		Name: "B",
		Methods: []ast.MethodDecl{
			{
				Name:       "max",
				Params:     []ast.Param{{Type: ast.Type{Name: "int"}, Name: "a"}, {Type: ast.Type{Name: "int"}, Name: "b"}},
				ReturnType: ast.Type{Name: "int"},
				Body: []ast.Statement{
					{
						Kind: ast.StmtIf,
						Cond: bin(ast.BinGt, local("a", 1), local("b", 2)),
						Then: []ast.Statement{stmtReturn(local("a", 1))},
						Else: []ast.Statement{stmtReturn(local("b", 2))},
					},
				},
			},
		},
	}

	out, diags := Document(class, DefaultOptions())
	assert.Empty(t, diags)
	assert.Equal(t,
		"class B {\n    int max(int a, int b) {\n        if (a > b) {\n            return a;\n        } else {\n            return b;\n        }\n    }\n}\n",
		out)
}

func TestPrintWhileRewrittenAsForLoop(t *testing.T) {
	p := &printer{opts: DefaultOptions()}
	loop := ast.Statement{
		Kind:     ast.StmtWhile,
		LoopCond: bin(ast.BinLe, local("i", 2), local("n", 1)),
		LoopBody: []ast.Statement{
			{Kind: ast.StmtAssign, AssignTarget: local("r", 3), AssignValue: bin(ast.BinMul, local("r", 3), local("i", 2))},
			{Kind: ast.StmtAssign, AssignTarget: local("i", 2), AssignValue: bin(ast.BinAdd, local("i", 2), litInt(1))},
		},
	}

	p.printStatement(&loop)
	out := p.buf.String()

	assert.Equal(t,
		"for (; i <= n; i++) {\n    r = r * i;\n}\n",
		out,
		"the trailing increment folds into the for header's update clause and is dropped from the body")
}

func TestPrintWhileWithoutSimpleUpdateStaysWhile(t *testing.T) {
	p := &printer{opts: DefaultOptions()}
	loop := ast.Statement{
		Kind:     ast.StmtWhile,
		LoopCond: bin(ast.BinLt, local("i", 1), local("n", 2)),
		LoopBody: []ast.Statement{stmtCall("work")},
	}

	p.printStatement(&loop)
	out := p.buf.String()

	assert.Equal(t, "while (i < n) {\n    work();\n}\n", out)
}

func TestPrintSwitchFallthroughAndBreak(t *testing.T) {
	p := &printer{opts: DefaultOptions()}
	sw := ast.Statement{
		Kind:     ast.StmtSwitch,
		SwitchOn: local("x", 1),
		SwitchCases: []ast.SwitchCase{
			{Values: []int32{0}, Body: []ast.Statement{stmtCall("A")}, Fallthrough: true},
			{Values: []int32{1}, Body: []ast.Statement{stmtCall("B"), {Kind: ast.StmtBreak}}},
			{IsDefault: true, Body: []ast.Statement{stmtCall("C"), {Kind: ast.StmtBreak}}},
		},
	}

	p.printStatement(&sw)
	out := p.buf.String()

	assert.Equal(t,
		"switch (x) {\n"+
			"    case 0:\n"+
			"        A();\n"+
			"    case 1:\n"+
			"        B();\n"+
			"        break;\n"+
			"    default:\n"+
			"        C();\n"+
			"        break;\n"+
			"}\n",
		out)
}

func TestPrintTryCatchFinally(t *testing.T) {
	p := &printer{opts: DefaultOptions()}
	tr := ast.Statement{
		Kind:    ast.StmtTry,
		TryBody: []ast.Statement{stmtCall("risky")},
		Catches: []ast.CatchClause{
			{ExceptionTypes: []string{"java.lang.RuntimeException"}, LocalName: "e", Body: []ast.Statement{stmtCall("handle")}},
		},
		Finally: []ast.Statement{stmtCall("cleanup")},
	}

	p.printStatement(&tr)
	out := p.buf.String()

	assert.Equal(t,
		"try {\n    risky();\n} catch (java.lang.RuntimeException e) {\n    handle();\n} finally {\n    cleanup();\n}\n",
		out)
}

func TestPrintTryMultiCatch(t *testing.T) {
	p := &printer{opts: DefaultOptions()}
	tr := ast.Statement{
		Kind:    ast.StmtTry,
		TryBody: []ast.Statement{stmtCall("risky")},
		Catches: []ast.CatchClause{
			{ExceptionTypes: []string{"java.io.IOException", "java.lang.InterruptedException"}, LocalName: "e", Body: []ast.Statement{stmtCall("handle")}},
		},
	}

	p.printStatement(&tr)
	out := p.buf.String()

	assert.Equal(t,
		"try {\n    risky();\n} catch (java.io.IOException | java.lang.InterruptedException e) {\n    handle();\n}\n",
		out)
}

func TestEscapeReservedIdentifier(t *testing.T) {
	p := &printer{}
	name := p.escapeIdent("class")

	assert.Equal(t, "class_", name)
	require.Len(t, p.diags, 1)
	assert.Equal(t, jerrors.SeverityWarning, p.diags[0].Severity)

	again := p.escapeIdent("total")
	assert.Equal(t, "total", again, "a non-reserved name passes through unchanged")
	assert.Len(t, p.diags, 1, "no new diagnostic for a name that needed no escaping")
}

func TestDocumentStringLiteralEmittedOnce(t *testing.T) {
	class := &ast.ClassDecl{
		Name: "F",
		Methods: []ast.MethodDecl{
			{
				Modifiers:  ast.ModStatic,
				Name:       "hello",
				ReturnType: ast.Type{Name: "String"},
				Body: []ast.Statement{
					stmtReturn(&ast.Expression{Kind: ast.ExprLiteral, LiteralValue: "Hello, World!", Type: ast.Type{Name: "java.lang.String"}}),
				},
			},
		},
	}

	out, diags := Document(class, DefaultOptions())
	assert.Empty(t, diags)
	assert.Equal(t, 1, countOccurrences(out, `"Hello, World!"`))
}

func TestDocumentVoidMethodNeverEmitsReturnValue(t *testing.T) {
	class := &ast.ClassDecl{
		Name: "G",
		Methods: []ast.MethodDecl{
			{
				Name:       "m",
				ReturnType: ast.Type{IsVoid: true, Name: "void"},
				Body: []ast.Statement{
					// A lifter bug or bogus upstream state could attach a
					// ReturnValue to a void return; the emitter must still
					// never print one.
					stmtReturn(local("x", 1)),
				},
			},
		},
	}

	out, _ := Document(class, DefaultOptions())
	assert.Contains(t, out, "return;\n")
	assert.NotContains(t, out, "return x;")
}

func TestEmitLineCommentsAnnotatesStatementPC(t *testing.T) {
	opts := DefaultOptions()
	opts.EmitLineComments = true
	p := &printer{opts: opts}
	ret := ast.Statement{Kind: ast.StmtReturn, PC: 7, ReturnValue: local("x", 1)}

	p.printStatement(&ret)

	assert.Equal(t, "return x; // pc 7\n", p.buf.String())
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
