/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package emit

import (
	"strconv"
	"strings"

	"jdecomp/ast"
)

var unaryOpText = map[ast.UnaryOp]string{
	ast.UnaryNeg:    "-",
	ast.UnaryNot:    "!",
	ast.UnaryBitNot: "~",
}

var binaryOpText = map[ast.BinaryOp]string{
	ast.BinAdd: "+", ast.BinSub: "-", ast.BinMul: "*", ast.BinDiv: "/", ast.BinRem: "%",
	ast.BinShl: "<<", ast.BinShr: ">>", ast.BinUshr: ">>>",
	ast.BinAnd: "&", ast.BinOr: "|", ast.BinXor: "^",
	ast.BinEq: "==", ast.BinNe: "!=", ast.BinLt: "<", ast.BinLe: "<=", ast.BinGt: ">", ast.BinGe: ">=",
	ast.BinLogicalAnd: "&&", ast.BinLogicalOr: "||",
}

// printExpr renders an expression with no regard for the enclosing
// context's precedence; callers that nest one expression inside another
// call parenExpr instead so the rendering always parses back to the same
// tree, at the cost of the occasional redundant parenthesis.
func (p *printer) printExpr(e *ast.Expression) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ast.ExprLiteral:
		return p.literal(e)
	case ast.ExprLocal:
		return p.escapeIdent(e.LocalName)
	case ast.ExprFieldAccess:
		if e.FieldReceiver == nil {
			if e.FieldStatic && e.FieldOwner != "" {
				return e.FieldOwner + "." + e.FieldName
			}
			return e.FieldName
		}
		return p.parenExpr(e.FieldReceiver) + "." + e.FieldName
	case ast.ExprArrayAccess:
		return p.parenExpr(e.ArrayRef) + "[" + p.printExpr(e.ArrayIndex) + "]"
	case ast.ExprMethodCall:
		return p.methodCall(e)
	case ast.ExprDynamicCall:
		return p.dynamicCall(e)
	case ast.ExprNewObject:
		return "new " + e.NewClass + "(" + p.exprList(e.NewArgs) + ")"
	case ast.ExprNewArray:
		return p.newArray(e)
	case ast.ExprCast:
		return "(" + e.TargetType.Name + ") " + p.parenExpr(e.Operand)
	case ast.ExprInstanceOf:
		return p.parenExpr(e.Operand) + " instanceof " + e.TargetType.Name
	case ast.ExprUnary:
		return unaryOpText[e.UnaryOperator] + p.parenExpr(e.UnaryOperand)
	case ast.ExprBinary:
		return p.parenExpr(e.Left) + " " + binaryOpText[e.BinaryOperator] + " " + p.parenExpr(e.Right)
	case ast.ExprTernary:
		return p.parenExpr(e.Cond) + " ? " + p.parenExpr(e.IfTrue) + " : " + p.parenExpr(e.IfFalse)
	case ast.ExprThis:
		return "this"
	case ast.ExprSuper:
		return "super"
	case ast.ExprAssign:
		return p.printExpr(e.AssignTarget) + " = " + p.printExpr(e.AssignValue)
	default:
		return "/* unrecognized expression */"
	}
}

// parenExpr wraps any expression kind with its own internal operator
// precedence (binary, ternary, cast, instanceof, assign) in parentheses;
// everything else (literals, locals, calls, field/array access) already
// binds tighter than any operator that could contain it, so it is left
// bare.
func (p *printer) parenExpr(e *ast.Expression) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ast.ExprBinary, ast.ExprTernary, ast.ExprCast, ast.ExprInstanceOf, ast.ExprAssign, ast.ExprUnary:
		return "(" + p.printExpr(e) + ")"
	default:
		return p.printExpr(e)
	}
}

func (p *printer) exprList(args []ast.Expression) string {
	parts := make([]string, len(args))
	for i := range args {
		parts[i] = p.printExpr(&args[i])
	}
	return strings.Join(parts, ", ")
}

func (p *printer) methodCall(e *ast.Expression) string {
	var recv string
	switch {
	case e.IsThisCall:
		return "this(" + p.exprList(e.CallArgs) + ")"
	case e.IsSuperCall:
		return "super(" + p.exprList(e.CallArgs) + ")"
	case e.CallReceiver != nil:
		recv = p.parenExpr(e.CallReceiver) + "."
	case e.CallOwner != "":
		recv = e.CallOwner + "."
	}
	return recv + e.CallName + "(" + p.exprList(e.CallArgs) + ")"
}

func (p *printer) dynamicCall(e *ast.Expression) string {
	// invokedynamic's bootstrap machinery (LambdaMetafactory and friends)
	// is not synthesized back into -> lambda syntax; the call renders as
	// a plain static-looking invocation of the recovered method name.
	return e.CallName + "(" + p.exprList(e.CallArgs) + ")"
}

func (p *printer) newArray(e *ast.Expression) string {
	var b strings.Builder
	b.WriteString("new ")
	b.WriteString(e.ArrayElemType.Name)
	if len(e.ArrayDims) == 0 {
		b.WriteString("[]")
	}
	for i := range e.ArrayDims {
		b.WriteString("[")
		b.WriteString(p.printExpr(&e.ArrayDims[i]))
		b.WriteString("]")
	}
	return b.String()
}

func (p *printer) literal(e *ast.Expression) string {
	switch v := e.LiteralValue.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return strconv.Quote(v)
	case int32:
		if e.Type.Name == "char" {
			return "'" + escapeCharLiteral(rune(v)) + "'"
		}
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return strconv.Quote("")
	}
}

func escapeCharLiteral(r rune) string {
	switch r {
	case '\'':
		return "\\'"
	case '\\':
		return "\\\\"
	case '\n':
		return "\\n"
	case '\t':
		return "\\t"
	case '\r':
		return "\\r"
	default:
		return string(r)
	}
}
