/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package lift

import (
	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/cfg"
	"jdecomp/jerrors"
)

// liftBlock symbolically executes one basic block's instructions against
// stack/locals, emitting a statement for every instruction with a
// source-level effect (assignment, call, control transfer, return/throw)
// and folding every pure-value-producing instruction into the expression
// tree carried on stack: values are folded eagerly, statements are emitted
// only at effects.
func (ms *methodState) liftBlock(b *cfg.Block, stack *Stack, locals *Locals) []ast.Statement {
	var stmts []ast.Statement
	emit := func(s ast.Statement) { stmts = append(stmts, s) }

	for _, in := range b.Instrs {
		switch {
		case isConstPush(in.Op):
			stack.Push(ms.constExpr(in))

		case in.Op == bytecode.OpLdc || in.Op == bytecode.OpLdcW || in.Op == bytecode.OpLdc2W:
			stack.Push(ms.ldcExpr(in))

		case isLoad(in.Op):
			stack.Push(ms.loadExpr(in, locals))

		case isStore(in.Op):
			v := stack.Pop()
			slot := in.VarSlot
			if in.Op >= bytecode.OpIstore0 && in.Op <= bytecode.OpAstore3 {
				slot = (int(in.Op) - int(bytecode.OpIstore0)) % 4
			}
			name := ms.localName(locals, slot, in.PC)
			target := ast.Expression{Kind: ast.ExprLocal, PC: in.PC, LocalSlot: slot, LocalName: name, Type: v.Type}
			locals.bind(slot, target)
			emit(ms.storeStatement(slot, in.PC, target, v))

		case in.Op == bytecode.OpIinc:
			cur, ok := locals.get(in.VarSlot)
			if !ok {
				cur = ast.Expression{Kind: ast.ExprLocal, LocalSlot: in.VarSlot, LocalName: ms.localName(locals, in.VarSlot, in.PC), Type: ast.Type{Name: "int"}}
			}
			delta := ast.Expression{Kind: ast.ExprLiteral, LiteralValue: int32(in.IincDelta), Type: ast.Type{Name: "int"}}
			sum := ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: ast.BinAdd, Left: ptr(cur), Right: ptr(delta), Type: ast.Type{Name: "int"}}
			locals.bind(in.VarSlot, cur)
			emit(ast.Statement{Kind: ast.StmtAssign, PC: in.PC, AssignTarget: ptr(cur), AssignValue: ptr(sum)})

		case isArrayLoad(in.Op):
			idx := stack.Pop()
			ref := stack.Pop()
			stack.Push(ast.Expression{Kind: ast.ExprArrayAccess, PC: in.PC, ArrayRef: ptr(ref), ArrayIndex: ptr(idx), Type: arrayElemType(in.Op)})

		case isArrayStore(in.Op):
			v := stack.Pop()
			idx := stack.Pop()
			ref := stack.Pop()
			target := ast.Expression{Kind: ast.ExprArrayAccess, PC: in.PC, ArrayRef: ptr(ref), ArrayIndex: ptr(idx), Type: arrayElemType(in.Op)}
			emit(ast.Statement{Kind: ast.StmtAssign, PC: in.PC, AssignTarget: ptr(target), AssignValue: ptr(v)})

		case in.Op == bytecode.OpPop:
			v := stack.Pop()
			emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(v)})
		case in.Op == bytecode.OpPop2:
			v := stack.Pop()
			emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(v)})
			if !isWide2SlotName(v.Type.Name) {
				v2 := stack.Pop()
				emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(v2)})
			}
		case in.Op == bytecode.OpDup:
			v := stack.Peek()
			stack.Push(v)
		case in.Op == bytecode.OpDupX1:
			v1 := stack.Pop()
			v2 := stack.Pop()
			stack.Push(v1)
			stack.Push(v2)
			stack.Push(v1)
		case in.Op == bytecode.OpDupX2:
			v1 := stack.Pop()
			v2 := stack.Pop()
			v3 := stack.Pop()
			stack.Push(v1)
			stack.Push(v3)
			stack.Push(v2)
			stack.Push(v1)
		case in.Op == bytecode.OpDup2:
			v1 := stack.Pop()
			v2 := stack.Pop()
			stack.Push(v2)
			stack.Push(v1)
			stack.Push(v2)
			stack.Push(v1)
		case in.Op == bytecode.OpDup2X1:
			v1 := stack.Pop()
			v2 := stack.Pop()
			v3 := stack.Pop()
			stack.Push(v2)
			stack.Push(v1)
			stack.Push(v3)
			stack.Push(v2)
			stack.Push(v1)
		case in.Op == bytecode.OpDup2X2:
			v1 := stack.Pop()
			v2 := stack.Pop()
			v3 := stack.Pop()
			v4 := stack.Pop()
			stack.Push(v2)
			stack.Push(v1)
			stack.Push(v4)
			stack.Push(v3)
			stack.Push(v2)
			stack.Push(v1)
		case in.Op == bytecode.OpSwap:
			v1 := stack.Pop()
			v2 := stack.Pop()
			stack.Push(v1)
			stack.Push(v2)

		case isBinaryOp(in.Op):
			r := stack.Pop()
			l := stack.Pop()
			op, ty := binaryOpFor(in.Op)
			stack.Push(ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: op, Left: ptr(l), Right: ptr(r), Type: ty})

		case isUnaryNeg(in.Op):
			v := stack.Pop()
			stack.Push(ast.Expression{Kind: ast.ExprUnary, PC: in.PC, UnaryOperator: ast.UnaryNeg, UnaryOperand: ptr(v), Type: v.Type})

		case isConversion(in.Op):
			v := stack.Pop()
			ty := conversionTargetType(in.Op)
			stack.Push(ast.Expression{Kind: ast.ExprCast, PC: in.PC, TargetType: ty, Operand: ptr(v), Type: ty})

		case isCompare(in.Op):
			r := stack.Pop()
			l := stack.Pop()
			stack.Push(ast.Expression{Kind: ast.ExprMethodCall, PC: in.PC, CallName: compareHelperName(in.Op), CallArgs: []ast.Expression{l, r}, Type: ast.Type{Name: "int"}})

		case isReturn(in.Op):
			if in.Op == bytecode.OpReturn {
				emit(ast.Statement{Kind: ast.StmtReturn, PC: in.PC})
			} else {
				v := stack.Pop()
				emit(ast.Statement{Kind: ast.StmtReturn, PC: in.PC, ReturnValue: ptr(v)})
			}

		case in.Op == bytecode.OpAthrow:
			v := stack.Pop()
			emit(ast.Statement{Kind: ast.StmtThrow, PC: in.PC, ThrowValue: ptr(v)})

		case in.Op == bytecode.OpNew:
			className := ms.resolveClassIndex(in.CPIndex)
			stack.Push(ast.Expression{Kind: ast.ExprNewObject, PC: in.PC, NewClass: className, Type: ast.Type{Name: className}})

		case in.Op == bytecode.OpNewarray:
			count := stack.Pop()
			elemTy := ast.Type{Name: primitiveArrayTypeName(in.IntOperand)}
			stack.Push(ast.Expression{Kind: ast.ExprNewArray, PC: in.PC, ArrayElemType: elemTy, ArrayDims: []ast.Expression{count}, Type: ast.Type{Name: elemTy.Name + "[]"}})

		case in.Op == bytecode.OpAnewarray:
			count := stack.Pop()
			elemTy := ast.Type{Name: ms.resolveClassIndex(in.CPIndex)}
			stack.Push(ast.Expression{Kind: ast.ExprNewArray, PC: in.PC, ArrayElemType: elemTy, ArrayDims: []ast.Expression{count}, Type: ast.Type{Name: elemTy.Name + "[]"}})

		case in.Op == bytecode.OpMultianewarray:
			dims := make([]ast.Expression, in.Dims)
			for i := in.Dims - 1; i >= 0; i-- {
				dims[i] = stack.Pop()
			}
			elemTy := ast.Type{Name: ms.resolveClassIndex(in.CPIndex)}
			stack.Push(ast.Expression{Kind: ast.ExprNewArray, PC: in.PC, ArrayElemType: elemTy, ArrayDims: dims, Type: ast.Type{Name: elemTy.Name}})

		case in.Op == bytecode.OpArraylength:
			ref := stack.Pop()
			stack.Push(ast.Expression{Kind: ast.ExprFieldAccess, PC: in.PC, FieldName: "length", FieldReceiver: ptr(ref), Type: ast.Type{Name: "int"}})

		case in.Op == bytecode.OpCheckcast:
			v := stack.Pop()
			ty := ast.Type{Name: ms.resolveClassIndex(in.CPIndex)}
			stack.Push(ast.Expression{Kind: ast.ExprCast, PC: in.PC, TargetType: ty, Operand: ptr(v), Type: ty})

		case in.Op == bytecode.OpInstanceof:
			v := stack.Pop()
			ty := ast.Type{Name: ms.resolveClassIndex(in.CPIndex)}
			stack.Push(ast.Expression{Kind: ast.ExprInstanceOf, PC: in.PC, TargetType: ty, Operand: ptr(v), Type: ast.Type{Name: "boolean"}})

		case in.Op == bytecode.OpGetfield || in.Op == bytecode.OpGetstatic:
			owner, name, desc := ms.resolveMemberRef(in.CPIndex)
			ty := fieldJavaType(desc)
			var recv *ast.Expression
			if in.Op == bytecode.OpGetfield {
				r := stack.Pop()
				recv = ptr(r)
			}
			stack.Push(ast.Expression{Kind: ast.ExprFieldAccess, PC: in.PC, FieldOwner: owner, FieldName: name, FieldReceiver: recv, FieldStatic: in.Op == bytecode.OpGetstatic, Type: ty})

		case in.Op == bytecode.OpPutfield || in.Op == bytecode.OpPutstatic:
			owner, name, desc := ms.resolveMemberRef(in.CPIndex)
			ty := fieldJavaType(desc)
			v := stack.Pop()
			var recv *ast.Expression
			if in.Op == bytecode.OpPutfield {
				r := stack.Pop()
				recv = ptr(r)
			}
			target := ast.Expression{Kind: ast.ExprFieldAccess, PC: in.PC, FieldOwner: owner, FieldName: name, FieldReceiver: recv, FieldStatic: in.Op == bytecode.OpPutstatic, Type: ty}
			emit(ast.Statement{Kind: ast.StmtAssign, PC: in.PC, AssignTarget: ptr(target), AssignValue: ptr(v)})

		case isInvoke(in.Op):
			ms.liftInvoke(in, stack, emit)

		case in.Op == bytecode.OpMonitorenter:
			stack.Pop() // no statement; structural recovery builds no StmtSynchronized, so a synchronized region renders as its plain body
		case in.Op == bytecode.OpMonitorexit:
			stack.Pop()

		case in.Op == bytecode.OpGoto, in.Op == bytecode.OpGotoW:
			// unconditional control transfer: no statement, edge already in the CFG
		case in.Op == bytecode.OpJsr, in.Op == bytecode.OpJsrW, in.Op == bytecode.OpRet:
			ms.diag(jerrors.Newf(jerrors.KindStructural, "JsrRetUnsupported", "method %s uses jsr/ret (pre-Java-6 finally encoding), which this decompiler does not reconstruct at pc %d", ms.method.Name, in.PC))
		case isConditionalBranch(in.Op):
			ms.liftConditionalBranch(in, stack, emit)
		case in.Op == bytecode.OpTableswitch, in.Op == bytecode.OpLookupswitch:
			v := stack.Pop()
			emit(ast.Statement{Kind: ast.StmtSwitch, PC: in.PC, SwitchOn: ptr(v)}) // case arms populated by structural recovery from in.Switch
		case in.Op == bytecode.OpNop:
			// no effect
		default:
			ms.diag(jerrors.Newf(jerrors.KindBytecode, "UnhandledOpcode", "method %s: opcode %s at pc %d has no lifting rule", ms.method.Name, in.Op.Mnemonic(), in.PC))
		}
	}
	return stmts
}

func ptr(e ast.Expression) *ast.Expression { return &e }

// isWide2SlotName reports whether a value of this (rendered) Java type
// occupies two operand-stack slots, inferred from the name since ast.Type
// has no Kind field of its own (it is a presentation-only structural copy
// of descriptor.Type).
func isWide2SlotName(name string) bool { return name == "long" || name == "double" }
