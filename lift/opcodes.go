/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package lift

import (
	"strconv"

	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/constpool"
	"jdecomp/descriptor"
)

func toAstType(t descriptor.Type) ast.Type {
	return ast.Type{Name: t.JavaName(), IsVoid: t.Kind == descriptor.KindVoid}
}

func isConstPush(op bytecode.Op) bool {
	switch op {
	case bytecode.OpAconstNull, bytecode.OpIconstM1,
		bytecode.OpIconst0, bytecode.OpIconst1, bytecode.OpIconst2, bytecode.OpIconst3, bytecode.OpIconst4, bytecode.OpIconst5,
		bytecode.OpLconst0, bytecode.OpLconst1,
		bytecode.OpFconst0, bytecode.OpFconst1, bytecode.OpFconst2,
		bytecode.OpDconst0, bytecode.OpDconst1,
		bytecode.OpBipush, bytecode.OpSipush:
		return true
	}
	return false
}

// constExpr folds a fixed-constant or bipush/sipush instruction into a
// literal expression.
func (ms *methodState) constExpr(in bytecode.Instruction) ast.Expression {
	lit := func(v any, ty string) ast.Expression {
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: v, Type: ast.Type{Name: ty}}
	}
	switch in.Op {
	case bytecode.OpAconstNull:
		return lit(nil, "null")
	case bytecode.OpIconstM1:
		return lit(int32(-1), "int")
	case bytecode.OpIconst0:
		return lit(int32(0), "int")
	case bytecode.OpIconst1:
		return lit(int32(1), "int")
	case bytecode.OpIconst2:
		return lit(int32(2), "int")
	case bytecode.OpIconst3:
		return lit(int32(3), "int")
	case bytecode.OpIconst4:
		return lit(int32(4), "int")
	case bytecode.OpIconst5:
		return lit(int32(5), "int")
	case bytecode.OpLconst0:
		return lit(int64(0), "long")
	case bytecode.OpLconst1:
		return lit(int64(1), "long")
	case bytecode.OpFconst0:
		return lit(float32(0), "float")
	case bytecode.OpFconst1:
		return lit(float32(1), "float")
	case bytecode.OpFconst2:
		return lit(float32(2), "float")
	case bytecode.OpDconst0:
		return lit(float64(0), "double")
	case bytecode.OpDconst1:
		return lit(float64(1), "double")
	case bytecode.OpBipush, bytecode.OpSipush:
		return lit(int32(in.IntOperand), "int")
	}
	return ast.Expression{}
}

// ldcExpr resolves an ldc/ldc_w/ldc2_w instruction's constant-pool operand.
func (ms *methodState) ldcExpr(in bytecode.Instruction) ast.Expression {
	loadable, err := ms.pool.Load(in.CPIndex)
	if err != nil {
		ms.diagError("UnresolvableConstant", "method %s: ldc at pc %d could not resolve constant-pool index %d: %v", ms.method.Name, in.PC, in.CPIndex, err)
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, Type: ast.Type{Name: "<unresolved>"}}
	}
	switch loadable.Kind {
	case constpool.TagInteger:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.Int, Type: ast.Type{Name: "int"}}
	case constpool.TagFloat:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.F32, Type: ast.Type{Name: "float"}}
	case constpool.TagLong:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.Long, Type: ast.Type{Name: "long"}}
	case constpool.TagDouble:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.F64, Type: ast.Type{Name: "double"}}
	case constpool.TagString:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.Str, Type: ast.Type{Name: "java.lang.String"}}
	case constpool.TagClass:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.Class + ".class", Type: ast.Type{Name: "java.lang.Class"}}
	default:
		return ast.Expression{Kind: ast.ExprLiteral, PC: in.PC, LiteralValue: loadable.Str, Type: ast.Type{Name: "java.lang.invoke.MethodHandle"}}
	}
}

func isLoad(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIload, bytecode.OpLload, bytecode.OpFload, bytecode.OpDload, bytecode.OpAload,
		bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIload2, bytecode.OpIload3,
		bytecode.OpLload0, bytecode.OpLload1, bytecode.OpLload2, bytecode.OpLload3,
		bytecode.OpFload0, bytecode.OpFload1, bytecode.OpFload2, bytecode.OpFload3,
		bytecode.OpDload0, bytecode.OpDload1, bytecode.OpDload2, bytecode.OpDload3,
		bytecode.OpAload0, bytecode.OpAload1, bytecode.OpAload2, bytecode.OpAload3:
		return true
	}
	return false
}

func loadSlotAndType(op bytecode.Op, varSlot int) (int, string) {
	switch op {
	case bytecode.OpIload:
		return varSlot, "int"
	case bytecode.OpLload:
		return varSlot, "long"
	case bytecode.OpFload:
		return varSlot, "float"
	case bytecode.OpDload:
		return varSlot, "double"
	case bytecode.OpAload:
		return varSlot, "<ref>"
	case bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIload2, bytecode.OpIload3:
		return int(op) - int(bytecode.OpIload0), "int"
	case bytecode.OpLload0, bytecode.OpLload1, bytecode.OpLload2, bytecode.OpLload3:
		return int(op) - int(bytecode.OpLload0), "long"
	case bytecode.OpFload0, bytecode.OpFload1, bytecode.OpFload2, bytecode.OpFload3:
		return int(op) - int(bytecode.OpFload0), "float"
	case bytecode.OpDload0, bytecode.OpDload1, bytecode.OpDload2, bytecode.OpDload3:
		return int(op) - int(bytecode.OpDload0), "double"
	case bytecode.OpAload0, bytecode.OpAload1, bytecode.OpAload2, bytecode.OpAload3:
		return int(op) - int(bytecode.OpAload0), "<ref>"
	}
	return varSlot, "<ref>"
}

// loadExpr returns a reference to the variable already bound to slot
// (preserving its Kind -- ExprThis for slot 0 of an instance method stays
// ExprThis, not a wrapped ExprLocal), or synthesizes the bare ExprLocal
// reference the first time a slot is loaded without a prior store (true
// for every parameter slot, whose binding comes from entryLocals instead).
func (ms *methodState) loadExpr(in bytecode.Instruction, locals *Locals) ast.Expression {
	slot, ty := loadSlotAndType(in.Op, in.VarSlot)
	if bound, ok := locals.get(slot); ok {
		e := bound
		e.PC = in.PC
		return e
	}
	name := ms.localName(locals, slot, in.PC)
	return ast.Expression{Kind: ast.ExprLocal, PC: in.PC, LocalSlot: slot, LocalName: name, Type: ast.Type{Name: ty}}
}

// localName recovers a body local's declared name from LocalVariableTable
// (the same attribute argName consults for parameters), scoped by both
// slot and the PC the reference occurs at, since a slot can be reused for
// unrelated source variables in disjoint live ranges. Falls back to
// locals' already-bound name (set once a slot has been named this way, or
// for "this"/parameters from entryLocals), then to "varN".
func (ms *methodState) localName(locals *Locals, slot, pc int) string {
	if ms.opts.RecoverVariableNames {
		for _, lv := range localVarsFor(ms.method) {
			if lv.Slot == slot && pc >= lv.StartPC && pc < lv.StartPC+lv.Length {
				locals.names[slot] = lv.Name
				return lv.Name
			}
		}
	}
	if n, ok := locals.names[slot]; ok && n != "" {
		return n
	}
	return "var" + strconv.Itoa(slot)
}

func isStore(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIstore, bytecode.OpLstore, bytecode.OpFstore, bytecode.OpDstore, bytecode.OpAstore,
		bytecode.OpIstore0, bytecode.OpIstore1, bytecode.OpIstore2, bytecode.OpIstore3,
		bytecode.OpLstore0, bytecode.OpLstore1, bytecode.OpLstore2, bytecode.OpLstore3,
		bytecode.OpFstore0, bytecode.OpFstore1, bytecode.OpFstore2, bytecode.OpFstore3,
		bytecode.OpDstore0, bytecode.OpDstore1, bytecode.OpDstore2, bytecode.OpDstore3,
		bytecode.OpAstore0, bytecode.OpAstore1, bytecode.OpAstore2, bytecode.OpAstore3:
		return true
	}
	return false
}

func isArrayLoad(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIaload, bytecode.OpLaload, bytecode.OpFaload, bytecode.OpDaload,
		bytecode.OpAaload, bytecode.OpBaload, bytecode.OpCaload, bytecode.OpSaload:
		return true
	}
	return false
}

func isArrayStore(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIastore, bytecode.OpLastore, bytecode.OpFastore, bytecode.OpDastore,
		bytecode.OpAastore, bytecode.OpBastore, bytecode.OpCastore, bytecode.OpSastore:
		return true
	}
	return false
}

func arrayElemType(op bytecode.Op) ast.Type {
	switch op {
	case bytecode.OpIaload, bytecode.OpIastore:
		return ast.Type{Name: "int"}
	case bytecode.OpLaload, bytecode.OpLastore:
		return ast.Type{Name: "long"}
	case bytecode.OpFaload, bytecode.OpFastore:
		return ast.Type{Name: "float"}
	case bytecode.OpDaload, bytecode.OpDastore:
		return ast.Type{Name: "double"}
	case bytecode.OpBaload, bytecode.OpBastore:
		return ast.Type{Name: "byte"}
	case bytecode.OpCaload, bytecode.OpCastore:
		return ast.Type{Name: "char"}
	case bytecode.OpSaload, bytecode.OpSastore:
		return ast.Type{Name: "short"}
	default:
		return ast.Type{Name: "<ref>"}
	}
}

func isBinaryOp(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIadd, bytecode.OpLadd, bytecode.OpFadd, bytecode.OpDadd,
		bytecode.OpIsub, bytecode.OpLsub, bytecode.OpFsub, bytecode.OpDsub,
		bytecode.OpImul, bytecode.OpLmul, bytecode.OpFmul, bytecode.OpDmul,
		bytecode.OpIdiv, bytecode.OpLdiv, bytecode.OpFdiv, bytecode.OpDdiv,
		bytecode.OpIrem, bytecode.OpLrem, bytecode.OpFrem, bytecode.OpDrem,
		bytecode.OpIshl, bytecode.OpLshl, bytecode.OpIshr, bytecode.OpLshr,
		bytecode.OpIushr, bytecode.OpLushr,
		bytecode.OpIand, bytecode.OpLand, bytecode.OpIor, bytecode.OpLor, bytecode.OpIxor, bytecode.OpLxor:
		return true
	}
	return false
}

func binaryOpFor(op bytecode.Op) (ast.BinaryOp, ast.Type) {
	switch op {
	case bytecode.OpIadd:
		return ast.BinAdd, ast.Type{Name: "int"}
	case bytecode.OpLadd:
		return ast.BinAdd, ast.Type{Name: "long"}
	case bytecode.OpFadd:
		return ast.BinAdd, ast.Type{Name: "float"}
	case bytecode.OpDadd:
		return ast.BinAdd, ast.Type{Name: "double"}
	case bytecode.OpIsub:
		return ast.BinSub, ast.Type{Name: "int"}
	case bytecode.OpLsub:
		return ast.BinSub, ast.Type{Name: "long"}
	case bytecode.OpFsub:
		return ast.BinSub, ast.Type{Name: "float"}
	case bytecode.OpDsub:
		return ast.BinSub, ast.Type{Name: "double"}
	case bytecode.OpImul:
		return ast.BinMul, ast.Type{Name: "int"}
	case bytecode.OpLmul:
		return ast.BinMul, ast.Type{Name: "long"}
	case bytecode.OpFmul:
		return ast.BinMul, ast.Type{Name: "float"}
	case bytecode.OpDmul:
		return ast.BinMul, ast.Type{Name: "double"}
	case bytecode.OpIdiv:
		return ast.BinDiv, ast.Type{Name: "int"}
	case bytecode.OpLdiv:
		return ast.BinDiv, ast.Type{Name: "long"}
	case bytecode.OpFdiv:
		return ast.BinDiv, ast.Type{Name: "float"}
	case bytecode.OpDdiv:
		return ast.BinDiv, ast.Type{Name: "double"}
	case bytecode.OpIrem:
		return ast.BinRem, ast.Type{Name: "int"}
	case bytecode.OpLrem:
		return ast.BinRem, ast.Type{Name: "long"}
	case bytecode.OpFrem:
		return ast.BinRem, ast.Type{Name: "float"}
	case bytecode.OpDrem:
		return ast.BinRem, ast.Type{Name: "double"}
	case bytecode.OpIshl, bytecode.OpLshl:
		return ast.BinShl, ast.Type{Name: "int"}
	case bytecode.OpIshr, bytecode.OpLshr:
		return ast.BinShr, ast.Type{Name: "int"}
	case bytecode.OpIushr, bytecode.OpLushr:
		return ast.BinUshr, ast.Type{Name: "int"}
	case bytecode.OpIand, bytecode.OpLand:
		return ast.BinAnd, ast.Type{Name: "int"}
	case bytecode.OpIor, bytecode.OpLor:
		return ast.BinOr, ast.Type{Name: "int"}
	case bytecode.OpIxor, bytecode.OpLxor:
		return ast.BinXor, ast.Type{Name: "int"}
	}
	return ast.BinAdd, ast.Type{}
}

func isUnaryNeg(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIneg, bytecode.OpLneg, bytecode.OpFneg, bytecode.OpDneg:
		return true
	}
	return false
}

func isConversion(op bytecode.Op) bool {
	switch op {
	case bytecode.OpI2l, bytecode.OpI2f, bytecode.OpI2d, bytecode.OpL2i, bytecode.OpL2f, bytecode.OpL2d,
		bytecode.OpF2i, bytecode.OpF2l, bytecode.OpF2d, bytecode.OpD2i, bytecode.OpD2l, bytecode.OpD2f,
		bytecode.OpI2b, bytecode.OpI2c, bytecode.OpI2s:
		return true
	}
	return false
}

func conversionTargetType(op bytecode.Op) ast.Type {
	switch op {
	case bytecode.OpI2l, bytecode.OpF2l, bytecode.OpD2l:
		return ast.Type{Name: "long"}
	case bytecode.OpI2f, bytecode.OpL2f, bytecode.OpD2f:
		return ast.Type{Name: "float"}
	case bytecode.OpI2d, bytecode.OpL2d, bytecode.OpF2d:
		return ast.Type{Name: "double"}
	case bytecode.OpL2i, bytecode.OpF2i, bytecode.OpD2i:
		return ast.Type{Name: "int"}
	case bytecode.OpI2b:
		return ast.Type{Name: "byte"}
	case bytecode.OpI2c:
		return ast.Type{Name: "char"}
	case bytecode.OpI2s:
		return ast.Type{Name: "short"}
	}
	return ast.Type{}
}

func isCompare(op bytecode.Op) bool {
	switch op {
	case bytecode.OpLcmp, bytecode.OpFcmpl, bytecode.OpFcmpg, bytecode.OpDcmpl, bytecode.OpDcmpg:
		return true
	}
	return false
}

func compareHelperName(op bytecode.Op) string {
	return op.Mnemonic()
}

// isCmpHelperCall reports whether e is the synthetic comparison call
// liftBlock produces for lcmp/fcmpl/fcmpg/dcmpl/dcmpg, recognized so the
// immediately-following compare-to-zero branch can fold it back into a
// direct two-operand comparison.
func isCmpHelperCall(e ast.Expression) bool {
	if e.Kind != ast.ExprMethodCall || len(e.CallArgs) != 2 {
		return false
	}
	switch e.CallName {
	case "lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg":
		return true
	}
	return false
}

func isReturn(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIreturn, bytecode.OpLreturn, bytecode.OpFreturn, bytecode.OpDreturn, bytecode.OpAreturn, bytecode.OpReturn:
		return true
	}
	return false
}

func isInvoke(op bytecode.Op) bool {
	switch op {
	case bytecode.OpInvokevirtual, bytecode.OpInvokespecial, bytecode.OpInvokestatic, bytecode.OpInvokeinterface, bytecode.OpInvokedynamic:
		return true
	}
	return false
}

func isConditionalBranch(op bytecode.Op) bool {
	switch op {
	case bytecode.OpIfeq, bytecode.OpIfne, bytecode.OpIflt, bytecode.OpIfge, bytecode.OpIfgt, bytecode.OpIfle,
		bytecode.OpIfIcmpeq, bytecode.OpIfIcmpne, bytecode.OpIfIcmplt, bytecode.OpIfIcmpge, bytecode.OpIfIcmpgt, bytecode.OpIfIcmple,
		bytecode.OpIfAcmpeq, bytecode.OpIfAcmpne, bytecode.OpIfnull, bytecode.OpIfnonnull:
		return true
	}
	return false
}

func primitiveArrayTypeName(atype int) string {
	// newarray type codes per JVMS 6.5.newarray table.
	switch atype {
	case 4:
		return "boolean"
	case 5:
		return "char"
	case 6:
		return "float"
	case 7:
		return "double"
	case 8:
		return "byte"
	case 9:
		return "short"
	case 10:
		return "int"
	case 11:
		return "long"
	default:
		return "?"
	}
}
