/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package bytecode

import (
	"jdecomp/jerrors"
	"jdecomp/reader"
)

// Instruction is one decoded bytecode instruction: its
// address, opcode, and any operand bytes it carries, plus pre-decoded
// branch/switch operands where that avoids re-parsing downstream.
type Instruction struct {
	PC     int
	Op     Op
	Width  int // total instruction length including opcode byte
	Widened bool // true if this was preceded by a wide prefix

	// IntOperand carries a single numeric operand: the bipush/sipush
	// immediate or the newarray type code.
	IntOperand int

	// VarSlot is the local-variable slot operand of the load/store/ret/iinc
	// instructions that carry one explicitly (widened or not); the numbered
	// forms such as iload_0 or astore_3 leave it zero, their slot being
	// implied by the opcode. IincDelta is iinc's signed increment.
	VarSlot   int
	IincDelta int

	// BranchTarget is the absolute PC for if*/goto/jsr/ifnull/ifnonnull.
	BranchTarget int

	// Switch holds tableswitch/lookupswitch decoded jump tables.
	Switch *SwitchData

	// CPIndex is the constant-pool index for instructions that reference
	// one (ldc family, get/putfield, get/putstatic, invoke*, new,
	// anewarray, checkcast, instanceof, multianewarray).
	CPIndex int

	// Dims is the dimension count operand for multianewarray.
	Dims int
}

// SwitchData is the decoded jump table for a tableswitch or lookupswitch.
type SwitchData struct {
	Default int
	// Tableswitch: Low..High inclusive, Targets indexed 0-based from Low.
	Low, High int
	Targets   []int
	// Lookupswitch: parallel Keys/Targets, sorted by key.
	Keys []int
}

// Decode reads the bytes of a method's Code attribute (the code array
// itself, not the whole Code_attribute) into a PC-ordered instruction
// sequence, plus a PC->index map for branch-target resolution.
//
// Grounded on modten-pkg-inspector's disassemble(), which walks the code
// array with a cursor and a switch keyed on fixed vs. variable operand
// width; generalized here to capture every operand field lift/cfg need
// instead of producing a display string directly.
func Decode(code []byte) ([]Instruction, map[int]int, error) {
	r := reader.New(code)
	var instrs []Instruction
	index := map[int]int{}

	for r.Remaining() > 0 {
		pc := r.Pos()
		opByte, err := r.U1()
		if err != nil {
			return nil, nil, err
		}
		op := Op(opByte)
		if !op.Known() {
			return nil, nil, jerrors.UnknownOpcode(pc, opByte)
		}

		inst, err := decodeOne(r, pc, op, false)
		if err != nil {
			return nil, nil, err
		}
		index[pc] = len(instrs)
		instrs = append(instrs, inst)
	}
	return instrs, index, nil
}

func decodeOne(r *reader.Reader, pc int, op Op, widened bool) (Instruction, error) {
	inst := Instruction{PC: pc, Op: op, Widened: widened}

	switch op {
	case OpNop, OpAconstNull,
		OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpLconst0, OpLconst1, OpFconst0, OpFconst1, OpFconst2, OpDconst0, OpDconst1,
		OpIload0, OpIload1, OpIload2, OpIload3,
		OpLload0, OpLload1, OpLload2, OpLload3,
		OpFload0, OpFload1, OpFload2, OpFload3,
		OpDload0, OpDload1, OpDload2, OpDload3,
		OpAload0, OpAload1, OpAload2, OpAload3,
		OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload,
		OpIstore0, OpIstore1, OpIstore2, OpIstore3,
		OpLstore0, OpLstore1, OpLstore2, OpLstore3,
		OpFstore0, OpFstore1, OpFstore2, OpFstore3,
		OpDstore0, OpDstore1, OpDstore2, OpDstore3,
		OpAstore0, OpAstore1, OpAstore2, OpAstore3,
		OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore,
		OpPop, OpPop2, OpDup, OpDupX1, OpDupX2, OpDup2, OpDup2X1, OpDup2X2, OpSwap,
		OpIadd, OpLadd, OpFadd, OpDadd, OpIsub, OpLsub, OpFsub, OpDsub,
		OpImul, OpLmul, OpFmul, OpDmul, OpIdiv, OpLdiv, OpFdiv, OpDdiv,
		OpIrem, OpLrem, OpFrem, OpDrem, OpIneg, OpLneg, OpFneg, OpDneg,
		OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr, OpIand, OpLand, OpIor, OpLor, OpIxor, OpLxor,
		OpI2l, OpI2f, OpI2d, OpL2i, OpL2f, OpL2d, OpF2i, OpF2l, OpF2d, OpD2i, OpD2l, OpD2f,
		OpI2b, OpI2c, OpI2s,
		OpLcmp, OpFcmpl, OpFcmpg, OpDcmpl, OpDcmpg,
		OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn,
		OpArraylength, OpAthrow, OpMonitorenter, OpMonitorexit,
		OpBreakpoint:
		inst.Width = 1
		return inst, nil

	case OpBipush:
		v, err := r.S1()
		if err != nil {
			return inst, err
		}
		inst.IntOperand = int(v)
		inst.Width = 2
		return inst, nil

	case OpSipush:
		v, err := r.S2()
		if err != nil {
			return inst, err
		}
		inst.IntOperand = int(v)
		inst.Width = 3
		return inst, nil

	case OpLdc:
		idx, err := r.U1()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 2
		return inst, nil

	case OpLdcW, OpLdc2W:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 3
		return inst, nil

	case OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore, OpRet:
		if widened {
			slot, err := r.U2()
			if err != nil {
				return inst, err
			}
			inst.VarSlot = int(slot)
			inst.Width = 3
		} else {
			slot, err := r.U1()
			if err != nil {
				return inst, err
			}
			inst.VarSlot = int(slot)
			inst.Width = 2
		}
		return inst, nil

	case OpIinc:
		if widened {
			slot, err := r.U2()
			if err != nil {
				return inst, err
			}
			delta, err := r.S2()
			if err != nil {
				return inst, err
			}
			inst.VarSlot, inst.IincDelta, inst.Width = int(slot), int(delta), 5
		} else {
			slot, err := r.U1()
			if err != nil {
				return inst, err
			}
			delta, err := r.S1()
			if err != nil {
				return inst, err
			}
			inst.VarSlot, inst.IincDelta, inst.Width = int(slot), int(delta), 3
		}
		return inst, nil

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpGoto, OpJsr, OpIfnull, OpIfnonnull:
		off, err := r.S2()
		if err != nil {
			return inst, err
		}
		inst.BranchTarget = pc + int(off)
		inst.Width = 3
		return inst, nil

	case OpGotoW, OpJsrW:
		off, err := r.S4()
		if err != nil {
			return inst, err
		}
		inst.BranchTarget = pc + int(off)
		inst.Width = 5
		return inst, nil

	case OpTableswitch:
		return decodeTableswitch(r, pc, &inst)

	case OpLookupswitch:
		return decodeLookupswitch(r, pc, &inst)

	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 3
		return inst, nil

	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 3
		return inst, nil

	case OpInvokeinterface:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		count, err := r.U1()
		if err != nil {
			return inst, err
		}
		if _, err := r.U1(); err != nil { // reserved zero byte
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Dims = int(count) // argument slot count, reused field
		inst.Width = 5
		return inst, nil

	case OpInvokedynamic:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		if _, err := r.U2(); err != nil { // reserved zero bytes
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 5
		return inst, nil

	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Width = 3
		return inst, nil

	case OpNewarray:
		code, err := r.U1()
		if err != nil {
			return inst, err
		}
		inst.IntOperand = int(code)
		inst.Width = 2
		return inst, nil

	case OpMultianewarray:
		idx, err := r.U2()
		if err != nil {
			return inst, err
		}
		dims, err := r.U1()
		if err != nil {
			return inst, err
		}
		inst.CPIndex = int(idx)
		inst.Dims = int(dims)
		inst.Width = 4
		return inst, nil

	case OpWide:
		return decodeWide(r, pc)

	default:
		return inst, jerrors.UnknownOpcode(pc, byte(op))
	}
}

func decodeWide(r *reader.Reader, pc int) (Instruction, error) {
	innerByte, err := r.U1()
	if err != nil {
		return Instruction{}, err
	}
	inner := Op(innerByte)
	switch inner {
	case OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore, OpRet, OpIinc:
		inst, err := decodeOne(r, pc, inner, true)
		if err != nil {
			return inst, err
		}
		inst.Op = inner
		inst.Widened = true
		inst.Width += 1 // account for the wide prefix byte itself
		return inst, nil
	default:
		return Instruction{}, jerrors.TruncatedInstruction(pc)
	}
}

func decodeTableswitch(r *reader.Reader, pc int, inst *Instruction) (Instruction, error) {
	if err := r.Align(0, 4); err != nil {
		return *inst, err
	}
	def, err := r.S4()
	if err != nil {
		return *inst, err
	}
	low, err := r.S4()
	if err != nil {
		return *inst, err
	}
	high, err := r.S4()
	if err != nil {
		return *inst, err
	}
	if high < low {
		return *inst, jerrors.InvalidSwitchLayout(pc, "tableswitch high < low")
	}
	n := int(high) - int(low) + 1
	targets := make([]int, n)
	for i := 0; i < n; i++ {
		off, err := r.S4()
		if err != nil {
			return *inst, err
		}
		targets[i] = pc + int(off)
	}
	inst.Switch = &SwitchData{Default: pc + int(def), Low: int(low), High: int(high), Targets: targets}
	inst.Width = r.Pos() - pc
	return *inst, nil
}

func decodeLookupswitch(r *reader.Reader, pc int, inst *Instruction) (Instruction, error) {
	if err := r.Align(0, 4); err != nil {
		return *inst, err
	}
	def, err := r.S4()
	if err != nil {
		return *inst, err
	}
	npairs, err := r.S4()
	if err != nil {
		return *inst, err
	}
	if npairs < 0 {
		return *inst, jerrors.InvalidSwitchLayout(pc, "lookupswitch negative npairs")
	}
	keys := make([]int, npairs)
	targets := make([]int, npairs)
	for i := 0; i < int(npairs); i++ {
		k, err := r.S4()
		if err != nil {
			return *inst, err
		}
		off, err := r.S4()
		if err != nil {
			return *inst, err
		}
		keys[i] = int(k)
		targets[i] = pc + int(off)
	}
	inst.Switch = &SwitchData{Default: pc + int(def), Keys: keys, Targets: targets}
	inst.Width = r.Pos() - pc
	return *inst, nil
}
