/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package lift

import (
	"jdecomp/ast"
	"jdecomp/bytecode"
	"jdecomp/descriptor"
)

func (ms *methodState) resolveClassIndex(cpIndex int) string {
	name, err := ms.pool.ClassName(cpIndex)
	if err != nil {
		ms.diagError("UnresolvableClass", "method %s: could not resolve class at constant-pool index %d: %v", ms.method.Name, cpIndex, err)
		return "java.lang.Object"
	}
	return name
}

func (ms *methodState) resolveMemberRef(cpIndex int) (owner, name, desc string) {
	owner, name, desc, err := ms.pool.MemberRef(cpIndex)
	if err != nil {
		ms.diagError("UnresolvableMemberRef", "method %s: could not resolve field/method reference at constant-pool index %d: %v", ms.method.Name, cpIndex, err)
		return "?", "?", "Ljava/lang/Object;"
	}
	return owner, name, desc
}

func fieldJavaType(desc string) ast.Type {
	t, err := descriptor.ParseField(desc)
	if err != nil {
		return ast.Type{Name: "<unresolved>"}
	}
	return toAstType(t)
}

func invokeKindFor(op bytecode.Op) ast.InvokeKind {
	switch op {
	case bytecode.OpInvokevirtual:
		return ast.InvokeVirtual
	case bytecode.OpInvokespecial:
		return ast.InvokeSpecial
	case bytecode.OpInvokestatic:
		return ast.InvokeStatic
	case bytecode.OpInvokeinterface:
		return ast.InvokeInterface
	case bytecode.OpInvokedynamic:
		return ast.InvokeDynamic
	}
	return ast.InvokeVirtual
}

// liftInvoke handles every invocation form, including the constructor-call
// fold; invokespecial <init> folds into a single
// ExprNewObject with NewArgs"). That fold cannot be done here in isolation
// -- it depends on the preceding new having just pushed the object it
// pairs with -- so the special case inspects the receiver popped off the
// stack and, when it is a bare (no-args-yet) ExprNewObject/this/super,
// rewrites in place instead of emitting a call expression.
func (ms *methodState) liftInvoke(in bytecode.Instruction, stack *Stack, emit func(ast.Statement)) {
	if in.Op == bytecode.OpInvokedynamic {
		ms.liftInvokeDynamic(in, stack, emit)
		return
	}

	owner, name, descStr := ms.resolveMemberRef(in.CPIndex)
	desc, err := descriptor.ParseMethod(descStr)
	if err != nil {
		ms.diagError("InvalidMethodDescriptor", "method %s: invocation at pc %d has unparseable descriptor %q: %v", ms.method.Name, in.PC, descStr, err)
		desc = descriptor.Method{Return: descriptor.Void}
	}

	args := make([]ast.Expression, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = stack.Pop()
	}

	var recv *ast.Expression
	if in.Op != bytecode.OpInvokestatic {
		r := stack.Pop()
		recv = ptr(r)
	}

	if name == "<init>" && in.Op == bytecode.OpInvokespecial && recv != nil {
		switch recv.Kind {
		case ast.ExprNewObject:
			if !ms.opts.FoldConstructorNew {
				break
			}
			folded := *recv
			folded.NewArgs = args
			folded.PC = in.PC
			// A dup preceding the invokespecial leaves a second copy of
			// the same uninitialized objref on the stack (the usual
			// "new Foo(); dup; ...; invokespecial <init>" shape); that
			// copy is identified by sharing the new's class and original
			// PC, and is the value the enclosing expression actually
			// uses, so it gets replaced with the folded constructor call.
			if stack.Len() > 0 {
				top := stack.Peek()
				if top.Kind == ast.ExprNewObject && top.NewClass == recv.NewClass && top.PC == recv.PC {
					stack.Pop()
					stack.Push(folded)
					return
				}
			}
			emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(folded)})
			return
		case ast.ExprThis:
			if owner != ms.className {
				emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(ast.Expression{Kind: ast.ExprMethodCall, PC: in.PC, CallKind: ast.InvokeSpecial, CallOwner: owner, CallName: "<init>", IsSuperCall: true, CallArgs: args})})
				return
			}
			emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(ast.Expression{Kind: ast.ExprMethodCall, PC: in.PC, CallKind: ast.InvokeSpecial, CallOwner: owner, CallName: "<init>", IsThisCall: true, CallArgs: args})})
			return
		case ast.ExprSuper:
			emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(ast.Expression{Kind: ast.ExprMethodCall, PC: in.PC, CallKind: ast.InvokeSpecial, CallOwner: owner, CallName: "<init>", IsSuperCall: true, CallArgs: args})})
			return
		}
	}

	call := ast.Expression{
		Kind:         ast.ExprMethodCall,
		PC:           in.PC,
		CallKind:     invokeKindFor(in.Op),
		CallOwner:    owner,
		CallName:     name,
		CallReceiver: recv,
		CallArgs:     args,
		Type:         toAstType(desc.Return),
	}
	if desc.Return.Kind == descriptor.KindVoid {
		emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(call)})
	} else {
		stack.Push(call)
	}
}

func (ms *methodState) liftInvokeDynamic(in bytecode.Instruction, stack *Stack, emit func(ast.Statement)) {
	name, descStr, bootstrapIdx, err := ms.pool.DynamicRef(in.CPIndex)
	if err != nil {
		ms.diagError("UnresolvableInvokeDynamic", "method %s: invokedynamic at pc %d could not resolve its callsite: %v", ms.method.Name, in.PC, err)
		return
	}
	desc, err := descriptor.ParseMethod(descStr)
	if err != nil {
		ms.diagError("InvalidMethodDescriptor", "method %s: invokedynamic at pc %d has unparseable descriptor %q: %v", ms.method.Name, in.PC, descStr, err)
		desc = descriptor.Method{Return: descriptor.Void}
	}
	args := make([]ast.Expression, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = stack.Pop()
	}
	call := ast.Expression{
		Kind:          ast.ExprDynamicCall,
		PC:            in.PC,
		CallKind:      ast.InvokeDynamic,
		CallName:      name,
		CallArgs:      args,
		BootstrapArgs: nil, // bootstrap method handle resolution requires the BootstrapMethods attribute, left opaque (see classfile.applyClassAttribute); bootstrapIdx is recorded in the diagnostic below for tooling that wants it
		Type:          toAstType(desc.Return),
	}
	ms.diagError("UnresolvedBootstrap", "method %s: invokedynamic %q at pc %d references bootstrap method #%d, not resolved against the BootstrapMethods attribute", ms.method.Name, name, in.PC, bootstrapIdx)
	if desc.Return.Kind == descriptor.KindVoid {
		emit(ast.Statement{Kind: ast.StmtExpr, PC: in.PC, Expr: ptr(call)})
	} else {
		stack.Push(call)
	}
}

// liftConditionalBranch emits the comparison an if* instruction tests as a
// standalone ExprBinary; structural recovery (package cfg) is responsible
// for turning the surrounding block shape into an ast.StmtIf/While/DoWhile,
// consuming this expression as the condition.
func (ms *methodState) liftConditionalBranch(in bytecode.Instruction, stack *Stack, emit func(ast.Statement)) {
	var cond ast.Expression
	switch in.Op {
	case bytecode.OpIfeq, bytecode.OpIfne, bytecode.OpIflt, bytecode.OpIfge, bytecode.OpIfgt, bytecode.OpIfle:
		v := stack.Pop()
		// lcmp/fcmpl/fcmpg/dcmpl/dcmpg always feed directly into a
		// compare-to-zero branch (JVMS 6.5); fold the pair back into a
		// direct comparison of the original operands instead of
		// rendering a synthetic lcmp(...) == 0 call.
		if isCmpHelperCall(v) {
			cond = ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: singleOperandCompareOp(in.Op), Left: ptr(v.CallArgs[0]), Right: ptr(v.CallArgs[1]), Type: ast.Type{Name: "boolean"}}
			break
		}
		zero := ast.Expression{Kind: ast.ExprLiteral, LiteralValue: int32(0), Type: ast.Type{Name: "int"}}
		cond = ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: singleOperandCompareOp(in.Op), Left: ptr(v), Right: ptr(zero), Type: ast.Type{Name: "boolean"}}
	case bytecode.OpIfIcmpeq, bytecode.OpIfIcmpne, bytecode.OpIfIcmplt, bytecode.OpIfIcmpge, bytecode.OpIfIcmpgt, bytecode.OpIfIcmple,
		bytecode.OpIfAcmpeq, bytecode.OpIfAcmpne:
		r := stack.Pop()
		l := stack.Pop()
		cond = ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: doubleOperandCompareOp(in.Op), Left: ptr(l), Right: ptr(r), Type: ast.Type{Name: "boolean"}}
	case bytecode.OpIfnull, bytecode.OpIfnonnull:
		v := stack.Pop()
		null := ast.Expression{Kind: ast.ExprLiteral, LiteralValue: nil, Type: ast.Type{Name: "null"}}
		op := ast.BinEq
		if in.Op == bytecode.OpIfnonnull {
			op = ast.BinNe
		}
		cond = ast.Expression{Kind: ast.ExprBinary, PC: in.PC, BinaryOperator: op, Left: ptr(v), Right: ptr(null), Type: ast.Type{Name: "boolean"}}
	}
	// StmtIf with an empty Then/Else is a placeholder: cfg.Reconstruct
	// rewrites this into the real if/while/do-while shape once it walks the
	// block graph, using Cond as the test and the block's branch/
	// fallthrough edges to decide which arm is which.
	emit(ast.Statement{Kind: ast.StmtIf, PC: in.PC, Cond: ptr(cond)})
}

func singleOperandCompareOp(op bytecode.Op) ast.BinaryOp {
	switch op {
	case bytecode.OpIfeq:
		return ast.BinEq
	case bytecode.OpIfne:
		return ast.BinNe
	case bytecode.OpIflt:
		return ast.BinLt
	case bytecode.OpIfge:
		return ast.BinGe
	case bytecode.OpIfgt:
		return ast.BinGt
	case bytecode.OpIfle:
		return ast.BinLe
	}
	return ast.BinEq
}

func doubleOperandCompareOp(op bytecode.Op) ast.BinaryOp {
	switch op {
	case bytecode.OpIfIcmpeq, bytecode.OpIfAcmpeq:
		return ast.BinEq
	case bytecode.OpIfIcmpne, bytecode.OpIfAcmpne:
		return ast.BinNe
	case bytecode.OpIfIcmplt:
		return ast.BinLt
	case bytecode.OpIfIcmpge:
		return ast.BinGe
	case bytecode.OpIfIcmpgt:
		return ast.BinGt
	case bytecode.OpIfIcmple:
		return ast.BinLe
	}
	return ast.BinEq
}
