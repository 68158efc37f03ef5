/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package ast

// Visitor supports both pre-order and post-order walks over a ClassDecl.
// Pre is called before a node's children are visited, Post after; either
// may be nil to skip that phase. Returning false from Pre skips that
// node's children (and its Post call).
type Visitor struct {
	PreStatement  func(*Statement) bool
	PostStatement func(*Statement)
	PreExpression func(*Expression) bool
	PostExpression func(*Expression)
}

// Walk traverses every declaration, statement, and expression reachable
// from c.
func Walk(c *ClassDecl, v Visitor) {
	for i := range c.Fields {
		if c.Fields[i].Init != nil {
			walkExpr(c.Fields[i].Init, v)
		}
	}
	for i := range c.Methods {
		walkStatements(c.Methods[i].Body, v)
	}
}

func walkStatements(stmts []Statement, v Visitor) {
	for i := range stmts {
		walkStmt(&stmts[i], v)
	}
}

func walkStmt(s *Statement, v Visitor) {
	if v.PreStatement != nil && !v.PreStatement(s) {
		return
	}

	switch s.Kind {
	case StmtBlock:
		walkStatements(s.Body, v)
	case StmtLocalDecl:
		if s.DeclInit != nil {
			walkExpr(s.DeclInit, v)
		}
	case StmtExpr:
		if s.Expr != nil {
			walkExpr(s.Expr, v)
		}
	case StmtAssign:
		walkExpr(s.AssignTarget, v)
		walkExpr(s.AssignValue, v)
	case StmtIf:
		walkExpr(s.Cond, v)
		walkStatements(s.Then, v)
		walkStatements(s.Else, v)
	case StmtWhile, StmtDoWhile:
		if s.LoopCond != nil {
			walkExpr(s.LoopCond, v)
		}
		walkStatements(s.LoopBody, v)
	case StmtFor:
		if s.ForInit != nil {
			walkStmt(s.ForInit, v)
		}
		if s.ForCond != nil {
			walkExpr(s.ForCond, v)
		}
		if s.ForUpdate != nil {
			walkStmt(s.ForUpdate, v)
		}
		walkStatements(s.ForBody, v)
	case StmtSwitch:
		walkExpr(s.SwitchOn, v)
		for i := range s.SwitchCases {
			walkStatements(s.SwitchCases[i].Body, v)
		}
	case StmtReturn:
		if s.ReturnValue != nil {
			walkExpr(s.ReturnValue, v)
		}
	case StmtThrow:
		walkExpr(s.ThrowValue, v)
	case StmtTry:
		walkStatements(s.TryBody, v)
		for i := range s.Catches {
			walkStatements(s.Catches[i].Body, v)
		}
		walkStatements(s.Finally, v)
	case StmtSynchronized:
		walkExpr(s.SyncMonitor, v)
		walkStatements(s.SyncBody, v)
	case StmtLabeled:
		if s.LabeledStmt != nil {
			walkStmt(s.LabeledStmt, v)
		}
	}

	if v.PostStatement != nil {
		v.PostStatement(s)
	}
}

func walkExpr(e *Expression, v Visitor) {
	if e == nil {
		return
	}
	if v.PreExpression != nil && !v.PreExpression(e) {
		return
	}

	switch e.Kind {
	case ExprFieldAccess:
		walkExpr(e.FieldReceiver, v)
	case ExprArrayAccess:
		walkExpr(e.ArrayRef, v)
		walkExpr(e.ArrayIndex, v)
	case ExprMethodCall, ExprDynamicCall:
		walkExpr(e.CallReceiver, v)
		for i := range e.CallArgs {
			walkExpr(&e.CallArgs[i], v)
		}
		for i := range e.BootstrapArgs {
			walkExpr(&e.BootstrapArgs[i], v)
		}
	case ExprNewObject:
		for i := range e.NewArgs {
			walkExpr(&e.NewArgs[i], v)
		}
	case ExprNewArray:
		for i := range e.ArrayDims {
			walkExpr(&e.ArrayDims[i], v)
		}
	case ExprCast, ExprInstanceOf:
		walkExpr(e.Operand, v)
	case ExprUnary:
		walkExpr(e.UnaryOperand, v)
	case ExprBinary:
		walkExpr(e.Left, v)
		walkExpr(e.Right, v)
	case ExprTernary:
		walkExpr(e.Cond, v)
		walkExpr(e.IfTrue, v)
		walkExpr(e.IfFalse, v)
	case ExprAssign:
		walkExpr(e.AssignTarget, v)
		walkExpr(e.AssignValue, v)
	}

	if v.PostExpression != nil {
		v.PostExpression(e)
	}
}
