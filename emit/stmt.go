/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

package emit

import (
	"strconv"

	"jdecomp/ast"
)

// printStatements renders a sequence of statements at the printer's
// current depth, one per line.
func (p *printer) printStatements(stmts []ast.Statement) {
	for i := range stmts {
		p.printStatement(&stmts[i])
	}
}

// printBlock renders stmts as a brace-delimited block one depth deeper
// than the caller, reusing the already-written header's trailing brace
// (the caller writes openBrace(); printBlock only fills the body and the
// closing brace).
func (p *printer) printBlock(stmts []ast.Statement) {
	p.depth++
	p.printStatements(stmts)
	p.depth--
	p.indent()
	p.write("}")
}

func (p *printer) printStatement(s *ast.Statement) {
	switch s.Kind {
	case ast.StmtBlock:
		p.indent()
		p.write("{\n")
		p.printBlock(s.Body)
		p.write("\n")
	case ast.StmtLocalDecl:
		p.indent()
		p.write(s.DeclType.Name + " " + p.escapeIdent(s.DeclName))
		if s.DeclInit != nil {
			p.write(" = " + p.printExpr(s.DeclInit))
		}
		p.write(";" + p.lineComment(s.PC) + "\n")
	case ast.StmtExpr:
		p.indent()
		p.write(p.printExpr(s.Expr) + ";" + p.lineComment(s.PC) + "\n")
	case ast.StmtAssign:
		p.indent()
		p.write(p.printExpr(s.AssignTarget) + " = " + p.printExpr(s.AssignValue) + ";" + p.lineComment(s.PC) + "\n")
	case ast.StmtIf:
		p.printIf(s)
	case ast.StmtWhile:
		p.printWhile(s)
	case ast.StmtDoWhile:
		p.printDoWhile(s)
	case ast.StmtFor:
		p.printFor(s)
	case ast.StmtSwitch:
		p.printSwitch(s)
	case ast.StmtBreak:
		p.indent()
		if s.Label != "" {
			p.write("break " + s.Label + ";\n")
		} else {
			p.write("break;\n")
		}
	case ast.StmtContinue:
		p.indent()
		if s.Label != "" {
			p.write("continue " + s.Label + ";\n")
		} else {
			p.write("continue;\n")
		}
	case ast.StmtReturn:
		p.indent()
		if s.ReturnValue != nil && !p.voidReturn {
			p.write("return " + p.printExpr(s.ReturnValue) + ";" + p.lineComment(s.PC) + "\n")
		} else {
			p.write("return;" + p.lineComment(s.PC) + "\n")
		}
	case ast.StmtThrow:
		p.indent()
		p.write("throw " + p.printExpr(s.ThrowValue) + ";" + p.lineComment(s.PC) + "\n")
	case ast.StmtTry:
		p.printTry(s)
	case ast.StmtSynchronized:
		p.indent()
		p.write("synchronized (" + p.printExpr(s.SyncMonitor) + ")")
		p.openBrace()
		p.printBlock(s.SyncBody)
		p.write("\n")
	case ast.StmtLabeled:
		p.indent()
		p.write(s.Label + ":\n")
		if s.LabeledStmt != nil {
			p.printStatement(s.LabeledStmt)
		}
	default:
		p.indent()
		p.write("// unrecognized statement\n")
	}
}

// printIf collapses an "else" arm that is exactly one StmtIf into an
// "else if" chain, matching how javac's own if/else-if ladders decompile
// without an extra level of nested braces; any other Else shape gets its
// own brace block.
func (p *printer) printIf(s *ast.Statement) {
	p.indent()
	p.write("if (" + p.printExpr(s.Cond) + ")")
	p.openBrace()
	p.printBlock(s.Then)
	if len(s.Else) == 1 && s.Else[0].Kind == ast.StmtIf {
		p.write(" else ")
		// Render the chained if without its own leading indent/newline.
		chained := s.Else[0]
		p.write("if (" + p.printExpr(chained.Cond) + ")")
		p.openBrace()
		p.printBlock(chained.Then)
		p.printElseTail(&chained)
		p.write("\n")
		return
	}
	if len(s.Else) > 0 {
		p.write(" else")
		p.openBrace()
		p.printBlock(s.Else)
	}
	p.write("\n")
}

// printElseTail recurses through a chain of "else if"s rooted at s,
// following the same collapsing rule as printIf's top-level call.
func (p *printer) printElseTail(s *ast.Statement) {
	if len(s.Else) == 1 && s.Else[0].Kind == ast.StmtIf {
		p.write(" else ")
		chained := s.Else[0]
		p.write("if (" + p.printExpr(chained.Cond) + ")")
		p.openBrace()
		p.printBlock(chained.Then)
		p.printElseTail(&chained)
		return
	}
	if len(s.Else) > 0 {
		p.write(" else")
		p.openBrace()
		p.printBlock(s.Else)
	}
}

func (p *printer) printWhile(s *ast.Statement) {
	if p.opts.PreferForLoops {
		if update, rest, ok := p.extractLoopUpdate(s.LoopBody); ok {
			p.indent()
			p.write("for (; " + p.printExpr(s.LoopCond) + "; " + update + ")")
			p.openBrace()
			p.printBlock(rest)
			p.write("\n")
			return
		}
	}
	p.indent()
	p.write("while (" + p.printExpr(s.LoopCond) + ")")
	p.openBrace()
	p.printBlock(s.LoopBody)
	p.write("\n")
}

func (p *printer) printDoWhile(s *ast.Statement) {
	p.indent()
	p.write("do")
	p.openBrace()
	p.printBlock(s.LoopBody)
	p.write(" while (" + p.printExpr(s.LoopCond) + ");\n")
}

func (p *printer) printFor(s *ast.Statement) {
	p.indent()
	p.write("for (")
	if s.ForInit != nil {
		p.write(p.forClauseText(s.ForInit))
	}
	p.write("; ")
	if s.ForCond != nil {
		p.write(p.printExpr(s.ForCond))
	}
	p.write("; ")
	if s.ForUpdate != nil {
		p.write(p.forClauseText(s.ForUpdate))
	}
	p.write(")")
	p.openBrace()
	p.printBlock(s.ForBody)
	p.write("\n")
}

// forClauseText renders a local-decl or assign/expr statement inline,
// without its own trailing semicolon or newline, for use inside a for
// header's init/update slots.
func (p *printer) forClauseText(s *ast.Statement) string {
	switch s.Kind {
	case ast.StmtLocalDecl:
		text := s.DeclType.Name + " " + p.escapeIdent(s.DeclName)
		if s.DeclInit != nil {
			text += " = " + p.printExpr(s.DeclInit)
		}
		return text
	case ast.StmtAssign:
		return p.printExpr(s.AssignTarget) + " = " + p.printExpr(s.AssignValue)
	case ast.StmtExpr:
		return p.printExpr(s.Expr)
	default:
		return ""
	}
}

// extractLoopUpdate recognizes a loop body whose last statement is a
// plain increment or decrement of a local by one, the shape javac's own
// for-loop compiles into: "i = i + 1" / "i = i - 1" at the bottom of the
// loop folds back into "i++" / "i--" in a for header's update clause.
func (p *printer) extractLoopUpdate(body []ast.Statement) (string, []ast.Statement, bool) {
	if len(body) == 0 {
		return "", nil, false
	}
	last := body[len(body)-1]
	if last.Kind != ast.StmtAssign || last.AssignTarget == nil || last.AssignValue == nil {
		return "", nil, false
	}
	target := last.AssignTarget
	value := last.AssignValue
	if target.Kind != ast.ExprLocal || value.Kind != ast.ExprBinary {
		return "", nil, false
	}
	if value.BinaryOperator != ast.BinAdd && value.BinaryOperator != ast.BinSub {
		return "", nil, false
	}
	if value.Left == nil || value.Left.Kind != ast.ExprLocal || value.Left.LocalSlot != target.LocalSlot {
		return "", nil, false
	}
	if !literalOne(value.Right) {
		return "", nil, false
	}
	name := p.escapeIdent(target.LocalName)
	if value.BinaryOperator == ast.BinAdd {
		return name + "++", body[:len(body)-1], true
	}
	return name + "--", body[:len(body)-1], true
}

func literalOne(e *ast.Expression) bool {
	if e == nil || e.Kind != ast.ExprLiteral {
		return false
	}
	v, ok := e.LiteralValue.(int32)
	return ok && v == 1
}

func (p *printer) printSwitch(s *ast.Statement) {
	p.indent()
	p.write("switch (" + p.printExpr(s.SwitchOn) + ")")
	p.openBrace()
	p.depth++
	for _, c := range s.SwitchCases {
		p.indent()
		if c.IsDefault {
			p.write("default:\n")
		} else {
			for i, v := range c.Values {
				if i > 0 {
					p.indent()
				}
				p.write("case " + strconv.FormatInt(int64(v), 10) + ":\n")
			}
		}
		p.depth++
		p.printStatements(c.Body)
		p.depth--
	}
	p.depth--
	p.indent()
	p.write("}\n")
}

func (p *printer) printTry(s *ast.Statement) {
	p.indent()
	p.write("try")
	p.openBrace()
	p.printBlock(s.TryBody)
	for _, c := range s.Catches {
		p.write(" catch (")
		for i, t := range c.ExceptionTypes {
			if i > 0 {
				p.write(" | ")
			}
			p.write(t)
		}
		name := c.LocalName
		if name == "" {
			name = "e"
		}
		p.write(" " + p.escapeIdent(name) + ")")
		p.openBrace()
		p.printBlock(c.Body)
	}
	if s.Finally != nil {
		p.write(" finally")
		p.openBrace()
		p.printBlock(s.Finally)
	}
	p.write("\n")
}
