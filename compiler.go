// compiler.go — lowers the parse tree into a flat instruction vector.
//
// Operators, indexing, and slicing lower to method-call form against the
// dunder table below, so the interpreter needs no operator knowledge beyond
// attribute lookup and calling. Control flow is resolved here: forward
// jumps are recorded and patched once their target offset is known, and
// break/continue/return emit queued jumps carrying the finally counts the
// parser computed.

package talon

// opMethods maps each operator to the method the compiled code calls on
// its first operand (the right operand for `in`).
var opMethods = map[Operation]string{
	OpIndex:    "__getitem__",
	OpPos:      "__pos__",
	OpNeg:      "__neg__",
	OpAdd:      "__add__",
	OpSub:      "__sub__",
	OpMul:      "__mul__",
	OpDiv:      "__truediv__",
	OpFloorDiv: "__floordiv__",
	OpMod:      "__mod__",
	OpPow:      "__pow__",
	OpEq:       "__eq__",
	OpNe:       "__ne__",
	OpLt:       "__lt__",
	OpLe:       "__le__",
	OpGt:       "__gt__",
	OpGe:       "__ge__",
	OpIn:       "__contains__",
	OpBitAnd:   "__and__",
	OpBitOr:    "__or__",
	OpBitNot:   "__invert__",
	OpBitXor:   "__xor__",
	OpShiftL:   "__lshift__",
	OpShiftR:   "__rshift__",
}

// inPlaceMethods maps the operator of a compound assignment to its in-place
// method; the plain method from opMethods is the runtime fallback.
var inPlaceMethods = map[Operation]string{
	OpAdd:      "__iadd__",
	OpSub:      "__isub__",
	OpMul:      "__imul__",
	OpDiv:      "__itruediv__",
	OpFloorDiv: "__ifloordiv__",
	OpMod:      "__imod__",
	OpPow:      "__ipow__",
	OpBitAnd:   "__iand__",
	OpBitOr:    "__ior__",
	OpBitXor:   "__ixor__",
	OpShiftL:   "__ilshift__",
	OpShiftR:   "__irshift__",
}

// Compile lowers a parsed program into an instruction vector.
func Compile(prog *Program) []Instruction {
	c := &compiler{}
	c.compileBody(prog.Body)
	return c.instrs
}

type compiler struct {
	instrs []Instruction

	// One entry per enclosing loop: indexes of the QueueJump instructions
	// to patch to the loop end (breaks) and to the condition (continues),
	// plus the slot for the for-loop's normal break (-1 when unset).
	breaks    [][]int
	continues [][]int
	forBreaks []int
}

func (c *compiler) emit(instr Instruction) int {
	c.instrs = append(c.instrs, instr)
	return len(c.instrs) - 1
}

func (c *compiler) here() int { return len(c.instrs) }

func (c *compiler) compileBody(body []Stmt) {
	for _, s := range body {
		c.compileStatement(s)
	}
}

func (c *compiler) compileStatement(s Stmt) {
	switch stmt := s.(type) {
	case *ExprStmt:
		c.compileExpression(stmt.Expr)
		c.emit(Instruction{Op: OpcPop, Pos: stmt.Pos})
	case *IfStmt:
		c.compileIf(stmt)
	case *WhileStmt:
		c.compileWhile(stmt)
	case *BreakStmt:
		idx := c.here()
		if stmt.ExitForNormally {
			c.forBreaks[len(c.forBreaks)-1] = idx
		} else {
			top := len(c.breaks) - 1
			c.breaks[top] = append(c.breaks[top], idx)
		}
		c.emit(Instruction{Op: OpcQueueJump, Pos: stmt.Pos, FinallyCount: stmt.FinallyCount})
	case *ContinueStmt:
		top := len(c.continues) - 1
		c.continues[top] = append(c.continues[top], c.here())
		c.emit(Instruction{Op: OpcQueueJump, Pos: stmt.Pos, FinallyCount: stmt.FinallyCount})
	case *ReturnStmt:
		if stmt.Value != nil {
			c.compileExpression(stmt.Value)
		} else {
			c.emit(Instruction{Op: OpcLiteral, Pos: stmt.Pos, Literal: &LiteralValue{Kind: LitNone}})
		}
		c.emit(Instruction{Op: OpcReturn, Pos: stmt.Pos, FinallyCount: stmt.FinallyCount})
	case *DefStmt:
		c.compileFunction(stmt.Fn, false)
		c.emit(Instruction{
			Op: OpcDirectAssign, Pos: stmt.Pos,
			Assign: &AssignTarget{Type: AssignDirect, Direct: stmt.Fn.Def.Name},
		})
		c.emit(Instruction{Op: OpcPop, Pos: stmt.Pos})
	case *ClassStmt:
		c.compileClass(stmt)
	case *TryStmt:
		c.compileTry(stmt)
	case *RaiseStmt:
		c.compileExpression(stmt.Value)
		c.emit(Instruction{Op: OpcRaise, Pos: stmt.Pos})
	case *ImportStmt:
		c.emit(Instruction{Op: OpcImport, Pos: stmt.Pos,
			Import: &ImportInstruction{Module: stmt.Module, Alias: stmt.Alias}})
	case *ImportFromStmt:
		c.emit(Instruction{Op: OpcImportFrom, Pos: stmt.Pos,
			Import: &ImportInstruction{Module: stmt.Module, Alias: stmt.Alias, Names: stmt.Names}})
	case *PassStmt, *GlobalStmt, *NonlocalStmt:
		// No code; scope effects were resolved by the parser.
	}
}

// -----------------------------
// Control flow
// -----------------------------

func (c *compiler) compileIf(stmt *IfStmt) {
	c.compileExpression(stmt.Cond)
	falseJump := c.emit(Instruction{Op: OpcJumpIfFalsePop, Pos: stmt.Pos})
	c.compileBody(stmt.Body)
	if len(stmt.Else) > 0 {
		endJump := c.emit(Instruction{Op: OpcJump, Pos: stmt.Pos})
		c.instrs[falseJump].Jump = c.here()
		c.compileBody(stmt.Else)
		c.instrs[endJump].Jump = c.here()
	} else {
		c.instrs[falseJump].Jump = c.here()
	}
}

func (c *compiler) compileWhile(stmt *WhileStmt) {
	condLoc := c.here()
	c.compileExpression(stmt.Cond)
	terminateJump := c.emit(Instruction{Op: OpcJumpIfFalsePop, Pos: stmt.Pos})

	c.breaks = append(c.breaks, nil)
	c.continues = append(c.continues, nil)
	c.forBreaks = append(c.forBreaks, -1)

	c.compileBody(stmt.Body)
	c.emit(Instruction{Op: OpcJump, Pos: stmt.Pos, Jump: condLoc})
	c.instrs[terminateJump].Jump = c.here()

	// The for-loop's terminating break lands before the else clause so
	// for/else still runs; user breaks land after it.
	if slot := c.forBreaks[len(c.forBreaks)-1]; slot >= 0 {
		c.instrs[slot].Jump = c.here()
	}
	c.compileBody(stmt.Else)

	top := len(c.breaks) - 1
	for _, idx := range c.breaks[top] {
		c.instrs[idx].Jump = c.here()
	}
	for _, idx := range c.continues[top] {
		c.instrs[idx].Jump = condLoc
	}
	c.breaks = c.breaks[:top]
	c.continues = c.continues[:top]
	c.forBreaks = c.forBreaks[:len(c.forBreaks)-1]
}

func (c *compiler) compileTry(stmt *TryStmt) {
	var jumpsToEnd []int
	queueToFinally := func(pos SourcePos) {
		jumpsToEnd = append(jumpsToEnd, c.here())
		c.emit(Instruction{Op: OpcQueueJump, Pos: pos, FinallyCount: 1})
	}

	pushTry := c.emit(Instruction{Op: OpcPushTry, Pos: stmt.Pos, Try: &TryInstruction{}})
	c.compileBody(stmt.Body)
	queueToFinally(stmt.Pos)

	c.instrs[pushTry].Try.ExceptOffset = c.here()
	for _, clause := range stmt.Excepts {
		jumpToNext := -1
		if clause.Type != nil {
			c.emit(Instruction{Op: OpcPushArgFrame, Pos: clause.Pos})
			c.emit(Instruction{Op: OpcIsInstance, Pos: clause.Pos})
			c.emit(Instruction{Op: OpcCurrentException, Pos: clause.Pos})
			c.compileExpression(clause.Type)
			c.emit(Instruction{Op: OpcCall, Pos: clause.Pos})
			jumpToNext = c.emit(Instruction{Op: OpcJumpIfFalsePop, Pos: clause.Pos})
			if clause.Variable != "" {
				c.emit(Instruction{Op: OpcCurrentException, Pos: clause.Pos})
				c.emit(Instruction{Op: OpcDirectAssign, Pos: clause.Pos,
					Assign: &AssignTarget{Type: AssignDirect, Direct: clause.Variable}})
				c.emit(Instruction{Op: OpcPop, Pos: clause.Pos})
			}
		}
		c.emit(Instruction{Op: OpcClearException, Pos: clause.Pos})
		c.compileBody(clause.Body)
		queueToFinally(clause.Pos)
		if jumpToNext >= 0 {
			c.instrs[jumpToNext].Jump = c.here()
		}
	}

	c.instrs[pushTry].Try.FinallyOffset = c.here()
	c.emit(Instruction{Op: OpcPopTry, Pos: stmt.Pos})
	c.compileBody(stmt.Finally)
	c.emit(Instruction{Op: OpcEndFinally, Pos: stmt.Pos})

	for _, idx := range jumpsToEnd {
		c.instrs[idx].Jump = c.here()
	}
}

// -----------------------------
// Functions & classes
// -----------------------------

func (c *compiler) compileFunction(e *Expr, isMethod bool) {
	def := e.Def

	// Default expressions go on the stack last-parameter-first so OpcDef
	// pops them back in parameter order.
	for i := len(def.Defaults) - 1; i >= 0; i-- {
		c.compileExpression(def.Defaults[i])
	}

	body := &compiler{}
	body.compileBody(def.Body)

	c.emit(Instruction{
		Op:  OpcDef,
		Pos: e.Pos,
		Def: &DefInstruction{
			Parameters:     def.Parameters,
			DefaultCount:   len(def.Defaults),
			ListArgs:       def.ListArgs,
			KwArgs:         def.KwArgs,
			Variables:      def.Variables,
			LocalCaptures:  def.LocalCaptures,
			GlobalCaptures: def.GlobalCaptures,
			Instructions:   body.instrs,
			PrettyName:     def.Name,
			IsMethod:       isMethod,
		},
	})
}

func (c *compiler) compileClass(stmt *ClassStmt) {
	for _, method := range stmt.Methods {
		c.compileFunction(method, true)
	}

	c.emit(Instruction{Op: OpcPushArgFrame, Pos: stmt.Pos})
	for _, base := range stmt.Bases {
		c.compileExpression(base)
	}
	c.emit(Instruction{Op: OpcClass, Pos: stmt.Pos,
		Class: &ClassInstruction{MethodNames: stmt.MethodNames, PrettyName: stmt.Name}})

	c.emit(Instruction{Op: OpcDirectAssign, Pos: stmt.Pos,
		Assign: &AssignTarget{Type: AssignDirect, Direct: stmt.Name}})
	c.emit(Instruction{Op: OpcPop, Pos: stmt.Pos})
}

// -----------------------------
// Expressions
// -----------------------------

func (c *compiler) compileExpression(e *Expr) {
	switch e.Op {
	case OpLiteral:
		lit := e.Literal
		c.emit(Instruction{Op: OpcLiteral, Pos: e.Pos, Literal: &lit})

	case OpVariable:
		c.emit(Instruction{Op: OpcVariable, Pos: e.Pos, Name: e.VariableName})

	case OpDot:
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: e.VariableName})

	case OpTuple, OpList, OpMap, OpSet:
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		for _, child := range e.Children {
			c.compileExpression(child)
		}
		var op Opcode
		switch e.Op {
		case OpTuple:
			op = OpcTuple
		case OpList:
			op = OpcList
		case OpMap:
			op = OpcMap
		default:
			op = OpcSet
		}
		c.emit(Instruction{Op: op, Pos: e.Pos})

	case OpCall:
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		for _, child := range e.Children {
			c.compileExpression(child)
		}
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})

	case OpAnd, OpOr:
		c.compileExpression(e.Children[0])
		op := OpcJumpIfFalse
		if e.Op == OpOr {
			op = OpcJumpIfTrue
		}
		jump := c.emit(Instruction{Op: op, Pos: e.Pos})
		c.compileExpression(e.Children[1])
		c.instrs[jump].Jump = c.here()

	case OpNot:
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcNot, Pos: e.Pos})

	case OpIn, OpNotIn:
		// The receiver of __contains__ is the right operand.
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.compileExpression(e.Children[1])
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: "__contains__"})
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
		if e.Op == OpNotIn {
			c.emit(Instruction{Op: OpcNot, Pos: e.Pos})
		}

	case OpIs, OpIsNot:
		c.compileExpression(e.Children[0])
		c.compileExpression(e.Children[1])
		c.emit(Instruction{Op: OpcIs, Pos: e.Pos})
		if e.Op == OpIsNot {
			c.emit(Instruction{Op: OpcNot, Pos: e.Pos})
		}

	case OpIfElse:
		c.compileExpression(e.Children[0])
		falseJump := c.emit(Instruction{Op: OpcJumpIfFalsePop, Pos: e.Pos})
		c.compileExpression(e.Children[1])
		endJump := c.emit(Instruction{Op: OpcJump, Pos: e.Pos})
		c.instrs[falseJump].Jump = c.here()
		c.compileExpression(e.Children[2])
		c.instrs[endJump].Jump = c.here()

	case OpUnpack:
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcUnpack, Pos: e.Pos})

	case OpUnpackMapForCall:
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcUnpackMapForCall, Pos: e.Pos})

	case OpUnpackMapForMapCreation:
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcUnpackMapForMapCreation, Pos: e.Pos})

	case OpKwarg:
		c.emit(Instruction{Op: OpcLiteral, Pos: e.Pos,
			Literal: &LiteralValue{Kind: LitString, S: e.VariableName}})
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcPushKwarg, Pos: e.Pos})

	case OpIndex:
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: "__getitem__"})
		c.compileExpression(e.Children[1])
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})

	case OpSlice:
		// obj.__getitem__(slice(start, stop, step))
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: "__getitem__"})
		c.compileExpression(e.Children[1])
		c.compileExpression(e.Children[2])
		c.compileExpression(e.Children[3])
		c.emit(Instruction{Op: OpcSlice, Pos: e.Pos})
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})

	case OpListComp:
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.emit(Instruction{Op: OpcList, Pos: e.Pos})
		c.emit(Instruction{Op: OpcDirectAssign, Pos: e.Pos,
			Assign: &AssignTarget{Type: AssignDirect, Direct: e.ListComp.ListName}})
		c.compileBody(e.ListComp.ForBody)
		// The filled list is left on the stack by DirectAssign.

	case OpFunction:
		c.compileFunction(e, false)

	case OpAssign:
		c.compileAssignment(e.AssignTarget, e.Children[0], e.Children[1], e.Pos)

	case OpCompoundAssign:
		c.compileCompoundAssign(e)

	default:
		// Unary and binary operators lower to method-call form.
		method, ok := opMethods[e.Op]
		if !ok {
			panic("talon: unhandled expression operation")
		}
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.compileExpression(e.Children[0])
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: method})
		for _, child := range e.Children[1:] {
			c.compileExpression(child)
		}
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
	}
}

// -----------------------------
// Assignment
// -----------------------------

func (c *compiler) compileAssignment(target *AssignTarget, assignee, value *Expr, pos SourcePos) {
	switch target.Type {
	case AssignDirect, AssignPack:
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcDirectAssign, Pos: pos, Assign: target})

	case AssignIndex:
		// a[i] = v  →  a.__setitem__(i, v)
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: pos})
		c.compileExpression(assignee.Children[0])
		c.emit(Instruction{Op: OpcDot, Pos: pos, Name: "__setitem__"})
		c.compileExpression(assignee.Children[1])
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcCall, Pos: pos})

	case AssignMember:
		c.compileExpression(assignee.Children[0])
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcMemberAssign, Pos: pos, Name: assignee.VariableName})
	}
}

// compileCompoundAssign lowers `target op= value` evaluating the target
// subexpressions exactly once; the staged copies feed both the read and
// the final store.
func (c *compiler) compileCompoundAssign(e *Expr) {
	assignee, value := e.Children[0], e.Children[1]
	inPlace := inPlaceMethods[e.CompoundOp]
	fallback := opMethods[e.CompoundOp]

	switch e.AssignTarget.Type {
	case AssignDirect:
		// Rereading a name is effect-free, so the plain lowering serves.
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.emit(Instruction{Op: OpcVariable, Pos: e.Pos, Name: e.AssignTarget.Direct})
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: inPlace, Fallback: fallback})
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
		c.emit(Instruction{Op: OpcDirectAssign, Pos: e.Pos, Assign: e.AssignTarget})

	case AssignMember:
		// obj staged once; Dup feeds the read, MemberAssign the store.
		c.compileExpression(assignee.Children[0])
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos})
		c.emit(Instruction{Op: OpcDup, Pos: e.Pos, Offset: 0})
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: assignee.VariableName})
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: inPlace, Fallback: fallback})
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
		c.emit(Instruction{Op: OpcMemberAssign, Pos: e.Pos, Name: assignee.VariableName})

	case AssignIndex:
		// obj and index staged once; the element read and the store both
		// work off the staged copies.
		c.compileExpression(assignee.Children[0])
		c.compileExpression(assignee.Children[1])
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos}) // frame for the op call
		c.emit(Instruction{Op: OpcPushArgFrame, Pos: e.Pos}) // frame for __getitem__
		c.emit(Instruction{Op: OpcDup, Pos: e.Pos, Offset: 1})
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: "__getitem__"})
		c.emit(Instruction{Op: OpcDup, Pos: e.Pos, Offset: 1})
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
		c.emit(Instruction{Op: OpcDot, Pos: e.Pos, Name: inPlace, Fallback: fallback})
		c.compileExpression(value)
		c.emit(Instruction{Op: OpcCall, Pos: e.Pos})
		c.emit(Instruction{Op: OpcStoreIndex, Pos: e.Pos})
	}
}
