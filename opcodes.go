// opcodes.go — the instruction set shared by the compiler and the
// interpreter.
//
// The two are coupled through this enum: changing any opcode's semantics
// requires a matching change on both sides, so every opcode is documented
// here and nowhere else.
//
// Stack conventions: statements are net-zero on the value stack and
// expression compilation pushes exactly one value. Every PushArgFrame is
// consumed by exactly one frame-consuming opcode (Call, Tuple, List, Map,
// Set) on every non-exception path. Every PushTry is matched by one
// PopTry+EndFinally pair on the normal path.

package talon

// Opcode identifies an instruction.
type Opcode int

const (
	// OpcLiteral pushes the embedded literal as a fresh object.
	OpcLiteral Opcode = iota

	// OpcVariable resolves Name through locals, captured cells, the
	// module globals, and finally the builtins; raises NameError when the
	// name is unbound everywhere.
	OpcVariable

	// OpcDot pops an object and pushes its attribute Name. A hit that is
	// a function marked as a method is pushed as a bound view (self set
	// to the popped object) unless the receiver is a class. When Fallback
	// is non-empty it is tried on a miss of Name (used by compound
	// assignment: __iadd__ falling back to __add__). A miss of both
	// raises AttributeError.
	OpcDot

	// OpcPushArgFrame records the current stack depth as the base of the
	// next call's argument frame.
	OpcPushArgFrame

	// OpcPushKwarg pops a value, then its key (a string pushed just
	// before it), and stores the pair in the current arg frame's keyword
	// map.
	OpcPushKwarg

	// OpcUnpack pops an iterable and pushes each yielded element into the
	// current arg frame's positional slots.
	OpcUnpack

	// OpcUnpackMapForCall pops a dict and merges its entries (string keys
	// only) into the current arg frame's keyword map.
	OpcUnpackMapForCall

	// OpcUnpackMapForMapCreation pops a dict and pushes its key/value
	// pairs flat, feeding a pending OpcMap.
	OpcUnpackMapForMapCreation

	// OpcCall consumes everything back to the current arg frame: the slot
	// at the base is the callable, the slots above it the positional
	// arguments; the frame's keyword map supplies kwargs. The frame is
	// replaced by the call's result.
	OpcCall

	// OpcTuple / OpcList / OpcSet consume the current arg frame into a
	// new container. OpcMap consumes pairs (key, value, key, value, ...).
	OpcTuple
	OpcList
	OpcMap
	OpcSet

	// OpcSlice pops step, stop, and start and pushes a slice object (the
	// builtin slice class instantiated with them).
	OpcSlice

	// OpcPop discards the top of the stack.
	OpcPop

	// OpcDup pushes a copy of the value Offset slots below the top
	// (Offset 0 duplicates the top).
	OpcDup

	// OpcNot pops a value, truthifies it via __nonzero__, and pushes the
	// negated bool.
	OpcNot

	// OpcIs pops two values and pushes pointer-identity equality.
	OpcIs

	// OpcJump transfers to Jump unconditionally.
	OpcJump

	// OpcJumpIfFalse / OpcJumpIfTrue truthify the top of the stack and
	// jump on a match, popping only when the jump is not taken; the
	// decisive operand stays on the stack (short-circuit and/or).
	OpcJumpIfFalse
	OpcJumpIfTrue

	// OpcJumpIfFalsePop / OpcJumpIfTruePop always pop before testing.
	OpcJumpIfFalsePop
	OpcJumpIfTruePop

	// OpcQueueJump records {Jump, FinallyCount} in the queued-jump
	// register; with FinallyCount > 0 control diverts to the innermost
	// try frame's finally offset, otherwise straight to Jump.
	OpcQueueJump

	// OpcReturn pops the return value. With FinallyCount 0 the frame
	// returns immediately; otherwise the return is queued through the
	// enclosing finally blocks like OpcQueueJump.
	OpcReturn

	// OpcDef materializes a function object: pops DefaultCount default
	// values, resolves LocalCaptures to cells in the current frame and
	// GlobalCaptures to the current module's cells, and pushes the
	// function.
	OpcDef

	// OpcClass builds a class object: the bases sit in the current arg
	// frame, the method functions (one per MethodNames entry, in order)
	// sit immediately below it. Pushes the class.
	OpcClass

	// OpcDirectAssign stores the top of the stack into the Assign target
	// (a name or a pack of names), leaving the value on the stack.
	OpcDirectAssign

	// OpcMemberAssign pops a value and an object, sets object.Name, and
	// pushes the value back.
	OpcMemberAssign

	// OpcStoreIndex pops a value, an index, and an object, performs
	// object.__setitem__(index, value), and pushes the value back.
	// Compound assignment uses it to finish a staged single-evaluation
	// store.
	OpcStoreIndex

	// OpcImport / OpcImportFrom invoke the context's module loader and
	// bind the module object or the named members into the current
	// module's globals.
	OpcImport
	OpcImportFrom

	// OpcRaise pops an exception instance (or instantiates a popped
	// exception class) and begins unwinding.
	OpcRaise

	// OpcPushTry pushes a try frame recording Try's except and finally
	// offsets plus the current value- and arg-stack depths.
	OpcPushTry

	// OpcPopTry pops one try frame (first instruction of every finally
	// block).
	OpcPopTry

	// OpcEndFinally re-raises a pending exception, or advances a queued
	// jump: the jump's remaining-finally count is decremented and control
	// transfers to its target (count zero) or to the next enclosing
	// finally.
	OpcEndFinally

	// OpcClearException clears the current exception (start of a matched
	// except body).
	OpcClearException

	// OpcCurrentException pushes the current exception object.
	OpcCurrentException

	// OpcIsInstance pushes the builtin isinstance function (used by the
	// compiled except-type check).
	OpcIsInstance
)

// DefInstruction is the operand of OpcDef.
type DefInstruction struct {
	Parameters     []Param
	DefaultCount   int
	ListArgs       string
	KwArgs         string
	Variables      []string
	LocalCaptures  []string
	GlobalCaptures []string
	Instructions   []Instruction
	PrettyName     string
	IsMethod       bool
}

// ClassInstruction is the operand of OpcClass.
type ClassInstruction struct {
	MethodNames []string
	PrettyName  string
}

// ImportInstruction is the operand of OpcImport / OpcImportFrom.
type ImportInstruction struct {
	Module string
	Alias  string
	Names  []string // ImportFrom; empty means import *
}

// TryInstruction is the operand of OpcPushTry; offsets are absolute.
type TryInstruction struct {
	ExceptOffset  int
	FinallyOffset int
}

// Instruction is one executable record. Exactly the operand fields implied
// by Op are meaningful; every instruction carries its source position for
// tracebacks.
type Instruction struct {
	Op  Opcode
	Pos SourcePos

	Jump         int
	FinallyCount int
	Offset       int
	Name         string
	Fallback     string
	Literal      *LiteralValue
	Assign       *AssignTarget
	Def          *DefInstruction
	Class        *ClassInstruction
	Import       *ImportInstruction
	Try          *TryInstruction
}
