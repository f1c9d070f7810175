// compiler_test.go

package talon

import "testing"

func compileSrc(t *testing.T, src string) []Instruction {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return Compile(prog)
}

func opcodes(instrs []Instruction) []Opcode {
	out := make([]Opcode, len(instrs))
	for i := range instrs {
		out[i] = instrs[i].Op
	}
	return out
}

func expectOpcodes(t *testing.T, instrs []Instruction, want []Opcode) {
	t.Helper()
	got := opcodes(instrs)
	if len(got) != len(want) {
		t.Fatalf("instruction count: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d: got %v want %v (stream %v)", i, got[i], want[i], got)
		}
	}
}

func TestCompileBinaryOpLowersToMethodCall(t *testing.T) {
	instrs := compileSrc(t, "a + b\n")
	expectOpcodes(t, instrs, []Opcode{
		OpcPushArgFrame, OpcVariable, OpcDot, OpcVariable, OpcCall, OpcPop,
	})
	if instrs[2].Name != "__add__" {
		t.Errorf("dot name: %q", instrs[2].Name)
	}
}

func TestCompileContainmentReceiverIsRight(t *testing.T) {
	instrs := compileSrc(t, "a in b\n")
	// b is compiled first: __contains__ dispatches on the right operand.
	if instrs[1].Op != OpcVariable || instrs[1].Name != "b" {
		t.Fatalf("expected right operand first, got %+v", instrs[1])
	}
	if instrs[2].Name != "__contains__" {
		t.Errorf("dot name: %q", instrs[2].Name)
	}
}

func TestCompileNotInAppendsNot(t *testing.T) {
	instrs := compileSrc(t, "a not in b\n")
	got := opcodes(instrs)
	if got[len(got)-2] != OpcNot {
		t.Errorf("expected Not before the statement Pop: %v", got)
	}
}

func TestCompileShortCircuitKeepsOperand(t *testing.T) {
	and := compileSrc(t, "a and b\n")
	if and[1].Op != OpcJumpIfFalse {
		t.Errorf("and should use the non-popping false jump, got %v", and[1].Op)
	}
	if and[1].Jump != 3 {
		t.Errorf("jump should target the merge point, got %d", and[1].Jump)
	}
	or := compileSrc(t, "a or b\n")
	if or[1].Op != OpcJumpIfTrue {
		t.Errorf("or should use the non-popping true jump, got %v", or[1].Op)
	}
}

func TestCompileConditionalExpression(t *testing.T) {
	instrs := compileSrc(t, "t if c else f\n")
	expectOpcodes(t, instrs, []Opcode{
		OpcVariable, OpcJumpIfFalsePop, OpcVariable, OpcJump, OpcVariable, OpcPop,
	})
	if instrs[1].Jump != 4 {
		t.Errorf("false jump should land on the else branch, got %d", instrs[1].Jump)
	}
	if instrs[3].Jump != 5 {
		t.Errorf("end jump should land after the else branch, got %d", instrs[3].Jump)
	}
}

func TestCompileWhilePatchesJumps(t *testing.T) {
	instrs := compileSrc(t, "while c:\n    x\n")
	// cond, exit-jump, body expr, pop, loop-jump
	expectOpcodes(t, instrs, []Opcode{
		OpcVariable, OpcJumpIfFalsePop, OpcVariable, OpcPop, OpcJump,
	})
	if instrs[1].Jump != 5 {
		t.Errorf("exit jump should go past the loop, got %d", instrs[1].Jump)
	}
	if instrs[4].Jump != 0 {
		t.Errorf("loop jump should return to the condition, got %d", instrs[4].Jump)
	}
}

func TestCompileBreakQueuesJump(t *testing.T) {
	instrs := compileSrc(t, "while c:\n    try:\n        break\n    finally:\n        pass\n")
	var queue *Instruction
	for i := range instrs {
		if instrs[i].Op == OpcQueueJump && instrs[i].FinallyCount == 1 {
			queue = &instrs[i]
			break
		}
	}
	if queue == nil {
		t.Fatal("no queued jump with finally count 1 found")
	}
	if queue.Jump != len(instrs) {
		t.Errorf("break target should be the loop end (%d), got %d", len(instrs), queue.Jump)
	}
}

func TestCompileTryLayout(t *testing.T) {
	instrs := compileSrc(t, "try:\n    x\nexcept E as v:\n    y\nfinally:\n    z\n")
	if instrs[0].Op != OpcPushTry {
		t.Fatalf("expected PushTry first, got %v", instrs[0].Op)
	}
	tryInfo := instrs[0].Try

	// The except chain starts with the isinstance check.
	expectOpcodes(t, instrs[tryInfo.ExceptOffset:tryInfo.ExceptOffset+5], []Opcode{
		OpcPushArgFrame, OpcIsInstance, OpcCurrentException, OpcVariable, OpcCall,
	})

	// The finally block is PopTry, body, EndFinally.
	fin := instrs[tryInfo.FinallyOffset:]
	if fin[0].Op != OpcPopTry {
		t.Errorf("finally should begin with PopTry, got %v", fin[0].Op)
	}
	if fin[len(fin)-1].Op != OpcEndFinally {
		t.Errorf("finally should end with EndFinally, got %v", fin[len(fin)-1].Op)
	}

	// The matched-handler path clears the exception before its body.
	foundClear := false
	for _, in := range instrs[tryInfo.ExceptOffset:tryInfo.FinallyOffset] {
		if in.Op == OpcClearException {
			foundClear = true
		}
	}
	if !foundClear {
		t.Error("except body should clear the current exception")
	}
}

func TestCompileDefDefaultsReversed(t *testing.T) {
	instrs := compileSrc(t, "def f(a=1, b=2):\n    pass\n")
	// Defaults push last-first so OpcDef pops them in parameter order.
	expectOpcodes(t, instrs[:3], []Opcode{OpcLiteral, OpcLiteral, OpcDef})
	if instrs[0].Literal.I != 2 || instrs[1].Literal.I != 1 {
		t.Errorf("default push order wrong: %v then %v", instrs[0].Literal, instrs[1].Literal)
	}
	if instrs[2].Def.DefaultCount != 2 {
		t.Errorf("default count: %d", instrs[2].Def.DefaultCount)
	}
}

func TestCompileClassStacksMethodsBelowFrame(t *testing.T) {
	instrs := compileSrc(t, "class C(A):\n    def m(self):\n        pass\n")
	expectOpcodes(t, instrs, []Opcode{
		OpcDef, OpcPushArgFrame, OpcVariable, OpcClass, OpcDirectAssign, OpcPop,
	})
	if !instrs[0].Def.IsMethod {
		t.Error("class methods should be marked as methods")
	}
	if instrs[3].Class.PrettyName != "C" || len(instrs[3].Class.MethodNames) != 1 {
		t.Errorf("class instruction: %+v", instrs[3].Class)
	}
}

func TestCompileKwargStaging(t *testing.T) {
	instrs := compileSrc(t, "f(x=1)\n")
	expectOpcodes(t, instrs, []Opcode{
		OpcPushArgFrame, OpcVariable, OpcLiteral, OpcLiteral, OpcPushKwarg, OpcCall, OpcPop,
	})
	if instrs[2].Literal.S != "x" {
		t.Errorf("kwarg key literal: %+v", instrs[2].Literal)
	}
}

func TestCompileCompoundIndexSingleEvaluation(t *testing.T) {
	instrs := compileSrc(t, "a[i] += b\n")
	got := opcodes(instrs)
	// The staged object and index are duplicated, never recompiled: there
	// must be exactly one Variable load each for a and i.
	loads := map[string]int{}
	dups := 0
	for _, in := range instrs {
		if in.Op == OpcVariable {
			loads[in.Name]++
		}
		if in.Op == OpcDup {
			dups++
		}
	}
	if loads["a"] != 1 || loads["i"] != 1 {
		t.Errorf("target should be evaluated once: %v (%v)", loads, got)
	}
	if dups != 2 {
		t.Errorf("expected 2 dups, got %d", dups)
	}
	if got[len(got)-2] != OpcStoreIndex {
		t.Errorf("expected StoreIndex before the statement Pop: %v", got)
	}
	// The in-place method falls back to the plain operator.
	foundFallback := false
	for _, in := range instrs {
		if in.Op == OpcDot && in.Name == "__iadd__" && in.Fallback == "__add__" {
			foundFallback = true
		}
	}
	if !foundFallback {
		t.Error("compound assignment should try __iadd__ with __add__ fallback")
	}
}

func TestCompileSliceExpression(t *testing.T) {
	instrs := compileSrc(t, "a[1:2:3]\n")
	got := opcodes(instrs)
	want := []Opcode{
		OpcPushArgFrame, OpcVariable, OpcDot,
		OpcLiteral, OpcLiteral, OpcLiteral, OpcSlice, OpcCall, OpcPop,
	}
	expectOpcodes(t, instrs, want)
	if instrs[2].Name != "__getitem__" {
		t.Errorf("slicing should dispatch __getitem__, got %q", instrs[2].Name)
	}
	_ = got
}

func TestCompileArgFramesBalance(t *testing.T) {
	// Every PushArgFrame must be consumed by exactly one Call or container
	// opcode in straight-line code.
	sources := []string{
		"x = 1\n",
		"x = [1, 2, (3, 4)]\n",
		"f(1, k=2, *xs, **kw)\n",
		"a.b = c[1] + d[2:3]\n",
		"x = {1: 2, **m}\n",
		"a[i] += b\n",
	}
	for _, src := range sources {
		instrs := compileSrc(t, src)
		frames := 0
		for _, in := range instrs {
			switch in.Op {
			case OpcPushArgFrame:
				frames++
			case OpcCall, OpcTuple, OpcList, OpcMap, OpcSet:
				frames--
				if frames < 0 {
					t.Fatalf("%q: frame consumed without a producer", src)
				}
			}
		}
		if frames != 0 {
			t.Errorf("%q: unbalanced arg frames (%d)", src, frames)
		}
	}
}
