// parser_test.go

package talon

import "testing"

func parse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func parseFails(t *testing.T, src string) {
	t.Helper()
	if _, err := Parse(src); err == nil {
		t.Errorf("expected parse error for %q", src)
	}
}

func firstFunc(t *testing.T, prog *Program) *FuncDef {
	t.Helper()
	for _, s := range prog.Body {
		if def, ok := s.(*DefStmt); ok {
			return def.Fn.Def
		}
	}
	t.Fatal("no function definition found")
	return nil
}

func TestParseExpressionStatement(t *testing.T) {
	prog := parse(t, "1 + 2 * 3\n")
	stmt, ok := prog.Body[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", prog.Body[0])
	}
	// Precedence: the addition is the root.
	if stmt.Expr.Op != OpAdd {
		t.Fatalf("expected OpAdd root, got %v", stmt.Expr.Op)
	}
	if stmt.Expr.Children[1].Op != OpMul {
		t.Errorf("expected OpMul on the right, got %v", stmt.Expr.Children[1].Op)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	prog := parse(t, "2 ** 3 ** 2\n")
	root := prog.Body[0].(*ExprStmt).Expr
	if root.Op != OpPow || root.Children[1].Op != OpPow {
		t.Errorf("power should nest to the right")
	}
}

func TestParseAssignTargets(t *testing.T) {
	prog := parse(t, "a = 1\na, b = 1, 2\nxs[0] = 1\np.q = 1\n")
	targets := []AssignType{AssignDirect, AssignPack, AssignIndex, AssignMember}
	for i, want := range targets {
		e := prog.Body[i].(*ExprStmt).Expr
		if e.Op != OpAssign {
			t.Fatalf("stmt %d: expected assignment", i)
		}
		if e.AssignTarget.Type != want {
			t.Errorf("stmt %d: target %v, want %v", i, e.AssignTarget.Type, want)
		}
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	prog := parse(t, "x += 2\n")
	e := prog.Body[0].(*ExprStmt).Expr
	if e.Op != OpCompoundAssign || e.CompoundOp != OpAdd {
		t.Errorf("expected compound add, got %v/%v", e.Op, e.CompoundOp)
	}
}

func TestParseForDesugarsToWhile(t *testing.T) {
	prog := parse(t, "for x in xs:\n    pass\n")
	if len(prog.Body) != 2 {
		t.Fatalf("expected init + loop, got %d statements", len(prog.Body))
	}
	if _, ok := prog.Body[0].(*ExprStmt); !ok {
		t.Errorf("expected iterator initialization first")
	}
	loop, ok := prog.Body[1].(*WhileStmt)
	if !ok {
		t.Fatalf("expected while loop, got %T", prog.Body[1])
	}
	// The loop body starts with the try/except StopIteration step whose
	// handler holds the normal break.
	step, ok := loop.Body[0].(*TryStmt)
	if !ok {
		t.Fatalf("expected try step, got %T", loop.Body[0])
	}
	brk, ok := step.Excepts[0].Body[0].(*BreakStmt)
	if !ok || !brk.ExitForNormally || brk.FinallyCount != 1 {
		t.Errorf("expected normal break with finally count 1, got %+v", brk)
	}
}

func TestParseFinallyCounts(t *testing.T) {
	src := `
def f():
    while True:
        try:
            try:
                break
            finally:
                pass
        finally:
            pass
    try:
        return 1
    finally:
        pass
`
	prog := parse(t, src)
	def := firstFunc(t, prog)

	var breaks []*BreakStmt
	var returns []*ReturnStmt
	var walk func(body []Stmt)
	walk = func(body []Stmt) {
		for _, s := range body {
			switch stmt := s.(type) {
			case *BreakStmt:
				breaks = append(breaks, stmt)
			case *ReturnStmt:
				returns = append(returns, stmt)
			case *WhileStmt:
				walk(stmt.Body)
				walk(stmt.Else)
			case *IfStmt:
				walk(stmt.Body)
				walk(stmt.Else)
			case *TryStmt:
				walk(stmt.Body)
				for _, ex := range stmt.Excepts {
					walk(ex.Body)
				}
				walk(stmt.Finally)
			}
		}
	}
	walk(def.Body)

	if len(breaks) != 1 || breaks[0].FinallyCount != 2 {
		t.Errorf("break should unwind 2 finally frames, got %+v", breaks)
	}
	if len(returns) != 1 || returns[0].FinallyCount != 1 {
		t.Errorf("return should unwind 1 finally frame, got %+v", returns)
	}
}

func TestParseScopeAnalysis(t *testing.T) {
	src := `
def outer():
    a = 1
    b = 2
    global g
    g = 3
    def inner():
        nonlocal a
        a = a + b
        return a
    return inner
`
	prog := parse(t, src)
	outer := firstFunc(t, prog)

	if len(outer.GlobalCaptures) != 1 || outer.GlobalCaptures[0] != "g" {
		t.Errorf("outer globals: %v", outer.GlobalCaptures)
	}
	wantVars := map[string]bool{"a": true, "b": true, "inner": true}
	for _, v := range outer.Variables {
		if !wantVars[v] {
			t.Errorf("unexpected outer local %q", v)
		}
		delete(wantVars, v)
	}
	if len(wantVars) > 0 {
		t.Errorf("missing outer locals: %v", wantVars)
	}

	var inner *FuncDef
	visitReferences(outer.Body, func(string) {}, func(def *FuncDef) { inner = def })
	if inner == nil {
		t.Fatal("inner function not found")
	}
	caps := map[string]bool{}
	for _, c := range inner.LocalCaptures {
		caps[c] = true
	}
	if !caps["a"] || !caps["b"] {
		t.Errorf("inner should capture a and b, got %v", inner.LocalCaptures)
	}
}

func TestParseCaptureRelay(t *testing.T) {
	src := `
def level1():
    x = 1
    def level2():
        def level3():
            return x
        return level3
    return level2
`
	prog := parse(t, src)
	level1 := firstFunc(t, prog)
	var level2 *FuncDef
	visitReferences(level1.Body, func(string) {}, func(def *FuncDef) { level2 = def })
	if level2 == nil {
		t.Fatal("level2 not found")
	}
	found := false
	for _, c := range level2.LocalCaptures {
		if c == "x" {
			found = true
		}
	}
	if !found {
		t.Errorf("x should relay through level2's captures: %v", level2.LocalCaptures)
	}
}

func TestParseParameters(t *testing.T) {
	prog := parse(t, "def f(a, b=1, *rest, **kw):\n    pass\n")
	def := firstFunc(t, prog)
	if len(def.Parameters) != 2 {
		t.Fatalf("expected 2 positional parameters, got %v", def.Parameters)
	}
	if def.Parameters[1].HasDefault != true || len(def.Defaults) != 1 {
		t.Errorf("default parameter not recorded")
	}
	if def.ListArgs != "rest" || def.KwArgs != "kw" {
		t.Errorf("varargs: %q / %q", def.ListArgs, def.KwArgs)
	}
}

func TestParseClass(t *testing.T) {
	prog := parse(t, "class C(A, B):\n    def m(self):\n        pass\n    def n(self):\n        pass\n")
	cls, ok := prog.Body[0].(*ClassStmt)
	if !ok {
		t.Fatalf("expected class statement, got %T", prog.Body[0])
	}
	if cls.Name != "C" || len(cls.Bases) != 2 || len(cls.MethodNames) != 2 {
		t.Errorf("class shape: %+v", cls)
	}
	if cls.MethodNames[0] != "m" || cls.MethodNames[1] != "n" {
		t.Errorf("method names: %v", cls.MethodNames)
	}
}

func TestParseListComprehension(t *testing.T) {
	prog := parse(t, "ys = [x * 2 for x in xs if x]\n")
	assign := prog.Body[0].(*ExprStmt).Expr
	comp := assign.Children[1]
	if comp.Op != OpListComp {
		t.Fatalf("expected comprehension, got %v", comp.Op)
	}
	if comp.ListComp.ListName == "" || len(comp.ListComp.ForBody) == 0 {
		t.Errorf("comprehension not desugared: %+v", comp.ListComp)
	}
}

func TestParseSliceForms(t *testing.T) {
	prog := parse(t, "a[1]\na[1:2]\na[:2]\na[::2]\na[1:2:3]\n")
	wants := []Operation{OpIndex, OpSlice, OpSlice, OpSlice, OpSlice}
	for i, want := range wants {
		e := prog.Body[i].(*ExprStmt).Expr
		if e.Op != want {
			t.Errorf("stmt %d: got %v want %v", i, e.Op, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"break\n",
		"continue\n",
		"return 1\n",
		"nonlocal x\n",
		"def f(a, a):\n    pass\n",
		"def f(a=1, b):\n    pass\n",
		"a + b = 1\n",
		"try:\n    pass\n",
		"class C:\n    x = 1\n",
		"def f():\n    nonlocal missing\n    missing = 1\n",
		"for a.b in xs:\n    pass\n",
		"x +=\n",
	}
	for _, src := range cases {
		parseFails(t, src)
	}
}

func TestParseExpressionEntry(t *testing.T) {
	prog, err := ParseExpression("1 + 2")
	if err != nil {
		t.Fatalf("ParseExpression failed: %v", err)
	}
	ret, ok := prog.Body[0].(*ReturnStmt)
	if !ok || ret.Value == nil {
		t.Fatalf("expected a return of the expression")
	}
	if _, err := ParseExpression("x = 1"); err == nil {
		t.Error("assignments should not parse in expression mode")
	}
}
