// interpreter_test.go — end-to-end execution tests driving the whole
// pipeline (lexer → parser → compiler → interpreter) through the print
// sink.

package talon

import (
	"strings"
	"testing"
)

// newTestContext builds a context whose print output is captured.
func newTestContext(t *testing.T) (*Context, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	cfg := DefaultConfig()
	cfg.Print = func(text string, _ any) { out.WriteString(text) }
	ctx := NewContext(&cfg)
	if ctx == nil {
		t.Fatal("NewContext returned nil")
	}
	return ctx, &out
}

// mustRun executes src and returns everything it printed.
func mustRun(t *testing.T, src string) string {
	t.Helper()
	ctx, out := newTestContext(t)
	defer ctx.Destroy()
	if ctx.Execute(src, "__main__") == nil {
		t.Fatalf("execution failed:\n%s", ctx.GetErrorMessage())
	}
	return out.String()
}

// mustFail executes src expecting an uncaught exception and returns its
// type name.
func mustFail(t *testing.T, src string) string {
	t.Helper()
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	if ctx.Execute(src, "__main__") != nil {
		t.Fatalf("expected an exception, but execution succeeded")
	}
	exc := ctx.GetCurrentException()
	if exc == nil {
		t.Fatalf("execution failed without a current exception")
	}
	return exc.Type
}

func runCase(t *testing.T, src, want string) {
	t.Helper()
	if got := mustRun(t, src); got != want {
		t.Errorf("output mismatch\nsource:\n%s\ngot:  %q\nwant: %q", src, got, want)
	}
}

// -----------------------------
// Reference scenarios
// -----------------------------

func TestPrintArithmetic(t *testing.T) {
	runCase(t, "print(1+2)\n", "3\n")
}

func TestRecursiveFactorial(t *testing.T) {
	src := `
def fact(n):
    return 1 if n <= 1 else n * fact(n-1)
print(fact(10))
`
	runCase(t, src, "3628800\n")
}

func TestTryExceptFinally(t *testing.T) {
	src := `
try:
    raise ValueError("x")
except ValueError as e:
    print(e.message if hasattr(e, "message") else e)
finally:
    print("done")
`
	runCase(t, src, "x\ndone\n")
}

func TestClosureCounter(t *testing.T) {
	src := `
def make():
    x = 0
    def inc():
        nonlocal x
        x = x + 1
        return x
    return inc
f = make()
print(f())
print(f())
print(f())
`
	runCase(t, src, "1\n2\n3\n")
}

func TestForElseBreak(t *testing.T) {
	src := `
for i in range(5):
    if i == 3: break
    print(i)
else:
    print("no-break")
print("after")
`
	runCase(t, src, "0\n1\n2\nafter\n")
}

func TestForElseNoBreak(t *testing.T) {
	src := `
for i in range(3):
    print(i)
else:
    print("no-break")
`
	runCase(t, src, "0\n1\n2\nno-break\n")
}

func TestInheritanceBaseCall(t *testing.T) {
	src := `
class A:
    def f(self): return "A"
class B(A):
    def f(self): return "B-" + A.f(self)
print(B().f())
`
	runCase(t, src, "B-A\n")
}

// -----------------------------
// Control flow
// -----------------------------

func TestIfElifElse(t *testing.T) {
	src := `
def grade(n):
    if n >= 90:
        return "A"
    elif n >= 80:
        return "B"
    else:
        return "C"
print(grade(95), grade(85), grade(10))
`
	runCase(t, src, "A B C\n")
}

func TestWhileElse(t *testing.T) {
	src := `
i = 0
while i < 3:
    i += 1
else:
    print("done", i)
`
	runCase(t, src, "done 3\n")
}

func TestContinue(t *testing.T) {
	src := `
for i in range(5):
    if i % 2 == 0:
        continue
    print(i)
`
	runCase(t, src, "1\n3\n")
}

func TestNestedLoops(t *testing.T) {
	src := `
for i in range(3):
    for j in range(3):
        if j > i:
            break
        print(i, j)
`
	runCase(t, src, "0 0\n1 0\n1 1\n2 0\n2 1\n2 2\n")
}

func TestShortCircuit(t *testing.T) {
	src := `
print(0 and 5)
print(1 and 5)
print(0 or 7)
print(3 or 7)
def boom():
    raise ValueError("should not run")
print(False and boom())
print(True or boom())
`
	runCase(t, src, "0\n5\n7\n3\nFalse\nTrue\n")
}

func TestConditionalExpression(t *testing.T) {
	src := `
x = 10
print("big" if x > 5 else "small")
print("big" if x > 50 else "small")
`
	runCase(t, src, "big\nsmall\n")
}

func TestIsOperators(t *testing.T) {
	src := `
a = None
b = [1]
c = b
print(a is None, a is not None)
print(b is c, b is [1])
`
	runCase(t, src, "True False\nTrue False\n")
}

// -----------------------------
// Finally semantics
// -----------------------------

func TestReturnThroughFinally(t *testing.T) {
	src := `
def f():
    try:
        return "try"
    finally:
        print("fin")
print(f())
`
	runCase(t, src, "fin\ntry\n")
}

func TestReturnThroughNestedFinally(t *testing.T) {
	src := `
def f():
    try:
        try:
            return 1
        finally:
            print("inner")
    finally:
        print("outer")
print(f())
`
	runCase(t, src, "inner\nouter\n1\n")
}

func TestBreakThroughFinally(t *testing.T) {
	src := `
for i in range(3):
    try:
        if i == 1:
            break
    finally:
        print("f", i)
print("done")
`
	runCase(t, src, "f 0\nf 1\ndone\n")
}

func TestExceptionThroughFinally(t *testing.T) {
	src := `
try:
    try:
        raise ValueError("boom")
    finally:
        print("fin")
except ValueError as e:
    print("caught", e)
`
	runCase(t, src, "fin\ncaught boom\n")
}

func TestFinallySupersedesReturn(t *testing.T) {
	src := `
def f():
    try:
        return "first"
    finally:
        return "second"
print(f())
`
	runCase(t, src, "second\n")
}

func TestLoopInsideFinallyKeepsException(t *testing.T) {
	src := `
try:
    try:
        raise ValueError("kept")
    finally:
        for i in range(2):
            print("loop", i)
except ValueError as e:
    print("caught", e)
`
	runCase(t, src, "loop 0\nloop 1\ncaught kept\n")
}

func TestExceptionInHandlerRunsFinally(t *testing.T) {
	src := `
try:
    try:
        raise ValueError("first")
    except ValueError:
        raise TypeError("second")
    finally:
        print("fin")
except TypeError as e:
    print("caught", e)
`
	runCase(t, src, "fin\ncaught second\n")
}

func TestExceptChain(t *testing.T) {
	src := `
def classify(exc):
    try:
        raise exc
    except ZeroDivisionError:
        return "zero"
    except ArithmeticError:
        return "arith"
    except:
        return "other"
print(classify(ZeroDivisionError("d")))
print(classify(OverflowError("o")))
print(classify(ValueError("v")))
`
	runCase(t, src, "zero\narith\nother\n")
}

func TestUnmatchedExceptPropagates(t *testing.T) {
	if got := mustFail(t, `
try:
    raise ValueError("nope")
except TypeError:
    print("wrong")
`); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
}

// -----------------------------
// Functions & calls
// -----------------------------

func TestDefaultsVarargsKwargs(t *testing.T) {
	src := `
def f(a, b=2, *rest, **kw):
    return (a, b, rest, kw)
print(f(1))
print(f(1, 3))
print(f(1, 2, 3, 4))
print(f(1, b=9))
print(f(1, 2, x=5))
`
	want := "(1, 2, (), {})\n" +
		"(1, 3, (), {})\n" +
		"(1, 2, (3, 4), {})\n" +
		"(1, 9, (), {})\n" +
		"(1, 2, (), {'x': 5})\n"
	runCase(t, src, want)
}

func TestCallUnpacking(t *testing.T) {
	src := `
def g(a, b, c):
    return a + b + c
args = [1, 2, 3]
print(g(*args))
print(g(**{"a": 10, "b": 20, "c": 30}))
print(g(1, *[2, 3]))
`
	runCase(t, src, "6\n60\n6\n")
}

func TestDefaultEvaluatedOnce(t *testing.T) {
	src := `
def f(x, acc=[]):
    acc.append(x)
    return acc
f(1)
print(f(2))
`
	runCase(t, src, "[1, 2]\n")
}

func TestLambda(t *testing.T) {
	src := `
add = lambda a, b: a + b
print(add(2, 3))
apply = lambda fn, v: fn(v)
print(apply(lambda x: x * x, 6))
`
	runCase(t, src, "5\n36\n")
}

func TestMissingArgument(t *testing.T) {
	if got := mustFail(t, "def f(a, b): return a\nf(1)\n"); got != "TypeError" {
		t.Errorf("expected TypeError, got %s", got)
	}
}

func TestUnexpectedKeyword(t *testing.T) {
	if got := mustFail(t, "def f(a): return a\nf(1, zz=2)\n"); got != "TypeError" {
		t.Errorf("expected TypeError, got %s", got)
	}
}

func TestGlobalDeclaration(t *testing.T) {
	src := `
counter = 1
def bump():
    global counter
    counter = counter + 10
bump()
print(counter)
`
	runCase(t, src, "11\n")
}

func TestSharedCellBetweenClosures(t *testing.T) {
	src := `
def pair():
    n = 0
    def inc():
        nonlocal n
        n = n + 1
    def get():
        return n
    return inc, get
inc, get = pair()
inc()
inc()
print(get())
`
	runCase(t, src, "2\n")
}

// -----------------------------
// Assignment
// -----------------------------

func TestPackAssignment(t *testing.T) {
	src := `
a, b = 1, 2
print(a, b)
x, y, z = [10, 20, 30]
print(x, y, z)
first, *mid, last = [1, 2, 3, 4, 5]
print(first, mid, last)
`
	runCase(t, src, "1 2\n10 20 30\n1 [2, 3, 4] 5\n")
}

func TestPackAssignmentErrors(t *testing.T) {
	if got := mustFail(t, "a, b = [1]\n"); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
	if got := mustFail(t, "a, b = [1, 2, 3]\n"); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
}

func TestCompoundAssignment(t *testing.T) {
	src := `
x = 5
x += 3
x *= 2
print(x)
xs = [1, 2]
xs += [3]
print(xs)
d = {"n": 1}
d["n"] += 5
print(d["n"])
`
	runCase(t, src, "16\n[1, 2, 3]\n6\n")
}

func TestCompoundIndexEvaluatesTargetOnce(t *testing.T) {
	src := `
count = 0
data = [10]
def pick():
    global count
    count = count + 1
    return data
pick()[0] += 5
print(data[0], count)
`
	runCase(t, src, "15 1\n")
}

func TestCompoundMemberEvaluatesTargetOnce(t *testing.T) {
	src := `
class Box:
    def __init__(self):
        self.v = 1
count = 0
b = Box()
def pick():
    global count
    count = count + 1
    return b
pick().v += 9
print(b.v, count)
`
	runCase(t, src, "10 1\n")
}

func TestIndexAndMemberAssignment(t *testing.T) {
	src := `
xs = [1, 2, 3]
xs[1] = 20
xs[-1] = 30
print(xs)
class C:
    pass
c = C()
c.name = "talon"
print(c.name)
`
	runCase(t, src, "[1, 20, 30]\ntalon\n")
}

// -----------------------------
// Classes
// -----------------------------

func TestDiamondLookupIsDepthFirst(t *testing.T) {
	src := `
class A:
    def who(self): return "A"
class B(A):
    pass
class C(A):
    def who(self): return "C"
class D(B, C):
    pass
print(D().who())
print(isinstance(D(), A), isinstance(D(), C), isinstance(D(), B))
`
	runCase(t, src, "A\nTrue True True\n")
}

func TestDefaultInitForwardsToBase(t *testing.T) {
	src := `
class P:
    def __init__(self, x):
        self.x = x
class Q(P):
    pass
q = Q(7)
print(q.x)
`
	runCase(t, src, "7\n")
}

func TestUserDunderMethods(t *testing.T) {
	src := `
class Vec:
    def __init__(self, x, y):
        self.x = x
        self.y = y
    def __add__(self, other):
        return Vec(self.x + other.x, self.y + other.y)
    def __eq__(self, other):
        return self.x == other.x and self.y == other.y
    def __str__(self):
        return "Vec(" + str(self.x) + ", " + str(self.y) + ")"
v = Vec(1, 2) + Vec(3, 4)
print(v)
print(v == Vec(4, 6), v == Vec(0, 0))
`
	runCase(t, src, "Vec(4, 6)\nTrue False\n")
}

func TestUserIterator(t *testing.T) {
	src := `
class Countdown:
    def __init__(self, n):
        self.n = n
    def __iter__(self):
        return self
    def __next__(self):
        if self.n <= 0:
            raise StopIteration()
        self.n = self.n - 1
        return self.n + 1
print([x for x in Countdown(3)])
`
	runCase(t, src, "[3, 2, 1]\n")
}

func TestInstanceAttributesAreIndependent(t *testing.T) {
	src := `
class C:
    def __init__(self):
        self.v = 0
a = C()
b = C()
a.v = 5
print(a.v, b.v)
`
	runCase(t, src, "5 0\n")
}

func TestCallableInstance(t *testing.T) {
	src := `
class Adder:
    def __init__(self, n):
        self.n = n
    def __call__(self, x):
        return self.n + x
add5 = Adder(5)
print(add5(3))
`
	runCase(t, src, "8\n")
}

// -----------------------------
// Iteration & comprehensions
// -----------------------------

func TestListComprehension(t *testing.T) {
	src := `
print([x * x for x in range(5)])
print([x for x in range(10) if x % 3 == 0])
print([c for c in "abc"])
`
	runCase(t, src, "[0, 1, 4, 9, 16]\n[0, 3, 6, 9]\n['a', 'b', 'c']\n")
}

func TestBuiltinIterables(t *testing.T) {
	src := `
total = 0
for v in (1, 2, 3):
    total += v
for k in {"a": 1, "b": 2}:
    print(k)
for ch in "hi":
    print(ch)
print(total)
`
	runCase(t, src, "a\nb\nh\ni\n6\n")
}

func TestEnumerateZipMapFilter(t *testing.T) {
	src := `
for i, v in enumerate(["a", "b"]):
    print(i, v)
print([p for p in zip([1, 2], ["x", "y"])])
print(list(map(lambda x: x + 1, [1, 2, 3])))
print(list(filter(lambda x: x % 2 == 0, range(6))))
`
	runCase(t, src, "0 a\n1 b\n[(1, 'x'), (2, 'y')]\n[2, 3, 4]\n[0, 2, 4]\n")
}

func TestRangeForms(t *testing.T) {
	src := `
print(list(range(4)))
print(list(range(2, 5)))
print(list(range(10, 0, -3)))
print(len(range(10)))
`
	runCase(t, src, "[0, 1, 2, 3]\n[2, 3, 4]\n[10, 7, 4, 1]\n10\n")
}

// -----------------------------
// Errors & limits
// -----------------------------

func TestNameError(t *testing.T) {
	if got := mustFail(t, "print(nosuch)\n"); got != "NameError" {
		t.Errorf("expected NameError, got %s", got)
	}
}

func TestZeroDivision(t *testing.T) {
	for _, src := range []string{"1 / 0\n", "1 // 0\n", "1 % 0\n", "1.5 / 0\n", "1.5 // 0.0\n"} {
		if got := mustFail(t, src); got != "ZeroDivisionError" {
			t.Errorf("%q: expected ZeroDivisionError, got %s", src, got)
		}
	}
}

func TestIndexErrors(t *testing.T) {
	if got := mustFail(t, "[1, 2][5]\n"); got != "IndexError" {
		t.Errorf("expected IndexError, got %s", got)
	}
	if got := mustFail(t, `"abc"[10]`+"\n"); got != "IndexError" {
		t.Errorf("expected IndexError, got %s", got)
	}
}

func TestKeyError(t *testing.T) {
	if got := mustFail(t, `{"a": 1}["b"]`+"\n"); got != "KeyError" {
		t.Errorf("expected KeyError, got %s", got)
	}
}

func TestSliceStepZero(t *testing.T) {
	if got := mustFail(t, "[1, 2, 3][::0]\n"); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
}

func TestNegativeShift(t *testing.T) {
	if got := mustFail(t, "1 << -2\n"); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
}

func TestRecursionLimit(t *testing.T) {
	if got := mustFail(t, "def f():\n    return f()\nf()\n"); got != "RecursionError" {
		t.Errorf("expected RecursionError, got %s", got)
	}
}

func TestRaiseNonException(t *testing.T) {
	if got := mustFail(t, "raise 42\n"); got != "TypeError" {
		t.Errorf("expected TypeError, got %s", got)
	}
}

func TestSyntaxErrorReported(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	if ctx.Execute("def f(:\n", "__main__") != nil {
		t.Fatal("expected a syntax error")
	}
	exc := ctx.GetCurrentException()
	if exc == nil || exc.Type != "SyntaxError" {
		t.Fatalf("expected SyntaxError, got %v", exc)
	}
}

func TestMemoryLimit(t *testing.T) {
	var out strings.Builder
	cfg := DefaultConfig()
	cfg.Print = func(text string, _ any) { out.WriteString(text) }
	cfg.MaxAlloc = 20000
	ctx := NewContext(&cfg)
	if ctx == nil {
		t.Fatal("NewContext returned nil")
	}
	defer ctx.Destroy()
	if ctx.Execute(`
xs = []
while True:
    xs.append("pad")
`, "__main__") != nil {
		t.Fatal("expected MemoryError")
	}
	exc := ctx.GetCurrentException()
	if exc == nil || exc.Type != "MemoryError" {
		t.Fatalf("expected MemoryError, got %v", exc)
	}
}

// -----------------------------
// Expression evaluation & modules
// -----------------------------

func TestExecuteExpression(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	v := ctx.ExecuteExpression("2 ** 10", "<expr>")
	if v == nil {
		t.Fatalf("evaluation failed: %s", ctx.GetErrorMessage())
	}
	if !IsInt(v) || GetInt(v) != 1024 {
		t.Errorf("expected 1024, got %v", v)
	}
}

func TestMathModule(t *testing.T) {
	src := `
import math
print(math.floor(3.7), math.ceil(3.2))
print(math.sqrt(16.0))
`
	runCase(t, src, "3 4\n4.0\n")
}

func TestImportFromAndAlias(t *testing.T) {
	src := `
from math import sqrt
import math as m
print(sqrt(9.0), m.floor(1.5))
`
	runCase(t, src, "3.0 1\n")
}

func TestMissingModule(t *testing.T) {
	if got := mustFail(t, "import definitely_not_a_module\n"); got != "ImportError" {
		t.Errorf("expected ImportError, got %s", got)
	}
}

func TestSysModule(t *testing.T) {
	var out strings.Builder
	cfg := DefaultConfig()
	cfg.Print = func(text string, _ any) { out.WriteString(text) }
	cfg.Argv = []string{"prog", "arg1"}
	ctx := NewContext(&cfg)
	if ctx == nil {
		t.Fatal("NewContext returned nil")
	}
	defer ctx.Destroy()
	if ctx.Execute("import sys\nprint(sys.argv)\n", "__main__") == nil {
		t.Fatalf("execution failed:\n%s", ctx.GetErrorMessage())
	}
	if got := out.String(); got != "['prog', 'arg1']\n" {
		t.Errorf("unexpected argv output: %q", got)
	}
}

func TestOSModuleGated(t *testing.T) {
	if got := mustFail(t, "import os\n"); got != "ImportError" {
		t.Errorf("expected ImportError without OS access, got %s", got)
	}
}
