// errors_test.go — exception taxonomy and traceback rendering.

package talon

import (
	"strings"
	"testing"
)

func TestExceptionHierarchy(t *testing.T) {
	src := `
print(isinstance(IndexError("x"), LookupError))
print(isinstance(KeyError("x"), LookupError))
print(isinstance(ZeroDivisionError("x"), ArithmeticError))
print(isinstance(OverflowError("x"), ArithmeticError))
print(isinstance(RecursionError("x"), RuntimeError))
print(isinstance(NotImplementedError("x"), RuntimeError))
print(isinstance(IsADirectoryError("x"), OSError))
print(isinstance(ValueError("x"), Exception))
print(isinstance(Exception("x"), BaseException))
print(isinstance(SystemExit("x"), BaseException))
print(isinstance(SystemExit("x"), Exception))
print(isinstance(ValueError("x"), ArithmeticError))
`
	want := strings.Repeat("True\n", 10) + "False\n" + "False\n"
	runCase(t, src, want)
}

func TestCatchByBaseClass(t *testing.T) {
	src := `
try:
    [1][9]
except LookupError as e:
    print("lookup:", e)
`
	runCase(t, src, "lookup: index out of range\n")
}

func TestUserExceptionSubclass(t *testing.T) {
	src := `
class AppError(Exception):
    pass
try:
    raise AppError("custom failure")
except Exception as e:
    print(isinstance(e, AppError), e)
`
	runCase(t, src, "True custom failure\n")
}

func TestTracebackFormat(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	src := `def inner():
    raise ValueError("kaput")
def outer():
    inner()
outer()
`
	if ctx.Execute(src, "__main__") != nil {
		t.Fatal("expected failure")
	}
	msg := ctx.GetErrorMessage()
	for _, want := range []string{
		"Traceback (most recent call last):",
		"Module __main__",
		"Function outer()",
		"Function inner()",
		`raise ValueError("kaput")`,
		"ValueError: kaput",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("traceback missing %q:\n%s", want, msg)
		}
	}
}

func TestErrorMessageOkWhenClear(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	if msg := ctx.GetErrorMessage(); msg != "Ok" {
		t.Errorf("expected Ok, got %q", msg)
	}
}

func TestClearCurrentException(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	if ctx.Execute("raise ValueError(\"v\")\n", "__main__") != nil {
		t.Fatal("expected failure")
	}
	if ctx.GetCurrentException() == nil {
		t.Fatal("exception should be set")
	}
	ctx.ClearCurrentException()
	if ctx.GetCurrentException() != nil {
		t.Error("exception should be cleared")
	}
	if msg := ctx.GetErrorMessage(); msg != "Ok" {
		t.Errorf("expected Ok after clearing, got %q", msg)
	}
}

func TestSyntaxErrorTracebackHasCaret(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	if ctx.Execute("x = (1 +\n", "__main__") != nil {
		t.Fatal("expected a syntax error")
	}
	msg := ctx.GetErrorMessage()
	if !strings.Contains(msg, "SyntaxError") {
		t.Errorf("missing SyntaxError header:\n%s", msg)
	}
}

func TestRaiseExceptionClassFromHost(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	ctx.RaiseException(ExcKeyError, "missing")
	exc := ctx.GetCurrentException()
	if exc == nil || exc.Type != "KeyError" {
		t.Fatalf("expected KeyError, got %v", exc)
	}
	if !ctx.IsInstance(exc, ctx.builtins.lookupError) {
		t.Error("KeyError should be a LookupError instance")
	}
	ctx.ClearCurrentException()
}

func TestConvenienceRaisers(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Destroy()
	cases := []struct {
		raise func()
		want  string
	}{
		{func() { ctx.RaiseZeroDivisionError() }, "ZeroDivisionError"},
		{func() { ctx.RaiseIndexError() }, "IndexError"},
		{func() { ctx.RaiseNameError("ghost") }, "NameError"},
		{func() { ctx.RaiseKeyError(nil) }, "KeyError"},
		{func() { ctx.RaiseArgumentCountError(3, 2) }, "TypeError"},
		{func() { ctx.RaiseArgumentTypeError(0, "int") }, "TypeError"},
	}
	for _, tc := range cases {
		tc.raise()
		exc := ctx.GetCurrentException()
		if exc == nil || exc.Type != tc.want {
			t.Errorf("expected %s, got %v", tc.want, exc)
		}
		ctx.ClearCurrentException()
	}
}

func TestSystemExitPropagates(t *testing.T) {
	if got := mustFail(t, "import sys\nsys.exit(\"bye\")\n"); got != "SystemExit" {
		t.Errorf("expected SystemExit, got %s", got)
	}
}
