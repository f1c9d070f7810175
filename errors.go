// errors.go — raising, inspecting, and rendering exceptions.
//
// Every fallible operation returns the no-value sentinel (a nil *Obj) and
// sets the current exception on the context. The exception classes
// themselves are defined in the Language prelude (builtin_functions.go);
// this file maps the host-facing kind enum onto those classes, provides the
// convenience raisers, and renders tracebacks.

package talon

import (
	"fmt"
	"strings"
)

// ExcKind selects a standard exception class for RaiseException.
type ExcKind int

const (
	ExcBaseException ExcKind = iota
	ExcSystemExit
	ExcException
	ExcStopIteration
	ExcArithmeticError
	ExcOverflowError
	ExcZeroDivisionError
	ExcAttributeError
	ExcImportError
	ExcLookupError
	ExcIndexError
	ExcKeyError
	ExcMemoryError
	ExcNameError
	ExcOSError
	ExcIsADirectoryError
	ExcRuntimeError
	ExcNotImplementedError
	ExcRecursionError
	ExcSyntaxError
	ExcTypeError
	ExcValueError
)

func (ctx *Context) exceptionClass(kind ExcKind) *Obj {
	b := &ctx.builtins
	switch kind {
	case ExcBaseException:
		return b.baseException
	case ExcSystemExit:
		return b.systemExit
	case ExcException:
		return b.exception
	case ExcStopIteration:
		return b.stopIteration
	case ExcArithmeticError:
		return b.arithmeticError
	case ExcOverflowError:
		return b.overflowError
	case ExcZeroDivisionError:
		return b.zeroDivisionError
	case ExcAttributeError:
		return b.attributeError
	case ExcImportError:
		return b.importError
	case ExcLookupError:
		return b.lookupError
	case ExcIndexError:
		return b.indexError
	case ExcKeyError:
		return b.keyError
	case ExcMemoryError:
		return b.memoryError
	case ExcNameError:
		return b.nameError
	case ExcOSError:
		return b.osError
	case ExcIsADirectoryError:
		return b.isADirectoryError
	case ExcRuntimeError:
		return b.runtimeError
	case ExcNotImplementedError:
		return b.notImplementedError
	case ExcRecursionError:
		return b.recursionError
	case ExcSyntaxError:
		return b.syntaxError
	case ExcTypeError:
		return b.typeError
	default:
		return b.valueError
	}
}

// RaiseException instantiates the standard exception class for kind with
// the given message and sets it as the current exception.
func (ctx *Context) RaiseException(kind ExcKind, message string) {
	ctx.RaiseExceptionClass(ctx.exceptionClass(kind), message)
}

// RaiseExceptionClass instantiates an exception class with a message and
// raises the instance.
func (ctx *Context) RaiseExceptionClass(class *Obj, message string) {
	if class == nil {
		return
	}
	ctx.ProtectObject(class)
	defer ctx.UnprotectObject(class)

	// Constructing the exception may itself call back into the
	// interpreter; suspend the recursion cap so the raise can finish.
	wasRaising := ctx.raisingError
	ctx.raisingError = true
	defer func() { ctx.raisingError = wasRaising }()

	msg := ctx.NewString(message)
	if msg == nil {
		return
	}
	if instance := ctx.Call(class, []*Obj{msg}, nil); instance != nil {
		ctx.RaiseExceptionObject(instance)
	}
	// On failure the failed construction already set an exception.
}

// RaiseExceptionObject sets an exception instance as the current exception
// and snapshots the trace stack into it.
func (ctx *Context) RaiseExceptionObject(exception *Obj) {
	if ctx.builtins.baseException != nil &&
		!ctx.IsInstance(exception, ctx.builtins.baseException) {
		ctx.RaiseException(ExcTypeError, "exceptions must derive from BaseException")
		return
	}
	ctx.currentException = exception
	ctx.exceptionTrace = append([]TraceFrame(nil), ctx.currentTrace...)
}

// GetCurrentException returns the pending exception, or nil.
func (ctx *Context) GetCurrentException() *Obj { return ctx.currentException }

// ClearCurrentException consumes the pending exception.
func (ctx *Context) ClearCurrentException() {
	ctx.currentException = nil
	ctx.exceptionTrace = nil
	ctx.traceMessage = ""
}

// -----------------------------
// Convenience raisers
// -----------------------------

// RaiseArgumentCountError raises TypeError for a call arity mismatch;
// expected may be -1 when no single count is right.
func (ctx *Context) RaiseArgumentCountError(given, expected int) {
	var msg string
	if expected != -1 {
		plural := " were given"
		if given == 1 {
			plural = " was given"
		}
		msg = fmt.Sprintf("Function takes %d argument(s) but %d%s", expected, given, plural)
	} else {
		msg = fmt.Sprintf("function does not take %d argument(s)", given)
	}
	ctx.RaiseException(ExcTypeError, msg)
}

// RaiseArgumentTypeError raises TypeError naming the 1-based argument.
func (ctx *Context) RaiseArgumentTypeError(argIndex int, expected string) {
	ctx.RaiseException(ExcTypeError,
		fmt.Sprintf("Argument %d Expected type %s", argIndex+1, expected))
}

// RaiseAttributeError raises AttributeError for a missing attribute.
func (ctx *Context) RaiseAttributeError(obj *Obj, attribute string) {
	ctx.RaiseException(ExcAttributeError,
		fmt.Sprintf("'%s' object has no attribute '%s'", typeName(obj.Type), attribute))
}

// RaiseZeroDivisionError raises the standard division-by-zero error.
func (ctx *Context) RaiseZeroDivisionError() {
	ctx.RaiseException(ExcZeroDivisionError, "division by zero")
}

// RaiseIndexError raises the standard out-of-range error.
func (ctx *Context) RaiseIndexError() {
	ctx.RaiseException(ExcIndexError, "index out of range")
}

// RaiseKeyError raises KeyError rendering the missing key when given.
func (ctx *Context) RaiseKeyError(key *Obj) {
	if key == nil {
		ctx.RaiseException(ExcKeyError, "")
		return
	}
	s := "<exception str() failed>"
	if r := ctx.Repr(key); r != nil {
		s = r.s
	}
	ctx.RaiseException(ExcKeyError, s)
}

// RaiseNameError raises NameError for an unbound name.
func (ctx *Context) RaiseNameError(name string) {
	ctx.RaiseException(ExcNameError,
		fmt.Sprintf("The name '%s' is not defined", name))
}

func (ctx *Context) raiseUnhashable(key *Obj) {
	ctx.RaiseException(ExcTypeError,
		fmt.Sprintf("unhashable type: '%s'", typeName(key.Type)))
}

// raiseMemoryError raises MemoryError. Allocation of the exception itself
// runs with the cap suspended so the raise cannot recurse.
func raiseMemoryError(ctx *Context) {
	if ctx.raisingOOM {
		return
	}
	ctx.raisingOOM = true
	defer func() { ctx.raisingOOM = false }()
	ctx.RaiseException(ExcMemoryError, "Out of memory")
}

// -----------------------------
// Traceback rendering
// -----------------------------

// GetErrorMessage renders the pending exception as a traceback:
//
//	Traceback (most recent call last):
//	  Module __main__, Line 3, Function f()
//	    raise ValueError("x")
//	ValueError: x
//
// Returns "Ok" when no exception is pending. The rendered text is cached on
// the context until the exception is cleared.
func (ctx *Context) GetErrorMessage() string {
	if ctx.currentException == nil {
		ctx.traceMessage = "Ok"
		return ctx.traceMessage
	}

	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")

	for _, frame := range ctx.exceptionTrace {
		sb.WriteString("  Module ")
		sb.WriteString(frame.Module)
		if frame.Pos.Line > 0 {
			fmt.Fprintf(&sb, ", Line %d", frame.Pos.Line)
		}
		if frame.Func != defaultFuncName && frame.Func != "" {
			fmt.Fprintf(&sb, ", Function %s()", frame.Func)
		}
		sb.WriteByte('\n')

		if frame.LineText != "" {
			lineText := strings.ReplaceAll(frame.LineText, "\t", " ")
			skip := len(lineText) - len(strings.TrimLeft(lineText, " "))
			sb.WriteString("    ")
			sb.WriteString(lineText[skip:])
			sb.WriteByte('\n')
			if frame.SyntaxError && skip <= frame.Pos.Col-1 {
				sb.WriteString(strings.Repeat(" ", frame.Pos.Col+3-skip))
				sb.WriteString("^\n")
			}
		}
	}

	sb.WriteString(typeName(ctx.currentException.Type))
	if msg, _ := ctx.getAttribute(ctx.currentException, "_message", "", nil); msg != nil {
		if msg.isStr() && msg.s != "" {
			sb.WriteString(": ")
			sb.WriteString(msg.s)
		}
	}
	sb.WriteByte('\n')

	ctx.traceMessage = sb.String()
	return ctx.traceMessage
}
