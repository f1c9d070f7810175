// builtin_functions.go — the __builtins__ module: native builtin functions,
// then a prelude written in the Language itself.
//
// Native registration covers the functions that need host access (print,
// isinstance, len, attribute reflection). Everything that can be expressed
// in the Language lives in the prelude: the exception hierarchy, range and
// slice, the iterator classes the container types hand out, and the small
// collection helpers. After the prelude runs, the identity-sensitive
// classes are pulled back into the context's builtin slots.

package talon

import "strings"

// importBuiltins is the registered loader for the __builtins__ module.
func importBuiltins(ctx *Context) bool {
	if !registerBuiltinTypes(ctx) {
		return false
	}

	b := &ctx.builtins
	if ctx.RegisterFunction("print", builtinPrint) == nil {
		return false
	}
	if b.isinstance = ctx.RegisterFunction("isinstance", builtinIsinstance); b.isinstance == nil {
		return false
	}
	if b.lenFn = ctx.RegisterFunction("len", builtinLen); b.lenFn == nil {
		return false
	}
	if b.reprFn = ctx.RegisterFunction("repr", builtinRepr); b.reprFn == nil {
		return false
	}
	for name, fn := range map[string]NativeFunc{
		"hash":             builtinHash,
		"hasattr":          builtinHasattr,
		"getattr":          builtinGetattr,
		"setattr":          builtinSetattr,
		"ord":              builtinOrd,
		"chr":              builtinChr,
		"__set_class_attr": builtinSetClassAttr,
		"__set_to_list":    builtinSetToList,
	} {
		if ctx.RegisterFunction(name, fn) == nil {
			return false
		}
	}

	fn := compileInModule(ctx, preludeSource, "__builtins__", "__builtins__", false)
	if fn == nil {
		return false
	}
	if ctx.Call(fn, nil, nil) == nil {
		return false
	}

	fetch := func(name string) *Obj { return ctx.GetGlobal(name) }
	if b.slice = fetch("__Slice"); b.slice == nil {
		return false
	}
	for _, slot := range []struct {
		name string
		dst  **Obj
	}{
		{"BaseException", &b.baseException},
		{"SystemExit", &b.systemExit},
		{"Exception", &b.exception},
		{"StopIteration", &b.stopIteration},
		{"ArithmeticError", &b.arithmeticError},
		{"OverflowError", &b.overflowError},
		{"ZeroDivisionError", &b.zeroDivisionError},
		{"AttributeError", &b.attributeError},
		{"ImportError", &b.importError},
		{"LookupError", &b.lookupError},
		{"IndexError", &b.indexError},
		{"KeyError", &b.keyError},
		{"MemoryError", &b.memoryError},
		{"NameError", &b.nameError},
		{"OSError", &b.osError},
		{"IsADirectoryError", &b.isADirectoryError},
		{"RuntimeError", &b.runtimeError},
		{"NotImplementedError", &b.notImplementedError},
		{"RecursionError", &b.recursionError},
		{"SyntaxError", &b.syntaxError},
		{"TypeError", &b.typeError},
		{"ValueError", &b.valueError},
	} {
		if *slot.dst = fetch(slot.name); *slot.dst == nil {
			return false
		}
	}
	return true
}

// -----------------------------
// Native builtin functions
// -----------------------------

func builtinPrint(ctx *Context, argv []*Obj) *Obj {
	var sb strings.Builder
	for i, arg := range argv {
		s := ctx.Str(arg)
		if s == nil {
			return nil
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s.s)
	}
	sb.WriteByte('\n')
	ctx.Print(sb.String())
	return ctx.None()
}

func builtinIsinstance(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	classes := []*Obj{argv[1]}
	if argv[1].isTuple() {
		classes = argv[1].v
	}
	for _, cls := range classes {
		if !cls.isClass() {
			ctx.RaiseException(ExcTypeError, "isinstance() arg 2 must be a class or tuple of classes")
			return nil
		}
		if ctx.IsInstance(argv[0], cls) {
			return ctx.NewBool(true)
		}
	}
	return ctx.NewBool(false)
}

// builtinLen delegates to __len__ and requires an int result.
func builtinLen(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	res := ctx.CallMethod(argv[0], "__len__", nil, nil)
	if res == nil {
		return nil
	}
	if !res.isInt() {
		ctx.RaiseException(ExcTypeError, "__len__() returned a non int type")
		return nil
	}
	return res
}

func builtinRepr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	return ctx.Repr(argv[0])
}

func builtinHash(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	h, ok := objHash(argv[0])
	if !ok {
		ctx.raiseUnhashable(argv[0])
		return nil
	}
	return ctx.NewInt(int64(h))
}

func builtinHasattr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	v, ok := ctx.getAttribute(argv[0], argv[1].s, "", nil)
	if !ok {
		return nil
	}
	return ctx.NewBool(v != nil)
}

func builtinGetattr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 2, 3) || !expectStr(ctx, argv, 1) {
		return nil
	}
	v, ok := ctx.getAttribute(argv[0], argv[1].s, "", nil)
	if !ok {
		return nil
	}
	if v != nil {
		return v
	}
	if len(argv) == 3 {
		return argv[2]
	}
	ctx.RaiseAttributeError(argv[0], argv[1].s)
	return nil
}

func builtinSetattr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectStr(ctx, argv, 1) {
		return nil
	}
	argv[0].attrs.Set(argv[1].s, argv[2])
	return ctx.None()
}

func builtinOrd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
		return nil
	}
	if len(argv[0].s) != 1 {
		ctx.RaiseException(ExcTypeError, "ord() expected a character")
		return nil
	}
	return ctx.NewInt(int64(argv[0].s[0]))
}

func builtinChr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectInt(ctx, argv, 0) {
		return nil
	}
	if argv[0].i < 0 || argv[0].i > 255 {
		ctx.RaiseException(ExcValueError, "chr() arg not in range(256)")
		return nil
	}
	return ctx.NewString(string([]byte{byte(argv[0].i)}))
}

// builtinSetClassAttr lets the prelude retrofit methods onto the builtin
// classes (the __iter__ bindings). Not part of the user-visible surface.
func builtinSetClassAttr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectStr(ctx, argv, 1) {
		return nil
	}
	if !argv[0].isClass() || !argv[2].isFunc() {
		ctx.RaiseException(ExcTypeError, "__set_class_attr expects a class, a name, and a function")
		return nil
	}
	argv[2].fn.isMethod = true
	argv[0].cls.instanceAttributes.Set(argv[1].s, argv[2])
	return ctx.None()
}

func builtinSetToList(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectSet(ctx, argv, 0) {
		return nil
	}
	var elems []*Obj
	argv[0].set.ForEach(func(k *Obj) bool {
		elems = append(elems, k)
		return true
	})
	return ctx.NewList(elems)
}

// -----------------------------
// The prelude
// -----------------------------

const preludeSource = `
class BaseException:
    def __init__(self, message=""):
        self._message = message
    def __str__(self):
        return self._message

class SystemExit(BaseException):
    pass

class Exception(BaseException):
    pass

class StopIteration(Exception):
    pass

class ArithmeticError(Exception):
    pass

class OverflowError(ArithmeticError):
    pass

class ZeroDivisionError(ArithmeticError):
    pass

class AttributeError(Exception):
    pass

class ImportError(Exception):
    pass

class LookupError(Exception):
    pass

class IndexError(LookupError):
    pass

class KeyError(LookupError):
    pass

class MemoryError(Exception):
    pass

class NameError(Exception):
    pass

class OSError(Exception):
    pass

class IsADirectoryError(OSError):
    pass

class RuntimeError(Exception):
    pass

class NotImplementedError(RuntimeError):
    pass

class RecursionError(RuntimeError):
    pass

class SyntaxError(Exception):
    pass

class TypeError(Exception):
    pass

class ValueError(Exception):
    pass

class __Slice:
    def __init__(self, start, stop, step):
        self.start = start
        self.stop = stop
        self.step = step

def slice(start, stop=None, step=None):
    if stop is None and step is None:
        return __Slice(None, start, None)
    return __Slice(start, stop, step)

class __RangeIter:
    def __init__(self, cur, stop, step):
        self.cur = cur
        self.stop = stop
        self.step = step
    def __iter__(self):
        return self
    def __next__(self):
        if self.step > 0:
            if self.cur >= self.stop:
                raise StopIteration()
        else:
            if self.cur <= self.stop:
                raise StopIteration()
        value = self.cur
        self.cur = self.cur + self.step
        return value

class range:
    def __init__(self, start, stop=None, step=None):
        if stop is None:
            self.start = 0
            self.stop = start
            self.step = 1
        elif step is None:
            self.start = start
            self.stop = stop
            self.step = 1
        else:
            if step == 0:
                raise ValueError("range() arg 3 must not be zero")
            self.start = start
            self.stop = stop
            self.step = step
    def __iter__(self):
        return __RangeIter(self.start, self.stop, self.step)
    def __len__(self):
        span = self.stop - self.start
        if self.step > 0:
            if span <= 0:
                return 0
            return (span + self.step - 1) // self.step
        if span >= 0:
            return 0
        return (span + self.step + 1) // self.step

class __ListIter:
    def __init__(self, items):
        self.items = items
        self.i = 0
    def __iter__(self):
        return self
    def __next__(self):
        if self.i >= len(self.items):
            raise StopIteration()
        value = self.items[self.i]
        self.i = self.i + 1
        return value

class enumerate:
    def __init__(self, iterable, start=0):
        self.it = iterable.__iter__()
        self.i = start
    def __iter__(self):
        return self
    def __next__(self):
        value = self.it.__next__()
        index = self.i
        self.i = self.i + 1
        return (index, value)

class zip:
    def __init__(self, *iterables):
        self.iters = [x.__iter__() for x in iterables]
    def __iter__(self):
        return self
    def __next__(self):
        if len(self.iters) == 0:
            raise StopIteration()
        result = []
        for it in self.iters:
            result.append(it.__next__())
        return tuple(result)

class map:
    def __init__(self, fn, iterable):
        self.fn = fn
        self.it = iterable.__iter__()
    def __iter__(self):
        return self
    def __next__(self):
        return self.fn(self.it.__next__())

class filter:
    def __init__(self, fn, iterable):
        self.fn = fn
        self.it = iterable.__iter__()
    def __iter__(self):
        return self
    def __next__(self):
        while True:
            value = self.it.__next__()
            if self.fn(value):
                return value

def abs(x):
    return -x if x < 0 else x

def min(*args):
    if len(args) == 1:
        items = list(args[0])
    else:
        items = list(args)
    if len(items) == 0:
        raise ValueError("min() arg is an empty sequence")
    best = items[0]
    for x in items:
        if x < best:
            best = x
    return best

def max(*args):
    if len(args) == 1:
        items = list(args[0])
    else:
        items = list(args)
    if len(items) == 0:
        raise ValueError("max() arg is an empty sequence")
    best = items[0]
    for x in items:
        if x > best:
            best = x
    return best

def sum(iterable, start=0):
    total = start
    for x in iterable:
        total = total + x
    return total

def any(iterable):
    for x in iterable:
        if x:
            return True
    return False

def all(iterable):
    for x in iterable:
        if not x:
            return False
    return True

def sorted(iterable):
    items = list(iterable)
    i = 1
    while i < len(items):
        j = i
        while j > 0 and items[j] < items[j - 1]:
            swap = items[j]
            items[j] = items[j - 1]
            items[j - 1] = swap
            j = j - 1
        i = i + 1
    return items

def reversed(sequence):
    items = list(sequence)
    items.reverse()
    return items

__set_class_attr(list, "__iter__", lambda self: __ListIter(self))
__set_class_attr(tuple, "__iter__", lambda self: __ListIter(self))
__set_class_attr(str, "__iter__", lambda self: __ListIter(self))
__set_class_attr(dict, "__iter__", lambda self: __ListIter(self.keys()))
__set_class_attr(set, "__iter__", lambda self: __ListIter(__set_to_list(self)))
`
