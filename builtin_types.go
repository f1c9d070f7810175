// builtin_types.go — native builtin classes and their methods.
//
// Each builtin type is a class object whose constructor allocates (or
// converts to) the underlying payload; the class's instance attribute
// table carries the native dunder methods that the compiler's method-call
// lowering dispatches to. Zero-argument construction yields the zero value
// of the type; one-argument construction converts through the standard
// protocols (__nonzero__, __int__, __float__, __str__, iteration). dict
// takes no arguments at all.

package talon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// -----------------------------
// Registration helpers
// -----------------------------

// createClass builds a builtin class around a native constructor. The
// wrapper stamps fresh instances with the class's instance attributes;
// conversions returning existing objects pass through untouched.
func createClass(ctx *Context, name string, ctor NativeFunc) *Obj {
	class := Alloc(ctx)
	if class == nil {
		return nil
	}
	ctx.ProtectObject(class)
	defer ctx.UnprotectObject(class)

	class.Type = typeClass
	class.cls = &Class{
		name:               name,
		instanceAttributes: newAttributeTable(),
		module:             ctx.module(),
		userdata:           nil,
	}
	class.cls.instanceAttributes.Set("__class__", class)
	class.attrs.AddParent(class.cls.instanceAttributes)
	class.cls.userdata = class
	class.cls.ctor = func(ctx *Context, argv []*Obj) *Obj {
		classObj := ctx.FunctionUserdata().(*Obj)
		instance := ctor(ctx, argv)
		if instance == nil {
			return nil
		}
		if instance.attrs.empty() {
			instance.attrs = *classObj.cls.instanceAttributes.Copy()
		}
		return instance
	}

	tostr := ctx.NewFunction(func(ctx *Context, argv []*Obj) *Obj {
		if len(argv) != 1 {
			ctx.RaiseArgumentCountError(len(argv), 1)
			return nil
		}
		return ctx.NewString("<class '" + argv[0].cls.name + "'>")
	}, nil, "__str__")
	if tostr == nil {
		return nil
	}
	tostr.fn.isMethod = true
	class.attrs.Set("__str__", tostr)

	if name != "" {
		ctx.SetGlobal(name, class)
	}
	return class
}

// registerMethod installs a native method on a class.
func registerMethod(ctx *Context, class *Obj, attr, prettyName string, fn NativeFunc) *Obj {
	m := ctx.NewFunction(fn, nil, prettyName)
	if m == nil {
		return nil
	}
	m.fn.isMethod = true
	class.cls.instanceAttributes.Set(attr, m)
	return m
}

// -----------------------------
// Argument checking
// -----------------------------

func expectArgCount(ctx *Context, argv []*Obj, n int) bool {
	if len(argv) != n {
		ctx.RaiseArgumentCountError(len(argv), n)
		return false
	}
	return true
}

func expectArgBetween(ctx *Context, argv []*Obj, min, max int) bool {
	if len(argv) < min || len(argv) > max {
		ctx.RaiseArgumentCountError(len(argv), -1)
		return false
	}
	return true
}

func expectType(ctx *Context, argv []*Obj, i int, check func(*Obj) bool, expected string) bool {
	if !check(argv[i]) {
		ctx.RaiseException(ExcTypeError, fmt.Sprintf(
			"Argument %d expected type %s but got %s", i+1, expected, typeName(argv[i].Type)))
		return false
	}
	return true
}

func expectInt(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isInt, "int")
}

func expectNumber(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isNumber, "int or float")
}

func expectStr(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isStr, "str")
}

func expectList(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isList, "list")
}

func expectDict(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isDict, "dict")
}

func expectSet(ctx *Context, argv []*Obj, i int) bool {
	return expectType(ctx, argv, i, (*Obj).isSet, "set")
}

// checkCollectionSize enforces the configured container element cap.
func checkCollectionSize(ctx *Context, size int64) bool {
	if ctx.config.MaxCollectionSize > 0 && size > int64(ctx.config.MaxCollectionSize) {
		ctx.RaiseException(ExcMemoryError, "Collection size limit exceeded")
		return false
	}
	return true
}

// adjustIndex converts a possibly negative index; ok is false when out of
// range.
func adjustIndex(index int64, size int) (int, bool) {
	if index < 0 {
		index += int64(size)
	}
	if index < 0 || index >= int64(size) {
		return 0, false
	}
	return int(index), true
}

// -----------------------------
// Stringification
// -----------------------------

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// objToString renders a value the way str() does, recursing structurally
// through containers with a seen-set so cycles print as [...] / {...}.
func objToString(ctx *Context, obj *Obj, seen map[*Obj]bool, quoted bool) (string, bool) {
	switch obj.Type {
	case typeNone:
		return "None", true
	case typeBool:
		if obj.b {
			return "True", true
		}
		return "False", true
	case typeInt:
		return strconv.FormatInt(obj.i, 10), true
	case typeFloat:
		return formatFloat(obj.f), true
	case typeStr:
		if quoted {
			return "'" + obj.s + "'", true
		}
		return obj.s, true
	case typeFunc:
		return fmt.Sprintf("<function %s>", obj.fn.prettyName), true
	case typeClass:
		return fmt.Sprintf("<class '%s'>", obj.cls.name), true
	case typeTuple, typeList:
		isTuple := obj.Type == typeTuple
		open, close := "[", "]"
		if isTuple {
			open, close = "(", ")"
		}
		if seen[obj] {
			return open + "..." + close, true
		}
		seen[obj] = true
		defer delete(seen, obj)
		parts := make([]string, 0, len(obj.v))
		for _, e := range obj.v {
			s, ok := elementToString(ctx, e, seen)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		body := strings.Join(parts, ", ")
		if isTuple && len(obj.v) == 1 {
			body += ","
		}
		return open + body + close, true
	case typeDict:
		if seen[obj] {
			return "{...}", true
		}
		seen[obj] = true
		defer delete(seen, obj)
		var parts []string
		ok := true
		obj.m.ForEach(func(k, v *Obj) bool {
			ks, kok := elementToString(ctx, k, seen)
			vs, vok := elementToString(ctx, v, seen)
			if !kok || !vok {
				ok = false
				return false
			}
			parts = append(parts, ks+": "+vs)
			return true
		})
		if !ok {
			return "", false
		}
		return "{" + strings.Join(parts, ", ") + "}", true
	case typeSet:
		if seen[obj] {
			return "{...}", true
		}
		if obj.set.Len() == 0 {
			return "set()", true
		}
		seen[obj] = true
		defer delete(seen, obj)
		var parts []string
		ok := true
		obj.set.ForEach(func(k *Obj) bool {
			s, sok := elementToString(ctx, k, seen)
			if !sok {
				ok = false
				return false
			}
			parts = append(parts, s)
			return true
		})
		if !ok {
			return "", false
		}
		return "{" + strings.Join(parts, ", ") + "}", true
	default:
		return fmt.Sprintf("<%s object at %p>", typeName(obj.Type), obj), true
	}
}

// elementToString renders a container element, preferring a user __str__
// when the element is a class instance.
func elementToString(ctx *Context, e *Obj, seen map[*Obj]bool) (string, bool) {
	switch e.Type {
	case typeNone, typeBool, typeInt, typeFloat, typeStr, typeTuple,
		typeList, typeDict, typeSet, typeFunc, typeClass:
		return objToString(ctx, e, seen, true)
	}
	s := ctx.Str(e)
	if s == nil {
		return "", false
	}
	return s.s, true
}

// -----------------------------
// Class constructors
// -----------------------------

func noneCtor(ctx *Context, argv []*Obj) *Obj {
	obj := Alloc(ctx)
	if obj != nil {
		obj.Type = typeNone
	}
	return obj
}

func boolCtor(ctx *Context, argv []*Obj) *Obj {
	switch len(argv) {
	case 0:
		obj := Alloc(ctx)
		if obj != nil {
			obj.Type = typeBool
		}
		return obj
	case 1:
		b, ok := ctx.truthy(argv[0])
		if !ok {
			return nil
		}
		return ctx.NewBool(b)
	default:
		ctx.RaiseArgumentCountError(len(argv), -1)
		return nil
	}
}

func intCtor(ctx *Context, argv []*Obj) *Obj {
	switch len(argv) {
	case 0:
		obj := Alloc(ctx)
		if obj != nil {
			obj.Type = typeInt
		}
		return obj
	case 1:
		return ctx.UnaryOp(UnOpInt, argv[0])
	default:
		ctx.RaiseArgumentCountError(len(argv), -1)
		return nil
	}
}

func floatCtor(ctx *Context, argv []*Obj) *Obj {
	switch len(argv) {
	case 0:
		obj := Alloc(ctx)
		if obj != nil {
			obj.Type = typeFloat
		}
		return obj
	case 1:
		return ctx.UnaryOp(UnOpFloat, argv[0])
	default:
		ctx.RaiseArgumentCountError(len(argv), -1)
		return nil
	}
}

func strCtor(ctx *Context, argv []*Obj) *Obj {
	switch len(argv) {
	case 0:
		obj := Alloc(ctx)
		if obj != nil {
			obj.Type = typeStr
		}
		return obj
	case 1:
		return ctx.Str(argv[0])
	default:
		ctx.RaiseArgumentCountError(len(argv), -1)
		return nil
	}
}

func tupleCtor(ctx *Context, argv []*Obj) *Obj {
	if len(argv) > 1 {
		ctx.RaiseArgumentCountError(len(argv), 1)
		return nil
	}
	obj := Alloc(ctx)
	if obj == nil {
		return nil
	}
	obj.Type = typeTuple
	if len(argv) == 1 {
		ctx.ProtectObject(obj)
		ok := ctx.Iterate(argv[0], func(v *Obj) bool {
			obj.v = append(obj.v, v)
			return true
		})
		ctx.UnprotectObject(obj)
		if !ok {
			return nil
		}
	}
	return obj
}

func listCtor(ctx *Context, argv []*Obj) *Obj {
	if len(argv) > 1 {
		ctx.RaiseArgumentCountError(len(argv), 1)
		return nil
	}
	obj := Alloc(ctx)
	if obj == nil {
		return nil
	}
	obj.Type = typeList
	if len(argv) == 1 {
		ctx.ProtectObject(obj)
		ok := ctx.Iterate(argv[0], func(v *Obj) bool {
			obj.v = append(obj.v, v)
			return true
		})
		ctx.UnprotectObject(obj)
		if !ok {
			return nil
		}
	}
	return obj
}

func dictCtor(ctx *Context, argv []*Obj) *Obj {
	if len(argv) > 0 {
		ctx.RaiseArgumentCountError(len(argv), -1)
		return nil
	}
	obj := Alloc(ctx)
	if obj == nil {
		return nil
	}
	obj.Type = typeDict
	obj.m = newDict()
	return obj
}

func setCtor(ctx *Context, argv []*Obj) *Obj {
	if len(argv) > 1 {
		ctx.RaiseArgumentCountError(len(argv), 1)
		return nil
	}
	obj := Alloc(ctx)
	if obj == nil {
		return nil
	}
	obj.Type = typeSet
	obj.set = newSet()
	if len(argv) == 1 {
		ctx.ProtectObject(obj)
		failed := false
		ok := ctx.Iterate(argv[0], func(v *Obj) bool {
			if !obj.set.Add(v) {
				ctx.raiseUnhashable(v)
				failed = true
				return false
			}
			return true
		})
		ctx.UnprotectObject(obj)
		if !ok || failed {
			return nil
		}
	}
	return obj
}

func funcCtor(ctx *Context, argv []*Obj) *Obj {
	// Not callable from user code; the shell is filled by the caller.
	obj := Alloc(ctx)
	if obj != nil {
		obj.Type = typeFunc
	}
	return obj
}

func objectCtor(ctx *Context, argv []*Obj) *Obj {
	obj := Alloc(ctx)
	if obj != nil {
		obj.Type = "object"
	}
	return obj
}

// -----------------------------
// object methods
// -----------------------------

func objectStr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	s, ok := objToString(ctx, argv[0], map[*Obj]bool{}, false)
	if !ok {
		return nil
	}
	return ctx.NewString(s)
}

func objectEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[0] == argv[1])
}

func objectNe(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	eq := ctx.BinaryOp(BinOpEq, argv[0], argv[1])
	if eq == nil {
		return nil
	}
	return ctx.NewBool(!eq.b)
}

func objectNonzero(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(true)
}

// -----------------------------
// NoneType methods
// -----------------------------

func noneNonzero(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewBool(false)
}

func noneEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[1].isNone())
}

// -----------------------------
// bool methods
// -----------------------------

func boolNonzero(ctx *Context, argv []*Obj) *Obj { return argv[0] }

func boolInt(ctx *Context, argv []*Obj) *Obj {
	if argv[0].b {
		return ctx.NewInt(1)
	}
	return ctx.NewInt(0)
}

func boolFloat(ctx *Context, argv []*Obj) *Obj {
	if argv[0].b {
		return ctx.NewFloat(1)
	}
	return ctx.NewFloat(0)
}

func boolEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[1].isBool() && argv[0].b == argv[1].b)
}

// -----------------------------
// int methods
// -----------------------------

func intNonzero(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewBool(argv[0].i != 0)
}

func intInt(ctx *Context, argv []*Obj) *Obj { return argv[0] }

func intFloat(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewFloat(float64(argv[0].i))
}

func intEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[1].isNumber() && argv[0].float() == argv[1].float())
}

func numCompare(ctx *Context, argv []*Obj, cmp func(a, b float64) bool) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 0) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(cmp(argv[0].float(), argv[1].float()))
}

func numLt(ctx *Context, argv []*Obj) *Obj {
	return numCompare(ctx, argv, func(a, b float64) bool { return a < b })
}
func numLe(ctx *Context, argv []*Obj) *Obj {
	return numCompare(ctx, argv, func(a, b float64) bool { return a <= b })
}
func numGt(ctx *Context, argv []*Obj) *Obj {
	return numCompare(ctx, argv, func(a, b float64) bool { return a > b })
}
func numGe(ctx *Context, argv []*Obj) *Obj {
	return numCompare(ctx, argv, func(a, b float64) bool { return a >= b })
}

func intPos(ctx *Context, argv []*Obj) *Obj { return argv[0] }

func intNeg(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewInt(-argv[0].i)
}

func intAdd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].isInt() {
		return ctx.NewInt(argv[0].i + argv[1].i)
	}
	return ctx.NewFloat(argv[0].float() + argv[1].float())
}

func intSub(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].isInt() {
		return ctx.NewInt(argv[0].i - argv[1].i)
	}
	return ctx.NewFloat(argv[0].float() - argv[1].float())
}

func intMul(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	switch {
	case argv[1].isStr():
		if !checkCollectionSize(ctx, argv[0].i*int64(len(argv[1].s))) {
			return nil
		}
		return ctx.NewString(strings.Repeat(argv[1].s, repeatCount(argv[0].i)))
	case argv[1].isList():
		if !checkCollectionSize(ctx, argv[0].i*int64(len(argv[1].v))) {
			return nil
		}
		return ctx.NewList(repeatElems(argv[1].v, argv[0].i))
	case argv[1].isInt():
		return ctx.NewInt(argv[0].i * argv[1].i)
	case argv[1].isNumber():
		return ctx.NewFloat(argv[0].float() * argv[1].float())
	default:
		expectNumber(ctx, argv, 1)
		return nil
	}
}

func repeatCount(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func repeatElems(elems []*Obj, n int64) []*Obj {
	out := make([]*Obj, 0, len(elems)*repeatCount(n))
	for i := int64(0); i < n; i++ {
		out = append(out, elems...)
	}
	return out
}

func numDiv(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 0) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].float() == 0 {
		ctx.RaiseZeroDivisionError()
		return nil
	}
	return ctx.NewFloat(argv[0].float() / argv[1].float())
}

func intFloorDiv(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].float() == 0 {
		ctx.RaiseZeroDivisionError()
		return nil
	}
	if argv[1].isInt() {
		a, b := argv[0].i, argv[1].i
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return ctx.NewInt(q)
	}
	return ctx.NewFloat(math.Floor(argv[0].float() / argv[1].float()))
}

func intMod(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].float() == 0 {
		ctx.RaiseZeroDivisionError()
		return nil
	}
	if argv[1].isInt() {
		m := argv[0].i % argv[1].i
		if m != 0 && (m < 0) != (argv[1].i < 0) {
			m += argv[1].i
		}
		return ctx.NewInt(m)
	}
	return ctx.NewFloat(pythonFmod(argv[0].float(), argv[1].float()))
}

func pythonFmod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func intPow(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].isInt() && argv[1].i >= 0 {
		result := int64(1)
		base := argv[0].i
		for n := argv[1].i; n > 0; n-- {
			result *= base
		}
		return ctx.NewInt(result)
	}
	return ctx.NewFloat(math.Pow(argv[0].float(), argv[1].float()))
}

func intBitAnd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(argv[0].i & argv[1].i)
}

func intBitOr(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(argv[0].i | argv[1].i)
}

func intBitXor(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(argv[0].i ^ argv[1].i)
}

func intBitNot(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(^argv[0].i)
}

func shiftAmount(ctx *Context, argv []*Obj) (int64, bool) {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return 0, false
	}
	shift := argv[1].i
	if shift < 0 {
		ctx.RaiseException(ExcValueError, "Shift cannot be negative")
		return 0, false
	}
	if shift > 64 {
		shift = 64
	}
	return shift, true
}

func intShiftL(ctx *Context, argv []*Obj) *Obj {
	shift, ok := shiftAmount(ctx, argv)
	if !ok {
		return nil
	}
	return ctx.NewInt(argv[0].i << shift)
}

func intShiftR(ctx *Context, argv []*Obj) *Obj {
	shift, ok := shiftAmount(ctx, argv)
	if !ok {
		return nil
	}
	return ctx.NewInt(argv[0].i >> shift)
}

// -----------------------------
// float methods
// -----------------------------

func floatNonzero(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewBool(argv[0].float() != 0)
}

func floatInt(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewInt(int64(argv[0].float()))
}

func floatFloat(ctx *Context, argv []*Obj) *Obj {
	if argv[0].isInt() {
		return ctx.NewFloat(float64(argv[0].i))
	}
	return argv[0]
}

func floatEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[1].isNumber() && argv[0].float() == argv[1].float())
}

func floatNeg(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewFloat(-argv[0].float())
}

func floatAdd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	return ctx.NewFloat(argv[0].float() + argv[1].float())
}

func floatSub(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	return ctx.NewFloat(argv[0].float() - argv[1].float())
}

func floatMul(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	return ctx.NewFloat(argv[0].float() * argv[1].float())
}

func floatFloorDiv(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].float() == 0 {
		ctx.RaiseZeroDivisionError()
		return nil
	}
	return ctx.NewFloat(math.Floor(argv[0].float() / argv[1].float()))
}

func floatMod(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	if argv[1].float() == 0 {
		ctx.RaiseZeroDivisionError()
		return nil
	}
	return ctx.NewFloat(pythonFmod(argv[0].float(), argv[1].float()))
}

func floatPow(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 1) {
		return nil
	}
	return ctx.NewFloat(math.Pow(argv[0].float(), argv[1].float()))
}

// -----------------------------
// str methods
// -----------------------------

func strNonzero(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewBool(argv[0].s != "")
}

func strStr(ctx *Context, argv []*Obj) *Obj { return argv[0] }

func strRepr(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewString("'" + argv[0].s + "'")
}

// strInt parses base-prefixed integer strings: 0b, 0o (or bare leading 0),
// 0x, with an optional sign.
func strInt(ctx *Context, argv []*Obj) *Obj {
	s := strings.TrimSpace(argv[0].s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	value, rest, ok := parseDigits(s, true)
	if !ok || rest != "" {
		ctx.RaiseException(ExcValueError, "Invalid integer string")
		return nil
	}
	if neg {
		return ctx.NewInt(-int64(value))
	}
	return ctx.NewInt(int64(value))
}

func strFloat(ctx *Context, argv []*Obj) *Obj {
	s := strings.TrimSpace(argv[0].s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	f, ok := parseFloatLiteral(s)
	if !ok {
		ctx.RaiseException(ExcValueError, "Invalid float string")
		return nil
	}
	if neg {
		f = -f
	}
	return ctx.NewFloat(f)
}

// parseDigits reads the integer part of a base-prefixed literal, returning
// the remainder of the string.
func parseDigits(s string, requireDigits bool) (value uint64, rest string, ok bool) {
	base := 10
	switch {
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base = 2
		s = s[2:]
	case strings.HasPrefix(s, "0o"), strings.HasPrefix(s, "0O"):
		base = 8
		s = s[2:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '7':
		base = 8
		s = s[1:]
	}
	i := 0
	for i < len(s) {
		d, dok := digitValue(s[i], base)
		if !dok {
			break
		}
		value = value*uint64(base) + uint64(d)
		i++
	}
	if requireDigits && i == 0 {
		return 0, s, false
	}
	return value, s[i:], true
}

func parseFloatLiteral(s string) (float64, bool) {
	// 0b- and 0x-prefixed floats read the fraction in their own base;
	// everything else, 0o included, goes through strconv.ParseFloat.
	if !strings.HasPrefix(s, "0b") && !strings.HasPrefix(s, "0x") &&
		!strings.HasPrefix(s, "0B") && !strings.HasPrefix(s, "0X") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	base := 2.0
	ibase := 2
	if s[1] == 'x' || s[1] == 'X' {
		base = 16
		ibase = 16
	}
	value, rest, ok := parseDigits(s, false)
	if !ok {
		return 0, false
	}
	f := float64(value)
	if rest == "" {
		return f, true
	}
	if rest[0] != '.' {
		return 0, false
	}
	rest = rest[1:]
	scale := 1 / base
	for i := 0; i < len(rest); i++ {
		d, dok := digitValue(rest[i], ibase)
		if !dok {
			return 0, false
		}
		f += float64(d) * scale
		scale /= base
	}
	return f, true
}

func strEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	return ctx.NewBool(argv[1].isStr() && argv[0].s == argv[1].s)
}

func strCompare(ctx *Context, argv []*Obj, cmp func(a, b string) bool) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(cmp(argv[0].s, argv[1].s))
}

func strLt(ctx *Context, argv []*Obj) *Obj {
	return strCompare(ctx, argv, func(a, b string) bool { return a < b })
}
func strLe(ctx *Context, argv []*Obj) *Obj {
	return strCompare(ctx, argv, func(a, b string) bool { return a <= b })
}
func strGt(ctx *Context, argv []*Obj) *Obj {
	return strCompare(ctx, argv, func(a, b string) bool { return a > b })
}
func strGe(ctx *Context, argv []*Obj) *Obj {
	return strCompare(ctx, argv, func(a, b string) bool { return a >= b })
}

func strAdd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewString(argv[0].s + argv[1].s)
}

func strMul(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return nil
	}
	if !checkCollectionSize(ctx, argv[1].i*int64(len(argv[0].s))) {
		return nil
	}
	return ctx.NewString(strings.Repeat(argv[0].s, repeatCount(argv[1].i)))
}

func strContains(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(strings.Contains(argv[0].s, argv[1].s))
}

func strLen(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewInt(int64(len(argv[0].s)))
}

func strGetItem(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	s := argv[0].s
	if argv[1].isInt() {
		i, ok := adjustIndex(argv[1].i, len(s))
		if !ok {
			ctx.RaiseIndexError()
			return nil
		}
		return ctx.NewString(s[i : i+1])
	}
	indices, ok := sliceIndices(ctx, argv[1], len(s))
	if !ok {
		return nil
	}
	var sb strings.Builder
	for _, i := range indices {
		sb.WriteByte(s[i])
	}
	return ctx.NewString(sb.String())
}

func strJoin(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	var parts []string
	ok := ctx.Iterate(argv[1], func(v *Obj) bool {
		if !v.isStr() {
			ctx.RaiseException(ExcTypeError, "join() expects an iterable of strings")
			return false
		}
		parts = append(parts, v.s)
		return true
	})
	if !ok || ctx.currentException != nil {
		return nil
	}
	return ctx.NewString(strings.Join(parts, argv[0].s))
}

func strSplit(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 1, 2) {
		return nil
	}
	var parts []string
	if len(argv) == 1 {
		parts = strings.Fields(argv[0].s)
	} else {
		if !expectStr(ctx, argv, 1) {
			return nil
		}
		parts = strings.Split(argv[0].s, argv[1].s)
	}
	elems := make([]*Obj, 0, len(parts))
	for _, p := range parts {
		s := ctx.NewString(p)
		if s == nil {
			return nil
		}
		ctx.ProtectObject(s)
		elems = append(elems, s)
	}
	defer func() {
		for _, e := range elems {
			ctx.UnprotectObject(e)
		}
	}()
	return ctx.NewList(elems)
}

func strStrip(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 1, 2) {
		return nil
	}
	cutset := " \t\r\n"
	if len(argv) == 2 {
		if !expectStr(ctx, argv, 1) {
			return nil
		}
		cutset = argv[1].s
	}
	return ctx.NewString(strings.Trim(argv[0].s, cutset))
}

func strUpper(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewString(strings.ToUpper(argv[0].s))
}

func strLower(ctx *Context, argv []*Obj) *Obj {
	return ctx.NewString(strings.ToLower(argv[0].s))
}

func strStartswith(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(strings.HasPrefix(argv[0].s, argv[1].s))
}

func strEndswith(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(strings.HasSuffix(argv[0].s, argv[1].s))
}

func strFind(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(int64(strings.Index(argv[0].s, argv[1].s)))
}

func strReplace(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectStr(ctx, argv, 1) || !expectStr(ctx, argv, 2) {
		return nil
	}
	return ctx.NewString(strings.ReplaceAll(argv[0].s, argv[1].s, argv[2].s))
}

// -----------------------------
// Slices
// -----------------------------

// sliceIndices reads a slice object's start/stop/step and produces the
// index sequence over a container of the given size, clamping bounds the
// way Python does. A zero step raises ValueError.
func sliceIndices(ctx *Context, sliceObj *Obj, size int) ([]int, bool) {
	if ctx.builtins.slice == nil || !ctx.IsInstance(sliceObj, ctx.builtins.slice) {
		ctx.RaiseException(ExcTypeError, "Index must be an int or a slice")
		return nil, false
	}
	read := func(name string) (int64, bool, bool) {
		v, _ := ctx.getAttribute(sliceObj, name, "", nil)
		if v == nil || v.isNone() {
			return 0, false, true
		}
		if !v.isInt() {
			ctx.RaiseException(ExcTypeError,
				fmt.Sprintf("slice attribute %s expected type int or NoneType", name))
			return 0, false, false
		}
		return v.i, true, true
	}

	step := int64(1)
	if v, set, ok := read("step"); !ok {
		return nil, false
	} else if set {
		if v == 0 {
			ctx.RaiseException(ExcValueError, "slice step cannot be zero")
			return nil, false
		}
		step = v
	}

	n := int64(size)
	clamp := func(v, lo, hi int64) int64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	var start, stop int64
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -1
	}
	if v, set, ok := read("start"); !ok {
		return nil, false
	} else if set {
		if v < 0 {
			v += n
		}
		if step > 0 {
			start = clamp(v, 0, n)
		} else {
			start = clamp(v, -1, n-1)
		}
	}
	if v, set, ok := read("stop"); !ok {
		return nil, false
	} else if set {
		if v < 0 {
			v += n
		}
		if step > 0 {
			stop = clamp(v, 0, n)
		} else {
			stop = clamp(v, -1, n-1)
		}
	}

	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, int(i))
		}
	}
	return out, true
}

// -----------------------------
// tuple & list methods
// -----------------------------

func seqGetItem(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	seq := argv[0]
	if argv[1].isInt() {
		i, ok := adjustIndex(argv[1].i, len(seq.v))
		if !ok {
			ctx.RaiseIndexError()
			return nil
		}
		return seq.v[i]
	}
	indices, ok := sliceIndices(ctx, argv[1], len(seq.v))
	if !ok {
		return nil
	}
	out := make([]*Obj, 0, len(indices))
	for _, i := range indices {
		out = append(out, seq.v[i])
	}
	if seq.isTuple() {
		return ctx.NewTuple(out)
	}
	return ctx.NewList(out)
}

func seqNonzero(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	return ctx.NewBool(len(argv[0].v) > 0)
}

func seqLen(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) {
		return nil
	}
	return ctx.NewInt(int64(len(argv[0].v)))
}

func seqContains(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	for _, e := range argv[0].v {
		eq := ctx.BinaryOp(BinOpEq, e, argv[1])
		if eq == nil {
			return nil
		}
		if eq.b {
			return ctx.NewBool(true)
		}
	}
	return ctx.NewBool(false)
}

func seqEq(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	if argv[1].Type != argv[0].Type || len(argv[0].v) != len(argv[1].v) {
		return ctx.NewBool(false)
	}
	for i := range argv[0].v {
		eq := ctx.BinaryOp(BinOpEq, argv[0].v[i], argv[1].v[i])
		if eq == nil {
			return nil
		}
		if !eq.b {
			return ctx.NewBool(false)
		}
	}
	return ctx.NewBool(true)
}

func seqAdd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	if argv[1].Type != argv[0].Type {
		ctx.RaiseException(ExcTypeError,
			fmt.Sprintf("can only concatenate %s to %s", typeName(argv[0].Type), typeName(argv[0].Type)))
		return nil
	}
	joined := make([]*Obj, 0, len(argv[0].v)+len(argv[1].v))
	joined = append(joined, argv[0].v...)
	joined = append(joined, argv[1].v...)
	if argv[0].isTuple() {
		return ctx.NewTuple(joined)
	}
	return ctx.NewList(joined)
}

func seqMul(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 1) {
		return nil
	}
	if !checkCollectionSize(ctx, argv[1].i*int64(len(argv[0].v))) {
		return nil
	}
	out := repeatElems(argv[0].v, argv[1].i)
	if argv[0].isTuple() {
		return ctx.NewTuple(out)
	}
	return ctx.NewList(out)
}

func seqIndex(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	for i, e := range argv[0].v {
		eq := ctx.BinaryOp(BinOpEq, e, argv[1])
		if eq == nil {
			return nil
		}
		if eq.b {
			return ctx.NewInt(int64(i))
		}
	}
	ctx.RaiseException(ExcValueError, "Value not found")
	return nil
}

func seqCount(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) {
		return nil
	}
	count := int64(0)
	for _, e := range argv[0].v {
		eq := ctx.BinaryOp(BinOpEq, e, argv[1])
		if eq == nil {
			return nil
		}
		if eq.b {
			count++
		}
	}
	return ctx.NewInt(count)
}

func listSetItem(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectList(ctx, argv, 0) || !expectInt(ctx, argv, 1) {
		return nil
	}
	i, ok := adjustIndex(argv[1].i, len(argv[0].v))
	if !ok {
		ctx.RaiseIndexError()
		return nil
	}
	argv[0].v[i] = argv[2]
	return argv[0]
}

func listAppend(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectList(ctx, argv, 0) {
		return nil
	}
	if !checkCollectionSize(ctx, int64(len(argv[0].v))+1) {
		return nil
	}
	argv[0].v = append(argv[0].v, argv[1])
	return ctx.None()
}

func listInsert(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectList(ctx, argv, 0) || !expectInt(ctx, argv, 1) {
		return nil
	}
	lst := argv[0]
	i := argv[1].i
	if i < 0 {
		i += int64(len(lst.v))
	}
	if i < 0 {
		i = 0
	}
	if i > int64(len(lst.v)) {
		i = int64(len(lst.v))
	}
	lst.v = append(lst.v, nil)
	copy(lst.v[i+1:], lst.v[i:])
	lst.v[i] = argv[2]
	return ctx.None()
}

func listPop(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 1, 2) || !expectList(ctx, argv, 0) {
		return nil
	}
	index := int64(-1)
	if len(argv) == 2 {
		if !expectInt(ctx, argv, 1) {
			return nil
		}
		index = argv[1].i
	}
	i, ok := adjustIndex(index, len(argv[0].v))
	if !ok {
		ctx.RaiseIndexError()
		return nil
	}
	popped := argv[0].v[i]
	argv[0].v = append(argv[0].v[:i], argv[0].v[i+1:]...)
	return popped
}

func listRemove(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectList(ctx, argv, 0) {
		return nil
	}
	for i, e := range argv[0].v {
		eq := ctx.BinaryOp(BinOpEq, e, argv[1])
		if eq == nil {
			return nil
		}
		if eq.b {
			argv[0].v = append(argv[0].v[:i], argv[0].v[i+1:]...)
			return ctx.None()
		}
	}
	ctx.RaiseException(ExcValueError, "Value not found in list")
	return nil
}

func listExtend(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectList(ctx, argv, 0) {
		return nil
	}
	ok := ctx.Iterate(argv[1], func(v *Obj) bool {
		argv[0].v = append(argv[0].v, v)
		return true
	})
	if !ok {
		return nil
	}
	return ctx.None()
}

// listIAdd extends in place and yields the list, giving `xs += ys` the
// mutation semantics lists have.
func listIAdd(ctx *Context, argv []*Obj) *Obj {
	if listExtend(ctx, argv) == nil {
		return nil
	}
	return argv[0]
}

func listClear(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectList(ctx, argv, 0) {
		return nil
	}
	argv[0].v = nil
	return ctx.None()
}

func listReverse(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectList(ctx, argv, 0) {
		return nil
	}
	v := argv[0].v
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
	return ctx.None()
}

// -----------------------------
// dict methods
// -----------------------------

func dictNonzero(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	return ctx.NewBool(argv[0].m.Len() > 0)
}

func dictGetItem(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectDict(ctx, argv, 0) {
		return nil
	}
	v, hashable := argv[0].m.Get(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	if v == nil {
		ctx.RaiseKeyError(argv[1])
		return nil
	}
	return v
}

func dictSetItem(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 3) || !expectDict(ctx, argv, 0) {
		return nil
	}
	if !argv[0].m.Set(argv[1], argv[2]) {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	return argv[0]
}

func dictContains(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectDict(ctx, argv, 0) {
		return nil
	}
	v, hashable := argv[0].m.Get(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	return ctx.NewBool(v != nil)
}

func dictLen(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	return ctx.NewInt(int64(argv[0].m.Len()))
}

func dictGet(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 2, 3) || !expectDict(ctx, argv, 0) {
		return nil
	}
	v, hashable := argv[0].m.Get(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	if v != nil {
		return v
	}
	if len(argv) == 3 {
		return argv[2]
	}
	return ctx.None()
}

func dictKeys(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	var keys []*Obj
	argv[0].m.ForEach(func(k, _ *Obj) bool {
		keys = append(keys, k)
		return true
	})
	return ctx.NewList(keys)
}

func dictValues(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	var values []*Obj
	argv[0].m.ForEach(func(_, v *Obj) bool {
		values = append(values, v)
		return true
	})
	return ctx.NewList(values)
}

func dictItems(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	var items []*Obj
	failed := false
	argv[0].m.ForEach(func(k, v *Obj) bool {
		pair := ctx.NewTuple([]*Obj{k, v})
		if pair == nil {
			failed = true
			return false
		}
		ctx.ProtectObject(pair)
		items = append(items, pair)
		return true
	})
	defer func() {
		for _, it := range items {
			ctx.UnprotectObject(it)
		}
	}()
	if failed {
		return nil
	}
	return ctx.NewList(items)
}

func dictPop(ctx *Context, argv []*Obj) *Obj {
	if !expectArgBetween(ctx, argv, 2, 3) || !expectDict(ctx, argv, 0) {
		return nil
	}
	v, hashable := argv[0].m.Delete(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	if v != nil {
		return v
	}
	if len(argv) == 3 {
		return argv[2]
	}
	ctx.RaiseKeyError(argv[1])
	return nil
}

func dictClear(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectDict(ctx, argv, 0) {
		return nil
	}
	*argv[0].m = *newDict()
	return ctx.None()
}

func dictUpdate(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectDict(ctx, argv, 0) || !expectDict(ctx, argv, 1) {
		return nil
	}
	argv[1].m.ForEach(func(k, v *Obj) bool {
		argv[0].m.Set(k, v)
		return true
	})
	return ctx.None()
}

// -----------------------------
// set methods
// -----------------------------

func setNonzero(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectSet(ctx, argv, 0) {
		return nil
	}
	return ctx.NewBool(argv[0].set.Len() > 0)
}

func setContains(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) {
		return nil
	}
	found, hashable := argv[0].set.Contains(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	return ctx.NewBool(found)
}

func setLen(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 1) || !expectSet(ctx, argv, 0) {
		return nil
	}
	return ctx.NewInt(int64(argv[0].set.Len()))
}

func setAdd(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) {
		return nil
	}
	if !argv[0].set.Add(argv[1]) {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	return ctx.None()
}

func setRemove(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) {
		return nil
	}
	found, hashable := argv[0].set.Remove(argv[1])
	if !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	if !found {
		ctx.RaiseKeyError(argv[1])
		return nil
	}
	return ctx.None()
}

func setDiscard(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) {
		return nil
	}
	if _, hashable := argv[0].set.Remove(argv[1]); !hashable {
		ctx.raiseUnhashable(argv[1])
		return nil
	}
	return ctx.None()
}

func setUnion(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) || !expectSet(ctx, argv, 1) {
		return nil
	}
	var elems []*Obj
	argv[0].set.ForEach(func(k *Obj) bool {
		elems = append(elems, k)
		return true
	})
	argv[1].set.ForEach(func(k *Obj) bool {
		elems = append(elems, k)
		return true
	})
	return ctx.NewSet(elems)
}

func setIntersection(ctx *Context, argv []*Obj) *Obj {
	if !expectArgCount(ctx, argv, 2) || !expectSet(ctx, argv, 0) || !expectSet(ctx, argv, 1) {
		return nil
	}
	var elems []*Obj
	argv[0].set.ForEach(func(k *Obj) bool {
		if found, _ := argv[1].set.Contains(k); found {
			elems = append(elems, k)
		}
		return true
	})
	return ctx.NewSet(elems)
}

// -----------------------------
// Wiring
// -----------------------------

// registerBuiltinTypes creates the builtin class objects and installs
// their native method sets. Runs with "__builtins__" as the current
// module.
func registerBuiltinTypes(ctx *Context) bool {
	b := &ctx.builtins

	if b.object = createClass(ctx, "object", objectCtor); b.object == nil {
		return false
	}
	if b.noneType = createClass(ctx, "", noneCtor); b.noneType == nil {
		return false
	}
	b.noneType.cls.name = "NoneType"
	if b.boolCls = createClass(ctx, "bool", boolCtor); b.boolCls == nil {
		return false
	}
	if b.intCls = createClass(ctx, "int", intCtor); b.intCls == nil {
		return false
	}
	if b.floatCls = createClass(ctx, "float", floatCtor); b.floatCls == nil {
		return false
	}
	if b.strCls = createClass(ctx, "str", strCtor); b.strCls == nil {
		return false
	}
	if b.tuple = createClass(ctx, "tuple", tupleCtor); b.tuple == nil {
		return false
	}
	if b.list = createClass(ctx, "list", listCtor); b.list == nil {
		return false
	}
	if b.dict = createClass(ctx, "dict", dictCtor); b.dict == nil {
		return false
	}
	if b.set = createClass(ctx, "set", setCtor); b.set == nil {
		return false
	}
	if b.funcCls = createClass(ctx, "", funcCtor); b.funcCls == nil {
		return false
	}
	b.funcCls.cls.name = "function"

	// Subclass everything under object. Method registration happens
	// before any instance exists: instances snapshot their class's local
	// entries, so an early instance would miss later registrations.
	objectAttrs := b.object.cls.instanceAttributes
	for _, cls := range []*Obj{
		b.noneType, b.boolCls, b.intCls, b.floatCls, b.strCls,
		b.tuple, b.list, b.dict, b.set, b.funcCls,
	} {
		cls.cls.instanceAttributes.AddParent(objectAttrs)
		cls.attrs.AddParent(objectAttrs)
		cls.cls.bases = append(cls.cls.bases, b.object)
	}

	type binding struct {
		class  *Obj
		attr   string
		pretty string
		fn     NativeFunc
	}
	bindings := []binding{
		{b.object, "__str__", "object.__str__", objectStr},
		{b.object, "__repr__", "object.__repr__", objectStr},
		{b.object, "__eq__", "object.__eq__", objectEq},
		{b.object, "__ne__", "object.__ne__", objectNe},
		{b.object, "__nonzero__", "object.__nonzero__", objectNonzero},

		{b.noneType, "__nonzero__", "NoneType.__nonzero__", noneNonzero},
		{b.noneType, "__eq__", "NoneType.__eq__", noneEq},

		{b.boolCls, "__nonzero__", "bool.__nonzero__", boolNonzero},
		{b.boolCls, "__int__", "bool.__int__", boolInt},
		{b.boolCls, "__float__", "bool.__float__", boolFloat},
		{b.boolCls, "__eq__", "bool.__eq__", boolEq},

		{b.intCls, "__nonzero__", "int.__nonzero__", intNonzero},
		{b.intCls, "__int__", "int.__int__", intInt},
		{b.intCls, "__float__", "int.__float__", intFloat},
		{b.intCls, "__eq__", "int.__eq__", intEq},
		{b.intCls, "__lt__", "int.__lt__", numLt},
		{b.intCls, "__le__", "int.__le__", numLe},
		{b.intCls, "__gt__", "int.__gt__", numGt},
		{b.intCls, "__ge__", "int.__ge__", numGe},
		{b.intCls, "__pos__", "int.__pos__", intPos},
		{b.intCls, "__neg__", "int.__neg__", intNeg},
		{b.intCls, "__add__", "int.__add__", intAdd},
		{b.intCls, "__sub__", "int.__sub__", intSub},
		{b.intCls, "__mul__", "int.__mul__", intMul},
		{b.intCls, "__truediv__", "int.__truediv__", numDiv},
		{b.intCls, "__floordiv__", "int.__floordiv__", intFloorDiv},
		{b.intCls, "__mod__", "int.__mod__", intMod},
		{b.intCls, "__pow__", "int.__pow__", intPow},
		{b.intCls, "__and__", "int.__and__", intBitAnd},
		{b.intCls, "__or__", "int.__or__", intBitOr},
		{b.intCls, "__xor__", "int.__xor__", intBitXor},
		{b.intCls, "__invert__", "int.__invert__", intBitNot},
		{b.intCls, "__lshift__", "int.__lshift__", intShiftL},
		{b.intCls, "__rshift__", "int.__rshift__", intShiftR},

		{b.floatCls, "__nonzero__", "float.__nonzero__", floatNonzero},
		{b.floatCls, "__int__", "float.__int__", floatInt},
		{b.floatCls, "__float__", "float.__float__", floatFloat},
		{b.floatCls, "__eq__", "float.__eq__", floatEq},
		{b.floatCls, "__lt__", "float.__lt__", numLt},
		{b.floatCls, "__le__", "float.__le__", numLe},
		{b.floatCls, "__gt__", "float.__gt__", numGt},
		{b.floatCls, "__ge__", "float.__ge__", numGe},
		{b.floatCls, "__pos__", "float.__pos__", intPos},
		{b.floatCls, "__neg__", "float.__neg__", floatNeg},
		{b.floatCls, "__add__", "float.__add__", floatAdd},
		{b.floatCls, "__sub__", "float.__sub__", floatSub},
		{b.floatCls, "__mul__", "float.__mul__", floatMul},
		{b.floatCls, "__truediv__", "float.__truediv__", numDiv},
		{b.floatCls, "__floordiv__", "float.__floordiv__", floatFloorDiv},
		{b.floatCls, "__mod__", "float.__mod__", floatMod},
		{b.floatCls, "__pow__", "float.__pow__", floatPow},

		{b.strCls, "__nonzero__", "str.__nonzero__", strNonzero},
		{b.strCls, "__str__", "str.__str__", strStr},
		{b.strCls, "__repr__", "str.__repr__", strRepr},
		{b.strCls, "__int__", "str.__int__", strInt},
		{b.strCls, "__float__", "str.__float__", strFloat},
		{b.strCls, "__eq__", "str.__eq__", strEq},
		{b.strCls, "__lt__", "str.__lt__", strLt},
		{b.strCls, "__le__", "str.__le__", strLe},
		{b.strCls, "__gt__", "str.__gt__", strGt},
		{b.strCls, "__ge__", "str.__ge__", strGe},
		{b.strCls, "__add__", "str.__add__", strAdd},
		{b.strCls, "__mul__", "str.__mul__", strMul},
		{b.strCls, "__contains__", "str.__contains__", strContains},
		{b.strCls, "__len__", "str.__len__", strLen},
		{b.strCls, "__getitem__", "str.__getitem__", strGetItem},
		{b.strCls, "join", "str.join", strJoin},
		{b.strCls, "split", "str.split", strSplit},
		{b.strCls, "strip", "str.strip", strStrip},
		{b.strCls, "upper", "str.upper", strUpper},
		{b.strCls, "lower", "str.lower", strLower},
		{b.strCls, "startswith", "str.startswith", strStartswith},
		{b.strCls, "endswith", "str.endswith", strEndswith},
		{b.strCls, "find", "str.find", strFind},
		{b.strCls, "replace", "str.replace", strReplace},

		{b.tuple, "__nonzero__", "tuple.__nonzero__", seqNonzero},
		{b.tuple, "__getitem__", "tuple.__getitem__", seqGetItem},
		{b.tuple, "__len__", "tuple.__len__", seqLen},
		{b.tuple, "__contains__", "tuple.__contains__", seqContains},
		{b.tuple, "__eq__", "tuple.__eq__", seqEq},
		{b.tuple, "__add__", "tuple.__add__", seqAdd},
		{b.tuple, "__mul__", "tuple.__mul__", seqMul},
		{b.tuple, "index", "tuple.index", seqIndex},
		{b.tuple, "count", "tuple.count", seqCount},

		{b.list, "__nonzero__", "list.__nonzero__", seqNonzero},
		{b.list, "__getitem__", "list.__getitem__", seqGetItem},
		{b.list, "__setitem__", "list.__setitem__", listSetItem},
		{b.list, "__len__", "list.__len__", seqLen},
		{b.list, "__contains__", "list.__contains__", seqContains},
		{b.list, "__eq__", "list.__eq__", seqEq},
		{b.list, "__add__", "list.__add__", seqAdd},
		{b.list, "__iadd__", "list.__iadd__", listIAdd},
		{b.list, "__mul__", "list.__mul__", seqMul},
		{b.list, "append", "list.append", listAppend},
		{b.list, "insert", "list.insert", listInsert},
		{b.list, "pop", "list.pop", listPop},
		{b.list, "remove", "list.remove", listRemove},
		{b.list, "extend", "list.extend", listExtend},
		{b.list, "index", "list.index", seqIndex},
		{b.list, "count", "list.count", seqCount},
		{b.list, "clear", "list.clear", listClear},
		{b.list, "reverse", "list.reverse", listReverse},

		{b.dict, "__nonzero__", "dict.__nonzero__", dictNonzero},
		{b.dict, "__getitem__", "dict.__getitem__", dictGetItem},
		{b.dict, "__setitem__", "dict.__setitem__", dictSetItem},
		{b.dict, "__contains__", "dict.__contains__", dictContains},
		{b.dict, "__len__", "dict.__len__", dictLen},
		{b.dict, "get", "dict.get", dictGet},
		{b.dict, "keys", "dict.keys", dictKeys},
		{b.dict, "values", "dict.values", dictValues},
		{b.dict, "items", "dict.items", dictItems},
		{b.dict, "pop", "dict.pop", dictPop},
		{b.dict, "clear", "dict.clear", dictClear},
		{b.dict, "update", "dict.update", dictUpdate},

		{b.set, "__nonzero__", "set.__nonzero__", setNonzero},
		{b.set, "__contains__", "set.__contains__", setContains},
		{b.set, "__len__", "set.__len__", setLen},
		{b.set, "add", "set.add", setAdd},
		{b.set, "remove", "set.remove", setRemove},
		{b.set, "discard", "set.discard", setDiscard},
		{b.set, "union", "set.union", setUnion},
		{b.set, "intersection", "set.intersection", setIntersection},
	}
	for _, bd := range bindings {
		if registerMethod(ctx, bd.class, bd.attr, bd.pretty, bd.fn) == nil {
			return false
		}
	}

	// The bases tuples and the None singleton are real instances; they
	// come last so their attribute snapshots carry the methods above.
	emptyBases := ctx.NewTuple(nil)
	if emptyBases == nil {
		return false
	}
	b.object.attrs.Set("__bases__", emptyBases)
	basesTuple := ctx.NewTuple([]*Obj{b.object})
	if basesTuple == nil {
		return false
	}
	for _, cls := range []*Obj{
		b.noneType, b.boolCls, b.intCls, b.floatCls, b.strCls,
		b.tuple, b.list, b.dict, b.set, b.funcCls,
	} {
		cls.attrs.Set("__bases__", basesTuple)
	}

	if b.none = ctx.Call(b.noneType, nil, nil); b.none == nil {
		return false
	}
	return true
}
