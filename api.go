// api.go — the host embedding surface.
//
// Compile turns source into a callable function object; Call invokes it
// (interpreter.go). Constructors build runtime values, introspection reads
// them back, and the operator entry points dispatch through the same dunder
// methods compiled code uses. Every fallible operation returns nil and sets
// the current exception; GetErrorMessage renders it.

package talon

// -----------------------------
// Compilation & execution
// -----------------------------

// Compile compiles source into a function object whose invocation runs the
// program with the current module's globals as its global scope. Returns
// nil with SyntaxError set on a lex or parse failure.
func (ctx *Context) Compile(source, prettyName string) *Obj {
	return compileInModule(ctx, source, ctx.module(), prettyName, false)
}

// CompileExpression compiles a single expression; calling the result
// returns the expression's value.
func (ctx *Context) CompileExpression(source, prettyName string) *Obj {
	return compileInModule(ctx, source, ctx.module(), prettyName, true)
}

// Execute compiles and immediately runs source. When an exception escapes,
// the process-wide error callback (SetErrorCallback) receives the rendered
// traceback.
func (ctx *Context) Execute(source, prettyName string) *Obj {
	fn := ctx.Compile(source, prettyName)
	if fn == nil {
		invokeErrorCallback(ctx.GetErrorMessage())
		return nil
	}
	ret := ctx.Call(fn, nil, nil)
	if ret == nil {
		invokeErrorCallback(ctx.GetErrorMessage())
	}
	return ret
}

// ExecuteExpression compiles and evaluates a single expression.
func (ctx *Context) ExecuteExpression(source, prettyName string) *Obj {
	fn := ctx.CompileExpression(source, prettyName)
	if fn == nil {
		invokeErrorCallback(ctx.GetErrorMessage())
		return nil
	}
	ret := ctx.Call(fn, nil, nil)
	if ret == nil {
		invokeErrorCallback(ctx.GetErrorMessage())
	}
	return ret
}

func compileInModule(ctx *Context, source, module, prettyName string, exprOnly bool) *Obj {
	var prog *Program
	var err error
	if exprOnly {
		prog, err = ParseExpression(source)
	} else {
		prog, err = Parse(source)
	}
	if err != nil {
		raiseSyntaxError(ctx, module, source, err)
		return nil
	}

	instrs := Compile(prog)
	fnObj := ctx.newFunctionObject()
	if fnObj == nil {
		return nil
	}
	fnObj.fn = &Func{
		def: &ScriptFunc{
			instructions: instrs,
			module:       module,
			prettyName:   prettyName,
			lines:        prog.Lines,
		},
		module:     module,
		prettyName: prettyName,
	}
	return fnObj
}

// raiseSyntaxError converts a front-end error into a SyntaxError whose
// trace points at the offending line.
func raiseSyntaxError(ctx *Context, module, source string, err error) {
	line, col := 0, 0
	msg := err.Error()
	switch e := err.(type) {
	case *LexError:
		line, col, msg = e.Line, e.Col, e.Msg
	case *ParseError:
		line, col, msg = e.Line, e.Col, e.Msg
	}
	ctx.RaiseException(ExcSyntaxError, msg)
	if line > 0 && ctx.currentException != nil {
		lines := splitLines(source)
		frame := TraceFrame{
			Module:      module,
			Pos:         SourcePos{Line: line, Col: col},
			SyntaxError: true,
		}
		if line <= len(lines) {
			frame.LineText = lines[line-1]
		}
		ctx.exceptionTrace = append(ctx.exceptionTrace, frame)
	}
}

func splitLines(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	return append(lines, source[start:])
}

// -----------------------------
// Constructors
// -----------------------------

// None returns the None singleton.
func (ctx *Context) None() *Obj { return ctx.builtins.none }

// NewBool allocates a bool object.
func (ctx *Context) NewBool(value bool) *Obj {
	v := ctx.Call(ctx.builtins.boolCls, nil, nil)
	if v != nil {
		v.b = value
	}
	return v
}

// NewInt allocates an int object.
func (ctx *Context) NewInt(value int64) *Obj {
	v := ctx.Call(ctx.builtins.intCls, nil, nil)
	if v != nil {
		v.i = value
	}
	return v
}

// NewFloat allocates a float object.
func (ctx *Context) NewFloat(value float64) *Obj {
	v := ctx.Call(ctx.builtins.floatCls, nil, nil)
	if v != nil {
		v.f = value
	}
	return v
}

// NewString allocates a str object.
func (ctx *Context) NewString(value string) *Obj {
	v := ctx.Call(ctx.builtins.strCls, nil, nil)
	if v != nil {
		v.s = value
	}
	return v
}

// NewStringBuffer allocates a str object from a byte slice.
func (ctx *Context) NewStringBuffer(buffer []byte) *Obj {
	return ctx.NewString(string(buffer))
}

// NewTuple allocates a tuple holding elems (not copied).
func (ctx *Context) NewTuple(elems []*Obj) *Obj {
	for _, e := range elems {
		ctx.ProtectObject(e)
	}
	defer func() {
		for _, e := range elems {
			ctx.UnprotectObject(e)
		}
	}()
	v := ctx.Call(ctx.builtins.tuple, nil, nil)
	if v != nil {
		v.v = elems
	}
	return v
}

// NewList allocates a list holding elems (not copied).
func (ctx *Context) NewList(elems []*Obj) *Obj {
	for _, e := range elems {
		ctx.ProtectObject(e)
	}
	defer func() {
		for _, e := range elems {
			ctx.UnprotectObject(e)
		}
	}()
	v := ctx.Call(ctx.builtins.list, nil, nil)
	if v != nil {
		v.v = elems
	}
	return v
}

// NewDict allocates a dict from parallel key/value slices. Returns nil with
// TypeError set when a key is unhashable.
func (ctx *Context) NewDict(keys, values []*Obj) *Obj {
	for i := range keys {
		ctx.ProtectObject(keys[i])
		ctx.ProtectObject(values[i])
	}
	defer func() {
		for i := range keys {
			ctx.UnprotectObject(keys[i])
			ctx.UnprotectObject(values[i])
		}
	}()
	v := ctx.Call(ctx.builtins.dict, nil, nil)
	if v == nil {
		return nil
	}
	for i := range keys {
		if !v.m.Set(keys[i], values[i]) {
			ctx.raiseUnhashable(keys[i])
			return nil
		}
	}
	return v
}

// NewSet allocates a set from elems.
func (ctx *Context) NewSet(elems []*Obj) *Obj {
	for _, e := range elems {
		ctx.ProtectObject(e)
	}
	defer func() {
		for _, e := range elems {
			ctx.UnprotectObject(e)
		}
	}()
	v := ctx.Call(ctx.builtins.set, nil, nil)
	if v == nil {
		return nil
	}
	for _, e := range elems {
		if !v.set.Add(e) {
			ctx.raiseUnhashable(e)
			return nil
		}
	}
	return v
}

// NewFunction wraps a native function into a function object named for
// tracebacks.
func (ctx *Context) NewFunction(fptr NativeFunc, userdata any, prettyName string) *Obj {
	if prettyName == "" {
		prettyName = defaultFuncName
	}
	v := ctx.newFunctionObject()
	if v == nil {
		return nil
	}
	v.fn = &Func{
		fptr:       fptr,
		userdata:   userdata,
		module:     ctx.module(),
		prettyName: prettyName,
	}
	return v
}

// newFunctionObject allocates the bare function object shell.
func (ctx *Context) newFunctionObject() *Obj {
	if ctx.builtins.funcCls == nil {
		// Bootstrap path: the function class itself is not built yet.
		v := Alloc(ctx)
		if v != nil {
			v.Type = typeFunc
		}
		return v
	}
	return ctx.Call(ctx.builtins.funcCls, nil, nil)
}

// NewUserdata allocates an object with an opaque payload under a custom
// type tag; TryGetUserdata retrieves it.
func (ctx *Context) NewUserdata(typeTag string, data any) *Obj {
	v := Alloc(ctx)
	if v != nil {
		v.Type = typeTag
		v.ud = data
	}
	return v
}

// BindMethod wraps a native function as a method on a class.
func (ctx *Context) BindMethod(class *Obj, name string, fptr NativeFunc, userdata any) *Obj {
	ctx.ProtectObject(class)
	defer ctx.UnprotectObject(class)
	fn := ctx.NewFunction(fptr, userdata, name)
	if fn == nil {
		return nil
	}
	fn.fn.isMethod = true
	class.cls.instanceAttributes.Set(name, fn)
	return fn
}

// AddAttributeToClass sets an entry on a class's instance attribute table.
// By convention this is not done after the class has been instantiated.
func (ctx *Context) AddAttributeToClass(class *Obj, name string, value *Obj) {
	class.cls.instanceAttributes.Set(name, value)
}

// NewClass creates a class deriving from bases (object when empty). The
// class carries a constructor that builds an instance from the class's
// instance attributes and forwards to __init__, plus a default __init__
// that forwards to the first base.
func (ctx *Context) NewClass(name string, bases []*Obj) *Obj {
	for _, b := range bases {
		ctx.ProtectObject(b)
	}
	defer func() {
		for _, b := range bases {
			ctx.UnprotectObject(b)
		}
	}()

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
	}
	class.cls.instanceAttributes.Set("__class__", class)
	// Class objects resolve their own methods (unbound) and the object
	// protocol through their attribute chain.
	class.attrs.AddParent(class.cls.instanceAttributes)
	if ctx.builtins.object != nil {
		class.attrs.AddParent(ctx.builtins.object.cls.instanceAttributes)
	}

	if len(bases) == 0 && ctx.builtins.object != nil {
		bases = []*Obj{ctx.builtins.object}
	}
	for _, base := range bases {
		class.cls.instanceAttributes.AddParent(base.cls.instanceAttributes)
		class.cls.bases = append(class.cls.bases, base)
	}
	basesTuple := ctx.NewTuple(append([]*Obj(nil), bases...))
	if basesTuple == nil {
		return nil
	}
	class.attrs.Set("__bases__", basesTuple)

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

	// Construction builds the instance then forwards to __init__.
	class.cls.userdata = class
	class.cls.ctor = func(ctx *Context, argv []*Obj) *Obj {
		classObj := ctx.FunctionUserdata().(*Obj)

		instance := Alloc(ctx)
		if instance == nil {
			return nil
		}
		ctx.ProtectObject(instance)
		defer ctx.UnprotectObject(instance)

		instance.attrs = *classObj.cls.instanceAttributes.Copy()
		instance.Type = classObj.cls.name

		init, ok := ctx.getAttribute(instance, "__init__", "", nil)
		if !ok {
			return nil
		}
		if init != nil && init.isFunc() {
			ret := ctx.Call(init, argv, ctx.rawKwargs())
			if ret == nil {
				return nil
			}
			if !ret.isNone() {
				ctx.RaiseException(ExcTypeError, "__init__() returned a non NoneType type")
				return nil
			}
		}
		return instance
	}

	// Default __init__ forwards to the first base's __init__.
	init := ctx.BindMethod(class, "__init__", func(ctx *Context, argv []*Obj) *Obj {
		classObj := ctx.FunctionUserdata().(*Obj)
		if len(argv) < 1 {
			ctx.RaiseArgumentCountError(len(argv), -1)
			return nil
		}
		bases := classObj.cls.bases
		if len(bases) == 0 {
			return ctx.None()
		}
		baseInit, ok := ctx.getAttribute(argv[0], "__init__", "", bases[0])
		if !ok {
			return nil
		}
		if baseInit != nil {
			ret := ctx.Call(baseInit, argv[1:], ctx.rawKwargs())
			if ret == nil {
				return nil
			}
			if !ret.isNone() {
				ctx.RaiseException(ExcTypeError, "__init__() returned a non NoneType type")
				return nil
			}
		}
		return ctx.None()
	}, class)
	if init == nil {
		return nil
	}
	// The init closure holds the class through userdata, which the GC
	// does not traverse; pin it explicitly.
	ctx.LinkReference(init, class)

	return class
}

// newLiteral materializes a compiled literal.
func (ctx *Context) newLiteral(lit *LiteralValue) *Obj {
	switch lit.Kind {
	case LitNone:
		return ctx.None()
	case LitBool:
		return ctx.NewBool(lit.B)
	case LitInt:
		return ctx.NewInt(lit.I)
	case LitFloat:
		return ctx.NewFloat(lit.F)
	default:
		return ctx.NewString(lit.S)
	}
}

// -----------------------------
// Introspection
// -----------------------------

// IsNone etc. report the runtime kind of a value.
func IsNone(obj *Obj) bool   { return obj.isNone() }
func IsBool(obj *Obj) bool   { return obj.isBool() }
func IsInt(obj *Obj) bool    { return obj.isInt() }
func IsFloat(obj *Obj) bool  { return obj.isNumber() }
func IsString(obj *Obj) bool { return obj.isStr() }
func IsTuple(obj *Obj) bool  { return obj.isTuple() }
func IsList(obj *Obj) bool   { return obj.isList() }
func IsDict(obj *Obj) bool   { return obj.isDict() }
func IsSet(obj *Obj) bool    { return obj.isSet() }
func IsFunc(obj *Obj) bool   { return obj.isFunc() }
func IsClass(obj *Obj) bool  { return obj.isClass() }

// GetBool reads a bool payload; the caller must have checked the kind.
func GetBool(obj *Obj) bool { return obj.b }

// GetInt reads an int payload.
func GetInt(obj *Obj) int64 { return obj.i }

// GetFloat reads a numeric payload, widening ints.
func GetFloat(obj *Obj) float64 { return obj.float() }

// GetString reads a str payload.
func GetString(obj *Obj) string { return obj.s }

// GetElems reads the element slice of a tuple or list.
func GetElems(obj *Obj) []*Obj { return obj.v }

// TryGetUserdata returns the payload of a userdata object when its type
// tag matches.
func TryGetUserdata(obj *Obj, typeTag string) (any, bool) {
	if obj.Type == typeTag {
		return obj.ud, true
	}
	return nil, false
}

// GetFinalizer / SetFinalizer access an object's finalizer.
func GetFinalizer(obj *Obj) Finalizer    { return obj.finalizer }
func SetFinalizer(obj *Obj, f Finalizer) { obj.finalizer = f }

// HasAttribute returns the attribute (bound when a method) or nil without
// raising.
func (ctx *Context) HasAttribute(obj *Obj, name string) *Obj {
	v, _ := ctx.getAttribute(obj, name, "", nil)
	return v
}

// GetAttribute returns the attribute or raises AttributeError.
func (ctx *Context) GetAttribute(obj *Obj, name string) *Obj {
	v, ok := ctx.getAttribute(obj, name, "", nil)
	if !ok {
		return nil
	}
	if v == nil {
		ctx.RaiseAttributeError(obj, name)
	}
	return v
}

// SetAttribute writes an attribute locally on obj.
func (ctx *Context) SetAttribute(obj *Obj, name string, value *Obj) {
	obj.attrs.Set(name, value)
}

// GetAttributeFromBase resolves name against baseClass's instance
// attributes (or, when baseClass is nil, obj's parent tables only),
// binding methods to obj.
func (ctx *Context) GetAttributeFromBase(obj *Obj, name string, baseClass *Obj) *Obj {
	if baseClass != nil {
		v, _ := ctx.getAttribute(obj, name, "", baseClass)
		return v
	}
	v, _ := ctx.getAttributeFromParents(obj, name)
	return v
}

// IsInstance walks the __bases__ chain breadth-first looking for type.
func (ctx *Context) IsInstance(instance *Obj, class *Obj) bool {
	start := instance.attrs.Get("__class__")
	if start == nil || !start.isClass() {
		return false
	}
	queue := []*Obj{start}
	seen := map[*Obj]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if cur == class {
			return true
		}
		queue = append(queue, cur.cls.bases...)
	}
	return false
}

// -----------------------------
// Iteration & unpacking
// -----------------------------

// Iterate drives obj's iterator protocol, invoking callback per element
// until exhaustion (StopIteration) or until the callback returns false.
// Returns false when iteration raised.
func (ctx *Context) Iterate(obj *Obj, callback func(value *Obj) bool) bool {
	iter := ctx.CallMethod(obj, "__iter__", nil, nil)
	if iter == nil {
		return false
	}
	ctx.ProtectObject(iter)
	defer ctx.UnprotectObject(iter)

	for {
		yielded := ctx.CallMethod(iter, "__next__", nil, nil)
		if yielded == nil {
			if exc := ctx.currentException; exc != nil &&
				ctx.IsInstance(exc, ctx.builtins.stopIteration) {
				ctx.ClearCurrentException()
				return true
			}
			return false
		}
		ctx.ProtectObject(yielded)
		keep := callback(yielded)
		ctx.UnprotectObject(yielded)
		if !keep {
			return ctx.currentException == nil
		}
	}
}

// Unpack iterates obj expecting exactly count values.
func (ctx *Context) Unpack(obj *Obj, count int) []*Obj {
	out := make([]*Obj, 0, count)
	ok := ctx.Iterate(obj, func(v *Obj) bool {
		if len(out) >= count {
			ctx.RaiseException(ExcValueError, "Too many values to unpack")
			return false
		}
		ctx.ProtectObject(v)
		out = append(out, v)
		return true
	})
	defer func() {
		for _, v := range out {
			ctx.UnprotectObject(v)
		}
	}()
	if !ok {
		return nil
	}
	if len(out) < count {
		ctx.RaiseException(ExcValueError, "Not enough values to unpack")
		return nil
	}
	return out
}

// ParseKwargs extracts the values for keys from a kwargs dict; absent keys
// yield nil entries.
func (ctx *Context) ParseKwargs(kwargs *Obj, keys []string) []*Obj {
	if kwargs == nil || !kwargs.isDict() {
		ctx.RaiseException(ExcTypeError, "Keyword arguments must be a dictionary")
		return nil
	}
	out := make([]*Obj, len(keys))
	for i, k := range keys {
		key := ctx.NewString(k)
		if key == nil {
			return nil
		}
		v, _ := kwargs.m.Get(key)
		out[i] = v
	}
	return out
}

// -----------------------------
// Operators
// -----------------------------

// UnOp / BinOp select an operator for UnaryOp and BinaryOp.
type UnOp int

const (
	UnOpPos UnOp = iota
	UnOpNeg
	UnOpBitNot
	UnOpNot
	UnOpBool
	UnOpInt
	UnOpFloat
	UnOpStr
	UnOpRepr
	UnOpLen
)

type BinOp int

const (
	BinOpAdd BinOp = iota
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpFloorDiv
	BinOpMod
	BinOpPow
	BinOpBitAnd
	BinOpBitOr
	BinOpBitXor
	BinOpShiftL
	BinOpShiftR
	BinOpEq
	BinOpNe
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpNotIn
	BinOpAnd
	BinOpOr
)

// UnaryOp applies an operator through the value's dunder methods.
func (ctx *Context) UnaryOp(op UnOp, arg *Obj) *Obj {
	switch op {
	case UnOpPos:
		return ctx.CallMethod(arg, "__pos__", nil, nil)
	case UnOpNeg:
		return ctx.CallMethod(arg, "__neg__", nil, nil)
	case UnOpBitNot:
		return ctx.CallMethod(arg, "__invert__", nil, nil)
	case UnOpNot:
		b, ok := ctx.truthy(arg)
		if !ok {
			return nil
		}
		return ctx.NewBool(!b)
	case UnOpBool:
		res := ctx.CallMethod(arg, "__nonzero__", nil, nil)
		if res != nil && !res.isBool() {
			ctx.RaiseException(ExcTypeError, "__nonzero__() returned a non bool type")
			return nil
		}
		return res
	case UnOpInt:
		res := ctx.CallMethod(arg, "__int__", nil, nil)
		if res != nil && !res.isInt() {
			ctx.RaiseException(ExcTypeError, "__int__() returned a non int type")
			return nil
		}
		return res
	case UnOpFloat:
		res := ctx.CallMethod(arg, "__float__", nil, nil)
		if res != nil && !res.isNumber() {
			ctx.RaiseException(ExcTypeError, "__float__() returned a non float type")
			return nil
		}
		return res
	case UnOpStr:
		return ctx.Str(arg)
	case UnOpRepr:
		return ctx.Repr(arg)
	case UnOpLen:
		return ctx.Call(ctx.builtins.lenFn, []*Obj{arg}, nil)
	default:
		return nil
	}
}

var binOpMethods = map[BinOp]string{
	BinOpAdd:      "__add__",
	BinOpSub:      "__sub__",
	BinOpMul:      "__mul__",
	BinOpDiv:      "__truediv__",
	BinOpFloorDiv: "__floordiv__",
	BinOpMod:      "__mod__",
	BinOpPow:      "__pow__",
	BinOpBitAnd:   "__and__",
	BinOpBitOr:    "__or__",
	BinOpBitXor:   "__xor__",
	BinOpShiftL:   "__lshift__",
	BinOpShiftR:   "__rshift__",
	BinOpEq:       "__eq__",
	BinOpNe:       "__ne__",
	BinOpLt:       "__lt__",
	BinOpLe:       "__le__",
	BinOpGt:       "__gt__",
	BinOpGe:       "__ge__",
	BinOpIn:       "__contains__",
}

// BinaryOp applies an operator through the left operand's dunder method
// (the right operand's for `in`). Comparison and containment results must
// be bool.
func (ctx *Context) BinaryOp(op BinOp, lhs, rhs *Obj) *Obj {
	switch op {
	case BinOpNotIn:
		in := ctx.BinaryOp(BinOpIn, lhs, rhs)
		if in == nil {
			return nil
		}
		return ctx.NewBool(!in.b)
	case BinOpAnd:
		lb := ctx.UnaryOp(UnOpBool, lhs)
		if lb == nil {
			return nil
		}
		if !lb.b {
			return lb
		}
		return ctx.UnaryOp(UnOpBool, rhs)
	case BinOpOr:
		lb := ctx.UnaryOp(UnOpBool, lhs)
		if lb == nil {
			return nil
		}
		if lb.b {
			return lb
		}
		return ctx.UnaryOp(UnOpBool, rhs)
	}

	if op == BinOpIn {
		lhs, rhs = rhs, lhs
	}
	method := binOpMethods[op]
	res := ctx.CallMethod(lhs, method, []*Obj{rhs}, nil)
	switch op {
	case BinOpEq, BinOpNe, BinOpLt, BinOpLe, BinOpGt, BinOpGe, BinOpIn:
		if res != nil && !res.isBool() {
			ctx.RaiseException(ExcTypeError, method+"() returned a non bool type")
			return nil
		}
	}
	return res
}

// GetIndex dispatches obj[index].
func (ctx *Context) GetIndex(obj, index *Obj) *Obj {
	return ctx.CallMethod(obj, "__getitem__", []*Obj{index}, nil)
}

// SetIndex dispatches obj[index] = value.
func (ctx *Context) SetIndex(obj, index, value *Obj) *Obj {
	return ctx.CallMethod(obj, "__setitem__", []*Obj{index, value}, nil)
}

// Str converts through __str__, which must return a str.
func (ctx *Context) Str(arg *Obj) *Obj {
	res := ctx.CallMethod(arg, "__str__", nil, nil)
	if res != nil && !res.isStr() {
		ctx.RaiseException(ExcTypeError, "__str__() returned a non str type")
		return nil
	}
	return res
}

// Repr converts through __repr__, falling back to __str__.
func (ctx *Context) Repr(arg *Obj) *Obj {
	if m, _ := ctx.getAttribute(arg, "__repr__", "", nil); m != nil {
		res := ctx.Call(m, nil, nil)
		if res != nil && !res.isStr() {
			ctx.RaiseException(ExcTypeError, "__repr__() returned a non str type")
			return nil
		}
		return res
	}
	return ctx.Str(arg)
}

// RegisterFunction installs a native function as a global of the current
// module.
func (ctx *Context) RegisterFunction(name string, fptr NativeFunc) *Obj {
	fn := ctx.NewFunction(fptr, nil, name)
	if fn == nil {
		return nil
	}
	ctx.SetGlobal(name, fn)
	return fn
}
