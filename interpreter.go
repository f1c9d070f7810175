// interpreter.go — the stack machine that executes compiled instruction
// vectors, and the central call dispatcher shared with the host API.
//
// Per-invocation state: a value stack, an arg-frame stack delimiting call
// arguments, a try-frame stack capturing handler offsets and stack depths,
// a queued-jump register threading break/continue/return through finally
// blocks, and per-name cells for locals. Exceptions unwind by restoring the
// innermost try frame's depths and jumping to its except offset; a second
// exception while handling routes through the frame's finally instead.

package talon

import "fmt"

// -----------------------------
// Calling
// -----------------------------

// Call invokes a callable (function or class; anything else dispatches to
// its __call__ method) with positional arguments and an optional kwargs
// dict. Returns nil with the current exception set on failure.
func (ctx *Context) Call(callable *Obj, argv []*Obj, kwargsDict *Obj) *Obj {
	if callable == nil {
		return nil
	}
	if !callable.isFunc() && !callable.isClass() {
		return ctx.CallMethod(callable, "__call__", argv, kwargsDict)
	}

	if kwargsDict != nil {
		if !kwargsDict.isDict() {
			ctx.RaiseException(ExcTypeError, "Keyword arguments must be a dictionary")
			return nil
		}
		bad := false
		kwargsDict.m.ForEach(func(k, _ *Obj) bool {
			if !k.isStr() {
				bad = true
				return false
			}
			return true
		})
		if bad {
			ctx.RaiseException(ExcTypeError, "Keyword arguments dictionary must only contain string keys")
			return nil
		}
	}

	// Keep everything reachable while the callee allocates.
	ctx.ProtectObject(callable)
	defer ctx.UnprotectObject(callable)
	for _, a := range argv {
		ctx.ProtectObject(a)
	}
	defer func() {
		for _, a := range argv {
			ctx.UnprotectObject(a)
		}
	}()
	if kwargsDict != nil {
		ctx.ProtectObject(kwargsDict)
		defer ctx.UnprotectObject(kwargsDict)
	}

	var (
		self     *Obj
		userdata any
		module   string
		pretty   string
		isFn     = callable.isFunc()
	)
	if isFn {
		f := callable.fn
		self = f.self
		userdata = f.userdata
		module = f.module
		pretty = f.prettyName
	} else {
		cls := callable.cls
		userdata = cls.userdata
		module = cls.module
		pretty = cls.name
	}

	if ctx.config.MaxRecursion > 0 && ctx.depth >= ctx.config.MaxRecursion && !ctx.raisingError {
		ctx.RaiseException(ExcRecursionError, "Maximum recursion depth exceeded")
		return nil
	}
	ctx.depth++
	defer func() { ctx.depth-- }()

	args := argv
	if self != nil {
		args = make([]*Obj, 0, len(argv)+1)
		args = append(args, self)
		args = append(args, argv...)
		ctx.ProtectObject(self)
		defer ctx.UnprotectObject(self)
	}

	ctx.currentModule = append(ctx.currentModule, module)
	ctx.userdataAny = append(ctx.userdataAny, userdata)
	ctx.kwargsStack = append(ctx.kwargsStack, kwargsDict)
	if isFn {
		ctx.currentTrace = append(ctx.currentTrace, TraceFrame{Module: module, Func: pretty})
	}

	var ret *Obj
	switch {
	case !isFn:
		ret = callable.cls.ctor(ctx, args)
	case callable.fn.def != nil:
		ret = ctx.runScript(callable.fn, args, kwargsDict)
	default:
		ret = callable.fn.fptr(ctx, args)
	}

	if isFn {
		ctx.currentTrace = ctx.currentTrace[:len(ctx.currentTrace)-1]
	}
	ctx.kwargsStack = ctx.kwargsStack[:len(ctx.kwargsStack)-1]
	ctx.userdataAny = ctx.userdataAny[:len(ctx.userdataAny)-1]
	ctx.currentModule = ctx.currentModule[:len(ctx.currentModule)-1]
	return ret
}

// CallMethod looks up obj's attribute and calls it; AttributeError when the
// attribute is absent.
func (ctx *Context) CallMethod(obj *Obj, name string, argv []*Obj, kwargsDict *Obj) *Obj {
	method, ok := ctx.getAttribute(obj, name, "", nil)
	if !ok {
		return nil
	}
	if method == nil {
		ctx.RaiseAttributeError(obj, name)
		return nil
	}
	return ctx.Call(method, argv, kwargsDict)
}

// CallMethodFromBase resolves the method against the given base class (or,
// when base is nil, skipping obj's own table), for explicit super-style
// dispatch.
func (ctx *Context) CallMethodFromBase(obj *Obj, name string, argv []*Obj, kwargsDict *Obj, base *Obj) *Obj {
	var method *Obj
	var ok bool
	if base != nil {
		method, ok = ctx.getAttribute(obj, name, "", base)
	} else {
		method, ok = ctx.getAttributeFromParents(obj, name)
	}
	if !ok {
		return nil
	}
	if method == nil {
		ctx.RaiseAttributeError(obj, name)
		return nil
	}
	return ctx.Call(method, argv, kwargsDict)
}

// rawKwargs returns the innermost call's kwargs dict without materializing
// an empty one.
func (ctx *Context) rawKwargs() *Obj {
	if len(ctx.kwargsStack) == 0 {
		return nil
	}
	return ctx.kwargsStack[len(ctx.kwargsStack)-1]
}

// -----------------------------
// Attribute access with method binding
// -----------------------------

// getAttribute finds obj's attribute. A function marked as a method binds
// to obj (a fresh bound view) unless the receiver is a class, so
// `Base.method(self, ...)` passes the explicit self through. When base is
// non-nil the search starts at that class's instance attributes. A
// non-empty fallback name is tried on a miss. ok is false only when
// binding itself failed (allocation).
func (ctx *Context) getAttribute(obj *Obj, name, fallback string, base *Obj) (*Obj, bool) {
	if base != nil {
		v := base.cls.instanceAttributes.Get(name)
		if v == nil && fallback != "" {
			v = base.cls.instanceAttributes.Get(fallback)
		}
		return ctx.bindIfMethod(obj, v, false)
	}
	if obj.isClass() {
		// A class's own local attributes (its __str__, __bases__) behave
		// normally; instance methods reached through the class stay
		// unbound so Base.method(self, ...) passes self explicitly.
		if local, ok := obj.attrs.entries[name]; ok {
			return ctx.bindIfMethod(obj, local, true)
		}
	}
	v := obj.attrs.Get(name)
	if v == nil && fallback != "" {
		v = obj.attrs.Get(fallback)
	}
	return ctx.bindIfMethod(obj, v, false)
}

// getAttributeFromParents skips obj's own table and searches only the
// parent chain.
func (ctx *Context) getAttributeFromParents(obj *Obj, name string) (*Obj, bool) {
	return ctx.bindIfMethod(obj, obj.attrs.GetFromBase(name), false)
}

func (ctx *Context) bindIfMethod(obj, v *Obj, force bool) (*Obj, bool) {
	if v == nil || !v.isFunc() || !v.fn.isMethod || (obj.isClass() && !force) {
		return v, true
	}
	bound := Alloc(ctx)
	if bound == nil {
		return nil, false
	}
	bound.Type = typeFunc
	fn := *v.fn
	fn.self = obj
	bound.fn = &fn
	return bound, true
}

// truthy converts a value through __nonzero__, which must return a bool.
func (ctx *Context) truthy(v *Obj) (bool, bool) {
	res := ctx.CallMethod(v, "__nonzero__", nil, nil)
	if res == nil {
		return false, false
	}
	if !res.isBool() {
		ctx.RaiseException(ExcTypeError, "__nonzero__() returned a non bool type")
		return false, false
	}
	return res.b, true
}

// -----------------------------
// Script invocation
// -----------------------------

func liveExecutors(ctx *Context) []*executor { return ctx.executors }

// runScript binds arguments to parameter cells and executes a compiled
// function body. args already includes the bound self, if any.
func (ctx *Context) runScript(f *Func, args []*Obj, kwargsDict *Obj) *Obj {
	def := f.def

	vars := make(map[string]*Cell, len(def.variables)+len(def.parameters))
	for _, name := range def.variables {
		vars[name] = newCell(nil)
	}
	for name, cell := range def.captures {
		vars[name] = cell
	}

	kw := map[string]*Obj{}
	if kwargsDict != nil {
		kwargsDict.m.ForEach(func(k, v *Obj) bool {
			kw[k.s] = v
			return true
		})
	}

	params := def.parameters
	positional := args
	var extra []*Obj
	if len(positional) > len(params) {
		if def.listArgs == "" {
			ctx.RaiseArgumentCountError(len(args), len(params))
			return nil
		}
		extra = positional[len(params):]
		positional = positional[:len(params)]
	}

	firstDefault := len(params) - len(def.defaults)
	for i, p := range params {
		var value *Obj
		if i < len(positional) {
			if _, dup := kw[p.Name]; dup {
				ctx.RaiseException(ExcTypeError,
					fmt.Sprintf("%s() got multiple values for argument '%s'", def.prettyName, p.Name))
				return nil
			}
			value = positional[i]
		} else if v, ok := kw[p.Name]; ok {
			value = v
			delete(kw, p.Name)
		} else if p.HasDefault {
			value = def.defaults[i-firstDefault]
		} else {
			ctx.RaiseException(ExcTypeError,
				fmt.Sprintf("%s() missing required argument '%s'", def.prettyName, p.Name))
			return nil
		}
		vars[p.Name] = newCell(value)
	}

	if def.listArgs != "" {
		t := ctx.NewTuple(extra)
		if t == nil {
			return nil
		}
		vars[def.listArgs] = newCell(t)
	}
	if def.kwArgs != "" {
		d := ctx.NewDict(nil, nil)
		if d == nil {
			return nil
		}
		ctx.ProtectObject(d)
		for name, v := range kw {
			key := ctx.NewString(name)
			if key == nil {
				ctx.UnprotectObject(d)
				return nil
			}
			d.m.Set(key, v)
		}
		ctx.UnprotectObject(d)
		vars[def.kwArgs] = newCell(d)
	} else if len(kw) > 0 {
		for name := range kw {
			ctx.RaiseException(ExcTypeError,
				fmt.Sprintf("%s() got an unexpected keyword argument '%s'", def.prettyName, name))
			return nil
		}
	}

	ex := &executor{ctx: ctx, def: def, vars: vars}
	return ex.run()
}

// -----------------------------
// Executor
// -----------------------------

type kwargPair struct {
	name  string
	value *Obj
}

type argFrame struct {
	base   int
	kwargs []kwargPair
}

type tryFrame struct {
	exceptOffset  int
	finallyOffset int
	stackSize     int
	argFrameSize  int
	inExcept      bool
}

// queuedJump defers a control transfer (break/continue jump or return)
// through the finally blocks between it and its target.
type queuedJump struct {
	isReturn  bool
	target    int
	remaining int
	value     *Obj
}

// finallyState is what a finally block must not lose while its body runs:
// the in-flight queued jump or the pending exception that routed control
// here. PopTry parks the live registers into one of these; EndFinally
// consumes it. Code inside the finally body is then free to raise, catch,
// and loop with clean registers of its own. frameDepth identifies states
// orphaned by an exception escaping their finally body.
type finallyState struct {
	frameDepth int
	queued     *queuedJump
	exc        *Obj
	excTrace   []TraceFrame
}

type executor struct {
	ctx       *Context
	def       *ScriptFunc
	vars      map[string]*Cell
	stack     []*Obj
	argFrames []argFrame
	tryFrames []tryFrame
	queued    *queuedJump
	finallies []finallyState
	pc        int
	result    *Obj
	done      bool
}

// pushRoots reports every object the executor keeps alive to the GC.
func (ex *executor) pushRoots(push func(*Obj)) {
	for _, v := range ex.stack {
		push(v)
	}
	for _, f := range ex.argFrames {
		for _, kw := range f.kwargs {
			push(kw.value)
		}
	}
	for _, cell := range ex.vars {
		push(cell.v)
	}
	if ex.queued != nil {
		push(ex.queued.value)
	}
	for _, st := range ex.finallies {
		if st.queued != nil {
			push(st.queued.value)
		}
		push(st.exc)
	}
	push(ex.result)
}

func (ex *executor) push(v *Obj) { ex.stack = append(ex.stack, v) }
func (ex *executor) pop() *Obj {
	v := ex.stack[len(ex.stack)-1]
	ex.stack = ex.stack[:len(ex.stack)-1]
	return v
}
func (ex *executor) top() *Obj { return ex.stack[len(ex.stack)-1] }

func (ex *executor) run() *Obj {
	ctx := ex.ctx
	ctx.executors = append(ctx.executors, ex)
	defer func() { ctx.executors = ctx.executors[:len(ctx.executors)-1] }()

	instrs := ex.def.instructions
	for ex.pc < len(instrs) && !ex.done {
		in := &instrs[ex.pc]
		ex.updateTrace(in.Pos)
		if !ex.exec(in) {
			if !ex.unwindException() {
				return nil
			}
		}
	}
	if ex.done {
		return ex.result
	}
	return ctx.None()
}

func (ex *executor) updateTrace(pos SourcePos) {
	ctx := ex.ctx
	if len(ctx.currentTrace) == 0 {
		return
	}
	top := &ctx.currentTrace[len(ctx.currentTrace)-1]
	top.Pos = pos
	if pos.Line >= 1 && pos.Line <= len(ex.def.lines) {
		top.LineText = ex.def.lines[pos.Line-1]
	}
}

// unwindException transfers control to the innermost try frame: its except
// chain on first entry, its finally block when the exception arose inside a
// handler. Returns false when no frame remains and the exception leaves the
// invocation. The exception supersedes any in-flight jump and any finally
// states the unwound frames left behind.
func (ex *executor) unwindException() bool {
	ex.queued = nil
	if len(ex.tryFrames) == 0 {
		ex.finallies = nil
		return false
	}
	f := &ex.tryFrames[len(ex.tryFrames)-1]
	ex.stack = ex.stack[:f.stackSize]
	ex.argFrames = ex.argFrames[:f.argFrameSize]
	for len(ex.finallies) > 0 &&
		ex.finallies[len(ex.finallies)-1].frameDepth >= len(ex.tryFrames) {
		ex.finallies = ex.finallies[:len(ex.finallies)-1]
	}
	if !f.inExcept {
		f.inExcept = true
		ex.pc = f.exceptOffset
	} else {
		ex.pc = f.finallyOffset
	}
	return true
}

func (ex *executor) exec(in *Instruction) bool {
	ctx := ex.ctx
	switch in.Op {
	case OpcLiteral:
		v := ctx.newLiteral(in.Literal)
		if v == nil {
			return false
		}
		ex.push(v)

	case OpcVariable:
		v, ok := ex.lookupVariable(in.Name)
		if !ok {
			return false
		}
		ex.push(v)

	case OpcDot:
		obj := ex.pop()
		v, ok := ctx.getAttribute(obj, in.Name, in.Fallback, nil)
		if !ok {
			return false
		}
		if v == nil {
			ctx.RaiseAttributeError(obj, in.Name)
			return false
		}
		ex.push(v)

	case OpcPushArgFrame:
		ex.argFrames = append(ex.argFrames, argFrame{base: len(ex.stack)})

	case OpcPushKwarg:
		value := ex.pop()
		key := ex.pop()
		top := len(ex.argFrames) - 1
		ex.argFrames[top].kwargs = append(ex.argFrames[top].kwargs, kwargPair{key.s, value})

	case OpcUnpack:
		iterable := ex.pop()
		ok := ctx.Iterate(iterable, func(v *Obj) bool {
			ex.push(v)
			return true
		})
		if !ok {
			return false
		}

	case OpcUnpackMapForCall:
		d := ex.pop()
		if !d.isDict() {
			ctx.RaiseException(ExcTypeError, "Argument after ** must be a dictionary")
			return false
		}
		top := len(ex.argFrames) - 1
		ok := true
		d.m.ForEach(func(k, v *Obj) bool {
			if !k.isStr() {
				ctx.RaiseException(ExcTypeError, "Keywords must be strings")
				ok = false
				return false
			}
			ex.argFrames[top].kwargs = append(ex.argFrames[top].kwargs, kwargPair{k.s, v})
			return true
		})
		if !ok {
			return false
		}

	case OpcUnpackMapForMapCreation:
		d := ex.pop()
		if !d.isDict() {
			ctx.RaiseException(ExcTypeError, "Argument after ** must be a dictionary")
			return false
		}
		d.m.ForEach(func(k, v *Obj) bool {
			ex.push(k)
			ex.push(v)
			return true
		})

	case OpcCall:
		frame := ex.argFrames[len(ex.argFrames)-1]
		slots := ex.stack[frame.base:]
		if len(slots) == 0 {
			ctx.RaiseException(ExcTypeError, "Expression is not callable")
			return false
		}
		callee, args := slots[0], slots[1:]
		var kwargs *Obj
		if len(frame.kwargs) > 0 {
			kwargs = ctx.NewDict(nil, nil)
			if kwargs == nil {
				return false
			}
			ctx.ProtectObject(kwargs)
			for _, kw := range frame.kwargs {
				key := ctx.NewString(kw.name)
				if key == nil {
					ctx.UnprotectObject(kwargs)
					return false
				}
				kwargs.m.Set(key, kw.value)
			}
			ctx.UnprotectObject(kwargs)
		}
		ret := ctx.Call(callee, args, kwargs)
		ex.stack = ex.stack[:frame.base]
		ex.argFrames = ex.argFrames[:len(ex.argFrames)-1]
		if ret == nil {
			return false
		}
		ex.push(ret)

	case OpcTuple, OpcList, OpcSet:
		frame := ex.argFrames[len(ex.argFrames)-1]
		elems := append([]*Obj(nil), ex.stack[frame.base:]...)
		ex.stack = ex.stack[:frame.base]
		ex.argFrames = ex.argFrames[:len(ex.argFrames)-1]
		var v *Obj
		switch in.Op {
		case OpcTuple:
			v = ctx.NewTuple(elems)
		case OpcList:
			v = ctx.NewList(elems)
		default:
			v = ctx.NewSet(elems)
		}
		if v == nil {
			return false
		}
		ex.push(v)

	case OpcMap:
		frame := ex.argFrames[len(ex.argFrames)-1]
		d := ctx.NewDict(nil, nil)
		if d == nil {
			return false
		}
		// The pairs stay on the stack (rooted) until the dict holds them.
		pairs := ex.stack[frame.base:]
		for i := 0; i+1 < len(pairs); i += 2 {
			if !d.m.Set(pairs[i], pairs[i+1]) {
				ctx.raiseUnhashable(pairs[i])
				return false
			}
		}
		ex.stack = ex.stack[:frame.base]
		ex.argFrames = ex.argFrames[:len(ex.argFrames)-1]
		ex.push(d)

	case OpcSlice:
		step := ex.pop()
		stop := ex.pop()
		start := ex.pop()
		v := ctx.Call(ctx.builtins.slice, []*Obj{start, stop, step}, nil)
		if v == nil {
			return false
		}
		ex.push(v)

	case OpcPop:
		ex.pop()

	case OpcDup:
		ex.push(ex.stack[len(ex.stack)-1-in.Offset])

	case OpcNot:
		b, ok := ctx.truthy(ex.pop())
		if !ok {
			return false
		}
		v := ctx.NewBool(!b)
		if v == nil {
			return false
		}
		ex.push(v)

	case OpcIs:
		rhs := ex.pop()
		lhs := ex.pop()
		v := ctx.NewBool(lhs == rhs)
		if v == nil {
			return false
		}
		ex.push(v)

	case OpcJump:
		ex.pc = in.Jump
		return true

	case OpcJumpIfFalse, OpcJumpIfTrue:
		b, ok := ctx.truthy(ex.top())
		if !ok {
			return false
		}
		if b == (in.Op == OpcJumpIfTrue) {
			ex.pc = in.Jump
			return true
		}
		ex.pop()

	case OpcJumpIfFalsePop, OpcJumpIfTruePop:
		b, ok := ctx.truthy(ex.pop())
		if !ok {
			return false
		}
		if b == (in.Op == OpcJumpIfTruePop) {
			ex.pc = in.Jump
			return true
		}

	case OpcQueueJump:
		if in.FinallyCount > 0 {
			ex.queued = &queuedJump{target: in.Jump, remaining: in.FinallyCount}
			ex.pc = ex.tryFrames[len(ex.tryFrames)-1].finallyOffset
		} else {
			ex.pc = in.Jump
		}
		return true

	case OpcReturn:
		value := ex.pop()
		if in.FinallyCount == 0 {
			ex.result = value
			ex.done = true
			return true
		}
		ex.queued = &queuedJump{isReturn: true, value: value, remaining: in.FinallyCount}
		ex.pc = ex.tryFrames[len(ex.tryFrames)-1].finallyOffset
		return true

	case OpcPushTry:
		ex.tryFrames = append(ex.tryFrames, tryFrame{
			exceptOffset:  in.Try.ExceptOffset,
			finallyOffset: in.Try.FinallyOffset,
			stackSize:     len(ex.stack),
			argFrameSize:  len(ex.argFrames),
		})

	case OpcPopTry:
		ex.tryFrames = ex.tryFrames[:len(ex.tryFrames)-1]
		// Park the live registers so the finally body runs clean: its own
		// raises, handlers, and loops must not collide with the exception
		// or jump being propagated through it.
		ex.finallies = append(ex.finallies, finallyState{
			frameDepth: len(ex.tryFrames),
			queued:     ex.queued,
			exc:        ctx.currentException,
			excTrace:   ctx.exceptionTrace,
		})
		ex.queued = nil
		if ctx.currentException != nil {
			ctx.currentException = nil
			ctx.exceptionTrace = nil
		}

	case OpcEndFinally:
		if ctx.currentException != nil {
			return false
		}
		if len(ex.finallies) == 0 {
			break
		}
		st := ex.finallies[len(ex.finallies)-1]
		ex.finallies = ex.finallies[:len(ex.finallies)-1]
		switch {
		case st.exc != nil:
			// Re-raise the parked exception with its original trace.
			ctx.currentException = st.exc
			ctx.exceptionTrace = st.excTrace
			return false
		case st.queued != nil:
			st.queued.remaining--
			if st.queued.remaining == 0 {
				if st.queued.isReturn {
					ex.result = st.queued.value
					ex.done = true
				} else {
					ex.pc = st.queued.target
				}
				return true
			}
			// More finally blocks to run: hand the jump to the next
			// enclosing frame's finally, whose PopTry parks it again.
			ex.queued = st.queued
			ex.pc = ex.tryFrames[len(ex.tryFrames)-1].finallyOffset
			return true
		}

	case OpcClearException:
		ctx.ClearCurrentException()

	case OpcCurrentException:
		ex.push(ctx.currentException)

	case OpcIsInstance:
		ex.push(ctx.builtins.isinstance)

	case OpcRaise:
		v := ex.pop()
		if v.isClass() {
			v = ctx.Call(v, nil, nil)
			if v == nil {
				return false
			}
		}
		ctx.RaiseExceptionObject(v)
		return false

	case OpcDef:
		fn, ok := ex.makeFunction(in.Def)
		if !ok {
			return false
		}
		ex.push(fn)

	case OpcClass:
		if !ex.execClass(in) {
			return false
		}

	case OpcDirectAssign:
		if !ex.directAssign(in.Assign, ex.top()) {
			return false
		}

	case OpcMemberAssign:
		value := ex.pop()
		obj := ex.pop()
		obj.attrs.Set(in.Name, value)
		ex.push(value)

	case OpcStoreIndex:
		value := ex.pop()
		index := ex.pop()
		obj := ex.pop()
		if ctx.CallMethod(obj, "__setitem__", []*Obj{index, value}, nil) == nil {
			return false
		}
		ex.push(value)

	case OpcImport:
		if ctx.ImportModule(in.Import.Module, in.Import.Alias) == nil {
			return false
		}

	case OpcImportFrom:
		imp := in.Import
		if len(imp.Names) == 0 {
			if !ctx.ImportAllFromModule(imp.Module) {
				return false
			}
		} else if len(imp.Names) == 1 {
			if ctx.ImportFromModule(imp.Module, imp.Names[0], imp.Alias) == nil {
				return false
			}
		} else {
			for _, name := range imp.Names {
				if ctx.ImportFromModule(imp.Module, name, "") == nil {
					return false
				}
			}
		}
	}

	ex.pc++
	return true
}

// lookupVariable resolves a name: locals and captures, then the module's
// globals, then the builtins.
func (ex *executor) lookupVariable(name string) (*Obj, bool) {
	if cell, ok := ex.vars[name]; ok {
		if cell.v == nil {
			ex.ctx.RaiseNameError(name)
			return nil, false
		}
		return cell.v, true
	}
	if cell := ex.ctx.globalCell(ex.def.module, name, false); cell != nil && cell.v != nil {
		return cell.v, true
	}
	if cell := ex.ctx.globalCell("__builtins__", name, false); cell != nil && cell.v != nil {
		return cell.v, true
	}
	ex.ctx.RaiseNameError(name)
	return nil, false
}

func (ex *executor) assignName(name string, value *Obj) {
	if cell, ok := ex.vars[name]; ok {
		cell.v = value
		return
	}
	ex.ctx.globalCell(ex.def.module, name, true).v = value
}

func (ex *executor) directAssign(target *AssignTarget, value *Obj) bool {
	if target.Type == AssignDirect {
		ex.assignName(target.Direct, value)
		return true
	}

	// Pack target: collect the iterable and bind positional and starred
	// slots.
	var elems []*Obj
	ok := ex.ctx.Iterate(value, func(v *Obj) bool {
		elems = append(elems, v)
		return true
	})
	if !ok {
		return false
	}

	starIndex := -1
	for i, slot := range target.Pack {
		if slot.Star {
			starIndex = i
		}
	}
	fixed := len(target.Pack)
	if starIndex >= 0 {
		fixed--
	}
	if len(elems) < fixed || (starIndex < 0 && len(elems) > fixed) {
		if len(elems) > fixed {
			ex.ctx.RaiseException(ExcValueError, "Too many values to unpack")
		} else {
			ex.ctx.RaiseException(ExcValueError, "Not enough values to unpack")
		}
		return false
	}

	i := 0
	for slotIdx, slot := range target.Pack {
		if slot.Star {
			take := len(elems) - (len(target.Pack) - slotIdx - 1) - i
			lst := ex.ctx.NewList(append([]*Obj(nil), elems[i:i+take]...))
			if lst == nil {
				return false
			}
			ex.assignName(slot.Name, lst)
			i += take
			continue
		}
		ex.assignName(slot.Name, elems[i])
		i++
	}
	return true
}

// makeFunction materializes a function object for an OpcDef, popping its
// default values and resolving captures in the current frame.
func (ex *executor) makeFunction(def *DefInstruction) (*Obj, bool) {
	ctx := ex.ctx

	defaults := make([]*Obj, def.DefaultCount)
	for i := 0; i < def.DefaultCount; i++ {
		defaults[i] = ex.pop()
		ctx.ProtectObject(defaults[i])
	}
	defer func() {
		for _, d := range defaults {
			ctx.UnprotectObject(d)
		}
	}()

	captures := make(map[string]*Cell, len(def.LocalCaptures))
	for _, name := range def.LocalCaptures {
		cell, ok := ex.vars[name]
		if !ok {
			// The parser guarantees captures resolve; a miss here is a
			// compiler bug surfaced as a NameError rather than a crash.
			ctx.RaiseNameError(name)
			return nil, false
		}
		captures[name] = cell
	}

	fnObj := ctx.newFunctionObject()
	if fnObj == nil {
		return nil, false
	}
	fnObj.fn = &Func{
		def: &ScriptFunc{
			instructions: def.Instructions,
			parameters:   def.Parameters,
			defaults:     defaults,
			listArgs:     def.ListArgs,
			kwArgs:       def.KwArgs,
			variables:    def.Variables,
			captures:     captures,
			globals:      def.GlobalCaptures,
			module:       ex.def.module,
			prettyName:   def.PrettyName,
			lines:        ex.def.lines,
		},
		isMethod:   def.IsMethod,
		module:     ex.def.module,
		prettyName: def.PrettyName,
	}
	return fnObj, true
}

// execClass builds a class from the arg-frame-delimited bases and the
// method functions stacked just below the frame.
func (ex *executor) execClass(in *Instruction) bool {
	ctx := ex.ctx
	frame := ex.argFrames[len(ex.argFrames)-1]
	bases := append([]*Obj(nil), ex.stack[frame.base:]...)
	for _, b := range bases {
		if !b.isClass() {
			ctx.RaiseException(ExcTypeError, "Base must be a class")
			return false
		}
	}

	methodCount := len(in.Class.MethodNames)
	methods := append([]*Obj(nil), ex.stack[frame.base-methodCount:frame.base]...)

	cls := ctx.NewClass(in.Class.PrettyName, bases)
	if cls == nil {
		return false
	}
	for i, name := range in.Class.MethodNames {
		ctx.AddAttributeToClass(cls, name, methods[i])
		ctx.LinkReference(methods[i], cls)
	}

	ex.stack = ex.stack[:frame.base-methodCount]
	ex.argFrames = ex.argFrames[:len(ex.argFrames)-1]
	ex.push(cls)
	return true
}
