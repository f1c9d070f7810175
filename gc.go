// gc.go — arena allocation and the context-local mark-and-sweep collector.
//
// Closures pin their environments, classes pin their methods, instances pin
// their classes: cycles are the normal case, so lifetimes are managed by
// tracing from the context roots rather than by reference counting. Objects
// being assembled before they are reachable from a root are kept alive by
// the protection multiset.

package talon

// Alloc creates a zero-initialized object registered with the context arena.
// It may trigger a collection first; a collection never runs while lockGc is
// held, so allocation-critical sections cannot observe half-built objects.
// Returns nil with MemoryError set when MaxAlloc would be exceeded.
func Alloc(ctx *Context) *Obj {
	if !ctx.lockGc {
		threshold := int(float64(ctx.lastCountAfterGC) * ctx.config.GcRunFactor)
		// A floor keeps a young arena from collecting on every allocation.
		if threshold < 1024 {
			threshold = 1024
		}
		if len(ctx.arena) >= threshold {
			ctx.CollectGarbage()
		}
	}

	if ctx.config.MaxAlloc > 0 && len(ctx.arena) >= ctx.config.MaxAlloc && !ctx.raisingOOM {
		ctx.CollectGarbage()
		if len(ctx.arena) >= ctx.config.MaxAlloc {
			raiseMemoryError(ctx)
			return nil
		}
	}

	obj := &Obj{Type: typeNone, ctx: ctx}
	ctx.arena = append(ctx.arena, obj)
	return obj
}

// ProtectObject adds obj to the protection multiset; GC treats every member
// as a root until the matching UnprotectObject.
func (ctx *Context) ProtectObject(obj *Obj) {
	ctx.protected[obj]++
}

// UnprotectObject removes one protection reference added by ProtectObject.
func (ctx *Context) UnprotectObject(obj *Obj) {
	n := ctx.protected[obj]
	if n <= 1 {
		delete(ctx.protected, obj)
		return
	}
	ctx.protected[obj] = n - 1
}

// LinkReference keeps child alive for as long as parent is.
func (ctx *Context) LinkReference(parent, child *Obj) {
	parent.references = append(parent.references, child)
}

// UnlinkReference removes one reference previously added with LinkReference.
func (ctx *Context) UnlinkReference(parent, child *Obj) {
	for i, c := range parent.references {
		if c == child {
			parent.references = append(parent.references[:i], parent.references[i+1:]...)
			return
		}
	}
}

// CollectGarbage runs a full mark-and-sweep. Unreachable objects have their
// finalizer invoked once and are removed from the arena.
func (ctx *Context) CollectGarbage() {
	if ctx.lockGc {
		return
	}
	ctx.lockGc = true
	defer func() { ctx.lockGc = false }()

	var pending []*Obj
	push := func(o *Obj) {
		if o != nil {
			pending = append(pending, o)
		}
	}

	// Roots.
	push(ctx.currentException)
	for obj := range ctx.protected {
		push(obj)
	}
	for _, globals := range ctx.globals {
		for _, cell := range globals {
			push(cell.v)
		}
	}
	for _, kw := range ctx.kwargsStack {
		push(kw)
	}
	for _, obj := range ctx.builtins.all() {
		push(obj)
	}
	push(ctx.argv)
	for _, ex := range liveExecutors(ctx) {
		ex.pushRoots(push)
	}

	// Mark.
	marked := map[*Obj]bool{}
	for len(pending) > 0 {
		obj := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if marked[obj] {
			continue
		}
		marked[obj] = true

		switch obj.Type {
		case typeTuple, typeList:
			pending = append(pending, obj.v...)
		case typeDict:
			if obj.m != nil {
				obj.m.ForEach(func(k, v *Obj) bool {
					pending = append(pending, k, v)
					return true
				})
			}
		case typeSet:
			if obj.set != nil {
				obj.set.ForEach(func(k *Obj) bool {
					pending = append(pending, k)
					return true
				})
			}
		case typeFunc:
			if obj.fn != nil {
				push(obj.fn.self)
				if obj.fn.def != nil {
					for _, d := range obj.fn.def.defaults {
						push(d)
					}
					for _, cell := range obj.fn.def.captures {
						push(cell.v)
					}
				}
			}
		case typeClass:
			if obj.cls != nil {
				pending = append(pending, obj.cls.bases...)
				obj.cls.instanceAttributes.ForEach(func(v *Obj) {
					pending = append(pending, v)
				})
			}
		}

		obj.attrs.ForEach(func(v *Obj) {
			pending = append(pending, v)
		})
		pending = append(pending, obj.references...)
	}

	// Sweep: finalize first so a finalizer still sees its object intact.
	for _, obj := range ctx.arena {
		if !marked[obj] && obj.finalizer.Fn != nil {
			obj.finalizer.Fn(obj, obj.finalizer.Userdata)
			obj.finalizer.Fn = nil
		}
	}
	kept := ctx.arena[:0]
	for _, obj := range ctx.arena {
		if marked[obj] {
			kept = append(kept, obj)
		}
	}
	// Drop the tail so swept objects are not pinned by the backing array.
	for i := len(kept); i < len(ctx.arena); i++ {
		ctx.arena[i] = nil
	}
	ctx.arena = kept
	ctx.lastCountAfterGC = len(ctx.arena)
}
