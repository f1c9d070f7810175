// object.go — the Talon runtime value model.
//
// Every runtime value is a heap-allocated *Obj owned by a Context arena.
// The Type tag (a short string such as "__int", "__list", "__class", or a
// user class name) decides which payload field is live. Attribute lookup is
// per-object through an AttributeTable whose parent chain implements
// multi-parent (diamond-safe) inheritance; method values found through a
// lookup are bound to their receiver by the caller.
//
// Mutable variable slots (module globals and captured locals) are Cells: a
// one-slot indirection shared between the defining frame and every closure
// that captures the name, so mutation on either side is seen by both.
//
// Dicts and sets are keyed by structural value hashing over the immutable
// types (None, bool, int, float, str, and tuples thereof); anything else is
// unhashable and raises TypeError at the call site.

package talon

import (
	"hash/fnv"
	"math"
)

// -----------------------------
// Type tags
// -----------------------------

const (
	typeNone  = "__null"
	typeBool  = "__bool"
	typeInt   = "__int"
	typeFloat = "__float"
	typeStr   = "__str"
	typeTuple = "__tuple"
	typeList  = "__list"
	typeDict  = "__map"
	typeSet   = "__set"
	typeFunc  = "__func"
	typeClass = "__class"
)

// typeName renders a tag the way error messages spell it.
func typeName(tag string) string {
	switch tag {
	case typeNone:
		return "NoneType"
	case typeBool:
		return "bool"
	case typeInt:
		return "int"
	case typeFloat:
		return "float"
	case typeStr:
		return "str"
	case typeTuple:
		return "tuple"
	case typeList:
		return "list"
	case typeDict:
		return "dict"
	case typeSet:
		return "set"
	case typeFunc:
		return "function"
	case typeClass:
		return "class"
	case "__module":
		return "module"
	default:
		return tag
	}
}

// -----------------------------
// Obj
// -----------------------------

// Finalizer runs exactly once, immediately before the owning arena drops the
// object. Finalizers may only release native resources; they must not call
// back into the interpreter.
type Finalizer struct {
	Fn       func(obj *Obj, userdata any)
	Userdata any
}

// Obj is the universal runtime value. The Type tag determines which payload
// field is live; the zero payload of every other field is ignored.
type Obj struct {
	Type string

	// Payload variants.
	b   bool
	i   int64
	f   float64
	s   string
	v   []*Obj // tuple and list elements
	m   *Dict
	set *Set
	fn  *Func
	cls *Class
	ud  any // opaque userdata payload

	attrs AttributeTable

	finalizer Finalizer

	// references holds auxiliary owned refs kept alive as long as this
	// object is (closure cells' contents, a method's class, ...).
	references []*Obj

	ctx *Context
}

// Context returns the owning interpreter context.
func (o *Obj) Context() *Context { return o.ctx }

func (o *Obj) isNone() bool  { return o.Type == typeNone }
func (o *Obj) isBool() bool  { return o.Type == typeBool }
func (o *Obj) isInt() bool   { return o.Type == typeInt }
func (o *Obj) isFloat() bool { return o.Type == typeFloat }
func (o *Obj) isNumber() bool {
	return o.Type == typeInt || o.Type == typeFloat
}
func (o *Obj) isStr() bool   { return o.Type == typeStr }
func (o *Obj) isTuple() bool { return o.Type == typeTuple }
func (o *Obj) isList() bool  { return o.Type == typeList }
func (o *Obj) isDict() bool  { return o.Type == typeDict }
func (o *Obj) isSet() bool   { return o.Type == typeSet }
func (o *Obj) isFunc() bool  { return o.Type == typeFunc }
func (o *Obj) isClass() bool { return o.Type == typeClass }

// float widens ints so numeric dunders can mix operand kinds.
func (o *Obj) float() float64 {
	if o.Type == typeInt {
		return float64(o.i)
	}
	return o.f
}

// -----------------------------
// Functions
// -----------------------------

// NativeFunc is the implementation signature for functions provided by the
// host or the builtin binder. argv already includes the bound self, if any.
// A nil return means the callee raised; the current exception is set on ctx.
type NativeFunc func(ctx *Context, argv []*Obj) *Obj

// Param is one positional parameter of a scripted function.
type Param struct {
	Name       string
	HasDefault bool
}

// ScriptFunc is the compiled body of a function defined in the Language.
type ScriptFunc struct {
	instructions []Instruction
	parameters   []Param
	defaults     []*Obj // values for the trailing defaulted parameters
	listArgs     string // *args name, or ""
	kwArgs       string // **kwargs name, or ""
	variables    []string
	captures     map[string]*Cell // localCaptures resolved at definition time
	globals      []string         // names resolved against the module globals
	module       string
	prettyName   string
	lines        []string // source lines for traceback rendering
}

// Func is the payload of a "__func" object. Exactly one of fptr and def is
// set. self is filled in by attribute lookup when isMethod is true.
type Func struct {
	self       *Obj
	fptr       NativeFunc
	def        *ScriptFunc
	userdata   any
	isMethod   bool
	module     string
	prettyName string
}

// Class is the payload of a "__class" object.
type Class struct {
	name string
	// bases in declaration order; attribute lookup is depth-first
	// through instanceAttributes' parent chain.
	bases []*Obj
	// instanceAttributes is the prototype copied into each new instance.
	// It is not mutated after the class is first instantiated.
	instanceAttributes *AttributeTable
	ctor               NativeFunc
	userdata           any
	module             string
}

// -----------------------------
// Cells
// -----------------------------

// Cell is a one-slot container shared between a defining frame and the
// closures that capture its variable.
type Cell struct {
	v *Obj
}

func newCell(v *Obj) *Cell { return &Cell{v: v} }

// -----------------------------
// Attribute tables
// -----------------------------

// AttributeTable maps attribute names to objects, with an ordered list of
// parent tables searched transitively on a miss. Set always writes locally.
type AttributeTable struct {
	entries map[string]*Obj
	parents []*AttributeTable
}

func newAttributeTable() *AttributeTable {
	return &AttributeTable{entries: map[string]*Obj{}}
}

// Get searches this table, then the parent chain depth-first, first-found
// wins. A visited set guards diamond-shaped parent graphs.
func (t *AttributeTable) Get(name string) *Obj {
	visited := map[*AttributeTable]bool{}
	return t.get(name, visited)
}

func (t *AttributeTable) get(name string, visited map[*AttributeTable]bool) *Obj {
	if visited[t] {
		return nil
	}
	visited[t] = true
	if v, ok := t.entries[name]; ok {
		return v
	}
	for _, p := range t.parents {
		if v := p.get(name, visited); v != nil {
			return v
		}
	}
	return nil
}

// GetFromBase skips the local entries and searches only the parent chain.
func (t *AttributeTable) GetFromBase(name string) *Obj {
	visited := map[*AttributeTable]bool{t: true}
	for _, p := range t.parents {
		if v := p.get(name, visited); v != nil {
			return v
		}
	}
	return nil
}

// Set writes locally, shadowing any parent entry.
func (t *AttributeTable) Set(name string, v *Obj) {
	if t.entries == nil {
		t.entries = map[string]*Obj{}
	}
	t.entries[name] = v
}

// AddParent appends a parent table to the search chain.
func (t *AttributeTable) AddParent(p *AttributeTable) {
	t.parents = append(t.parents, p)
}

// Copy snapshots the local entries and shares the parent links. Instances
// are built from class prototypes this way.
func (t *AttributeTable) Copy() *AttributeTable {
	c := &AttributeTable{
		entries: make(map[string]*Obj, len(t.entries)),
		parents: append([]*AttributeTable(nil), t.parents...),
	}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}

// ForEach visits every local entry (parents excluded).
func (t *AttributeTable) ForEach(fn func(v *Obj)) {
	for _, v := range t.entries {
		fn(v)
	}
}

func (t *AttributeTable) empty() bool { return len(t.entries) == 0 }

// -----------------------------
// Value hashing & equality
// -----------------------------

// objHash hashes the immutable value types. The second result is false for
// unhashable values (lists, dicts, sets, arbitrary instances).
func objHash(o *Obj) (uint64, bool) {
	switch o.Type {
	case typeNone:
		return 0x9e3779b97f4a7c15, true
	case typeBool:
		if o.b {
			return 1, true
		}
		return 0, true
	case typeInt:
		return uint64(o.i), true
	case typeFloat:
		// Integral floats hash like the equal int so 1 and 1.0 collide.
		if o.f == math.Trunc(o.f) && !math.IsInf(o.f, 0) {
			return uint64(int64(o.f)), true
		}
		return math.Float64bits(o.f), true
	case typeStr:
		h := fnv.New64a()
		h.Write([]byte(o.s))
		return h.Sum64(), true
	case typeTuple:
		var h uint64 = 0xcbf29ce484222325
		for _, e := range o.v {
			eh, ok := objHash(e)
			if !ok {
				return 0, false
			}
			h = (h ^ eh) * 0x100000001b3
		}
		return h, true
	default:
		return 0, false
	}
}

// objEqual is structural equality over the hashable value space. It is used
// for dict/set key identity; the Language-level __eq__ methods agree with it
// on the builtin types.
func objEqual(a, b *Obj) bool {
	if a == b {
		return true
	}
	if a.isNumber() && b.isNumber() {
		return a.float() == b.float()
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case typeNone:
		return true
	case typeBool:
		return a.b == b.b
	case typeStr:
		return a.s == b.s
	case typeTuple:
		if len(a.v) != len(b.v) {
			return false
		}
		for i := range a.v {
			if !objEqual(a.v[i], b.v[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// -----------------------------
// Dict
// -----------------------------

type dictEntry struct {
	key, val *Obj
}

// Dict is an insertion-ordered map keyed by value hash over the immutable
// types. Callers must check hashability (objHash) and raise TypeError before
// inserting or probing with an unhashable key.
type Dict struct {
	buckets map[uint64][]dictEntry
	order   []*Obj // keys in insertion order
}

func newDict() *Dict {
	return &Dict{buckets: map[uint64][]dictEntry{}}
}

func (d *Dict) Len() int { return len(d.order) }

// Get returns the value for key, or nil if absent. ok distinguishes an
// absent key from an unhashable one.
func (d *Dict) Get(key *Obj) (val *Obj, ok bool) {
	h, hok := objHash(key)
	if !hok {
		return nil, false
	}
	for _, e := range d.buckets[h] {
		if objEqual(e.key, key) {
			return e.val, true
		}
	}
	return nil, true
}

// Set inserts or replaces. Reports false for unhashable keys.
func (d *Dict) Set(key, val *Obj) bool {
	h, hok := objHash(key)
	if !hok {
		return false
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		if objEqual(e.key, key) {
			bucket[i].val = val
			return true
		}
	}
	d.buckets[h] = append(bucket, dictEntry{key, val})
	d.order = append(d.order, key)
	return true
}

// Delete removes key if present; the first result reports presence.
func (d *Dict) Delete(key *Obj) (removed *Obj, ok bool) {
	h, hok := objHash(key)
	if !hok {
		return nil, false
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		if objEqual(e.key, key) {
			d.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			for j, k := range d.order {
				if objEqual(k, key) {
					d.order = append(d.order[:j], d.order[j+1:]...)
					break
				}
			}
			return e.val, true
		}
	}
	return nil, true
}

// ForEach visits entries in insertion order.
func (d *Dict) ForEach(fn func(key, val *Obj) bool) {
	for _, k := range d.order {
		h, _ := objHash(k)
		for _, e := range d.buckets[h] {
			if objEqual(e.key, k) {
				if !fn(e.key, e.val) {
					return
				}
				break
			}
		}
	}
}

// -----------------------------
// Set
// -----------------------------

// Set shares the dict machinery with values ignored.
type Set struct {
	d Dict
}

func newSet() *Set {
	return &Set{d: Dict{buckets: map[uint64][]dictEntry{}}}
}

func (s *Set) Len() int { return s.d.Len() }

func (s *Set) Contains(key *Obj) (found, hashable bool) {
	v, ok := s.d.Get(key)
	if !ok {
		return false, false
	}
	return v != nil, true
}

func (s *Set) Add(key *Obj) bool { return s.d.Set(key, key) }

func (s *Set) Remove(key *Obj) (found, hashable bool) {
	v, ok := s.d.Delete(key)
	if !ok {
		return false, false
	}
	return v != nil, true
}

func (s *Set) ForEach(fn func(key *Obj) bool) {
	s.d.ForEach(func(k, _ *Obj) bool { return fn(k) })
}
