// context.go — per-interpreter state: the object arena, module registry,
// globals, loaders, and the current exception.
//
// A Context is the unit of isolation. It owns every object allocated under
// it, the per-module global tables (name → cell), the registered module
// loaders, and the exception/trace slots. Contexts are single-threaded;
// separate contexts are fully independent.

package talon

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// -----------------------------
// Configuration
// -----------------------------

// PrintFunc is the output sink used by the builtin print.
type PrintFunc func(text string, userdata any)

// Config controls resource caps and host integration for a Context.
type Config struct {
	// MaxAlloc caps live objects; exceeding it raises MemoryError.
	MaxAlloc int
	// MaxRecursion caps interpreter frame depth; exceeding it raises
	// RecursionError.
	MaxRecursion int
	// MaxCollectionSize caps container element counts.
	MaxCollectionSize int
	// GcRunFactor is the arena growth factor before the next automatic
	// collection. Must be >= 1.
	GcRunFactor float64
	// Print receives the output of the builtin print.
	Print         PrintFunc
	PrintUserdata any
	// Argv becomes sys.argv.
	Argv []string
	// EnableOSAccess gates registration of the os module.
	EnableOSAccess bool
	// Isatty is surfaced by sys.stdin.isatty().
	Isatty bool
}

// DefaultConfig returns the documented defaults: stdout printing, no OS
// access, and the standard resource caps.
func DefaultConfig() Config {
	return Config{
		MaxAlloc:          100_000,
		MaxRecursion:      100,
		MaxCollectionSize: 1_000_000_000,
		GcRunFactor:       2.0,
		Print: func(text string, _ any) {
			os.Stdout.WriteString(text)
		},
	}
}

// -----------------------------
// Traceback frames
// -----------------------------

// TraceFrame is one entry of the call trace used for tracebacks.
type TraceFrame struct {
	Pos         SourcePos
	LineText    string
	Module      string
	Func        string
	SyntaxError bool
}

const defaultFuncName = "<unnamed>"

// -----------------------------
// Builtin slots
// -----------------------------

// builtinSlots caches the objects the runtime needs by identity: the builtin
// classes, the exception hierarchy, and a few bootstrap functions.
type builtinSlots struct {
	none *Obj

	object   *Obj
	noneType *Obj
	boolCls  *Obj
	intCls   *Obj
	floatCls *Obj
	strCls   *Obj
	tuple    *Obj
	list     *Obj
	dict     *Obj
	set      *Obj
	funcCls  *Obj
	slice    *Obj

	isinstance *Obj
	lenFn      *Obj
	reprFn     *Obj

	baseException       *Obj
	systemExit          *Obj
	exception           *Obj
	stopIteration       *Obj
	arithmeticError     *Obj
	overflowError       *Obj
	zeroDivisionError   *Obj
	attributeError      *Obj
	importError         *Obj
	lookupError         *Obj
	indexError          *Obj
	keyError            *Obj
	memoryError         *Obj
	nameError           *Obj
	osError             *Obj
	isADirectoryError   *Obj
	runtimeError        *Obj
	notImplementedError *Obj
	recursionError      *Obj
	syntaxError         *Obj
	typeError           *Obj
	valueError          *Obj
}

func (b *builtinSlots) all() []*Obj {
	return []*Obj{
		b.none,
		b.object, b.noneType, b.boolCls, b.intCls, b.floatCls, b.strCls,
		b.tuple, b.list, b.dict, b.set, b.funcCls, b.slice,
		b.isinstance, b.lenFn, b.reprFn,
		b.baseException, b.systemExit, b.exception, b.stopIteration,
		b.arithmeticError, b.overflowError, b.zeroDivisionError,
		b.attributeError, b.importError, b.lookupError, b.indexError,
		b.keyError, b.memoryError, b.nameError, b.osError,
		b.isADirectoryError, b.runtimeError, b.notImplementedError,
		b.recursionError, b.syntaxError, b.typeError, b.valueError,
	}
}

// -----------------------------
// Context
// -----------------------------

// ModuleLoader populates the globals of a module being imported. It runs
// with the module's name pushed on the current-module stack and reports
// success; on failure it must leave the current exception set.
type ModuleLoader func(ctx *Context) bool

// Context owns all interpreter state: the arena, globals, modules, and the
// current exception. It is not safe for concurrent use; create one context
// per goroutine instead.
type Context struct {
	config Config

	// Arena and GC state.
	arena            []*Obj
	protected        map[*Obj]int
	lockGc           bool
	lastCountAfterGC int

	// Module state. globals maps module name → (name → cell).
	globals       map[string]map[string]*Cell
	currentModule []string
	moduleLoaders map[string]ModuleLoader
	importPath    string

	// Exception state.
	currentException *Obj
	exceptionTrace   []TraceFrame
	traceMessage     string

	// Call state.
	currentTrace []TraceFrame
	kwargsStack  []*Obj
	userdataAny  []any
	depth        int
	executors    []*executor
	raisingOOM   bool
	raisingError bool

	builtins builtinSlots
	argv     *Obj
}

// errorCallback is the only process-wide state; it is guarded because hosts
// may set it from any goroutine.
var (
	errorCallbackMu sync.Mutex
	errorCallback   func(message string)
)

// SetErrorCallback registers a process-wide callback invoked with the
// rendered traceback whenever an exception escapes a host entry point.
func SetErrorCallback(cb func(message string)) {
	errorCallbackMu.Lock()
	defer errorCallbackMu.Unlock()
	errorCallback = cb
}

func invokeErrorCallback(message string) {
	errorCallbackMu.Lock()
	cb := errorCallback
	errorCallbackMu.Unlock()
	if cb != nil {
		cb(message)
	}
}

// NewContext creates a context, registers the builtin classes, functions and
// standard modules, and runs the Language-level prelude. A nil config uses
// DefaultConfig. Returns nil if the builtin bootstrap fails, if config is
// invalid (GcRunFactor below 1 or a negative cap), or if sys.argv cannot be
// built.
func NewContext(config *Config) *Context {
	ctx := &Context{
		config:        DefaultConfig(),
		protected:     map[*Obj]int{},
		globals:       map[string]map[string]*Cell{},
		moduleLoaders: map[string]ModuleLoader{},
	}
	ctx.currentModule = []string{"__main__"}
	ctx.globals["__main__"] = map[string]*Cell{}

	ctx.RegisterModule("__builtins__", importBuiltins)
	ctx.RegisterModule("math", importMath)
	ctx.RegisterModule("random", importRandom)
	ctx.RegisterModule("sys", importSys)
	ctx.RegisterModule("time", importTime)
	if !ctx.ImportAllFromModule("__builtins__") {
		return nil
	}

	if config != nil {
		if config.GcRunFactor < 1.0 || config.MaxAlloc < 0 ||
			config.MaxRecursion < 0 || config.MaxCollectionSize < 0 {
			return nil
		}
		ctx.config = *config
		if ctx.config.Print == nil {
			ctx.config.Print = DefaultConfig().Print
		}
	}
	if ctx.config.EnableOSAccess {
		ctx.RegisterModule("os", importOS)
	}

	if !initArgv(ctx, ctx.config.Argv) {
		return nil
	}
	return ctx
}

// Destroy runs every finalizer and releases all objects owned by the
// context. The context must not be used afterwards.
func (ctx *Context) Destroy() {
	for _, obj := range ctx.arena {
		if obj.finalizer.Fn != nil {
			obj.finalizer.Fn(obj, obj.finalizer.Userdata)
			obj.finalizer.Fn = nil
		}
	}
	ctx.arena = nil
	ctx.protected = map[*Obj]int{}
	ctx.globals = map[string]map[string]*Cell{}
	ctx.currentException = nil
}

// Print writes through the configured print sink.
func (ctx *Context) Print(text string) {
	if ctx.config.Print != nil {
		ctx.config.Print(text, ctx.config.PrintUserdata)
	}
}

// -----------------------------
// Globals
// -----------------------------

func (ctx *Context) module() string {
	return ctx.currentModule[len(ctx.currentModule)-1]
}

func (ctx *Context) moduleGlobals(module string) map[string]*Cell {
	g, ok := ctx.globals[module]
	if !ok {
		g = map[string]*Cell{}
		ctx.globals[module] = g
	}
	return g
}

// globalCell returns the cell for name in module, creating it when create is
// set. Shared cells are how nested functions observe global rebinding.
func (ctx *Context) globalCell(module, name string, create bool) *Cell {
	g := ctx.moduleGlobals(module)
	if c, ok := g[name]; ok {
		return c
	}
	if !create {
		return nil
	}
	c := newCell(nil)
	g[name] = c
	return c
}

// GetGlobal reads a global from the module on top of the module stack.
// Returns nil if the name is unbound.
func (ctx *Context) GetGlobal(name string) *Obj {
	if c := ctx.globalCell(ctx.module(), name, false); c != nil {
		return c.v
	}
	return nil
}

// SetGlobal binds a global in the module on top of the module stack.
func (ctx *Context) SetGlobal(name string, value *Obj) {
	ctx.globalCell(ctx.module(), name, true).v = value
}

// -----------------------------
// Modules & imports
// -----------------------------

// RegisterModule installs a loader consulted before the import path.
func (ctx *Context) RegisterModule(name string, loader ModuleLoader) {
	ctx.moduleLoaders[name] = loader
}

// SetImportPath sets the directory searched by file imports.
func (ctx *Context) SetImportPath(path string) {
	ctx.importPath = path
	if path != "" && path[len(path)-1] != '/' {
		ctx.importPath += "/"
	}
}

func (ctx *Context) loadFileModule(name string) bool {
	path := ctx.importPath + name + ".py"
	source, err := os.ReadFile(path)
	if err != nil {
		ctx.RaiseException(ExcImportError, fmt.Sprintf("No module named '%s'", name))
		return false
	}
	fn := compileInModule(ctx, string(source), name, name, false)
	if fn == nil {
		return false
	}
	return ctx.Call(fn, nil, nil) != nil
}

// loadModule runs a module's loader (or file) once; subsequent imports see
// the cached globals. Failed loads are not cached.
func (ctx *Context) loadModule(name string) bool {
	if _, done := ctx.globals[name]; done {
		return true
	}
	ctx.globals[name] = map[string]*Cell{}
	ctx.currentModule = append(ctx.currentModule, name)

	success := false
	if name != "__builtins__" {
		success = ctx.ImportAllFromModule("__builtins__")
	} else {
		success = true
	}
	if success {
		if loader, ok := ctx.moduleLoaders[name]; ok {
			success = loader(ctx)
		} else {
			success = ctx.loadFileModule(name)
		}
	}

	ctx.currentModule = ctx.currentModule[:len(ctx.currentModule)-1]
	if !success {
		delete(ctx.globals, name)
		return false
	}
	return true
}

// ImportModule imports a module and binds a module object under alias (or
// the module's own name) in the current module's globals.
func (ctx *Context) ImportModule(module, alias string) *Obj {
	if alias == "" {
		alias = module
	}
	if !ctx.loadModule(module) {
		return nil
	}

	mod := Alloc(ctx)
	if mod == nil {
		return nil
	}
	mod.Type = "__module"
	mod.s = module
	names := make([]string, 0, len(ctx.globals[module]))
	for name := range ctx.globals[module] {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := ctx.globals[module][name].v; v != nil {
			mod.attrs.Set(name, v)
		}
	}
	ctx.SetGlobal(alias, mod)
	return mod
}

// ImportFromModule imports a single name from a module under alias.
func (ctx *Context) ImportFromModule(module, name, alias string) *Obj {
	if alias == "" {
		alias = name
	}
	if !ctx.loadModule(module) {
		return nil
	}
	c := ctx.globalCell(module, name, false)
	if c == nil || c.v == nil {
		ctx.RaiseException(ExcImportError,
			fmt.Sprintf("Cannot import '%s' from '%s'", name, module))
		return nil
	}
	ctx.SetGlobal(alias, c.v)
	return c.v
}

// ImportAllFromModule imports every binding of a module into the current
// module's globals.
func (ctx *Context) ImportAllFromModule(module string) bool {
	if !ctx.loadModule(module) {
		return false
	}
	for name, cell := range ctx.globals[module] {
		if cell.v != nil {
			ctx.SetGlobal(name, cell.v)
		}
	}
	return true
}

// -----------------------------
// Call plumbing shared with natives
// -----------------------------

// Kwargs returns the keyword-argument dict of the innermost native call,
// materializing an empty dict when the caller passed none.
func (ctx *Context) Kwargs() *Obj {
	if len(ctx.kwargsStack) == 0 {
		return nil
	}
	top := len(ctx.kwargsStack) - 1
	if ctx.kwargsStack[top] == nil {
		ctx.kwargsStack[top] = ctx.NewDict(nil, nil)
	}
	return ctx.kwargsStack[top]
}

// FunctionUserdata returns the userdata of the innermost native call.
func (ctx *Context) FunctionUserdata() any {
	if len(ctx.userdataAny) == 0 {
		return nil
	}
	return ctx.userdataAny[len(ctx.userdataAny)-1]
}

func initArgv(ctx *Context, argv []string) bool {
	elems := make([]*Obj, 0, len(argv)+1)
	if len(argv) == 0 {
		argv = []string{""}
	}
	defer func() {
		for _, e := range elems {
			ctx.UnprotectObject(e)
		}
	}()
	for _, a := range argv {
		s := ctx.NewString(a)
		if s == nil {
			return false
		}
		ctx.ProtectObject(s)
		elems = append(elems, s)
	}
	lst := ctx.NewList(elems)
	if lst == nil {
		return false
	}
	ctx.argv = lst
	return true
}
