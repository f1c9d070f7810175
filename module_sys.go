// module_sys.go — the sys module: argv, exit, and the stdin handle.

package talon

import "math"

func importSys(ctx *Context) bool {
	if ctx.argv != nil {
		ctx.SetGlobal("argv", ctx.argv)
	}
	maxsize := ctx.NewInt(math.MaxInt64)
	if maxsize == nil {
		return false
	}
	ctx.SetGlobal("maxsize", maxsize)

	version := ctx.NewString(Version)
	if version == nil {
		return false
	}
	ctx.SetGlobal("version", version)

	if ctx.RegisterFunction("exit", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgBetween(ctx, argv, 0, 1) {
			return nil
		}
		msg := ""
		if len(argv) == 1 {
			if s := ctx.Str(argv[0]); s != nil {
				msg = s.s
			}
		}
		ctx.RaiseException(ExcSystemExit, msg)
		return nil
	}) == nil {
		return false
	}

	// sys.stdin carries just enough surface for isatty().
	stdin := ctx.Call(ctx.builtins.object, nil, nil)
	if stdin == nil {
		return false
	}
	ctx.ProtectObject(stdin)
	defer ctx.UnprotectObject(stdin)
	isatty := ctx.NewFunction(func(ctx *Context, argv []*Obj) *Obj {
		return ctx.NewBool(ctx.config.Isatty)
	}, nil, "isatty")
	if isatty == nil {
		return false
	}
	stdin.attrs.Set("isatty", isatty)
	ctx.SetGlobal("stdin", stdin)
	return true
}
