// module_os.go — the os module, registered only when the host enables OS
// access.

package talon

import "os"

func raiseOSError(ctx *Context, err error) *Obj {
	ctx.RaiseException(ExcOSError, err.Error())
	return nil
}

func importOS(ctx *Context) bool {
	ok := ctx.RegisterFunction("getcwd", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 0) {
			return nil
		}
		dir, err := os.Getwd()
		if err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.NewString(dir)
	}) != nil
	ok = ok && ctx.RegisterFunction("chdir", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
			return nil
		}
		if err := os.Chdir(argv[0].s); err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("listdir", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgBetween(ctx, argv, 0, 1) {
			return nil
		}
		dir := "."
		if len(argv) == 1 {
			if !expectStr(ctx, argv, 0) {
				return nil
			}
			dir = argv[0].s
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return raiseOSError(ctx, err)
		}
		var names []*Obj
		for _, e := range entries {
			s := ctx.NewString(e.Name())
			if s == nil {
				return nil
			}
			ctx.ProtectObject(s)
			names = append(names, s)
		}
		defer func() {
			for _, n := range names {
				ctx.UnprotectObject(n)
			}
		}()
		return ctx.NewList(names)
	}) != nil
	ok = ok && ctx.RegisterFunction("mkdir", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
			return nil
		}
		if err := os.Mkdir(argv[0].s, 0o755); err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("remove", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
			return nil
		}
		info, err := os.Stat(argv[0].s)
		if err != nil {
			return raiseOSError(ctx, err)
		}
		if info.IsDir() {
			ctx.RaiseException(ExcIsADirectoryError, argv[0].s)
			return nil
		}
		if err := os.Remove(argv[0].s); err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("rmdir", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
			return nil
		}
		if err := os.Remove(argv[0].s); err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("rename", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 2) || !expectStr(ctx, argv, 0) || !expectStr(ctx, argv, 1) {
			return nil
		}
		if err := os.Rename(argv[0].s, argv[1].s); err != nil {
			return raiseOSError(ctx, err)
		}
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("exists", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectStr(ctx, argv, 0) {
			return nil
		}
		_, err := os.Stat(argv[0].s)
		return ctx.NewBool(err == nil)
	}) != nil
	return ok
}
