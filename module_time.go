// module_time.go — the time module.

package talon

import "time"

func importTime(ctx *Context) bool {
	ok := ctx.RegisterFunction("time", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 0) {
			return nil
		}
		return ctx.NewFloat(float64(time.Now().UnixNano()) / 1e9)
	}) != nil
	ok = ok && ctx.RegisterFunction("perf_counter", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 0) {
			return nil
		}
		return ctx.NewFloat(float64(time.Now().UnixNano()) / 1e9)
	}) != nil
	ok = ok && ctx.RegisterFunction("sleep", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		seconds := argv[0].float()
		if seconds < 0 {
			ctx.RaiseException(ExcValueError, "sleep length must be non-negative")
			return nil
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return ctx.None()
	}) != nil
	return ok
}
