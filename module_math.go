// module_math.go — the math module.

package talon

import "math"

func mathUnary(fn func(float64) float64) NativeFunc {
	return func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		return ctx.NewFloat(fn(argv[0].float()))
	}
}

func importMath(ctx *Context) bool {
	for name, value := range map[string]float64{
		"pi":  math.Pi,
		"e":   math.E,
		"tau": 2 * math.Pi,
		"inf": math.Inf(1),
		"nan": math.NaN(),
	} {
		v := ctx.NewFloat(value)
		if v == nil {
			return false
		}
		ctx.SetGlobal(name, v)
	}

	for name, fn := range map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"exp":   math.Exp,
		"log2":  math.Log2,
		"log10": math.Log10,
		"fabs":  math.Abs,
	} {
		if ctx.RegisterFunction(name, mathUnary(fn)) == nil {
			return false
		}
	}

	ok := ctx.RegisterFunction("floor", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		return ctx.NewInt(int64(math.Floor(argv[0].float())))
	}) != nil
	ok = ok && ctx.RegisterFunction("ceil", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		return ctx.NewInt(int64(math.Ceil(argv[0].float())))
	}) != nil
	ok = ok && ctx.RegisterFunction("pow", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 0) || !expectNumber(ctx, argv, 1) {
			return nil
		}
		return ctx.NewFloat(math.Pow(argv[0].float(), argv[1].float()))
	}) != nil
	ok = ok && ctx.RegisterFunction("log", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgBetween(ctx, argv, 1, 2) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		if len(argv) == 2 {
			if !expectNumber(ctx, argv, 1) {
				return nil
			}
			return ctx.NewFloat(math.Log(argv[0].float()) / math.Log(argv[1].float()))
		}
		return ctx.NewFloat(math.Log(argv[0].float()))
	}) != nil
	ok = ok && ctx.RegisterFunction("hypot", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 0) || !expectNumber(ctx, argv, 1) {
			return nil
		}
		return ctx.NewFloat(math.Hypot(argv[0].float(), argv[1].float()))
	}) != nil
	ok = ok && ctx.RegisterFunction("isnan", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		return ctx.NewBool(math.IsNaN(argv[0].float()))
	}) != nil
	ok = ok && ctx.RegisterFunction("isinf", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectNumber(ctx, argv, 0) {
			return nil
		}
		return ctx.NewBool(math.IsInf(argv[0].float(), 0))
	}) != nil
	return ok
}
