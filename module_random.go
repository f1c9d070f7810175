// module_random.go — the random module. Each context gets its own
// generator so separate contexts stay independent.

package talon

import "math/rand"

func importRandom(ctx *Context) bool {
	rng := rand.New(rand.NewSource(1))

	ok := ctx.RegisterFunction("seed", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectInt(ctx, argv, 0) {
			return nil
		}
		rng.Seed(argv[0].i)
		return ctx.None()
	}) != nil
	ok = ok && ctx.RegisterFunction("random", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 0) {
			return nil
		}
		return ctx.NewFloat(rng.Float64())
	}) != nil
	ok = ok && ctx.RegisterFunction("randint", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 2) || !expectInt(ctx, argv, 0) || !expectInt(ctx, argv, 1) {
			return nil
		}
		lo, hi := argv[0].i, argv[1].i
		if hi < lo {
			ctx.RaiseException(ExcValueError, "empty range for randint()")
			return nil
		}
		return ctx.NewInt(lo + rng.Int63n(hi-lo+1))
	}) != nil
	ok = ok && ctx.RegisterFunction("uniform", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 2) || !expectNumber(ctx, argv, 0) || !expectNumber(ctx, argv, 1) {
			return nil
		}
		lo, hi := argv[0].float(), argv[1].float()
		return ctx.NewFloat(lo + rng.Float64()*(hi-lo))
	}) != nil
	ok = ok && ctx.RegisterFunction("choice", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) {
			return nil
		}
		var elems []*Obj
		if !ctx.Iterate(argv[0], func(v *Obj) bool {
			elems = append(elems, v)
			return true
		}) {
			return nil
		}
		if len(elems) == 0 {
			ctx.RaiseException(ExcIndexError, "Cannot choose from an empty sequence")
			return nil
		}
		return elems[rng.Intn(len(elems))]
	}) != nil
	ok = ok && ctx.RegisterFunction("shuffle", func(ctx *Context, argv []*Obj) *Obj {
		if !expectArgCount(ctx, argv, 1) || !expectList(ctx, argv, 0) {
			return nil
		}
		v := argv[0].v
		rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
		return ctx.None()
	}) != nil
	return ok
}
