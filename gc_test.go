// gc_test.go — mark-and-sweep behavior: cycles, protection roots, and
// finalizers.

package talon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gcContext(t *testing.T) *Context {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Print = func(string, any) {}
	ctx := NewContext(&cfg)
	require.NotNil(t, ctx)
	return ctx
}

func finalizedFlag(ctx *Context, tag string) (*Obj, *bool) {
	ran := false
	ud := ctx.NewUserdata(tag, nil)
	SetFinalizer(ud, Finalizer{Fn: func(*Obj, any) { ran = true }})
	return ud, &ran
}

func TestCollectUnreachableObject(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	_, ran := finalizedFlag(ctx, "loose")
	ctx.CollectGarbage()
	assert.True(t, *ran, "an unrooted object should be finalized")
}

func TestCollectCycle(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	ud, ran := finalizedFlag(ctx, "cyclic")
	a := ctx.NewList([]*Obj{ud})
	require.NotNil(t, a)
	ctx.ProtectObject(a)
	b := ctx.NewList([]*Obj{a})
	require.NotNil(t, b)
	a.v = append(a.v, b) // a ↔ b cycle holding ud

	ctx.CollectGarbage()
	assert.False(t, *ran, "protected cycle must survive")

	ctx.UnprotectObject(a)
	ctx.CollectGarbage()
	assert.True(t, *ran, "unreachable cycle must be collected")
}

func TestProtectionIsCounted(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	ud, ran := finalizedFlag(ctx, "counted")
	ctx.ProtectObject(ud)
	ctx.ProtectObject(ud)
	ctx.UnprotectObject(ud)
	ctx.CollectGarbage()
	assert.False(t, *ran, "one protection reference remains")

	ctx.UnprotectObject(ud)
	ctx.CollectGarbage()
	assert.True(t, *ran)
}

func TestGlobalsAreRoots(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	ud, ran := finalizedFlag(ctx, "kept")
	ctx.SetGlobal("keep", ud)
	ctx.CollectGarbage()
	assert.False(t, *ran)

	ctx.SetGlobal("keep", ctx.None())
	ctx.CollectGarbage()
	assert.True(t, *ran)
}

func TestFinalizerRunsOnce(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	count := 0
	ud := ctx.NewUserdata("once", nil)
	SetFinalizer(ud, Finalizer{Fn: func(*Obj, any) { count++ }})
	ctx.CollectGarbage()
	ctx.CollectGarbage()
	assert.Equal(t, 1, count)
}

func TestDestroyRunsFinalizers(t *testing.T) {
	ctx := gcContext(t)

	ud, ran := finalizedFlag(ctx, "destroyed")
	ctx.SetGlobal("keep", ud) // rooted, so only Destroy releases it
	ctx.CollectGarbage()
	require.False(t, *ran)

	ctx.Destroy()
	assert.True(t, *ran, "Destroy must finalize everything")
}

func TestClosureEnvironmentSurvivesCollection(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	src := `
def make():
    secret = "treasure"
    def get():
        return secret
    return get
g = make()
`
	require.NotNil(t, ctx.Execute(src, "__main__"), ctx.GetErrorMessage())
	ctx.CollectGarbage()

	g := ctx.GetGlobal("g")
	require.NotNil(t, g)
	result := ctx.Call(g, nil, nil)
	require.NotNil(t, result, ctx.GetErrorMessage())
	assert.Equal(t, "treasure", GetString(result))
}

func TestScriptCycleIsCollected(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	src := `
def make_cycle():
    a = []
    a.append(a)
    return None
make_cycle()
`
	require.NotNil(t, ctx.Execute(src, "__main__"), ctx.GetErrorMessage())
	before := len(ctx.arena)
	ctx.CollectGarbage()
	assert.Less(t, len(ctx.arena), before, "self-referential garbage should be swept")
}

func TestLinkReferencePins(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	parent := ctx.NewList(nil)
	require.NotNil(t, parent)
	ctx.ProtectObject(parent)
	child, ran := finalizedFlag(ctx, "linked")
	ctx.LinkReference(parent, child)

	ctx.CollectGarbage()
	assert.False(t, *ran, "linked child must be kept by its parent")

	ctx.UnlinkReference(parent, child)
	ctx.CollectGarbage()
	assert.True(t, *ran)
	ctx.UnprotectObject(parent)
}

func TestCurrentExceptionIsRoot(t *testing.T) {
	ctx := gcContext(t)
	defer ctx.Destroy()

	require.Nil(t, ctx.Execute("raise ValueError(\"held\")\n", "__main__"))
	exc := ctx.GetCurrentException()
	require.NotNil(t, exc)
	ctx.CollectGarbage()
	msg, ok := ctx.getAttribute(exc, "_message", "", nil)
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, "held", GetString(msg))
	ctx.ClearCurrentException()
}
