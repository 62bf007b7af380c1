package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_VarsReservedKey(t *testing.T) {
	pc := NewContext(map[string]any{"x": "A"})

	vars := pc.Vars()
	require.NotNil(t, vars)
	assert.Equal(t, "A", vars["x"])

	v, ok := pc.Get(VarsKey)
	require.True(t, ok)
	assert.Equal(t, vars, v)
}

func TestContext_SetAndGet(t *testing.T) {
	pc := NewContext(nil)
	pc.Set("cases", []any{1, 2})

	v, ok := pc.Get("cases")
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, v)

	_, ok = pc.Get("absent")
	assert.False(t, ok)
}

func TestContext_MergeOverwrites(t *testing.T) {
	pc := NewContext(nil)
	pc.Set("a", 1)
	pc.Merge(map[string]any{"a": 2, "b": "new"})

	a, _ := pc.Get("a")
	b, _ := pc.Get("b")
	assert.Equal(t, 2, a)
	assert.Equal(t, "new", b)
}

func TestContext_ReservedKeyIsWriteProtected(t *testing.T) {
	pc := NewContext(map[string]any{"x": "A"})

	pc.Set(VarsKey, "clobbered")
	pc.Merge(map[string]any{VarsKey: "clobbered", "ok": true})

	assert.Equal(t, "A", pc.Vars()["x"])
	v, _ := pc.Get("ok")
	assert.Equal(t, true, v)
}

func TestContext_SnapshotIsACopy(t *testing.T) {
	pc := NewContext(nil)
	pc.Set("k", "v")

	snap := pc.Snapshot()
	snap["k"] = "mutated"
	snap["extra"] = 1

	v, _ := pc.Get("k")
	assert.Equal(t, "v", v)
	_, ok := pc.Get("extra")
	assert.False(t, ok)
}

func TestContext_MaskedSnapshot(t *testing.T) {
	pc := NewContext(nil)
	pc.Set("password", "hunter2")
	pc.Set("db_Passphrase", "s3cret")
	pc.Set("BYPASS", "also masked")
	pc.Set("user", "ivan")

	masked := pc.MaskedSnapshot()
	assert.Equal(t, MaskToken, masked["password"])
	assert.Equal(t, MaskToken, masked["db_Passphrase"])
	assert.Equal(t, MaskToken, masked["BYPASS"])
	assert.Equal(t, "ivan", masked["user"])

	// The live context keeps the real values.
	v, _ := pc.Get("password")
	assert.Equal(t, "hunter2", v)
}
