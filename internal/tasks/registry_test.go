package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

func stub(name string) Task {
	return NewFunc(name, "stub "+name, func(_ context.Context, _ Input) (any, error) {
		return name, nil
	})
}

func TestGroup_SymbolsSorted(t *testing.T) {
	g := NewGroup("tools", stub("zip"), stub("copy"), stub("audit"), stub("move"))
	assert.Equal(t, []string{"audit", "copy", "move", "zip"}, g.Symbols())
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stub("echo")))

	task, err := reg.Resolve("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", task.Name())
	assert.True(t, reg.Has("echo"))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewFunc("dup", "first", nil)))
	require.NoError(t, reg.Register(NewFunc("dup", "second", nil)))

	task, err := reg.Resolve("dup")
	require.NoError(t, err)
	assert.Equal(t, "second", task.Describe())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(stub("")))
	assert.Error(t, reg.Register(stub("bad:name")))
	assert.Error(t, reg.RegisterGroup(nil))
}

func TestRegistry_ResolveNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve("missing")

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeTaskResolution, perr.Code)
}

func TestRegistry_QualifiedResolution(t *testing.T) {
	reg := NewRegistry()
	g := NewGroup("sheet", nil, stub("read_cases"))
	require.NoError(t, reg.RegisterGroup(g))

	task, err := reg.Resolve("sheet:read_cases")
	require.NoError(t, err)
	assert.Equal(t, "read_cases", task.Name())
}

func TestRegistry_QualifiedMissingGroup(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve("nope:symbol")

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeTaskResolution, perr.Code)
	assert.Contains(t, perr.Message, "capability group")
}

func TestRegistry_QualifiedMissingSymbol(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterGroup(NewGroup("sheet", nil, stub("read_cases"))))

	_, err := reg.Resolve("sheet:write_cases")
	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeTaskResolution, perr.Code)
	assert.Equal(t, []string{"read_cases"}, perr.Details["available_symbols"])
}

func TestRegistry_UnqualifiedGroupUsesDefault(t *testing.T) {
	reg := NewRegistry()
	def := stub("get_desktop_dir")
	require.NoError(t, reg.RegisterGroup(NewGroup("paths", def)))

	task, err := reg.Resolve("paths")
	require.NoError(t, err)
	assert.Equal(t, "get_desktop_dir", task.Name())
}

func TestRegistry_UnqualifiedGroupWithoutDefault(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterGroup(NewGroup("stamp", nil, stub("stamp_pdfs"))))

	_, err := reg.Resolve("stamp")
	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeTaskResolution, perr.Code)
	assert.Contains(t, perr.Message, "no default entry point")
}

func TestRegistry_ListQualifiesGroupSymbols(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stub("echo")))
	require.NoError(t, reg.RegisterGroup(NewGroup("sheet", nil, stub("read_cases"))))

	infos := reg.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "echo", infos[0].Name)
	assert.Equal(t, "sheet:read_cases", infos[1].Name)
}
