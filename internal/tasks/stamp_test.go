package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

func TestStampPDFs_RequiresDirs(t *testing.T) {
	_, err := stampPDFs(context.Background(), Input{Kwargs: map[string]any{}})
	assert.Error(t, err)

	_, err = stampPDFs(context.Background(), Input{Kwargs: map[string]any{"input_dir": "in"}})
	assert.Error(t, err)
}

func TestStampPDFs_RequiresIdentity(t *testing.T) {
	dir := t.TempDir()
	_, err := stampPDFs(context.Background(), Input{Kwargs: map[string]any{
		"input_dir":  dir,
		"output_dir": filepath.Join(dir, "out"),
	}})

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
	assert.Contains(t, perr.Message, "stamp identity incomplete")
}

func TestStampPDFs_EmptyInputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	result, err := stampPDFs(context.Background(), Input{Kwargs: map[string]any{
		"input_dir":  dir,
		"output_dir": out,
		"name":       "Ivan Petrov",
		"reg_no":     "860",
	}})
	require.NoError(t, err)

	r := result.(map[string]any)
	assert.Equal(t, 0, r["stamped_count"])
	assert.Equal(t, out, r["output_dir"])
	assert.DirExists(t, out)
}

func TestStampPDFs_IdentityFromStampFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, stampFileName),
		"NAME=Maria Georgieva\nREG_NO=123\n# trailing noise\n")

	result, err := stampPDFs(context.Background(), Input{Kwargs: map[string]any{
		"input_dir":  dir,
		"output_dir": filepath.Join(dir, "out"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.(map[string]any)["stamped_count"])
}

func TestStampPDFs_KwargsOverrideStampFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, stampFileName), "NAME=From File\nREG_NO=1\n")

	_, err := stampPDFs(context.Background(), Input{Kwargs: map[string]any{
		"input_dir":  dir,
		"output_dir": filepath.Join(dir, "out"),
		"name":       "From Kwarg",
		"reg_no":     "2",
	}})
	require.NoError(t, err)
}

func TestReadStampFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, stampFileName),
		"NAME = Ivan Petrov \nREG_NO= 860\nunrelated line\n")

	name, regNo := readStampFile(dir)
	assert.Equal(t, "Ivan Petrov", name)
	assert.Equal(t, "860", regNo)
}

func TestReadStampFile_Missing(t *testing.T) {
	name, regNo := readStampFile(t.TempDir())
	assert.Empty(t, name)
	assert.Empty(t, regNo)
}
