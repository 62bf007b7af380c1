package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

func TestPortalLogin_RequiresURL(t *testing.T) {
	_, err := portalLogin(context.Background(), Input{Kwargs: map[string]any{}})

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestPortalLogin_RejectsBadTimeout(t *testing.T) {
	_, err := portalLogin(context.Background(), Input{Kwargs: map[string]any{
		"url":     "https://portal.example",
		"timeout": "soon",
	}})

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestPortalLogin_RejectsBadClicks(t *testing.T) {
	for _, clicks := range []any{"not-a-list", []any{"#ok", 42}, []any{""}} {
		_, err := portalLogin(context.Background(), Input{Kwargs: map[string]any{
			"url":    "https://portal.example",
			"clicks": clicks,
		}})

		var perr *schema.PipelineError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, schema.ErrCodeValidation, perr.Code)
	}
}

func TestSelectorList(t *testing.T) {
	out, err := selectorList(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = selectorList([]string{"#a", ".b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#a", ".b"}, out)

	out, err = selectorList([]any{"#login", "button.submit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#login", "button.submit"}, out)

	_, err = selectorList(map[string]any{})
	assert.Error(t, err)
}
