package cmd

import (
	"testing"

	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgOrSelectedRun(t *testing.T) {
	candidates := []model.RunID{
		model.NewRunID("baseline", "classify"),
		model.NewRunID("augmented", "classify"),
	}

	t.Run("positional argument wins", func(t *testing.T) {
		id, err := argOrSelectedRun([]string{"segment/baseline"}, candidates)
		require.NoError(t, err)
		assert.Equal(t, model.NewRunID("baseline", "segment"), id)
	})

	t.Run("malformed argument", func(t *testing.T) {
		_, err := argOrSelectedRun([]string{"nonsense"}, candidates)
		require.Error(t, err)
	})

	t.Run("single candidate needs no prompt", func(t *testing.T) {
		id, err := argOrSelectedRun(nil, candidates[:1])
		require.NoError(t, err)
		assert.Equal(t, candidates[0], id)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := argOrSelectedRun(nil, nil)
		require.Error(t, err)
	})
}

func TestSelectStringShortcuts(t *testing.T) {
	selected, err := selectString("run", []string{"classify/baseline"})
	require.NoError(t, err)
	assert.Equal(t, "classify/baseline", selected)

	_, err = selectString("run", nil)
	require.Error(t, err)
}
