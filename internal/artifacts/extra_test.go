package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtra(t *testing.T) {
	content := []byte(`{
		"ansible.version": "2.9",
		"nested": {"a.b.c": 1, "plain": [{"x.y": "value.with.dots"}]}
	}`)

	data, err := ParseExtra(content)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"ansible_version": "2.9",
		"nested": map[string]any{
			"a_b_c": float64(1),
			"plain": []any{
				map[string]any{"x_y": "value.with.dots"},
			},
		},
	}, data)
}

func TestParseExtraInvalidJSON(t *testing.T) {
	_, err := ParseExtra([]byte("not json"))
	assert.Error(t, err)
}

func TestCleanDottedKeysScalars(t *testing.T) {
	assert.Equal(t, "a.b", CleanDottedKeys("a.b"))
	assert.Equal(t, 42, CleanDottedKeys(42))
	assert.Nil(t, CleanDottedKeys(nil))
}
