package search

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexNameIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := NewIndexName("jobs")
		assert.Contains(t, name, "jobs-")
		require.False(t, seen[name], "index name %s generated twice", name)
		seen[name] = true
	}
}

func TestNewAliasNameSortsChronologically(t *testing.T) {
	first := newAliasName("jobs")
	time.Sleep(1100 * time.Millisecond)
	second := newAliasName("jobs")

	names := []string{second, first}
	sort.Strings(names)
	assert.Equal(t, second, names[len(names)-1])
}
