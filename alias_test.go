package veloxql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetters(t *testing.T) {
	for n, want := range map[int]string{
		0:   "a",
		1:   "b",
		25:  "z",
		26:  "aa",
		27:  "ab",
		51:  "az",
		52:  "ba",
		701: "zz",
		702: "aaa",
	} {
		assert.Equal(t, want, letters(n), n)
	}
}

func TestAliasAllocator(t *testing.T) {
	a := newAliasAllocator()
	assert.Equal(t, "a", a.NextTableAlias())
	assert.Equal(t, "b", a.NextTableAlias())
	assert.Equal(t, "p0w", a.NextDerivedAlias("w"))
	assert.Equal(t, "p0u", a.NextDerivedAlias("u"))
	assert.Equal(t, "p1w", a.NextDerivedAlias("w"))

	t.Run("reserved aliases are skipped", func(t *testing.T) {
		a := newAliasAllocator()
		assert.True(t, a.Reserve("a"))
		assert.False(t, a.Reserve("a"))
		assert.Equal(t, "b", a.NextTableAlias())
		assert.True(t, a.Reserve("p0w"))
		assert.Equal(t, "p1w", a.NextDerivedAlias("w"))
	})

	t.Run("pairwise distinct", func(t *testing.T) {
		a := newAliasAllocator()
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			alias := a.NextTableAlias()
			assert.False(t, seen[alias], alias)
			seen[alias] = true
		}
	})
}
