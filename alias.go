package veloxql

import "strconv"

// aliasState is shared by a chain and the correlated sub-queries built
// inside its callbacks, so every source visible in one statement gets a
// distinct alias.
type aliasState struct {
	tables  int
	derived map[string]int
	used    map[string]bool
}

// aliasAllocator hands out table aliases in declaration order.
type aliasAllocator struct {
	state *aliasState
}

func newAliasAllocator() *aliasAllocator {
	return &aliasAllocator{state: &aliasState{
		derived: make(map[string]int),
		used:    make(map[string]bool),
	}}
}

// NextTableAlias returns the next free letter alias: a, b, ..., z, aa, ab, ...
func (a *aliasAllocator) NextTableAlias() string {
	for {
		alias := letters(a.state.tables)
		a.state.tables++
		if !a.state.used[alias] {
			a.state.used[alias] = true
			return alias
		}
	}
}

// NextDerivedAlias returns the next alias of a derived source of the given
// kind: p0w, p1w, ... for derived tables, p0u, p1u, ... for wrapped union
// branches.
func (a *aliasAllocator) NextDerivedAlias(kind string) string {
	for {
		n := a.state.derived[kind]
		a.state.derived[kind]++
		alias := "p" + strconv.Itoa(n) + kind
		if !a.state.used[alias] {
			a.state.used[alias] = true
			return alias
		}
	}
}

// Reserve records an alias chosen by the caller. It reports false if the
// alias is already taken.
func (a *aliasAllocator) Reserve(alias string) bool {
	if a.state.used[alias] {
		return false
	}
	a.state.used[alias] = true
	return true
}

// letters returns the bijective base-26 form of n: 0 is "a", 25 is "z",
// 26 is "aa".
func letters(n int) string {
	var buf [8]byte
	i := len(buf)
	for n++; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('a' + (n-1)%26)
	}
	return string(buf[i:])
}
