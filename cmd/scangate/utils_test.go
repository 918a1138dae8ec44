package scangate

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestPickers_Precedence(t *testing.T) {
	local, global := "local", "global"
	assert.Equal(t, "cli", pickString("cli", &local, &global))
	assert.Equal(t, "local", pickString("", &local, &global))
	assert.Equal(t, "global", pickString("", nil, &global))
	assert.Equal(t, "", pickString("", nil, nil))

	l, g := 3, 7
	assert.Equal(t, 9, pickInt(9, &l, &g))
	assert.Equal(t, 3, pickInt(0, &l, &g))
	assert.Equal(t, 7, pickInt(0, nil, &g))

	f := false
	assert.True(t, pickBool(true, &f, nil))
	assert.False(t, pickBool(false, &f, nil))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, sortedKeys(map[string]int{"b": 1, "a": 2}))
	assert.Empty(t, sortedKeys(map[string]int(nil)))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("123456789abc"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestFixedCompletion_PrefixCaseInsensitive(t *testing.T) {
	got, dir := fixedCompletion(levelWords)(nil, nil, "m")
	assert.Equal(t, []string{"MEDIUM"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, dir)
}

func TestCompletePolicies_IncludesBuiltins(t *testing.T) {
	t.Chdir(t.TempDir())
	got, _ := completePolicies(nil, nil, "sql")
	assert.Contains(t, got, "sql-injection")
}
