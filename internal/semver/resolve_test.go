package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExactMatch(t *testing.T) {
	t.Parallel()

	best, ok := Resolve([]string{"1.0.0", "1.2.0", "2.0.0"}, "1.2.0")
	assert.True(t, ok)
	assert.Equal(t, "1.2.0", best)
}

func TestResolvePartialPicksHighest(t *testing.T) {
	t.Parallel()

	best, ok := Resolve([]string{"1.0.0", "1.2.0", "1.9.5", "2.0.0"}, "1")
	assert.True(t, ok)
	assert.Equal(t, "1.9.5", best)
}

func TestResolveMinorPartial(t *testing.T) {
	t.Parallel()

	best, ok := Resolve([]string{"1.2.0", "1.2.5", "1.3.0"}, "1.2")
	assert.True(t, ok)
	assert.Equal(t, "1.2.5", best)
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()

	_, ok := Resolve([]string{"1.0.0", "2.0.0"}, "3")
	assert.False(t, ok)
}

func TestResolveEmptyTargetWantsUnversioned(t *testing.T) {
	t.Parallel()

	best, ok := Resolve([]string{"1.0.0", ""}, "")
	assert.True(t, ok)
	assert.Equal(t, "", best)

	_, ok = Resolve([]string{"1.0.0"}, "")
	assert.False(t, ok)
}

func TestHasUnversioned(t *testing.T) {
	t.Parallel()

	assert.True(t, HasUnversioned([]string{"1.0.0", ""}))
	assert.False(t, HasUnversioned([]string{"1.0.0"}))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3", Normalize("v1.2.3"))
	assert.Equal(t, "1.2.3", Normalize("  1.2.3  "))
}
