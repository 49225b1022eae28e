package peer

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXorshift64IsDeterministic(t *testing.T) {
	a := newXorshift64(42)
	b := newXorshift64(42)

	for i := 0; i < 8; i++ {
		assert.Equal(t, a.next(), b.next())
	}
}

func TestXorshift64ZeroSeedIsNudged(t *testing.T) {
	x := newXorshift64(0)
	assert.NotEqual(t, uint64(0), x.state)
	assert.NotEqual(t, uint64(0), x.next())
}

func TestPermutationIsAValidPermutation(t *testing.T) {
	rng := newXorshift64(7)
	order := rng.permutation(10)

	assert.Len(t, order, 10)

	sorted := append([]int{}, order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestPermutationOfEmptyAndSingleton(t *testing.T) {
	rng := newXorshift64(1)
	assert.Empty(t, rng.permutation(0))
	assert.Equal(t, []int{0}, rng.permutation(1))
}
</content>
