package peer

// xorshift64 is the 64-bit xorshift generator from the "Xorshift RNGs"
// paper by George Marsaglia, the same one original_source/src/client.rs
// borrows (with credit) from the Rust standard library's sort
// implementation. The spec only requires per-packet seeding so different
// packets try different peer orders, not cryptographic strength.
type xorshift64 struct {
	state uint64
}

// newXorshift64 seeds the generator. Xorshift never recovers from a
// zero state, so a zero seed is nudged to 1.
func newXorshift64(seed uint64) *xorshift64 {
	if seed == 0 {
		seed = 1
	}
	return &xorshift64{state: seed}
}

func (x *xorshift64) next() uint64 {
	r := x.state
	r ^= r << 13
	r ^= r >> 7
	r ^= r << 17
	x.state = r
	return r
}

// permutation returns a random permutation of [0, n) driven by the
// generator, via a Fisher-Yates shuffle.
func (x *xorshift64) permutation(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for i := n - 1; i > 0; i-- {
		j := int(x.next() % uint64(i+1))
		order[i], order[j] = order[j], order[i]
	}

	return order
}
</content>
