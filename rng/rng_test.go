package rng_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/rng"
)

func TestDeterministicSequence(t *testing.T) {
	a := rng.New(42042)
	b := rng.New(42042)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.NextU32(), b.NextU32())
	}
}

func TestResetReproducesSequence(t *testing.T) {
	r := rng.New(7)
	first := make([]uint32, 10)
	for i := range first {
		first[i] = r.NextU32()
	}
	r.Reset()
	for i := range first {
		require.Equal(t, first[i], r.NextU32())
	}
}

func TestNextFloatRange(t *testing.T) {
	r := rng.New(1)
	for i := 0; i < 1000; i++ {
		f := r.NextFloat()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestRandIntInclusiveBounds(t *testing.T) {
	r := rng.New(9)
	seenLow, seenHigh := false, false
	for i := 0; i < 2000; i++ {
		v := r.RandInt(3, 5)
		require.GreaterOrEqual(t, v, 3)
		require.LessOrEqual(t, v, 5)
		if v == 3 {
			seenLow = true
		}
		if v == 5 {
			seenHigh = true
		}
	}
	require.True(t, seenLow)
	require.True(t, seenHigh)
}
