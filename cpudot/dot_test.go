package cpudot

import (
	"math"
	"math/rand"
	"testing"

	"github.com/oblast/blast/half"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func randVecF32(n int, r *rand.Rand) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return v
}

func randVecF64(n int, r *rand.Rand) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.NormFloat64()
	}
	return v
}

func TestDotFP32MatchesGonumOracle(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 3, 7, 8, 15, 16, 31, 32, 257} {
		a := randVecF32(n, r)
		b := randVecF32(n, r)
		got := DotFP32(a, 1, b, 1, n)

		af64 := make([]float64, n)
		bf64 := make([]float64, n)
		for i := range a {
			af64[i] = float64(a[i])
			bf64[i] = float64(b[i])
		}
		want := floats.Dot(af64, bf64)

		// Accumulation order differs across tiers, so allow an ε·n bound
		// (spec §8) rather than bit-exact equality.
		tol := 1e-4 * float64(n)
		require.InDelta(t, want, got, tol, "n=%d", n)
	}
}

func TestDotFP64MatchesGonumOracle(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, n := range []int{1, 3, 4, 7, 8, 9, 33, 129} {
		a := randVecF64(n, r)
		b := randVecF64(n, r)
		got := DotFP64(a, 1, b, 1, n)
		want := floats.Dot(a, b)
		tol := 1e-9 * float64(n)
		require.InDelta(t, want, got, tol, "n=%d", n)
	}
}

func TestDotFP32StridedMatchesScalarReference(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	a := randVecF32(64, r)
	b := randVecF32(128, r)
	const n = 16
	got := DotFP32(a, 2, b, 4, n)

	want := 0.0
	for i := 0; i < n; i++ {
		want += float64(a[i*2]) * float64(b[i*4])
	}
	require.InDelta(t, want, got, 1e-4)
}

func TestDotFP16AlwaysScalar(t *testing.T) {
	n := 10
	v0 := make([]half.Half, n)
	v1 := make([]half.Half, n)
	for i := range v0 {
		v0[i] = half.FromFloat(float32(i + 1))
		v1[i] = half.FromFloat(1)
	}
	got := DotFP16(v0, 1, v1, 1, n)
	want := float64(n * (n + 1) / 2)
	require.InDelta(t, want, got, 1e-2)
}

func TestDispatchTiersAreIdempotent(t *testing.T) {
	s1a, s1b := CurrentTiers()
	s2a, s2b := CurrentTiers()
	require.Equal(t, s1a, s2a)
	require.Equal(t, s1b, s2b)
}

func TestSelectLevelRespectsThresholds(t *testing.T) {
	require.Equal(t, LevelScalar, selectLevelF32(1))
	require.Equal(t, LevelScalar, selectLevelF64(1))
	// With SIMD unavailable (e.g. under BLAST_NO_SIMD or non-x86), every
	// size still resolves to a defined, non-crashing level.
	for _, n := range []int{0, 1, 4, 8, 16, 1024} {
		lvl := selectLevelF32(n)
		require.True(t, lvl == LevelScalar || lvl == LevelSIMD256 || lvl == LevelSIMD512)
	}
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "scalar", LevelScalar.String())
	require.Equal(t, "simd256", LevelSIMD256.String())
	require.Equal(t, "simd512", LevelSIMD512.String())
}

func TestNoSIMDEnvParsesBoolean(t *testing.T) {
	t.Setenv("BLAST_NO_SIMD", "")
	require.False(t, NoSIMDEnv())
	t.Setenv("BLAST_NO_SIMD", "true")
	require.True(t, NoSIMDEnv())
	t.Setenv("BLAST_NO_SIMD", "0")
	require.False(t, NoSIMDEnv())
	t.Setenv("BLAST_NO_SIMD", "garbage")
	require.True(t, NoSIMDEnv())
}

func TestDotFP32EmptyVector(t *testing.T) {
	require.Equal(t, 0.0, DotFP32(nil, 1, nil, 1, 0))
}

func TestDotFP64NaNPropagates(t *testing.T) {
	a := []float64{1, math.NaN(), 3}
	b := []float64{1, 1, 1}
	got := DotFP64(a, 1, b, 1, 3)
	require.True(t, math.IsNaN(got))
}
