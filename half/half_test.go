package half

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripIntegers(t *testing.T) {
	for i := 0; i < 2048; i++ {
		h := FromFloat(float32(i))
		require.Equal(t, float32(i), ToFloat(h), "integer %d did not round-trip exactly", i)
	}
}

func TestRoundTripIdempotence(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 3.14159, 1e-5, 65504, -65504, 100000, 1e-8}
	for _, x := range values {
		once := ToFloat(FromFloat(x))
		twice := ToFloat(FromFloat(once))
		require.Equal(t, once, twice, "round-trip not idempotent for %v", x)
	}
}

func TestSpecialValues(t *testing.T) {
	require.True(t, Zero.IsZero())
	require.True(t, NegZero.IsZero())
	require.True(t, Inf.IsInf())
	require.True(t, NegInf.IsInf())
	require.False(t, Inf.IsFinite())
	require.True(t, One.IsFinite())
	require.Equal(t, float32(1), ToFloat(One))
	require.Equal(t, float32(-1), ToFloat(NegOne))
}

func TestOverflowToInfinity(t *testing.T) {
	require.Equal(t, Inf, FromFloat(1e9))
	require.Equal(t, NegInf, FromFloat(-1e9))
	require.True(t, math.IsInf(float64(ToFloat(FromFloat(float32(math.Inf(1))))), 1))
}

func TestUnderflowToZero(t *testing.T) {
	tiny := float32(math.Ldexp(1, -30))
	require.True(t, FromFloat(tiny).IsZero())
}

func TestDenormals(t *testing.T) {
	h := FromFloat(float32(math.Ldexp(1, -20)))
	require.False(t, h.IsZero())
	require.Equal(t, 0, int((h>>10)&expMask))
}

func TestNaNStaysNonQuiet(t *testing.T) {
	sNaN := math.Float32frombits(0x7F800001) // signaling NaN, minimal nonzero payload
	h := FromFloat(sNaN)
	require.True(t, h.IsNaN())
	require.NotZero(t, h&mantMask)
}

func TestAddCommutative(t *testing.T) {
	a := FromFloat(2.5)
	b := FromFloat(-1.25)
	require.Equal(t, Add(a, b), Add(b, a))
}

func TestArithmeticRoundTrip(t *testing.T) {
	a, b := FromFloat(1.5), FromFloat(2.25)
	got := ToFloat(Add(a, b))
	want := ToFloat(a) + ToFloat(b)
	require.InDelta(t, want, got, 1e-3)
}

func TestCompare(t *testing.T) {
	lo, hi := FromFloat(1), FromFloat(2)
	cmp, ok := Compare(lo, hi)
	require.True(t, ok)
	require.Equal(t, -1, cmp)

	cmp, ok = Compare(hi, lo)
	require.True(t, ok)
	require.Equal(t, 1, cmp)

	_, ok = Compare(NaN, lo)
	require.False(t, ok)
}
