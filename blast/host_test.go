// Copyright 2025 blast Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blast

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/oblast/blast/gpufabric"
)

// openHostOrSkip opens a Host against the first visible OpenCL device,
// skipping the test when no ICD loader or platform is present. Every test
// below exercises the real device path; environments without a GPU/OpenCL
// runtime are expected to skip, not fail.
func openHostOrSkip(t *testing.T, override *gpufabric.Override) (*Host, *gpufabric.Context) {
	t.Helper()
	devices, err := gpufabric.Init()
	if err != nil || len(devices) == 0 {
		t.Skipf("no OpenCL platform/device available: %v", err)
	}
	ctx, err := gpufabric.Open(devices, 0, override)
	require.NoError(t, err)
	h, err := Init(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h.Fini())
		require.NoError(t, ctx.Close())
	})
	return h, ctx
}

func uploadFP32(t *testing.T, h *Host, values []float32) *gpufabric.Memory {
	t.Helper()
	bytes := int64(len(values) * 4)
	m, err := h.Allocate(gpufabric.AccessReadWrite, bytes)
	require.NoError(t, err)
	buf, err := h.Map(gpufabric.AccessWrite, m, 0, bytes)
	require.NoError(t, err)
	for i, v := range values {
		bits := math.Float32bits(v)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	require.NoError(t, h.Unmap(m))
	return m
}

func TestDotFP32CompactMatchesGonumOracle(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)

	r := rand.New(rand.NewSource(7))
	const n = 64
	a := make([]float32, n)
	b := make([]float32, n)
	af64 := make([]float64, n)
	bf64 := make([]float64, n)
	for i := range a {
		a[i] = float32(r.NormFloat64())
		b[i] = float32(r.NormFloat64())
		af64[i] = float64(a[i])
		bf64[i] = float64(b[i])
	}
	v0 := uploadFP32(t, h, a)
	v1 := uploadFP32(t, h, b)
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	got, _, err := h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, n)
	require.NoError(t, err)
	want := floats.Dot(af64, bf64)
	require.InDelta(t, want, got, 1e-2*float64(n))
}

func TestDotRejectsUnsupportedPrecision(t *testing.T) {
	// spec §8 scenario 6: fp64 on a non-fp64 device -- dot[fp64] is absent
	// and calling it is a ContractViolation.
	h, _ := openHostOrSkip(t, nil)
	if h.Device().FP64 {
		t.Skip("device supports fp64; cannot exercise the unsupported-precision path")
	}
	_, _, err := h.Dot(gpufabric.FP64, nil, 0, 1, nil, 0, 1, 1)
	require.Error(t, err)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
}

func TestMapRejectsOverlappingMap(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)
	m, err := h.Allocate(gpufabric.AccessReadWrite, 4)
	require.NoError(t, err)
	defer h.Deallocate(m)

	_, err = h.Map(gpufabric.AccessWrite, m, 0, 4)
	require.NoError(t, err)
	defer h.Unmap(m)

	_, err = h.Map(gpufabric.AccessWrite, m, 0, 4)
	require.Error(t, err)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, "map", violation.Op)
}

func TestDotRejectsStillMappedArgument(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)
	v0 := uploadFP32(t, h, []float32{1, 2, 3, 4})
	v1 := uploadFP32(t, h, []float32{1, 2, 3, 4})
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	_, err := h.Map(gpufabric.AccessWrite, v0, 0, 16)
	require.NoError(t, err)
	defer h.Unmap(v0)

	_, _, err = h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, 4)
	require.Error(t, err)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
}

func TestDotRejectsForeignContextMemory(t *testing.T) {
	h1, _ := openHostOrSkip(t, nil)

	devices, err := gpufabric.Init()
	require.NoError(t, err)
	ctx2, err := gpufabric.Open(devices, 0, nil)
	require.NoError(t, err)
	h2, err := Init(ctx2)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h2.Fini())
		require.NoError(t, ctx2.Close())
	})

	v0 := uploadFP32(t, h2, []float32{1, 2, 3, 4})
	v1 := uploadFP32(t, h1, []float32{1, 2, 3, 4})
	defer h2.Deallocate(v0)
	defer h1.Deallocate(v1)

	_, _, err = h1.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, 4)
	require.Error(t, err)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
}

func TestDotRejectsProfilingCapacityExceeded(t *testing.T) {
	override := &gpufabric.Override{
		MaxProfilingCount: 1,
		Profiling:         make([]gpufabric.ProfilingRecord, 1),
	}
	h, _ := openHostOrSkip(t, override)

	v0 := uploadFP32(t, h, []float32{1, 2, 3, 4})
	v1 := uploadFP32(t, h, []float32{1, 2, 3, 4})
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	// n=4 forces at least one tree-reduction pass beyond the initial dot
	// launch, so the second ProfileAdd exceeds the 1-slot buffer.
	_, _, err := h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, 4)
	require.Error(t, err)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
}

// spec §8 scenario 1: v0=[1,2,3,4,5], v1=[5,4,3,2,1], compact, expect
// 1*5+2*4+3*3+4*2+5*1 = 35 exactly.
func TestScenarioTinyCompactDot(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)
	v0 := uploadFP32(t, h, []float32{1, 2, 3, 4, 5})
	v1 := uploadFP32(t, h, []float32{5, 4, 3, 2, 1})
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	got, _, err := h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, 5)
	require.NoError(t, err)
	require.Equal(t, 35.0, got)
}

// spec §8 scenario 2: v0 at offset 2 stride 2 reads [1,2,3,4]; v1 at offset
// 1 stride 3 reads [4,3,2,1]; expect 1*4+2*3+3*2+4*1 = 20 exactly.
func TestScenarioStridedOffsetDot(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)
	a := make([]float32, 9)
	a[2], a[4], a[6], a[8] = 1, 2, 3, 4
	b := make([]float32, 11)
	b[1], b[4], b[7], b[10] = 4, 3, 2, 1
	v0 := uploadFP32(t, h, a)
	v1 := uploadFP32(t, h, b)
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	got, _, err := h.Dot(gpufabric.FP32, v0, 2, 2, v1, 1, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 20.0, got)
}

const flt32Epsilon = 1.1920929e-07

// spec §8 scenario 4: x[i] = 1+(-1)^i*(i+1)*2^-63, y[i] = 1-(-1)^i*(i+1)*2^-63;
// the perturbation is far below the float32 ULP at 1.0 so every product
// rounds to exactly 1.0f, and the sum over n=2^20 elements must land within
// FLT_EPSILON*n of n.
func TestScenarioCancellationProneSum(t *testing.T) {
	h, _ := openHostOrSkip(t, nil)
	const n = 1 << 20
	x := make([]float32, n)
	y := make([]float32, n)
	for i := 0; i < n; i++ {
		sign := 1.0
		if i%2 != 0 {
			sign = -1.0
		}
		delta := sign * float64(i+1) * math.Pow(2, -63)
		x[i] = float32(1 + delta)
		y[i] = float32(1 - delta)
		require.Equal(t, float32(1), x[i]*y[i], "product at i=%d did not round to exactly 1.0f", i)
	}
	v0 := uploadFP32(t, h, x)
	v1 := uploadFP32(t, h, y)
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	got, _, err := h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, n)
	require.NoError(t, err)
	require.InDelta(t, float64(n), got, float64(n)*flt32Epsilon)
}

// spec §8 scenario 5: same input as scenario 1, but an Override caps
// max_groups=2/max_items=4 so the tree reduction must take at least one
// extra pass beyond the initial dot launch, observable as summary.Launches
// > 1 in the returned profiling roll-up.
func TestScenarioOverrideTiledReductionIssuesMultiplePasses(t *testing.T) {
	override := &gpufabric.Override{
		MaxGroups:         2,
		MaxItems:          4,
		MaxProfilingCount: 16,
		Profiling:         make([]gpufabric.ProfilingRecord, 16),
	}
	h, _ := openHostOrSkip(t, override)
	v0 := uploadFP32(t, h, []float32{1, 2, 3, 4, 5})
	v1 := uploadFP32(t, h, []float32{5, 4, 3, 2, 1})
	defer h.Deallocate(v0)
	defer h.Deallocate(v1)

	got, summary, err := h.Dot(gpufabric.FP32, v0, 0, 1, v1, 0, 1, 5)
	require.NoError(t, err)
	require.Equal(t, 35.0, got)
	require.NotNil(t, summary)
	require.Greater(t, summary.Launches, 1)
}

func TestFatalHookIsInstallable(t *testing.T) {
	h := &Host{fatal: defaultFatalHook}
	var captured error
	h.SetFatalHook(func(err error) { captured = err })
	sentinel := &ContractViolation{Op: "test", Detail: "boom"}
	h.Abort(sentinel)
	require.Equal(t, sentinel, captured)
}

func TestContractViolationError(t *testing.T) {
	err := &ContractViolation{Op: "dot", Detail: "bad precision"}
	require.Contains(t, err.Error(), "dot")
	require.Contains(t, err.Error(), "bad precision")
}

func TestResourceExhaustionUnwraps(t *testing.T) {
	inner := &gpufabric.DeviceError{Status: -4, Site: "clCreateBuffer"}
	err := &ResourceExhaustion{Op: "allocate", Err: inner}
	require.ErrorIs(t, err, inner)
}
