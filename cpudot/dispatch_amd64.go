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

//go:build amd64 && !goexperiment.simd

// This file backs the SIMD-256/SIMD-512 tiers with lane-grouped pure-Go
// kernels on ordinary (non-GOEXPERIMENT) builds. It mirrors the grouping
// width of real AVX2/AVX-512 FMA kernels (original_source/dot.c's
// avx2_dot_f32/avx512_dot_f32 etc.: accumulate per lane, then horizontally
// reduce) without requiring the experimental simd/archsimd compiler support.
// See dispatch_amd64_simd.go for the genuine hardware-vector variant.

package cpudot

import "golang.org/x/sys/cpu"

// runSIMD256Probe reports whether the AVX2+FMA lane grouping is safe to use
// on this CPU, gated first on reported feature flags (per spec §9: never
// trust CPUID alone) and then exercised via the tiny warm-up call wrapped by
// probeTier's recover() guard in dispatch.go.
func runSIMD256Probe() bool {
	if !cpu.X86.HasAVX2 || !cpu.X86.HasFMA {
		return false
	}
	v0 := make([]float32, 16)
	v1 := make([]float32, 16)
	for i := range v0 {
		v0[i], v1[i] = 1, 1
	}
	_ = lanesDotF32(v0, v1, 8)
	return true
}

// runSIMD512Probe reports whether the AVX-512 lane grouping is safe to use.
func runSIMD512Probe() bool {
	if !cpu.X86.HasAVX512F {
		return false
	}
	v0 := make([]float32, 16)
	v1 := make([]float32, 16)
	for i := range v0 {
		v0[i], v1[i] = 1, 1
	}
	_ = lanesDotF32(v0, v1, 16)
	return true
}

// lanesDotF32 sums group-width lanes of v0[i]*v1[i] independently before
// horizontally adding the lanes, matching the accumulate-then-reduce shape
// of a real FMA kernel so the fallback exercises the same rounding order.
func lanesDotF32(v0, v1 []float32, group int) float64 {
	n := len(v0)
	lanes := make([]float32, group)
	full := n - n%group
	for i := 0; i < full; i += group {
		for l := 0; l < group; l++ {
			lanes[l] += v0[i+l] * v1[i+l]
		}
	}
	sum := 0.0
	for _, l := range lanes {
		sum += float64(l)
	}
	for i := full; i < n; i++ {
		sum += float64(v0[i]) * float64(v1[i])
	}
	return sum
}

// lanesDotF64 is lanesDotF32's float64 analogue, used for the fp64 path.
func lanesDotF64(v0, v1 []float64, group int) float64 {
	n := len(v0)
	lanes := make([]float64, group)
	full := n - n%group
	for i := 0; i < full; i += group {
		for l := 0; l < group; l++ {
			lanes[l] += v0[i+l] * v1[i+l]
		}
	}
	sum := 0.0
	for _, l := range lanes {
		sum += l
	}
	for i := full; i < n; i++ {
		sum += v0[i] * v1[i]
	}
	return sum
}

func simd256DotF32(v0, v1 []float32) float64 { return lanesDotF32(v0, v1, 8) }
func simd512DotF32(v0, v1 []float32) float64 { return lanesDotF32(v0, v1, 16) }
func simd256DotF64(v0, v1 []float64) float64 { return lanesDotF64(v0, v1, 4) }
func simd512DotF64(v0, v1 []float64) float64 { return lanesDotF64(v0, v1, 8) }
