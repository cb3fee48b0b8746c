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

package cpudot

import "github.com/oblast/blast/half"

// DotFP16 computes the dot product of two fp16 vectors read with the given
// strides, for n elements, returning an f64 accumulator. Per spec §4.2, the
// fp16 path is always scalar: there is no SIMD-256/512 lane width defined
// for half-precision in this module, so both tier probes are skipped.
func DotFP16(v0 []half.Half, stride0 int, v1 []half.Half, stride1 int, n int) float64 {
	return scalarDotF16(v0, stride0, v1, stride1, n)
}

// DotFP32 computes the dot product of two fp32 vectors read with the given
// strides, for n elements, dispatching to the widest safe SIMD tier when
// both strides are 1, and to the scalar kernel otherwise.
func DotFP32(v0 []float32, stride0 int, v1 []float32, stride1 int, n int) float64 {
	if stride0 != 1 || stride1 != 1 {
		return scalarDotF32(v0, stride0, v1, stride1, n)
	}
	switch selectLevelF32(n) {
	case LevelSIMD512:
		return simd512DotF32(v0[:n], v1[:n])
	case LevelSIMD256:
		return simd256DotF32(v0[:n], v1[:n])
	default:
		return scalarDotF32(v0, 1, v1, 1, n)
	}
}

// DotFP64 computes the dot product of two fp64 vectors read with the given
// strides, for n elements, with the same unit-stride SIMD dispatch rule as
// DotFP32 but with the fp64 lane-count thresholds from spec §4.2.
func DotFP64(v0 []float64, stride0 int, v1 []float64, stride1 int, n int) float64 {
	if stride0 != 1 || stride1 != 1 {
		return scalarDotF64(v0, stride0, v1, stride1, n)
	}
	switch selectLevelF64(n) {
	case LevelSIMD512:
		return simd512DotF64(v0[:n], v1[:n])
	case LevelSIMD256:
		return simd256DotF64(v0[:n], v1[:n])
	default:
		return scalarDotF64(v0, 1, v1, 1, n)
	}
}
