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

// scalarDotF16 is the always-scalar fp16 kernel (spec §4.2: "fp16 strided
// dot is always scalar via HalfFloat.mul"). It is used for every fp16 call
// regardless of stride.
func scalarDotF16(v0 []half.Half, s0 int, v1 []half.Half, s1 int, n int) float64 {
	sum := 0.0
	i0, i1 := 0, 0
	for i := 0; i < n; i++ {
		sum += float64(half.ToFloat(half.Mul(v0[i0], v1[i1])))
		i0 += s0
		i1 += s1
	}
	return sum
}

func scalarDotF32(v0 []float32, s0 int, v1 []float32, s1 int, n int) float64 {
	sum := 0.0
	i0, i1 := 0, 0
	for i := 0; i < n; i++ {
		sum += float64(v0[i0]) * float64(v1[i1])
		i0 += s0
		i1 += s1
	}
	return sum
}

func scalarDotF64(v0 []float64, s0 int, v1 []float64, s1 int, n int) float64 {
	sum := 0.0
	i0, i1 := 0, 0
	for i := 0; i < n; i++ {
		sum += v0[i0] * v1[i1]
		i0 += s0
		i1 += s1
	}
	return sum
}
