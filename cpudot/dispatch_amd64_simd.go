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

//go:build amd64 && goexperiment.simd

// This is the genuine hardware-vector variant of the SIMD-256/512 tiers,
// built with real CPU detection via simd/archsimd instead of the lane-
// grouped fallback in dispatch_amd64.go. It requires GOEXPERIMENT=simd.

package cpudot

import "simd/archsimd"

func runSIMD256Probe() bool {
	if !archsimd.X86.AVX2() {
		return false
	}
	v0 := archsimd.LoadFloat32x8Slice(make([]float32, 8))
	v1 := archsimd.LoadFloat32x8Slice(make([]float32, 8))
	_ = v0.Mul(v1)
	return true
}

func runSIMD512Probe() bool {
	if !archsimd.X86.AVX512() {
		return false
	}
	v0 := archsimd.LoadFloat32x16Slice(make([]float32, 16))
	v1 := archsimd.LoadFloat32x16Slice(make([]float32, 16))
	_ = v0.Mul(v1)
	return true
}

// simd256DotF32 computes an 8-lane FMA-accumulated dot product over full
// groups of v0/v1, sweeping any remainder with scalar multiply-adds.
func simd256DotF32(v0, v1 []float32) float64 {
	n := len(v0)
	full := n - n%8
	acc := archsimd.LoadFloat32x8Slice(make([]float32, 8))
	for i := 0; i < full; i += 8 {
		a := archsimd.LoadFloat32x8Slice(v0[i : i+8])
		b := archsimd.LoadFloat32x8Slice(v1[i : i+8])
		acc = a.MulAdd(b, acc)
	}
	lanes := make([]float32, 8)
	acc.StoreSlice(lanes)
	sum := 0.0
	for _, l := range lanes {
		sum += float64(l)
	}
	for i := full; i < n; i++ {
		sum += float64(v0[i]) * float64(v1[i])
	}
	return sum
}

func simd512DotF32(v0, v1 []float32) float64 {
	n := len(v0)
	full := n - n%16
	acc := archsimd.LoadFloat32x16Slice(make([]float32, 16))
	for i := 0; i < full; i += 16 {
		a := archsimd.LoadFloat32x16Slice(v0[i : i+16])
		b := archsimd.LoadFloat32x16Slice(v1[i : i+16])
		acc = a.MulAdd(b, acc)
	}
	lanes := make([]float32, 16)
	acc.StoreSlice(lanes)
	sum := 0.0
	for _, l := range lanes {
		sum += float64(l)
	}
	for i := full; i < n; i++ {
		sum += float64(v0[i]) * float64(v1[i])
	}
	return sum
}

func simd256DotF64(v0, v1 []float64) float64 {
	n := len(v0)
	full := n - n%4
	acc := archsimd.LoadFloat64x4Slice(make([]float64, 4))
	for i := 0; i < full; i += 4 {
		a := archsimd.LoadFloat64x4Slice(v0[i : i+4])
		b := archsimd.LoadFloat64x4Slice(v1[i : i+4])
		acc = a.MulAdd(b, acc)
	}
	lanes := make([]float64, 4)
	acc.StoreSlice(lanes)
	sum := 0.0
	for _, l := range lanes {
		sum += l
	}
	for i := full; i < n; i++ {
		sum += v0[i] * v1[i]
	}
	return sum
}

func simd512DotF64(v0, v1 []float64) float64 {
	n := len(v0)
	full := n - n%8
	acc := archsimd.LoadFloat64x8Slice(make([]float64, 8))
	for i := 0; i < full; i += 8 {
		a := archsimd.LoadFloat64x8Slice(v0[i : i+8])
		b := archsimd.LoadFloat64x8Slice(v1[i : i+8])
		acc = a.MulAdd(b, acc)
	}
	lanes := make([]float64, 8)
	acc.StoreSlice(lanes)
	sum := 0.0
	for _, l := range lanes {
		sum += l
	}
	for i := full; i < n; i++ {
		sum += v0[i] * v1[i]
	}
	return sum
}
