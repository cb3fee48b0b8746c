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

//go:build !amd64

// The SIMD-256/SIMD-512 tiers are defined in terms of AVX2/AVX-512 lane
// widths (spec §4.2); on non-amd64 architectures neither tier is ever safe
// to select, so the probes always fail closed and every call runs scalar.

package cpudot

func runSIMD256Probe() bool { return false }
func runSIMD512Probe() bool { return false }

func simd256DotF32(v0, v1 []float32) float64 { panic("cpudot: simd256 tier unreachable on this architecture") }
func simd512DotF32(v0, v1 []float32) float64 { panic("cpudot: simd512 tier unreachable on this architecture") }
func simd256DotF64(v0, v1 []float64) float64 { panic("cpudot: simd256 tier unreachable on this architecture") }
func simd512DotF64(v0, v1 []float64) float64 { panic("cpudot: simd512 tier unreachable on this architecture") }
