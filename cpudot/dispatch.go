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

// Package cpudot implements the CPU fallback dot-product kernels: scalar,
// SIMD-256 and SIMD-512, selected at runtime by a safe probe. The probe
// never trusts CPUID alone (some environments report features they cannot
// execute, per spec §9): it gates on golang.org/x/sys/cpu feature flags and
// then executes a tiny warm-up dot product under a recover()-guarded probe,
// matching the fault-guard strategy of the original C implementation's
// Windows SEH __try/__except (see original_source/dot.c's avx2_init /
// avx512_init) translated into the idiomatic Go analogue available to user
// code.
package cpudot

import (
	"os"
	"strconv"
)

// Level identifies which CPU kernel tier is selected for a given call.
type Level int

const (
	// LevelScalar is the pure scalar fallback, used for any non-unit stride
	// and for inputs too short to benefit from a wider tier.
	LevelScalar Level = iota
	// LevelSIMD256 processes 8 fp32 or 4 fp64 lanes per iteration (AVX2-class).
	LevelSIMD256
	// LevelSIMD512 processes 16 fp32 or 8 fp64 lanes per iteration (AVX-512-class).
	LevelSIMD512
)

// String returns a human-readable tier name.
func (l Level) String() string {
	switch l {
	case LevelScalar:
		return "scalar"
	case LevelSIMD256:
		return "simd256"
	case LevelSIMD512:
		return "simd512"
	default:
		return "unknown"
	}
}

// tierState holds the outcome of the one-time, idempotent probe.
type tierState struct {
	simd256 bool
	simd512 bool
}

var probed tierState
var probeDone bool

// probeOnce runs the tier probe exactly once per process, mirroring the
// original's `static bool init` guard in dot32_c/dot64_c.
func probeOnce() {
	if probeDone {
		return
	}
	if NoSIMDEnv() {
		probed = tierState{}
		probeDone = true
		return
	}
	probed = tierState{
		simd256: probeTier(runSIMD256Probe),
		simd512: probeTier(runSIMD512Probe),
	}
	probeDone = true
}

// probeTier safely executes fn, which performs a tiny warm-up computation
// with the tier's lane width (a 16-element dot product on ordinary builds, a
// single vector multiply under goexperiment.simd). Any panic — the idiomatic Go stand-in
// for a hardware illegal-instruction trap — marks the tier unavailable for
// the remainder of the process, exactly like the original's __except(1)
// that disables avx2/avx512 after a caught fault.
func probeTier(fn func() bool) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn()
}

// CurrentTiers reports which SIMD tiers the safe probe found usable on this
// process. Calling it forces the probe to run if it has not already.
func CurrentTiers() (simd256, simd512 bool) {
	probeOnce()
	return probed.simd256, probed.simd512
}

// NoSIMDEnv reports whether BLAST_NO_SIMD is set, forcing scalar fallback
// regardless of detected hardware capability. Renamed, but otherwise the
// same convention as the teacher's HWY_NO_SIMD.
func NoSIMDEnv() bool {
	v := os.Getenv("BLAST_NO_SIMD")
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// selectLevelF32 implements the spec §4.2 dispatch rule for fp32 calls
// (fp16 calls never reach it; DotFP16 is always scalar): unit stride and n>=16 prefers SIMD-512, n>=8 prefers
// SIMD-256, otherwise scalar. Non-unit strides are handled by the caller
// before reaching here (they always use scalar).
func selectLevelF32(n int) Level {
	probeOnce()
	switch {
	case n >= 16 && probed.simd512:
		return LevelSIMD512
	case n >= 8 && probed.simd256:
		return LevelSIMD256
	default:
		return LevelScalar
	}
}

// selectLevelF64 implements the spec §4.2 dispatch rule for fp64: n>=8
// prefers SIMD-512, n>=4 prefers SIMD-256, otherwise scalar.
func selectLevelF64(n int) Level {
	probeOnce()
	switch {
	case n >= 8 && probed.simd512:
		return LevelSIMD512
	case n >= 4 && probed.simd256:
		return LevelSIMD256
	default:
		return LevelScalar
	}
}
