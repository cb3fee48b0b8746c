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

// Package kernelsrc holds the single OpenCL C kernel-language text blob
// shared by every precision and renders the per-precision build options
// that macro-substitute it (spec §4.4 KernelSource). The blob is embedded
// with go:embed, the idiomatic Go analogue of the original's
// memmap_resource("blast_cl", ...) win32 resource loader: both are "a
// locator function returns (pointer, length) for a named resource" (spec
// §9).
package kernelsrc

import (
	"embed"
	"fmt"

	"github.com/oblast/blast/gpufabric"
)

//go:embed blast.cl
var source embed.FS

// Source returns the raw kernel-language text blob, analogous to the
// original's blast_cl resource (label, payload, length) -- here just the
// payload, since Go's module build already knows the length.
func Source() []byte {
	data, err := source.ReadFile("blast.cl")
	if err != nil {
		// The file is embedded at compile time; a read failure here means
		// the embed directive itself is broken, which go:embed guarantees
		// cannot happen for a file that exists at build time.
		panic(fmt.Sprintf("kernelsrc: embedded blast.cl missing: %v", err))
	}
	return data
}

// BuildOptions renders the clBuildProgram options string for one
// precision against one device, matching original_source/blast.c's
// blast_program_options: type aliases, vector aliases, the suffix token
// used to name entry points, the fp16 software-surrogate macro, and the
// device's declared kernel-language version.
func BuildOptions(precision gpufabric.Precision, device *gpufabric.Device) (string, error) {
	if !precision.Valid() {
		return "", fmt.Errorf("kernelsrc: invalid precision index %d", precision)
	}
	fpT := precision.CType()
	opts := fmt.Sprintf(
		"-D fp16_t=half -D fp32_t=float -D fp64_t=double "+
			"-D int32_t=int -D int64_t=long "+
			"-cl-std=CL%d.%d "+
			"-D fp_t=%s -D vec4=%s4 -D vec8=%s8 -D vec16=%s16 -D suffix=%s %s",
		device.CVersionMajor, device.CVersionMinor,
		fpT, fpT, fpT, fpT, precision.String(),
		fp16SurrogateFlag(precision),
	)
	return opts, nil
}

func fp16SurrogateFlag(p gpufabric.Precision) string {
	if p == gpufabric.FP16 {
		return "-D fp16_surrogate"
	}
	return ""
}

// EntryPoints returns the eight kernel-entry-point names compiled for one
// precision: dot/dot_os/sum_odd/sum_odd_os/sum_even/sum_even_os/gemv/
// gemv_os, each suffixed with the precision token (spec §4.4).
func EntryPoints(precision gpufabric.Precision) (dot, dotOS, sumOdd, sumOddOS, sumEven, sumEvenOS, gemv, gemvOS string) {
	suffix := precision.String()
	return "dot_" + suffix, "dot_os_" + suffix,
		"sum_odd_" + suffix, "sum_odd_os_" + suffix,
		"sum_even_" + suffix, "sum_even_os_" + suffix,
		"gemv_" + suffix, "gemv_os_" + suffix
}
