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

package gpufabric

// Precision is the dense 0/1/2 index used throughout this module to key
// kernel tables, byte-size tables, and name tables (spec §3 "Precision
// index"). The ordering fp16=0, fp32=1, fp64=2 is a hard invariant: code
// elsewhere indexes arrays directly with this value, never by name.
type Precision int

const (
	FP16 Precision = iota
	FP32
	FP64
)

// precisionCount bounds every table keyed by Precision.
const precisionCount = 3

var precisionNames = [precisionCount]string{"fp16", "fp32", "fp64"}

var precisionBytes = [precisionCount]int{2, 4, 8}

var precisionCTypes = [precisionCount]string{"half", "float", "double"}

// String returns the suffix token ("fp16"/"fp32"/"fp64") used both for
// diagnostics and to name kernel entry points.
func (p Precision) String() string {
	if p < 0 || int(p) >= precisionCount {
		return "invalid"
	}
	return precisionNames[p]
}

// Bytes returns sizeof(fp_t) for this precision: 2, 4, or 8.
func (p Precision) Bytes() int {
	if p < 0 || int(p) >= precisionCount {
		return 0
	}
	return precisionBytes[p]
}

// Valid reports whether p is one of FP16, FP32, FP64.
func (p Precision) Valid() bool {
	return p >= FP16 && p <= FP64
}

// CType returns the OpenCL C scalar type name ("half"/"float"/"double")
// substituted for fp_t when building the kernel program for this precision;
// kernelsrc.BuildOptions calls this rather than re-deriving the same table.
func (p Precision) CType() string {
	if !p.Valid() {
		return ""
	}
	return precisionCTypes[p]
}
