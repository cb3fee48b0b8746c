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

package kernelsrc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oblast/blast/gpufabric"
)

func TestSourceIsNonEmpty(t *testing.T) {
	src := Source()
	require.NotEmpty(t, src)
	require.Contains(t, string(src), "ENTRY(dot)")
	require.Contains(t, string(src), "ENTRY(sum_even)")
}

func deviceWithCVersion(major, minor int32) *gpufabric.Device {
	d := &gpufabric.Device{}
	d.CVersionMajor = major
	d.CVersionMinor = minor
	return d
}

func TestBuildOptionsRendersPerPrecisionMacros(t *testing.T) {
	d := deviceWithCVersion(1, 2)

	opts, err := BuildOptions(gpufabric.FP32, d)
	require.NoError(t, err)
	require.Contains(t, opts, "-D fp_t=float")
	require.Contains(t, opts, "-D vec4=float4")
	require.Contains(t, opts, "-D suffix=fp32")
	require.Contains(t, opts, "-cl-std=CL1.2")
	require.NotContains(t, opts, "fp16_surrogate")

	opts16, err := BuildOptions(gpufabric.FP16, d)
	require.NoError(t, err)
	require.Contains(t, opts16, "-D fp_t=half")
	require.Contains(t, opts16, "-D fp16_surrogate")
}

func TestBuildOptionsRejectsInvalidPrecision(t *testing.T) {
	_, err := BuildOptions(gpufabric.Precision(-1), deviceWithCVersion(1, 2))
	require.Error(t, err)
}

func TestEntryPointsAreSuffixed(t *testing.T) {
	dot, dotOS, sumOdd, sumOddOS, sumEven, sumEvenOS, gemv, gemvOS := EntryPoints(gpufabric.FP64)
	for _, name := range []string{dot, dotOS, sumOdd, sumOddOS, sumEven, sumEvenOS, gemv, gemvOS} {
		require.True(t, strings.HasSuffix(name, "_fp64"), "name=%s", name)
	}
	require.Equal(t, "dot_fp64", dot)
	require.Equal(t, "sum_even_fp64", sumEven)
}
