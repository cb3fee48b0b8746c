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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// devicesOrSkip enumerates every visible OpenCL device, skipping the test
// when no ICD loader or platform is present. Every test below that opens an
// actual Context needs real hardware; CI without a GPU/OpenCL runtime is
// expected to skip these, not fail them.
func devicesOrSkip(t *testing.T) []*Device {
	t.Helper()
	devices, err := Init()
	if err != nil || len(devices) == 0 {
		t.Skipf("no OpenCL platform/device available: %v", err)
	}
	return devices
}

func TestInitReportsPowerOfTwoCaps(t *testing.T) {
	devices := devicesOrSkip(t)
	for _, d := range devices {
		require.Equal(t, d.MaxGroups, roundDownPowerOfTwo(d.MaxGroups), "device %q MaxGroups not a power of two", d.Name)
		require.Equal(t, d.MaxItems[0], roundDownPowerOfTwo(d.MaxItems[0]), "device %q MaxItems[0] not a power of two", d.Name)
		require.True(t, d.FP16, "device %q should report fp16 support (advertised or NVIDIA-implied)", d.Name)
	}
}

func TestOpenCloseRestoresOverrideCaps(t *testing.T) {
	devices := devicesOrSkip(t)
	d := devices[0]
	original := d.MaxGroups

	ov := &Override{MaxGroups: 1}
	ctx, err := Open(devices, 0, ov)
	require.NoError(t, err)
	require.Equal(t, int64(1), ctx.Device().MaxGroups)

	require.NoError(t, ctx.Close())
	require.Equal(t, original, d.MaxGroups)
}

func TestOpenRejectsOutOfRangeIndex(t *testing.T) {
	devices := devicesOrSkip(t)
	_, err := Open(devices, len(devices), nil)
	require.Error(t, err)
}

// TestInitIsDeterministic re-enumerates devices and checks the second pass
// describes the same devices as the first, field for field, using go-cmp's
// structural diff (ignoring the unexported platform/id handles, which are
// opaque cgo values not comparable by identity across calls).
func TestInitIsDeterministic(t *testing.T) {
	first := devicesOrSkip(t)
	second, err := Init()
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))

	opt := cmpopts.IgnoreUnexported(Device{})
	for i := range first {
		if diff := cmp.Diff(first[i], second[i], opt); diff != "" {
			t.Errorf("device %d descriptions differ between Init() calls (-first +second):\n%s", i, diff)
		}
	}
}
