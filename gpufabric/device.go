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
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Flavor is a bitset identifying the GPU vendor family a device belongs to.
// A device can plausibly report more than one bit set in mixed-vendor ICD
// setups, hence bitset rather than enum (spec §3 Device.flavor).
type Flavor int32

const (
	FlavorNVIDIA Flavor = 1 << iota
	FlavorAMD
	FlavorIntel
	FlavorApple
	FlavorAdreno
	FlavorVideoCore
	FlavorPowerVR
	FlavorVivante
	FlavorMali
)

// FPConfig is the float/double capability bitset reported by
// CL_DEVICE_{SINGLE,DOUBLE}_FP_CONFIG: denorm support, inf/nan support,
// rounding modes, fused multiply-add, software float emulation, and
// correctly-rounded divide/sqrt (spec §3 Device capability flags).
type FPConfig int64

const (
	FPDenorm             FPConfig = FPConfig(clFPDenorm)
	FPInfNaN             FPConfig = FPConfig(clFPInfNaN)
	FPRoundToNearest      FPConfig = FPConfig(clFPRoundToNearest)
	FPRoundToZero         FPConfig = FPConfig(clFPRoundToZero)
	FPRoundToInf          FPConfig = FPConfig(clFPRoundToInf)
	FPFMA                 FPConfig = FPConfig(clFPFMA)
	FPSoftFloat           FPConfig = FPConfig(clFPSoftFloat)
	FPCorrectlyRoundedDiv FPConfig = FPConfig(clFPCorrectlyRoundedD)
)

// String renders the set bits of a FPConfig, matching
// original_source/CL/ocl.c's ocl_fp_config_to_string.
func (c FPConfig) String() string {
	var parts []string
	add := func(bit FPConfig, name string) {
		if c&bit != 0 {
			parts = append(parts, name)
		}
	}
	add(FPDenorm, "denorm")
	add(FPInfNaN, "inf_nan")
	add(FPRoundToNearest, "round_to_nearest")
	add(FPRoundToZero, "round_to_zero")
	add(FPRoundToInf, "round_to_inf")
	add(FPFMA, "fma")
	add(FPSoftFloat, "soft_float")
	add(FPCorrectlyRoundedDiv, "correctly_rounded_divide_sqrt")
	return strings.Join(parts, ", ")
}

// Device describes one compute device as enumerated at Init; every field
// below is populated once and never mutated except by an Override bound
// through Open, which temporarily clamps MaxGroups/MaxItems[0] and restores
// them on Close (spec §3 Device, §4.3 Open/Close).
type Device struct {
	platform clPlatformID
	id       clDeviceID

	Name   string
	Vendor string

	VersionMajor, VersionMinor     int32
	CVersionMajor, CVersionMinor   int32

	ClockFrequencyMHz int64
	GlobalMemory      int64
	LocalMemory       int64
	ComputeUnits      int64

	MaxGroups  int64
	Dimensions int64
	MaxItems   [3]int64

	Flavor Flavor

	FP16       bool
	FP64       bool
	FloatFP    FPConfig
	DoubleFP   FPConfig
	Extensions string
}

// roundDownPowerOfTwo rounds v down to the nearest power of two (values of
// 1 or less, including 0, become 1), used at
// Init to enforce the tree-reduction invariant that MaxGroups/MaxItems[0]
// are powers of two (spec §9 "Power-of-two cap invariant").
func roundDownPowerOfTwo(v int64) int64 {
	if v <= 1 {
		return 1
	}
	p := int64(1)
	for p*2 <= v {
		p *= 2
	}
	return p
}

// Init enumerates every platform and device visible to the OpenCL ICD
// loader, populating the returned slice in platform-then-device order
// (spec §4.3 init()). It never mutates global state beyond what the
// backend itself tracks.
func Init() ([]*Device, error) {
	platforms, err := clGetPlatformIDs()
	if err != nil {
		return nil, err
	}
	var devices []*Device
	for _, platform := range platforms {
		ids, err := clGetDeviceIDs(platform)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			d, err := describeDevice(platform, id)
			if err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
	}
	return devices, nil
}

func describeDevice(platform clPlatformID, id clDeviceID) (*Device, error) {
	d := &Device{platform: platform, id: id}

	var err error
	if d.Name, err = clGetDeviceInfoString(id, paramDeviceName); err != nil {
		return nil, err
	}
	if d.Vendor, err = clGetDeviceInfoString(id, paramDeviceVendor); err != nil {
		return nil, err
	}
	version, err := clGetDeviceInfoString(id, paramDeviceVersion)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Sscanf(version, "OpenCL %d.%d", &d.VersionMajor, &d.VersionMinor); err != nil {
		return nil, fmt.Errorf("gpufabric: unparsable device version %q: %w", version, err)
	}
	cversion, err := clGetDeviceInfoString(id, paramDeviceCVersion)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Sscanf(cversion, "OpenCL C %d.%d", &d.CVersionMajor, &d.CVersionMinor); err != nil {
		return nil, fmt.Errorf("gpufabric: unparsable kernel-language version %q: %w", cversion, err)
	}
	if d.Extensions, err = clGetDeviceInfoString(id, paramDeviceExtensions); err != nil {
		return nil, err
	}

	if d.ClockFrequencyMHz, err = clGetDeviceInfoInt64(id, paramMaxClockFrequency, 4); err != nil {
		return nil, err
	}
	if d.GlobalMemory, err = clGetDeviceInfoInt64(id, paramGlobalMemSize, 8); err != nil {
		return nil, err
	}
	if d.LocalMemory, err = clGetDeviceInfoInt64(id, paramLocalMemSize, 8); err != nil {
		return nil, err
	}
	if d.ComputeUnits, err = clGetDeviceInfoInt64(id, paramMaxComputeUnits, 4); err != nil {
		return nil, err
	}
	maxGroups, err := clGetDeviceInfoInt64(id, paramMaxWorkGroupSize, 0)
	if err != nil {
		return nil, err
	}
	d.MaxGroups = roundDownPowerOfTwo(maxGroups)

	floatFP, err := clGetDeviceInfoInt64(id, paramSingleFPConfig, 8)
	if err != nil {
		return nil, err
	}
	d.FloatFP = FPConfig(floatFP)
	doubleFP, err := clGetDeviceInfoInt64(id, paramDoubleFPConfig, 8)
	if err != nil {
		return nil, err
	}
	d.DoubleFP = FPConfig(doubleFP)

	if d.Dimensions, err = clGetDeviceInfoInt64(id, paramMaxWorkItemDims, 4); err != nil {
		return nil, err
	}
	if d.Dimensions > 3 {
		return nil, fmt.Errorf("gpufabric: device %q reports %d work-item dimensions (max 3)", d.Name, d.Dimensions)
	}
	items, err := clGetDeviceInfoSizeArray(id, paramMaxWorkItemSizes, 3)
	if err != nil {
		return nil, err
	}
	itemsPow2 := lo.Map(items, func(v int64, _ int) int64 { return roundDownPowerOfTwo(v) })
	copy(d.MaxItems[:], itemsPow2)

	d.FP64 = strings.Contains(d.Extensions, "cl_khr_fp64")
	d.FP16 = strings.Contains(d.Extensions, "cl_khr_fp16")
	if !d.FP16 {
		// NVIDIA platforms do not advertise cl_khr_fp16 but support it
		// (spec §4.3 init() rule).
		d.FP16 = true
	}

	d.Flavor = 0
	lower := strings.ToLower(d.Vendor + " " + d.Extensions)
	addFlavor := func(substr string, bit Flavor) {
		if strings.Contains(lower, substr) {
			d.Flavor |= bit
		}
	}
	addFlavor("nvidia", FlavorNVIDIA)
	addFlavor("amd", FlavorAMD)
	addFlavor("advanced micro devices", FlavorAMD)
	addFlavor("intel", FlavorIntel)
	addFlavor("apple", FlavorApple)
	addFlavor("qualcomm", FlavorAdreno)
	addFlavor("adreno", FlavorAdreno)

	return d, nil
}
