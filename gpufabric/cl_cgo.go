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

// Package gpufabric binds the OpenCL-family compute backend: platform and
// device enumeration, context and command-queue lifecycle, host-visible
// buffers, program build, kernel launch, and event-based profiling. Every
// call into the device goes through cgo into the system ICD loader; nothing
// above this file touches C types directly.
package gpufabric

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>

// blast_set_kernel_arg is a thin indirection so Go can pass either a pointer to
// a value or a raw value (e.g. a cl_mem handle stored in a Go local) without
// cgo complaining about passing Go pointers that themselves contain pointers.
static cl_int blast_set_kernel_arg(cl_kernel k, cl_uint index, size_t size, void* value) {
    return clSetKernelArg(k, index, size, value);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type (
	clPlatformID    = C.cl_platform_id
	clDeviceID      = C.cl_device_id
	clContext       = C.cl_context
	clCommandQueue  = C.cl_command_queue
	clProgram       = C.cl_program
	clKernel        = C.cl_kernel
	clMem           = C.cl_mem
	clEvent         = C.cl_event
	clInt           = C.cl_int
	clUint          = C.cl_uint
	clULong         = C.cl_ulong
	clDeviceType    = C.cl_device_type
	clDeviceFPConf  = C.cl_device_fp_config
	clCommandQProps = C.cl_command_queue_properties
	clMemFlags      = C.cl_mem_flags
	clMapFlags      = C.cl_map_flags
)

const (
	clMemReadWrite        = C.CL_MEM_READ_WRITE
	clMemWriteOnly        = C.CL_MEM_WRITE_ONLY
	clMemReadOnly         = C.CL_MEM_READ_ONLY
	clMemAllocHostPtr     = C.CL_MEM_ALLOC_HOST_PTR
	clMapRead             = C.CL_MAP_READ
	clMapWrite            = C.CL_MAP_WRITE
	clMapWriteInvalidate  = C.CL_MAP_WRITE_INVALIDATE_REGION
	clQueueProfilingFlag  = C.CL_QUEUE_PROFILING_ENABLE
	clFPDenorm            = int64(C.CL_FP_DENORM)
	clFPInfNaN            = int64(C.CL_FP_INF_NAN)
	clFPRoundToNearest    = int64(C.CL_FP_ROUND_TO_NEAREST)
	clFPRoundToZero       = int64(C.CL_FP_ROUND_TO_ZERO)
	clFPRoundToInf        = int64(C.CL_FP_ROUND_TO_INF)
	clFPFMA               = int64(C.CL_FP_FMA)
	clFPSoftFloat         = int64(C.CL_FP_SOFT_FLOAT)
	clFPCorrectlyRoundedD = int64(C.CL_FP_CORRECTLY_ROUNDED_DIVIDE_SQRT)
)

func clSuccess(status clInt) bool { return status == C.CL_SUCCESS }

func cString(s string) (*C.char, func()) {
	cs := C.CString(s)
	return cs, func() { C.free(unsafe.Pointer(cs)) }
}

// clGetPlatformIDs enumerates every OpenCL platform visible to the ICD loader.
func clGetPlatformIDs() ([]clPlatformID, error) {
	var count C.cl_uint
	if st := C.clGetPlatformIDs(0, nil, &count); !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clGetPlatformIDs(count)"}
	}
	if count == 0 {
		return nil, nil
	}
	ids := make([]clPlatformID, int(count))
	if st := C.clGetPlatformIDs(count, (*C.cl_platform_id)(unsafe.Pointer(&ids[0])), nil); !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clGetPlatformIDs(ids)"}
	}
	return ids, nil
}

// clGetDeviceIDs enumerates every device of any type under one platform.
func clGetDeviceIDs(platform clPlatformID) ([]clDeviceID, error) {
	var count C.cl_uint
	st := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if st == C.CL_DEVICE_NOT_FOUND {
		return nil, nil
	}
	if !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clGetDeviceIDs(count)"}
	}
	if count == 0 {
		return nil, nil
	}
	ids := make([]clDeviceID, int(count))
	st = C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count,
		(*C.cl_device_id)(unsafe.Pointer(&ids[0])), nil)
	if !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clGetDeviceIDs(ids)"}
	}
	return ids, nil
}

// clGetDeviceInfoString reads a CL_DEVICE_* string-valued parameter.
func clGetDeviceInfoString(device clDeviceID, param C.cl_device_info) (string, error) {
	var buf [4096]C.char
	var size C.size_t
	st := C.clGetDeviceInfo(device, param, C.size_t(len(buf)), unsafe.Pointer(&buf[0]), &size)
	if !clSuccess(st) {
		return "", &DeviceError{Status: int(st), Site: "clGetDeviceInfo(string)"}
	}
	return C.GoString(&buf[0]), nil
}

// clGetDeviceInfoInt64 reads a CL_DEVICE_* scalar parameter sized as an
// OpenCL size_t/cl_ulong/cl_uint and normalizes it to int64.
func clGetDeviceInfoInt64(device clDeviceID, param C.cl_device_info, width int) (int64, error) {
	switch width {
	case 4:
		var v C.cl_uint
		st := C.clGetDeviceInfo(device, param, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
		if !clSuccess(st) {
			return 0, &DeviceError{Status: int(st), Site: "clGetDeviceInfo(u32)"}
		}
		return int64(v), nil
	case 8:
		var v C.cl_ulong
		st := C.clGetDeviceInfo(device, param, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
		if !clSuccess(st) {
			return 0, &DeviceError{Status: int(st), Site: "clGetDeviceInfo(u64)"}
		}
		return int64(v), nil
	default:
		var v C.size_t
		st := C.clGetDeviceInfo(device, param, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
		if !clSuccess(st) {
			return 0, &DeviceError{Status: int(st), Site: "clGetDeviceInfo(size_t)"}
		}
		return int64(v), nil
	}
}

// clGetDeviceInfoSizeArray reads CL_DEVICE_MAX_WORK_ITEM_SIZES, an array of
// up to maxDims size_t entries.
func clGetDeviceInfoSizeArray(device clDeviceID, param C.cl_device_info, maxDims int) ([]int64, error) {
	buf := make([]C.size_t, maxDims)
	st := C.clGetDeviceInfo(device, param, C.size_t(maxDims)*C.size_t(unsafe.Sizeof(buf[0])),
		unsafe.Pointer(&buf[0]), nil)
	if !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clGetDeviceInfo(size_t[])"}
	}
	out := make([]int64, maxDims)
	for i, v := range buf {
		out[i] = int64(v)
	}
	return out, nil
}

// clCreateContextOne creates a single-device context with a Go-side error
// callback disabled (errinfo notifications are surfaced through returned
// errors instead, matching idiomatic Go).
func clCreateContextOne(platform clPlatformID, device clDeviceID) (clContext, error) {
	props := []C.cl_context_properties{
		C.CL_CONTEXT_PLATFORM, C.cl_context_properties(uintptr(unsafe.Pointer(platform))), 0,
	}
	var r C.cl_int
	ctx := C.clCreateContext(&props[0], 1, &device, nil, nil, &r)
	if !clSuccess(r) || ctx == nil {
		return nil, &DeviceError{Status: int(r), Site: "clCreateContext"}
	}
	return ctx, nil
}

// clCreateCommandQueueOn creates one command queue, optionally profiling-enabled.
func clCreateCommandQueueOn(ctx clContext, device clDeviceID, profiling bool) (clCommandQueue, error) {
	var r C.cl_int
	var q clCommandQueue
	if profiling {
		props := []C.cl_queue_properties{
			C.CL_QUEUE_PROPERTIES, C.cl_queue_properties(C.CL_QUEUE_PROFILING_ENABLE), 0,
		}
		q = C.clCreateCommandQueueWithProperties(ctx, device, &props[0], &r)
	} else {
		q = C.clCreateCommandQueueWithProperties(ctx, device, nil, &r)
	}
	if !clSuccess(r) || q == nil {
		return nil, &DeviceError{Status: int(r), Site: "clCreateCommandQueueWithProperties"}
	}
	return q, nil
}

func clReleaseCommandQueueC(q clCommandQueue) error {
	if st := C.clReleaseCommandQueue(q); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseCommandQueue"}
	}
	return nil
}

func clReleaseContextC(ctx clContext) error {
	if st := C.clReleaseContext(ctx); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseContext"}
	}
	return nil
}

func clFlushC(q clCommandQueue) error {
	if st := C.clFlush(q); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clFlush"}
	}
	return nil
}

func clFinishC(q clCommandQueue) error {
	if st := C.clFinish(q); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clFinish"}
	}
	return nil
}

// clCreateBufferHostVisible always requests CL_MEM_ALLOC_HOST_PTR, matching
// the original's pinned-memory allocation strategy (original_source/CL/ocl.c
// ocl_allocate): every buffer in this module is mappable.
func clCreateBufferHostVisible(ctx clContext, flags clMemFlags, bytes int64) (clMem, error) {
	var r C.cl_int
	m := C.clCreateBuffer(ctx, flags|C.cl_mem_flags(clMemAllocHostPtr), C.size_t(bytes), nil, &r)
	if !clSuccess(r) || m == nil {
		return nil, &DeviceError{Status: int(r), Site: "clCreateBuffer"}
	}
	return m, nil
}

func clReleaseMemObjectC(m clMem) error {
	if st := C.clReleaseMemObject(m); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseMemObject"}
	}
	return nil
}

// clEnqueueMapBufferBlocking performs a synchronous (blocking) map, matching
// the spec's "map (blocking, synchronous)" contract.
func clEnqueueMapBufferBlocking(q clCommandQueue, m clMem, flags clMapFlags,
	offset, bytes int64) (unsafe.Pointer, error) {
	var r C.cl_int
	p := C.clEnqueueMapBuffer(q, m, C.CL_TRUE, flags, C.size_t(offset), C.size_t(bytes),
		0, nil, nil, &r)
	if !clSuccess(r) || p == nil {
		return nil, &DeviceError{Status: int(r), Site: "clEnqueueMapBuffer"}
	}
	return p, nil
}

func clEnqueueUnmapMemObjectC(q clCommandQueue, m clMem, ptr unsafe.Pointer) error {
	if st := C.clEnqueueUnmapMemObject(q, m, ptr, 0, nil, nil); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clEnqueueUnmapMemObject"}
	}
	return nil
}

// clCreateProgramWithSourceC compiles one translation unit from a single
// source blob.
func clCreateProgramWithSourceC(ctx clContext, source []byte) (clProgram, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("gpufabric: empty kernel source")
	}
	cs := C.CString(string(source))
	defer C.free(unsafe.Pointer(cs))
	length := C.size_t(len(source))
	var r C.cl_int
	p := C.clCreateProgramWithSource(ctx, 1, &cs, &length, &r)
	if !clSuccess(r) || p == nil {
		return nil, &DeviceError{Status: int(r), Site: "clCreateProgramWithSource"}
	}
	return p, nil
}

// clBuildProgramC builds a program for one device; on failure the caller is
// expected to retrieve the build log via clGetProgramBuildLogC before
// surfacing a BuildFailure.
func clBuildProgramC(program clProgram, device clDeviceID, options string) error {
	copts, free := cString(options)
	defer free()
	if st := C.clBuildProgram(program, 1, &device, copts, nil, nil); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clBuildProgram"}
	}
	return nil
}

// clGetProgramBuildLogC retrieves the human-readable build log, best-effort
// (a log read failure must not mask the original build error).
func clGetProgramBuildLogC(program clProgram, device clDeviceID) string {
	var size C.size_t
	if st := C.clGetProgramBuildInfo(program, device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size); !clSuccess(st) || size == 0 {
		return ""
	}
	buf := make([]C.char, size)
	if st := C.clGetProgramBuildInfo(program, device, C.CL_PROGRAM_BUILD_LOG, size,
		unsafe.Pointer(&buf[0]), nil); !clSuccess(st) {
		return ""
	}
	return C.GoString(&buf[0])
}

func clReleaseProgramC(p clProgram) error {
	if st := C.clReleaseProgram(p); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseProgram"}
	}
	return nil
}

func clCreateKernelC(program clProgram, name string) (clKernel, error) {
	cname, free := cString(name)
	defer free()
	var r C.cl_int
	k := C.clCreateKernel(program, cname, &r)
	if !clSuccess(r) || k == nil {
		return nil, &DeviceError{Status: int(r), Site: "clCreateKernel(" + name + ")"}
	}
	return k, nil
}

func clReleaseKernelC(k clKernel) error {
	if st := C.clReleaseKernel(k); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseKernel"}
	}
	return nil
}

// clSetKernelArgMem binds a cl_mem argument by index.
func clSetKernelArgMem(k clKernel, index int, m clMem) error {
	st := C.blast_set_kernel_arg(k, C.cl_uint(index), C.size_t(unsafe.Sizeof(m)), unsafe.Pointer(&m))
	if !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clSetKernelArg(mem)"}
	}
	return nil
}

// clSetKernelArgInt32 binds an int32_t argument by index (used by the _os
// strided kernel variants for offset/stride).
func clSetKernelArgInt32(k clKernel, index int, v int32) error {
	cv := C.cl_int(v)
	st := C.blast_set_kernel_arg(k, C.cl_uint(index), C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
	if !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clSetKernelArg(int32)"}
	}
	return nil
}

// clEnqueueNDRangeKernel1D launches a 1-D N-D range kernel: global = groups *
// itemsPerGroup work-items, local = itemsPerGroup per work-group.
func clEnqueueNDRangeKernel1D(q clCommandQueue, k clKernel, groups, itemsPerGroup int64) (clEvent, error) {
	global := C.size_t(groups * itemsPerGroup)
	local := C.size_t(itemsPerGroup)
	var event C.cl_event
	st := C.clEnqueueNDRangeKernel(q, k, 1, nil, &global, &local, 0, nil, &event)
	if !clSuccess(st) {
		return nil, &DeviceError{Status: int(st), Site: "clEnqueueNDRangeKernel"}
	}
	return event, nil
}

func clWaitForEventsC(events []clEvent) error {
	if len(events) == 0 {
		return nil
	}
	st := C.clWaitForEvents(C.cl_uint(len(events)), (*C.cl_event)(unsafe.Pointer(&events[0])))
	if !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clWaitForEvents"}
	}
	return nil
}

func clRetainEventC(e clEvent) error {
	if st := C.clRetainEvent(e); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clRetainEvent"}
	}
	return nil
}

func clReleaseEventC(e clEvent) error {
	if st := C.clReleaseEvent(e); !clSuccess(st) {
		return &DeviceError{Status: int(st), Site: "clReleaseEvent"}
	}
	return nil
}

// clGetEventProfilingTimestamp reads one CL_PROFILING_COMMAND_* nanosecond
// timestamp from a completed event.
func clGetEventProfilingTimestamp(e clEvent, param C.cl_profiling_info) (uint64, error) {
	var v C.cl_ulong
	st := C.clGetEventProfilingInfo(e, param, C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)
	if !clSuccess(st) {
		return 0, &DeviceError{Status: int(st), Site: "clGetEventProfilingInfo"}
	}
	return uint64(v), nil
}

// deviceInfoParams groups the cl_device_info tokens used by device
// enumeration so device.go never imports "C" directly.
var (
	paramDeviceName          = C.cl_device_info(C.CL_DEVICE_NAME)
	paramDeviceVendor        = C.cl_device_info(C.CL_DEVICE_VENDOR)
	paramDeviceVersion       = C.cl_device_info(C.CL_DEVICE_VERSION)
	paramDeviceCVersion      = C.cl_device_info(C.CL_DEVICE_OPENCL_C_VERSION)
	paramDeviceExtensions    = C.cl_device_info(C.CL_DEVICE_EXTENSIONS)
	paramMaxClockFrequency   = C.cl_device_info(C.CL_DEVICE_MAX_CLOCK_FREQUENCY)
	paramGlobalMemSize       = C.cl_device_info(C.CL_DEVICE_GLOBAL_MEM_SIZE)
	paramLocalMemSize        = C.cl_device_info(C.CL_DEVICE_LOCAL_MEM_SIZE)
	paramMaxComputeUnits     = C.cl_device_info(C.CL_DEVICE_MAX_COMPUTE_UNITS)
	paramMaxWorkGroupSize    = C.cl_device_info(C.CL_DEVICE_MAX_WORK_GROUP_SIZE)
	paramDoubleFPConfig      = C.cl_device_info(C.CL_DEVICE_DOUBLE_FP_CONFIG)
	paramSingleFPConfig      = C.cl_device_info(C.CL_DEVICE_SINGLE_FP_CONFIG)
	paramMaxWorkItemDims     = C.cl_device_info(C.CL_DEVICE_MAX_WORK_ITEM_DIMENSIONS)
	paramMaxWorkItemSizes    = C.cl_device_info(C.CL_DEVICE_MAX_WORK_ITEM_SIZES)
	paramQueued              = C.cl_profiling_info(C.CL_PROFILING_COMMAND_QUEUED)
	paramSubmit              = C.cl_profiling_info(C.CL_PROFILING_COMMAND_SUBMIT)
	paramStart               = C.cl_profiling_info(C.CL_PROFILING_COMMAND_START)
	paramEnd                 = C.cl_profiling_info(C.CL_PROFILING_COMMAND_END)
)
