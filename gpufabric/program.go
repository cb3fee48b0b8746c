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

// Program is opaque device-side compiled code built from a KernelSource
// blob plus per-precision build options (spec §3, §4.3).
type Program struct {
	ctx     *Context
	program clProgram
}

// Kernel is a callable entry point created from a Program (spec §3, §4.3).
type Kernel struct {
	ctx    *Context
	kernel clKernel
	name   string
}

// Compile builds source against ctx's device with the given build options,
// returning a BuildFailure (carrying the retrieved build log) on failure
// instead of the bare DeviceError, per spec §4.3/§7.2.
func Compile(ctx *Context, precision Precision, source []byte, options string) (*Program, error) {
	program, err := clCreateProgramWithSourceC(ctx.ctx, source)
	if err != nil {
		return nil, err
	}
	if err := clBuildProgramC(program, ctx.Device().id, options); err != nil {
		log := clGetProgramBuildLogC(program, ctx.Device().id)
		clReleaseProgramC(program)
		return nil, &BuildFailure{Precision: precision, Log: log}
	}
	return &Program{ctx: ctx, program: program}, nil
}

// CreateKernel creates a callable kernel handle for the named entry point
// in p.
func CreateKernel(p *Program, name string) (*Kernel, error) {
	k, err := clCreateKernelC(p.program, name)
	if err != nil {
		return nil, err
	}
	return &Kernel{ctx: p.ctx, kernel: k, name: name}, nil
}

// ReleaseKernel releases a kernel handle.
func ReleaseKernel(k *Kernel) error {
	return clReleaseKernelC(k.kernel)
}

// ReleaseProgram releases a program handle. blast.Host does not release a
// program right after creating its kernels: it holds each program until
// Fini, which releases the program after that precision's kernels.
func ReleaseProgram(p *Program) error {
	return clReleaseProgramC(p.program)
}
