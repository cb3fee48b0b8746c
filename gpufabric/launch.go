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

import "fmt"

// Arg is one kernel argument bound by index. Exactly one of Mem or the
// Int32 form is used per argument; a Memory argument binds the underlying
// cl_mem handle, an Int32 argument binds a 4-byte scalar (used by the _os
// strided kernel variants for offset/stride, spec §4.4).
type Arg struct {
	Mem   *Memory
	Int32 *int32
}

// MemArg constructs an Arg that binds a Memory handle.
func MemArg(m *Memory) Arg { return Arg{Mem: m} }

// Int32Arg constructs an Arg that binds a 4-byte integer value.
func Int32Arg(v int32) Arg { return Arg{Int32: &v} }

// EnqueueRange submits a 1-D N-D range launch of kernel k with the given
// work-group shape and arguments, pre-checking groups/itemsPerGroup
// against the device's caps (spec §4.3 "enqueue_range"). Every Memory
// argument must currently be unmapped (spec §3 invariants).
func EnqueueRange(ctx *Context, k *Kernel, groups, itemsPerGroup int64, args []Arg) (*Event, error) {
	d := ctx.Device()
	if groups > d.MaxGroups {
		return nil, fmt.Errorf("gpufabric: enqueue_range: groups %d exceeds device max_groups %d", groups, d.MaxGroups)
	}
	if itemsPerGroup > d.MaxItems[0] {
		return nil, fmt.Errorf("gpufabric: enqueue_range: items_per_group %d exceeds device max_items[0] %d", itemsPerGroup, d.MaxItems[0])
	}
	for i, a := range args {
		switch {
		case a.Mem != nil:
			if a.Mem.Mapped() {
				return nil, &ContractViolation{Op: "enqueue_range", Detail: fmt.Sprintf("argument %d is still mapped", i)}
			}
			if a.Mem.ctx != ctx {
				return nil, &ContractViolation{Op: "enqueue_range", Detail: fmt.Sprintf("argument %d belongs to a foreign context", i)}
			}
			if err := clSetKernelArgMem(k.kernel, i, a.Mem.mem); err != nil {
				return nil, err
			}
		case a.Int32 != nil:
			if err := clSetKernelArgInt32(k.kernel, i, *a.Int32); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("gpufabric: enqueue_range: argument %d is neither Mem nor Int32", i)
		}
	}
	event, err := clEnqueueNDRangeKernel1D(ctx.queue, k.kernel, groups, itemsPerGroup)
	if err != nil {
		return nil, err
	}
	return &Event{event: event}, nil
}
