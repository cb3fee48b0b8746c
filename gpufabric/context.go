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

// Override is a temporary bound to a Context for the lifetime of one Open:
// it caps MaxGroups and MaxItems[0] on the owning Device (restoring the
// originals on Close) and supplies a fixed-capacity profiling buffer with a
// ProfilingCount reset at the start of every operation (spec §3 Override).
type Override struct {
	MaxGroups int64 // 0 means "use the device-reported value"
	MaxItems  int64 // 0 means "use the device-reported value"

	Profiling         []ProfilingRecord
	MaxProfilingCount int64
	ProfilingCount    int64

	groupsRestore int64
	itemsRestore  int64
}

// profiling reports whether this Override requests a profiling-enabled
// queue (spec §4.3 open(): "create one queue with profiling enabled iff
// override.max_profiling_count > 0").
func (o *Override) profiling() bool {
	return o != nil && o.MaxProfilingCount > 0
}

// Context binds one Device index to one OpenCL context and one command
// queue; it is not safe for concurrent use from multiple goroutines (spec
// §5). Memory handles, Programs, and Kernels created under a Context are
// only valid for the lifetime of that Context.
type Context struct {
	devices  []*Device
	index    int
	ctx      clContext
	queue    clCommandQueue
	override *Override
	closed   bool
}

// Device returns the Device description this Context is bound to.
func (c *Context) Device() *Device { return c.devices[c.index] }

// IsProfiling reports whether this Context's queue was created with
// CL_QUEUE_PROFILING_ENABLE.
func (c *Context) IsProfiling() bool { return c.override.profiling() }

// Open binds a new Context to devices[index], creating one OpenCL context
// and one command queue. If override is non-nil and requests non-zero
// MaxGroups/MaxItems, the device record's caps are clamped for the
// lifetime of this Context, with the originals restored on Close (spec
// §4.3 open()).
func Open(devices []*Device, index int, override *Override) (*Context, error) {
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("gpufabric: device index %d out of range [0,%d)", index, len(devices))
	}
	d := devices[index]
	if override != nil && override.profiling() && len(override.Profiling) < int(override.MaxProfilingCount) {
		return nil, fmt.Errorf("gpufabric: override profiling buffer (%d) smaller than MaxProfilingCount (%d)",
			len(override.Profiling), override.MaxProfilingCount)
	}

	ctx, err := clCreateContextOne(d.platform, d.id)
	if err != nil {
		return nil, err
	}
	queue, err := clCreateCommandQueueOn(ctx, d.id, override.profiling())
	if err != nil {
		clReleaseContextC(ctx)
		return nil, err
	}

	if override != nil {
		override.groupsRestore = d.MaxGroups
		override.itemsRestore = d.MaxItems[0]
		if override.MaxGroups > 0 && override.MaxGroups < d.MaxGroups {
			d.MaxGroups = override.MaxGroups
		}
		if override.MaxItems > 0 && override.MaxItems < d.MaxItems[0] {
			d.MaxItems[0] = override.MaxItems
		}
		override.ProfilingCount = 0
	}

	return &Context{devices: devices, index: index, ctx: ctx, queue: queue, override: override}, nil
}

// Close disposes the command queue, releases the context, and — if this
// Context was opened with an Override — restores the clamped device caps
// (spec §4.3 close(), §3 Override).
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := clReleaseCommandQueueC(c.queue); err != nil {
		return err
	}
	if err := clReleaseContextC(c.ctx); err != nil {
		return err
	}
	if c.override != nil {
		d := c.Device()
		d.MaxGroups = c.override.groupsRestore
		d.MaxItems[0] = c.override.itemsRestore
	}
	return nil
}

// Flush pushes queued commands to the device without waiting (spec §4.3
// Synchronization: flush and finish are distinct, both callable any time).
func (c *Context) Flush() error { return clFlushC(c.queue) }

// Finish blocks until every queued command on this Context's queue has
// completed.
func (c *Context) Finish() error { return clFinishC(c.queue) }

// ResetProfiling zeroes the Override's ProfilingCount, per spec §4.3
// "profiling_count reset at the start of each operation". A no-op when the
// Context was not opened with a profiling Override.
func (c *Context) ResetProfiling() {
	if c.override != nil {
		c.override.ProfilingCount = 0
	}
}

// ProfilingRecords returns the records appended so far this operation by
// gpufabric.ProfileAdd, or nil if this Context is not profiling-enabled.
func (c *Context) ProfilingRecords() []ProfilingRecord {
	if c.override == nil {
		return nil
	}
	return c.override.Profiling[:c.override.ProfilingCount]
}
