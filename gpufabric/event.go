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

// Event is a one-shot completion token for one enqueued kernel launch. It
// supports reference counting (Retain/Release) and, on a profiling-enabled
// queue, four nanosecond timestamps once finalized via Profile (spec §3
// Event).
type Event struct {
	event clEvent
}

// Wait blocks until every event in events has completed.
func Wait(events []*Event) error {
	raw := make([]clEvent, len(events))
	for i, e := range events {
		raw[i] = e.event
	}
	return clWaitForEventsC(raw)
}

// Retain increments e's reference count.
func Retain(e *Event) error { return clRetainEventC(e.event) }

// Release decrements e's reference count.
func Release(e *Event) error { return clReleaseEventC(e.event) }

// ProfilingRecord holds an event until finalized via Profile; after
// finalizing it carries the derived metrics described in spec §3
// ProfilingRecord. Count/Fops/I32Ops/I64Ops are declared by the caller
// before Profile is invoked (the caller knows what the kernel computes;
// the backend only measures wall time).
type ProfilingRecord struct {
	event *Event

	Queued uint64 // nanoseconds
	Submit uint64
	Start  uint64
	End    uint64

	User   float64 // host-measured seconds, set by the caller
	Count  uint64  // number of kernel invocations this record covers
	Fops   uint64  // declared floating-point ops per invocation
	I32Ops uint64
	I64Ops uint64

	Time   float64 // (End-Start)/1e9
	Gflops float64
	G32ops float64
	G64ops float64
}

// ProfileAdd appends a new, zero-initialized ProfilingRecord to ctx's
// Override profiling buffer, retains e for the record's lifetime, and
// returns a pointer the caller fills in before eventually calling Profile
// (spec §4.3 "profile_add"). It requires a profiling-enabled queue with
// remaining capacity (spec §3 invariants, §7 ContractViolation).
func ProfileAdd(ctx *Context, e *Event) (*ProfilingRecord, error) {
	if !ctx.IsProfiling() {
		return nil, fmt.Errorf("gpufabric: profile_add: queue is not profiling-enabled")
	}
	ov := ctx.override
	if ov.ProfilingCount >= ov.MaxProfilingCount {
		return nil, &ContractViolation{Op: "profile_add", Detail: fmt.Sprintf("profiling buffer capacity (%d) exceeded", ov.MaxProfilingCount)}
	}
	if err := Retain(e); err != nil {
		return nil, err
	}
	idx := ov.ProfilingCount
	ov.Profiling[idx] = ProfilingRecord{event: e}
	ov.ProfilingCount++
	return &ov.Profiling[idx], nil
}

// Profile queries the four profiling timestamps from p's event, computes
// the derived metrics (spec §3 "gflops = declared_fops * count / time_s /
// 1e9", analogous for 32/64-bit integer ops), and releases the event (spec
// §4.3 "profile(record)").
func Profile(p *ProfilingRecord) error {
	var err error
	if p.Queued, err = clGetEventProfilingTimestamp(p.event.event, paramQueued); err != nil {
		return err
	}
	if p.Submit, err = clGetEventProfilingTimestamp(p.event.event, paramSubmit); err != nil {
		return err
	}
	if p.Start, err = clGetEventProfilingTimestamp(p.event.event, paramStart); err != nil {
		return err
	}
	if p.End, err = clGetEventProfilingTimestamp(p.event.event, paramEnd); err != nil {
		return err
	}
	p.Time = float64(p.End-p.Start) / 1e9
	if p.Count != 0 && p.Time != 0 {
		invocationsPerSecond := float64(p.Count) / p.Time
		gops := invocationsPerSecond / 1e9
		p.Gflops = float64(p.Fops) * gops
		p.G32ops = float64(p.I32Ops) * gops
		p.G64ops = float64(p.I64Ops) * gops
	}
	if err := Release(p.event); err != nil {
		return err
	}
	p.event = nil
	return nil
}
