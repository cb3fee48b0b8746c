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

// Package reduction implements the tiling loop and tree reduction that turn
// a GPU-side elementwise product into a single scalar: ReductionEngine from
// spec §4.5, ported from original_source/blast.c's blast_dot and
// sum_and_finish. gpufabric supplies the device primitives (buffers,
// kernels, events); this package owns the only algorithm in the module that
// decides how many launches a dot product takes and how their partial sums
// are folded together.
package reduction

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/oblast/blast/gpufabric"
	"github.com/oblast/blast/half"
)

// KernelTable holds the four kernel entry points one Engine drives, compiled
// for a single precision (spec §4.4 EntryPoints; the _os sum kernels are
// compiled but unused, spec §9).
type KernelTable struct {
	Dot     *gpufabric.Kernel
	DotOS   *gpufabric.Kernel
	SumEven *gpufabric.Kernel
	SumOdd  *gpufabric.Kernel
}

// Engine drives one precision's dot-product reduction against one Context.
// It holds no buffers between calls: every Dot call allocates, uses, and
// frees its own scratch memory (spec §4.5 "no persistent scratch state").
type Engine struct {
	ctx       *gpufabric.Context
	precision gpufabric.Precision
	kernels   KernelTable
}

// NewEngine binds an Engine to ctx, precision, and the kernel table compiled
// for that precision by the blast package's Init.
func NewEngine(ctx *gpufabric.Context, precision gpufabric.Precision, kernels KernelTable) *Engine {
	return &Engine{ctx: ctx, precision: precision, kernels: kernels}
}

// Summary is the rolled-up profiling result of one Dot call: the sum of
// every launch's wall time and declared op counts, with throughput figures
// averaged across launches (spec §4.5, matching blast_dot's post-loop
// profiling roll-up in original_source/blast.c). Summary is nil when the
// Engine's Context is not profiling-enabled.
type Summary struct {
	Launches int
	Time     float64 // seconds, summed across every launch this Dot call made
	User     float64 // host-measured seconds, summed
	Gflops   float64 // averaged across launches
	G32ops   float64
	G64ops   float64
}

func maxProfiling(ctx *gpufabric.Context) bool { return ctx.IsProfiling() }

// Dot computes the dot product of n elements of v0 (starting at element
// offset o0, stride s0) against v1 (offset o1, stride s1), both resident in
// device memory at e's precision. It implements the tiling loop from
// blast_dot: each iteration covers as many elements as the device's
// max_groups*max_items[0] capacity allows, accumulating partial sums across
// iterations for vectors too large for one pass (spec §4.5 Dot, edge case
// "n larger than one tile").
func (e *Engine) Dot(v0 *gpufabric.Memory, o0, s0 int64, v1 *gpufabric.Memory, o1, s1 int64, n int64) (float64, *Summary, error) {
	if n <= 0 {
		return 0, nil, fmt.Errorf("reduction: dot: non-positive length %d", n)
	}
	if v0.Context() != e.ctx || v1.Context() != e.ctx {
		return 0, nil, &gpufabric.ContractViolation{Op: "dot", Detail: "memory belongs to a foreign context"}
	}

	d := e.ctx.Device()
	maxGroups := d.MaxGroups
	maxItems := d.MaxItems[0]

	if maxProfiling(e.ctx) {
		e.ctx.ResetProfiling()
	}

	bytes := int64(e.precision.Bytes())
	var sum float64
	for n > 0 {
		groups := ceilDiv(n, maxItems)
		if groups > maxGroups {
			groups = maxGroups
		}
		ne := n
		if groups != 1 || n > maxItems {
			ne = groups * maxItems
		}
		if groups > 1 && ne > n {
			groups--
			ne -= maxItems
		}
		items := ne / groups

		r, err := gpufabric.Allocate(e.ctx, gpufabric.AccessRead, ne*bytes)
		if err != nil {
			return 0, nil, err
		}

		if o0 == 0 && s0 == 1 && o1 == 0 && s1 == 1 {
			if err := e.dotCompact(groups, items, v0, v1, r); err != nil {
				gpufabric.Deallocate(r)
				return 0, nil, err
			}
		} else {
			if err := e.dotStrided(groups, items, v0, o0, s0, v1, o1, s1, r); err != nil {
				gpufabric.Deallocate(r)
				return 0, nil, err
			}
		}

		partial, err := e.sumAndFinish(r, items, groups)
		if err != nil {
			gpufabric.Deallocate(r)
			return 0, nil, err
		}
		sum += partial
		if err := gpufabric.Deallocate(r); err != nil {
			return 0, nil, err
		}

		n -= ne
		o0 += ne * s0
		o1 += ne * s1
	}

	summary, err := e.rollUpProfiling()
	if err != nil {
		return 0, nil, err
	}
	return sum, summary, nil
}

func ceilDiv(n, d int64) int64 { return (n + d - 1) / d }

// timedEnqueue brackets a launch with a host wall-clock measurement when
// the Context is profiling-enabled, matching blast_dot_compact/strided's
// seconds()-before/seconds()-after around ocl.enqueue_range_kernel; the
// call itself only enqueues, so this captures host-side submission
// overhead, not device execution time.
func (e *Engine) timedEnqueue(launch func() (*gpufabric.Event, error)) (*gpufabric.Event, float64, error) {
	if !maxProfiling(e.ctx) {
		event, err := launch()
		return event, 0, err
	}
	start := time.Now()
	event, err := launch()
	return event, time.Since(start).Seconds(), err
}

func (e *Engine) dotCompact(groups, items int64, v0, v1, r *gpufabric.Memory) error {
	event, user, err := e.timedEnqueue(func() (*gpufabric.Event, error) {
		return gpufabric.EnqueueRange(e.ctx, e.kernels.Dot, groups, items, []gpufabric.Arg{
			gpufabric.MemArg(v0), gpufabric.MemArg(v1), gpufabric.MemArg(r),
		})
	})
	if err != nil {
		return err
	}
	return e.recordProfile(event, user, groups*items, 1, 0, 0)
}

func (e *Engine) dotStrided(groups, items int64, v0 *gpufabric.Memory, o0, s0 int64, v1 *gpufabric.Memory, o1, s1 int64, r *gpufabric.Memory) error {
	event, user, err := e.timedEnqueue(func() (*gpufabric.Event, error) {
		return gpufabric.EnqueueRange(e.ctx, e.kernels.DotOS, groups, items, []gpufabric.Arg{
			gpufabric.MemArg(v0), gpufabric.Int32Arg(int32(o0)), gpufabric.Int32Arg(int32(s0)),
			gpufabric.MemArg(v1), gpufabric.Int32Arg(int32(o1)), gpufabric.Int32Arg(int32(s1)),
			gpufabric.MemArg(r),
		})
	})
	if err != nil {
		return err
	}
	return e.recordProfile(event, user, groups*items, 1, 4, 0)
}

// sumAndFinish is the tree reduction: it repeatedly halves the element
// count by launching sum_even/sum_odd (selecting by the parity of the
// current count, folding a dangling odd element into work-item 0),
// alternating between two buffer banks, until one element remains, then
// reads it back to the host (ported from original_source/blast.c's
// sum_and_finish).
func (e *Engine) sumAndFinish(v *gpufabric.Memory, items, groups int64) (float64, error) {
	ne := items * groups
	if ne == 1 {
		if err := e.ctx.Finish(); err != nil {
			return 0, err
		}
		return e.read1(v)
	}

	maxItems := e.ctx.Device().MaxItems[0]
	n := ne
	m := n / 2
	bytes := int64(e.precision.Bytes()) * (ne / 2)
	s, err := gpufabric.Allocate(e.ctx, gpufabric.AccessRead, bytes)
	if err != nil {
		return 0, err
	}
	v0, v1 := v, s

	for m >= 1 {
		switch {
		case m < maxItems:
			groups, items = 1, m
		case groups > 1 && groups%2 == 0:
			groups >>= 1
		case items > 1 && items%2 == 0:
			items >>= 1
		default:
			gpufabric.Deallocate(s)
			return 0, fmt.Errorf("reduction: sum_and_finish: %d does not factor as groups*items under power-of-two caps", m)
		}
		if groups*items != m {
			gpufabric.Deallocate(s)
			return 0, fmt.Errorf("reduction: sum_and_finish: groups*items %d != m %d", groups*items, m)
		}

		k := e.kernels.SumEven
		if n%2 != 0 {
			k = e.kernels.SumOdd
		}
		event, user, err := e.timedEnqueue(func() (*gpufabric.Event, error) {
			return gpufabric.EnqueueRange(e.ctx, k, groups, items, []gpufabric.Arg{
				gpufabric.MemArg(v0), gpufabric.MemArg(v1),
			})
		})
		if err != nil {
			gpufabric.Deallocate(s)
			return 0, err
		}
		if err := e.recordProfile(event, user, ne, 1, 0, 0); err != nil {
			gpufabric.Deallocate(s)
			return 0, err
		}

		v0, v1 = v1, v0
		n = m
		m /= 2
	}

	if err := e.ctx.Finish(); err != nil {
		gpufabric.Deallocate(s)
		return 0, err
	}
	sum, err := e.read1(v0)
	if derr := gpufabric.Deallocate(s); derr != nil && err == nil {
		err = derr
	}
	return sum, err
}

// read1 maps a single element off the device and decodes it at e's
// precision (original_source/blast.c's read_1xfp_from_memory).
func (e *Engine) read1(m *gpufabric.Memory) (float64, error) {
	raw, err := gpufabric.Map(e.ctx, gpufabric.AccessRead, m, 0, int64(e.precision.Bytes()))
	if err != nil {
		return 0, err
	}
	var v float64
	switch e.precision {
	case gpufabric.FP16:
		v = half.FromBits(binary.LittleEndian.Uint16(raw)).Float64()
	case gpufabric.FP32:
		v = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case gpufabric.FP64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(raw))
	default:
		gpufabric.Unmap(e.ctx, m)
		return 0, fmt.Errorf("reduction: read1: invalid precision %d", e.precision)
	}
	if err := gpufabric.Unmap(e.ctx, m); err != nil {
		return 0, err
	}
	return v, nil
}

func (e *Engine) recordProfile(event *gpufabric.Event, user float64, count, fops, i32ops, i64ops int64) error {
	if !maxProfiling(e.ctx) {
		return gpufabric.Release(event)
	}
	rec, err := gpufabric.ProfileAdd(e.ctx, event)
	if err != nil {
		gpufabric.Release(event)
		return err
	}
	rec.User = user
	rec.Count = uint64(count)
	rec.Fops = uint64(fops)
	rec.I32Ops = uint64(i32ops)
	rec.I64Ops = uint64(i64ops)
	return gpufabric.Release(event)
}

// rollUpProfiling sums the Time/User figures and averages the throughput
// figures across every ProfilingRecord this Dot call appended, matching
// blast_dot's post-loop roll-up that folds c->ov->profiling[1:] into [0].
func (e *Engine) rollUpProfiling() (*Summary, error) {
	if !maxProfiling(e.ctx) {
		return nil, nil
	}
	records := e.ctx.ProfilingRecords()
	if len(records) == 0 {
		return nil, nil
	}
	for i := range records {
		if err := gpufabric.Profile(&records[i]); err != nil {
			return nil, err
		}
	}
	summary := &Summary{Launches: len(records)}
	for _, r := range records {
		summary.Time += r.Time
		summary.User += r.User
		summary.Gflops += r.Gflops
		summary.G32ops += r.G32ops
		summary.G64ops += r.G64ops
	}
	summary.Gflops /= float64(len(records))
	summary.G32ops /= float64(len(records))
	summary.G64ops /= float64(len(records))
	return summary, nil
}
