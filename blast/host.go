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

// Package blast is the public, typed surface of the library (spec §4.6
// HostAPI): it combines gpufabric's device/context layer, kernelsrc's
// embedded kernel source, and reduction's tiling/tree-reduction engine into
// a single Host that opens one device, compiles per-precision kernel
// tables gated on device capability, and exposes Dot/Allocate/Map as plain
// Go methods.
package blast

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oblast/blast/gpufabric"
	"github.com/oblast/blast/kernelsrc"
	"github.com/oblast/blast/reduction"
)

// ContractViolation reports a caller error the backend can detect cheaply:
// an invalid precision index, a memory handle from a foreign Context, a
// profiling buffer exceeded, or an overlapping map (spec §7 item 4).
type ContractViolation struct {
	Op     string
	Detail string
	err    error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("blast: %s: contract violation: %s", e.Op, e.Detail)
}

func (e *ContractViolation) Unwrap() error { return e.err }

// translateViolation converts a *gpufabric.ContractViolation detected
// anywhere in the gpufabric/reduction call chain below Host (foreign-context
// memory, map overlap, a still-mapped kernel argument, profiling-capacity
// exceeded) into the equivalent *blast.ContractViolation, so every spec §7
// item 4 case surfaces through Host's public methods with one consistent
// type, matching Dot's own unsupported-precision check.
func translateViolation(err error) error {
	var v *gpufabric.ContractViolation
	if errors.As(err, &v) {
		return &ContractViolation{Op: v.Op, Detail: v.Detail, err: v}
	}
	return err
}

// ResourceExhaustion wraps a device allocation failure (spec §7 item 5).
type ResourceExhaustion struct {
	Op  string
	Err error
}

func (e *ResourceExhaustion) Error() string {
	return fmt.Sprintf("blast: %s: resource exhaustion: %v", e.Op, e.Err)
}

func (e *ResourceExhaustion) Unwrap() error { return e.Err }

// FatalHook is invoked by Host.Abort, mirroring the original's fatal_if
// abort macro while remaining substitutable for tests (spec §7). Host's
// other methods return their errors and never call the hook themselves.
// The default hook logs the error via logrus with a "component" field (no
// file/line/function fields) and exits the process.
type FatalHook func(error)

func defaultFatalHook(err error) {
	logrus.WithField("component", "blast.Host").Fatal(err)
}

// Host is the public entry point: one Device, one Context, and a
// per-precision table of compiled kernels and ReductionEngines (spec §4.6).
// Not safe for concurrent use from multiple goroutines (spec §5).
type Host struct {
	ctx     *gpufabric.Context
	program [3]*gpufabric.Program
	kernels [3]reduction.KernelTable
	engines [3]*reduction.Engine
	fatal   FatalHook
}

// SetFatalHook installs a replacement for the default abort-on-fatal-error
// behavior; tests install a hook that records the error instead of exiting.
func (h *Host) SetFatalHook(hook FatalHook) { h.fatal = hook }

// Device returns the device description Host was opened against.
func (h *Host) Device() *gpufabric.Device { return h.ctx.Device() }

// Init binds a Host to the already-open ctx, compiles the kernel program for
// every precision the device supports, and populates per-precision kernel
// tables and ReductionEngines (spec §4.3 "Init"/"Compile"/"CreateKernel",
// ported from original_source/blast.c's blast_init). fp16 and fp64 programs
// are skipped entirely when the Device's FP16/FP64 flag is false, matching
// the original's has_fp16/has_fp64 gating; gpufabric.Init sets FP16 on every
// device, so for enumerated devices only fp64 is ever skipped.
func Init(ctx *gpufabric.Context) (*Host, error) {
	h := &Host{ctx: ctx, fatal: defaultFatalHook}
	d := ctx.Device()

	supported := func(p gpufabric.Precision) bool {
		switch p {
		case gpufabric.FP16:
			return d.FP16
		case gpufabric.FP64:
			return d.FP64
		default:
			return true
		}
	}

	for p := gpufabric.FP16; p <= gpufabric.FP64; p++ {
		if !supported(p) {
			continue
		}
		options, err := kernelsrc.BuildOptions(p, d)
		if err != nil {
			h.Fini()
			return nil, err
		}
		program, err := gpufabric.Compile(ctx, p, kernelsrc.Source(), options)
		if err != nil {
			h.Fini()
			return nil, err
		}
		h.program[p] = program

		dotName, dotOSName, sumOddName, _, sumEvenName, _, _, _ := kernelsrc.EntryPoints(p)
		table := reduction.KernelTable{}
		var kerr error
		if table.Dot, kerr = gpufabric.CreateKernel(program, dotName); kerr != nil {
			h.Fini()
			return nil, kerr
		}
		if table.DotOS, kerr = gpufabric.CreateKernel(program, dotOSName); kerr != nil {
			h.Fini()
			return nil, kerr
		}
		if table.SumEven, kerr = gpufabric.CreateKernel(program, sumEvenName); kerr != nil {
			h.Fini()
			return nil, kerr
		}
		if table.SumOdd, kerr = gpufabric.CreateKernel(program, sumOddName); kerr != nil {
			h.Fini()
			return nil, kerr
		}
		h.kernels[p] = table
		h.engines[p] = reduction.NewEngine(ctx, p, table)
	}
	return h, nil
}

// Fini releases every compiled kernel and program this Host holds, gated on
// the same fp16/fp64 support range Init used (original_source/blast.c's
// blast_fini), leaving the Context itself open (the caller owns Context's
// lifetime, per spec §4.3 Close being a distinct operation from Fini).
func (h *Host) Fini() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for p := gpufabric.FP16; p <= gpufabric.FP64; p++ {
		if h.program[p] == nil {
			continue
		}
		table := h.kernels[p]
		for _, k := range []*gpufabric.Kernel{table.Dot, table.DotOS, table.SumEven, table.SumOdd} {
			if k != nil {
				record(gpufabric.ReleaseKernel(k))
			}
		}
		h.kernels[p] = reduction.KernelTable{}
		h.engines[p] = nil
		record(gpufabric.ReleaseProgram(h.program[p]))
		h.program[p] = nil
	}
	return firstErr
}

// Close implements io.Closer by calling Fini, so Host composes with defer
// (spec §4.6 expansion).
func (h *Host) Close() error { return h.Fini() }

// Allocate creates a device buffer of the given access mode and byte size,
// wrapping gpufabric.Allocate's error as ResourceExhaustion (spec §4.6).
func (h *Host) Allocate(access gpufabric.Access, bytes int64) (*gpufabric.Memory, error) {
	m, err := gpufabric.Allocate(h.ctx, access, bytes)
	if err != nil {
		return nil, &ResourceExhaustion{Op: "allocate", Err: err}
	}
	return m, nil
}

// Deallocate releases a device buffer previously returned by Allocate.
func (h *Host) Deallocate(m *gpufabric.Memory) error {
	return gpufabric.Deallocate(m)
}

// Map maps m into host address space for the given access mode and range.
// A foreign-context handle or an overlapping map surfaces as a
// *ContractViolation (spec §7 item 4).
func (h *Host) Map(access gpufabric.Access, m *gpufabric.Memory, offset, bytes int64) ([]byte, error) {
	data, err := gpufabric.Map(h.ctx, access, m, offset, bytes)
	if err != nil {
		return nil, translateViolation(err)
	}
	return data, nil
}

// Unmap releases m's active host mapping.
func (h *Host) Unmap(m *gpufabric.Memory) error {
	return translateViolation(gpufabric.Unmap(h.ctx, m))
}

// Dot computes the dot product of n elements of v0 (offset o0, stride s0)
// against v1 (offset o1, stride s1) at the given precision, returning the
// profiling summary alongside the result when the Context is
// profiling-enabled (spec §4.6 Dot). Requesting a precision the device does
// not support is a ContractViolation, carrying forward the original's
// device-capability gating (spec §9 supplemented feature).
func (h *Host) Dot(precision gpufabric.Precision, v0 *gpufabric.Memory, o0, s0 int64, v1 *gpufabric.Memory, o1, s1 int64, n int64) (float64, *reduction.Summary, error) {
	if !precision.Valid() || h.engines[precision] == nil {
		return 0, nil, &ContractViolation{Op: "dot", Detail: fmt.Sprintf("precision %s not supported by device %q", precision, h.Device().Name)}
	}
	sum, summary, err := h.engines[precision].Dot(v0, o0, s0, v1, o1, s1, n)
	if err != nil {
		return sum, summary, translateViolation(err)
	}
	return sum, summary, nil
}

// Abort reports err to the installed FatalHook (default: structured logrus
// entry followed by os.Exit(1)). Callers that choose not to handle an error
// returned from Allocate/Map/Dot/etc. call Abort to preserve the spec's
// "fatal abort with structured diagnostic" contract (spec §7).
func (h *Host) Abort(err error) {
	if h.fatal != nil {
		h.fatal(err)
		return
	}
	defaultFatalHook(err)
}
