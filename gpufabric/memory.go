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
	"unsafe"
)

// Access identifies how a Memory handle will be used, matching spec §3 and
// §4.3's allocate()/map() access flags. This is a dense enum, not a
// bitset, per original_source/blast.h's blast_access_read/write/rw.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessReadWrite
)

var allocFlags = [3]clMemFlags{
	clMemFlags(clMemReadOnly),
	clMemFlags(clMemWriteOnly),
	clMemFlags(clMemReadWrite),
}

var mapFlags = [3]clMapFlags{
	clMapFlags(clMapRead),
	// write-only maps use invalidate-region semantics, resolving spec §9's
	// open question in favor of making writes visible to the next launch
	// without a prior read.
	clMapFlags(clMapWriteInvalidate),
	clMapFlags(clMapRead | clMapWrite),
}

// Memory is a device buffer handle: a (device buffer, size, owning
// Context) triple. The host address is nil until Map populates it; Unmap
// clears it. A Memory handle exclusively owns its device buffer and is
// only valid for operations against the Context that allocated it (spec
// §3 Memory handle).
type Memory struct {
	ctx   *Context
	mem   clMem
	bytes int64
	host  unsafe.Pointer
}

// Context returns the owning Context, used to reject cross-context use
// (spec §9 "Cross-context memory is forbidden at contract level").
func (m *Memory) Context() *Context { return m.ctx }

// Bytes returns the buffer's size in bytes.
func (m *Memory) Bytes() int64 { return m.bytes }

// Mapped reports whether this handle currently has an active host mapping.
func (m *Memory) Mapped() bool { return m.host != nil }

// Allocate creates a host-visible device buffer of the given access mode
// and size (spec §4.3 allocate()). Buffers are always allocated with
// CL_MEM_ALLOC_HOST_PTR so every subsequent Map is possible.
func Allocate(ctx *Context, access Access, bytes int64) (*Memory, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("gpufabric: allocate: non-positive size %d", bytes)
	}
	mem, err := clCreateBufferHostVisible(ctx.ctx, allocFlags[access], bytes)
	if err != nil {
		return nil, err
	}
	return &Memory{ctx: ctx, mem: mem, bytes: bytes}, nil
}

// Deallocate releases the device buffer backing m. m must not be mapped.
func Deallocate(m *Memory) error {
	if m.Mapped() {
		return fmt.Errorf("gpufabric: deallocate: memory is still mapped")
	}
	return clReleaseMemObjectC(m.mem)
}

// Map performs a blocking, synchronous map of m into host address space
// and returns the mapped region as a byte slice backed by device memory
// (spec §4.3 map()). A Memory handle must be unmapped before it is used
// as a kernel argument (spec §3 invariants).
func Map(ctx *Context, access Access, m *Memory, offset, bytes int64) ([]byte, error) {
	if m.ctx != ctx {
		return nil, &ContractViolation{Op: "map", Detail: "memory belongs to a foreign context"}
	}
	if m.Mapped() {
		return nil, &ContractViolation{Op: "map", Detail: "overlapping map not permitted"}
	}
	if offset < 0 || bytes <= 0 || offset+bytes > m.bytes {
		return nil, fmt.Errorf("gpufabric: map: range [%d,%d) out of bounds for %d-byte buffer", offset, offset+bytes, m.bytes)
	}
	ptr, err := clEnqueueMapBufferBlocking(ctx.queue, m.mem, mapFlags[access], offset, bytes)
	if err != nil {
		return nil, err
	}
	m.host = ptr
	return unsafe.Slice((*byte)(ptr), int(bytes)), nil
}

// Unmap releases the active host mapping on m, making host-side writes
// visible to the next kernel launch.
func Unmap(ctx *Context, m *Memory) error {
	if !m.Mapped() {
		return fmt.Errorf("gpufabric: unmap: memory is not mapped")
	}
	if err := clEnqueueUnmapMemObjectC(ctx.queue, m.mem, m.host); err != nil {
		return err
	}
	m.host = nil
	return nil
}
