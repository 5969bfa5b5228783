package gal

// FramesInFlight is the ring depth of the uniform allocator: the CPU may be
// up to two frames ahead of the GPU, so three regions guarantee the region
// being written is never the region being read.
const FramesInFlight = 3

// UniformAllocator is a per-frame bump allocator over one large uniform
// buffer split into FramesInFlight regions. Each frame writes only its own
// region; allocations are staged CPU-side and flushed in one WriteBuffer
// before submit. Offsets are aligned to the device's dynamic uniform offset
// alignment.
//
// The allocator is single-threaded per frame, matching the executors.
type UniformAllocator struct {
	exec Executor

	buffer     Buffer
	regionSize uint64
	alignment  uint64

	frame      int
	regionBase uint64
	cursor     uint64

	staging []byte

	// growTo defers a Grow request to the next frame boundary so in-flight
	// regions are never resized under the GPU.
	growTo uint64
}

// NewUniformAllocator creates the allocator and its backing buffer of
// FramesInFlight regions.
//
// Parameters:
//   - exec: the executor that owns the backing buffer
//   - regionSize: the per-frame region size in bytes
//
// Returns:
//   - *UniformAllocator: the new allocator
//   - error: *ResourceLimitError if the backing buffer exceeds device limits
func NewUniformAllocator(exec Executor, regionSize uint64) (*UniformAllocator, error) {
	if exec == nil {
		panic("gal: executor is required to create a uniform allocator")
	}
	a := &UniformAllocator{
		exec:      exec,
		alignment: exec.Limits().MinUniformOffsetAlignment,
	}
	if a.alignment == 0 {
		a.alignment = 256
	}
	if err := a.createBuffer(regionSize); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *UniformAllocator) createBuffer(regionSize uint64) error {
	regionSize = alignUp(regionSize, a.alignment)
	buf, err := a.exec.CreateBuffer(&BufferDescriptor{
		Label:   "uniform-ring",
		Size:    regionSize * FramesInFlight,
		Usage:   BufferUsageUniform,
		Dynamic: true,
	})
	if err != nil {
		return err
	}
	if a.buffer != nil {
		a.exec.DestroyBuffer(a.buffer)
	}
	a.buffer = buf
	a.regionSize = regionSize
	if uint64(cap(a.staging)) < regionSize {
		a.staging = make([]byte, 0, regionSize)
	}
	return nil
}

// Buffer returns the backing buffer, for building the shared per-object bind
// group. Grow replaces it, so the group must be rebuilt after a Grow takes
// effect.
//
// Returns:
//   - Buffer: the backing buffer
func (a *UniformAllocator) Buffer() Buffer {
	return a.buffer
}

// RegionSize returns the current per-frame region size.
//
// Returns:
//   - uint64: the region size in bytes
func (a *UniformAllocator) RegionSize() uint64 {
	return a.regionSize
}

// BeginFrame advances the ring to the next region and resets the bump
// cursor. A pending Grow takes effect here, before any allocation.
//
// Returns:
//   - error: *ResourceLimitError if a pending Grow exceeds device limits
func (a *UniformAllocator) BeginFrame() error {
	if a.growTo > a.regionSize {
		want := a.growTo
		a.growTo = 0
		if err := a.createBuffer(want); err != nil {
			return err
		}
		a.frame = 0
	} else {
		a.frame = (a.frame + 1) % FramesInFlight
	}
	a.regionBase = uint64(a.frame) * a.regionSize
	a.cursor = 0
	a.staging = a.staging[:0]
	return nil
}

// Allocate stages data in the current frame's region and returns the dynamic
// offset to draw with. The offset is relative to the buffer start, so it is
// passed directly as the dynamic offset of the shared per-object group.
//
// Parameters:
//   - data: the uniform bytes for one draw
//
// Returns:
//   - uint32: the aligned dynamic byte offset
//   - error: *AllocatorExhaustedError when the region cannot fit the data
func (a *UniformAllocator) Allocate(data []byte) (uint32, error) {
	size := uint64(len(data))
	if a.cursor+size > a.regionSize {
		return 0, &AllocatorExhaustedError{
			Requested:  size,
			Remaining:  a.regionSize - a.cursor,
			RegionSize: a.regionSize,
		}
	}

	offset := a.regionBase + a.cursor
	a.staging = append(a.staging, data...)

	next := alignUp(a.cursor+size, a.alignment)
	if pad := next - (a.cursor + size); pad > 0 && next <= a.regionSize {
		a.staging = append(a.staging, make([]byte, pad)...)
	}
	a.cursor = next
	if a.cursor > a.regionSize {
		a.cursor = a.regionSize
	}
	return uint32(offset), nil
}

// Flush uploads the frame's staged bytes to the current region in a single
// write. Call once per frame, after command building and before Submit.
//
// Returns:
//   - error: an error if the buffer write fails
func (a *UniformAllocator) Flush() error {
	if len(a.staging) == 0 {
		return nil
	}
	return a.exec.WriteBuffer(a.buffer, a.regionBase, a.staging)
}

// Grow requests a larger per-frame region. The resize is deferred to the
// next BeginFrame so regions referenced by in-flight frames stay untouched;
// it is the standard recovery from an AllocatorExhaustedError.
//
// Parameters:
//   - regionSize: the requested per-frame region size in bytes
func (a *UniformAllocator) Grow(regionSize uint64) {
	if regionSize > a.regionSize && regionSize > a.growTo {
		a.growTo = regionSize
	}
}

// Release destroys the backing buffer.
func (a *UniformAllocator) Release() {
	if a.buffer != nil {
		a.exec.DestroyBuffer(a.buffer)
		a.buffer = nil
	}
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}
