package gal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformAllocatorOffsetsAreAligned(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 4096)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.BeginFrame())

	for i := 0; i < 8; i++ {
		offset, err := a.Allocate(make([]byte, 64))
		require.NoError(t, err)
		assert.Zero(t, offset%256, "offset %d is not aligned", offset)
	}
}

func TestUniformAllocatorRegionsNeverOverlap(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1024)
	require.NoError(t, err)
	defer a.Release()

	// Fill each frame's region completely and track every byte range the
	// allocator hands out over one full trip around the ring.
	type span struct{ lo, hi uint64 }
	var frames [FramesInFlight][]span

	for frame := 0; frame < FramesInFlight; frame++ {
		require.NoError(t, a.BeginFrame())
		for {
			offset, err := a.Allocate(make([]byte, 256))
			if err != nil {
				assert.IsType(t, &AllocatorExhaustedError{}, err)
				break
			}
			frames[frame] = append(frames[frame], span{uint64(offset), uint64(offset) + 256})
		}
		assert.NotEmpty(t, frames[frame])
	}

	for i := 0; i < FramesInFlight; i++ {
		for j := i + 1; j < FramesInFlight; j++ {
			for _, sa := range frames[i] {
				for _, sb := range frames[j] {
					assert.True(t, sa.hi <= sb.lo || sb.hi <= sa.lo,
						"frame %d span [%d,%d) overlaps frame %d span [%d,%d)", i, sa.lo, sa.hi, j, sb.lo, sb.hi)
				}
			}
		}
	}
}

func TestUniformAllocatorRingWrapsToFirstRegion(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1024)
	require.NoError(t, err)
	defer a.Release()

	var first uint32
	for frame := 0; frame <= FramesInFlight; frame++ {
		require.NoError(t, a.BeginFrame())
		offset, err := a.Allocate(make([]byte, 16))
		require.NoError(t, err)
		if frame == 0 {
			first = offset
		}
		if frame == FramesInFlight {
			assert.Equal(t, first, offset, "ring did not wrap back to the first region")
		}
	}
}

func TestUniformAllocatorExhaustionError(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 512)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.BeginFrame())

	_, err = a.Allocate(make([]byte, 512))
	require.NoError(t, err)

	_, err = a.Allocate(make([]byte, 128))
	require.Error(t, err)

	exhausted, ok := err.(*AllocatorExhaustedError)
	require.True(t, ok)
	assert.Equal(t, uint64(128), exhausted.Requested)
	assert.Equal(t, uint64(0), exhausted.Remaining)
	assert.Equal(t, uint64(512), exhausted.RegionSize)
}

func TestUniformAllocatorFlushIsOneWriteAtRegionBase(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1024)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.BeginFrame())
	require.NoError(t, a.BeginFrame()) // advance past the first region

	first := []byte{1, 2, 3, 4}
	second := []byte{5, 6, 7, 8}
	offset, err := a.Allocate(first)
	require.NoError(t, err)
	_, err = a.Allocate(second)
	require.NoError(t, err)

	require.NoError(t, a.Flush())

	require.Len(t, exec.writes, 1)
	w := exec.writes[0]
	assert.Equal(t, a.Buffer(), w.buf)
	assert.Equal(t, uint64(offset), w.offset, "flush must start at the region base")

	// Staged bytes land back to back, each allocation padded to alignment.
	assert.Equal(t, first, w.data[:4])
	assert.Equal(t, second, w.data[256:260])
}

func TestUniformAllocatorFlushWithNothingStagedWritesNothing(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1024)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.BeginFrame())
	require.NoError(t, a.Flush())
	assert.Empty(t, exec.writes)
}

func TestUniformAllocatorGrowDefersToNextFrame(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1024)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.BeginFrame())
	oldBuffer := a.Buffer()

	a.Grow(4096)
	assert.Equal(t, uint64(1024), a.RegionSize(), "grow must not resize mid-frame")
	assert.Equal(t, oldBuffer, a.Buffer())

	require.NoError(t, a.BeginFrame())
	assert.Equal(t, uint64(4096), a.RegionSize())
	assert.NotEqual(t, oldBuffer, a.Buffer(), "grow must replace the backing buffer")
	assert.Contains(t, exec.destroyed, oldBuffer)

	// The grown buffer restarts at the first region.
	offset, err := a.Allocate(make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), offset)
}

func TestUniformAllocatorGrowIgnoresShrink(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 2048)
	require.NoError(t, err)
	defer a.Release()

	buffer := a.Buffer()
	a.Grow(512)
	require.NoError(t, a.BeginFrame())
	assert.Equal(t, uint64(2048), a.RegionSize())
	assert.Equal(t, buffer, a.Buffer())
}

func TestUniformAllocatorBackingBufferSpansAllRegions(t *testing.T) {
	exec := newStubExecutor()
	a, err := NewUniformAllocator(exec, 1000)
	require.NoError(t, err)
	defer a.Release()

	// Region size rounds up to alignment; the buffer holds one region per
	// frame in flight.
	assert.Equal(t, uint64(1024), a.RegionSize())
	assert.Equal(t, uint64(1024*FramesInFlight), a.Buffer().Size())
	assert.True(t, a.Buffer().Dynamic())
}

func TestUniformAllocatorRejectsOversizedBuffer(t *testing.T) {
	exec := newStubExecutor()
	exec.limits.MaxUniformBufferSize = 1 << 10

	_, err := NewUniformAllocator(exec, 1<<20)
	require.Error(t, err)
	limit, ok := err.(*ResourceLimitError)
	require.True(t, ok)
	assert.Equal(t, "uniform buffer", limit.Resource)
}
