package gal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepthBitsPreservesFloatOrder(t *testing.T) {
	depths := []float32{-100, -1.5, -0.25, -0.0001, 0, 0.0001, 0.25, 0.5, 0.9999, 1, 10, 5000}
	for i := 1; i < len(depths); i++ {
		a := DepthBits(depths[i-1])
		b := DepthBits(depths[i])
		assert.Less(t, a, b, "DepthBits(%v) should be < DepthBits(%v)", depths[i-1], depths[i])
	}
}

func TestPackSortKeyFieldRoundTrip(t *testing.T) {
	k := PackSortKey(false, 7, 1234, 0.5)
	assert.False(t, k.Transparent())
	assert.Equal(t, uint32(7), k.PipelineID())
	assert.Equal(t, uint32(1234), k.MaterialID())

	k = PackSortKey(true, 2047, (1<<20)-1, 0.25)
	assert.True(t, k.Transparent())
	assert.Equal(t, uint32(2047), k.PipelineID())
	assert.Equal(t, uint32((1<<20)-1), k.MaterialID())
}

func TestPackSortKeyFieldTruncation(t *testing.T) {
	// IDs beyond their field widths wrap instead of bleeding into neighbors.
	k := PackSortKey(false, 1<<11|5, 1<<20|9, 0)
	assert.Equal(t, uint32(5), k.PipelineID())
	assert.Equal(t, uint32(9), k.MaterialID())
	assert.False(t, k.Transparent())
}

func TestSortKeyTransparentPartitionsAfterOpaque(t *testing.T) {
	opaque := PackSortKey(false, 2047, (1<<20)-1, 1e9)
	transparent := PackSortKey(true, 1, 1, 0)
	assert.Less(t, uint64(opaque), uint64(transparent))
}

func TestSortKeyOpaqueDepthFrontToBack(t *testing.T) {
	near := PackSortKey(false, 3, 10, 0.1)
	far := PackSortKey(false, 3, 10, 0.9)
	assert.Less(t, uint64(near), uint64(far))
}

func TestSortKeyTransparentDepthBackToFront(t *testing.T) {
	near := PackSortKey(true, 3, 10, 0.1)
	far := PackSortKey(true, 3, 10, 0.9)
	assert.Less(t, uint64(far), uint64(near))
}

func TestSortKeyBatchesByPipelineBeforeMaterial(t *testing.T) {
	// Pipeline dominates material, material dominates depth.
	a := PackSortKey(false, 1, (1<<20)-1, 1e9)
	b := PackSortKey(false, 2, 0, 0)
	assert.Less(t, uint64(a), uint64(b))

	c := PackSortKey(false, 2, 1, 1e9)
	d := PackSortKey(false, 2, 2, 0)
	assert.Less(t, uint64(c), uint64(d))
}
