package gal

import "math"

// SortKey is the 64-bit per-draw ordering key. Sorting commands by key
// ascending yields the full frame order: all opaque draws first, batched by
// pipeline then material and front-to-back within a batch, followed by all
// transparent draws back-to-front.
//
// Bit layout, most significant first:
//
//	bit  63     transparency flag (0 opaque, 1 transparent)
//	bits 52-62  pipeline ID (11 bits, dense intern-table index)
//	bits 32-51  material ID (20 bits)
//	bits  0-31  depth (monotonic float encoding; inverted when transparent)
type SortKey uint64

const (
	sortKeyTransparentBit = 63
	sortKeyPipelineShift  = 52
	sortKeyMaterialShift  = 32

	sortKeyPipelineMask = (1 << 11) - 1
	sortKeyMaterialMask = (1 << 20) - 1
)

// PackSortKey builds a draw ordering key.
//
// Parameters:
//   - transparent: whether the draw blends; partitions after opaque and inverts depth order
//   - pipelineID: the dense pipeline ID, truncated to 11 bits
//   - materialID: the material ID, truncated to 20 bits
//   - depth: view-space depth, typically normalized to [0,1]
//
// Returns:
//   - SortKey: the packed key
func PackSortKey(transparent bool, pipelineID uint32, materialID uint32, depth float32) SortKey {
	d := DepthBits(depth)
	var k SortKey
	if transparent {
		k |= 1 << sortKeyTransparentBit
		// Back-to-front: far draws sort first.
		d = ^d
	}
	k |= SortKey(uint64(pipelineID&sortKeyPipelineMask) << sortKeyPipelineShift)
	k |= SortKey(uint64(materialID&sortKeyMaterialMask) << sortKeyMaterialShift)
	k |= SortKey(d)
	return k
}

// DepthBits converts a float32 depth to a 32-bit pattern whose unsigned
// integer order matches the float order, including negatives. Positive floats
// get the sign bit set; negative floats are fully complemented.
//
// Parameters:
//   - depth: the depth value
//
// Returns:
//   - uint32: the order-preserving bit pattern
func DepthBits(depth float32) uint32 {
	bits := math.Float32bits(depth)
	if bits&0x8000_0000 != 0 {
		return ^bits
	}
	return bits | 0x8000_0000
}

// Transparent reports whether the key belongs to the transparent partition.
//
// Returns:
//   - bool: true if the transparency bit is set
func (k SortKey) Transparent() bool {
	return k>>sortKeyTransparentBit != 0
}

// PipelineID extracts the pipeline ID field.
//
// Returns:
//   - uint32: the 11-bit pipeline ID
func (k SortKey) PipelineID() uint32 {
	return uint32(k>>sortKeyPipelineShift) & sortKeyPipelineMask
}

// MaterialID extracts the material ID field.
//
// Returns:
//   - uint32: the 20-bit material ID
func (k SortKey) MaterialID() uint32 {
	return uint32(k>>sortKeyMaterialShift) & sortKeyMaterialMask
}
