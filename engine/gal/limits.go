package gal

// DeviceLimits is the device capability surface exposed to all layers above
// the GAL. It is queried once at executor initialization and used to adapt
// texture resolutions, bone-storage strategy, and format choices.
type DeviceLimits struct {
	// MaxTextureSize is the maximum width/height of a 2D texture in texels.
	MaxTextureSize uint32

	// MaxUniformBufferSize is the maximum size in bytes of a uniform buffer
	// binding.
	MaxUniformBufferSize uint64

	// MinUniformOffsetAlignment is the required alignment in bytes of dynamic
	// uniform buffer offsets.
	MinUniformOffsetAlignment uint64

	// MaxBindGroups is the maximum number of simultaneously bound groups.
	MaxBindGroups uint32

	// MaxFramesInFlight is the number of frames that may be in flight between
	// CPU submission and GPU completion. 1 for the immediate GL backend.
	MaxFramesInFlight int

	// SupportsStorageBuffers reports whether storage buffer bindings are
	// available.
	SupportsStorageBuffers bool

	// SupportsRenderBundles reports whether recorded command sequences replay
	// natively rather than by re-encoding.
	SupportsRenderBundles bool

	// CompressedFormats lists the compressed texture formats the device
	// accepts, in preference order.
	CompressedFormats []TextureFormat
}

// ValidateBuffer checks a buffer descriptor against the limits.
//
// Parameters:
//   - desc: the descriptor to validate
//
// Returns:
//   - error: a *ResourceLimitError if the request exceeds a limit
func (l *DeviceLimits) ValidateBuffer(desc *BufferDescriptor) error {
	if desc.Usage&BufferUsageUniform != 0 && desc.Size > l.MaxUniformBufferSize {
		return &ResourceLimitError{
			Resource:  "uniform buffer",
			Label:     desc.Label,
			Requested: desc.Size,
			Limit:     l.MaxUniformBufferSize,
		}
	}
	return nil
}

// ValidateTexture checks a texture descriptor against the limits.
//
// Parameters:
//   - desc: the descriptor to validate
//
// Returns:
//   - error: a *ResourceLimitError if a dimension exceeds a limit
func (l *DeviceLimits) ValidateTexture(desc *TextureDescriptor) error {
	max := uint64(l.MaxTextureSize)
	if uint64(desc.Width) > max || uint64(desc.Height) > max {
		side := uint64(desc.Width)
		if uint64(desc.Height) > side {
			side = uint64(desc.Height)
		}
		return &ResourceLimitError{
			Resource:  "texture",
			Label:     desc.Label,
			Requested: side,
			Limit:     max,
		}
	}
	return nil
}
