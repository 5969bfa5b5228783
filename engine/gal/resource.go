package gal

import "sync/atomic"

// handleIDs hands out process-unique IDs for handles that need a stable
// integer identity (texture views for attachment caching, pipelines for sort
// keys — though pipeline IDs come from the intern table instead).
var handleIDs atomic.Uint32

// BufferUsage is a bit set describing how a buffer may be used.
type BufferUsage uint32

const (
	// BufferUsageVertex allows binding as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << iota

	// BufferUsageIndex allows binding as an index buffer.
	BufferUsageIndex

	// BufferUsageUniform allows binding as a uniform buffer range.
	BufferUsageUniform
)

// BufferDescriptor describes a buffer to create. Size and Usage are
// immutable once the buffer exists.
type BufferDescriptor struct {
	// Label is a debug label carried into backend objects.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the allowed usage set.
	Usage BufferUsage

	// Dynamic hints that contents are rewritten every frame, letting the
	// backend pick a streaming memory type.
	Dynamic bool
}

// Buffer is an opaque handle to byte-addressable GPU memory. Ownership stays
// with the creating subsystem; the GAL never destroys buffers implicitly.
type Buffer interface {
	// Label returns the debug label.
	Label() string

	// Size returns the immutable size in bytes.
	Size() uint64

	// Usage returns the immutable usage set.
	Usage() BufferUsage

	// Dynamic reports the per-frame-rewrite hint.
	Dynamic() bool

	// Raw returns the backend object (e.g. *wgpu.Buffer or a GL buffer id).
	// The caller is responsible for type asserting the returned value.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type buffer struct {
	desc BufferDescriptor
	raw  any
}

var _ Buffer = &buffer{}

// NewBufferHandle creates the backend-agnostic handle for a buffer. Called by
// executors during CreateBuffer; not useful on its own.
//
// Parameters:
//   - desc: the validated descriptor (copied)
//
// Returns:
//   - Buffer: the handle, with no backend object attached yet
func NewBufferHandle(desc *BufferDescriptor) Buffer {
	return &buffer{desc: *desc}
}

func (b *buffer) Label() string      { return b.desc.Label }
func (b *buffer) Size() uint64       { return b.desc.Size }
func (b *buffer) Usage() BufferUsage { return b.desc.Usage }
func (b *buffer) Dynamic() bool      { return b.desc.Dynamic }
func (b *buffer) Raw() any           { return b.raw }
func (b *buffer) SetRaw(raw any)     { b.raw = raw }

// TextureFormat identifies a texel format.
type TextureFormat int

const (
	// TextureFormatUndefined is the zero value; never valid in a descriptor.
	TextureFormatUndefined TextureFormat = iota

	// TextureFormatRGBA8Unorm is 8-bit-per-channel linear RGBA.
	TextureFormatRGBA8Unorm

	// TextureFormatRGBA8UnormSrgb is 8-bit-per-channel sRGB RGBA.
	TextureFormatRGBA8UnormSrgb

	// TextureFormatBGRA8Unorm is the common swapchain byte order.
	TextureFormatBGRA8Unorm

	// TextureFormatR8Unorm is single-channel 8-bit, used for masks and
	// font atlases.
	TextureFormatR8Unorm

	// TextureFormatDepth24Plus is a ≥24-bit depth format.
	TextureFormatDepth24Plus

	// TextureFormatDepth32Float is 32-bit float depth.
	TextureFormatDepth32Float

	// TextureFormatBC1 and TextureFormatBC3 are block-compressed color
	// formats, advertised via DeviceLimits.CompressedFormats when available.
	TextureFormatBC1
	TextureFormatBC3
)

// TextureUsage is a bit set describing how a texture may be used.
type TextureUsage uint32

const (
	// TextureUsageSampled allows sampling from shaders.
	TextureUsageSampled TextureUsage = 1 << iota

	// TextureUsageRenderAttachment allows use as a render pass attachment.
	TextureUsageRenderAttachment

	// TextureUsageCopyDst allows CPU uploads via WriteTexture.
	TextureUsageCopyDst
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Label string

	Width  uint32
	Height uint32
	Depth  uint32

	// ArrayLayers is the layer count; 1 for a plain 2D texture.
	ArrayLayers uint32

	// MipLevelCount is the mip chain length; at least 1.
	MipLevelCount uint32

	Format TextureFormat
	Usage  TextureUsage

	// SampleCount is 1, or the MSAA sample count for attachments.
	SampleCount uint32
}

// Texture is an opaque handle to a GPU texture. A texture may produce zero or
// more TextureViews over mip/layer sub-ranges.
type Texture interface {
	// Label returns the debug label.
	Label() string

	// Descriptor returns the immutable creation descriptor.
	Descriptor() *TextureDescriptor

	// Raw returns the backend object. The caller is responsible for type
	// asserting the returned value.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type texture struct {
	desc TextureDescriptor
	raw  any
}

var _ Texture = &texture{}

// NewTextureHandle creates the backend-agnostic handle for a texture.
//
// Parameters:
//   - desc: the validated descriptor (copied)
//
// Returns:
//   - Texture: the handle, with no backend object attached yet
func NewTextureHandle(desc *TextureDescriptor) Texture {
	return &texture{desc: *desc}
}

func (t *texture) Label() string                  { return t.desc.Label }
func (t *texture) Descriptor() *TextureDescriptor { return &t.desc }
func (t *texture) Raw() any                       { return t.raw }
func (t *texture) SetRaw(raw any)                 { t.raw = raw }

// TextureViewDescriptor selects a mip/layer sub-range of a texture.
type TextureViewDescriptor struct {
	Label string

	BaseMipLevel  uint32
	MipLevelCount uint32

	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// TextureView is an opaque handle to a texture sub-range used as a render
// pass attachment or a shader-sampled resource. On the GL backend the view is
// never materialized as a GPU object; it stays (texture, layer, mip) metadata
// resolved when the view is bound.
type TextureView interface {
	// Label returns the debug label.
	Label() string

	// ID returns a process-unique identity for attachment/bind caching.
	ID() uint32

	// Texture returns the base texture.
	Texture() Texture

	// Descriptor returns the sub-range descriptor.
	Descriptor() *TextureViewDescriptor

	// Raw returns the backend object, nil on backends without native views.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type textureView struct {
	id   uint32
	tex  Texture
	desc TextureViewDescriptor
	raw  any
}

var _ TextureView = &textureView{}

// NewTextureViewHandle creates the backend-agnostic handle for a view.
//
// Parameters:
//   - tex: the base texture
//   - desc: the sub-range descriptor (copied)
//
// Returns:
//   - TextureView: the handle, with no backend object attached yet
func NewTextureViewHandle(tex Texture, desc *TextureViewDescriptor) TextureView {
	return &textureView{id: handleIDs.Add(1), tex: tex, desc: *desc}
}

func (v *textureView) Label() string                      { return v.desc.Label }
func (v *textureView) ID() uint32                         { return v.id }
func (v *textureView) Texture() Texture                   { return v.tex }
func (v *textureView) Descriptor() *TextureViewDescriptor { return &v.desc }
func (v *textureView) Raw() any                           { return v.raw }
func (v *textureView) SetRaw(raw any)                     { v.raw = raw }

// AddressMode controls sampling outside [0,1] texture coordinates.
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeClampToEdge
	AddressModeMirrorRepeat
)

// FilterMode controls magnification/minification filtering.
type FilterMode int

const (
	FilterModeLinear FilterMode = iota
	FilterModeNearest
)

// CompareFunction is a depth/sampler comparison predicate.
type CompareFunction int

const (
	CompareFunctionUndefined CompareFunction = iota
	CompareFunctionNever
	CompareFunctionLess
	CompareFunctionLessEqual
	CompareFunctionGreater
	CompareFunctionGreaterEqual
	CompareFunctionEqual
	CompareFunctionNotEqual
	CompareFunctionAlways
)

// SamplerDescriptor describes a sampler to create.
type SamplerDescriptor struct {
	Label string

	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode

	MagFilter FilterMode
	MinFilter FilterMode

	// Compare, when not Undefined, makes this a comparison sampler.
	Compare CompareFunction
}

// Sampler is an opaque handle to a texture sampler.
type Sampler interface {
	// Label returns the debug label.
	Label() string

	// Descriptor returns the immutable creation descriptor.
	Descriptor() *SamplerDescriptor

	// Raw returns the backend object. The caller is responsible for type
	// asserting the returned value.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type sampler struct {
	desc SamplerDescriptor
	raw  any
}

var _ Sampler = &sampler{}

// NewSamplerHandle creates the backend-agnostic handle for a sampler.
//
// Parameters:
//   - desc: the descriptor (copied)
//
// Returns:
//   - Sampler: the handle, with no backend object attached yet
func NewSamplerHandle(desc *SamplerDescriptor) Sampler {
	return &sampler{desc: *desc}
}

func (s *sampler) Label() string                  { return s.desc.Label }
func (s *sampler) Descriptor() *SamplerDescriptor { return &s.desc }
func (s *sampler) Raw() any                       { return s.raw }
func (s *sampler) SetRaw(raw any)                 { s.raw = raw }

// ShaderStage identifies a programmable stage.
type ShaderStage uint32

const (
	// ShaderStageVertex marks vertex-stage visibility or a vertex program.
	ShaderStageVertex ShaderStage = 1 << iota

	// ShaderStageFragment marks fragment-stage visibility or a fragment
	// program.
	ShaderStageFragment
)

// ShaderModuleDescriptor carries shader source in both backend dialects.
// Each backend compiles only the dialect it consumes; a missing dialect
// surfaces as a *ShaderCompilationError at pipeline creation.
type ShaderModuleDescriptor struct {
	// Label names the module in diagnostics.
	Label string

	// Stage is the programmable stage this module implements.
	Stage ShaderStage

	// WGSL is the WebGPU shading language source.
	WGSL string

	// GLSL is the OpenGL 3.3 core profile source.
	GLSL string
}

// ShaderModule is an opaque handle to a compiled shader module.
type ShaderModule interface {
	// Label returns the debug label.
	Label() string

	// ID returns a process-unique identity used in pipeline cache keys.
	ID() uint32

	// Descriptor returns the source descriptor.
	Descriptor() *ShaderModuleDescriptor

	// Raw returns the backend object. The caller is responsible for type
	// asserting the returned value.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type shaderModule struct {
	id   uint32
	desc ShaderModuleDescriptor
	raw  any
}

var _ ShaderModule = &shaderModule{}

// NewShaderModuleHandle creates the backend-agnostic handle for a module.
//
// Parameters:
//   - desc: the source descriptor (copied)
//
// Returns:
//   - ShaderModule: the handle, with no backend object attached yet
func NewShaderModuleHandle(desc *ShaderModuleDescriptor) ShaderModule {
	return &shaderModule{id: handleIDs.Add(1), desc: *desc}
}

func (m *shaderModule) Label() string                       { return m.desc.Label }
func (m *shaderModule) ID() uint32                          { return m.id }
func (m *shaderModule) Descriptor() *ShaderModuleDescriptor { return &m.desc }
func (m *shaderModule) Raw() any                            { return m.raw }
func (m *shaderModule) SetRaw(raw any)                      { m.raw = raw }

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// LoadOp controls what happens to an attachment at pass begin.
type LoadOp int

const (
	// LoadOpClear clears the attachment to the pass clear value.
	LoadOpClear LoadOp = iota

	// LoadOpLoad preserves the attachment's prior contents.
	LoadOpLoad
)

// RenderPassDescriptor describes one render pass. A nil ColorView targets
// the surface backbuffer with the executor's default depth attachment.
type RenderPassDescriptor struct {
	Label string

	// ColorView is the color attachment, or nil for the surface.
	ColorView TextureView

	// DepthView overrides the default depth attachment when non-nil.
	DepthView TextureView

	ColorLoad LoadOp
	DepthLoad LoadOp

	ClearColor [4]float64
	ClearDepth float32
}
