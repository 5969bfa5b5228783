package gal

import (
	"fmt"
	"strings"
)

// PrimitiveTopology is the primitive assembly mode.
type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace is the winding order considered front-facing.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// BlendFactor is a blend equation operand.
type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

// BlendOperation combines source and destination terms.
type BlendOperation int

const (
	BlendOperationAdd BlendOperation = iota
	BlendOperationSubtract
	BlendOperationReverseSubtract
)

// BlendComponent is one half (color or alpha) of a blend state.
type BlendComponent struct {
	SrcFactor BlendFactor
	DstFactor BlendFactor
	Operation BlendOperation
}

// BlendState is the full fixed-function blend configuration. A nil
// *BlendState on a pipeline descriptor means blending disabled (opaque).
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// BlendStateAlpha returns the standard premultiplied-alpha-over blend state
// used for transparent geometry.
//
// Returns:
//   - *BlendState: src-alpha / one-minus-src-alpha over
func BlendStateAlpha() *BlendState {
	return &BlendState{
		Color: BlendComponent{
			SrcFactor: BlendFactorSrcAlpha,
			DstFactor: BlendFactorOneMinusSrcAlpha,
			Operation: BlendOperationAdd,
		},
		Alpha: BlendComponent{
			SrcFactor: BlendFactorOne,
			DstFactor: BlendFactorOneMinusSrcAlpha,
			Operation: BlendOperationAdd,
		},
	}
}

// DepthState is the fixed-function depth configuration.
type DepthState struct {
	// TestEnabled gates depth testing; when false Compare is ignored.
	TestEnabled bool

	// WriteEnabled gates depth writes.
	WriteEnabled bool

	// Compare is the depth test predicate, typically Less.
	Compare CompareFunction
}

// ColorMask is a per-channel write mask.
type ColorMask uint8

const (
	ColorMaskR ColorMask = 1 << iota
	ColorMaskG
	ColorMaskB
	ColorMaskA

	// ColorMaskAll enables all four channels.
	ColorMaskAll = ColorMaskR | ColorMaskG | ColorMaskB | ColorMaskA
)

// VertexFormat is the component type of one vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

// VertexAttribute describes one attribute within a vertex buffer layout.
type VertexAttribute struct {
	// Location is the shader input location.
	Location uint32

	// Format is the attribute component type.
	Format VertexFormat

	// Offset is the byte offset within a vertex.
	Offset uint64
}

// VertexLayout describes the interleaved layout of the vertex buffer.
type VertexLayout struct {
	// Stride is the byte distance between consecutive vertices.
	Stride uint64

	// Attributes are the per-vertex attributes, ordered by location.
	Attributes []VertexAttribute
}

// PipelineDescriptor is the complete, immutable specification of a render
// pipeline: programs plus all fixed-function state. Structurally identical
// descriptors are interned to a single Pipeline handle; CacheKey defines the
// structural identity.
type PipelineDescriptor struct {
	Label string

	// VertexShader and FragmentShader are previously created modules.
	VertexShader   ShaderModule
	FragmentShader ShaderModule

	// BindGroupLayouts are the layouts for each frequency slot, nil-padded.
	BindGroupLayouts [MaxBindGroupSlots]BindGroupLayout

	VertexLayout VertexLayout
	Topology     PrimitiveTopology

	Depth DepthState

	// Blend is nil for opaque pipelines.
	Blend *BlendState

	CullMode  CullMode
	FrontFace FrontFace
	ColorMask ColorMask

	// SampleCount is the target MSAA sample count; at least 1.
	SampleCount uint32

	// ColorFormat is the color attachment format the pipeline renders into.
	// TextureFormatUndefined targets the surface swapchain format.
	ColorFormat TextureFormat

	// DepthFormat is the depth attachment format for off-screen pipelines.
	// TextureFormatUndefined on an off-screen pipeline means its pass has no
	// depth attachment. Surface pipelines ignore this and render against the
	// executor's own depth target.
	DepthFormat TextureFormat
}

// CacheKey returns the canonical encoding of the descriptor used for
// interning. Two descriptors with equal keys must always resolve to the same
// cached pipeline handle. The label deliberately does not participate.
//
// Returns:
//   - string: the canonical key
func (d *PipelineDescriptor) CacheKey() string {
	var b strings.Builder
	b.Grow(128)

	fmt.Fprintf(&b, "vs:%d|fs:%d|", moduleID(d.VertexShader), moduleID(d.FragmentShader))
	for _, l := range d.BindGroupLayouts {
		if l == nil {
			b.WriteString("bgl:-|")
			continue
		}
		fmt.Fprintf(&b, "bgl:%s|", l.CacheKey())
	}
	fmt.Fprintf(&b, "vl:%d", d.VertexLayout.Stride)
	for _, a := range d.VertexLayout.Attributes {
		fmt.Fprintf(&b, ",%d:%d:%d", a.Location, a.Format, a.Offset)
	}
	fmt.Fprintf(&b, "|top:%d|depth:%v,%v,%d|cull:%d|ff:%d|cm:%d|ms:%d|cf:%d|df:%d",
		d.Topology, d.Depth.TestEnabled, d.Depth.WriteEnabled, d.Depth.Compare,
		d.CullMode, d.FrontFace, d.ColorMask, d.SampleCount,
		d.ColorFormat, d.DepthFormat)
	if d.Blend != nil {
		fmt.Fprintf(&b, "|blend:%d,%d,%d,%d,%d,%d",
			d.Blend.Color.SrcFactor, d.Blend.Color.DstFactor, d.Blend.Color.Operation,
			d.Blend.Alpha.SrcFactor, d.Blend.Alpha.DstFactor, d.Blend.Alpha.Operation)
	}
	return b.String()
}

func moduleID(m ShaderModule) uint32 {
	if m == nil {
		return 0
	}
	return m.ID()
}

// Pipeline is an opaque handle to an immutable, interned render pipeline.
type Pipeline interface {
	// Label returns the debug label.
	Label() string

	// ID returns the intern-table index, dense from 1, used in sort keys.
	ID() uint32

	// Descriptor returns the immutable creation descriptor.
	Descriptor() *PipelineDescriptor

	// Transparent reports whether the pipeline blends (Blend != nil); used
	// when packing sort keys.
	Transparent() bool

	// Raw returns the backend object: *wgpu.RenderPipeline on the WGPU
	// backend, or the GL backend's pre-linked program plus state snapshot.
	// The caller is responsible for type asserting the returned value.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type pipeline struct {
	id   uint32
	desc PipelineDescriptor
	raw  any
}

var _ Pipeline = &pipeline{}

// NewPipelineHandle creates the backend-agnostic handle for a pipeline. The
// intern table is the only caller; IDs are dense so sort keys stay compact.
//
// Parameters:
//   - id: the dense intern-table index, starting at 1
//   - desc: the descriptor (copied)
//
// Returns:
//   - Pipeline: the handle, with no backend object attached yet
func NewPipelineHandle(id uint32, desc *PipelineDescriptor) Pipeline {
	return &pipeline{id: id, desc: *desc}
}

func (p *pipeline) Label() string                   { return p.desc.Label }
func (p *pipeline) ID() uint32                      { return p.id }
func (p *pipeline) Descriptor() *PipelineDescriptor { return &p.desc }
func (p *pipeline) Transparent() bool               { return p.desc.Blend != nil }
func (p *pipeline) Raw() any                        { return p.raw }
func (p *pipeline) SetRaw(raw any)                  { p.raw = raw }
