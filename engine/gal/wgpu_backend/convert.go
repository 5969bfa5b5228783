package wgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen-engine/lumen/engine/gal"
)

func topologyFor(t gal.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gal.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case gal.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func cullModeFor(m gal.CullMode) wgpu.CullMode {
	switch m {
	case gal.CullModeFront:
		return wgpu.CullModeFront
	case gal.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func frontFaceFor(ff gal.FrontFace) wgpu.FrontFace {
	if ff == gal.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func compareFor(c gal.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gal.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	case gal.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gal.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gal.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gal.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case gal.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case gal.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gal.CompareFunctionAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionUndefined
	}
}

func blendFactorFor(f gal.BlendFactor) wgpu.BlendFactor {
	switch f {
	case gal.BlendFactorZero:
		return wgpu.BlendFactorZero
	case gal.BlendFactorOne:
		return wgpu.BlendFactorOne
	case gal.BlendFactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case gal.BlendFactorOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case gal.BlendFactorDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case gal.BlendFactorOneMinusDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	default:
		return wgpu.BlendFactorOne
	}
}

func blendOpFor(op gal.BlendOperation) wgpu.BlendOperation {
	switch op {
	case gal.BlendOperationSubtract:
		return wgpu.BlendOperationSubtract
	case gal.BlendOperationReverseSubtract:
		return wgpu.BlendOperationReverseSubtract
	default:
		return wgpu.BlendOperationAdd
	}
}

func blendStateFor(b *gal.BlendState) *wgpu.BlendState {
	if b == nil {
		return nil
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: blendFactorFor(b.Color.SrcFactor),
			DstFactor: blendFactorFor(b.Color.DstFactor),
			Operation: blendOpFor(b.Color.Operation),
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: blendFactorFor(b.Alpha.SrcFactor),
			DstFactor: blendFactorFor(b.Alpha.DstFactor),
			Operation: blendOpFor(b.Alpha.Operation),
		},
	}
}

func writeMaskFor(m gal.ColorMask) wgpu.ColorWriteMask {
	if m == 0 || m == gal.ColorMaskAll {
		return wgpu.ColorWriteMaskAll
	}
	var mask wgpu.ColorWriteMask
	if m&gal.ColorMaskR != 0 {
		mask |= wgpu.ColorWriteMaskRed
	}
	if m&gal.ColorMaskG != 0 {
		mask |= wgpu.ColorWriteMaskGreen
	}
	if m&gal.ColorMaskB != 0 {
		mask |= wgpu.ColorWriteMaskBlue
	}
	if m&gal.ColorMaskA != 0 {
		mask |= wgpu.ColorWriteMaskAlpha
	}
	return mask
}

func vertexFormatFor(f gal.VertexFormat) wgpu.VertexFormat {
	switch f {
	case gal.VertexFormatFloat32:
		return wgpu.VertexFormatFloat32
	case gal.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case gal.VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

func textureFormatFor(f gal.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gal.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gal.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case gal.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case gal.TextureFormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case gal.TextureFormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	case gal.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		// Compressed formats are not advertised in this backend's
		// DeviceLimits, so they never reach creation.
		return wgpu.TextureFormatUndefined
	}
}

// bytesPerTexel returns the texel size of an uncompressed format, used to
// derive queue-write row pitches. Compressed formats never reach queue
// writes on this backend; creation rejects them.
func bytesPerTexel(f gal.TextureFormat) uint32 {
	switch f {
	case gal.TextureFormatR8Unorm:
		return 1
	case gal.TextureFormatRGBA8Unorm, gal.TextureFormatRGBA8UnormSrgb,
		gal.TextureFormatBGRA8Unorm,
		gal.TextureFormatDepth24Plus, gal.TextureFormatDepth32Float:
		return 4
	default:
		return 0
	}
}

func textureUsageFor(u gal.TextureUsage) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if u&gal.TextureUsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u&gal.TextureUsageRenderAttachment != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if u&gal.TextureUsageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}
	return usage
}

func bufferUsageFor(u gal.BufferUsage) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst
	if u&gal.BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&gal.BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if u&gal.BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	return usage
}

func indexFormatFor(f gal.IndexFormat) wgpu.IndexFormat {
	if f == gal.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

func addressModeFor(m gal.AddressMode) wgpu.AddressMode {
	switch m {
	case gal.AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case gal.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func filterModeFor(f gal.FilterMode) wgpu.FilterMode {
	if f == gal.FilterModeNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func visibilityFor(s gal.ShaderStage) wgpu.ShaderStage {
	var stage wgpu.ShaderStage
	if s&gal.ShaderStageVertex != 0 {
		stage |= wgpu.ShaderStageVertex
	}
	if s&gal.ShaderStageFragment != 0 {
		stage |= wgpu.ShaderStageFragment
	}
	return stage
}

// layoutEntryFor maps one gal layout entry onto the wgpu entry, which tags
// the binding kind through whichever sub-struct is populated.
func layoutEntryFor(e *gal.BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: visibilityFor(e.Visibility),
	}
	switch e.Type {
	case gal.BindingTypeUniformBuffer:
		out.Buffer = wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: e.HasDynamicOffset,
			MinBindingSize:   e.MinBindingSize,
		}
	case gal.BindingTypeTexture:
		out.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case gal.BindingTypeSampler:
		out.Sampler = wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		}
	}
	return out
}
