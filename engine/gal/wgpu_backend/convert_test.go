package wgpubackend

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/lumen-engine/lumen/engine/gal"
)

func TestTopologyMapping(t *testing.T) {
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, topologyFor(gal.PrimitiveTopologyTriangleList))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, topologyFor(gal.PrimitiveTopologyTriangleStrip))
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, topologyFor(gal.PrimitiveTopologyLineList))
}

func TestCullAndWindingMapping(t *testing.T) {
	assert.Equal(t, wgpu.CullModeNone, cullModeFor(gal.CullModeNone))
	assert.Equal(t, wgpu.CullModeFront, cullModeFor(gal.CullModeFront))
	assert.Equal(t, wgpu.CullModeBack, cullModeFor(gal.CullModeBack))
	assert.Equal(t, wgpu.FrontFaceCCW, frontFaceFor(gal.FrontFaceCCW))
	assert.Equal(t, wgpu.FrontFaceCW, frontFaceFor(gal.FrontFaceCW))
}

func TestCompareFunctionMapping(t *testing.T) {
	cases := map[gal.CompareFunction]wgpu.CompareFunction{
		gal.CompareFunctionNever:        wgpu.CompareFunctionNever,
		gal.CompareFunctionLess:         wgpu.CompareFunctionLess,
		gal.CompareFunctionLessEqual:    wgpu.CompareFunctionLessEqual,
		gal.CompareFunctionGreater:      wgpu.CompareFunctionGreater,
		gal.CompareFunctionGreaterEqual: wgpu.CompareFunctionGreaterEqual,
		gal.CompareFunctionEqual:        wgpu.CompareFunctionEqual,
		gal.CompareFunctionNotEqual:     wgpu.CompareFunctionNotEqual,
		gal.CompareFunctionAlways:       wgpu.CompareFunctionAlways,
		gal.CompareFunctionUndefined:    wgpu.CompareFunctionUndefined,
	}
	for in, want := range cases {
		assert.Equal(t, want, compareFor(in))
	}
}

func TestBlendStateMapping(t *testing.T) {
	assert.Nil(t, blendStateFor(nil), "opaque pipelines carry no blend state")

	out := blendStateFor(gal.BlendStateAlpha())
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, out.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, out.Color.DstFactor)
	assert.Equal(t, wgpu.BlendOperationAdd, out.Color.Operation)
	assert.Equal(t, wgpu.BlendFactorOne, out.Alpha.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, out.Alpha.DstFactor)
}

func TestWriteMaskMapping(t *testing.T) {
	assert.Equal(t, wgpu.ColorWriteMaskAll, writeMaskFor(0), "zero mask defaults to all channels")
	assert.Equal(t, wgpu.ColorWriteMaskAll, writeMaskFor(gal.ColorMaskAll))
	assert.Equal(t, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskAlpha,
		writeMaskFor(gal.ColorMaskR|gal.ColorMaskA))
}

func TestTextureFormatMapping(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, textureFormatFor(gal.TextureFormatRGBA8Unorm))
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, textureFormatFor(gal.TextureFormatRGBA8UnormSrgb))
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, textureFormatFor(gal.TextureFormatBGRA8Unorm))
	assert.Equal(t, wgpu.TextureFormatR8Unorm, textureFormatFor(gal.TextureFormatR8Unorm))
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, textureFormatFor(gal.TextureFormatDepth24Plus))
	assert.Equal(t, wgpu.TextureFormatDepth32Float, textureFormatFor(gal.TextureFormatDepth32Float))

	// Formats the backend does not advertise resolve to Undefined so
	// creation can reject them.
	assert.Equal(t, wgpu.TextureFormatUndefined, textureFormatFor(gal.TextureFormatBC1))
	assert.Equal(t, wgpu.TextureFormatUndefined, textureFormatFor(gal.TextureFormatBC3))
}

func TestBytesPerTexelDrivesRowPitch(t *testing.T) {
	assert.Equal(t, uint32(1), bytesPerTexel(gal.TextureFormatR8Unorm))
	assert.Equal(t, uint32(4), bytesPerTexel(gal.TextureFormatRGBA8Unorm))
	assert.Equal(t, uint32(4), bytesPerTexel(gal.TextureFormatBGRA8Unorm))
	assert.Equal(t, uint32(4), bytesPerTexel(gal.TextureFormatDepth32Float))

	// Block-compressed formats have no per-texel size; queue writes reject
	// them instead of guessing a pitch.
	assert.Zero(t, bytesPerTexel(gal.TextureFormatBC1))
	assert.Zero(t, bytesPerTexel(gal.TextureFormatBC3))
}

func TestUsageMappings(t *testing.T) {
	usage := textureUsageFor(gal.TextureUsageSampled | gal.TextureUsageCopyDst)
	assert.Equal(t, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, usage)

	// Every buffer accepts queue writes.
	buf := bufferUsageFor(gal.BufferUsageVertex)
	assert.Equal(t, wgpu.BufferUsageCopyDst|wgpu.BufferUsageVertex, buf)
	buf = bufferUsageFor(gal.BufferUsageUniform | gal.BufferUsageIndex)
	assert.Equal(t, wgpu.BufferUsageCopyDst|wgpu.BufferUsageUniform|wgpu.BufferUsageIndex, buf)
}

func TestIndexAndVertexFormatMapping(t *testing.T) {
	assert.Equal(t, wgpu.IndexFormatUint16, indexFormatFor(gal.IndexFormatUint16))
	assert.Equal(t, wgpu.IndexFormatUint32, indexFormatFor(gal.IndexFormatUint32))

	assert.Equal(t, wgpu.VertexFormatFloat32, vertexFormatFor(gal.VertexFormatFloat32))
	assert.Equal(t, wgpu.VertexFormatFloat32x2, vertexFormatFor(gal.VertexFormatFloat32x2))
	assert.Equal(t, wgpu.VertexFormatFloat32x3, vertexFormatFor(gal.VertexFormatFloat32x3))
	assert.Equal(t, wgpu.VertexFormatFloat32x4, vertexFormatFor(gal.VertexFormatFloat32x4))
}

func TestSamplerMappings(t *testing.T) {
	assert.Equal(t, wgpu.AddressModeRepeat, addressModeFor(gal.AddressModeRepeat))
	assert.Equal(t, wgpu.AddressModeClampToEdge, addressModeFor(gal.AddressModeClampToEdge))
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, addressModeFor(gal.AddressModeMirrorRepeat))
	assert.Equal(t, wgpu.FilterModeNearest, filterModeFor(gal.FilterModeNearest))
	assert.Equal(t, wgpu.FilterModeLinear, filterModeFor(gal.FilterModeLinear))
}

func TestLayoutEntryMapping(t *testing.T) {
	dynamic := layoutEntryFor(&gal.BindGroupLayoutEntry{
		Binding:          0,
		Type:             gal.BindingTypeUniformBuffer,
		Visibility:       gal.ShaderStageVertex,
		HasDynamicOffset: true,
		MinBindingSize:   64,
	})
	assert.Equal(t, uint32(0), dynamic.Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, dynamic.Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, dynamic.Buffer.Type)
	assert.True(t, dynamic.Buffer.HasDynamicOffset)
	assert.Equal(t, uint64(64), dynamic.Buffer.MinBindingSize)

	tex := layoutEntryFor(&gal.BindGroupLayoutEntry{
		Binding:    1,
		Type:       gal.BindingTypeTexture,
		Visibility: gal.ShaderStageFragment,
	})
	assert.Equal(t, wgpu.TextureSampleTypeFloat, tex.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, tex.Texture.ViewDimension)

	smp := layoutEntryFor(&gal.BindGroupLayoutEntry{
		Binding:    2,
		Type:       gal.BindingTypeSampler,
		Visibility: gal.ShaderStageVertex | gal.ShaderStageFragment,
	})
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, smp.Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, smp.Visibility)
}
