package gal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipelineDescriptor(vs, fs ShaderModule) *PipelineDescriptor {
	return &PipelineDescriptor{
		Label:          "test-pipeline",
		VertexShader:   vs,
		FragmentShader: fs,
		VertexLayout: VertexLayout{
			Stride: 24,
			Attributes: []VertexAttribute{
				{Location: 0, Format: VertexFormatFloat32x3, Offset: 0},
				{Location: 1, Format: VertexFormatFloat32x3, Offset: 12},
			},
		},
		Topology:    PrimitiveTopologyTriangleList,
		Depth:       DepthState{TestEnabled: true, WriteEnabled: true, Compare: CompareFunctionLess},
		CullMode:    CullModeBack,
		FrontFace:   FrontFaceCCW,
		ColorMask:   ColorMaskAll,
		SampleCount: 1,
	}
}

func TestInternTablePipelineIdempotence(t *testing.T) {
	table := NewInternTable()
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	build := func(Pipeline) error { return nil }

	first, err := table.Pipeline(testPipelineDescriptor(vs, fs), build)
	require.NoError(t, err)

	// Same structure, different label and different descriptor instance.
	dup := testPipelineDescriptor(vs, fs)
	dup.Label = "renamed"
	second, err := table.Pipeline(dup, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, table.PipelineBuildCount())
	assert.Equal(t, 1, table.PipelineCount())
}

func TestInternTableDistinctDescriptorsBuildSeparately(t *testing.T) {
	table := NewInternTable()
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	build := func(Pipeline) error { return nil }

	opaque, err := table.Pipeline(testPipelineDescriptor(vs, fs), build)
	require.NoError(t, err)

	blended := testPipelineDescriptor(vs, fs)
	blended.Blend = BlendStateAlpha()
	transparent, err := table.Pipeline(blended, build)
	require.NoError(t, err)

	assert.NotSame(t, opaque, transparent)
	assert.Equal(t, 2, table.PipelineBuildCount())

	// IDs are dense from 1 so they pack into sort keys directly.
	assert.Equal(t, uint32(1), opaque.ID())
	assert.Equal(t, uint32(2), transparent.ID())
	assert.False(t, opaque.Transparent())
	assert.True(t, transparent.Transparent())
}

func TestInternTableFailedBuildIsNotInterned(t *testing.T) {
	table := NewInternTable()
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	boom := errors.New("link failed")
	_, err := table.Pipeline(testPipelineDescriptor(vs, fs), func(Pipeline) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, table.PipelineBuildCount())
	assert.Equal(t, 0, table.PipelineCount())

	// A later successful build of the same descriptor reuses the ID.
	p, err := table.Pipeline(testPipelineDescriptor(vs, fs), func(Pipeline) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p.ID())
}

func TestInternTablePipelineAsync(t *testing.T) {
	table := NewInternTable()
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	desc := testPipelineDescriptor(vs, fs)
	sync, err := table.Pipeline(desc, func(Pipeline) error { return nil })
	require.NoError(t, err)

	done := make(chan Pipeline, 1)
	table.PipelineAsync(desc, func(Pipeline) error { return nil }, func(p Pipeline, err error) {
		assert.NoError(t, err)
		done <- p
	})

	select {
	case p := <-done:
		assert.Same(t, sync, p, "async resolution must hit the interned pipeline")
	case <-time.After(5 * time.Second):
		t.Fatal("async pipeline callback never fired")
	}
	assert.Equal(t, 1, table.PipelineBuildCount())
}

func TestInternTableLayoutIdempotence(t *testing.T) {
	table := NewInternTable()
	desc := &BindGroupLayoutDescriptor{
		Label: "per-object",
		Entries: []BindGroupLayoutEntry{
			{Binding: 0, Type: BindingTypeUniformBuffer, Visibility: ShaderStageVertex, HasDynamicOffset: true, MinBindingSize: 64},
		},
	}

	build := func(BindGroupLayout) error { return nil }

	first, err := table.Layout(desc, build)
	require.NoError(t, err)

	dup := *desc
	dup.Label = "renamed"
	second, err := table.Layout(&dup, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, table.LayoutBuildCount())
	assert.Equal(t, 1, first.DynamicOffsetCount())
}

func TestBindGroupLayoutCacheKeyDistinguishesEntries(t *testing.T) {
	static := &BindGroupLayoutDescriptor{
		Entries: []BindGroupLayoutEntry{
			{Binding: 0, Type: BindingTypeUniformBuffer, Visibility: ShaderStageVertex},
		},
	}
	dynamic := &BindGroupLayoutDescriptor{
		Entries: []BindGroupLayoutEntry{
			{Binding: 0, Type: BindingTypeUniformBuffer, Visibility: ShaderStageVertex, HasDynamicOffset: true},
		},
	}
	assert.NotEqual(t, static.CacheKey(), dynamic.CacheKey())
}

func TestPipelineCacheKeyIgnoresLabel(t *testing.T) {
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	a := testPipelineDescriptor(vs, fs)
	b := testPipelineDescriptor(vs, fs)
	b.Label = "something else"
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.CullMode = CullModeNone
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
}

func TestPipelineCacheKeyDistinguishesTargetFormats(t *testing.T) {
	vs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "vs", Stage: ShaderStageVertex})
	fs := NewShaderModuleHandle(&ShaderModuleDescriptor{Label: "fs", Stage: ShaderStageFragment})

	surface := testPipelineDescriptor(vs, fs)

	// The same state drawing into an off-screen RGBA8 target is a different
	// pipeline; interning them together would hand the surface pipeline to
	// off-screen passes.
	offscreen := testPipelineDescriptor(vs, fs)
	offscreen.ColorFormat = TextureFormatRGBA8Unorm
	assert.NotEqual(t, surface.CacheKey(), offscreen.CacheKey())

	withDepth := testPipelineDescriptor(vs, fs)
	withDepth.ColorFormat = TextureFormatRGBA8Unorm
	withDepth.DepthFormat = TextureFormatDepth32Float
	assert.NotEqual(t, offscreen.CacheKey(), withDepth.CacheKey())
}
