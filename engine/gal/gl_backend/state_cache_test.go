package glbackend

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-engine/lumen/engine/gal"
)

// testFrame is a fully built scene on a fake-driven executor: pipelines,
// materials, geometry, and one sorted command list ready to dispatch.
type testFrame struct {
	exec     *Executor
	fake     *fakeFunctions
	commands []gal.DrawCommand
}

const geometryVariants = 4

// buildFrame constructs pipelineCount pipelines, materialCount materials over
// them, and drawCount sorted commands, mirroring how the render queue shapes
// a frame: shared per-frame and per-object groups, a per-material group per
// material, and per-draw dynamic offsets into a uniform ring.
func buildFrame(t *testing.T, pipelineCount, materialCount, drawCount int, opts ...Option) *testFrame {
	t.Helper()
	exec, fake := newTestExecutor(t, opts...)

	perFrame, err := exec.CreateBindGroupLayout(&gal.BindGroupLayoutDescriptor{
		Entries: []gal.BindGroupLayoutEntry{
			{Binding: 0, Type: gal.BindingTypeUniformBuffer, Visibility: gal.ShaderStageVertex},
		},
	})
	require.NoError(t, err)
	perMaterial, err := exec.CreateBindGroupLayout(&gal.BindGroupLayoutDescriptor{
		Entries: []gal.BindGroupLayoutEntry{
			{Binding: 0, Type: gal.BindingTypeUniformBuffer, Visibility: gal.ShaderStageFragment},
		},
	})
	require.NoError(t, err)
	perObject, err := exec.CreateBindGroupLayout(&gal.BindGroupLayoutDescriptor{
		Entries: []gal.BindGroupLayoutEntry{
			{Binding: 0, Type: gal.BindingTypeUniformBuffer, Visibility: gal.ShaderStageVertex, HasDynamicOffset: true, MinBindingSize: 64},
		},
	})
	require.NoError(t, err)

	layouts := [gal.MaxBindGroupSlots]gal.BindGroupLayout{
		gal.GroupPerFrame:    perFrame,
		gal.GroupPerMaterial: perMaterial,
		gal.GroupPerObject:   perObject,
	}

	// A distinct vertex module per pipeline keeps the descriptors
	// structurally distinct; the back half of the pipelines blend.
	_, fs := createShaderPair(t, exec)
	pipelines := make([]gal.Pipeline, pipelineCount)
	for i := range pipelines {
		vs, err := exec.CreateShaderModule(&gal.ShaderModuleDescriptor{
			Label: "vs", Stage: gal.ShaderStageVertex, GLSL: testGLSL,
		})
		require.NoError(t, err)

		desc := &gal.PipelineDescriptor{
			Label:            "pipeline",
			VertexShader:     vs,
			FragmentShader:   fs,
			BindGroupLayouts: layouts,
			VertexLayout:     testVertexLayout(),
			Depth:            gal.DepthState{TestEnabled: true, WriteEnabled: true, Compare: gal.CompareFunctionLess},
			CullMode:         gal.CullModeBack,
			SampleCount:      1,
		}
		if i >= pipelineCount/2 {
			desc.Blend = gal.BlendStateAlpha()
			desc.Depth.WriteEnabled = false
		}
		pipelines[i], err = exec.CreatePipeline(desc)
		require.NoError(t, err)
	}

	var vbufs, ibufs [geometryVariants]gal.Buffer
	for i := 0; i < geometryVariants; i++ {
		vbufs[i], err = exec.CreateBuffer(&gal.BufferDescriptor{Label: "v", Size: 4096, Usage: gal.BufferUsageVertex})
		require.NoError(t, err)
		ibufs[i], err = exec.CreateBuffer(&gal.BufferDescriptor{Label: "i", Size: 1024, Usage: gal.BufferUsageIndex})
		require.NoError(t, err)
	}

	frameBuf, err := exec.CreateBuffer(&gal.BufferDescriptor{Label: "camera", Size: 256, Usage: gal.BufferUsageUniform})
	require.NoError(t, err)
	frameGroup, err := exec.CreateBindGroup(&gal.BindGroupDescriptor{
		Label:   "per-frame",
		Layout:  perFrame,
		Entries: []gal.BindGroupEntry{{Binding: 0, Buffer: frameBuf}},
	})
	require.NoError(t, err)

	materialGroups := make([]gal.BindGroup, materialCount)
	for i := range materialGroups {
		buf, err := exec.CreateBuffer(&gal.BufferDescriptor{Label: "material", Size: 256, Usage: gal.BufferUsageUniform})
		require.NoError(t, err)
		materialGroups[i], err = exec.CreateBindGroup(&gal.BindGroupDescriptor{
			Label:   "per-material",
			Layout:  perMaterial,
			Entries: []gal.BindGroupEntry{{Binding: 0, Buffer: buf}},
		})
		require.NoError(t, err)
	}

	ring, err := exec.CreateBuffer(&gal.BufferDescriptor{Label: "uniform-ring", Size: 1 << 16, Usage: gal.BufferUsageUniform, Dynamic: true})
	require.NoError(t, err)
	objectGroup, err := exec.CreateBindGroup(&gal.BindGroupDescriptor{
		Label:   "per-object",
		Layout:  perObject,
		Entries: []gal.BindGroupEntry{{Binding: 0, Buffer: ring, Size: 64}},
	})
	require.NoError(t, err)

	commands := make([]gal.DrawCommand, drawCount)
	for i := range commands {
		m := i % materialCount
		p := pipelines[m%pipelineCount]
		g := m % geometryVariants
		commands[i] = gal.DrawCommand{
			SortKey:  gal.PackSortKey(p.Transparent(), p.ID(), uint32(m), float32(i%97)/97),
			Pipeline: p,
			BindGroups: [gal.MaxBindGroupSlots]gal.BindGroup{
				gal.GroupPerFrame:    frameGroup,
				gal.GroupPerMaterial: materialGroups[m],
				gal.GroupPerObject:   objectGroup,
			},
			VertexBuffer:  vbufs[g],
			IndexBuffer:   ibufs[g],
			IndexFormat:   gal.IndexFormatUint16,
			IndexCount:    36,
			DynamicOffset: uint32((i % 256) * 256),
		}
	}
	gal.NewCommandSorter().Sort(commands)

	return &testFrame{exec: exec, fake: fake, commands: commands}
}

func (tf *testFrame) run(t *testing.T) gal.FrameStats {
	t.Helper()
	require.NoError(t, tf.exec.BeginFrame())
	pass, err := tf.exec.BeginRenderPass(&gal.RenderPassDescriptor{
		ColorLoad:  gal.LoadOpClear,
		DepthLoad:  gal.LoadOpClear,
		ClearDepth: 1,
	})
	require.NoError(t, err)
	gal.Dispatch(pass, tf.commands)
	pass.End()
	tf.exec.Submit()
	tf.exec.Present()
	return tf.exec.FrameStats()
}

func TestStateDiffingMatchesUndiffedReference(t *testing.T) {
	diffed := buildFrame(t, 4, 12, 300)
	reference := buildFrame(t, 4, 12, 300, WithStateDiffingDisabled())
	defer diffed.exec.Release()
	defer reference.exec.Release()

	diffedStats := diffed.run(t)
	referenceStats := reference.run(t)

	// Identical construction order makes fake-issued object names line up,
	// so the final simulated driver states must be bit-identical.
	assert.Equal(t, reference.fake.state, diffed.fake.state)
	assert.Equal(t, referenceStats.DrawCalls, diffedStats.DrawCalls)
	assert.Equal(t, reference.fake.draws, diffed.fake.draws)

	assert.Less(t, diffed.fake.stateCalls, reference.fake.stateCalls,
		"diffing must strictly reduce driver traffic")
}

func TestStateChangesStayBoundedUnderHeavyLoad(t *testing.T) {
	frame := buildFrame(t, 8, 50, 2000)
	defer frame.exec.Release()

	stats := frame.run(t)

	assert.Equal(t, 2000, stats.DrawCalls)
	assert.Positive(t, stats.StateChanges)
	assert.LessOrEqual(t, stats.StateChanges, 500,
		"2000 sorted draws over 8 pipelines and 50 materials must stay under 500 driver transitions")
}

func TestPerDrawOffsetRebindsAreNotTransitions(t *testing.T) {
	frame := buildFrame(t, 1, 1, 100)
	defer frame.exec.Release()

	stats := frame.run(t)
	assert.Equal(t, 100, stats.DrawCalls)

	// Every draw rebinds the shared per-object range at a new offset; none
	// of those rebinds may count as a state transition.
	assert.Less(t, stats.StateChanges, 20)
}

func TestShadowReseedsEveryFrame(t *testing.T) {
	frame := buildFrame(t, 2, 4, 40)
	defer frame.exec.Release()

	first := frame.run(t)
	second := frame.run(t)

	// The shadow is distrusted across frames, so the second frame pays the
	// full reseed again instead of diffing against stale values.
	assert.Positive(t, first.StateChanges)
	assert.GreaterOrEqual(t, second.StateChanges, first.StateChanges)
}

func TestValidationModeSeesNoDivergence(t *testing.T) {
	frame := buildFrame(t, 3, 6, 60, WithValidation())
	defer frame.exec.Release()

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	frame.run(t)
	assert.NotContains(t, buf.String(), "divergence",
		"the shadow must agree with the simulated driver after every bind")
}

func TestPipelineSwitchesCountActualSwitches(t *testing.T) {
	frame := buildFrame(t, 8, 8, 400)
	defer frame.exec.Release()

	stats := frame.run(t)
	// Sorted commands batch each pipeline contiguously.
	assert.Equal(t, 8, stats.PipelineSwitches)
}

func TestRecordedSequenceReplays(t *testing.T) {
	frame := buildFrame(t, 2, 4, 50)
	defer frame.exec.Release()

	seq, err := frame.exec.RecordSequence(frame.commands)
	require.NoError(t, err)
	require.True(t, seq.Valid())

	require.NoError(t, frame.exec.BeginFrame())
	pass, err := frame.exec.BeginRenderPass(&gal.RenderPassDescriptor{ColorLoad: gal.LoadOpClear, DepthLoad: gal.LoadOpClear, ClearDepth: 1})
	require.NoError(t, err)
	pass.ExecuteSequence(seq)
	pass.End()
	frame.exec.Submit()

	stats := frame.exec.FrameStats()
	assert.Equal(t, 50, stats.DrawCalls)
	assert.Equal(t, 2, stats.PipelineSwitches)

	// Replay after invalidation is a logged no-op.
	frame.exec.InvalidateSequence(seq)
	require.NoError(t, frame.exec.BeginFrame())
	pass, err = frame.exec.BeginRenderPass(&gal.RenderPassDescriptor{ColorLoad: gal.LoadOpClear, DepthLoad: gal.LoadOpClear, ClearDepth: 1})
	require.NoError(t, err)
	pass.ExecuteSequence(seq)
	pass.End()
	frame.exec.Submit()
	assert.Zero(t, frame.exec.FrameStats().DrawCalls)
}

func TestRecordSequenceRejectsDestroyedBuffers(t *testing.T) {
	frame := buildFrame(t, 1, 1, 4)
	defer frame.exec.Release()

	frame.exec.DestroyBuffer(frame.commands[0].VertexBuffer)
	_, err := frame.exec.RecordSequence(frame.commands)
	assert.Error(t, err)
}

func TestSequenceInterleavesWithImmediateDraws(t *testing.T) {
	frame := buildFrame(t, 2, 4, 30)
	defer frame.exec.Release()

	seq, err := frame.exec.RecordSequence(frame.commands[:20])
	require.NoError(t, err)

	require.NoError(t, frame.exec.BeginFrame())
	pass, err := frame.exec.BeginRenderPass(&gal.RenderPassDescriptor{ColorLoad: gal.LoadOpClear, DepthLoad: gal.LoadOpClear, ClearDepth: 1})
	require.NoError(t, err)
	pass.ExecuteSequence(seq)
	gal.Dispatch(pass, frame.commands[20:])
	pass.End()
	frame.exec.Submit()

	assert.Equal(t, 30, frame.exec.FrameStats().DrawCalls)
}
