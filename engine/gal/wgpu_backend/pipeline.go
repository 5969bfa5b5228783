package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen-engine/lumen/engine/gal"
)

// Shader entry point names expected by every WGSL module fed to this backend.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// CreatePipeline resolves the descriptor through the intern table, compiling
// at most once per structural identity.
func (e *Executor) CreatePipeline(desc *gal.PipelineDescriptor) (gal.Pipeline, error) {
	return e.intern.Pipeline(desc, e.buildPipeline)
}

// CreatePipelineAsync resolves or compiles the pipeline on a compile-pool
// worker. The callback runs on that worker.
func (e *Executor) CreatePipelineAsync(desc *gal.PipelineDescriptor, callback func(gal.Pipeline, error)) {
	e.intern.PipelineAsync(desc, e.buildPipeline, callback)
}

func (e *Executor) buildPipeline(p gal.Pipeline) error {
	desc := p.Descriptor()
	if desc.VertexShader == nil || desc.FragmentShader == nil {
		return fmt.Errorf("pipeline %q needs both vertex and fragment shader modules", desc.Label)
	}
	vs, ok := desc.VertexShader.Raw().(*wgpu.ShaderModule)
	if !ok {
		return fmt.Errorf("pipeline %q vertex shader %q has no backend module",
			desc.Label, desc.VertexShader.Label())
	}
	fs, ok := desc.FragmentShader.Raw().(*wgpu.ShaderModule)
	if !ok {
		return fmt.Errorf("pipeline %q fragment shader %q has no backend module",
			desc.Label, desc.FragmentShader.Label())
	}

	// Slots are nil-padded; the layout list passed to wgpu stops at the last
	// populated slot.
	maxGroup := -1
	for g, l := range desc.BindGroupLayouts {
		if l != nil {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		l := desc.BindGroupLayouts[g]
		if l == nil {
			continue
		}
		raw, ok := l.Raw().(*wgpu.BindGroupLayout)
		if !ok {
			return fmt.Errorf("pipeline %q group %d layout has no backend object", desc.Label, g)
		}
		bindGroupLayouts[g] = raw
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pipelineLayout, err := e.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	attributes := make([]wgpu.VertexAttribute, 0, len(desc.VertexLayout.Attributes))
	for _, a := range desc.VertexLayout.Attributes {
		attributes = append(attributes, wgpu.VertexAttribute{
			Format:         vertexFormatFor(a.Format),
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		})
	}

	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	created, err := e.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexEntryPoint,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: desc.VertexLayout.Stride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attributes,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    colorTargetFormatFor(desc, e.surfaceFormat),
				Blend:     blendStateFor(desc.Blend),
				WriteMask: writeMaskFor(desc.ColorMask),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topologyFor(desc.Topology),
			FrontFace: frontFaceFor(desc.FrontFace),
			CullMode:  cullModeFor(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencilStateFor(desc),
	})
	if err != nil {
		return &gal.ShaderCompilationError{Label: desc.Label, Log: err.Error()}
	}

	p.SetRaw(created)
	return nil
}

// colorTargetFormatFor resolves the pipeline's color target format. Surface
// pipelines inherit the swapchain format; off-screen pipelines render in the
// format their descriptor declares.
func colorTargetFormatFor(desc *gal.PipelineDescriptor, surfaceFormat wgpu.TextureFormat) wgpu.TextureFormat {
	if desc.ColorFormat == gal.TextureFormatUndefined {
		return surfaceFormat
	}
	return textureFormatFor(desc.ColorFormat)
}

// depthStencilStateFor builds the pipeline's depth-stencil state. Surface
// pipelines always attach against the executor's Depth24Plus target;
// off-screen pipelines attach the declared depth format, or none at all,
// matching the pass descriptor they will draw in.
func depthStencilStateFor(desc *gal.PipelineDescriptor) *wgpu.DepthStencilState {
	format := wgpu.TextureFormatDepth24Plus
	if desc.ColorFormat != gal.TextureFormatUndefined {
		if desc.DepthFormat == gal.TextureFormatUndefined {
			return nil
		}
		format = textureFormatFor(desc.DepthFormat)
	}

	depthCompare := compareFor(desc.Depth.Compare)
	if !desc.Depth.TestEnabled {
		depthCompare = wgpu.CompareFunctionAlways
	}

	return &wgpu.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: desc.Depth.WriteEnabled,
		DepthCompare:      depthCompare,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}
