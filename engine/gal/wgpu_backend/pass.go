package wgpubackend

import (
	"fmt"
	"log"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen-engine/lumen/engine/gal"
)

// wgpuPass records pass calls into the frame encoder's render pass. State
// changes are counted at record time; a dynamic-offset rebind on the
// per-object slot is a draw parameter, not a state change.
type wgpuPass struct {
	exec *Executor
	pass *wgpu.RenderPassEncoder

	pipeline *wgpu.RenderPipeline
	groups   [gal.MaxBindGroupSlots]*wgpu.BindGroup

	ended bool
}

var _ gal.Pass = &wgpuPass{}

func (p *wgpuPass) SetPipeline(pl gal.Pipeline) {
	raw, ok := pl.Raw().(*wgpu.RenderPipeline)
	if !ok {
		log.Printf("[WGPUBackend] SetPipeline: pipeline %q has no backend pipeline, ignoring", pl.Label())
		return
	}
	if raw == p.pipeline {
		return
	}
	p.pass.SetPipeline(raw)
	p.pipeline = raw
	p.exec.stats.PipelineSwitches++
	p.exec.stats.StateChanges++
}

func (p *wgpuPass) SetBindGroup(index int, group gal.BindGroup, dynamicOffsets ...uint32) {
	raw, ok := group.Raw().(*wgpu.BindGroup)
	if !ok {
		log.Printf("[WGPUBackend] SetBindGroup: group %q has no backend group, ignoring", group.Label())
		return
	}
	p.pass.SetBindGroup(uint32(index), raw, dynamicOffsets)
	if index >= 0 && index < gal.MaxBindGroupSlots {
		if raw != p.groups[index] {
			p.groups[index] = raw
			p.exec.stats.StateChanges++
		}
		// Same group, new offsets: a per-draw parameter.
		return
	}
	p.exec.stats.StateChanges++
}

func (p *wgpuPass) SetVertexBuffer(buf gal.Buffer) {
	if raw, ok := buf.Raw().(*wgpu.Buffer); ok {
		p.pass.SetVertexBuffer(0, raw, 0, wgpu.WholeSize)
		p.exec.stats.StateChanges++
	}
}

func (p *wgpuPass) SetIndexBuffer(buf gal.Buffer, format gal.IndexFormat) {
	if raw, ok := buf.Raw().(*wgpu.Buffer); ok {
		p.pass.SetIndexBuffer(raw, indexFormatFor(format), 0, wgpu.WholeSize)
		p.exec.stats.StateChanges++
	}
}

func (p *wgpuPass) DrawIndexed(indexCount, firstIndex uint32) {
	p.pass.DrawIndexed(indexCount, 1, firstIndex, 0, 0)
	p.exec.stats.DrawCalls++
}

// ExecuteSequence re-encodes a pre-resolved sequence into this pass. The
// binding exposes no render bundle object, so replay cost is the encoding
// itself; handle resolution and sort-order decisions were paid at record
// time.
func (p *wgpuPass) ExecuteSequence(seq *gal.CachedSequence) {
	if !seq.Valid() {
		log.Printf("[WGPUBackend] ExecuteSequence: sequence is invalidated, ignoring")
		return
	}
	resolved, ok := seq.Resolved().([]recordedDraw)
	if !ok {
		log.Printf("[WGPUBackend] ExecuteSequence: sequence was not recorded by this backend, ignoring")
		return
	}

	var (
		vertex *wgpu.Buffer
		index  *wgpu.Buffer
	)
	for i := range resolved {
		d := &resolved[i]
		if d.pipeline != p.pipeline {
			p.pass.SetPipeline(d.pipeline)
			p.pipeline = d.pipeline
			p.exec.stats.PipelineSwitches++
			p.exec.stats.StateChanges++
		}
		for slot := 0; slot < gal.MaxBindGroupSlots; slot++ {
			group := d.groups[slot]
			if group == nil {
				continue
			}
			if slot == gal.GroupPerObject {
				p.pass.SetBindGroup(uint32(slot), group, []uint32{d.dynOffset})
				if group != p.groups[slot] {
					p.groups[slot] = group
					p.exec.stats.StateChanges++
				}
				continue
			}
			if group != p.groups[slot] {
				p.pass.SetBindGroup(uint32(slot), group, nil)
				p.groups[slot] = group
				p.exec.stats.StateChanges++
			}
		}
		if d.vertex != vertex {
			p.pass.SetVertexBuffer(0, d.vertex, 0, wgpu.WholeSize)
			vertex = d.vertex
			p.exec.stats.StateChanges++
		}
		if d.index != index {
			p.pass.SetIndexBuffer(d.index, d.indexFormat, 0, wgpu.WholeSize)
			index = d.index
			p.exec.stats.StateChanges++
		}
		p.pass.DrawIndexed(d.indexCount, 1, d.firstIndex, 0, 0)
		p.exec.stats.DrawCalls++
	}
}

func (p *wgpuPass) End() {
	if p.ended {
		return
	}
	p.pass.End()
	p.ended = true
}

// recordedDraw is one pre-resolved command of a recorded sequence.
type recordedDraw struct {
	pipeline    *wgpu.RenderPipeline
	groups      [gal.MaxBindGroupSlots]*wgpu.BindGroup
	vertex      *wgpu.Buffer
	index       *wgpu.Buffer
	indexFormat wgpu.IndexFormat
	indexCount  uint32
	firstIndex  uint32
	dynOffset   uint32
}

// RecordSequence resolves every handle in the command list down to its raw
// backend object so replays skip the per-command lookups.
func (e *Executor) RecordSequence(commands []gal.DrawCommand) (*gal.CachedSequence, error) {
	resolved := make([]recordedDraw, 0, len(commands))
	for i := range commands {
		cmd := &commands[i]

		pipeline, ok := cmd.Pipeline.Raw().(*wgpu.RenderPipeline)
		if !ok {
			return nil, fmt.Errorf("command %d: pipeline %q has no backend pipeline", i, cmd.Pipeline.Label())
		}
		vertex, ok := cmd.VertexBuffer.Raw().(*wgpu.Buffer)
		if !ok {
			return nil, fmt.Errorf("command %d: vertex buffer %q has no backend buffer", i, cmd.VertexBuffer.Label())
		}
		index, ok := cmd.IndexBuffer.Raw().(*wgpu.Buffer)
		if !ok {
			return nil, fmt.Errorf("command %d: index buffer %q has no backend buffer", i, cmd.IndexBuffer.Label())
		}

		d := recordedDraw{
			pipeline:    pipeline,
			vertex:      vertex,
			index:       index,
			indexFormat: indexFormatFor(cmd.IndexFormat),
			indexCount:  cmd.IndexCount,
			firstIndex:  cmd.FirstIndex,
			dynOffset:   cmd.DynamicOffset,
		}
		for slot := 0; slot < gal.MaxBindGroupSlots; slot++ {
			group := cmd.BindGroups[slot]
			if group == nil {
				continue
			}
			raw, ok := group.Raw().(*wgpu.BindGroup)
			if !ok {
				return nil, fmt.Errorf("command %d: bind group %q has no backend group", i, group.Label())
			}
			d.groups[slot] = raw
		}
		resolved = append(resolved, d)
	}

	seq := gal.NewCachedSequence(commands)
	seq.SetResolved(resolved)
	return seq, nil
}

// InvalidateSequence drops the sequence's resolved payload; the raw objects
// it referenced stay owned by their handles.
func (e *Executor) InvalidateSequence(seq *gal.CachedSequence) {
	seq.Invalidate()
}
