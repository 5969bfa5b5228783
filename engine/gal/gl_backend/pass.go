package glbackend

import (
	"log"

	"github.com/lumen-engine/lumen/engine/gal"
)

// glPass executes pass calls immediately against the executor's shadowed
// state machine.
type glPass struct {
	exec *Executor

	state      *pipelineState
	pipelineID uint32
	mode       Enum

	vertex *glBuffer
	index  *glBuffer

	indexType Enum
	indexSize int

	ended bool
}

var _ gal.Pass = &glPass{}

func (p *glPass) SetPipeline(pl gal.Pipeline) {
	st, ok := pl.Raw().(*pipelineState)
	if !ok {
		log.Printf("[GLBackend] SetPipeline: pipeline %q has no GL program, ignoring", pl.Label())
		return
	}
	if st == p.state {
		return
	}
	p.mode = p.exec.shadow.bindPipeline(st)
	p.state = st
	p.pipelineID = pl.ID()
	p.exec.stats.PipelineSwitches++
}

func (p *glPass) SetBindGroup(index int, group gal.BindGroup, dynamicOffsets ...uint32) {
	p.exec.applyBindGroup(index, group, dynamicOffsets)
}

func (p *glPass) SetVertexBuffer(buf gal.Buffer) {
	if raw, ok := buf.Raw().(*glBuffer); ok {
		p.vertex = raw
	}
}

func (p *glPass) SetIndexBuffer(buf gal.Buffer, format gal.IndexFormat) {
	if raw, ok := buf.Raw().(*glBuffer); ok {
		p.index = raw
		p.indexType = indexEnum(format)
		p.indexSize = indexByteSize(format)
	}
}

func (p *glPass) DrawIndexed(indexCount, firstIndex uint32) {
	if p.state == nil || p.vertex == nil || p.index == nil {
		return
	}
	vao := p.exec.vaoFor(p.state, p.pipelineID, p.vertex, p.index)
	p.exec.shadow.bindVAO(vao)
	p.exec.funcs.DrawElements(p.mode, int32(indexCount), p.indexType, int(firstIndex)*p.indexSize)
	p.exec.stats.DrawCalls++
}

// ExecuteSequence replays pre-resolved draws, skipping handle resolution but
// still flowing through the shadow so state stays coherent with surrounding
// non-cached draws.
func (p *glPass) ExecuteSequence(seq *gal.CachedSequence) {
	if !seq.Valid() {
		log.Printf("[GLBackend] ExecuteSequence: sequence is invalidated, ignoring")
		return
	}
	resolved, ok := seq.Resolved().([]resolvedDraw)
	if !ok {
		log.Printf("[GLBackend] ExecuteSequence: sequence was not recorded by this backend, ignoring")
		return
	}

	e := p.exec
	for i := range resolved {
		d := &resolved[i]
		if d.state != p.state {
			p.mode = e.shadow.bindPipeline(d.state)
			p.state = d.state
			e.stats.PipelineSwitches++
		}
		for slot := 0; slot < gal.MaxBindGroupSlots; slot++ {
			group := d.groups[slot]
			if group == nil {
				continue
			}
			if slot == gal.GroupPerObject {
				e.applyBindGroup(slot, group, []uint32{d.dynOffset})
				continue
			}
			e.applyBindGroup(slot, group, nil)
		}
		e.shadow.bindVAO(d.vao)
		e.funcs.DrawElements(p.mode, d.indexCount, d.indexType, d.firstIndex*d.indexSize)
		e.stats.DrawCalls++
	}

	// The replay left an arbitrary vertex/index binding behind.
	p.vertex, p.index = nil, nil
}

// End leaves the pass; GL needs no explicit pass teardown.
func (p *glPass) End() {
	p.ended = true
}

// resolvedDraw is one pre-resolved command of a recorded sequence.
type resolvedDraw struct {
	state      *pipelineState
	vao        VertexArray
	groups     [gal.MaxBindGroupSlots]gal.BindGroup
	indexType  Enum
	indexSize  int
	indexCount int32
	firstIndex int
	dynOffset  uint32
}

// applyBindGroup walks the layout's declarations and binds the group entry
// filling each one at its conventional slot. Entries pair with declarations
// by Binding, never by position, so group construction order is free.
// Dynamic-offset buffer entries consume dynamicOffsets in layout declaration
// order. Sampler entries apply to the unit of the closest preceding texture
// declaration.
func (e *Executor) applyBindGroup(slot int, group gal.BindGroup, dynamicOffsets []uint32) {
	layout := group.Layout()
	if layout == nil {
		return
	}
	layoutEntries := layout.Descriptor().Entries
	entries := group.Entries()

	dynIndex := 0
	lastTexUnit := uint32(0)
	for li := range layoutEntries {
		decl := &layoutEntries[li]
		entry := entryForBinding(entries, decl.Binding)
		if entry == nil {
			continue
		}
		unit := uint32(slot)*slotsPerGroup + decl.Binding

		switch decl.Type {
		case gal.BindingTypeUniformBuffer:
			raw, ok := entry.Buffer.Raw().(*glBuffer)
			if !ok {
				continue
			}
			offset := entry.Offset
			perDraw := false
			if decl.HasDynamicOffset && dynIndex < len(dynamicOffsets) {
				offset += uint64(dynamicOffsets[dynIndex])
				dynIndex++
				perDraw = true
			}
			size := entry.Size
			if size == 0 {
				size = entry.Buffer.Size() - offset
			}
			e.shadow.bindUBORange(unit, raw.id, int(offset), int(size), perDraw)

		case gal.BindingTypeTexture:
			view, ok := entry.View.Raw().(*glView)
			if !ok {
				continue
			}
			e.shadow.bindTextureUnit(unit, view.tex.target, view.tex.id)
			lastTexUnit = unit

		case gal.BindingTypeSampler:
			id, ok := entry.Sampler.Raw().(SamplerID)
			if !ok {
				continue
			}
			e.shadow.bindSamplerUnit(lastTexUnit, id)
		}
	}
}

// entryForBinding finds the group entry filling a layout slot. Groups are
// small, so a linear scan beats building a map per bind.
func entryForBinding(entries []gal.BindGroupEntry, binding uint32) *gal.BindGroupEntry {
	for i := range entries {
		if entries[i].Binding == binding {
			return &entries[i]
		}
	}
	return nil
}
