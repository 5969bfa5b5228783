package gal

import (
	"fmt"
	"strings"
)

// BindingType identifies the resource kind of a bind group layout entry.
type BindingType int

const (
	// BindingTypeUniformBuffer is a uniform buffer range.
	BindingTypeUniformBuffer BindingType = iota

	// BindingTypeTexture is a sampled texture view.
	BindingTypeTexture

	// BindingTypeSampler is a texture sampler.
	BindingTypeSampler
)

// BindGroupLayoutEntry declares one binding slot within a layout.
type BindGroupLayoutEntry struct {
	// Binding is the slot index within the group.
	Binding uint32

	// Type is the resource kind expected at this slot.
	Type BindingType

	// Visibility is the shader stage set that reads the binding.
	Visibility ShaderStage

	// HasDynamicOffset marks a uniform buffer entry whose byte offset is
	// supplied per draw instead of baked into the group. This is how the
	// shared per-object group stays O(1) per frame.
	HasDynamicOffset bool

	// MinBindingSize is the minimum bound range for buffer entries.
	MinBindingSize uint64
}

// BindGroupLayoutDescriptor describes a bind group layout. Layouts are
// interned: identical descriptors resolve to one handle.
type BindGroupLayoutDescriptor struct {
	Label string

	// Entries are the slot declarations, ordered by binding index.
	Entries []BindGroupLayoutEntry
}

// CacheKey returns the canonical encoding used for interning. The label does
// not participate.
//
// Returns:
//   - string: the canonical key
func (d *BindGroupLayoutDescriptor) CacheKey() string {
	var b strings.Builder
	b.Grow(16 * len(d.Entries))
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "%d:%d:%d:%v:%d;", e.Binding, e.Type, e.Visibility, e.HasDynamicOffset, e.MinBindingSize)
	}
	return b.String()
}

// BindGroupLayout is an opaque handle to an interned layout.
type BindGroupLayout interface {
	// Label returns the debug label.
	Label() string

	// CacheKey returns the canonical key this layout was interned under.
	CacheKey() string

	// Descriptor returns the immutable creation descriptor.
	Descriptor() *BindGroupLayoutDescriptor

	// DynamicOffsetCount returns the number of entries declared with
	// HasDynamicOffset, which is the number of offsets Pass.SetBindGroup
	// expects for groups of this layout.
	DynamicOffsetCount() int

	// Raw returns the backend object, nil on backends without native
	// layout objects.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type bindGroupLayout struct {
	desc     BindGroupLayoutDescriptor
	key      string
	dynCount int
	raw      any
}

var _ BindGroupLayout = &bindGroupLayout{}

// NewBindGroupLayoutHandle creates the backend-agnostic handle for a layout.
// The intern table is the only caller.
//
// Parameters:
//   - desc: the descriptor (deep-copied)
//
// Returns:
//   - BindGroupLayout: the handle, with no backend object attached yet
func NewBindGroupLayoutHandle(desc *BindGroupLayoutDescriptor) BindGroupLayout {
	cp := *desc
	cp.Entries = append([]BindGroupLayoutEntry(nil), desc.Entries...)
	dyn := 0
	for _, e := range cp.Entries {
		if e.HasDynamicOffset {
			dyn++
		}
	}
	return &bindGroupLayout{desc: cp, key: cp.CacheKey(), dynCount: dyn}
}

func (l *bindGroupLayout) Label() string                          { return l.desc.Label }
func (l *bindGroupLayout) CacheKey() string                       { return l.key }
func (l *bindGroupLayout) Descriptor() *BindGroupLayoutDescriptor { return &l.desc }
func (l *bindGroupLayout) DynamicOffsetCount() int                { return l.dynCount }
func (l *bindGroupLayout) Raw() any                               { return l.raw }
func (l *bindGroupLayout) SetRaw(raw any)                         { l.raw = raw }

// BindGroupEntry binds one concrete resource to a layout slot. Exactly one
// of Buffer, View, or Sampler is set, matching the layout entry's type.
type BindGroupEntry struct {
	// Binding is the slot index within the group.
	Binding uint32

	// Buffer plus Offset/Size bind a buffer range for uniform entries. For
	// dynamic-offset entries Offset is the base the per-draw offset is added
	// to, and Size is the bound window per draw.
	Buffer Buffer
	Offset uint64
	Size   uint64

	// View binds a texture view for texture entries.
	View TextureView

	// Sampler binds a sampler for sampler entries.
	Sampler Sampler
}

// BindGroupDescriptor describes a bind group: a layout plus the concrete
// resources filling its slots.
type BindGroupDescriptor struct {
	Label string

	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// BindGroup is an opaque handle to a named set of resource bindings consumed
// by a pipeline at draw time.
type BindGroup interface {
	// Label returns the debug label.
	Label() string

	// Layout returns the layout this group was created against.
	Layout() BindGroupLayout

	// Entries returns the concrete bindings.
	Entries() []BindGroupEntry

	// Raw returns the backend object (e.g. *wgpu.BindGroup), nil on backends
	// that resolve entries at bind time.
	Raw() any

	// SetRaw stores the backend object. Called by the creating executor.
	SetRaw(raw any)
}

type bindGroup struct {
	desc BindGroupDescriptor
	raw  any
}

var _ BindGroup = &bindGroup{}

// NewBindGroupHandle creates the backend-agnostic handle for a bind group.
//
// Parameters:
//   - desc: the descriptor (entries deep-copied)
//
// Returns:
//   - BindGroup: the handle, with no backend object attached yet
func NewBindGroupHandle(desc *BindGroupDescriptor) BindGroup {
	cp := *desc
	cp.Entries = append([]BindGroupEntry(nil), desc.Entries...)
	return &bindGroup{desc: cp}
}

func (g *bindGroup) Label() string             { return g.desc.Label }
func (g *bindGroup) Layout() BindGroupLayout   { return g.desc.Layout }
func (g *bindGroup) Entries() []BindGroupEntry { return g.desc.Entries }
func (g *bindGroup) Raw() any                  { return g.raw }
func (g *bindGroup) SetRaw(raw any)            { g.raw = raw }
