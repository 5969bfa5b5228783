package gal

// Geometry is the index/vertex buffer slice of one drawable mesh.
type Geometry struct {
	VertexBuffer Buffer
	IndexBuffer  Buffer
	IndexFormat  IndexFormat

	// IndexCount and FirstIndex select the indexed range to draw.
	IndexCount uint32
	FirstIndex uint32
}

// Material couples a pipeline with its per-material bind group and the
// material ID used in sort keys. Renderables sharing a Material batch
// together after sorting.
type Material struct {
	// ID is the sort-key material field; dense IDs batch best. Only the low
	// 20 bits participate in ordering.
	ID uint32

	// Pipeline is the interned pipeline drawing this material.
	Pipeline Pipeline

	// Group is the per-material bind group (textures, material constants).
	Group BindGroup
}

// Renderable is one visible object submitted to the queue for a frame.
type Renderable struct {
	Geometry Geometry
	Material *Material

	// Depth is the view-space depth used for ordering, typically normalized
	// to [0,1].
	Depth float32

	// Uniforms are this object's per-draw uniform bytes (e.g. its model
	// matrix), staged through the dynamic uniform allocator.
	Uniforms []byte
}

// RenderQueue turns submitted renderables into a sorted command list and
// dispatches it on a pass. It owns the sorter scratch and the per-frame
// uniform staging, so steady-state frames allocate nothing. One queue per
// pass; single-threaded.
type RenderQueue struct {
	exec      Executor
	allocator *UniformAllocator
	sorter    *CommandSorter

	// perFrameGroup and perObjectGroup are bound at GroupPerFrame and
	// GroupPerObject on every command. The per-object group is the single
	// shared group over the allocator's buffer, re-bound by dynamic offset.
	perFrameGroup  BindGroup
	perObjectGroup BindGroup

	commands []DrawCommand
	culled   int
}

// NewRenderQueue creates a queue over an executor and a uniform allocator.
//
// Parameters:
//   - exec: the active executor
//   - allocator: the dynamic uniform allocator for per-object data
//
// Returns:
//   - *RenderQueue: the new queue
func NewRenderQueue(exec Executor, allocator *UniformAllocator) *RenderQueue {
	if exec == nil {
		panic("gal: executor is required to create a render queue")
	}
	if allocator == nil {
		panic("gal: uniform allocator is required to create a render queue")
	}
	return &RenderQueue{
		exec:      exec,
		allocator: allocator,
		sorter:    NewCommandSorter(),
	}
}

// SetPerFrameGroup sets the group bound at the per-frame slot for every
// command this frame.
//
// Parameters:
//   - g: the per-frame bind group
func (q *RenderQueue) SetPerFrameGroup(g BindGroup) {
	q.perFrameGroup = g
}

// SetPerObjectGroup sets the shared dynamic-offset group bound at the
// per-object slot. Must be rebuilt and re-set after the allocator grows.
//
// Parameters:
//   - g: the shared per-object bind group
func (q *RenderQueue) SetPerObjectGroup(g BindGroup) {
	q.perObjectGroup = g
}

// SetCulledCount records how many objects the culling layer rejected before
// submission, for frame statistics.
//
// Parameters:
//   - n: the culled object count
func (q *RenderQueue) SetCulledCount(n int) {
	q.culled = n
}

// Begin resets the queue and advances the uniform ring for a new frame.
//
// Returns:
//   - error: an error if the allocator could not begin the frame
func (q *RenderQueue) Begin() error {
	q.commands = q.commands[:0]
	q.culled = 0
	return q.allocator.BeginFrame()
}

// Push stages a renderable's uniforms and appends its draw command.
//
// Parameters:
//   - r: the renderable to submit
//
// Returns:
//   - error: *AllocatorExhaustedError when the uniform region is full
func (q *RenderQueue) Push(r *Renderable) error {
	var offset uint32
	if len(r.Uniforms) > 0 {
		var err error
		offset, err = q.allocator.Allocate(r.Uniforms)
		if err != nil {
			return err
		}
	}

	p := r.Material.Pipeline
	q.commands = append(q.commands, DrawCommand{
		SortKey:  PackSortKey(p.Transparent(), p.ID(), r.Material.ID, r.Depth),
		Pipeline: p,
		BindGroups: [MaxBindGroupSlots]BindGroup{
			GroupPerFrame:    q.perFrameGroup,
			GroupPerMaterial: r.Material.Group,
			GroupPerObject:   q.perObjectGroup,
		},
		VertexBuffer:  r.Geometry.VertexBuffer,
		IndexBuffer:   r.Geometry.IndexBuffer,
		IndexFormat:   r.Geometry.IndexFormat,
		IndexCount:    r.Geometry.IndexCount,
		FirstIndex:    r.Geometry.FirstIndex,
		DynamicOffset: offset,
	})
	return nil
}

// Len returns the number of commands queued this frame.
//
// Returns:
//   - int: the command count
func (q *RenderQueue) Len() int {
	return len(q.commands)
}

// Flush sorts the frame's commands, uploads staged uniforms, and dispatches
// everything on the pass.
//
// Parameters:
//   - pass: the pass to draw into
//
// Returns:
//   - error: an error if the uniform upload fails
func (q *RenderQueue) Flush(pass Pass) error {
	q.sorter.Sort(q.commands)
	if err := q.allocator.Flush(); err != nil {
		return err
	}
	Dispatch(pass, q.commands)
	return nil
}

// FrameStats returns the executor's stats for the last submitted frame with
// the queue's culled count filled in.
//
// Returns:
//   - FrameStats: the merged per-frame counters
func (q *RenderQueue) FrameStats() FrameStats {
	stats := q.exec.FrameStats()
	stats.CulledCount = q.culled
	return stats
}
