// Package gal is the GPU abstraction layer: a single resource, pipeline,
// and command API that renders identically through two execution models —
// a record-then-submit WebGPU backend and an immediate-mode GL backend.
// Callers build resources and pipelines once, then each frame build a flat
// list of DrawCommands, sort it, and hand it to whichever Executor is
// active. Nothing in this package branches on the backend type; all
// backend-specific behavior lives inside the two Executor implementations.
package gal

// BackendType identifies the GPU backend implementation behind an Executor.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend: commands are recorded
	// into an encoder and nothing executes until Submit.
	BackendTypeWGPU BackendType = iota

	// BackendTypeGL selects the OpenGL 3.3 backend: every call executes
	// immediately against a state-diffed driver state machine.
	BackendTypeGL
)

// MaxBindGroupSlots is the number of bind group slots a draw command carries,
// organized by update frequency (per-frame, per-material, per-object).
const MaxBindGroupSlots = 3

// Bind group slot indices by update frequency.
const (
	// GroupPerFrame holds camera and lighting data, bound once per frame.
	GroupPerFrame = 0

	// GroupPerMaterial holds textures and material constants, bound once per
	// material change.
	GroupPerMaterial = 1

	// GroupPerObject is a single shared group whose uniform buffer entry is
	// re-bound with a dynamic byte offset per draw. The group itself is
	// allocated once; only offsets vary per object.
	GroupPerObject = 2
)

// DrawCommand is a single indexed draw, fully describing pipeline, bindings,
// and geometry. Commands are transient: built fresh each frame (or replayed
// from a CachedSequence) and never persisted beyond the frame.
type DrawCommand struct {
	// SortKey orders this command within the frame; see PackSortKey.
	SortKey SortKey

	// Pipeline is the interned pipeline to draw with.
	Pipeline Pipeline

	// BindGroups are the groups for each frequency slot. Unused slots are nil.
	BindGroups [MaxBindGroupSlots]BindGroup

	// VertexBuffer and IndexBuffer hold the geometry.
	VertexBuffer Buffer
	IndexBuffer  Buffer

	// IndexFormat is the element type of IndexBuffer.
	IndexFormat IndexFormat

	// IndexCount and FirstIndex select the indexed range to draw.
	IndexCount uint32
	FirstIndex uint32

	// DynamicOffset is the byte offset into the shared per-object uniform
	// buffer for this draw, produced by the UniformAllocator.
	DynamicOffset uint32
}

// FrameStats is the per-frame profiling record produced by an Executor and
// read once per frame by a profiling/HUD layer.
type FrameStats struct {
	// DrawCalls is the number of indexed draws issued this frame.
	DrawCalls int

	// StateChanges is the number of real state-change calls that reached the
	// driver (GL backend) or were recorded (WGPU backend) this frame.
	StateChanges int

	// PipelineSwitches is the number of SetPipeline calls that actually
	// changed the bound pipeline this frame.
	PipelineSwitches int

	// CulledCount is the number of objects rejected before command building,
	// reported by the culling layer via RenderQueue.SetCulledCount.
	CulledCount int

	// CPUTimeMs is the wall-clock time spent building and submitting the
	// frame on the CPU.
	CPUTimeMs float64

	// GPUTimeMs is the measured GPU frame time, or 0 when the backend cannot
	// query it.
	GPUTimeMs float64
}

// Executor is the single interface both backends implement. Resource and
// pipeline creation is synchronous from the caller's perspective; per-frame
// work flows through BeginFrame, one or more render passes, and Submit.
//
// The WGPU implementation records all pass work into a command encoder and
// executes it at Submit. The GL implementation executes every call
// immediately and Submit is a no-op. Callers must not branch on
// BackendType; the semantics above are equivalent at frame granularity.
type Executor interface {
	// BackendType returns which backend implementation this executor is.
	//
	// Returns:
	//   - BackendType: the backend identifier
	BackendType() BackendType

	// Limits returns the device capability limits, queried once at
	// initialization. Callers must consult these before resource creation.
	//
	// Returns:
	//   - DeviceLimits: the device limits
	Limits() DeviceLimits

	// CreateBuffer creates a GPU buffer. Size and usage are immutable after
	// creation; contents change only through WriteBuffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer handle
	//   - error: *ResourceLimitError if the size exceeds device limits
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// WriteBuffer replaces a byte range of a buffer's contents.
	//
	// Parameters:
	//   - buf: the target buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write falls outside the buffer
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// DestroyBuffer releases a buffer's GPU memory. The handle must not be
	// used afterwards.
	//
	// Parameters:
	//   - buf: the buffer to destroy
	DestroyBuffer(buf Buffer)

	// CreateTexture creates a GPU texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the created texture handle
	//   - error: *ResourceLimitError if dimensions exceed device limits
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// WriteTexture uploads pixel data to one mip level of a texture. For
	// array textures the data spans every layer of the level, layer-major.
	//
	// Parameters:
	//   - tex: the target texture
	//   - mipLevel: the destination mip level
	//   - data: tightly packed pixel data for the whole level
	//
	// Returns:
	//   - error: an error if the upload fails
	WriteTexture(tex Texture, mipLevel uint32, data []byte) error

	// CreateTextureView creates a view over a mip/layer sub-range of a
	// texture. On the GL backend no native view object exists; the view is
	// (texture, layer, mip) metadata resolved at bind time.
	//
	// Parameters:
	//   - tex: the base texture
	//   - desc: the sub-range descriptor
	//
	// Returns:
	//   - TextureView: the created view handle
	//   - error: an error if the sub-range is out of bounds
	CreateTextureView(tex Texture, desc *TextureViewDescriptor) (TextureView, error)

	// CreateSampler creates a texture sampler.
	//
	// Parameters:
	//   - desc: the sampler descriptor
	//
	// Returns:
	//   - Sampler: the created sampler handle
	//   - error: an error if creation fails
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)

	// CreateShaderModule compiles a shader module from the source dialect the
	// backend consumes (WGSL for WGPU, GLSL for GL).
	//
	// Parameters:
	//   - desc: the shader module descriptor
	//
	// Returns:
	//   - ShaderModule: the created module handle
	//   - error: *ShaderCompilationError carrying the module label and
	//     compiler diagnostics on failure
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)

	// CreateBindGroupLayout creates (or returns the interned) layout for the
	// given descriptor. Identical descriptors always resolve to the same
	// handle.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - BindGroupLayout: the interned layout handle
	//   - error: an error if creation fails
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup creates a bind group binding concrete resources to a
	// layout's slots.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroup: the created group handle
	//   - error: an error if an entry does not match the layout
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreatePipeline creates (or returns the interned) pipeline for the given
	// descriptor, blocking until compilation completes. Duplicate calls with
	// structurally identical descriptors return the same handle without a
	// second compilation.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - Pipeline: the interned pipeline handle
	//   - error: *ShaderCompilationError on compile/link failure
	CreatePipeline(desc *PipelineDescriptor) (Pipeline, error)

	// CreatePipelineAsync creates a pipeline on a background worker to avoid
	// blocking on shader compilation, invoking callback when done. The
	// callback runs on a worker goroutine. Interning applies exactly as for
	// CreatePipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//   - callback: receives the interned pipeline or the creation error
	CreatePipelineAsync(desc *PipelineDescriptor, callback func(Pipeline, error))

	// RecordSequence pre-resolves a static command list for cheap replay via
	// Pass.ExecuteSequence. The sequence is immutable after recording and
	// must be explicitly invalidated when the underlying object set changes;
	// staleness is never auto-detected.
	//
	// Parameters:
	//   - commands: the commands to record (copied)
	//
	// Returns:
	//   - *CachedSequence: the recorded sequence
	//   - error: an error if a command references an unresolvable resource
	RecordSequence(commands []DrawCommand) (*CachedSequence, error)

	// InvalidateSequence marks a recorded sequence stale and releases its
	// backend payload. Must not be called while an in-flight frame is still
	// replaying the sequence.
	//
	// Parameters:
	//   - seq: the sequence to invalidate
	InvalidateSequence(seq *CachedSequence)

	// BeginFrame acquires the frame target and resets per-frame stats. A
	// *SurfaceLostError is recovered internally once by reconfiguring the
	// surface and retrying; two consecutive failures propagate.
	//
	// Returns:
	//   - error: an error if the frame target could not be acquired
	BeginFrame() error

	// BeginRenderPass begins a render pass. On the WGPU backend pass calls
	// are recorded; on the GL backend they execute immediately.
	//
	// Parameters:
	//   - desc: the render pass descriptor
	//
	// Returns:
	//   - Pass: the pass to issue draw state and draws on
	//   - error: an error if the pass target is invalid
	BeginRenderPass(desc *RenderPassDescriptor) (Pass, error)

	// Submit finishes the frame's recorded work and hands it to the GPU. On
	// the GL backend all work has already executed and Submit only finalizes
	// frame statistics.
	Submit()

	// Present presents the completed frame to the surface.
	Present()

	// FrameStats returns the statistics of the most recently submitted frame.
	//
	// Returns:
	//   - FrameStats: the per-frame counters
	FrameStats() FrameStats

	// Release frees all backend resources owned by the executor.
	Release()
}

// Pass is a render pass in progress. Both backends implement the identical
// contract; only execution timing differs.
type Pass interface {
	// SetPipeline makes p the active pipeline for subsequent draws.
	//
	// Parameters:
	//   - p: the pipeline to bind
	SetPipeline(p Pipeline)

	// SetBindGroup binds a group at the given frequency slot. For groups
	// whose layout declares a dynamic-offset buffer entry, dynamicOffsets
	// supplies one offset per such entry.
	//
	// Parameters:
	//   - index: the bind group slot (GroupPerFrame..GroupPerObject)
	//   - group: the bind group to bind
	//   - dynamicOffsets: dynamic byte offsets for dynamic buffer entries
	SetBindGroup(index int, group BindGroup, dynamicOffsets ...uint32)

	// SetVertexBuffer binds the vertex buffer for subsequent draws.
	//
	// Parameters:
	//   - buf: the vertex buffer
	SetVertexBuffer(buf Buffer)

	// SetIndexBuffer binds the index buffer for subsequent draws.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - format: the index element format
	SetIndexBuffer(buf Buffer, format IndexFormat)

	// DrawIndexed draws an indexed range with the current pipeline and
	// bindings.
	//
	// Parameters:
	//   - indexCount: the number of indices to draw
	//   - firstIndex: the first index within the bound index buffer
	DrawIndexed(indexCount, firstIndex uint32)

	// ExecuteSequence replays a recorded sequence within this pass.
	//
	// Parameters:
	//   - seq: the sequence recorded by Executor.RecordSequence
	ExecuteSequence(seq *CachedSequence)

	// End finishes the pass. No further calls may be made on it.
	End()
}

// Dispatch walks a sorted command list and issues it on a pass, setting
// pipeline, bind groups, and geometry buffers only when they differ from the
// previous command. Sorting by SortKey first maximizes the redundancy this
// elimination (and the GL backend's deeper state diffing) can exploit.
//
// Parameters:
//   - pass: the pass to issue commands on
//   - commands: the sorted commands to draw
func Dispatch(pass Pass, commands []DrawCommand) {
	var (
		curPipeline   Pipeline
		curGroups     [MaxBindGroupSlots]BindGroup
		curOffsets    [MaxBindGroupSlots]uint32
		curVertex     Buffer
		curIndex      Buffer
		curIndexOrder IndexFormat
	)

	for i := range commands {
		cmd := &commands[i]

		if cmd.Pipeline != curPipeline {
			pass.SetPipeline(cmd.Pipeline)
			curPipeline = cmd.Pipeline
		}
		for slot := 0; slot < MaxBindGroupSlots; slot++ {
			group := cmd.BindGroups[slot]
			if group == nil {
				continue
			}
			if slot == GroupPerObject {
				if group != curGroups[slot] || cmd.DynamicOffset != curOffsets[slot] {
					pass.SetBindGroup(slot, group, cmd.DynamicOffset)
					curGroups[slot] = group
					curOffsets[slot] = cmd.DynamicOffset
				}
				continue
			}
			if group != curGroups[slot] {
				pass.SetBindGroup(slot, group)
				curGroups[slot] = group
			}
		}
		if cmd.VertexBuffer != curVertex {
			pass.SetVertexBuffer(cmd.VertexBuffer)
			curVertex = cmd.VertexBuffer
		}
		if cmd.IndexBuffer != curIndex || cmd.IndexFormat != curIndexOrder {
			pass.SetIndexBuffer(cmd.IndexBuffer, cmd.IndexFormat)
			curIndex = cmd.IndexBuffer
			curIndexOrder = cmd.IndexFormat
		}
		pass.DrawIndexed(cmd.IndexCount, cmd.FirstIndex)
	}
}
