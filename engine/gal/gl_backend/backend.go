package glbackend

import (
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumen-engine/lumen/engine/gal"
)

// Uniform blocks and sampler uniforms follow a fixed naming convention so
// the backend can wire bind groups without reflection metadata: block
// "ub_<group>_<binding>" and sampler "tex_<group>_<binding>", both assigned
// to indexed slot group*slotsPerGroup+binding at link time.
const slotsPerGroup = 8

// Surface is the window-system contract the executor presents through.
type Surface interface {
	// SwapBuffers presents the backbuffer.
	SwapBuffers()

	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (int, int)
}

// fboCacheSize bounds the framebuffer-object cache for off-screen passes.
const fboCacheSize = 32

// Executor is the OpenGL 3.3 core implementation of gal.Executor. All calls
// must come from the goroutine that owns the GL context; GL contexts are
// thread-bound, so the executor is deliberately not safe for concurrent use.
type Executor struct {
	funcs   Functions
	surface Surface
	limits  gal.DeviceLimits
	intern  *gal.InternTable
	shadow  *stateShadow

	// vaos caches one vertex array per (vertex buffer, index buffer,
	// pipeline) triple, since a VAO captures attribute pointers and the
	// element buffer binding together.
	vaos map[vaoKey]VertexArray

	// fbos caches framebuffer objects per (color view, depth view) pair so
	// off-screen passes do not re-validate attachments every frame.
	fbos *lru.Cache[uint64, Framebuffer]

	frameStart time.Time
	stats      gal.FrameStats
	lastStats  gal.FrameStats
}

type vaoKey struct {
	vertex   BufferID
	index    BufferID
	pipeline uint32
}

var _ gal.Executor = &Executor{}

// Option configures the executor at construction.
type Option func(*Executor)

// WithFunctions overrides the GL call table; tests substitute a recording
// implementation.
//
// Parameters:
//   - f: the call table to drive
//
// Returns:
//   - Option: the configuration option
func WithFunctions(f Functions) Option {
	return func(e *Executor) { e.funcs = f }
}

// WithValidation enables per-bind driver cross-checking of the shadow state.
// Debug use only; it stalls the pipeline with synchronous queries.
//
// Returns:
//   - Option: the configuration option
func WithValidation() Option {
	return func(e *Executor) { e.shadow.validate = true }
}

// WithStateDiffingDisabled makes every state setter reach the driver
// unconditionally. Used as the reference behavior when verifying that
// diffing is invisible apart from call counts.
//
// Returns:
//   - Option: the configuration option
func WithStateDiffingDisabled() Option {
	return func(e *Executor) { e.shadow.alwaysEmit = true }
}

// New creates the GL executor over a current context.
//
// Parameters:
//   - surface: the presentation surface; required
//   - opts: optional configuration
//
// Returns:
//   - *Executor: the initialized executor
//   - error: an error if the GL binding fails to initialize
func New(surface Surface, opts ...Option) (*Executor, error) {
	if surface == nil {
		panic("glbackend: surface is required to create an executor")
	}

	e := &Executor{
		funcs:   NewGLFunctions(),
		surface: surface,
		intern:  gal.NewInternTable(),
		vaos:    make(map[vaoKey]VertexArray),
	}
	e.shadow = newStateShadow(e.funcs)
	for _, opt := range opts {
		opt(e)
	}
	// Options may replace the call table; the shadow must drive the same one.
	e.shadow.f = e.funcs

	if err := e.funcs.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	fbos, err := lru.NewWithEvict[uint64, Framebuffer](fboCacheSize, func(_ uint64, fb Framebuffer) {
		e.funcs.DeleteFramebuffer(fb)
	})
	if err != nil {
		return nil, err
	}
	e.fbos = fbos

	e.limits = gal.DeviceLimits{
		MaxTextureSize:            uint32(e.funcs.GetInteger(MAX_TEXTURE_SIZE)),
		MaxUniformBufferSize:      uint64(e.funcs.GetInteger(MAX_UNIFORM_BLOCK_SIZE)),
		MinUniformOffsetAlignment: uint64(e.funcs.GetInteger(UNIFORM_BUFFER_OFFSET_ALGN)),
		MaxBindGroups:             gal.MaxBindGroupSlots,
		MaxFramesInFlight:         1,
		SupportsStorageBuffers:    false,
		SupportsRenderBundles:     false,
		CompressedFormats: []gal.TextureFormat{
			gal.TextureFormatBC3,
			gal.TextureFormatBC1,
		},
	}

	log.Printf("[GLBackend] initialized: max texture %d, ubo alignment %d",
		e.limits.MaxTextureSize, e.limits.MinUniformOffsetAlignment)
	return e, nil
}

func (e *Executor) BackendType() gal.BackendType {
	return gal.BackendTypeGL
}

func (e *Executor) Limits() gal.DeviceLimits {
	return e.limits
}

// CreatePipeline links the program for desc through the intern table.
func (e *Executor) CreatePipeline(desc *gal.PipelineDescriptor) (gal.Pipeline, error) {
	return e.intern.Pipeline(desc, e.buildPipeline)
}

// CreatePipelineAsync matches the interface contract but runs synchronously:
// GL objects can only be created on the context-owning goroutine, so there
// is no background thread to compile on.
func (e *Executor) CreatePipelineAsync(desc *gal.PipelineDescriptor, callback func(gal.Pipeline, error)) {
	callback(e.CreatePipeline(desc))
}

func (e *Executor) buildPipeline(p gal.Pipeline) error {
	desc := p.Descriptor()

	vs, ok := shaderRaw(desc.VertexShader)
	if !ok {
		return &gal.ShaderCompilationError{Label: desc.Label, Log: "vertex shader module has no compiled GL shader"}
	}
	fs, ok := shaderRaw(desc.FragmentShader)
	if !ok {
		return &gal.ShaderCompilationError{Label: desc.Label, Log: "fragment shader module has no compiled GL shader"}
	}

	program, linkLog, linked := e.funcs.LinkProgram(vs, fs)
	if !linked {
		return &gal.ShaderCompilationError{Label: desc.Label, Log: linkLog}
	}

	e.wireProgramBindings(program, desc)
	p.SetRaw(newPipelineState(program, desc))
	return nil
}

// wireProgramBindings assigns every declared uniform block and sampler to
// its conventional indexed slot. Missing names are fine; shaders only
// declare the bindings they read.
func (e *Executor) wireProgramBindings(program Program, desc *gal.PipelineDescriptor) {
	e.funcs.UseProgram(program)
	for group, layout := range desc.BindGroupLayouts {
		if layout == nil {
			continue
		}
		for _, entry := range layout.Descriptor().Entries {
			slot := uint32(group)*slotsPerGroup + entry.Binding
			switch entry.Type {
			case gal.BindingTypeUniformBuffer:
				name := fmt.Sprintf("ub_%d_%d", group, entry.Binding)
				if idx, ok := e.funcs.GetUniformBlockIndex(program, name); ok {
					e.funcs.UniformBlockBinding(program, idx, slot)
				}
			case gal.BindingTypeTexture:
				name := fmt.Sprintf("tex_%d_%d", group, entry.Binding)
				if loc, ok := e.funcs.GetUniformLocation(program, name); ok {
					e.funcs.Uniform1i(loc, int32(slot))
				}
			}
		}
	}
}

func shaderRaw(m gal.ShaderModule) (Shader, bool) {
	if m == nil {
		return 0, false
	}
	s, ok := m.Raw().(Shader)
	return s, ok
}

// vaoFor returns (building if needed) the vertex array capturing a command's
// vertex layout and element buffer.
func (e *Executor) vaoFor(st *pipelineState, pipelineID uint32, vertex, index *glBuffer) VertexArray {
	key := vaoKey{vertex: vertex.id, index: index.id, pipeline: pipelineID}
	if vao, ok := e.vaos[key]; ok {
		return vao
	}

	vao := e.funcs.GenVertexArray()
	e.funcs.BindVertexArray(vao)
	e.funcs.BindBuffer(ARRAY_BUFFER, vertex.id)
	for _, attr := range st.vertexLayout.Attributes {
		e.funcs.EnableVertexAttribArray(attr.Location)
		e.funcs.VertexAttribPointer(attr.Location, attribSize(attr.Format), FLOAT, false,
			int32(st.vertexLayout.Stride), int(attr.Offset))
	}
	e.funcs.BindBuffer(ELEMENT_ARRAY_BUFFER, index.id)

	// The shadow's VAO binding is now stale; force a rebind on next draw.
	e.shadow.vao = vao
	e.vaos[key] = vao
	return vao
}

// invalidateVAOsFor drops every cached VAO referencing a deleted buffer.
func (e *Executor) invalidateVAOsFor(buf BufferID) {
	for key, vao := range e.vaos {
		if key.vertex == buf || key.index == buf {
			e.funcs.DeleteVertexArray(vao)
			delete(e.vaos, key)
		}
	}
}

func attribSize(f gal.VertexFormat) int32 {
	switch f {
	case gal.VertexFormatFloat32:
		return 1
	case gal.VertexFormatFloat32x2:
		return 2
	case gal.VertexFormatFloat32x3:
		return 3
	default:
		return 4
	}
}

// BeginFrame binds the backbuffer and resets per-frame state. The GL
// backbuffer cannot be lost the way a swapchain can, so the surface-lost
// recovery path never triggers here.
func (e *Executor) BeginFrame() error {
	e.frameStart = time.Now()
	e.stats = gal.FrameStats{}
	e.shadow.resetFrame()

	w, h := e.surface.FramebufferSize()
	if w <= 0 || h <= 0 {
		return &gal.SurfaceLostError{Cause: fmt.Errorf("zero-sized framebuffer %dx%d", w, h)}
	}
	e.funcs.BindFramebuffer(0)
	e.funcs.Viewport(0, 0, int32(w), int32(h))
	return nil
}

// BeginRenderPass binds the pass target and applies load operations. Every
// subsequent pass call executes immediately.
func (e *Executor) BeginRenderPass(desc *gal.RenderPassDescriptor) (gal.Pass, error) {
	if desc.ColorView == nil && desc.DepthView == nil {
		e.funcs.BindFramebuffer(0)
	} else {
		fb, err := e.framebufferFor(desc.ColorView, desc.DepthView)
		if err != nil {
			return nil, err
		}
		e.funcs.BindFramebuffer(fb)
	}

	var clearMask Enum
	if desc.ColorLoad == gal.LoadOpClear {
		c := desc.ClearColor
		e.funcs.ClearColor(float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3]))
		clearMask |= COLOR_BUFFER_BIT
	}
	if desc.DepthLoad == gal.LoadOpClear {
		// Clearing depth requires the write mask on; the shadow is reseeded
		// by the first pipeline bind of the pass.
		e.funcs.DepthMask(true)
		e.shadow.valid = false
		e.funcs.ClearDepth(float64(desc.ClearDepth))
		clearMask |= DEPTH_BUFFER_BIT
	}
	if clearMask != 0 {
		e.funcs.Clear(clearMask)
	}

	return &glPass{exec: e}, nil
}

// framebufferFor resolves view attachments to a cached FBO.
func (e *Executor) framebufferFor(color, depth gal.TextureView) (Framebuffer, error) {
	var key uint64
	if color != nil {
		key = uint64(color.ID()) << 32
	}
	if depth != nil {
		key |= uint64(depth.ID())
	}
	if fb, ok := e.fbos.Get(key); ok {
		return fb, nil
	}

	fb := e.funcs.GenFramebuffer()
	e.funcs.BindFramebuffer(fb)
	if color != nil {
		attachView(e.funcs, COLOR_ATTACHMENT0, color.Raw().(*glView))
	}
	if depth != nil {
		attachView(e.funcs, DEPTH_ATTACHMENT, depth.Raw().(*glView))
	}
	if status := e.funcs.CheckFramebufferStatus(); status != FRAMEBUFFER_COMPLETE {
		e.funcs.DeleteFramebuffer(fb)
		return 0, fmt.Errorf("incomplete framebuffer: status 0x%x", uint32(status))
	}

	e.fbos.Add(key, fb)
	return fb, nil
}

func attachView(f Functions, attachment Enum, view *glView) {
	if view.tex.target == TEXTURE_2D_ARRAY {
		f.FramebufferTextureLayer(attachment, view.tex.id, view.mip, view.layer)
		return
	}
	f.FramebufferTexture2D(attachment, view.tex.id, view.mip)
}

// RecordSequence pre-resolves commands into direct GL handles so replay
// skips every map lookup and type assertion.
func (e *Executor) RecordSequence(commands []gal.DrawCommand) (*gal.CachedSequence, error) {
	resolved := make([]resolvedDraw, 0, len(commands))
	for i := range commands {
		cmd := &commands[i]
		st, ok := cmd.Pipeline.Raw().(*pipelineState)
		if !ok {
			return nil, fmt.Errorf("command %d references pipeline %q with no GL program", i, cmd.Pipeline.Label())
		}
		vertex, ok := cmd.VertexBuffer.Raw().(*glBuffer)
		if !ok {
			return nil, fmt.Errorf("command %d references a destroyed vertex buffer", i)
		}
		index, ok := cmd.IndexBuffer.Raw().(*glBuffer)
		if !ok {
			return nil, fmt.Errorf("command %d references a destroyed index buffer", i)
		}

		resolved = append(resolved, resolvedDraw{
			state:      st,
			vao:        e.vaoFor(st, cmd.Pipeline.ID(), vertex, index),
			groups:     cmd.BindGroups,
			indexType:  indexEnum(cmd.IndexFormat),
			indexSize:  indexByteSize(cmd.IndexFormat),
			indexCount: int32(cmd.IndexCount),
			firstIndex: int(cmd.FirstIndex),
			dynOffset:  cmd.DynamicOffset,
		})
	}

	seq := gal.NewCachedSequence(commands)
	seq.SetResolved(resolved)
	return seq, nil
}

func (e *Executor) InvalidateSequence(seq *gal.CachedSequence) {
	seq.Invalidate()
}

// Submit finalizes frame statistics; all GL work already executed.
func (e *Executor) Submit() {
	e.stats.StateChanges = e.shadow.transitions
	e.stats.CPUTimeMs = float64(time.Since(e.frameStart).Microseconds()) / 1000.0
	e.lastStats = e.stats
}

func (e *Executor) Present() {
	e.surface.SwapBuffers()
}

func (e *Executor) FrameStats() gal.FrameStats {
	return e.lastStats
}

// Release deletes every cached container object. Resources created through
// the executor are owned by their creating subsystems and released by them.
func (e *Executor) Release() {
	for key, vao := range e.vaos {
		e.funcs.DeleteVertexArray(vao)
		delete(e.vaos, key)
	}
	e.fbos.Purge()
	e.funcs.Flush()
}

func indexEnum(f gal.IndexFormat) Enum {
	if f == gal.IndexFormatUint32 {
		return UNSIGNED_INT
	}
	return UNSIGNED_SHORT
}

func indexByteSize(f gal.IndexFormat) int {
	if f == gal.IndexFormatUint32 {
		return 4
	}
	return 2
}
