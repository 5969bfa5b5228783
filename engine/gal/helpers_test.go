package gal

import "fmt"

// bufferWrite records one WriteBuffer call made against the stub executor.
type bufferWrite struct {
	buf    Buffer
	offset uint64
	data   []byte
}

// stubExecutor is a backend-free Executor for exercising the allocator, the
// render queue, and interning without a GPU.
type stubExecutor struct {
	limits DeviceLimits
	intern *InternTable

	writes    []bufferWrite
	created   []Buffer
	destroyed []Buffer

	stats FrameStats
}

var _ Executor = &stubExecutor{}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		limits: DeviceLimits{
			MaxTextureSize:            8192,
			MaxUniformBufferSize:      64 << 20,
			MinUniformOffsetAlignment: 256,
			MaxBindGroups:             MaxBindGroupSlots,
			MaxFramesInFlight:         FramesInFlight,
		},
		intern: NewInternTable(),
	}
}

func (e *stubExecutor) BackendType() BackendType { return BackendTypeWGPU }
func (e *stubExecutor) Limits() DeviceLimits     { return e.limits }

func (e *stubExecutor) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	if err := e.limits.ValidateBuffer(desc); err != nil {
		return nil, err
	}
	buf := NewBufferHandle(desc)
	e.created = append(e.created, buf)
	return buf, nil
}

func (e *stubExecutor) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write of %d bytes at %d exceeds buffer %q", len(data), offset, buf.Label())
	}
	e.writes = append(e.writes, bufferWrite{
		buf:    buf,
		offset: offset,
		data:   append([]byte(nil), data...),
	})
	return nil
}

func (e *stubExecutor) DestroyBuffer(buf Buffer) {
	e.destroyed = append(e.destroyed, buf)
}

func (e *stubExecutor) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	if err := e.limits.ValidateTexture(desc); err != nil {
		return nil, err
	}
	return NewTextureHandle(desc), nil
}

func (e *stubExecutor) WriteTexture(tex Texture, mipLevel uint32, data []byte) error {
	return nil
}

func (e *stubExecutor) CreateTextureView(tex Texture, desc *TextureViewDescriptor) (TextureView, error) {
	return NewTextureViewHandle(tex, desc), nil
}

func (e *stubExecutor) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	return NewSamplerHandle(desc), nil
}

func (e *stubExecutor) CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error) {
	return NewShaderModuleHandle(desc), nil
}

func (e *stubExecutor) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	return e.intern.Layout(desc, func(BindGroupLayout) error { return nil })
}

func (e *stubExecutor) CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error) {
	return NewBindGroupHandle(desc), nil
}

func (e *stubExecutor) CreatePipeline(desc *PipelineDescriptor) (Pipeline, error) {
	return e.intern.Pipeline(desc, func(Pipeline) error { return nil })
}

func (e *stubExecutor) CreatePipelineAsync(desc *PipelineDescriptor, callback func(Pipeline, error)) {
	e.intern.PipelineAsync(desc, func(Pipeline) error { return nil }, callback)
}

func (e *stubExecutor) RecordSequence(commands []DrawCommand) (*CachedSequence, error) {
	return NewCachedSequence(commands), nil
}

func (e *stubExecutor) InvalidateSequence(seq *CachedSequence) {
	seq.Invalidate()
}

func (e *stubExecutor) BeginFrame() error { return nil }

func (e *stubExecutor) BeginRenderPass(desc *RenderPassDescriptor) (Pass, error) {
	return &recordingPass{}, nil
}

func (e *stubExecutor) Submit()                {}
func (e *stubExecutor) Present()               {}
func (e *stubExecutor) FrameStats() FrameStats { return e.stats }
func (e *stubExecutor) Release()               {}

// recordingPass logs every pass call as a readable op string so tests can
// assert on exactly which state changes Dispatch issued.
type recordingPass struct {
	ops   []string
	draws int
}

var _ Pass = &recordingPass{}

func (p *recordingPass) SetPipeline(pl Pipeline) {
	p.ops = append(p.ops, fmt.Sprintf("pipeline:%d", pl.ID()))
}

func (p *recordingPass) SetBindGroup(index int, group BindGroup, dynamicOffsets ...uint32) {
	p.ops = append(p.ops, fmt.Sprintf("group:%d:%s:%v", index, group.Label(), dynamicOffsets))
}

func (p *recordingPass) SetVertexBuffer(buf Buffer) {
	p.ops = append(p.ops, "vbuf:"+buf.Label())
}

func (p *recordingPass) SetIndexBuffer(buf Buffer, format IndexFormat) {
	p.ops = append(p.ops, fmt.Sprintf("ibuf:%s:%d", buf.Label(), format))
}

func (p *recordingPass) DrawIndexed(indexCount, firstIndex uint32) {
	p.ops = append(p.ops, fmt.Sprintf("draw:%d:%d", indexCount, firstIndex))
	p.draws++
}

func (p *recordingPass) ExecuteSequence(seq *CachedSequence) {
	Dispatch(p, seq.Commands())
}

func (p *recordingPass) End() {
	p.ops = append(p.ops, "end")
}

// countPrefix counts recorded ops beginning with the given prefix.
func (p *recordingPass) countPrefix(prefix string) int {
	n := 0
	for _, op := range p.ops {
		if len(op) >= len(prefix) && op[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
