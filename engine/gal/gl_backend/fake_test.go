package glbackend

import "fmt"

// driverState is the observable slice of the simulated driver's state
// machine, comparable across fakes to prove two call streams converge.
type driverState struct {
	program   Program
	depthTest bool
	depthMask bool
	depthFunc Enum

	blendEnabled bool
	blendSrcRGB  Enum
	blendDstRGB  Enum
	blendSrcA    Enum
	blendDstA    Enum
	blendEqRGB   Enum
	blendEqA     Enum

	cullEnabled bool
	cullFace    Enum
	frontFace   Enum

	colorMask [4]bool

	vao          VertexArray
	textureUnits [maxTextureUnits]TextureID
	samplerUnits [maxTextureUnits]SamplerID
	uboRanges    [maxUBOBindings]uboRange
}

// fakeFunctions simulates the driver state machine without a GL context. It
// counts state-mutating calls so tests can compare diffed and undiffed
// command streams, and it logs interesting calls for behavioral assertions.
type fakeFunctions struct {
	state driverState

	// stateCalls counts calls that mutate pipeline or binding state.
	stateCalls int
	draws      int
	ops        []string

	activeUnit uint32

	nextShader      Shader
	nextProgram     Program
	nextBuffer      BufferID
	nextTexture     TextureID
	nextSampler     SamplerID
	nextVertexArray VertexArray
	nextFramebuffer Framebuffer

	failCompileWith string
	failLinkWith    string

	blockBindings   map[string]uint32
	samplerBindings map[string]int32
}

var _ Functions = &fakeFunctions{}

func newFakeFunctions() *fakeFunctions {
	return &fakeFunctions{
		blockBindings:   make(map[string]uint32),
		samplerBindings: make(map[string]int32),
	}
}

func (f *fakeFunctions) record(format string, args ...any) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeFunctions) Init() error { return nil }

func (f *fakeFunctions) Viewport(x, y, width, height int32) {}
func (f *fakeFunctions) ClearColor(r, g, b, a float32)      {}
func (f *fakeFunctions) ClearDepth(d float64)               {}
func (f *fakeFunctions) Clear(mask Enum)                    { f.record("clear:0x%x", uint32(mask)) }

func (f *fakeFunctions) Enable(cap Enum) {
	f.stateCalls++
	f.setCap(cap, true)
}

func (f *fakeFunctions) Disable(cap Enum) {
	f.stateCalls++
	f.setCap(cap, false)
}

func (f *fakeFunctions) setCap(cap Enum, on bool) {
	switch cap {
	case DEPTH_TEST:
		f.state.depthTest = on
	case BLEND:
		f.state.blendEnabled = on
	case CULL_FACE:
		f.state.cullEnabled = on
	}
}

func (f *fakeFunctions) IsEnabled(cap Enum) bool {
	switch cap {
	case DEPTH_TEST:
		return f.state.depthTest
	case BLEND:
		return f.state.blendEnabled
	case CULL_FACE:
		return f.state.cullEnabled
	}
	return false
}

func (f *fakeFunctions) DepthFunc(fn Enum) {
	f.stateCalls++
	f.state.depthFunc = fn
}

func (f *fakeFunctions) DepthMask(write bool) {
	f.stateCalls++
	f.state.depthMask = write
}

func (f *fakeFunctions) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum) {
	f.stateCalls++
	f.state.blendSrcRGB, f.state.blendDstRGB = srcRGB, dstRGB
	f.state.blendSrcA, f.state.blendDstA = srcAlpha, dstAlpha
}

func (f *fakeFunctions) BlendEquationSeparate(modeRGB, modeAlpha Enum) {
	f.stateCalls++
	f.state.blendEqRGB, f.state.blendEqA = modeRGB, modeAlpha
}

func (f *fakeFunctions) CullFace(mode Enum) {
	f.stateCalls++
	f.state.cullFace = mode
}

func (f *fakeFunctions) FrontFace(winding Enum) {
	f.stateCalls++
	f.state.frontFace = winding
}

func (f *fakeFunctions) ColorMask(r, g, b, a bool) {
	f.stateCalls++
	f.state.colorMask = [4]bool{r, g, b, a}
}

func (f *fakeFunctions) CompileShader(stage Enum, source string) (Shader, string, bool) {
	if f.failCompileWith != "" {
		return 0, f.failCompileWith, false
	}
	f.nextShader++
	return f.nextShader, "", true
}

func (f *fakeFunctions) LinkProgram(vertex, fragment Shader) (Program, string, bool) {
	if f.failLinkWith != "" {
		return 0, f.failLinkWith, false
	}
	f.nextProgram++
	return f.nextProgram, "", true
}

func (f *fakeFunctions) DeleteShader(s Shader)   {}
func (f *fakeFunctions) DeleteProgram(p Program) {}

func (f *fakeFunctions) UseProgram(p Program) {
	f.stateCalls++
	f.state.program = p
}

func (f *fakeFunctions) GetUniformBlockIndex(p Program, name string) (uint32, bool) {
	// Every conventional block name resolves; the index is just a stable
	// token tests never inspect directly.
	return uint32(len(f.blockBindings)), true
}

func (f *fakeFunctions) UniformBlockBinding(p Program, blockIndex, binding uint32) {
	f.blockBindings[fmt.Sprintf("p%d_i%d", p, blockIndex)] = binding
	f.record("blockbind:%d:%d", blockIndex, binding)
}

func (f *fakeFunctions) GetUniformLocation(p Program, name string) (int32, bool) {
	loc := int32(len(f.samplerBindings))
	f.samplerBindings[name] = loc
	return loc, true
}

func (f *fakeFunctions) Uniform1i(location int32, v int32) {
	f.record("uniform1i:%d:%d", location, v)
}

func (f *fakeFunctions) GenBuffer() BufferID {
	f.nextBuffer++
	return f.nextBuffer
}

func (f *fakeFunctions) BindBuffer(target Enum, buf BufferID)                      {}
func (f *fakeFunctions) BufferData(target Enum, size int, data []byte, usage Enum) {}
func (f *fakeFunctions) BufferSubData(target Enum, offset int, data []byte)        {}

func (f *fakeFunctions) BindBufferRange(index uint32, buf BufferID, offset, size int) {
	f.stateCalls++
	if index < maxUBOBindings {
		f.state.uboRanges[index] = uboRange{buf: buf, offset: offset, size: size}
	}
	f.record("uborange:%d:%d:%d:%d", index, buf, offset, size)
}

func (f *fakeFunctions) DeleteBuffer(buf BufferID) {
	f.record("delbuf:%d", buf)
}

func (f *fakeFunctions) GenVertexArray() VertexArray {
	f.nextVertexArray++
	return f.nextVertexArray
}

func (f *fakeFunctions) BindVertexArray(vao VertexArray) {
	f.stateCalls++
	f.state.vao = vao
}

func (f *fakeFunctions) DeleteVertexArray(vao VertexArray) {
	f.record("delvao:%d", vao)
}

func (f *fakeFunctions) EnableVertexAttribArray(index uint32) {}

func (f *fakeFunctions) VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int) {
	f.record("attrib:%d:%d:%d:%d", index, size, stride, offset)
}

func (f *fakeFunctions) GenTexture() TextureID {
	f.nextTexture++
	return f.nextTexture
}

func (f *fakeFunctions) ActiveTexture(unit uint32) {
	f.stateCalls++
	f.activeUnit = unit
}

func (f *fakeFunctions) BindTexture(target Enum, tex TextureID) {
	f.stateCalls++
	if f.activeUnit < maxTextureUnits {
		f.state.textureUnits[f.activeUnit] = tex
	}
}

func (f *fakeFunctions) TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, data []byte) {
	f.record("teximage:%d:%dx%d", level, width, height)
}

func (f *fakeFunctions) TexImage3D(target Enum, level int32, internalFormat Enum, width, height, depth int32, format, xtype Enum, data []byte) {
	f.record("teximage3d:%d:%dx%dx%d", level, width, height, depth)
}

func (f *fakeFunctions) CompressedTexImage2D(target Enum, level int32, format Enum, width, height int32, data []byte) {
	f.record("compressed:%d:%dx%d:%d", level, width, height, len(data))
}

func (f *fakeFunctions) TexSubImage2D(target Enum, level, x, y, width, height int32, format, xtype Enum, data []byte) {
	f.record("texsub:%d:%dx%d", level, width, height)
}

func (f *fakeFunctions) TexSubImage3D(target Enum, level, x, y, z, width, height, depth int32, format, xtype Enum, data []byte) {
	f.record("texsub3d:%d:%dx%dx%d", level, width, height, depth)
}

func (f *fakeFunctions) TexParameteri(target, pname Enum, param int32) {}
func (f *fakeFunctions) DeleteTexture(tex TextureID)                   {}

func (f *fakeFunctions) GenSampler() SamplerID {
	f.nextSampler++
	return f.nextSampler
}

func (f *fakeFunctions) BindSampler(unit uint32, s SamplerID) {
	f.stateCalls++
	if unit < maxTextureUnits {
		f.state.samplerUnits[unit] = s
	}
}

func (f *fakeFunctions) SamplerParameteri(s SamplerID, pname Enum, param int32) {}
func (f *fakeFunctions) DeleteSampler(s SamplerID)                              {}

func (f *fakeFunctions) GenFramebuffer() Framebuffer {
	f.nextFramebuffer++
	return f.nextFramebuffer
}

func (f *fakeFunctions) BindFramebuffer(fb Framebuffer) {
	f.record("fbo:%d", fb)
}

func (f *fakeFunctions) FramebufferTexture2D(attachment Enum, tex TextureID, level int32) {
	f.record("fboattach2d:0x%x:%d:%d", uint32(attachment), tex, level)
}

func (f *fakeFunctions) FramebufferTextureLayer(attachment Enum, tex TextureID, level, layer int32) {
	f.record("fboattachlayer:0x%x:%d:%d:%d", uint32(attachment), tex, level, layer)
}

func (f *fakeFunctions) CheckFramebufferStatus() Enum { return FRAMEBUFFER_COMPLETE }
func (f *fakeFunctions) DeleteFramebuffer(fb Framebuffer) {
	f.record("delfbo:%d", fb)
}

func (f *fakeFunctions) DrawElements(mode Enum, count int32, xtype Enum, offset int) {
	f.draws++
	f.record("draw:%d:%d", count, offset)
}

func (f *fakeFunctions) GetInteger(pname Enum) int32 {
	switch pname {
	case MAX_TEXTURE_SIZE:
		return 8192
	case MAX_UNIFORM_BLOCK_SIZE:
		return 64 * 1024 * 1024
	case UNIFORM_BUFFER_OFFSET_ALGN:
		return 256
	case CURRENT_PROGRAM:
		return int32(f.state.program)
	case DEPTH_FUNC:
		return int32(f.state.depthFunc)
	case CULL_FACE_MODE:
		return int32(f.state.cullFace)
	}
	return 0
}

func (f *fakeFunctions) GetBoolean(pname Enum) bool {
	if pname == DEPTH_WRITEMASK {
		return f.state.depthMask
	}
	return false
}

func (f *fakeFunctions) Flush() {}

// fakeSurface satisfies Surface without a window system.
type fakeSurface struct {
	width, height int
	swaps         int
}

func (s *fakeSurface) SwapBuffers()                { s.swaps++ }
func (s *fakeSurface) FramebufferSize() (int, int) { return s.width, s.height }
