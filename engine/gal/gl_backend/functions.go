// Package glbackend implements the GL 3.3 core executor: an immediate-mode
// backend where every pass call maps to driver calls right away, filtered
// through a shadow copy of the GL state machine so redundant transitions
// never reach the driver.
package glbackend

import (
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/lumen-engine/lumen/engine/gal"
)

// Enum is a GL enumerant.
type Enum uint32

// Typed GL object names. Zero is the null object for all of them.
type (
	Program     uint32
	Shader      uint32
	BufferID    uint32
	TextureID   uint32
	SamplerID   uint32
	VertexArray uint32
	Framebuffer uint32
)

// GL enumerant values, mirrored locally so state-cache logic and tests do
// not depend on a live driver binding.
const (
	TRIANGLES      Enum = 0x0004
	TRIANGLE_STRIP Enum = 0x0005
	LINES          Enum = 0x0001

	ARRAY_BUFFER         Enum = 0x8892
	ELEMENT_ARRAY_BUFFER Enum = 0x8893
	UNIFORM_BUFFER       Enum = 0x8A11
	STATIC_DRAW          Enum = 0x88E4
	DYNAMIC_DRAW         Enum = 0x88E8

	TEXTURE_2D       Enum = 0x0DE1
	TEXTURE_2D_ARRAY Enum = 0x8C1A
	TEXTURE0         Enum = 0x84C0

	UNSIGNED_BYTE  Enum = 0x1401
	UNSIGNED_SHORT Enum = 0x1403
	UNSIGNED_INT   Enum = 0x1405
	FLOAT          Enum = 0x1406

	DEPTH_TEST Enum = 0x0B71
	BLEND      Enum = 0x0BE2
	CULL_FACE  Enum = 0x0B44

	NEVER    Enum = 0x0200
	LESS     Enum = 0x0201
	EQUAL    Enum = 0x0202
	LEQUAL   Enum = 0x0203
	GREATER  Enum = 0x0204
	NOTEQUAL Enum = 0x0205
	GEQUAL   Enum = 0x0206
	ALWAYS   Enum = 0x0207

	ZERO                Enum = 0
	ONE                 Enum = 1
	SRC_ALPHA           Enum = 0x0302
	ONE_MINUS_SRC_ALPHA Enum = 0x0303
	DST_ALPHA           Enum = 0x0304
	ONE_MINUS_DST_ALPHA Enum = 0x0305

	FUNC_ADD              Enum = 0x8006
	FUNC_SUBTRACT         Enum = 0x800A
	FUNC_REVERSE_SUBTRACT Enum = 0x800B

	FRONT Enum = 0x0404
	BACK  Enum = 0x0405
	CW    Enum = 0x0900
	CCW   Enum = 0x0901

	VERTEX_SHADER   Enum = 0x8B31
	FRAGMENT_SHADER Enum = 0x8B30

	RGBA8                Enum = 0x8058
	SRGB8_ALPHA8         Enum = 0x8C43
	R8                   Enum = 0x8229
	RGBA                 Enum = 0x1908
	BGRA                 Enum = 0x80E1
	RED                  Enum = 0x1903
	DEPTH_COMPONENT      Enum = 0x1902
	DEPTH_COMPONENT24    Enum = 0x81A6
	DEPTH_COMPONENT32F   Enum = 0x8CAC
	COMPRESSED_RGB_DXT1  Enum = 0x83F0
	COMPRESSED_RGBA_DXT5 Enum = 0x83F3

	TEXTURE_MIN_FILTER   Enum = 0x2801
	TEXTURE_MAG_FILTER   Enum = 0x2800
	TEXTURE_WRAP_S       Enum = 0x2802
	TEXTURE_WRAP_T       Enum = 0x2803
	TEXTURE_BASE_LEVEL   Enum = 0x813C
	TEXTURE_MAX_LEVEL    Enum = 0x813D
	TEXTURE_COMPARE_MODE Enum = 0x884C
	TEXTURE_COMPARE_FUNC Enum = 0x884D
	COMPARE_REF_TO_TEX   Enum = 0x884E

	NEAREST                Enum = 0x2600
	LINEAR                 Enum = 0x2601
	NEAREST_MIPMAP_NEAREST Enum = 0x2700
	LINEAR_MIPMAP_NEAREST  Enum = 0x2701
	NEAREST_MIPMAP_LINEAR  Enum = 0x2702
	LINEAR_MIPMAP_LINEAR   Enum = 0x2703
	CLAMP_TO_EDGE          Enum = 0x812F
	REPEAT                 Enum = 0x2901
	MIRRORED_REPEAT        Enum = 0x8370

	FRAMEBUFFER          Enum = 0x8D40
	COLOR_ATTACHMENT0    Enum = 0x8CE0
	DEPTH_ATTACHMENT     Enum = 0x8D00
	FRAMEBUFFER_COMPLETE Enum = 0x8CD5

	COLOR_BUFFER_BIT Enum = 0x4000
	DEPTH_BUFFER_BIT Enum = 0x0100

	MAX_TEXTURE_SIZE           Enum = 0x0D33
	MAX_UNIFORM_BLOCK_SIZE     Enum = 0x8A30
	UNIFORM_BUFFER_OFFSET_ALGN Enum = 0x8A34

	CURRENT_PROGRAM Enum = 0x8B8D
	DEPTH_WRITEMASK Enum = 0x0B72
	DEPTH_FUNC      Enum = 0x0B74
	BLEND_SRC_RGB   Enum = 0x80C9
	BLEND_DST_RGB   Enum = 0x80C8
	CULL_FACE_MODE  Enum = 0x0B45
	FRONT_FACE      Enum = 0x0B46
)

// Functions is the slice of the GL 3.3 API the backend drives. The shadow
// state cache and pass logic call through this interface, so tests exercise
// them against a recording implementation without a context; production uses
// the go-gl binding behind glFunctions.
type Functions interface {
	Init() error

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float64)
	Clear(mask Enum)

	Enable(cap Enum)
	Disable(cap Enum)
	IsEnabled(cap Enum) bool
	DepthFunc(fn Enum)
	DepthMask(write bool)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum)
	BlendEquationSeparate(modeRGB, modeAlpha Enum)
	CullFace(mode Enum)
	FrontFace(winding Enum)
	ColorMask(r, g, b, a bool)

	CompileShader(stage Enum, source string) (Shader, string, bool)
	LinkProgram(vertex, fragment Shader) (Program, string, bool)
	DeleteShader(s Shader)
	DeleteProgram(p Program)
	UseProgram(p Program)
	GetUniformBlockIndex(p Program, name string) (uint32, bool)
	UniformBlockBinding(p Program, blockIndex, binding uint32)
	GetUniformLocation(p Program, name string) (int32, bool)
	Uniform1i(location int32, v int32)

	GenBuffer() BufferID
	BindBuffer(target Enum, buf BufferID)
	BufferData(target Enum, size int, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)
	BindBufferRange(index uint32, buf BufferID, offset, size int)
	DeleteBuffer(buf BufferID)

	GenVertexArray() VertexArray
	BindVertexArray(vao VertexArray)
	DeleteVertexArray(vao VertexArray)
	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int)

	GenTexture() TextureID
	ActiveTexture(unit uint32)
	BindTexture(target Enum, tex TextureID)
	TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, data []byte)
	TexImage3D(target Enum, level int32, internalFormat Enum, width, height, depth int32, format, xtype Enum, data []byte)
	CompressedTexImage2D(target Enum, level int32, format Enum, width, height int32, data []byte)
	TexSubImage2D(target Enum, level, x, y, width, height int32, format, xtype Enum, data []byte)
	TexSubImage3D(target Enum, level, x, y, z, width, height, depth int32, format, xtype Enum, data []byte)
	TexParameteri(target, pname Enum, param int32)
	DeleteTexture(tex TextureID)

	GenSampler() SamplerID
	BindSampler(unit uint32, s SamplerID)
	SamplerParameteri(s SamplerID, pname Enum, param int32)
	DeleteSampler(s SamplerID)

	GenFramebuffer() Framebuffer
	BindFramebuffer(fb Framebuffer)
	FramebufferTexture2D(attachment Enum, tex TextureID, level int32)
	FramebufferTextureLayer(attachment Enum, tex TextureID, level, layer int32)
	CheckFramebufferStatus() Enum
	DeleteFramebuffer(fb Framebuffer)

	DrawElements(mode Enum, count int32, xtype Enum, offset int)
	GetInteger(pname Enum) int32
	GetBoolean(pname Enum) bool
	Flush()
}

// glFunctions is the production Functions over the go-gl 3.3-core binding.
// All calls require the owning window's context to be current on the calling
// goroutine.
type glFunctions struct{}

var _ Functions = glFunctions{}

// NewGLFunctions returns the go-gl backed Functions.
//
// Returns:
//   - Functions: the production GL call table
func NewGLFunctions() Functions {
	return glFunctions{}
}

func (glFunctions) Init() error {
	return gl.Init()
}

func (glFunctions) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }
func (glFunctions) ClearColor(r, g, b, a float32)      { gl.ClearColor(r, g, b, a) }
func (glFunctions) ClearDepth(d float64)               { gl.ClearDepth(d) }
func (glFunctions) Clear(mask Enum)                    { gl.Clear(uint32(mask)) }

func (glFunctions) Enable(cap Enum)         { gl.Enable(uint32(cap)) }
func (glFunctions) Disable(cap Enum)        { gl.Disable(uint32(cap)) }
func (glFunctions) IsEnabled(cap Enum) bool { return gl.IsEnabled(uint32(cap)) }
func (glFunctions) DepthFunc(fn Enum)       { gl.DepthFunc(uint32(fn)) }
func (glFunctions) DepthMask(write bool)    { gl.DepthMask(write) }
func (glFunctions) CullFace(mode Enum)      { gl.CullFace(uint32(mode)) }
func (glFunctions) FrontFace(winding Enum)  { gl.FrontFace(uint32(winding)) }
func (glFunctions) ColorMask(r, g, b, a bool) {
	gl.ColorMask(r, g, b, a)
}

func (glFunctions) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha Enum) {
	gl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcAlpha), uint32(dstAlpha))
}

func (glFunctions) BlendEquationSeparate(modeRGB, modeAlpha Enum) {
	gl.BlendEquationSeparate(uint32(modeRGB), uint32(modeAlpha))
}

func (glFunctions) CompileShader(stage Enum, source string) (Shader, string, bool) {
	shader := gl.CreateShader(uint32(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, strings.TrimRight(log, "\x00"), false
	}
	return Shader(shader), "", true
}

func (glFunctions) LinkProgram(vertex, fragment Shader) (Program, string, bool) {
	program := gl.CreateProgram()
	gl.AttachShader(program, uint32(vertex))
	gl.AttachShader(program, uint32(fragment))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, strings.TrimRight(log, "\x00"), false
	}
	return Program(program), "", true
}

func (glFunctions) DeleteShader(s Shader)   { gl.DeleteShader(uint32(s)) }
func (glFunctions) DeleteProgram(p Program) { gl.DeleteProgram(uint32(p)) }
func (glFunctions) UseProgram(p Program)    { gl.UseProgram(uint32(p)) }

func (glFunctions) GetUniformBlockIndex(p Program, name string) (uint32, bool) {
	idx := gl.GetUniformBlockIndex(uint32(p), gl.Str(name+"\x00"))
	return idx, idx != gl.INVALID_INDEX
}

func (glFunctions) UniformBlockBinding(p Program, blockIndex, binding uint32) {
	gl.UniformBlockBinding(uint32(p), blockIndex, binding)
}

func (glFunctions) GetUniformLocation(p Program, name string) (int32, bool) {
	loc := gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
	return loc, loc >= 0
}

func (glFunctions) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

func (glFunctions) GenBuffer() BufferID {
	var id uint32
	gl.GenBuffers(1, &id)
	return BufferID(id)
}

func (glFunctions) BindBuffer(target Enum, buf BufferID) {
	gl.BindBuffer(uint32(target), uint32(buf))
}

func (glFunctions) BufferData(target Enum, size int, data []byte, usage Enum) {
	if len(data) == 0 {
		gl.BufferData(uint32(target), size, nil, uint32(usage))
		return
	}
	gl.BufferData(uint32(target), size, gl.Ptr(data), uint32(usage))
}

func (glFunctions) BufferSubData(target Enum, offset int, data []byte) {
	gl.BufferSubData(uint32(target), offset, len(data), gl.Ptr(data))
}

func (glFunctions) BindBufferRange(index uint32, buf BufferID, offset, size int) {
	gl.BindBufferRange(gl.UNIFORM_BUFFER, index, uint32(buf), offset, size)
}

func (glFunctions) DeleteBuffer(buf BufferID) {
	id := uint32(buf)
	gl.DeleteBuffers(1, &id)
}

func (glFunctions) GenVertexArray() VertexArray {
	var id uint32
	gl.GenVertexArrays(1, &id)
	return VertexArray(id)
}

func (glFunctions) BindVertexArray(vao VertexArray) { gl.BindVertexArray(uint32(vao)) }

func (glFunctions) DeleteVertexArray(vao VertexArray) {
	id := uint32(vao)
	gl.DeleteVertexArrays(1, &id)
}

func (glFunctions) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (glFunctions) VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointer(index, size, uint32(xtype), normalized, stride, gl.PtrOffset(offset))
}

func (glFunctions) GenTexture() TextureID {
	var id uint32
	gl.GenTextures(1, &id)
	return TextureID(id)
}

func (glFunctions) ActiveTexture(unit uint32) { gl.ActiveTexture(gl.TEXTURE0 + unit) }

func (glFunctions) BindTexture(target Enum, tex TextureID) {
	gl.BindTexture(uint32(target), uint32(tex))
}

func (glFunctions) TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, data []byte) {
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(uint32(target), level, int32(internalFormat), width, height, 0, uint32(format), uint32(xtype), ptr)
}

func (glFunctions) TexImage3D(target Enum, level int32, internalFormat Enum, width, height, depth int32, format, xtype Enum, data []byte) {
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.TexImage3D(uint32(target), level, int32(internalFormat), width, height, depth, 0, uint32(format), uint32(xtype), ptr)
}

func (glFunctions) CompressedTexImage2D(target Enum, level int32, format Enum, width, height int32, data []byte) {
	gl.CompressedTexImage2D(uint32(target), level, uint32(format), width, height, 0, int32(len(data)), gl.Ptr(data))
}

func (glFunctions) TexSubImage2D(target Enum, level, x, y, width, height int32, format, xtype Enum, data []byte) {
	gl.TexSubImage2D(uint32(target), level, x, y, width, height, uint32(format), uint32(xtype), gl.Ptr(data))
}

func (glFunctions) TexSubImage3D(target Enum, level, x, y, z, width, height, depth int32, format, xtype Enum, data []byte) {
	gl.TexSubImage3D(uint32(target), level, x, y, z, width, height, depth, uint32(format), uint32(xtype), gl.Ptr(data))
}

func (glFunctions) TexParameteri(target, pname Enum, param int32) {
	gl.TexParameteri(uint32(target), uint32(pname), param)
}

func (glFunctions) DeleteTexture(tex TextureID) {
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
}

func (glFunctions) GenSampler() SamplerID {
	var id uint32
	gl.GenSamplers(1, &id)
	return SamplerID(id)
}

func (glFunctions) BindSampler(unit uint32, s SamplerID) { gl.BindSampler(unit, uint32(s)) }

func (glFunctions) SamplerParameteri(s SamplerID, pname Enum, param int32) {
	gl.SamplerParameteri(uint32(s), uint32(pname), param)
}

func (glFunctions) DeleteSampler(s SamplerID) {
	id := uint32(s)
	gl.DeleteSamplers(1, &id)
}

func (glFunctions) GenFramebuffer() Framebuffer {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return Framebuffer(id)
}

func (glFunctions) BindFramebuffer(fb Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (glFunctions) FramebufferTexture2D(attachment Enum, tex TextureID, level int32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, uint32(attachment), gl.TEXTURE_2D, uint32(tex), level)
}

func (glFunctions) FramebufferTextureLayer(attachment Enum, tex TextureID, level, layer int32) {
	gl.FramebufferTextureLayer(gl.FRAMEBUFFER, uint32(attachment), uint32(tex), level, layer)
}

func (glFunctions) CheckFramebufferStatus() Enum {
	return Enum(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (glFunctions) DeleteFramebuffer(fb Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

func (glFunctions) DrawElements(mode Enum, count int32, xtype Enum, offset int) {
	gl.DrawElements(uint32(mode), count, uint32(xtype), gl.PtrOffset(offset))
}

func (glFunctions) GetInteger(pname Enum) int32 {
	var v int32
	gl.GetIntegerv(uint32(pname), &v)
	return v
}

func (glFunctions) GetBoolean(pname Enum) bool {
	var v bool
	gl.GetBooleanv(uint32(pname), &v)
	return v
}

func (glFunctions) Flush() { gl.Flush() }

// topologyEnum maps a gal topology to its GL draw mode.
func topologyEnum(t gal.PrimitiveTopology) Enum {
	switch t {
	case gal.PrimitiveTopologyTriangleStrip:
		return TRIANGLE_STRIP
	case gal.PrimitiveTopologyLineList:
		return LINES
	default:
		return TRIANGLES
	}
}
