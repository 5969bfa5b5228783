package glbackend

import (
	"fmt"

	"github.com/lumen-engine/lumen/engine/gal"
)

// glBuffer is the backend payload attached to a gal.Buffer handle.
type glBuffer struct {
	id     BufferID
	target Enum
}

// glTexture is the backend payload attached to a gal.Texture handle.
type glTexture struct {
	id     TextureID
	target Enum
	format glFormat
}

// glView is the backend payload of a texture view. GL 3.3 has no view
// objects; the view is metadata resolved at bind or attach time.
type glView struct {
	tex   *glTexture
	mip   int32
	layer int32
}

// glFormat maps a gal.TextureFormat onto GL upload parameters.
type glFormat struct {
	internal   Enum
	format     Enum
	xtype      Enum
	compressed bool
	depth      bool
}

func formatFor(f gal.TextureFormat) (glFormat, error) {
	switch f {
	case gal.TextureFormatRGBA8Unorm:
		return glFormat{internal: RGBA8, format: RGBA, xtype: UNSIGNED_BYTE}, nil
	case gal.TextureFormatRGBA8UnormSrgb:
		return glFormat{internal: SRGB8_ALPHA8, format: RGBA, xtype: UNSIGNED_BYTE}, nil
	case gal.TextureFormatBGRA8Unorm:
		return glFormat{internal: RGBA8, format: BGRA, xtype: UNSIGNED_BYTE}, nil
	case gal.TextureFormatR8Unorm:
		return glFormat{internal: R8, format: RED, xtype: UNSIGNED_BYTE}, nil
	case gal.TextureFormatDepth24Plus:
		return glFormat{internal: DEPTH_COMPONENT24, format: DEPTH_COMPONENT, xtype: UNSIGNED_INT, depth: true}, nil
	case gal.TextureFormatDepth32Float:
		return glFormat{internal: DEPTH_COMPONENT32F, format: DEPTH_COMPONENT, xtype: FLOAT, depth: true}, nil
	case gal.TextureFormatBC1:
		return glFormat{internal: COMPRESSED_RGB_DXT1, compressed: true}, nil
	case gal.TextureFormatBC3:
		return glFormat{internal: COMPRESSED_RGBA_DXT5, compressed: true}, nil
	default:
		return glFormat{}, fmt.Errorf("unsupported texture format %d", f)
	}
}

func bufferTarget(usage gal.BufferUsage) Enum {
	switch {
	case usage&gal.BufferUsageIndex != 0:
		return ELEMENT_ARRAY_BUFFER
	case usage&gal.BufferUsageUniform != 0:
		return UNIFORM_BUFFER
	default:
		return ARRAY_BUFFER
	}
}

func (e *Executor) CreateBuffer(desc *gal.BufferDescriptor) (gal.Buffer, error) {
	if err := e.limits.ValidateBuffer(desc); err != nil {
		return nil, err
	}

	target := bufferTarget(desc.Usage)
	usage := STATIC_DRAW
	if desc.Dynamic {
		usage = DYNAMIC_DRAW
	}

	id := e.funcs.GenBuffer()
	e.funcs.BindBuffer(target, id)
	e.funcs.BufferData(target, int(desc.Size), nil, usage)

	buf := gal.NewBufferHandle(desc)
	buf.SetRaw(&glBuffer{id: id, target: target})
	return buf, nil
}

func (e *Executor) WriteBuffer(buf gal.Buffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("buffer write out of range: offset %d + %d bytes exceeds size %d",
			offset, len(data), buf.Size())
	}
	raw := buf.Raw().(*glBuffer)
	e.funcs.BindBuffer(raw.target, raw.id)
	e.funcs.BufferSubData(raw.target, int(offset), data)
	return nil
}

func (e *Executor) DestroyBuffer(buf gal.Buffer) {
	if raw, ok := buf.Raw().(*glBuffer); ok {
		e.funcs.DeleteBuffer(raw.id)
		e.invalidateVAOsFor(raw.id)
		buf.SetRaw(nil)
	}
}

func (e *Executor) CreateTexture(desc *gal.TextureDescriptor) (gal.Texture, error) {
	if err := e.limits.ValidateTexture(desc); err != nil {
		return nil, err
	}
	format, err := formatFor(desc.Format)
	if err != nil {
		return nil, err
	}

	target := TEXTURE_2D
	if desc.ArrayLayers > 1 {
		if format.compressed {
			return nil, fmt.Errorf("texture %q: compressed array textures are not supported", desc.Label)
		}
		target = TEXTURE_2D_ARRAY
	}

	id := e.funcs.GenTexture()
	e.funcs.BindTexture(target, id)
	e.funcs.TexParameteri(target, TEXTURE_BASE_LEVEL, 0)
	e.funcs.TexParameteri(target, TEXTURE_MAX_LEVEL, int32(desc.MipLevelCount-1))

	// Allocate every mip level up front so the texture is complete before
	// any upload arrives. Compressed textures allocate on upload instead,
	// since CompressedTexImage2D needs the payload.
	if !format.compressed {
		w, h := int32(desc.Width), int32(desc.Height)
		for level := int32(0); level < int32(desc.MipLevelCount); level++ {
			if target == TEXTURE_2D_ARRAY {
				e.funcs.TexImage3D(target, level, format.internal, w, h, int32(desc.ArrayLayers), format.format, format.xtype, nil)
			} else {
				e.funcs.TexImage2D(target, level, format.internal, w, h, format.format, format.xtype, nil)
			}
			w, h = max32(w/2, 1), max32(h/2, 1)
		}
	}

	tex := gal.NewTextureHandle(desc)
	tex.SetRaw(&glTexture{id: id, target: target, format: format})
	return tex, nil
}

func (e *Executor) WriteTexture(tex gal.Texture, mipLevel uint32, data []byte) error {
	raw := tex.Raw().(*glTexture)
	desc := tex.Descriptor()
	if mipLevel >= desc.MipLevelCount {
		return fmt.Errorf("mip level %d out of range for texture %q with %d levels",
			mipLevel, desc.Label, desc.MipLevelCount)
	}

	w := max32(int32(desc.Width)>>mipLevel, 1)
	h := max32(int32(desc.Height)>>mipLevel, 1)

	e.funcs.BindTexture(raw.target, raw.id)
	if raw.format.compressed {
		e.funcs.CompressedTexImage2D(raw.target, int32(mipLevel), raw.format.internal, w, h, data)
		return nil
	}
	if raw.target == TEXTURE_2D_ARRAY {
		// Array uploads cover every layer of the level, layer-major.
		e.funcs.TexSubImage3D(raw.target, int32(mipLevel), 0, 0, 0, w, h, int32(desc.ArrayLayers),
			raw.format.format, raw.format.xtype, data)
		return nil
	}
	e.funcs.TexSubImage2D(raw.target, int32(mipLevel), 0, 0, w, h, raw.format.format, raw.format.xtype, data)
	return nil
}

func (e *Executor) CreateTextureView(tex gal.Texture, desc *gal.TextureViewDescriptor) (gal.TextureView, error) {
	td := tex.Descriptor()
	if desc.BaseMipLevel+desc.MipLevelCount > td.MipLevelCount {
		return nil, fmt.Errorf("view mip range [%d,%d) out of bounds for texture %q",
			desc.BaseMipLevel, desc.BaseMipLevel+desc.MipLevelCount, td.Label)
	}
	if desc.BaseArrayLayer+desc.ArrayLayerCount > td.ArrayLayers {
		return nil, fmt.Errorf("view layer range [%d,%d) out of bounds for texture %q",
			desc.BaseArrayLayer, desc.BaseArrayLayer+desc.ArrayLayerCount, td.Label)
	}

	view := gal.NewTextureViewHandle(tex, desc)
	view.SetRaw(&glView{
		tex:   tex.Raw().(*glTexture),
		mip:   int32(desc.BaseMipLevel),
		layer: int32(desc.BaseArrayLayer),
	})
	return view, nil
}

func (e *Executor) CreateSampler(desc *gal.SamplerDescriptor) (gal.Sampler, error) {
	id := e.funcs.GenSampler()

	e.funcs.SamplerParameteri(id, TEXTURE_WRAP_S, int32(addressEnum(desc.AddressModeU)))
	e.funcs.SamplerParameteri(id, TEXTURE_WRAP_T, int32(addressEnum(desc.AddressModeV)))
	e.funcs.SamplerParameteri(id, TEXTURE_MAG_FILTER, int32(magFilterEnum(desc.MagFilter)))
	e.funcs.SamplerParameteri(id, TEXTURE_MIN_FILTER, int32(minFilterEnum(desc.MinFilter)))
	if desc.Compare != gal.CompareFunctionUndefined {
		e.funcs.SamplerParameteri(id, TEXTURE_COMPARE_MODE, int32(COMPARE_REF_TO_TEX))
		e.funcs.SamplerParameteri(id, TEXTURE_COMPARE_FUNC, int32(compareEnum(desc.Compare)))
	}

	s := gal.NewSamplerHandle(desc)
	s.SetRaw(id)
	return s, nil
}

func (e *Executor) CreateShaderModule(desc *gal.ShaderModuleDescriptor) (gal.ShaderModule, error) {
	if desc.GLSL == "" {
		return nil, &gal.ShaderCompilationError{
			Label: desc.Label,
			Log:   "no GLSL source provided for the GL backend",
		}
	}

	stage := VERTEX_SHADER
	if desc.Stage == gal.ShaderStageFragment {
		stage = FRAGMENT_SHADER
	}

	shader, compileLog, ok := e.funcs.CompileShader(stage, desc.GLSL)
	if !ok {
		return nil, &gal.ShaderCompilationError{Label: desc.Label, Log: compileLog}
	}

	m := gal.NewShaderModuleHandle(desc)
	m.SetRaw(shader)
	return m, nil
}

func (e *Executor) CreateBindGroupLayout(desc *gal.BindGroupLayoutDescriptor) (gal.BindGroupLayout, error) {
	// GL has no layout objects; the interned handle carries everything the
	// pass needs to resolve bindings.
	return e.intern.Layout(desc, func(gal.BindGroupLayout) error { return nil })
}

func (e *Executor) CreateBindGroup(desc *gal.BindGroupDescriptor) (gal.BindGroup, error) {
	if desc.Layout == nil {
		return nil, fmt.Errorf("bind group %q has no layout", desc.Label)
	}
	entries := desc.Layout.Descriptor().Entries
	if len(desc.Entries) != len(entries) {
		return nil, fmt.Errorf("bind group %q has %d entries, layout expects %d",
			desc.Label, len(desc.Entries), len(entries))
	}
	for i := range entries {
		if entryForBinding(desc.Entries, entries[i].Binding) == nil {
			return nil, fmt.Errorf("bind group %q fills no entry for layout binding %d",
				desc.Label, entries[i].Binding)
		}
	}
	return gal.NewBindGroupHandle(desc), nil
}

func addressEnum(m gal.AddressMode) Enum {
	switch m {
	case gal.AddressModeRepeat:
		return REPEAT
	case gal.AddressModeMirrorRepeat:
		return MIRRORED_REPEAT
	default:
		return CLAMP_TO_EDGE
	}
}

func magFilterEnum(f gal.FilterMode) Enum {
	if f == gal.FilterModeNearest {
		return NEAREST
	}
	return LINEAR
}

func minFilterEnum(f gal.FilterMode) Enum {
	if f == gal.FilterModeNearest {
		return NEAREST_MIPMAP_NEAREST
	}
	return LINEAR_MIPMAP_LINEAR
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
