package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen-engine/lumen/engine/gal"
)

func (e *Executor) CreateBuffer(desc *gal.BufferDescriptor) (gal.Buffer, error) {
	if err := e.limits.ValidateBuffer(desc); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsageFor(desc.Usage),
	})
	if err != nil {
		return nil, err
	}

	buf := gal.NewBufferHandle(desc)
	buf.SetRaw(raw)
	return buf, nil
}

func (e *Executor) WriteBuffer(buf gal.Buffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("buffer write out of range: offset %d + %d bytes exceeds size %d",
			offset, len(data), buf.Size())
	}
	raw, ok := buf.Raw().(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("buffer %q has no backend buffer", buf.Label())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.WriteBuffer(raw, offset, data)
	return nil
}

func (e *Executor) DestroyBuffer(buf gal.Buffer) {
	if raw, ok := buf.Raw().(*wgpu.Buffer); ok {
		raw.Release()
		buf.SetRaw(nil)
	}
}

func (e *Executor) CreateTexture(desc *gal.TextureDescriptor) (gal.Texture, error) {
	if err := e.limits.ValidateTexture(desc); err != nil {
		return nil, err
	}
	format := textureFormatFor(desc.Format)
	if format == wgpu.TextureFormatUndefined {
		return nil, fmt.Errorf("texture %q uses format %d, which this device does not support",
			desc.Label, desc.Format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	raw, err := e.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         textureUsageFor(desc.Usage),
	})
	if err != nil {
		return nil, err
	}

	tex := gal.NewTextureHandle(desc)
	tex.SetRaw(raw)
	return tex, nil
}

func (e *Executor) WriteTexture(tex gal.Texture, mipLevel uint32, data []byte) error {
	raw, ok := tex.Raw().(*wgpu.Texture)
	if !ok {
		return fmt.Errorf("texture %q has no backend texture", tex.Label())
	}
	desc := tex.Descriptor()
	if mipLevel >= desc.MipLevelCount {
		return fmt.Errorf("mip level %d out of range for texture %q with %d levels",
			mipLevel, desc.Label, desc.MipLevelCount)
	}

	w := desc.Width >> mipLevel
	if w == 0 {
		w = 1
	}
	h := desc.Height >> mipLevel
	if h == 0 {
		h = 1
	}
	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	texelSize := bytesPerTexel(desc.Format)
	if texelSize == 0 {
		return fmt.Errorf("texture %q: format %d cannot be written through the queue",
			desc.Label, desc.Format)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  raw,
			MipLevel: mipLevel,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * texelSize,
			RowsPerImage: h,
		},
		&wgpu.Extent3D{
			Width:              w,
			Height:             h,
			DepthOrArrayLayers: layers,
		},
	)
	return nil
}

func (e *Executor) CreateTextureView(tex gal.Texture, desc *gal.TextureViewDescriptor) (gal.TextureView, error) {
	raw, ok := tex.Raw().(*wgpu.Texture)
	if !ok {
		return nil, fmt.Errorf("texture %q has no backend texture", tex.Label())
	}
	td := tex.Descriptor()
	if desc.BaseMipLevel+desc.MipLevelCount > td.MipLevelCount {
		return nil, fmt.Errorf("view mip range [%d,%d) out of bounds for texture %q",
			desc.BaseMipLevel, desc.BaseMipLevel+desc.MipLevelCount, td.Label)
	}
	if desc.BaseArrayLayer+desc.ArrayLayerCount > td.ArrayLayers {
		return nil, fmt.Errorf("view layer range [%d,%d) out of bounds for texture %q",
			desc.BaseArrayLayer, desc.BaseArrayLayer+desc.ArrayLayerCount, td.Label)
	}

	dimension := wgpu.TextureViewDimension2D
	if desc.ArrayLayerCount > 1 {
		dimension = wgpu.TextureViewDimension2DArray
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rawView, err := raw.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          textureFormatFor(td.Format),
		Dimension:       dimension,
		BaseMipLevel:    desc.BaseMipLevel,
		MipLevelCount:   desc.MipLevelCount,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}

	view := gal.NewTextureViewHandle(tex, desc)
	view.SetRaw(rawView)
	return view, nil
}

func (e *Executor) CreateSampler(desc *gal.SamplerDescriptor) (gal.Sampler, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressModeFor(desc.AddressModeU),
		AddressModeV:  addressModeFor(desc.AddressModeV),
		AddressModeW:  addressModeFor(desc.AddressModeW),
		MagFilter:     filterModeFor(desc.MagFilter),
		MinFilter:     filterModeFor(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
		Compare:       compareFor(desc.Compare),
	})
	if err != nil {
		return nil, err
	}

	s := gal.NewSamplerHandle(desc)
	s.SetRaw(raw)
	return s, nil
}

func (e *Executor) CreateShaderModule(desc *gal.ShaderModuleDescriptor) (gal.ShaderModule, error) {
	if desc.WGSL == "" {
		return nil, &gal.ShaderCompilationError{
			Label: desc.Label,
			Log:   "no WGSL source provided for the WGPU backend",
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.WGSL,
		},
	})
	if err != nil {
		return nil, &gal.ShaderCompilationError{Label: desc.Label, Log: err.Error()}
	}

	m := gal.NewShaderModuleHandle(desc)
	m.SetRaw(raw)
	return m, nil
}

func (e *Executor) CreateBindGroupLayout(desc *gal.BindGroupLayoutDescriptor) (gal.BindGroupLayout, error) {
	return e.intern.Layout(desc, func(l gal.BindGroupLayout) error {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Entries))
		for i := range desc.Entries {
			entries = append(entries, layoutEntryFor(&desc.Entries[i]))
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		raw, err := e.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   desc.Label,
			Entries: entries,
		})
		if err != nil {
			return err
		}
		l.SetRaw(raw)
		return nil
	})
}

func (e *Executor) CreateBindGroup(desc *gal.BindGroupDescriptor) (gal.BindGroup, error) {
	if desc.Layout == nil {
		return nil, fmt.Errorf("bind group %q has no layout", desc.Label)
	}
	rawLayout, ok := desc.Layout.Raw().(*wgpu.BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q references a layout with no backend object", desc.Label)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for i := range desc.Entries {
		entry := &desc.Entries[i]
		out := wgpu.BindGroupEntry{Binding: entry.Binding}
		switch {
		case entry.Buffer != nil:
			raw, ok := entry.Buffer.Raw().(*wgpu.Buffer)
			if !ok {
				return nil, fmt.Errorf("bind group %q entry %d references a destroyed buffer", desc.Label, entry.Binding)
			}
			out.Buffer = raw
			out.Offset = entry.Offset
			out.Size = entry.Size
			if out.Size == 0 {
				out.Size = wgpu.WholeSize
			}
		case entry.View != nil:
			raw, ok := entry.View.Raw().(*wgpu.TextureView)
			if !ok {
				return nil, fmt.Errorf("bind group %q entry %d references a released view", desc.Label, entry.Binding)
			}
			out.TextureView = raw
		case entry.Sampler != nil:
			raw, ok := entry.Sampler.Raw().(*wgpu.Sampler)
			if !ok {
				return nil, fmt.Errorf("bind group %q entry %d references a released sampler", desc.Label, entry.Binding)
			}
			out.Sampler = raw
		default:
			return nil, fmt.Errorf("bind group %q entry %d binds no resource", desc.Label, entry.Binding)
		}
		entries = append(entries, out)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := e.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  rawLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	group := gal.NewBindGroupHandle(desc)
	group.SetRaw(raw)
	return group, nil
}
