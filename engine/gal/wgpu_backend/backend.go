// Package wgpubackend implements the WebGPU executor: pass calls are
// recorded into a command encoder and nothing reaches the GPU until Submit.
// Validation and batching happen at record time, so redundant-state
// elimination above the backend translates directly into smaller command
// buffers.
package wgpubackend

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen-engine/lumen/engine/gal"
)

// Executor is the WebGPU implementation of gal.Executor.
type Executor struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   uint32

	width  int
	height int

	msaaTextureView  *wgpu.TextureView
	depthTextureView *wgpu.TextureView
	msaaTexture      *wgpu.Texture
	depthTexture     *wgpu.Texture

	limits gal.DeviceLimits
	intern *gal.InternTable

	// Frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// surfaceRecovered marks that the current BeginFrame already rebuilt the
	// surface once; a second consecutive loss propagates.
	surfaceRecovered bool

	frameStart time.Time
	stats      gal.FrameStats
	lastStats  gal.FrameStats
}

var _ gal.Executor = &Executor{}

// Option configures the executor at construction.
type Option func(*Executor)

// WithVSync selects FIFO presentation instead of the default immediate mode.
//
// Returns:
//   - Option: the configuration option
func WithVSync() Option {
	return func(e *Executor) { e.presentMode = wgpu.PresentModeFifo }
}

// WithSampleCount sets the MSAA sample count of the main pass targets.
//
// Parameters:
//   - count: 1 (off) or 4
//
// Returns:
//   - Option: the configuration option
func WithSampleCount(count uint32) Option {
	return func(e *Executor) {
		if count < 1 {
			count = 1
		}
		e.sampleCount = count
	}
}

// New creates the WebGPU executor: instance, surface, adapter, device, and
// the initial surface configuration. The calling goroutine is locked to its
// OS thread for the lifetime of the executor.
//
// Parameters:
//   - surfaceDescriptor: the window-system surface descriptor
//   - width, height: the initial drawable size in pixels
//   - opts: optional configuration
//
// Returns:
//   - *Executor: the initialized executor
//   - error: an error if adapter or device acquisition fails
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, opts ...Option) (*Executor, error) {
	runtime.LockOSThread()

	e := &Executor{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: 1,
		intern:      gal.NewInternTable(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.surface = e.instance.CreateSurface(surfaceDescriptor)

	adapter, err := e.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: e.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire adapter: %w", err)
	}
	e.adapter = adapter

	limits := wgpu.DefaultLimits()
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Lumen Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire device: %w", err)
	}
	e.device = device
	e.queue = device.GetQueue()

	e.limits = gal.DeviceLimits{
		MaxTextureSize:            limits.MaxTextureDimension2D,
		MaxUniformBufferSize:      limits.MaxUniformBufferBindingSize,
		MinUniformOffsetAlignment: uint64(limits.MinUniformBufferOffsetAlignment),
		MaxBindGroups:             gal.MaxBindGroupSlots,
		MaxFramesInFlight:         gal.FramesInFlight,
		SupportsStorageBuffers:    true,
		// The binding exposes no render bundle API; recorded sequences are
		// replayed by re-encoding pre-resolved commands.
		SupportsRenderBundles: false,
	}

	e.configureSurface(width, height)

	log.Printf("[WGPUBackend] initialized: %dx%d, %dx MSAA, max texture %d",
		width, height, e.sampleCount, e.limits.MaxTextureSize)
	return e, nil
}

// configureSurface (re)configures the surface and rebuilds the size-coupled
// MSAA and depth targets. Also the resize entry point.
func (e *Executor) configureSurface(width, height int) {
	capabilities := e.surface.GetCapabilities(e.adapter)
	e.surfaceFormat = capabilities.Formats[0]

	e.surface.Configure(e.adapter, e.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      e.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: e.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	e.width, e.height = width, height

	e.releaseFrameTargets()

	if e.sampleCount > 1 {
		msaaTexture, err := e.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Target",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   e.sampleCount,
			Dimension:     wgpu.TextureDimension2D,
			Format:        e.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		view, err := msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
		e.msaaTexture = msaaTexture
		e.msaaTextureView = view
	}

	depthTexture, err := e.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Target",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   e.sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	depthView, err := depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	e.depthTexture = depthTexture
	e.depthTextureView = depthView
}

func (e *Executor) releaseFrameTargets() {
	if e.msaaTextureView != nil {
		e.msaaTextureView.Release()
		e.msaaTextureView = nil
	}
	if e.msaaTexture != nil {
		e.msaaTexture.Release()
		e.msaaTexture = nil
	}
	if e.depthTextureView != nil {
		e.depthTextureView.Release()
		e.depthTextureView = nil
	}
	if e.depthTexture != nil {
		e.depthTexture.Release()
		e.depthTexture = nil
	}
}

// Resize reconfigures the surface for a new drawable size. Must not be
// called between BeginFrame and Present.
//
// Parameters:
//   - width, height: the new drawable size in pixels
func (e *Executor) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configureSurface(width, height)
}

func (e *Executor) BackendType() gal.BackendType {
	return gal.BackendTypeWGPU
}

func (e *Executor) Limits() gal.DeviceLimits {
	return e.limits
}

// BeginFrame acquires the swapchain texture and creates the frame's command
// encoder. A lost surface is recovered once by reconfiguring at the current
// size and retrying; a second consecutive loss returns *SurfaceLostError.
func (e *Executor) BeginFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	e.frameStart = time.Now()
	e.stats = gal.FrameStats{}

	surfaceTexture, err := e.surface.GetCurrentTexture()
	if err != nil {
		if e.surfaceRecovered {
			e.surfaceRecovered = false
			return &gal.SurfaceLostError{Cause: err}
		}
		log.Printf("[WGPUBackend] surface lost (%v), reconfiguring and retrying", err)
		e.configureSurface(e.width, e.height)
		e.surfaceRecovered = true

		surfaceTexture, err = e.surface.GetCurrentTexture()
		if err != nil {
			e.surfaceRecovered = false
			return &gal.SurfaceLostError{Cause: err}
		}
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	e.frameEncoder = encoder
	e.frameSurface = surfaceTexture
	e.frameView = view
	e.surfaceRecovered = false
	return nil
}

// BeginRenderPass records a render pass into the frame encoder. A nil
// ColorView targets the swapchain with the executor's depth target; non-nil
// views target off-screen attachments.
func (e *Executor) BeginRenderPass(desc *gal.RenderPassDescriptor) (gal.Pass, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frameEncoder == nil {
		return nil, fmt.Errorf("BeginRenderPass called outside a frame")
	}

	passDesc, err := e.renderPassDescriptorFor(desc)
	if err != nil {
		return nil, err
	}
	pass := e.frameEncoder.BeginRenderPass(passDesc)
	return &wgpuPass{exec: e, pass: pass}, nil
}

func (e *Executor) renderPassDescriptorFor(desc *gal.RenderPassDescriptor) (*wgpu.RenderPassDescriptor, error) {
	loadOpFor := func(op gal.LoadOp) wgpu.LoadOp {
		if op == gal.LoadOpLoad {
			return wgpu.LoadOpLoad
		}
		return wgpu.LoadOpClear
	}

	out := &wgpu.RenderPassDescriptor{Label: desc.Label}

	if desc.ColorView == nil {
		// Surface pass: draw into the MSAA target and resolve to the
		// swapchain view, or straight into the swapchain without MSAA.
		attachment := wgpu.RenderPassColorAttachment{
			View:    e.frameView,
			LoadOp:  loadOpFor(desc.ColorLoad),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: desc.ClearColor[0], G: desc.ClearColor[1],
				B: desc.ClearColor[2], A: desc.ClearColor[3],
			},
		}
		if e.sampleCount > 1 {
			attachment.View = e.msaaTextureView
			attachment.ResolveTarget = e.frameView
			attachment.StoreOp = wgpu.StoreOpDiscard
		}
		out.ColorAttachments = []wgpu.RenderPassColorAttachment{attachment}

		depthView := e.depthTextureView
		if desc.DepthView != nil {
			raw, ok := desc.DepthView.Raw().(*wgpu.TextureView)
			if !ok {
				return nil, fmt.Errorf("depth view %q has no backend texture view", desc.DepthView.Label())
			}
			depthView = raw
		}
		out.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     loadOpFor(desc.DepthLoad),
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: desc.ClearDepth,
		}
		return out, nil
	}

	colorView, ok := desc.ColorView.Raw().(*wgpu.TextureView)
	if !ok {
		return nil, fmt.Errorf("color view %q has no backend texture view", desc.ColorView.Label())
	}
	out.ColorAttachments = []wgpu.RenderPassColorAttachment{{
		View:    colorView,
		LoadOp:  loadOpFor(desc.ColorLoad),
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: desc.ClearColor[0], G: desc.ClearColor[1],
			B: desc.ClearColor[2], A: desc.ClearColor[3],
		},
	}}
	if desc.DepthView != nil {
		depthView, ok := desc.DepthView.Raw().(*wgpu.TextureView)
		if !ok {
			return nil, fmt.Errorf("depth view %q has no backend texture view", desc.DepthView.Label())
		}
		out.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     loadOpFor(desc.DepthLoad),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.ClearDepth,
		}
	}
	return out, nil
}

// Submit finishes the frame's command buffer and hands it to the queue.
func (e *Executor) Submit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frameEncoder == nil {
		return
	}

	commandBuffer, err := e.frameEncoder.Finish(nil)
	if err != nil {
		log.Printf("[WGPUBackend] failed to finish command encoder: %v", err)
		e.frameEncoder.Release()
		e.frameEncoder = nil
		return
	}

	e.queue.Submit(commandBuffer)
	commandBuffer.Release()
	e.frameEncoder.Release()
	e.frameEncoder = nil

	e.stats.CPUTimeMs = float64(time.Since(e.frameStart).Microseconds()) / 1000.0
	e.lastStats = e.stats
}

// Present presents the swapchain image and releases the frame references.
func (e *Executor) Present() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frameSurface == nil {
		return
	}

	e.surface.Present()

	if e.frameView != nil {
		e.frameView.Release()
		e.frameView = nil
	}
	e.frameSurface.Release()
	e.frameSurface = nil
}

func (e *Executor) FrameStats() gal.FrameStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// Release frees the device-level objects. Resources created through the
// executor are owned and released by their creating subsystems.
func (e *Executor) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseFrameTargets()
	if e.queue != nil {
		e.queue.Release()
		e.queue = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.adapter != nil {
		e.adapter.Release()
		e.adapter = nil
	}
	if e.instance != nil {
		e.instance.Release()
		e.instance = nil
	}
}
