package glbackend

import (
	"log"

	"github.com/lumen-engine/lumen/engine/gal"
)

// pipelineState is the fully resolved GL form of an interned pipeline: the
// linked program plus every fixed-function value the pipeline pins. It is
// attached to the gal.Pipeline handle via SetRaw and never mutated after
// creation.
type pipelineState struct {
	program  Program
	topology Enum

	depthTest  bool
	depthWrite bool
	depthFunc  Enum

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

	vertexLayout gal.VertexLayout
}

// newPipelineState resolves a descriptor's fixed-function state.
func newPipelineState(program Program, desc *gal.PipelineDescriptor) *pipelineState {
	st := &pipelineState{
		program:      program,
		topology:     topologyEnum(desc.Topology),
		depthTest:    desc.Depth.TestEnabled,
		depthWrite:   desc.Depth.WriteEnabled,
		depthFunc:    compareEnum(desc.Depth.Compare),
		frontFace:    frontFaceEnum(desc.FrontFace),
		vertexLayout: desc.VertexLayout,
	}
	if desc.Blend != nil {
		st.blendEnabled = true
		st.blendSrcRGB = blendFactorEnum(desc.Blend.Color.SrcFactor)
		st.blendDstRGB = blendFactorEnum(desc.Blend.Color.DstFactor)
		st.blendSrcA = blendFactorEnum(desc.Blend.Alpha.SrcFactor)
		st.blendDstA = blendFactorEnum(desc.Blend.Alpha.DstFactor)
		st.blendEqRGB = blendOpEnum(desc.Blend.Color.Operation)
		st.blendEqA = blendOpEnum(desc.Blend.Alpha.Operation)
	}
	if desc.CullMode != gal.CullModeNone {
		st.cullEnabled = true
		st.cullFace = BACK
		if desc.CullMode == gal.CullModeFront {
			st.cullFace = FRONT
		}
	}
	mask := desc.ColorMask
	if mask == 0 {
		mask = gal.ColorMaskAll
	}
	st.colorMask = [4]bool{
		mask&gal.ColorMaskR != 0,
		mask&gal.ColorMaskG != 0,
		mask&gal.ColorMaskB != 0,
		mask&gal.ColorMaskA != 0,
	}
	return st
}

// stateShadow mirrors the driver's state machine. Every mutation flows
// through one of its setters, which forward to the driver only when the
// shadow disagrees, so the shadow can never drift from reality except
// through out-of-band GL calls (which nothing in this backend makes).
//
// transitions counts the driver calls that actually happened; resetFrame
// zeroes it at frame start.
type stateShadow struct {
	f Functions

	// alwaysEmit disables diffing entirely: every setter forwards to the
	// driver. Used as the reference behavior when verifying that diffing
	// produces identical final state with fewer calls.
	alwaysEmit bool

	// validate re-queries the driver after each pipeline bind and logs any
	// divergence from the shadow. Debug builds only; GetInteger round-trips
	// stall the pipeline.
	validate bool

	valid bool // false until the first pipeline bind seeds every value

	program  Program
	topology Enum

	depthTest  bool
	depthWrite bool
	depthFunc  Enum

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

	transitions int
}

const (
	maxTextureUnits = 16
	maxUBOBindings  = 24
)

type uboRange struct {
	buf    BufferID
	offset int
	size   int
}

func newStateShadow(f Functions) *stateShadow {
	return &stateShadow{f: f}
}

// resetFrame invalidates the shadow and zeroes the transition counter. The
// shadow is deliberately not trusted across frames: window-system or overlay
// code may have touched GL between Present and the next BeginFrame.
func (s *stateShadow) resetFrame() {
	s.valid = false
	s.vao = 0
	s.transitions = 0
	for i := range s.uboRanges {
		s.uboRanges[i] = uboRange{}
	}
	for i := range s.textureUnits {
		s.textureUnits[i] = 0
		s.samplerUnits[i] = 0
	}
}

// bindPipeline applies a pipeline's full state, emitting only the calls
// whose target value differs from the shadow. Returns the GL draw mode for
// subsequent draws.
func (s *stateShadow) bindPipeline(st *pipelineState) Enum {
	if s.alwaysEmit || !s.valid {
		s.applyAll(st)
		s.valid = true
	} else {
		s.applyDiff(st)
	}
	if s.validate {
		s.validateAgainstDriver()
	}
	return st.topology
}

func (s *stateShadow) applyAll(st *pipelineState) {
	s.f.UseProgram(st.program)
	s.program = st.program
	s.transitions++

	s.setCap(DEPTH_TEST, st.depthTest)
	s.depthTest = st.depthTest
	s.f.DepthFunc(st.depthFunc)
	s.depthFunc = st.depthFunc
	s.transitions++
	s.f.DepthMask(st.depthWrite)
	s.depthWrite = st.depthWrite
	s.transitions++

	s.setCap(BLEND, st.blendEnabled)
	s.blendEnabled = st.blendEnabled
	s.f.BlendFuncSeparate(st.blendSrcRGB, st.blendDstRGB, st.blendSrcA, st.blendDstA)
	s.f.BlendEquationSeparate(st.blendEqRGB, st.blendEqA)
	s.blendSrcRGB, s.blendDstRGB = st.blendSrcRGB, st.blendDstRGB
	s.blendSrcA, s.blendDstA = st.blendSrcA, st.blendDstA
	s.blendEqRGB, s.blendEqA = st.blendEqRGB, st.blendEqA
	s.transitions += 2

	s.setCap(CULL_FACE, st.cullEnabled)
	s.cullEnabled = st.cullEnabled
	if st.cullEnabled {
		s.f.CullFace(st.cullFace)
		s.transitions++
	}
	s.cullFace = st.cullFace
	s.f.FrontFace(st.frontFace)
	s.frontFace = st.frontFace
	s.transitions++

	s.f.ColorMask(st.colorMask[0], st.colorMask[1], st.colorMask[2], st.colorMask[3])
	s.colorMask = st.colorMask
	s.transitions++

	s.topology = st.topology
}

func (s *stateShadow) applyDiff(st *pipelineState) {
	if st.program != s.program {
		s.f.UseProgram(st.program)
		s.program = st.program
		s.transitions++
	}

	if st.depthTest != s.depthTest {
		s.setCap(DEPTH_TEST, st.depthTest)
		s.depthTest = st.depthTest
	}
	if st.depthTest && st.depthFunc != s.depthFunc {
		s.f.DepthFunc(st.depthFunc)
		s.depthFunc = st.depthFunc
		s.transitions++
	}
	if st.depthWrite != s.depthWrite {
		s.f.DepthMask(st.depthWrite)
		s.depthWrite = st.depthWrite
		s.transitions++
	}

	if st.blendEnabled != s.blendEnabled {
		s.setCap(BLEND, st.blendEnabled)
		s.blendEnabled = st.blendEnabled
	}
	if st.blendEnabled {
		if st.blendSrcRGB != s.blendSrcRGB || st.blendDstRGB != s.blendDstRGB ||
			st.blendSrcA != s.blendSrcA || st.blendDstA != s.blendDstA {
			s.f.BlendFuncSeparate(st.blendSrcRGB, st.blendDstRGB, st.blendSrcA, st.blendDstA)
			s.blendSrcRGB, s.blendDstRGB = st.blendSrcRGB, st.blendDstRGB
			s.blendSrcA, s.blendDstA = st.blendSrcA, st.blendDstA
			s.transitions++
		}
		if st.blendEqRGB != s.blendEqRGB || st.blendEqA != s.blendEqA {
			s.f.BlendEquationSeparate(st.blendEqRGB, st.blendEqA)
			s.blendEqRGB, s.blendEqA = st.blendEqRGB, st.blendEqA
			s.transitions++
		}
	}

	if st.cullEnabled != s.cullEnabled {
		s.setCap(CULL_FACE, st.cullEnabled)
		s.cullEnabled = st.cullEnabled
	}
	if st.cullEnabled && st.cullFace != s.cullFace {
		s.f.CullFace(st.cullFace)
		s.cullFace = st.cullFace
		s.transitions++
	}
	if st.frontFace != s.frontFace {
		s.f.FrontFace(st.frontFace)
		s.frontFace = st.frontFace
		s.transitions++
	}

	if st.colorMask != s.colorMask {
		s.f.ColorMask(st.colorMask[0], st.colorMask[1], st.colorMask[2], st.colorMask[3])
		s.colorMask = st.colorMask
		s.transitions++
	}

	s.topology = st.topology
}

func (s *stateShadow) setCap(cap Enum, enabled bool) {
	if enabled {
		s.f.Enable(cap)
	} else {
		s.f.Disable(cap)
	}
	s.transitions++
}

// bindVAO binds a vertex array if it differs from the bound one.
func (s *stateShadow) bindVAO(vao VertexArray) {
	if !s.alwaysEmit && s.vao == vao {
		return
	}
	s.f.BindVertexArray(vao)
	s.vao = vao
	s.transitions++
}

// bindTextureUnit binds a texture to a unit if the unit holds another one.
func (s *stateShadow) bindTextureUnit(unit uint32, target Enum, tex TextureID) {
	if unit >= maxTextureUnits {
		return
	}
	if !s.alwaysEmit && s.textureUnits[unit] == tex {
		return
	}
	s.f.ActiveTexture(unit)
	s.f.BindTexture(target, tex)
	s.textureUnits[unit] = tex
	s.transitions += 2
}

// bindSamplerUnit binds a sampler object to a unit.
func (s *stateShadow) bindSamplerUnit(unit uint32, sampler SamplerID) {
	if unit >= maxTextureUnits {
		return
	}
	if !s.alwaysEmit && s.samplerUnits[unit] == sampler {
		return
	}
	s.f.BindSampler(unit, sampler)
	s.samplerUnits[unit] = sampler
	s.transitions++
}

// bindUBORange binds a uniform buffer range to an indexed binding point.
// Dynamic per-draw offsets flow through here; those rebinds are counted as
// draw parameters, not state transitions, since they are proportional to
// draw count by construction.
func (s *stateShadow) bindUBORange(index uint32, buf BufferID, offset, size int, perDraw bool) {
	if index >= maxUBOBindings {
		return
	}
	r := uboRange{buf: buf, offset: offset, size: size}
	if !s.alwaysEmit && s.uboRanges[index] == r {
		return
	}
	s.f.BindBufferRange(index, buf, offset, size)
	s.uboRanges[index] = r
	if !perDraw {
		s.transitions++
	}
}

// validateAgainstDriver cross-checks a handful of cheap-to-query values
// against the driver and logs divergence. Never called in release paths.
func (s *stateShadow) validateAgainstDriver() {
	if got := Program(s.f.GetInteger(CURRENT_PROGRAM)); got != s.program {
		log.Printf("[GLBackend] shadow divergence: program shadow=%d driver=%d", s.program, got)
	}
	if got := s.f.IsEnabled(DEPTH_TEST); got != s.depthTest {
		log.Printf("[GLBackend] shadow divergence: depth test shadow=%v driver=%v", s.depthTest, got)
	}
	if got := s.f.GetBoolean(DEPTH_WRITEMASK); got != s.depthWrite {
		log.Printf("[GLBackend] shadow divergence: depth mask shadow=%v driver=%v", s.depthWrite, got)
	}
	if got := s.f.IsEnabled(BLEND); got != s.blendEnabled {
		log.Printf("[GLBackend] shadow divergence: blend shadow=%v driver=%v", s.blendEnabled, got)
	}
	if s.depthTest {
		if got := Enum(s.f.GetInteger(DEPTH_FUNC)); got != s.depthFunc {
			log.Printf("[GLBackend] shadow divergence: depth func shadow=0x%x driver=0x%x", s.depthFunc, got)
		}
	}
	if s.cullEnabled {
		if got := Enum(s.f.GetInteger(CULL_FACE_MODE)); got != s.cullFace {
			log.Printf("[GLBackend] shadow divergence: cull face shadow=0x%x driver=0x%x", s.cullFace, got)
		}
	}
}

func compareEnum(c gal.CompareFunction) Enum {
	switch c {
	case gal.CompareFunctionNever:
		return NEVER
	case gal.CompareFunctionLess:
		return LESS
	case gal.CompareFunctionEqual:
		return EQUAL
	case gal.CompareFunctionLessEqual:
		return LEQUAL
	case gal.CompareFunctionGreater:
		return GREATER
	case gal.CompareFunctionNotEqual:
		return NOTEQUAL
	case gal.CompareFunctionGreaterEqual:
		return GEQUAL
	case gal.CompareFunctionAlways:
		return ALWAYS
	default:
		return LESS
	}
}

func frontFaceEnum(ff gal.FrontFace) Enum {
	if ff == gal.FrontFaceCW {
		return CW
	}
	return CCW
}

func blendFactorEnum(f gal.BlendFactor) Enum {
	switch f {
	case gal.BlendFactorZero:
		return ZERO
	case gal.BlendFactorOne:
		return ONE
	case gal.BlendFactorSrcAlpha:
		return SRC_ALPHA
	case gal.BlendFactorOneMinusSrcAlpha:
		return ONE_MINUS_SRC_ALPHA
	case gal.BlendFactorDstAlpha:
		return DST_ALPHA
	case gal.BlendFactorOneMinusDstAlpha:
		return ONE_MINUS_DST_ALPHA
	default:
		return ONE
	}
}

func blendOpEnum(op gal.BlendOperation) Enum {
	switch op {
	case gal.BlendOperationSubtract:
		return FUNC_SUBTRACT
	case gal.BlendOperationReverseSubtract:
		return FUNC_REVERSE_SUBTRACT
	default:
		return FUNC_ADD
	}
}
