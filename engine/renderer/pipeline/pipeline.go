// Package pipeline pairs parsed shaders with the GPU pipeline object compiled from them.
// The ray tracer uses one compute pipeline per kernel; presenting to a window uses a
// single full-screen render pipeline.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute runs a single compute shader.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender draws with a vertex and a fragment shader.
	PipelineTypeRender
)

type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	shaders map[shader.ShaderType]shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	primitive wgpu.PrimitiveState
	blend     *wgpu.BlendState
}

// Pipeline holds the shaders of one GPU pipeline, the fixed-function state a render
// pipeline is created with, and the compiled pipeline once a backend has registered it.
type Pipeline interface {
	// Type returns whether this is a compute or a render pipeline.
	Type() PipelineType

	// PipelineKey returns the unique key the pipeline is cached under.
	PipelineKey() string

	// Shader retrieves the shader of the given stage.
	//
	// Parameters:
	//   - shaderType: the stage (vertex, fragment or compute)
	//
	// Returns:
	//   - shader.Shader: the shader, or nil if the stage is not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the compiled *wgpu.RenderPipeline or *wgpu.ComputePipeline matching
	// Type, nil until registered. Callers type assert the result.
	Pipeline() any

	// PrimitiveState returns the primitive assembly state of a render pipeline.
	PrimitiveState() wgpu.PrimitiveState

	// ColorTarget describes the single color attachment of a render pipeline.
	//
	// Parameters:
	//   - format: the attachment format, usually the surface format
	//
	// Returns:
	//   - wgpu.ColorTargetState: the target, blending only when a blend state is set
	ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState

	// SetRenderPipeline stores the compiled render pipeline.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the compiled compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release frees the compiled pipeline. Safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unregistered pipeline. Render pipelines default to a
// triangle list with counter-clockwise front faces, no culling and no blending.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: compute or render
//   - opts: functional options setting shaders and render state
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		shaders:      make(map[shader.ShaderType]shader.Shader, 2),
		primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	return p.shaders[shaderType]
}

func (p *pipeline) Pipeline() any {
	if p.pipelineType == PipelineTypeRender {
		return p.renderPipeline
	}
	return p.computePipeline
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	return p.primitive
}

func (p *pipeline) ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format:    format,
		Blend:     p.blend,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
}
