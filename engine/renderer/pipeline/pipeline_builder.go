package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage of a render pipeline.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeVertex] = s
	}
}

// WithFragmentShader sets the fragment stage of a render pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeFragment] = s
	}
}

// WithComputeShader sets the shader of a compute pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeCompute] = s
	}
}

// WithPrimitiveState replaces the primitive assembly state of a render pipeline.
//
// Parameters:
//   - state: topology, winding and culling for the pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that applies the state to a pipeline
func WithPrimitiveState(state wgpu.PrimitiveState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.primitive = state
	}
}

// WithBlendState enables blending on the color target. A nil state disables it.
//
// Parameters:
//   - state: the color and alpha blend components
//
// Returns:
//   - PipelineBuilderOption: a function that applies the blend state to a pipeline
func WithBlendState(state *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blend = state
	}
}
