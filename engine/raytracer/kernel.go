package raytracer

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// KernelKey is the shader key of the ray tracing kernel.
const KernelKey = "raytrace"

//go:embed assets/raytrace.wgsl
var kernelSource string

// KernelSource returns the built-in ray tracing kernel source.
func KernelSource() string {
	return kernelSource
}

// LoadKernelShader returns the compute shader of the ray tracing kernel. An empty path
// selects the built-in kernel; any other path is read from disk and must use the same
// parameter names.
//
// Parameters:
//   - path: the WGSL file to load, or "" for the built-in kernel
//
// Returns:
//   - shader.Shader: the parsed compute shader
//   - error: an error if the file cannot be read or parsed
func LoadKernelShader(path string) (shader.Shader, error) {
	var (
		s   shader.Shader
		err error
	)
	if path == "" {
		s, err = shader.NewShaderFromSource(KernelKey, shader.ShaderTypeCompute, kernelSource)
	} else {
		s, err = shader.NewShader(KernelKey, shader.ShaderTypeCompute, path)
	}
	if err != nil {
		return nil, fmt.Errorf("raytracer: kernel: %w", err)
	}
	if ws := s.WorkgroupSize(); ws[0] != ThreadTile || ws[1] != ThreadTile || ws[2] != 1 {
		return nil, fmt.Errorf("raytracer: kernel: workgroup size %v, want [%d %d 1]", ws, ThreadTile, ThreadTile)
	}
	return s, nil
}
