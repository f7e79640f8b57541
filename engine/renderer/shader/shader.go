package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

var stageVisibility = map[ShaderType]wgpu.ShaderStage{
	ShaderTypeCompute:  wgpu.ShaderStageCompute,
	ShaderTypeVertex:   wgpu.ShaderStageVertex,
	ShaderTypeFragment: wgpu.ShaderStageFragment,
}

// UniformField is one member of a uniform struct, placed by the WGSL alignment rules.
type UniformField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// UniformBlock is a var<uniform> binding whose type is a struct declared in the shader.
type UniformBlock struct {
	Group    int
	Binding  int
	VarName  string
	TypeName string
	Size     uint64
	Fields   []UniformField
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	uniformBlocks              []UniformBlock
	workGroupSize              [3]uint32
	entryPoint                 string
	declarations               []Annotation
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes the shader's
// unique key, source code, entry point, bind group layout descriptors, uniform struct layouts,
// workgroup size, and pre-processor declarations needed for pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a specific group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not set
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// UniformBlocks returns the var<uniform> struct bindings of the shader with the byte
	// offset of every struct member, sorted by group and binding.
	//
	// Returns:
	//   - []UniformBlock: the parsed uniform blocks
	UniformBlocks() []UniformBlock

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	// Returns [0, 0, 0] for non-compute shaders and [1, 1, 1] as the default when
	// @workgroup_size is not specified.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// ShaderType returns the type of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Declarations returns the @oxy:group annotations parsed from the shader source.
	//
	// Returns:
	//   - []Annotation: the binding declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader creates a new Shader by reading WGSL source from disk.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the type of shader (vertex, fragment or compute)
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file cannot be read or pre-processed
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader: %s must have a source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data))
}

// NewShaderFromSource creates a new Shader from WGSL source held in memory, typically a
// string embedded with go:embed.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the type of shader (vertex, fragment or compute)
//   - source: the raw WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or no entry point of the given type exists
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:                        key,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
	}
	if err := s.parseSource(source); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) UniformBlocks() []UniformBlock {
	return s.uniformBlocks
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

// parseSource expands the @oxy: annotations, then scans the result for the entry point
// of the shader's stage, its resource bindings and its uniform struct layouts. The
// workgroup size is only read for compute shaders.
func (s *shader) parseSource(raw string) error {
	pp := NewPreProcessor()
	source, err := pp.Process(raw)
	if err != nil {
		return fmt.Errorf("shader: failed to pre-process %q: %w", s.key, err)
	}
	s.source = source
	s.declarations = pp.Declarations()

	m := scanModule(source)
	if s.entryPoint = m.entryPoint(s.shaderType); s.entryPoint == "" {
		return fmt.Errorf("shader: %q has no entry point for its shader type", s.key)
	}
	if s.shaderType == ShaderTypeCompute {
		s.workGroupSize = m.workgroupSize()
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = m.bindGroupLayouts(stageVisibility[s.shaderType])
	s.uniformBlocks = m.uniformBlocks()
	return nil
}
