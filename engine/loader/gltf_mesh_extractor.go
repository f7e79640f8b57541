package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor converts glTF mesh primitives into indexed triangle lists.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every primitive of a single glTF mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []Primitive: one entry per glTF primitive, in document order
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]Primitive, error)

	// ExtractAllMeshes extracts the primitives of every mesh in the document, flattened in
	// document order.
	//
	// Returns:
	//   - []Primitive: all primitives
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]Primitive, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]Primitive, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh %d: %w", meshIndex, errOutOfRange)
	}

	m := &doc.Meshes[meshIndex]
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	prims := make([]Primitive, 0, len(m.Primitives))
	for i := range m.Primitives {
		primName := name
		if len(m.Primitives) > 1 {
			primName = fmt.Sprintf("%s_%d", name, i)
		}
		prim, err := e.extractPrimitive(&m.Primitives[i], primName)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, i, err)
		}
		prims = append(prims, prim)
	}
	return prims, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]Primitive, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}

	var all []Primitive
	for i := range doc.Meshes {
		prims, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		all = append(all, prims...)
	}
	return all, nil
}

// extractPrimitive reads POSITION and the optional index accessor of a triangle list.
// A primitive without indices is numbered sequentially.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, name string) (Primitive, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return Primitive{}, fmt.Errorf("unsupported primitive mode %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return Primitive{}, errors.New("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadPositions(posAccessor)
	if err != nil {
		return Primitive{}, fmt.Errorf("failed to read positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndices(*prim.Indices)
		if err != nil {
			return Primitive{}, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// Trailing indices that do not form a whole triangle are dropped.
	indices = indices[:len(indices)/3*3]

	out := Primitive{
		Mesh: mesh.Mesh{
			Name:     name,
			Vertices: positions,
			Indices:  indices,
		},
		MaterialIndex: -1,
	}
	if prim.Material != nil {
		out.MaterialIndex = *prim.Material
	}
	if err := out.Mesh.Validate(); err != nil {
		return Primitive{}, err
	}
	return out, nil
}
