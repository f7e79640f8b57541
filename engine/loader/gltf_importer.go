package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter runs the parser and both extractors to produce a Model.
type gltfImporter interface {
	// Import loads a glTF/GLB file and extracts its primitives and materials.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if import fails
	Import(path string) (*Model, error)

	// ImportReader loads a glTF document from a reader.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*Model, error)
}

var _ gltfImporter = &gltfImporterImpl{}

func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*Model, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	m, err := imp.importFromParser(parser, gltfModelName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*Model, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}

	return imp.importFromParser(parser, "unnamed_model")
}

// importFromParser extracts a model from a parser that has already loaded a document.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, name string) (*Model, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errors.New("no document after parsing")
	}

	prims, err := newGLTFMeshExtractor(parser).ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}
	if len(prims) == 0 {
		return nil, errors.New("document contains no meshes")
	}

	materials, err := newGLTFMaterialExtractor(parser).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}
	for _, p := range prims {
		if p.MaterialIndex >= len(materials) {
			return nil, fmt.Errorf("primitive %q: material %d: %w", p.Mesh.Name, p.MaterialIndex, errOutOfRange)
		}
	}

	return &Model{
		Name:       name,
		Primitives: prims,
		Materials:  materials,
	}, nil
}

// gltfModelName derives a model name from the file name without its extension.
func gltfModelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
