package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor converts glTF metallic-roughness materials into ray tracer
// materials.
type gltfMaterialExtractor interface {
	// ExtractMaterial converts a single material by index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - material.Material: the converted material
	//   - error: error if the index is out of range
	ExtractMaterial(materialIndex int) (material.Material, error)

	// ExtractAllMaterials converts every material in the document.
	//
	// Returns:
	//   - []material.Material: the converted materials, indexed like the document
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]material.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material %d: %w", materialIndex, errOutOfRange)
	}

	return gltfConvertMaterial(&doc.Materials[materialIndex], materialIndex), nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}

	materials := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		materials[i] = gltfConvertMaterial(&doc.Materials[i], i)
	}
	return materials, nil
}

// gltfConvertMaterial maps the metallic-roughness factors onto albedo, specular,
// smoothness and emission. Absent factors take the glTF defaults: white base color,
// metallic 1 and roughness 1.
func gltfConvertMaterial(m *gltfMaterial, index int) material.Material {
	baseColor := [4]float32{1, 1, 1, 1}
	metallic, roughness := float32(1), float32(1)
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			baseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			metallic = common.Clamp01(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			roughness = common.Clamp01(*pbr.RoughnessFactor)
		}
	}

	albedo := material.Color{R: baseColor[0], G: baseColor[1], B: baseColor[2], A: baseColor[3]}

	emission := material.Black
	if m.EmissiveFactor != nil {
		emission = material.ColorFromRGB(*m.EmissiveFactor)
	}
	if ext := m.Extensions; ext != nil && ext.EmissiveStrength != nil && ext.EmissiveStrength.EmissiveStrength != nil {
		emission = emission.Scale(*ext.EmissiveStrength.EmissiveStrength)
	}

	name := m.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", index)
	}

	return material.NewMaterial(
		material.WithName(name),
		material.WithAlbedo(albedo),
		material.WithSpecular(albedo.Scale(metallic)),
		material.WithEmission(emission),
		material.WithSmoothness(1-roughness),
	)
}
