package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var triangle = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

// gltfFixture assembles a document with one buffer holding positions followed by
// optional uint16 indices.
type gltfFixture struct {
	positions  []mgl32.Vec3
	indices    []uint16
	materials  []map[string]any
	material   *int
	extraPrims int
}

func (f gltfFixture) bin() []byte {
	var buf bytes.Buffer
	for _, p := range f.positions {
		for _, c := range p {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(c))
		}
	}
	for _, idx := range f.indices {
		_ = binary.Write(&buf, binary.LittleEndian, idx)
	}
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// document returns the JSON document. uri is the buffer URI, empty for GLB.
func (f gltfFixture) document(uri string, byteLength int) map[string]any {
	posBytes := len(f.positions) * 12
	accessors := []map[string]any{
		{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": len(f.positions), "type": "VEC3"},
	}
	views := []map[string]any{
		{"buffer": 0, "byteOffset": 0, "byteLength": posBytes},
	}
	prim := map[string]any{"attributes": map[string]int{"POSITION": 0}}
	if len(f.indices) > 0 {
		accessors = append(accessors, map[string]any{
			"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": len(f.indices), "type": "SCALAR",
		})
		views = append(views, map[string]any{"buffer": 0, "byteOffset": posBytes, "byteLength": len(f.indices) * 2})
		prim["indices"] = 1
	}
	if f.material != nil {
		prim["material"] = *f.material
	}
	prims := []map[string]any{prim}
	for range f.extraPrims {
		prims = append(prims, prim)
	}

	buffer := map[string]any{"byteLength": byteLength}
	if uri != "" {
		buffer["uri"] = uri
	}
	doc := map[string]any{
		"asset":       map[string]any{"version": "2.0"},
		"meshes":      []map[string]any{{"name": "tri", "primitives": prims}},
		"accessors":   accessors,
		"bufferViews": views,
		"buffers":     []map[string]any{buffer},
	}
	if f.materials != nil {
		doc["materials"] = f.materials
	}
	return doc
}

// writeEmbedded writes a .gltf whose buffer is a base64 data URI.
func (f gltfFixture) writeEmbedded(t *testing.T, name string) string {
	t.Helper()
	bin := f.bin()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	data, err := json.Marshal(f.document(uri, len(bin)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// glb packs the document and buffer into a GLB container.
func (f gltfFixture) glb(t *testing.T) []byte {
	t.Helper()
	bin := f.bin()
	js, err := json.Marshal(f.document("", len(bin)))
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}

	var out bytes.Buffer
	total := uint32(gltfGLBHeaderSize + gltfGLBChunkHeader + len(js) + gltfGLBChunkHeader + len(bin))
	for _, v := range []uint32{gltfGLBMagic, gltfGLBVersion, total, uint32(len(js)), gltfGLBChunkJSON} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(js)
	for _, v := range []uint32{uint32(len(bin)), gltfGLBChunkBIN} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(bin)
	return out.Bytes()
}

func TestLoadEmbeddedGLTF(t *testing.T) {
	path := gltfFixture{positions: triangle, indices: []uint16{0, 1, 2}}.writeEmbedded(t, "tri.gltf")

	l := NewLoader(BackendTypeGLTF)
	m, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tri", m.Name)
	assert.Equal(t, path, m.Path)
	require.Len(t, m.Primitives, 1)
	assert.Equal(t, triangle, m.Primitives[0].Mesh.Vertices)
	assert.Equal(t, []uint32{0, 1, 2}, m.Primitives[0].Mesh.Indices)
	assert.Equal(t, -1, m.Primitives[0].MaterialIndex)
	assert.Nil(t, m.Material())
}

func TestLoadNonIndexedPrimitiveGetsSequentialIndices(t *testing.T) {
	path := gltfFixture{positions: append(triangle, mgl32.Vec3{1, 1, 0}, mgl32.Vec3{2, 1, 0}, mgl32.Vec3{1, 2, 0})}.writeEmbedded(t, "two.gltf")

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Primitives[0].Mesh.Indices)
}

func TestLoadGLB(t *testing.T) {
	data := gltfFixture{positions: triangle, indices: []uint16{2, 1, 0}}.glb(t)
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1, 0}, m.Primitives[0].Mesh.Indices)
	assert.Equal(t, triangle, m.Primitives[0].Mesh.Vertices)
}

func TestLoadReaderCachesByName(t *testing.T) {
	data := gltfFixture{positions: triangle, indices: []uint16{0, 1, 2}}.glb(t)
	l := NewLoader(BackendTypeGLTF)

	m, err := l.LoadReader("stream", bytes.NewReader(data), true)
	require.NoError(t, err)
	assert.Equal(t, "stream", m.Name)
	assert.Same(t, m, l.Get("stream"))

	again, err := l.LoadReader("stream", bytes.NewReader(nil), true)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Len(t, l.Models(), 1)
}

func TestLoadMaterialConversion(t *testing.T) {
	zero := 0
	path := gltfFixture{
		positions: triangle,
		indices:   []uint16{0, 1, 2},
		material:  &zero,
		materials: []map[string]any{{
			"name": "gold",
			"pbrMetallicRoughness": map[string]any{
				"baseColorFactor": []float32{1, 0.5, 0.25, 1},
				"metallicFactor":  0.5,
				"roughnessFactor": 0.25,
			},
			"emissiveFactor": []float32{1, 1, 0},
			"extensions": map[string]any{
				"KHR_materials_emissive_strength": map[string]any{"emissiveStrength": 4},
			},
		}},
	}.writeEmbedded(t, "gold.gltf")

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)

	mat := m.Material()
	require.NotNil(t, mat)
	assert.Equal(t, "gold", mat.Name())
	assert.Equal(t, [3]float32{1, 0.5, 0.25}, mat.Albedo().RGB())
	assert.Equal(t, [3]float32{0.5, 0.25, 0.125}, mat.Specular().RGB())
	assert.Equal(t, [3]float32{4, 4, 0}, mat.Emission().RGB())
	assert.InDelta(t, 0.75, mat.Smoothness(), 1e-6)
}

func TestLoadMaterialDefaults(t *testing.T) {
	zero := 0
	path := gltfFixture{
		positions: triangle,
		material:  &zero,
		materials: []map[string]any{{}},
	}.writeEmbedded(t, "plain.gltf")

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)

	mat := m.Material()
	require.NotNil(t, mat)
	assert.Equal(t, "material_0", mat.Name())
	assert.Equal(t, [3]float32{1, 1, 1}, mat.Albedo().RGB())
	assert.Equal(t, [3]float32{1, 1, 1}, mat.Specular().RGB())
	assert.Equal(t, [3]float32{0, 0, 0}, mat.Emission().RGB())
	assert.Zero(t, mat.Smoothness())
}

func TestModelMergedOffsetsIndices(t *testing.T) {
	path := gltfFixture{positions: triangle, indices: []uint16{0, 1, 2}, extraPrims: 1}.writeEmbedded(t, "pair.gltf")

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	require.Len(t, m.Primitives, 2)
	assert.Equal(t, "tri_0", m.Primitives[0].Mesh.Name)
	assert.Equal(t, "tri_1", m.Primitives[1].Mesh.Name)

	merged := m.Merged()
	assert.Equal(t, "pair", merged.Name)
	assert.Len(t, merged.Vertices, 6)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, merged.Indices)
	assert.NoError(t, merged.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.gltf")},
		{name: "unsupported extension", path: write("model.obj", "")},
		{name: "malformed json", path: write("bad.gltf", "{")},
		{name: "wrong version", path: write("v1.gltf", `{"asset":{"version":"1.0"}}`)},
		{name: "no meshes", path: write("empty.gltf", `{"asset":{"version":"2.0"}}`)},
		{name: "missing external buffer", path: write("ext.gltf", `{"asset":{"version":"2.0"},"buffers":[{"uri":"gone.bin","byteLength":4}]}`)},
		{name: "required extension", path: write("draco.gltf", `{"asset":{"version":"2.0"},"extensionsRequired":["KHR_draco_mesh_compression"]}`)},
		{
			name: "index out of range",
			path: gltfFixture{positions: triangle, indices: []uint16{0, 1, 7}}.writeEmbedded(t, "oob.gltf"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(BackendTypeGLTF).Load(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestLoadExternalBuffer(t *testing.T) {
	f := gltfFixture{positions: triangle, indices: []uint16{0, 1, 2}}
	dir := t.TempDir()
	bin := f.bin()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), bin, 0o644))
	data, err := json.Marshal(f.document("tri.bin", len(bin)))
	require.NoError(t, err)
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	assert.Equal(t, triangle, m.Merged().Vertices)
}

func TestWithModelPrepopulatesCache(t *testing.T) {
	m := &Model{Name: "cached"}
	l := NewLoader(BackendTypeGLTF, WithModel("assets/cached.glb", m))

	got, err := l.Load("assets/cached.glb")
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestReadComponentNormalization(t *testing.T) {
	assert.Equal(t, float32(1), gltfReadComponent([]byte{255}, gltfComponentTypeUnsignedByte, true))
	assert.Equal(t, float32(-1), gltfReadComponent([]byte{0x80}, gltfComponentTypeByte, true))
	assert.Equal(t, float32(200), gltfReadComponent([]byte{200}, gltfComponentTypeUnsignedByte, false))
	assert.Equal(t, float32(1), gltfReadComponent([]byte{0xff, 0xff}, gltfComponentTypeUnsignedShort, true))
}
