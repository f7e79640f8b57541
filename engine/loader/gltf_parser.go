package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errOutOfRange         = errors.New("index out of range")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF or GLB document with all of its buffers resident and decodes
// accessors into the geometry the ray tracer needs.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file, choosing the format by extension or by the
	// GLB magic.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if reading, decoding or buffer resolution fails
	Parse(path string) error

	// ParseReader parses a document from a stream. External buffer URIs resolve against
	// the working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory external URIs resolve against.
	BaseDir() string

	// ReadPositions decodes a VEC3 accessor into positions.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []mgl32.Vec3: one vector per accessor element
	//   - error: error if the accessor is not a VEC3 or its data is out of bounds
	ReadPositions(accessorIndex int) ([]mgl32.Vec3, error)

	// ReadIndices decodes a SCALAR unsigned accessor into 32-bit indices.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the widened indices
	//   - error: error if the accessor is not an unsigned scalar or its data is out of bounds
	ReadIndices(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p.baseDir = filepath.Dir(path)

	if strings.EqualFold(filepath.Ext(path), ".glb") || sniffGLB(data) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	p.baseDir = "."

	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

// parseGLTF decodes a JSON document and loads every buffer it references.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w (got %q)", errInvalidGLTFVersion, doc.Asset.Version)
	}
	if len(doc.ExtensionsRequired) > 0 {
		return fmt.Errorf("unsupported required extensions: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}

	if err := p.loadBuffers(&doc); err != nil {
		return err
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB container into its JSON and BIN chunks. The BIN chunk backs the
// first buffer when that buffer has no URI.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < gltfGLBHeaderSize {
		return fmt.Errorf("GLB file too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != gltfGLBVersion {
		return errInvalidGLBVersion
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) {
		return fmt.Errorf("GLB declares %d bytes, have %d: %w", total, len(data), errBufferSizeMismatch)
	}

	var jsonChunk []byte
	p.glbBinaryChunk = nil
	for off := gltfGLBHeaderSize; off+gltfGLBChunkHeader <= total; {
		length := int(binary.LittleEndian.Uint32(data[off : off+4]))
		kind := binary.LittleEndian.Uint32(data[off+4 : off+8])
		start := off + gltfGLBChunkHeader
		end := start + length
		if end > total {
			return fmt.Errorf("GLB chunk at offset %d exceeds file length: %w", off, errBufferSizeMismatch)
		}

		switch kind {
		case gltfGLBChunkJSON:
			if jsonChunk == nil {
				jsonChunk = data[start:end]
			}
		case gltfGLBChunkBIN:
			if p.glbBinaryChunk == nil {
				p.glbBinaryChunk = data[start:end]
			}
		}
		off = end
	}
	if jsonChunk == nil {
		return errMissingJSONChunk
	}

	return p.parseGLTF(jsonChunk)
}

// loadBuffers resolves each buffer's bytes from the GLB chunk, a data URI, or a file.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		var data []byte
		var err error
		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d: %w: missing uri", i, errInvalidBufferURI)
		case strings.HasPrefix(buf.URI, "data:"):
			data, _, err = gltfDecodeDataURI(buf.URI)
		default:
			data, err = os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(buf.URI)))
		}
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}

		// The GLB BIN chunk may carry up to 3 bytes of padding.
		if len(data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w: declared %d bytes, have %d", i, errBufferSizeMismatch, buf.ByteLength, len(data))
		}
		buf.Data = data[:buf.ByteLength]
	}
	return nil
}

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and its MIME type.
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	header, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URI", errInvalidBufferURI)
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: data URI is not base64", errInvalidBufferURI)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}

// accessorView describes where the elements of an accessor live. data is nil for an
// accessor without a bufferView, whose elements are all zero.
type accessorView struct {
	accessor *gltfAccessor
	data     []byte
	stride   int
	elemSize int
	compSize int
}

// element returns the bytes of element i, or nil for a zero-filled accessor.
func (v accessorView) element(i int) []byte {
	if v.data == nil {
		return nil
	}
	start := i * v.stride
	return v.data[start : start+v.elemSize]
}

// view validates an accessor against its bufferView and returns a strided view of it.
func (p *gltfParserImpl) view(accessorIndex int, accessorType string) (accessorView, error) {
	doc := p.document
	if doc == nil {
		return accessorView{}, errors.New("no document loaded")
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return accessorView{}, fmt.Errorf("accessor %d: %w", accessorIndex, errOutOfRange)
	}

	acc := &doc.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return accessorView{}, fmt.Errorf("accessor %d: sparse accessors are not supported", accessorIndex)
	}
	if acc.Type != accessorType {
		return accessorView{}, fmt.Errorf("accessor %d: expected %s, got %s", accessorIndex, accessorType, acc.Type)
	}

	compSize := gltfComponentTypeSize(acc.ComponentType)
	if compSize == 0 {
		return accessorView{}, fmt.Errorf("accessor %d: unknown component type %d", accessorIndex, acc.ComponentType)
	}
	v := accessorView{
		accessor: acc,
		compSize: compSize,
		elemSize: compSize * gltfAccessorTypeComponentCount(acc.Type),
	}
	if acc.BufferView == nil || acc.Count == 0 {
		return v, nil
	}

	bvIndex := *acc.BufferView
	if bvIndex < 0 || bvIndex >= len(doc.BufferViews) {
		return accessorView{}, fmt.Errorf("accessor %d: bufferView %d: %w", accessorIndex, bvIndex, errOutOfRange)
	}
	bv := &doc.BufferViews[bvIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return accessorView{}, fmt.Errorf("bufferView %d: buffer %d: %w", bvIndex, bv.Buffer, errOutOfRange)
	}
	buf := doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(buf) {
		return accessorView{}, fmt.Errorf("bufferView %d: %w: offset=%d length=%d buffer=%d", bvIndex, errBufferSizeMismatch, bv.ByteOffset, bv.ByteLength, len(buf))
	}

	v.stride = v.elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		v.stride = *bv.ByteStride
	}
	span := acc.ByteOffset + (acc.Count-1)*v.stride + v.elemSize
	if acc.ByteOffset < 0 || span > bv.ByteLength {
		return accessorView{}, fmt.Errorf("accessor %d: %w: needs %d bytes, bufferView %d has %d", accessorIndex, errBufferSizeMismatch, span, bvIndex, bv.ByteLength)
	}

	start := bv.ByteOffset + acc.ByteOffset
	v.data = buf[start : bv.ByteOffset+bv.ByteLength]
	return v, nil
}

func (p *gltfParserImpl) ReadPositions(accessorIndex int) ([]mgl32.Vec3, error) {
	v, err := p.view(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}

	out := make([]mgl32.Vec3, v.accessor.Count)
	for i := range out {
		elem := v.element(i)
		if elem == nil {
			continue
		}
		for c := range 3 {
			out[i][c] = gltfReadComponent(elem[c*v.compSize:], v.accessor.ComponentType, v.accessor.Normalized)
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	v, err := p.view(accessorIndex, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, v.accessor.Count)
	for i := range out {
		elem := v.element(i)
		if elem == nil {
			continue
		}
		switch v.accessor.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(elem[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(elem))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(elem)
		default:
			return nil, fmt.Errorf("accessor %d: unsupported index component type %d", accessorIndex, v.accessor.ComponentType)
		}
	}
	return out, nil
}

// gltfReadComponent converts one component to float32, applying the normalization rules
// for integer types when normalized is set.
func gltfReadComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeByte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case gltfComponentTypeUnsignedByte:
		v := float32(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltfComponentTypeShort:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case gltfComponentTypeUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltfComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// gltfComponentTypeSize returns the byte size of a component type, or 0 if unknown.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}

// sniffGLB reports whether data starts with the GLB magic.
func sniffGLB(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte("glTF"))
}
