package shader

import (
	"strconv"
	"strings"
)

// wgslLayout is the size and alignment of a type in host-shareable memory.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type wgslLayout struct {
	size  uint64
	align uint64
}

// stride is the distance between consecutive array elements of the type.
func (l wgslLayout) stride() uint64 {
	return alignTo(l.align, l.size)
}

var wgslScalarLayouts = map[string]wgslLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},
}

// wgslShorthandSuffix maps the suffix of alias types such as vec3f or mat4x4h to
// their component type.
var wgslShorthandSuffix = map[byte]string{
	'f': "f32",
	'i': "i32",
	'u': "u32",
	'h': "f16",
}

// alignTo rounds value up to a multiple of alignment, a power of two.
func alignTo(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// builtinLayout computes the layout of a scalar, vector, matrix or atomic type.
//
// Parameters:
//   - typeName: a WGSL type such as "u32", "vec3<f32>", "vec4f" or "mat4x4<f32>"
//
// Returns:
//   - wgslLayout: the layout
//   - bool: false if typeName is not a built-in numeric type
func builtinLayout(typeName string) (wgslLayout, bool) {
	base, param := splitTypeParams(typeName)
	if param == "" && len(base) > 4 && (strings.HasPrefix(base, "vec") || strings.HasPrefix(base, "mat")) {
		if scalar, ok := wgslShorthandSuffix[base[len(base)-1]]; ok {
			base, param = base[:len(base)-1], scalar
		}
	}

	if param == "" {
		l, ok := wgslScalarLayouts[base]
		return l, ok
	}
	if base == "atomic" {
		return builtinLayout(param)
	}

	scalar, ok := wgslScalarLayouts[param]
	if !ok {
		return wgslLayout{}, false
	}
	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		n, ok := dimension(base[3])
		if !ok {
			return wgslLayout{}, false
		}
		return vectorLayout(scalar, n), true
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols, okC := dimension(base[3])
		rows, okR := dimension(base[5])
		if !okC || !okR {
			return wgslLayout{}, false
		}
		column := vectorLayout(scalar, rows)
		return wgslLayout{cols * column.stride(), column.align}, true
	}
	return wgslLayout{}, false
}

// vectorLayout lays out an n-component vector. vec3 aligns like vec4.
func vectorLayout(scalar wgslLayout, n uint64) wgslLayout {
	align := scalar.size * 2
	if n > 2 {
		align = scalar.size * 4
	}
	return wgslLayout{scalar.size * n, align}
}

func dimension(c byte) (uint64, bool) {
	n := uint64(c - '0')
	return n, n >= 2 && n <= 4
}

// arrayElement splits array<T, N> into T and N. count is 0 for a runtime-sized array.
func arrayElement(typeName string) (elem string, count uint64, ok bool) {
	base, params := splitTypeParams(typeName)
	if base != "array" || params == "" {
		return "", 0, false
	}
	parts := splitTopLevel(params)
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return elem, 0, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || count == 0 {
		return "", 0, false
	}
	return elem, count, true
}

// isRuntimeArray reports whether typeName is array<T> without an element count.
func isRuntimeArray(typeName string) bool {
	_, count, ok := arrayElement(typeName)
	return ok && count == 0
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without
// parameters return an empty params string.
func splitTypeParams(typeName string) (base, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return strings.TrimSpace(typeName), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(after), ">"))
}

// splitTopLevel splits s at commas outside angle brackets, so "array<T, 4>, u32"
// yields two parts.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
