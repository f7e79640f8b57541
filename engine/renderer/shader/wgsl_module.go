package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// memberRegex matches one struct member: optional attributes, name, colon, type.
	memberRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// resourceRegex captures group, binding, optional address space, name and type of
	// declarations like `@group(0) @binding(3) var<storage, read> _Spheres: array<Sphere>;`.
	resourceRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	entryPointRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}
)

type wgslMember struct {
	name     string
	typeName string
	builtin  bool
}

type wgslResource struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}

// wgslModule is the declaration-level view of one WGSL source: its structs, its resource
// bindings and its entry points. Function bodies are not parsed.
type wgslModule struct {
	source    string
	structs   map[string][]wgslMember
	resources []wgslResource

	layouts   map[string]wgslLayout
	resolving map[string]bool
}

// scanModule strips comments from source and collects its struct and resource
// declarations.
func scanModule(source string) *wgslModule {
	m := &wgslModule{
		source:    stripComments(source),
		structs:   make(map[string][]wgslMember),
		layouts:   make(map[string]wgslLayout),
		resolving: make(map[string]bool),
	}

	for _, match := range structBlockRegex.FindAllStringSubmatch(m.source, -1) {
		var members []wgslMember
		for _, decl := range splitTopLevel(match[2]) {
			decl = strings.TrimSpace(decl)
			fm := memberRegex.FindStringSubmatch(decl)
			if fm == nil {
				continue
			}
			members = append(members, wgslMember{
				name:     fm[1],
				typeName: strings.TrimSpace(fm[2]),
				builtin:  strings.Contains(decl, "@builtin"),
			})
		}
		m.structs[match[1]] = members
	}

	for _, match := range resourceRegex.FindAllStringSubmatch(m.source, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		m.resources = append(m.resources, wgslResource{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(match[3]),
			name:         match[4],
			typeName:     strings.TrimSpace(match[5]),
		})
	}
	slices.SortFunc(m.resources, func(a, b wgslResource) int {
		if a.group != b.group {
			return a.group - b.group
		}
		return a.binding - b.binding
	})
	return m
}

// entryPoint returns the name of the first function marked with the stage attribute of
// shaderType, or "" if there is none.
func (m *wgslModule) entryPoint(shaderType ShaderType) string {
	re, ok := entryPointRegexes[shaderType]
	if !ok {
		return ""
	}
	if match := re.FindStringSubmatch(m.source); match != nil {
		return match[1]
	}
	return ""
}

// workgroupSize returns the @workgroup_size dimensions. Omitted dimensions and a missing
// attribute default to 1.
func (m *wgslModule) workgroupSize() [3]uint32 {
	size := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(m.source)
	if match == nil {
		return size
	}
	for i, dim := range match[1:] {
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// layoutOf resolves the layout of any host-shareable type. A runtime-sized array resolves
// to one element stride, the smallest useful binding.
func (m *wgslModule) layoutOf(typeName string) (wgslLayout, bool) {
	if l, ok := builtinLayout(typeName); ok {
		return l, true
	}
	if l, ok := m.layouts[typeName]; ok {
		return l, true
	}
	if _, ok := m.structs[typeName]; ok {
		_, l, ok := m.structLayout(typeName)
		return l, ok
	}
	if elem, count, ok := arrayElement(typeName); ok {
		el, ok := m.layoutOf(elem)
		if !ok {
			return wgslLayout{}, false
		}
		return wgslLayout{max(count, 1) * el.stride(), el.align}, true
	}
	return wgslLayout{}, false
}

// structLayout places each member at the next offset aligned for its type and rounds
// the total up to the largest member alignment. A trailing runtime-sized array adds no
// size; a struct holding only such an array is sized to one element. Builtin members are
// skipped, so the same call works for stage input and output structs.
//
// Returns:
//   - []UniformField: the sized members with their offsets, the runtime array excluded
//   - wgslLayout: the struct layout
//   - bool: false if a member type is unknown, recursive, or a runtime array not in last place
func (m *wgslModule) structLayout(name string) ([]UniformField, wgslLayout, bool) {
	members, ok := m.structs[name]
	if !ok || m.resolving[name] {
		return nil, wgslLayout{}, false
	}
	m.resolving[name] = true
	defer delete(m.resolving, name)

	fields := make([]UniformField, 0, len(members))
	offset, align := uint64(0), uint64(1)
	var tail *wgslLayout

	for i, member := range members {
		if member.builtin {
			continue
		}
		l, ok := m.layoutOf(member.typeName)
		if !ok {
			return nil, wgslLayout{}, false
		}
		align = max(align, l.align)
		if isRuntimeArray(member.typeName) {
			if i != len(members)-1 {
				return nil, wgslLayout{}, false
			}
			tail = &l
			break
		}
		offset = alignTo(l.align, offset)
		fields = append(fields, UniformField{
			Name:   member.name,
			Type:   member.typeName,
			Offset: offset,
			Size:   l.size,
		})
		offset += l.size
	}

	size := alignTo(align, offset)
	if tail != nil && size == 0 {
		size = tail.size
	}
	layout := wgslLayout{size, align}
	m.layouts[name] = layout
	return fields, layout, true
}

// bindGroupLayouts builds one layout descriptor per group, entries sorted by binding,
// each visible to the given stage. Buffer entries carry a MinBindingSize when the bound
// type resolves.
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group
//   - map[int]map[int]string: resource names keyed by group, then binding
func (m *wgslModule) bindGroupLayouts(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	layouts := make(map[int]wgpu.BindGroupLayoutDescriptor)
	names := make(map[int]map[int]string)

	for _, res := range m.resources {
		entry := res.layoutEntry(visibility)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := m.layoutOf(res.typeName); ok && l.size > 0 {
				entry.Buffer.MinBindingSize = l.size
			}
		}

		desc := layouts[res.group]
		desc.Entries = append(desc.Entries, entry)
		layouts[res.group] = desc

		if names[res.group] == nil {
			names[res.group] = make(map[int]string)
		}
		names[res.group][res.binding] = res.name
	}
	return layouts, names
}

// uniformBlocks returns every var<uniform> binding whose type is a struct declared in the
// source, with the offset of each member. Structs ending in a runtime-sized array cannot
// back a uniform and are left out.
func (m *wgslModule) uniformBlocks() []UniformBlock {
	var blocks []UniformBlock
	for _, res := range m.resources {
		if res.addressSpace != "uniform" {
			continue
		}
		members, ok := m.structs[res.typeName]
		if !ok || len(members) == 0 || isRuntimeArray(members[len(members)-1].typeName) {
			continue
		}
		fields, layout, ok := m.structLayout(res.typeName)
		if !ok {
			continue
		}
		blocks = append(blocks, UniformBlock{
			Group:    res.group,
			Binding:  res.binding,
			VarName:  res.name,
			TypeName: res.typeName,
			Size:     layout.size,
			Fields:   fields,
		})
	}
	return blocks
}

// stripComments removes // line comments and nested /* */ block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
