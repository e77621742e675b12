package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"vec2<f16>": {wgpu.VertexFormatFloat16x2, 4},
	"vec2h":     {wgpu.VertexFormatFloat16x2, 4},
	"vec4<f16>": {wgpu.VertexFormatFloat16x4, 8},
	"vec4h":     {wgpu.VertexFormatFloat16x4, 8},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field or parameter: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`@vertex\s+fn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`@fragment\s+fn\s+(\w+)`)
)

// reflectEntryPoints finds every function annotated with the stage attribute matched by re.
//
// Parameters:
//   - cleaned: WGSL source with comments blanked out
//   - re: vertexEntryRegex or fragmentEntryRegex
//
// Returns:
//   - []entryPoint: the entry points in source order
func reflectEntryPoints(cleaned string, re *regexp.Regexp) []entryPoint {
	matches := re.FindAllStringSubmatchIndex(cleaned, -1)
	out := make([]entryPoint, 0, len(matches))
	for _, m := range matches {
		line, col := lineColumn(cleaned, m[2])
		out = append(out, entryPoint{
			name:   cleaned[m[2]:m[3]],
			line:   line,
			column: col,
		})
	}
	return out
}

// reflectVertexInputs resolves the vertex inputs consumed by the named entry point.
// Inputs may be declared as @location parameters or as fields of a struct parameter.
// Inputs whose WGSL type has no vertex format mapping are skipped.
//
// Parameters:
//   - cleaned: WGSL source with comments blanked out
//   - entry: the vertex entry point name
//
// Returns:
//   - []VertexInput: the inputs ordered by location
//   - bool: false if the entry point's parameter list could not be located
func reflectVertexInputs(cleaned, entry string) ([]VertexInput, bool) {
	params, ok := functionParams(cleaned, entry)
	if !ok {
		return nil, false
	}

	structs := make(map[string]parsedStruct)
	for _, ps := range parseStructBlocks(cleaned) {
		structs[ps.name] = ps
	}

	var inputs []VertexInput
	for _, p := range parseStructFields(params) {
		if p.location >= 0 {
			if in, ok := vertexInput(p); ok {
				inputs = append(inputs, in)
			}
			continue
		}
		if ps, ok := structs[p.typeName]; ok {
			for _, f := range ps.fields {
				if f.isBuiltin || f.location < 0 {
					continue
				}
				if in, ok := vertexInput(f); ok {
					inputs = append(inputs, in)
				}
			}
		}
	}

	sortInputs(inputs)
	return inputs, true
}

func vertexInput(f parsedField) (VertexInput, bool) {
	info, ok := wgslVertexFormatMap[f.typeName]
	if !ok {
		return VertexInput{}, false
	}
	return VertexInput{
		Name:     f.name,
		Location: uint32(f.location),
		Format:   info.format,
	}, true
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses a comma separated struct body or parameter list into fields,
// extracting @location and @builtin attributes along with the name and type
//
// Parameters:
//   - body: the content between the braces of a struct or the parentheses of a function
//
// Returns:
//   - []parsedField: all fields found in the body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField

		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		field.location = -1
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
