package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCommentsKeepsOffsets(t *testing.T) {
	src := "a // line\n/* block\nstill */ b"
	cleaned := stripComments(src)
	assert.Len(t, cleaned, len(src))
	assert.NotContains(t, cleaned, "line")
	assert.NotContains(t, cleaned, "still")

	line, col := lineColumn(cleaned, len(src)-1)
	assert.Equal(t, 3, line)
	assert.Equal(t, 10, col)
}

func TestStripNestedBlockComments(t *testing.T) {
	cleaned := stripComments("x /* a /* b */ c */ y")
	assert.Equal(t, "x", cleaned[:1])
	assert.Equal(t, "y", cleaned[len(cleaned)-1:])
	assert.NotContains(t, cleaned, "c")
}

func TestReflectInlineVertexInputs(t *testing.T) {
	src := `
@vertex
fn vertex_main(@location(1) color: vec4f, @builtin(vertex_index) idx: u32, @location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}
`
	inputs, ok := reflectVertexInputs(stripComments(src), "vertex_main")
	require.True(t, ok)
	assert.Equal(t, []VertexInput{
		{Name: "pos", Location: 0, Format: wgpu.VertexFormatFloat32x3},
		{Name: "color", Location: 1, Format: wgpu.VertexFormatFloat32x4},
	}, inputs)
}

func TestReflectEntryPointsSkipsComments(t *testing.T) {
	src := "// @vertex fn hidden() {}\n@vertex fn shown() {}\n"
	eps := reflectEntryPoints(stripComments(src), vertexEntryRegex)
	require.Len(t, eps, 1)
	assert.Equal(t, "shown", eps[0].name)
	assert.Equal(t, 2, eps[0].line)
	assert.Equal(t, 12, eps[0].column)
}

func TestFunctionParamsMissing(t *testing.T) {
	_, ok := functionParams("fn other() {}", "vertex_main")
	assert.False(t, ok)
}
