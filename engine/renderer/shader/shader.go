package shader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/wgsl"
)

const (
	// DefaultVertexEntryPoint is the vertex stage function a Program is compiled against by default.
	DefaultVertexEntryPoint = "vertex_main"

	// DefaultFragmentEntryPoint is the fragment stage function a Program is compiled against by default.
	DefaultFragmentEntryPoint = "fragment_main"
)

// VertexInput is a vertex stage input reflected from the shader source.
type VertexInput struct {
	Name     string
	Location uint32
	Format   wgpu.VertexFormat
}

// program is the implementation of the Program interface.
type program struct {
	key                string
	source             string
	vertexEntryPoint   string
	fragmentEntryPoint string
	logger             *slog.Logger

	module       backend.ShaderModule
	vertexInputs []VertexInput
	diagnostics  Diagnostics
}

// Program is a WGSL module compiled on a device, together with the diagnostics the compilation produced.
// A Program whose diagnostics contain an error has no module and must not be used to build a pipeline.
type Program interface {
	// Key retrieves the unique identifier of the program, also used as the module's debug label.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source retrieves the WGSL source the program was compiled from.
	//
	// Returns:
	//   - string: the WGSL source code
	Source() string

	// Module returns the compiled shader module, or nil if compilation failed.
	//
	// Returns:
	//   - backend.ShaderModule: the compiled module
	Module() backend.ShaderModule

	// Compiled reports whether the program has a module and no error diagnostics.
	//
	// Returns:
	//   - bool: true if the program can be used for pipeline construction
	Compiled() bool

	// VertexEntryPoint returns the vertex stage function name.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the fragment stage function name.
	FragmentEntryPoint() string

	// VertexInputs returns the inputs the vertex entry point consumes, ordered by location.
	// The slice is empty if the inputs could not be reflected from the source.
	//
	// Returns:
	//   - []VertexInput: the reflected vertex inputs
	VertexInputs() []VertexInput

	// Diagnostics returns every message produced while compiling, in order.
	//
	// Returns:
	//   - Diagnostics: the compilation messages
	Diagnostics() Diagnostics

	// Release releases the compiled module. Safe to call on a failed program.
	Release()
}

var _ Program = &program{}

// Compile validates WGSL source and compiles it on the device. Messages are gathered from the
// WGSL front end, from entry point reflection and from the device compiler, and are logged in
// that order before Compile returns. The device is only asked to compile sources the front end accepts.
//
// Parameters:
//   - dev: the device to compile on
//   - key: a unique identifier for the program
//   - source: the WGSL source code
//   - options: ProgramBuilderOption functions applied before compiling
//
// Returns:
//   - Program: the program; check Compiled or the returned Diagnostics before using it
//   - Diagnostics: the messages produced, in order
func Compile(dev backend.Device, key, source string, options ...ProgramBuilderOption) (Program, Diagnostics) {
	p := &program{
		key:                key,
		source:             source,
		vertexEntryPoint:   DefaultVertexEntryPoint,
		fragmentEntryPoint: DefaultFragmentEntryPoint,
	}
	for _, opt := range options {
		opt(p)
	}
	logger := common.Coalesce(p.logger, common.Logger())

	p.diagnostics = append(p.diagnostics, p.frontEnd()...)
	p.diagnostics = append(p.diagnostics, p.reflect()...)

	if p.diagnostics.OK() {
		switch {
		case dev == nil:
			p.diagnostics = append(p.diagnostics, Diagnostic{Severity: SeverityError, Message: "no device to compile on"})
		default:
			module, err := dev.CreateShaderModule(key, source)
			if err != nil {
				p.diagnostics = append(p.diagnostics, diagnosticFromError(err))
			} else {
				p.module = module
			}
		}
	}

	if p.diagnostics.OK() && len(p.vertexInputs) > 0 {
		p.diagnostics = append(p.diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s consumes %s", p.vertexEntryPoint, describeInputs(p.vertexInputs)),
		})
	}

	p.diagnostics.Log(logger.With("shader", key))
	return p, p.diagnostics
}

// frontEnd parses and lowers the source with the naga WGSL front end, keeping its warnings.
func (p *program) frontEnd() Diagnostics {
	ast, err := naga.Parse(p.source)
	if err != nil {
		return Diagnostics{diagnosticFromError(err)}
	}
	res, err := wgsl.LowerWithWarnings(ast, p.source)
	if err != nil {
		return Diagnostics{diagnosticFromError(err)}
	}
	var diags Diagnostics
	for _, w := range res.Warnings {
		diags = append(diags, Diagnostic{
			Line:     int(w.Span.Start.Line),
			Column:   int(w.Span.Start.Column),
			Severity: SeverityWarning,
			Message:  w.Message,
		})
	}
	return diags
}

// reflect checks the expected entry points exist and resolves the vertex inputs.
func (p *program) reflect() Diagnostics {
	var diags Diagnostics
	cleaned := stripComments(p.source)

	check := func(stage, want string, found []entryPoint) {
		present := false
		for _, ep := range found {
			if ep.name == want {
				present = true
				continue
			}
			diags = append(diags, Diagnostic{
				Line:     ep.line,
				Column:   ep.column,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s entry point %q is not used by the pipeline", stage, ep.name),
			})
		}
		if !present {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("%s entry point %q not found", stage, want),
			})
		}
	}
	check("vertex", p.vertexEntryPoint, reflectEntryPoints(cleaned, vertexEntryRegex))
	check("fragment", p.fragmentEntryPoint, reflectEntryPoints(cleaned, fragmentEntryRegex))

	if inputs, ok := reflectVertexInputs(cleaned, p.vertexEntryPoint); ok {
		p.vertexInputs = inputs
	}
	return diags
}

func describeInputs(inputs []VertexInput) string {
	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, fmt.Sprintf("%s@%d", in.Name, in.Location))
	}
	return fmt.Sprintf("%d vertex inputs (%s)", len(inputs), strings.Join(parts, ", "))
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) Module() backend.ShaderModule {
	return p.module
}

func (p *program) Compiled() bool {
	return p.module != nil && p.diagnostics.OK()
}

func (p *program) VertexEntryPoint() string {
	return p.vertexEntryPoint
}

func (p *program) FragmentEntryPoint() string {
	return p.fragmentEntryPoint
}

func (p *program) VertexInputs() []VertexInput {
	return p.vertexInputs
}

func (p *program) Diagnostics() Diagnostics {
	return p.diagnostics
}

func (p *program) Release() {
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
