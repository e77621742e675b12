package shader

import "log/slog"

// ProgramBuilderOption is a functional option used to configure a Program before it is compiled.
type ProgramBuilderOption func(*program)

// WithVertexEntryPoint sets the vertex stage function name. Defaults to DefaultVertexEntryPoint.
//
// Parameters:
//   - name: the vertex entry point
//
// Returns:
//   - ProgramBuilderOption: a function that sets the vertex entry point
func WithVertexEntryPoint(name string) ProgramBuilderOption {
	return func(p *program) {
		p.vertexEntryPoint = name
	}
}

// WithFragmentEntryPoint sets the fragment stage function name. Defaults to DefaultFragmentEntryPoint.
//
// Parameters:
//   - name: the fragment entry point
//
// Returns:
//   - ProgramBuilderOption: a function that sets the fragment entry point
func WithFragmentEntryPoint(name string) ProgramBuilderOption {
	return func(p *program) {
		p.fragmentEntryPoint = name
	}
}

// WithLogger routes the compilation log to the given logger instead of the shared one.
//
// Parameters:
//   - logger: the destination logger
//
// Returns:
//   - ProgramBuilderOption: a function that sets the compilation logger
func WithLogger(logger *slog.Logger) ProgramBuilderOption {
	return func(p *program) {
		p.logger = logger
	}
}
