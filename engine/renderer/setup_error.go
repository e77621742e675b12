package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/shader"
)

// Stage identifies a step of the ordered renderer setup.
type Stage int

const (
	// StageDevice negotiates the adapter and device.
	StageDevice Stage = iota

	// StageShader compiles the WGSL program.
	StageShader

	// StageGeometry uploads the vertex buffer.
	StageGeometry

	// StageSurface configures the presentable surface and the depth attachment.
	StageSurface

	// StagePipeline builds the render pipeline.
	StagePipeline
)

func (s Stage) String() string {
	switch s {
	case StageDevice:
		return "device"
	case StageShader:
		return "shader"
	case StageGeometry:
		return "geometry"
	case StageSurface:
		return "surface"
	case StagePipeline:
		return "pipeline"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ErrorKind classifies why setup stopped.
type ErrorKind int

const (
	// KindEnvironmental means the host has no usable GPU. The application may keep running without rendering.
	KindEnvironmental ErrorKind = iota

	// KindCompilation means the shader program produced error diagnostics.
	KindCompilation

	// KindConstruction means a GPU resource could not be created from otherwise valid inputs.
	KindConstruction
)

func (k ErrorKind) String() string {
	switch k {
	case KindEnvironmental:
		return "environmental"
	case KindCompilation:
		return "compilation"
	case KindConstruction:
		return "construction"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// SetupError reports the stage at which renderer setup stopped. Every resource created by
// earlier stages has been released by the time it is returned.
type SetupError struct {
	Stage Stage
	Err   error

	// Diagnostics holds the compilation messages when Stage is StageShader.
	Diagnostics shader.Diagnostics
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("renderer setup failed at %s stage: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Kind classifies the failure by its stage.
//
// Returns:
//   - ErrorKind: the failure class
func (e *SetupError) Kind() ErrorKind {
	switch e.Stage {
	case StageDevice:
		return KindEnvironmental
	case StageShader:
		return KindCompilation
	}
	return KindConstruction
}
