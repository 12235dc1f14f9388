package entities

import "time"

// BuildResult summarises a completed build.
type BuildResult struct {
	// Artifact is the path of the produced application artifact.
	Artifact string `json:"artifact"`

	// Warnings counts warning diagnostics streamed during the build.
	Warnings int `json:"warnings"`

	// Elapsed is the wall-clock duration of the build.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Diagnostic is one line of build output.
type Diagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// BuildOptions are the inputs to the build collaborator.
type BuildOptions struct {
	Platform Platform
	OutDir   string
	Release  bool
}
