package core

import "errors"

var (
	// ErrInvalidCube reports malformed or unsupported cube input. The
	// previously active cube stays on screen.
	ErrInvalidCube = errors.New("invalid cube")
	// ErrSurfaceLost is recovered by reconfiguring the surface.
	ErrSurfaceLost = errors.New("surface lost")
	// ErrOutOfMemory is fatal; the frame loop stops.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrTransientPresent covers timeouts and outdated frames; retried next frame.
	ErrTransientPresent = errors.New("transient present error")
)
