package gal

import "fmt"

// ResourceLimitError reports a creation request exceeding a queried device
// limit. Recoverable by reducing the request; callers should consult
// Executor.Limits before creation.
type ResourceLimitError struct {
	// Resource names the kind of resource that was requested.
	Resource string

	// Label is the debug label of the offending descriptor.
	Label string

	// Requested and Limit are the offending value and the device limit.
	Requested uint64
	Limit     uint64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("%s %q exceeds device limit: requested %d, limit %d",
		e.Resource, e.Label, e.Requested, e.Limit)
}

// AllocatorExhaustedError reports a per-frame dynamic allocation overflowing
// its region. Recoverable by growing the allocator before the next frame.
type AllocatorExhaustedError struct {
	// Requested is the allocation size that did not fit.
	Requested uint64

	// Remaining is the space left in the current region.
	Remaining uint64

	// RegionSize is the total per-frame region size.
	RegionSize uint64
}

func (e *AllocatorExhaustedError) Error() string {
	return fmt.Sprintf("uniform allocator exhausted: requested %d bytes with %d of %d remaining",
		e.Requested, e.Remaining, e.RegionSize)
}

// SurfaceLostError reports a failure to acquire the frame target. Recoverable
// once by reconfiguring the surface and retrying; a second consecutive
// failure is fatal and propagates.
type SurfaceLostError struct {
	// Cause is the underlying backend error.
	Cause error
}

func (e *SurfaceLostError) Error() string {
	return fmt.Sprintf("surface lost: %v", e.Cause)
}

// Unwrap returns the underlying backend error.
func (e *SurfaceLostError) Unwrap() error {
	return e.Cause
}

// ShaderCompilationError reports a shader compile or program link failure.
// Always fatal for the affected pipeline; never silently substituted.
type ShaderCompilationError struct {
	// Label is the debug label of the shader module or pipeline.
	Label string

	// Log carries the compiler or linker diagnostics.
	Log string
}

func (e *ShaderCompilationError) Error() string {
	return fmt.Sprintf("shader %q failed to compile: %s", e.Label, e.Log)
}
