package gal

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// InternTable deduplicates pipelines and bind group layouts by the canonical
// encoding of their descriptors. Both backends own one table; duplicate
// creation calls with identical descriptors return the identical handle and
// never rebuild the backend object.
//
// The table is guarded by a plain mutex: creation is rare relative to
// per-frame draw submission, and lookups happen at creation time only, never
// on the draw path.
type InternTable struct {
	mu sync.Mutex

	pipelines map[string]Pipeline
	layouts   map[string]BindGroupLayout

	// Build counters, exposed for tests that verify interning idempotence.
	pipelineBuilds int
	layoutBuilds   int

	nextPipelineID uint32

	// compilePool runs asynchronous pipeline builds so callers can avoid
	// stalling on shader compilation during startup or streaming.
	compilePool worker.DynamicWorkerPool
}

// NewInternTable creates an empty intern table with a compile pool sized to
// the machine.
//
// Returns:
//   - *InternTable: the new table
func NewInternTable() *InternTable {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return &InternTable{
		pipelines:   make(map[string]Pipeline),
		layouts:     make(map[string]BindGroupLayout),
		compilePool: worker.NewDynamicWorkerPool(workers, 64, time.Second),
	}
}

// Pipeline returns the interned pipeline for desc, building it at most once.
// The build function receives the fresh handle and attaches the backend
// object via SetRaw; on build error nothing is interned.
//
// Parameters:
//   - desc: the pipeline descriptor
//   - build: backend compilation, invoked only on a cache miss
//
// Returns:
//   - Pipeline: the interned handle
//   - error: the build error, if any
func (t *InternTable) Pipeline(desc *PipelineDescriptor, build func(Pipeline) error) (Pipeline, error) {
	key := desc.CacheKey()

	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pipelines[key]; ok {
		return p, nil
	}

	t.nextPipelineID++
	p := NewPipelineHandle(t.nextPipelineID, desc)
	if err := build(p); err != nil {
		t.nextPipelineID--
		return nil, err
	}
	t.pipelineBuilds++
	t.pipelines[key] = p
	return p, nil
}

// PipelineAsync resolves or builds the pipeline on a compile-pool worker and
// invokes callback with the result. Interning semantics match Pipeline
// exactly; a concurrent synchronous call for the same descriptor observes at
// most one build.
//
// Parameters:
//   - desc: the pipeline descriptor
//   - build: backend compilation, invoked only on a cache miss
//   - callback: receives the interned handle or the build error
func (t *InternTable) PipelineAsync(desc *PipelineDescriptor, build func(Pipeline) error, callback func(Pipeline, error)) {
	t.compilePool.SubmitTask(worker.Task{
		Do: func() (any, error) {
			p, err := t.Pipeline(desc, build)
			callback(p, err)
			return nil, nil
		},
	})
}

// Layout returns the interned bind group layout for desc, building it at
// most once.
//
// Parameters:
//   - desc: the layout descriptor
//   - build: backend creation, invoked only on a cache miss
//
// Returns:
//   - BindGroupLayout: the interned handle
//   - error: the build error, if any
func (t *InternTable) Layout(desc *BindGroupLayoutDescriptor, build func(BindGroupLayout) error) (BindGroupLayout, error) {
	key := desc.CacheKey()

	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.layouts[key]; ok {
		return l, nil
	}

	l := NewBindGroupLayoutHandle(desc)
	if err := build(l); err != nil {
		return nil, err
	}
	t.layoutBuilds++
	t.layouts[key] = l
	return l, nil
}

// PipelineBuildCount returns how many pipeline builds actually ran.
//
// Returns:
//   - int: the build count
func (t *InternTable) PipelineBuildCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pipelineBuilds
}

// LayoutBuildCount returns how many layout builds actually ran.
//
// Returns:
//   - int: the build count
func (t *InternTable) LayoutBuildCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layoutBuilds
}

// PipelineCount returns the number of distinct interned pipelines.
//
// Returns:
//   - int: the pipeline count
func (t *InternTable) PipelineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pipelines)
}
