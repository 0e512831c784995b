package meshing

import (
	"errors"
	"slices"
	"sync"

	"github.com/alitto/pond/v2"

	"voxel-engine/internal/voxel"
)

// ErrPoolClosed is returned when packing is requested after Shutdown
var ErrPoolClosed = errors.New("meshing: worker pool is shut down")

// chunkResult is the output of one worker for one contiguous voxel range
type chunkResult struct {
	index    int
	vertices []voxel.Vertex
	indices  []uint32
}

// WorkerPool packs voxel geometry on a fixed set of workers.
// The pool is created once and reused by every Pack call.
type WorkerPool struct {
	mu      sync.RWMutex
	pool    pond.ResultPool[chunkResult]
	workers int
	closed  bool
}

// NewWorkerPool creates a mesh packing pool with the given worker count
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		pool:    pond.NewResultPool[chunkResult](workers),
		workers: workers,
	}
}

// Workers returns the number of chunks each Pack call is split into
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Pack truncates vertices and indices and refills them with the geometry of all
// voxels. Output is identical to PackRange over the whole slice: the voxels are
// split into Workers() contiguous chunks of ceil(n/workers), each packed
// concurrently with offsets taken from the voxel's global ordinal, and the
// chunks are concatenated in order. Blocks until every chunk is done.
func (p *WorkerPool) Pack(voxels []voxel.Voxel, vertices []voxel.Vertex, indices []uint32) ([]voxel.Vertex, []uint32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return vertices, indices, ErrPoolClosed
	}

	vertices = vertices[:0]
	indices = indices[:0]
	n := len(voxels)
	if n == 0 {
		return vertices, indices, nil
	}

	chunk := (n + p.workers - 1) / p.workers
	group := p.pool.NewGroup()
	for i := range p.workers {
		start := i * chunk
		if start >= n {
			break
		}
		end := min(start+chunk, n)
		group.Submit(func() chunkResult {
			size := end - start
			res := chunkResult{
				index:    i,
				vertices: make([]voxel.Vertex, 0, size*voxel.VerticesPerVoxel),
				indices:  make([]uint32, 0, size*voxel.IndicesPerVoxel),
			}
			res.vertices, res.indices = PackRange(voxels, start, end, res.vertices, res.indices)
			return res
		})
	}

	results, err := group.Wait()
	if err != nil {
		return vertices, indices, err
	}

	ordered := make([]*chunkResult, p.workers)
	for i := range results {
		ordered[results[i].index] = &results[i]
	}

	vertices = slices.Grow(vertices, n*voxel.VerticesPerVoxel)
	indices = slices.Grow(indices, n*voxel.IndicesPerVoxel)
	for _, r := range ordered {
		if r == nil {
			continue
		}
		vertices = append(vertices, r.vertices...)
		indices = append(indices, r.indices...)
	}
	return vertices, indices, nil
}

// Shutdown stops the workers after in-flight chunks finish
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.pool.StopAndWait()
}
