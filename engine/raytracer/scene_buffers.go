package raytracer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
	"github.com/Carmen-Shannon/oxy-trace/engine/material"
	"github.com/Carmen-Shannon/oxy-trace/engine/mesh"
	"github.com/Carmen-Shannon/oxy-trace/engine/record"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// extractChunk is the number of primitive entities extracted by one pool task.
const extractChunk = 64

var (
	placeholderSpheres = []record.GPUSphere{{}}
	placeholderBoxes   = []record.GPUBox{{}}
)

type sphereJob struct {
	xf    entity.Transform
	shape entity.Sphere
	mat   material.Material
}

type boxJob struct {
	xf    entity.Transform
	shape entity.Box
	mat   material.Material
}

type meshJob struct {
	xf          entity.Transform
	mat         material.Material
	mesh        mesh.Mesh
	firstVertex int
	firstIndex  int
}

// SceneBuffers turns an entity snapshot into the five storage buffers the kernel reads:
// spheres, boxes, mesh instances, vertices and indices.
//
// The sphere and box buffers are always bound after Build; an empty kind is uploaded as a
// single zero record. The mesh instance, vertex and index buffers are unbound when the
// scene holds no resolvable mesh.
type SceneBuffers struct {
	pool    worker.DynamicWorkerPool
	verbose bool

	spheres     []record.GPUSphere
	boxes       []record.GPUBox
	meshObjects []record.GPUMeshObject
	vertices    []record.GPUVertex
	indices     []record.GPUIndex

	sphereBuffer     *TypedBuffer[record.GPUSphere, *record.GPUSphere]
	boxBuffer        *TypedBuffer[record.GPUBox, *record.GPUBox]
	meshObjectBuffer *TypedBuffer[record.GPUMeshObject, *record.GPUMeshObject]
	vertexBuffer     *TypedBuffer[record.GPUVertex, *record.GPUVertex]
	indexBuffer      *TypedBuffer[record.GPUIndex, *record.GPUIndex]
}

// NewSceneBuffers creates a SceneBuffers with no buffers allocated.
//
// Parameters:
//   - pool: the worker pool extraction fans out to, or nil to extract inline
//   - verbose: log buffer reallocations
//
// Returns:
//   - *SceneBuffers: the builder
func NewSceneBuffers(pool worker.DynamicWorkerPool, verbose bool) *SceneBuffers {
	return &SceneBuffers{
		pool:             pool,
		verbose:          verbose,
		sphereBuffer:     NewTypedBuffer[record.GPUSphere, *record.GPUSphere]("Spheres Buffer", verbose),
		boxBuffer:        NewTypedBuffer[record.GPUBox, *record.GPUBox]("Boxes Buffer", verbose),
		meshObjectBuffer: NewTypedBuffer[record.GPUMeshObject, *record.GPUMeshObject]("Mesh Objects Buffer", verbose),
		vertexBuffer:     NewTypedBuffer[record.GPUVertex, *record.GPUVertex]("Vertices Buffer", verbose),
		indexBuffer:      NewTypedBuffer[record.GPUIndex, *record.GPUIndex]("Indices Buffer", verbose),
	}
}

// Build rebuilds every record list from entities and reconciles the five buffers with them.
// Inactive entities are skipped, as are mesh entities whose mesh the resolver cannot
// supply. Record order follows entity order. The indices of each mesh are rebased onto the
// shared vertex pool by adding the number of vertices emitted before it.
//
// Parameters:
//   - device: allocates buffers whose shape changed
//   - resolver: supplies the geometry of mesh entities
//   - entities: the entity snapshot for this frame
//
// Returns:
//   - error: an error if any buffer could not be reconciled
func (s *SceneBuffers) Build(device BufferAllocator, resolver MeshResolver, entities []entity.Entity) error {
	var (
		sphereJobs []sphereJob
		boxJobs    []boxJob
		meshJobs   []meshJob
	)
	vertexCount, indexCount := 0, 0

	for _, e := range entities {
		if e == nil || !e.Active() {
			continue
		}
		switch shape := e.Shape().(type) {
		case entity.Sphere:
			sphereJobs = append(sphereJobs, sphereJob{xf: e.Transform(), shape: shape, mat: e.Material()})
		case entity.Box:
			boxJobs = append(boxJobs, boxJob{xf: e.Transform(), shape: shape, mat: e.Material()})
		case entity.Mesh:
			m, ok := resolver.ResolveMesh(e)
			if !ok {
				continue
			}
			meshJobs = append(meshJobs, meshJob{
				xf:          e.Transform(),
				mat:         e.Material(),
				mesh:        m,
				firstVertex: vertexCount,
				firstIndex:  indexCount,
			})
			vertexCount += len(m.Vertices)
			indexCount += len(m.Indices)
		}
	}

	s.spheres = resize(s.spheres, len(sphereJobs))
	s.boxes = resize(s.boxes, len(boxJobs))
	s.meshObjects = resize(s.meshObjects, len(meshJobs))
	s.vertices = resize(s.vertices, vertexCount)
	s.indices = resize(s.indices, indexCount)

	var tasks []func()
	for start := 0; start < len(sphereJobs); start += extractChunk {
		end := min(start+extractChunk, len(sphereJobs))
		tasks = append(tasks, func() {
			for i := start; i < end; i++ {
				j := sphereJobs[i]
				s.spheres[i] = record.ExtractSphere(j.xf, j.shape, j.mat)
			}
		})
	}
	for start := 0; start < len(boxJobs); start += extractChunk {
		end := min(start+extractChunk, len(boxJobs))
		tasks = append(tasks, func() {
			for i := start; i < end; i++ {
				j := boxJobs[i]
				s.boxes[i] = record.ExtractBox(j.xf, j.shape, j.mat)
			}
		})
	}
	for i, j := range meshJobs {
		tasks = append(tasks, func() {
			nv, ni := len(j.mesh.Vertices), len(j.mesh.Indices)
			record.ExtractVertices(s.vertices[j.firstVertex:j.firstVertex+nv], j.mesh.Vertices)
			record.ExtractIndices(s.indices[j.firstIndex:j.firstIndex+ni], j.mesh.Indices, uint32(j.firstVertex))
			s.meshObjects[i] = record.ExtractMeshObject(j.xf, j.mat, uint32(j.firstIndex), uint32(ni))
		})
	}
	s.run(tasks)

	spheres := s.spheres
	if len(spheres) == 0 {
		spheres = placeholderSpheres
	}
	if err := s.sphereBuffer.Reconcile(device, spheres); err != nil {
		return fmt.Errorf("raytracer: %w", err)
	}

	boxes := s.boxes
	if len(boxes) == 0 {
		boxes = placeholderBoxes
	}
	if err := s.boxBuffer.Reconcile(device, boxes); err != nil {
		return fmt.Errorf("raytracer: %w", err)
	}

	if err := s.meshObjectBuffer.Reconcile(device, s.meshObjects); err != nil {
		return fmt.Errorf("raytracer: %w", err)
	}
	if err := s.vertexBuffer.Reconcile(device, s.vertices); err != nil {
		return fmt.Errorf("raytracer: %w", err)
	}
	if err := s.indexBuffer.Reconcile(device, s.indices); err != nil {
		return fmt.Errorf("raytracer: %w", err)
	}
	return nil
}

// run executes tasks on the pool and blocks until all of them finished.
func (s *SceneBuffers) run(tasks []func()) {
	if s.pool == nil || len(tasks) < 2 {
		for _, t := range tasks {
			t()
		}
		return
	}

	// pool.Wait only returns once workers idle out, so each batch gets its own barrier
	var wg sync.WaitGroup
	for id, t := range tasks {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				t()
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// Spheres returns the sphere records of the last Build, without the placeholder.
func (s *SceneBuffers) Spheres() []record.GPUSphere { return s.spheres }

// Boxes returns the box records of the last Build, without the placeholder.
func (s *SceneBuffers) Boxes() []record.GPUBox { return s.boxes }

// MeshObjects returns the mesh instance records of the last Build.
func (s *SceneBuffers) MeshObjects() []record.GPUMeshObject { return s.meshObjects }

// Vertices returns the concatenated vertex pool of the last Build.
func (s *SceneBuffers) Vertices() []record.GPUVertex { return s.vertices }

// Indices returns the concatenated, rebased index pool of the last Build.
func (s *SceneBuffers) Indices() []record.GPUIndex { return s.indices }

// SphereBuffer returns the sphere buffer. It always holds at least one record.
func (s *SceneBuffers) SphereBuffer() renderer.Buffer { return s.sphereBuffer.Buffer() }

// BoxBuffer returns the box buffer. It always holds at least one record.
func (s *SceneBuffers) BoxBuffer() renderer.Buffer { return s.boxBuffer.Buffer() }

// MeshObjectBuffer returns the mesh instance buffer, or nil when no mesh was built.
func (s *SceneBuffers) MeshObjectBuffer() renderer.Buffer { return s.meshObjectBuffer.Buffer() }

// VertexBuffer returns the vertex pool buffer, or nil when the pool is empty.
func (s *SceneBuffers) VertexBuffer() renderer.Buffer { return s.vertexBuffer.Buffer() }

// IndexBuffer returns the index pool buffer, or nil when the pool is empty.
func (s *SceneBuffers) IndexBuffer() renderer.Buffer { return s.indexBuffer.Buffer() }

// Release frees all five buffers. Safe to call more than once.
func (s *SceneBuffers) Release() {
	s.sphereBuffer.Release()
	s.boxBuffer.Release()
	s.meshObjectBuffer.Release()
	s.vertexBuffer.Release()
	s.indexBuffer.Release()
}

// resize returns a slice of length n, reusing the backing array of buf when it is large enough.
func resize[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}
