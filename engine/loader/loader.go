// Package loader imports triangle meshes and their materials from model files. glTF 2.0
// (.gltf with external or embedded buffers, and .glb) is the only supported format.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]*Model

	backend loaderBackend
}

// Loader imports model files through a format backend and caches the results.
type Loader interface {
	// Load imports a model file and caches it by path. A cached model is returned without
	// touching the file again.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: error if the format is unsupported or loading fails, naming the path
	Load(path string) (*Model, error)

	// LoadReader imports a model from a reader and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)

	// Get retrieves a cached model by name, or nil if not found.
	Get(name string) *Model

	// Models returns a copy of the model cache keyed by path or name.
	Models() map[string]*Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		modelCache: make(map[string]*Model),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	m, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if l.backend == nil {
		return nil, fmt.Errorf("loader: no backend configured for %q", name)
	}
	m, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to load from reader %q: %w", name, err)
	}
	m.Name = name

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Get(name string) *Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend checks the file extension against the configured backend.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend == nil || !slices.Contains(l.backend.Extensions(), ext) {
		return nil, fmt.Errorf("loader: unsupported model format %q: %s", ext, path)
	}
	return l.backend, nil
}
