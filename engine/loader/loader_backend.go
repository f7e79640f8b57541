package loader

import (
	"io"
)

// loaderBackend is implemented once per model file format.
type loaderBackend interface {
	// Load imports a model file.
	//
	// Parameters:
	//   - path: the file path to the model
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if loading fails
	Load(path string) (*Model, error)

	// LoadReader imports a model from a stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isBinary: true for the format's binary container
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if loading fails
	LoadReader(r io.Reader, isBinary bool) (*Model, error)

	// Extensions lists the lowercase file extensions the backend accepts, dot included.
	Extensions() []string
}
