package loader

// LoaderBuilderOption is a function that configures a loader during construction.
type LoaderBuilderOption func(*loader)

// WithModel pre-populates the model cache, so Load and LoadReader return m for key
// without importing anything.
//
// Parameters:
//   - key: the path or name the model is cached under
//   - m: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, m *Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = m
	}
}
