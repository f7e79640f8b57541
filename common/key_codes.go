package common

// Key codes understood by the viewer. Printable keys use their ASCII value and the rest
// match GLFW's key enumeration.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyR     = 82  // R key, restarts accumulation
	KeyP     = 80  // P key, pauses scene animation
	KeyF     = 70  // F key, toggles the profiler line
	KeySpace = 32  // Spacebar, steps animation one tick while paused
	KeyEsc   = 256 // Escape key, quits
)
