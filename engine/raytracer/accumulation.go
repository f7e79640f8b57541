package raytracer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// TargetState describes whether a render target currently holds a GPU image.
type TargetState int

const (
	TargetUninitialized TargetState = iota
	TargetAllocated
)

func (s TargetState) String() string {
	switch s {
	case TargetUninitialized:
		return "uninitialized"
	case TargetAllocated:
		return "allocated"
	default:
		return fmt.Sprintf("TargetState(%d)", int(s))
	}
}

// AccumulationTargets owns the running-average image, the image the kernel writes the new
// average into, and the number of sample layers folded into the average so far.
// Both images are allocated lazily at the current resolution and dropped by Reset.
type AccumulationTargets struct {
	device     ImageAllocator
	width      int
	height     int
	result     renderer.Image
	resultOut  renderer.Image
	layerCount int
}

// NewAccumulationTargets creates targets in the uninitialized state.
//
// Parameters:
//   - device: allocates the images
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - *AccumulationTargets: the targets
func NewAccumulationTargets(device ImageAllocator, width, height int) *AccumulationTargets {
	return &AccumulationTargets{device: device, width: width, height: height}
}

// AccumulationImage returns the running-average image, allocating it first if needed.
//
// Returns:
//   - renderer.Image: the accumulation image
//   - error: ErrInvalidResolution, or a wrapped allocation error
func (a *AccumulationTargets) AccumulationImage() (renderer.Image, error) {
	return a.ensure(&a.result, "Result")
}

// OutputImage returns the image the kernel writes into, allocating it first if needed.
//
// Returns:
//   - renderer.Image: the output image
//   - error: ErrInvalidResolution, or a wrapped allocation error
func (a *AccumulationTargets) OutputImage() (renderer.Image, error) {
	return a.ensure(&a.resultOut, "ResultOut")
}

func (a *AccumulationTargets) ensure(slot *renderer.Image, label string) (renderer.Image, error) {
	if *slot != nil {
		return *slot, nil
	}
	if a.width <= 0 || a.height <= 0 {
		return nil, fmt.Errorf("%s %dx%d: %w", label, a.width, a.height, ErrInvalidResolution)
	}
	img, err := a.device.CreateImage(label, a.width, a.height)
	if err != nil {
		return nil, fmt.Errorf("raytracer: create %s: %w", label, err)
	}
	*slot = img
	return img, nil
}

// AccumulationState reports whether the accumulation image is allocated.
func (a *AccumulationTargets) AccumulationState() TargetState {
	return stateOf(a.result)
}

// OutputState reports whether the output image is allocated.
func (a *AccumulationTargets) OutputState() TargetState {
	return stateOf(a.resultOut)
}

func stateOf(img renderer.Image) TargetState {
	if img == nil {
		return TargetUninitialized
	}
	return TargetAllocated
}

// Reset releases both images and zeroes the sample layer count. The next frame starts a
// fresh average.
func (a *AccumulationTargets) Reset() {
	if a.result != nil {
		a.result.Release()
		a.result = nil
	}
	if a.resultOut != nil {
		a.resultOut.Release()
		a.resultOut = nil
	}
	a.layerCount = 0
}

// AdvanceLayer records that one more sample layer was folded into the average.
func (a *AccumulationTargets) AdvanceLayer() {
	a.layerCount++
}

// SampleLayerCount returns the number of layers in the current average.
func (a *AccumulationTargets) SampleLayerCount() int {
	return a.layerCount
}

// Resolution returns the size the images are allocated at.
func (a *AccumulationTargets) Resolution() (int, int) {
	return a.width, a.height
}

// SetResolution resets the targets and changes the size of future images.
//
// Parameters:
//   - width: the new width in pixels
//   - height: the new height in pixels
//
// Returns:
//   - error: ErrInvalidResolution when either side is not positive; the targets are left untouched
func (a *AccumulationTargets) SetResolution(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%dx%d: %w", width, height, ErrInvalidResolution)
	}
	a.Reset()
	a.width, a.height = width, height
	return nil
}
