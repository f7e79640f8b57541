package raytracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulationTargets_Lifecycle(t *testing.T) {
	dev := &fakeDevice{}
	a := NewAccumulationTargets(dev, 64, 32)

	assert.Equal(t, TargetUninitialized, a.AccumulationState())
	assert.Equal(t, TargetUninitialized, a.OutputState())
	assert.Equal(t, 0, a.SampleLayerCount())

	acc, err := a.AccumulationImage()
	require.NoError(t, err)
	out, err := a.OutputImage()
	require.NoError(t, err)
	assert.NotSame(t, acc, out)
	assert.Equal(t, TargetAllocated, a.AccumulationState())
	assert.Equal(t, TargetAllocated, a.OutputState())
	assert.Equal(t, 64, acc.Width())
	assert.Equal(t, 32, acc.Height())

	again, err := a.AccumulationImage()
	require.NoError(t, err)
	assert.Same(t, acc, again)
	assert.Len(t, dev.images, 2)

	a.AdvanceLayer()
	a.AdvanceLayer()
	assert.Equal(t, 2, a.SampleLayerCount())

	a.Reset()
	assert.Equal(t, 0, a.SampleLayerCount())
	assert.Equal(t, TargetUninitialized, a.AccumulationState())
	assert.Equal(t, TargetUninitialized, a.OutputState())
	assert.True(t, acc.Released())
	assert.True(t, out.Released())

	a.Reset()
	assert.Equal(t, 0, a.SampleLayerCount())
}

func TestAccumulationTargets_SetResolution(t *testing.T) {
	dev := &fakeDevice{}
	a := NewAccumulationTargets(dev, 8, 8)
	acc, err := a.AccumulationImage()
	require.NoError(t, err)
	a.AdvanceLayer()

	require.NoError(t, a.SetResolution(16, 4))
	assert.True(t, acc.Released())
	assert.Equal(t, 0, a.SampleLayerCount())
	w, h := a.Resolution()
	assert.Equal(t, 16, w)
	assert.Equal(t, 4, h)

	acc, err = a.AccumulationImage()
	require.NoError(t, err)
	assert.Equal(t, 16, acc.Width())

	a.AdvanceLayer()
	assert.ErrorIs(t, a.SetResolution(0, 4), ErrInvalidResolution)
	assert.Equal(t, 1, a.SampleLayerCount())
	assert.False(t, acc.Released())
}

func TestAccumulationTargets_InvalidResolution(t *testing.T) {
	a := NewAccumulationTargets(&fakeDevice{}, 0, 10)
	_, err := a.OutputImage()
	assert.ErrorIs(t, err, ErrInvalidResolution)
	assert.Equal(t, TargetUninitialized, a.OutputState())
}

func TestTargetState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", TargetUninitialized.String())
	assert.Equal(t, "allocated", TargetAllocated.String())
	assert.Equal(t, "TargetState(7)", TargetState(7).String())
}
