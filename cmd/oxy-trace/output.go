package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// imageReader reads a float image back from the GPU. renderer.Renderer satisfies it.
type imageReader interface {
	ReadImage(img renderer.Image) ([]float32, error)
}

// writePNG reads img back and writes it as an 8-bit sRGB PNG.
func writePNG(r imageReader, img renderer.Image, path string) error {
	texels, err := r.ReadImage(img)
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}
	out, err := toNRGBA(texels, img.Width(), img.Height())
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return f.Close()
}

// toNRGBA converts linear RGBA float texels to an opaque sRGB image. Values outside
// [0, 1] are clamped; alpha is ignored.
func toNRGBA(texels []float32, width, height int) (*image.NRGBA, error) {
	if len(texels) != width*height*4 {
		return nil, fmt.Errorf("output has %d values, want %d for %dx%d", len(texels), width*height*4, width, height)
	}
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			i := (y*width + x) * 4
			out.SetNRGBA(x, y, color.NRGBA{
				R: encodeSRGB(texels[i]),
				G: encodeSRGB(texels[i+1]),
				B: encodeSRGB(texels[i+2]),
				A: 255,
			})
		}
	}
	return out, nil
}

func encodeSRGB(linear float32) uint8 {
	v := float64(common.Clamp01(linear))
	if v <= 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return uint8(math.Round(v * 255))
}
