package material

// Color is a linear RGBA color. Channels are not clamped, so emission colors may carry
// HDR intensities above 1.
type Color struct {
	R, G, B, A float32
}

var (
	// White is opaque white, the default albedo.
	White = Color{1, 1, 1, 1}
	// Black is opaque black, the default specular and emission.
	Black = Color{0, 0, 0, 1}
)

// RGB returns the color's red, green and blue channels, dropping alpha.
//
// Returns:
//   - [3]float32: the RGB triple
func (c Color) RGB() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}

// ColorFromRGB builds an opaque Color from an RGB triple.
//
// Parameters:
//   - rgb: the red, green and blue channels
//
// Returns:
//   - Color: the color with alpha set to 1
func ColorFromRGB(rgb [3]float32) Color {
	return Color{rgb[0], rgb[1], rgb[2], 1}
}

// Scale multiplies the RGB channels by s, leaving alpha untouched. It is used to raise
// an emission color to an HDR intensity.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}
