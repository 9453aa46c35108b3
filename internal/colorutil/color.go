// Package colorutil converts between the HSBK model spoken by the bulbs and
// the sRGB model the predictor works in, and measures perceptual distance.
package colorutil

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an sRGB colour with channels in [0,255]
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// String renders the colour the way the LIFX API accepts it, e.g. "rgb:200,150,100"
func (c RGB) String() string {
	r, g, b := c.Bytes()
	return fmt.Sprintf("rgb:%d,%d,%d", r, g, b)
}

// Bytes rounds and clamps each channel to a byte
func (c RGB) Bytes() (uint8, uint8, uint8) {
	return toByte(c.R), toByte(c.G), toByte(c.B)
}

// Quantize rounds every channel to the byte the device will receive
func (c RGB) Quantize() RGB {
	r, g, b := c.Bytes()
	return RGB{R: float64(r), G: float64(g), B: float64(b)}
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: clamp(c.R/255, 0, 1), G: clamp(c.G/255, 0, 1), B: clamp(c.B/255, 0, 1)}
}

// HSBKToRGB converts hue [0,360), saturation and brightness [0,1] to sRGB.
// Kelvin does not take part in the mix.
func HSBKToRGB(hue, saturation, brightness, kelvin float64) RGB {
	h := math.Mod(hue, 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsv(h, clamp(saturation, 0, 1), clamp(brightness, 0, 1))
	return RGB{R: c.R * 255, G: c.G * 255, B: c.B * 255}
}

// RGBToHSB is the inverse of HSBKToRGB
func RGBToHSB(c RGB) (hue, saturation, brightness float64) {
	return c.colorful().Hsv()
}

// DeltaE2000 returns the CIEDE2000 distance between two sRGB colours on the
// conventional scale where L* spans 0..100.
func DeltaE2000(a, b RGB) float64 {
	// go-colorful reports L*a*b* divided by 100
	return a.colorful().DistanceCIEDE2000(b.colorful()) * 100
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 255)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
