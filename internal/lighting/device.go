package lighting

import (
	"context"

	"github.com/Lux-EE464H/Lux/pkg/lifx"
)

// LIFXDevice adapts the LIFX HTTP client to LightProvider
type LIFXDevice struct {
	client   *lifx.Client
	duration float64
}

// NewLIFXDevice wraps client; duration is the transition time in seconds
func NewLIFXDevice(client *lifx.Client, duration float64) *LIFXDevice {
	return &LIFXDevice{client: client, duration: duration}
}

// ListLights returns one reading per light
func (d *LIFXDevice) ListLights(ctx context.Context) ([]Reading, error) {
	lights, err := d.client.ListLights(ctx)
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, 0, len(lights))
	for _, l := range lights {
		readings = append(readings, Reading{
			ID:    l.ID,
			Label: l.Label,
			State: LightState{
				Hue:        l.Color.Hue,
				Saturation: l.Color.Saturation,
				Brightness: l.Brightness,
				Kelvin:     l.Color.Kelvin,
				Connected:  l.Connected,
			},
		})
	}
	return readings, nil
}

// SetColor sends the target colour and brightness
func (d *LIFXDevice) SetColor(ctx context.Context, target Target) (SetResult, error) {
	brightness := target.Brightness
	resp, err := d.client.SetState(ctx, lifx.StateRequest{
		Color:      target.Color.String(),
		Brightness: &brightness,
		Duration:   d.duration,
	})
	if err != nil {
		return SetResult{}, err
	}
	return SetResult{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}
