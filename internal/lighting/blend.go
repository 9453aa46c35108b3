package lighting

import "math"

// Blend mixes the prediction with an active override and derives brightness
// from cloud cover. Channels are mixed in squared space, weighted by the
// override weight. The colour is quantized to the bytes the lights receive,
// so the commanded state equals what the lights report back.
func Blend(predicted RGB, override *OverrideRecord, cloudCover float64) Target {
	color := predicted
	if override.Active() {
		w := math.Min(override.Weight, 1)
		o := override.RGB()
		color = RGB{
			R: mix(predicted.R, o.R, w),
			G: mix(predicted.G, o.G, w),
			B: mix(predicted.B, o.B, w),
		}
	}

	return Target{
		Color:      color.Quantize(),
		Brightness: WeatherBrightness(cloudCover),
	}
}

// WeatherBrightness is brighter on overcast days, rounded to one decimal
func WeatherBrightness(cloudCover float64) float64 {
	b := math.Max(0, math.Min(1, cloudCover/2+0.5))
	return math.Round(b*10) / 10
}

func mix(p, o, w float64) float64 {
	return math.Sqrt((1-w)*p*p + w*o*o)
}
