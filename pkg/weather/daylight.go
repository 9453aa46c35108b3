package weather

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Daylight describes the sun at the controller's location
type Daylight struct {
	SunAltitude  float64 `json:"sun_altitude"`
	IsDaytime    bool    `json:"is_daytime"`
	IsGoldenHour bool    `json:"is_golden_hour"`
}

// Daylight calculates the sun position for t at the client's location
func (c *Client) Daylight(t time.Time) Daylight {
	return CalculateDaylight(c.latitude, c.longitude, t)
}

// CalculateDaylight returns the sun altitude in degrees and the derived flags
func CalculateDaylight(lat, lon float64, t time.Time) Daylight {
	position := suncalc.GetPosition(t, lat, lon)
	altitude := position.Altitude * (180.0 / math.Pi)

	return Daylight{
		SunAltitude:  altitude,
		IsDaytime:    altitude > 0,
		IsGoldenHour: altitude > 0 && altitude < 6,
	}
}
