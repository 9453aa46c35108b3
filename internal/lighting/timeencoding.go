package lighting

import (
	"math"
	"time"
)

const (
	minutesPerDay = 1440
	noonOffset    = 720
	zeroSnap      = 1e-10
)

// TimeEncoding places a wall-clock time on the unit circle, measured from noon
type TimeEncoding struct {
	Cos      float64 `json:"cos"`
	Sin      float64 `json:"sin"`
	Meridiem string  `json:"meridiem"`
}

// Vector returns the encoding as (cos, sin, meridiem) with AM mapped to 1
func (e TimeEncoding) Vector() []float32 {
	m := float32(0)
	if e.Meridiem == "AM" {
		m = 1
	}
	return []float32{float32(e.Cos), float32(e.Sin), m}
}

// EncodeTime encodes t in its own location. Minutes past noon wrap at
// midnight, so the circle starts at 12:00 and 00:00 sits at pi.
func EncodeTime(t time.Time) TimeEncoding {
	mpn := (t.Hour()*60 + t.Minute() + noonOffset) % minutesPerDay
	angle := 2 * math.Pi * float64(mpn) / minutesPerDay

	meridiem := "PM"
	if mpn > noonOffset {
		meridiem = "AM"
	}

	return TimeEncoding{
		Cos:      snapZero(math.Cos(angle)),
		Sin:      snapZero(math.Sin(angle)),
		Meridiem: meridiem,
	}
}

func snapZero(v float64) float64 {
	if math.Abs(v) < zeroSnap {
		return 0
	}
	return v
}
