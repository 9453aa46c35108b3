package lighting

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 17, hour, minute, 0, 0, time.UTC)
}

func TestEncodeTime(t *testing.T) {
	tests := []struct {
		name     string
		t        time.Time
		cos, sin float64
		meridiem string
	}{
		{"noon", at(12, 0), 1, 0, "PM"},
		{"evening", at(18, 0), 0, 1, "PM"},
		{"midnight", at(0, 0), -1, 0, "PM"},
		{"early morning", at(6, 0), 0, -1, "AM"},
		{"just after midnight", at(0, 1), math.Cos(2 * math.Pi * 721 / 1440), math.Sin(2 * math.Pi * 721 / 1440), "AM"},
		{"just before noon", at(11, 59), math.Cos(2 * math.Pi * 1439 / 1440), math.Sin(2 * math.Pi * 1439 / 1440), "AM"},
		{"afternoon", at(15, 30), math.Cos(2 * math.Pi * 210 / 1440), math.Sin(2 * math.Pi * 210 / 1440), "PM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeTime(tt.t)
			assert.InDelta(t, tt.cos, enc.Cos, 1e-12)
			assert.InDelta(t, tt.sin, enc.Sin, 1e-12)
			assert.Equal(t, tt.meridiem, enc.Meridiem)
		})
	}
}

func TestEncodeTime_SnapsToExactZero(t *testing.T) {
	for _, tm := range []time.Time{at(12, 0), at(18, 0), at(0, 0), at(6, 0)} {
		enc := EncodeTime(tm)
		for _, v := range []float64{enc.Cos, enc.Sin} {
			if math.Abs(v) < 1e-10 {
				assert.Equal(t, 0.0, v)
				assert.False(t, math.Signbit(v), "no negative zero at %s", tm.Format("15:04"))
			}
		}
	}
}

func TestEncodeTime_UsesLocalClock(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	utc := time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, EncodeTime(at(18, 0)), EncodeTime(utc.In(loc)))
}

func TestTimeEncoding_Vector(t *testing.T) {
	assert.Equal(t, []float32{1, 0, 0}, EncodeTime(at(12, 0)).Vector())
	assert.Equal(t, []float32{0, -1, 1}, EncodeTime(at(6, 0)).Vector())
}
