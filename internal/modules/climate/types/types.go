package types

import (
	"time"

	"github.com/goccy/go-json"
)

type Station struct {
	Station   string  `json:"station"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Precipitation is one non-null precipitation reading. It encodes as a
// single-key object so readings sharing a date stay separate entries.
type Precipitation struct {
	Date   string
	Amount float64
}

func (p Precipitation) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{p.Date: p.Amount})
}

// TemperatureObservation is a dated tobs reading; Temp is nil for NULL.
type TemperatureObservation struct {
	Date string   `json:"date"`
	Temp *float64 `json:"temp"`
}

// TemperatureStats holds SQL MIN/AVG/MAX of tobs. Each is nil when the
// aggregate ran over no non-null values. It encodes as [min, avg, max].
type TemperatureStats struct {
	Min *float64
	Avg *float64
	Max *float64
}

// Empty reports whether no readings contributed to the aggregates.
func (s TemperatureStats) Empty() bool {
	return s.Min == nil && s.Avg == nil && s.Max == nil
}

func (s TemperatureStats) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]*float64{s.Min, s.Avg, s.Max})
}

// ActiveStation is the station with the most measurements and its
// all-time temperature aggregates.
type ActiveStation struct {
	Station string
	Count   int
	Stats   TemperatureStats
}

// DateRange is an inclusive range of calendar dates. A zero End leaves the
// range open.
type DateRange struct {
	Start time.Time
	End   time.Time
}
