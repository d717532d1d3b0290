package livetiming

import "encoding/json"

// Typed payloads for the topics the pipeline consumes. The provider
// sends partial objects; pointer fields distinguish "absent this tick"
// from a real value.

// SessionInfoEvent describes the session currently on track.
type SessionInfoEvent struct {
	Meeting struct {
		Name    string `json:"Name"`
		Country struct {
			Code string `json:"Code"`
		} `json:"Country"`
	} `json:"Meeting"`
	Name      string `json:"Name"`
	Type      string `json:"Type"`
	StartDate string `json:"StartDate"`
}

// DriverListEvent maps car number to intrinsic driver data. The object
// also carries non-driver keys (position metadata, "_kf" flags); values
// that don't decode to driverEntry shapes must be skipped, which is why
// the values stay raw here.
type DriverListEvent map[string]json.RawMessage

// DriverEntry is one decoded roster line.
type DriverEntry struct {
	RacingNumber string `json:"RacingNumber"`
	FirstName    string `json:"FirstName"`
	LastName     string `json:"LastName"`
	Tla          string `json:"Tla"`
	TeamName     string `json:"TeamName"`
	HeadshotURL  string `json:"HeadshotUrl"`
}

// TimingDataEvent is one tick of the timing topic: per driver deltas.
type TimingDataEvent struct {
	Lines map[string]TimingLine `json:"Lines"`
}

// TimingLine carries the fragments for one driver. Every field is
// optional on the wire.
type TimingLine struct {
	Sectors      map[string]SectorData `json:"Sectors,omitempty"`
	LastLapTime  *LapTimeValue         `json:"LastLapTime,omitempty"`
	NumberOfLaps *int                  `json:"NumberOfLaps,omitempty"`
}

// LapTimeValue wraps the provider's lap time fragment.
type LapTimeValue struct {
	Value string `json:"Value"`
}

// SectorData is one sector fragment. Only records carrying a usable
// Value field update state; segment-status records and "previous value"
// records are no-ops for reconstruction.
type SectorData struct {
	Value         *string                  `json:"Value,omitempty"`
	PreviousValue *string                  `json:"PreviousValue,omitempty"`
	Segments      map[string]SegmentStatus `json:"Segments,omitempty"`
}

// HasValue reports whether this fragment carries a usable sector time.
func (s SectorData) HasValue() bool {
	return s.Value != nil && *s.Value != ""
}

type SegmentStatus struct {
	Status int `json:"Status"`
}

// segment status codes observed on the wire
const (
	SegmentYellow         = 2048
	SegmentYellowPersonal = 2049
	SegmentGreen          = 2051 // personal fastest
	SegmentPurple         = 2052 // overall fastest
	SegmentPit            = 2064 // pit stop
)
