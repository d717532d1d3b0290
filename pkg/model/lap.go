package model

// Lap holds the reconstructed timing state of one lap. Sector and total
// times are integer milliseconds; nil means "not reported yet". Time is
// set at most once, when the provider reports the completed lap time.
type Lap struct {
	ID           string
	DriverNumber string
	LapNumber    int
	Sector1Time  *int
	Sector2Time  *int
	Sector3Time  *int
	Time         *int
	SessionID    string
}

func NewLap(gen IDGenerator, driverNumber string, lapNumber int, sessionID string) *Lap {
	if lapNumber < 1 {
		lapNumber = 1
	}
	return &Lap{
		ID:           gen("lap"),
		DriverNumber: driverNumber,
		LapNumber:    lapNumber,
		SessionID:    sessionID,
	}
}

// Completed reports whether the total lap time has been recorded.
func (l *Lap) Completed() bool { return l.Time != nil }
