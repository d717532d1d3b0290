package model

import "time"

type SessionType string

const (
	SessionTypeRace             SessionType = "race"
	SessionTypeQualifying       SessionType = "qualifying"
	SessionTypeSprint           SessionType = "sprint"
	SessionTypeSprintQualifying SessionType = "sprint_qualifying"
	SessionTypePractice         SessionType = "practice"
	SessionTypePractice2        SessionType = "practice_2"
	SessionTypePractice3        SessionType = "practice_3"
)

// Session describes one timed event (a race, a qualifying, ...) at a
// meeting. There is at most one session per (Name, Type) pair; the
// resolver looks up before creating.
type Session struct {
	ID      string
	Name    string
	Country string
	Type    SessionType
	Date    time.Time
}

func NewSession(gen IDGenerator, name, country string, sType SessionType) *Session {
	return &Session{
		ID:      gen("session"),
		Name:    name,
		Country: country,
		Type:    sType,
		Date:    time.Now().UTC().Truncate(24 * time.Hour),
	}
}
