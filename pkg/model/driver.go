package model

// Driver is created once per car number on first sighting and never
// updated afterwards (mid-season team changes are not tracked).
type Driver struct {
	ID        string
	Name      string
	Number    string // car number; unique within the tracked roster
	Team      string
	ShortName string // three letter display code
	AvatarURL string
}

func NewDriver(gen IDGenerator, name, number, team, shortName, avatarURL string) *Driver {
	return &Driver{
		ID:        gen("driver"),
		Name:      name,
		Number:    number,
		Team:      team,
		ShortName: shortName,
		AvatarURL: avatarURL,
	}
}
