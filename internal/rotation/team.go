package rotation

import (
	"errors"
	"strings"
)

// Shift is the duty assigned to a team on a given day.
type Shift int

const (
	Off Shift = iota
	Morning
	Day
	Night
)

// Shifts lists every shift in code order.
var Shifts = []Shift{Off, Morning, Day, Night}

func (s Shift) String() string {
	switch s {
	case Off:
		return "off"
	case Morning:
		return "morning"
	case Day:
		return "day"
	case Night:
		return "night"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four known codes.
func (s Shift) Valid() bool {
	return s >= Off && s <= Night
}

// Team identifies one of the crews sharing the rotation.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
	TeamC Team = "C"
	TeamD Team = "D"
)

// DefaultTeam is used when no preference has been stored yet.
const DefaultTeam = TeamA

// Teams lists every team in display order.
var Teams = []Team{TeamA, TeamB, TeamC, TeamD}

// ErrUnknownTeam is returned by ParseTeam for anything outside A-D.
var ErrUnknownTeam = errors.New("rotation: unknown team")

// PatternLen is the length of the weekday cycle.
const PatternLen = 8

// Pattern is a team's weekday cycle, indexed by the weekday cursor.
type Pattern [PatternLen]Shift

// patterns is the fixed rotation table. B, C and D are team A shifted by
// 2, 4 and 6 weekdays respectively.
var patterns = map[Team]Pattern{
	TeamA: {Day, Day, Night, Night, Off, Off, Morning, Morning},
	TeamB: {Night, Night, Off, Off, Morning, Morning, Day, Day},
	TeamC: {Off, Off, Morning, Morning, Day, Day, Night, Night},
	TeamD: {Morning, Morning, Day, Day, Night, Night, Off, Off},
}

// PatternFor returns the rotation of t. Unknown teams get an all-off pattern.
func PatternFor(t Team) Pattern {
	return patterns[t]
}

// Valid reports whether t is a known team.
func (t Team) Valid() bool {
	_, ok := patterns[t]
	return ok
}

// ParseTeam accepts "A".."D" case-insensitively, with or without a "team"
// prefix.
func ParseTeam(s string) (Team, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "TEAM"))
	t := Team(s)
	if !t.Valid() {
		return "", ErrUnknownTeam
	}
	return t, nil
}
