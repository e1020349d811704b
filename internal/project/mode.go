package project

import "strings"

// Mode selects how the library part of a project is packaged
type Mode int

const (
	ModeInvalid Mode = iota // never executed
	ModeStatic
	ModeDynamic
)

// ParseMode accepts the long names and the short sta/dyn forms
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "sta":
		return ModeStatic
	case "dynamic", "dyn":
		return ModeDynamic
	default:
		return ModeInvalid
	}
}

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeDynamic:
		return "dynamic"
	default:
		return "invalid"
	}
}
