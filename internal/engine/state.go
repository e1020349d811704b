package engine

import "fmt"

// State is the execution cursor of one build
type State int

const (
	Start State = iota
	CompilingObjects
	PackagingLibrary
	LinkingExecutable
	Aborted
	Completed
)

var stateNames = [...]string{
	Start:             "start",
	CompilingObjects:  "compiling_objects",
	PackagingLibrary:  "packaging_library",
	LinkingExecutable: "linking_executable",
	Aborted:           "aborted",
	Completed:         "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition leaves s
func (s State) Terminal() bool {
	return s == Aborted || s == Completed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown build state %q", text)
}
