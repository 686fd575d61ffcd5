// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import "fmt"

// State is a step in the per-class state machine.
type State uint8

const (
	Start State = iota
	Filtered
	Digested
	PatchChecked
	Patched
	Unpatched
	SkipChecked
	Remapped
	Decrypted
	Unchanged
	Done

	// Passthrough marks a class outside the namespace.
	Passthrough

	// Failed marks a stage error. The class keeps the bytes produced
	// before the failing stage.
	Failed
)

var stateNames = [...]string{
	Start:        "start",
	Filtered:     "filtered",
	Digested:     "digested",
	PatchChecked: "patch-checked",
	Patched:      "patched",
	Unpatched:    "unpatched",
	SkipChecked:  "skip-checked",
	Remapped:     "remapped",
	Decrypted:    "decrypted",
	Unchanged:    "unchanged",
	Done:         "done",
	Passthrough:  "passthrough",
	Failed:       "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// ParseState parses the String form of a state.
func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if stateName == name {
			return State(state), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if int(s) >= len(stateNames) {
		return nil, fmt.Errorf("unknown state %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}
