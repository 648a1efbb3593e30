package session

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

// Role is the sync role of a surface. It never changes when surfaces are
// swapped between slots.
type Role int

const (
	// Reaction is the master timeline
	Reaction Role = iota
	// Source follows the reaction at master - offset
	Source
)

func (r Role) String() string {
	switch r {
	case Reaction:
		return "reaction"
	case Source:
		return "source"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reaction", "master", "1":
		return Reaction, nil
	case "source", "follower", "2":
		return Source, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
