package coordinator

import (
	"encoding/json"
	"sync/atomic"
)

// State is the lifecycle state of a coordinator.
type State int32

const (
	Initializing State = iota
	Running
	Faulted // terminal
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "initializing":
		*s = Initializing
	case "running":
		*s = Running
	case "faulted":
		*s = Faulted
	default:
		*s = State(-1)
	}
	return nil
}

// stateCell is the single place the state is written; readers load it atomically.
type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) Load() State {
	return State(c.v.Load())
}

// transition moves from one state to another and reports whether it happened.
func (c *stateCell) transition(from, to State) bool {
	return c.v.CompareAndSwap(int32(from), int32(to))
}
