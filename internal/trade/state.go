package trade

import "fmt"

// State is the lifecycle state of a TradeMemo.
type State int

const (
	StateNone State = iota
	StateBuy
	StateBought
	StateSell
	StateSold
)

var stateNames = map[State]string{
	StateNone:   "NONE",
	StateBuy:    "BUY",
	StateBought: "BOUGHT",
	StateSell:   "SELL",
	StateSold:   "SOLD",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState parses the textual form produced by String.
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	return StateNone, fmt.Errorf("unknown trade state: %q", s)
}

func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown trade state: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
