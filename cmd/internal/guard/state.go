package guard

// State is the per-mount gate state.
type State uint8

const (
	StateChecking State = iota
	StateDenied
	StateAllowed
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateDenied:
		return "denied"
	case StateAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// mount is the state machine for a single request. Only the first settle takes effect.
type mount struct {
	state State
}

func (m *mount) settle(credentialOK bool) State {
	if m.state != StateChecking {
		return m.state
	}
	if credentialOK {
		m.state = StateAllowed
	} else {
		m.state = StateDenied
	}
	return m.state
}
