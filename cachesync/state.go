package cachesync

// State is the connection state of the Engine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateCatchingUp
	StateLive
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateCatchingUp:
		return "catching_up"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Stats are cumulative engine counters.
type Stats struct {
	// Received counts stream events, including malformed ones.
	Received uint64
	// Dropped counts messages never handed to a handler.
	Dropped uint64
	// Dispatched counts handler calls.
	Dispatched uint64
	// Reconnects counts scheduled reconnect attempts.
	Reconnects uint64
}
