package presence

// State is the connection state of a tracker. It describes the tracker as a whole,
// not any individual user.
type State string

const (
	// StateDisabled means tracking is off: no user, or the user is on an auth-flow screen.
	StateDisabled State = "disabled"
	// StateConnecting means tracking started and no snapshot has succeeded yet.
	StateConnecting State = "connecting"
	// StateConnected means the latest snapshot attempt succeeded.
	StateConnected State = "connected"
	// StateDisconnected means the latest snapshot attempt failed after all retries.
	StateDisconnected State = "disconnected"
)

func (s State) String() string {
	return string(s)
}
