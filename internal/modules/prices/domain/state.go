package domain

// ConsumerState tracks the broker-facing lifecycle of the stream consumer.
// Within one session the happy path only moves forward, from disconnected
// through connecting to connected. StateError is reachable from any state
// and terminal for that session.
type ConsumerState string

const (
	StateDisconnected ConsumerState = "disconnected"
	StateConnecting   ConsumerState = "connecting"
	StateConnected    ConsumerState = "connected"
	StateError        ConsumerState = "error"
)

func (s ConsumerState) String() string { return string(s) }
