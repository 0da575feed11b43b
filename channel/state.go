package channel

// State is the connection state of a Channel.
type State uint8

const (
	Disconnected State = iota
	Connecting
	Open
	Erroring
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Erroring:
		return "erroring"
	default:
		return "unknown"
	}
}
