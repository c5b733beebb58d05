package viewer

type Conn interface {
	Send([]byte) error
	Close() error
}

// Join: issued once after the websocket upgrade
type Join struct {
	Conn  Conn
	Name  string
	Reply chan<- JoinResult
}

type JoinResult struct {
	ClientID string
}

// Leave: issued on disconnect
type Leave struct {
	ClientID string
}
