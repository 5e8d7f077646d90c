package core

// Conn is one client connection as seen by the core layer. The
// transport owns the underlying socket; the core only needs a stable
// identity and a way to push frames.
type Conn interface {
	// ID is stable for the lifetime of the connection.
	ID() string
	// Send writes one text frame. It must be safe for concurrent use:
	// replies come from the connection's own goroutine, broadcasts
	// from other connections' goroutines.
	Send(data []byte) error
}
