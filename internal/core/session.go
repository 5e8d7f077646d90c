package core

import "sync"

// GuestUserID is the identity a connection starts with when the
// well-known guest user cannot be resolved from the data service.
const GuestUserID int64 = 0

// Session is the per-connection state the dispatcher operates on. It
// is owned by the connection's goroutine; UserID changes only through
// login_as and create_user, which that same goroutine processes.
type Session struct {
	Conn   Conn
	UserID int64

	cleanup sync.Once
}

// NewSession binds a session to its connection with the given starting
// identity.
func NewSession(c Conn, userID int64) *Session {
	return &Session{Conn: c, UserID: userID}
}
