package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/api"
	"github.com/LeanderJDev/Shello/internal/proto"
)

// Lifecycle owns connection setup and teardown: assigning the guest
// identity on connect and sweeping memberships on disconnect.
type Lifecycle struct {
	api api.Client
	reg *Registry
	bc  *Broadcaster
	log *zerolog.Logger
}

// NewLifecycle wires the lifecycle manager to its collaborators.
func NewLifecycle(client api.Client, reg *Registry, bc *Broadcaster, logger *zerolog.Logger) *Lifecycle {
	return &Lifecycle{api: client, reg: reg, bc: bc, log: logger}
}

// Connect builds the session for a freshly accepted connection. The
// session starts as the well-known guest user; if that lookup fails
// the session falls back to id 0 and the connection proceeds anyway.
func (l *Lifecycle) Connect(ctx context.Context, c Conn) *Session {
	userID := GuestUserID
	if user, err := l.api.UserByName(ctx, "guest"); err == nil {
		userID = user.ID
	} else {
		l.log.Warn().Err(err).Str("conn_id", c.ID()).Msg("guest lookup failed, using fallback id")
	}

	l.log.Info().Str("conn_id", c.ID()).Int64("user_id", userID).Msg("connection established")
	return NewSession(c, userID)
}

// Disconnect removes the session's connection from every room it
// joined and announces the departure to each. It runs at most once per
// session and never fails; a broadcast error for one room must not
// stop the sweep of the others.
func (l *Lifecycle) Disconnect(sess *Session) {
	sess.cleanup.Do(func() {
		rooms := l.reg.RoomsOf(sess.Conn)
		for _, roomID := range rooms {
			l.reg.Leave(sess.Conn, roomID)
			l.bc.Broadcast(roomID, proto.EventUserLeft, proto.UserLeftPayload{
				RoomID: roomID,
				UserID: sess.UserID,
			})
		}
		l.log.Info().
			Str("conn_id", sess.Conn.ID()).
			Int64("user_id", sess.UserID).
			Int("rooms", len(rooms)).
			Msg("connection cleaned up")
	})
}
