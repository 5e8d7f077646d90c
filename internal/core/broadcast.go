package core

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/proto"
)

// Broadcaster fans events out to room members. Delivery is best-effort
// and at-most-once: a recipient whose socket is gone is logged and
// skipped, never retried, and never fails the caller.
type Broadcaster struct {
	reg *Registry
	log *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over the given registry.
func NewBroadcaster(reg *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: logger}
}

// Broadcast delivers an event to every current member of roomID. The
// member snapshot is taken before any I/O so the registry lock is
// never held across a send.
func (b *Broadcaster) Broadcast(roomID int64, event string, payload any) {
	members := b.reg.MembersOf(roomID)
	if len(members) == 0 {
		b.log.Debug().Int64("room_id", roomID).Str("event", event).Msg("broadcast without listeners")
		return
	}

	frame, err := json.Marshal(proto.Event{Event: event, Payload: payload})
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("marshal broadcast event")
		return
	}

	for _, c := range members {
		if err := c.Send(frame); err != nil {
			b.log.Warn().Err(err).
				Str("conn_id", c.ID()).
				Int64("room_id", roomID).
				Str("event", event).
				Msg("broadcast delivery failed")
		}
	}
}

// Emit delivers an event to a single connection under the same
// fire-and-forget contract as Broadcast.
func (b *Broadcaster) Emit(c Conn, event string, payload any) {
	frame, err := json.Marshal(proto.Event{Event: event, Payload: payload})
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("marshal emit event")
		return
	}
	if err := c.Send(frame); err != nil {
		b.log.Warn().Err(err).Str("conn_id", c.ID()).Str("event", event).Msg("emit delivery failed")
	}
}
