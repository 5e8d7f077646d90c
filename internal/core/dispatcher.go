// Package core holds the relay's live state and behavior: the room
// membership registry, the event broadcaster, and the dispatcher that
// turns client commands into data-service calls and room events.
package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/api"
	"github.com/LeanderJDev/Shello/internal/proto"
)

// Dispatcher maps one inbound command to exactly one reply plus at
// most one room broadcast. Broadcasts fire only after the underlying
// data mutation succeeded, and their delivery failures never change
// the reply.
type Dispatcher struct {
	api api.Client
	reg *Registry
	bc  *Broadcaster
	log *zerolog.Logger
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(client api.Client, reg *Registry, bc *Broadcaster, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{api: client, reg: reg, bc: bc, log: logger}
}

type userResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type roomResult struct {
	RoomID   int64  `json:"room_id"`
	RoomName string `json:"room_name,omitempty"`
}

type roomListing struct {
	RoomID      int64  `json:"room_id"`
	RoomName    string `json:"room_name"`
	MemberCount int    `json:"member_count"`
}

type messageView struct {
	api.Message
	ReadBy   int  `json:"ReadBy"`
	ReadSelf bool `json:"ReadSelf"`
}

// Dispatch processes one decoded command for the given session. It
// always returns a reply; the caller writes it to the session's
// connection.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	reply := d.dispatch(ctx, sess, cmd)

	evt := d.log.Debug().
		Str("conn_id", sess.Conn.ID()).
		Int64("user_id", sess.UserID).
		Str("func", cmd.Func).
		Str("status", reply.Status)
	if reply.Error != nil {
		evt = evt.Str("error", *reply.Error)
	}
	evt.Msg("command handled")

	return reply
}

func (d *Dispatcher) dispatch(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	switch cmd.Func {
	case proto.FuncCreateUser:
		return d.createUser(ctx, sess, cmd)
	case proto.FuncLoginAs:
		return d.loginAs(ctx, sess, cmd)
	case proto.FuncNameofUser:
		return d.nameofUser(ctx, cmd)
	case proto.FuncCreateRoom:
		return d.createRoom(ctx, sess, cmd)
	case proto.FuncGetRooms:
		return d.getRooms(ctx, cmd)
	case proto.FuncGetMessages:
		return d.getMessages(ctx, sess, cmd)
	case proto.FuncMsg, proto.FuncSendMessage:
		return d.sendMessage(ctx, sess, cmd)
	case proto.FuncEditRoomName:
		return d.editRoomName(ctx, cmd)
	case proto.FuncJoinRoom:
		return d.joinRoom(ctx, sess, cmd)
	case proto.FuncLeaveRoom:
		return d.leaveRoom(sess, cmd)
	case proto.FuncPostReadConfirmation:
		return d.postReadConfirmation(ctx, sess, cmd)
	case proto.FuncConfirmAll:
		return d.confirmAll(ctx, sess, cmd)
	case proto.FuncGetReadConfirmation:
		return d.getReadConfirmation(ctx, cmd)
	case proto.FuncDeleteMsg:
		return d.deleteMsg(ctx, cmd)
	default:
		return proto.Fail(cmd.Func, "unknown function: "+cmd.Func)
	}
}

// dbFail wraps a data-service failure into the generic reply the
// client expects. The lookup-miss sentinel keeps its original wording.
func dbFail(fn string, err error) proto.Reply {
	if errors.Is(err, api.ErrUserNotFound) {
		return proto.Fail(fn, "User not found.")
	}
	return proto.Fail(fn, "db error: "+err.Error())
}

func (d *Dispatcher) createUser(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	name := strings.TrimSpace(cmd.Username)
	if name == "" {
		return proto.Fail(cmd.Func, "username is required")
	}
	if strings.EqualFold(name, "guest") {
		return proto.Fail(cmd.Func, `username "guest" is reserved`)
	}

	_, err := d.api.UserByName(ctx, name)
	if err == nil {
		return proto.Fail(cmd.Func, "user already exists")
	}
	if !errors.Is(err, api.ErrUserNotFound) {
		return dbFail(cmd.Func, err)
	}

	user, err := d.api.CreateUser(ctx, name)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	sess.UserID = user.ID
	return proto.OK(cmd.Func, userResult{UserID: user.ID, Username: user.Name})
}

func (d *Dispatcher) loginAs(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	name := strings.TrimSpace(cmd.Username)
	if name == "" {
		return proto.Fail(cmd.Func, "username is required")
	}

	user, err := d.api.UserByName(ctx, name)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	sess.UserID = user.ID
	return proto.OK(cmd.Func, userResult{UserID: user.ID, Username: user.Name})
}

func (d *Dispatcher) nameofUser(ctx context.Context, cmd proto.Command) proto.Reply {
	if cmd.UserID == nil {
		return proto.Fail(cmd.Func, "user_id is required")
	}

	user, err := d.api.UserByID(ctx, *cmd.UserID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}
	return proto.OK(cmd.Func, userResult{UserID: user.ID, Username: user.Name})
}

func (d *Dispatcher) createRoom(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	name := strings.TrimSpace(cmd.RoomName)
	if name == "" {
		return proto.Fail(cmd.Func, "room_name is required")
	}

	room, err := d.api.CreateRoom(ctx, sess.UserID, name)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	// Room-scoped like every other notice. A brand-new room has no
	// members yet, so this usually reaches nobody; the broadcaster
	// records it as a no-op.
	d.bc.Broadcast(room.ID, proto.EventRoomCreated, proto.RoomPayload{RoomID: room.ID, RoomName: room.Name})

	return proto.OK(cmd.Func, roomResult{RoomID: room.ID, RoomName: room.Name})
}

func (d *Dispatcher) getRooms(ctx context.Context, cmd proto.Command) proto.Reply {
	rooms, err := d.api.Rooms(ctx)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	listings := make([]roomListing, 0, len(rooms))
	for _, r := range rooms {
		listings = append(listings, roomListing{
			RoomID:      r.ID,
			RoomName:    r.Name,
			MemberCount: d.reg.MemberCount(r.ID),
		})
	}
	return proto.OK(cmd.Func, listings)
}

func (d *Dispatcher) getMessages(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}

	views, err := d.annotatedMessages(ctx, *cmd.RoomID, sess.UserID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}
	return proto.OK(cmd.Func, views)
}

// annotatedMessages loads a room's messages and derives ReadBy and
// ReadSelf for the given user from the confirmation records.
func (d *Dispatcher) annotatedMessages(ctx context.Context, roomID, userID int64) ([]messageView, error) {
	msgs, err := d.api.Messages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		confs, err := d.api.ReadConfirmations(ctx, m.MessageID)
		if err != nil {
			return nil, err
		}
		view := messageView{Message: m, ReadBy: len(confs)}
		for _, c := range confs {
			if c.UserID == userID {
				view.ReadSelf = true
				break
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	roomID := *cmd.RoomID
	if roomID <= 0 {
		return proto.Fail(cmd.Func, "no room selected")
	}
	if strings.TrimSpace(cmd.Text) == "" {
		return proto.Fail(cmd.Func, "text is required")
	}

	if err := d.api.CreateMessage(ctx, sess.UserID, roomID, cmd.Text); err != nil {
		return dbFail(cmd.Func, err)
	}

	msgs, err := d.api.Messages(ctx, roomID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		d.bc.Broadcast(roomID, proto.EventNewMessage, proto.NewMessagePayload{Message: last})
	}

	return proto.OK(cmd.Func, msgs)
}

func (d *Dispatcher) editRoomName(ctx context.Context, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	name := strings.TrimSpace(cmd.NewName)
	if name == "" {
		return proto.Fail(cmd.Func, "new_name is required")
	}

	if err := d.api.RenameRoom(ctx, *cmd.RoomID, name); err != nil {
		return dbFail(cmd.Func, err)
	}

	d.bc.Broadcast(*cmd.RoomID, proto.EventRoomUpdated, proto.RoomPayload{RoomID: *cmd.RoomID, RoomName: name})
	return proto.OK(cmd.Func, roomResult{RoomID: *cmd.RoomID, RoomName: name})
}

func (d *Dispatcher) joinRoom(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	roomID := *cmd.RoomID

	rooms, err := d.api.Rooms(ctx)
	if err != nil {
		return dbFail(cmd.Func, err)
	}
	known := false
	for _, r := range rooms {
		if r.ID == roomID {
			known = true
			break
		}
	}
	if !known {
		return proto.Fail(cmd.Func, "room not found")
	}

	d.reg.Join(sess.Conn, roomID)

	username := "guest"
	if user, err := d.api.UserByID(ctx, sess.UserID); err == nil {
		username = user.Name
	}
	d.bc.Broadcast(roomID, proto.EventUserJoined, proto.UserJoinedPayload{
		RoomID:   roomID,
		UserID:   sess.UserID,
		Username: username,
	})

	return proto.OK(cmd.Func, roomResult{RoomID: roomID})
}

func (d *Dispatcher) leaveRoom(sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	roomID := *cmd.RoomID

	d.reg.Leave(sess.Conn, roomID)
	d.bc.Broadcast(roomID, proto.EventUserLeft, proto.UserLeftPayload{RoomID: roomID, UserID: sess.UserID})

	return proto.OK(cmd.Func, roomResult{RoomID: roomID})
}

func (d *Dispatcher) postReadConfirmation(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	if cmd.MessageID == nil {
		return proto.Fail(cmd.Func, "message_id is required")
	}
	messageID := *cmd.MessageID

	if _, err := d.api.ConfirmRead(ctx, messageID, sess.UserID); err != nil {
		return dbFail(cmd.Func, err)
	}
	confs, err := d.api.ReadConfirmations(ctx, messageID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	payload := proto.ReadConfirmationPayload{MessageID: messageID, ReadBy: len(confs)}
	d.bc.Broadcast(*cmd.RoomID, proto.EventReadConfirmUpdated, payload)
	return proto.OK(cmd.Func, payload)
}

func (d *Dispatcher) confirmAll(ctx context.Context, sess *Session, cmd proto.Command) proto.Reply {
	if cmd.RoomID == nil {
		return proto.Fail(cmd.Func, "room_id is required")
	}
	roomID := *cmd.RoomID

	msgs, err := d.api.Messages(ctx, roomID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}

	confirmed := 0
	for _, m := range msgs {
		created, err := d.api.ConfirmRead(ctx, m.MessageID, sess.UserID)
		if err != nil {
			d.log.Warn().Err(err).Int64("message_id", m.MessageID).Msg("confirm_all: skipping message")
			continue
		}
		if !created {
			continue
		}
		confirmed++

		confs, err := d.api.ReadConfirmations(ctx, m.MessageID)
		if err != nil {
			d.log.Warn().Err(err).Int64("message_id", m.MessageID).Msg("confirm_all: recount failed")
			continue
		}
		d.bc.Broadcast(roomID, proto.EventReadConfirmUpdated, proto.ReadConfirmationPayload{
			MessageID: m.MessageID,
			ReadBy:    len(confs),
		})
	}

	return proto.OK(cmd.Func, map[string]int{"confirmed": confirmed})
}

func (d *Dispatcher) getReadConfirmation(ctx context.Context, cmd proto.Command) proto.Reply {
	if cmd.MessageID == nil {
		return proto.Fail(cmd.Func, "message_id is required")
	}

	confs, err := d.api.ReadConfirmations(ctx, *cmd.MessageID)
	if err != nil {
		return dbFail(cmd.Func, err)
	}
	return proto.OK(cmd.Func, confs)
}

func (d *Dispatcher) deleteMsg(ctx context.Context, cmd proto.Command) proto.Reply {
	if cmd.MessageID == nil {
		return proto.Fail(cmd.Func, "message_id is required")
	}
	messageID := *cmd.MessageID

	if err := d.api.DeleteMessage(ctx, messageID); err != nil {
		return dbFail(cmd.Func, err)
	}

	// The room is optional here; without it there is nobody to notify.
	if cmd.RoomID != nil {
		d.bc.Broadcast(*cmd.RoomID, proto.EventMessageDeleted, proto.MessageDeletedPayload{
			MessageID: messageID,
			RoomID:    *cmd.RoomID,
		})
	}
	return proto.OK(cmd.Func, map[string]int64{"message_id": messageID})
}
