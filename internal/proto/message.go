package proto

// Command is the envelope for frames coming from the client. Fields are
// flat: every command carries "func" plus the fields its handler needs.
// ID fields are pointers so a missing field can be told apart from 0.
type Command struct {
	Func      string `json:"func"`
	Username  string `json:"username,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	RoomID    *int64 `json:"room_id,omitempty"`
	Text      string `json:"text,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	MessageID *int64 `json:"message_id,omitempty"`
}

const (
	FuncCreateUser           = "create_user"
	FuncLoginAs              = "login_as"
	FuncNameofUser           = "nameof_user"
	FuncCreateRoom           = "create_room"
	FuncGetRooms             = "get_rooms"
	FuncGetMessages          = "get_messages"
	FuncSendMessage          = "send_message"
	FuncMsg                  = "msg" // alias for send_message
	FuncEditRoomName         = "edit_room_name"
	FuncJoinRoom             = "join_room"
	FuncLeaveRoom            = "leave_room"
	FuncPostReadConfirmation = "post_readconfirmation"
	FuncConfirmAll           = "confirm_all"
	FuncGetReadConfirmation  = "get_readconfirmation"
	FuncDeleteMsg            = "delete_msg"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Reply is sent to the caller exactly once per command. Response echoes
// the originating func name; there is no request id.
type Reply struct {
	Result   any     `json:"result"`
	Error    *string `json:"error"`
	Status   string  `json:"status"`
	Response string  `json:"response"`
}

// OK builds a success reply for the given func name.
func OK(fn string, result any) Reply {
	return Reply{Result: result, Status: StatusOK, Response: fn}
}

// Fail builds an error reply for the given func name.
func Fail(fn, msg string) Reply {
	return Reply{Error: &msg, Status: StatusError, Response: fn}
}

const (
	EventRoomCreated        = "room_created"
	EventRoomUpdated        = "room_updated"
	EventNewMessage         = "new_message"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventReadConfirmUpdated = "readconfirmation_updated"
	EventMessageDeleted     = "message_deleted"
)

// Event is the envelope for unsolicited room-scoped notifications.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// RoomPayload describes a created or renamed room.
type RoomPayload struct {
	RoomID   int64  `json:"room_id"`
	RoomName string `json:"room_name"`
}

// UserJoinedPayload announces a user joining a room.
type UserJoinedPayload struct {
	RoomID   int64  `json:"room_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// UserLeftPayload announces a user leaving a room, by command or by
// disconnect.
type UserLeftPayload struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

// NewMessagePayload carries the freshly stored message.
type NewMessagePayload struct {
	Message any `json:"message"`
}

// ReadConfirmationPayload carries the new confirmer total for a message.
type ReadConfirmationPayload struct {
	MessageID int64 `json:"message_id"`
	ReadBy    int   `json:"read_by"`
}

// MessageDeletedPayload announces a deleted message to its room.
type MessageDeletedPayload struct {
	MessageID int64 `json:"message_id"`
	RoomID    int64 `json:"room_id"`
}

// InvalidJSON is the raw reply for frames that fail to decode. It has no
// response field because the func name is unknown at that point.
var InvalidJSON = []byte(`{"error":"Invalid JSON","status":"error"}`)
