package api

import "encoding/json"

// The data service is loose about field names across endpoints (ID vs
// UserID, Name vs Username vs Roomname). Each record type normalizes
// the variants in UnmarshalJSON so the rest of the server sees one
// shape.

// User is a user record as returned by the /user endpoints.
type User struct {
	ID   int64  `json:"ID"`
	Name string `json:"Name"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       *int64 `json:"ID"`
		UserID   *int64 `json:"UserID"`
		Name     string `json:"Name"`
		Username string `json:"Username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID != nil:
		u.ID = *raw.ID
	case raw.UserID != nil:
		u.ID = *raw.UserID
	}
	u.Name = raw.Name
	if u.Name == "" {
		u.Name = raw.Username
	}
	return nil
}

// Room is a room record as returned by the /rooms endpoints.
type Room struct {
	ID     int64  `json:"ID"`
	Name   string `json:"Roomname"`
	UserID int64  `json:"UserID"`
}

func (r *Room) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       *int64 `json:"ID"`
		RoomID   *int64 `json:"RoomID"`
		Roomname string `json:"Roomname"`
		Name     string `json:"Name"`
		UserID   int64  `json:"UserID"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID != nil:
		r.ID = *raw.ID
	case raw.RoomID != nil:
		r.ID = *raw.RoomID
	}
	r.Name = raw.Roomname
	if r.Name == "" {
		r.Name = raw.Name
	}
	r.UserID = raw.UserID
	return nil
}

// Message is a message record as returned by GET /messages.
type Message struct {
	MessageID int64  `json:"MessageID"`
	UserID    int64  `json:"UserID"`
	RoomID    int64  `json:"RoomID"`
	Message   string `json:"Message"`
	CreatedAt string `json:"CreatedAt,omitempty"`
}

// ReadConfirmation records that a user has seen a message.
type ReadConfirmation struct {
	MessageID int64 `json:"MessageID"`
	UserID    int64 `json:"UserID"`
}

// APIError is an error reported by the data service itself, either as
// an {"error": ...} body or as a non-success HTTP status.
type APIError struct {
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

// ErrUserNotFound is returned by the lookup helpers when no user
// matches; callers distinguish it from transport failures.
var ErrUserNotFound = &APIError{Detail: "user not found"}
