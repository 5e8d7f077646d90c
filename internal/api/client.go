// Package api is the typed client for the Shello REST data service. All
// durable state (users, rooms, messages, read confirmations) lives
// behind it; the relay never persists anything locally.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is the data-service surface the dispatcher depends on.
type Client interface {
	CreateUser(ctx context.Context, name string) (User, error)
	Users(ctx context.Context) ([]User, error)
	UserByName(ctx context.Context, name string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, userID int64, name string) (Room, error)
	Rooms(ctx context.Context) ([]Room, error)
	RenameRoom(ctx context.Context, roomID int64, name string) error
	DeleteRoom(ctx context.Context, roomID int64) error

	CreateMessage(ctx context.Context, userID, roomID int64, text string) error
	Messages(ctx context.Context, roomID int64) ([]Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error

	ConfirmRead(ctx context.Context, messageID, userID int64) (created bool, err error)
	ReadConfirmations(ctx context.Context, messageID int64) ([]ReadConfirmation, error)
}

// HTTP implements Client against the real service.
type HTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zerolog.Logger
}

// NewHTTP builds a client for the service at baseURL. Timeout bounds
// every request so a stalled call delays only the issuing connection.
func NewHTTP(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     logger,
	}
}

func (h *HTTP) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := h.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("api-key", h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	h.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("data api request")

	// The service reports failures in the body, not always in the
	// status code. An {"error": ...} payload wins either way.
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		return &APIError{Detail: apiErr.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (h *HTTP) CreateUser(ctx context.Context, name string) (User, error) {
	var u User
	err := h.do(ctx, http.MethodPost, "/user", nil, map[string]any{"Username": name}, &u)
	if err == nil && u.Name == "" {
		u.Name = name
	}
	return u, err
}

func (h *HTTP) Users(ctx context.Context) ([]User, error) {
	var users []User
	err := h.do(ctx, http.MethodGet, "/user", nil, nil, &users)
	return users, err
}

func (h *HTTP) UserByName(ctx context.Context, name string) (User, error) {
	users, err := h.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Name == name {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (h *HTTP) UserByID(ctx context.Context, id int64) (User, error) {
	users, err := h.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (h *HTTP) DeleteUser(ctx context.Context, id int64) error {
	return h.do(ctx, http.MethodDelete, "/user", nil, map[string]any{"UserID": id}, nil)
}

func (h *HTTP) CreateRoom(ctx context.Context, userID int64, name string) (Room, error) {
	var r Room
	body := map[string]any{"UserID": userID, "Roomname": name}
	err := h.do(ctx, http.MethodPost, "/rooms", nil, body, &r)
	if err == nil && r.Name == "" {
		r.Name = name
	}
	return r, err
}

func (h *HTTP) Rooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	err := h.do(ctx, http.MethodGet, "/rooms", nil, nil, &rooms)
	return rooms, err
}

func (h *HTTP) RenameRoom(ctx context.Context, roomID int64, name string) error {
	return h.do(ctx, http.MethodPatch, "/rooms", nil, map[string]any{"RoomID": roomID, "Name": name}, nil)
}

func (h *HTTP) DeleteRoom(ctx context.Context, roomID int64) error {
	return h.do(ctx, http.MethodDelete, "/rooms", nil, map[string]any{"RoomID": roomID}, nil)
}

func (h *HTTP) CreateMessage(ctx context.Context, userID, roomID int64, text string) error {
	body := map[string]any{"UserID": userID, "RoomID": roomID, "Message": text}
	return h.do(ctx, http.MethodPost, "/messages", nil, body, nil)
}

func (h *HTTP) Messages(ctx context.Context, roomID int64) ([]Message, error) {
	var msgs []Message
	q := url.Values{"RoomID": {strconv.FormatInt(roomID, 10)}}
	err := h.do(ctx, http.MethodGet, "/messages", q, nil, &msgs)
	return msgs, err
}

func (h *HTTP) DeleteMessage(ctx context.Context, messageID int64) error {
	return h.do(ctx, http.MethodDelete, "/messages", nil, map[string]any{"MessageID": messageID}, nil)
}

func (h *HTTP) ConfirmRead(ctx context.Context, messageID, userID int64) (bool, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]any{"MessageID": messageID, "UserID": userID}
	if err := h.do(ctx, http.MethodPost, "/readconfirmation", nil, body, &resp); err != nil {
		return false, err
	}
	return confirmationCreated(resp.Message), nil
}

func (h *HTTP) ReadConfirmations(ctx context.Context, messageID int64) ([]ReadConfirmation, error) {
	var confs []ReadConfirmation
	q := url.Values{"MessageID": {strconv.FormatInt(messageID, 10)}}
	err := h.do(ctx, http.MethodGet, "/readconfirmation", q, nil, &confs)
	return confs, err
}

// confirmationCreated tells a freshly inserted confirmation apart from
// an "already exists" response. The service only signals this through
// its human-readable message.
func confirmationCreated(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "created") && !strings.Contains(m, "exist")
}
