package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/LeanderJDev/Shello/internal/api"
	"github.com/LeanderJDev/Shello/internal/log"
	"github.com/LeanderJDev/Shello/internal/proto"
)

// fakeConn records every frame pushed to it.
type fakeConn struct {
	id       string
	failSend bool

	mu     sync.Mutex
	frames [][]byte
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	if c.failSend {
		return errors.New("send failed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// events decodes everything the connection received as event frames.
func (c *fakeConn) events(t *testing.T) []proto.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]proto.Event, 0, len(c.frames))
	for _, frame := range c.frames {
		var ev proto.Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("decode event frame %q: %v", frame, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) eventsNamed(t *testing.T, name string) []proto.Event {
	t.Helper()
	var out []proto.Event
	for _, ev := range c.events(t) {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

// fakeAPI is an in-memory stand-in for the data service. It records
// the operations invoked so tests can assert a handler never reached
// the API.
type fakeAPI struct {
	mu       sync.Mutex
	users    []api.User
	rooms    []api.Room
	messages map[int64][]api.Message
	confirms map[int64][]api.ReadConfirmation
	calls    []string
	failWith error

	nextID int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages: make(map[int64][]api.Message),
		confirms: make(map[int64][]api.ReadConfirmation),
		nextID:   100,
	}
}

func (f *fakeAPI) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failWith
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) CreateUser(ctx context.Context, name string) (api.User, error) {
	if err := f.record("CreateUser"); err != nil {
		return api.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := api.User{ID: f.nextID, Name: name}
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeAPI) Users(ctx context.Context) ([]api.User, error) {
	if err := f.record("Users"); err != nil {
		return nil, err
	}
	return f.users, nil
}

func (f *fakeAPI) UserByName(ctx context.Context, name string) (api.User, error) {
	if err := f.record("UserByName"); err != nil {
		return api.User{}, err
	}
	for _, u := range f.users {
		if u.Name == name {
			return u, nil
		}
	}
	return api.User{}, api.ErrUserNotFound
}

func (f *fakeAPI) UserByID(ctx context.Context, id int64) (api.User, error) {
	if err := f.record("UserByID"); err != nil {
		return api.User{}, err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return api.User{}, api.ErrUserNotFound
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int64) error {
	return f.record("DeleteUser")
}

func (f *fakeAPI) CreateRoom(ctx context.Context, userID int64, name string) (api.Room, error) {
	if err := f.record("CreateRoom"); err != nil {
		return api.Room{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r := api.Room{ID: f.nextID, Name: name, UserID: userID}
	f.rooms = append(f.rooms, r)
	return r, nil
}

func (f *fakeAPI) Rooms(ctx context.Context) ([]api.Room, error) {
	if err := f.record("Rooms"); err != nil {
		return nil, err
	}
	return f.rooms, nil
}

func (f *fakeAPI) RenameRoom(ctx context.Context, roomID int64, name string) error {
	if err := f.record("RenameRoom"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rooms {
		if f.rooms[i].ID == roomID {
			f.rooms[i].Name = name
		}
	}
	return nil
}

func (f *fakeAPI) DeleteRoom(ctx context.Context, roomID int64) error {
	return f.record("DeleteRoom")
}

func (f *fakeAPI) CreateMessage(ctx context.Context, userID, roomID int64, text string) error {
	if err := f.record("CreateMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages[roomID] = append(f.messages[roomID], api.Message{
		MessageID: f.nextID,
		UserID:    userID,
		RoomID:    roomID,
		Message:   text,
	})
	return nil
}

func (f *fakeAPI) Messages(ctx context.Context, roomID int64) ([]api.Message, error) {
	if err := f.record("Messages"); err != nil {
		return nil, err
	}
	return f.messages[roomID], nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, messageID int64) error {
	return f.record("DeleteMessage")
}

func (f *fakeAPI) ConfirmRead(ctx context.Context, messageID, userID int64) (bool, error) {
	if err := f.record("ConfirmRead"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.confirms[messageID] {
		if c.UserID == userID {
			return false, nil
		}
	}
	f.confirms[messageID] = append(f.confirms[messageID], api.ReadConfirmation{MessageID: messageID, UserID: userID})
	return true, nil
}

func (f *fakeAPI) ReadConfirmations(ctx context.Context, messageID int64) ([]api.ReadConfirmation, error) {
	if err := f.record("ReadConfirmations"); err != nil {
		return nil, err
	}
	return f.confirms[messageID], nil
}

// newTestDispatcher wires a dispatcher over fakes and returns the
// pieces tests poke at.
func newTestDispatcher(f *fakeAPI) (*Dispatcher, *Registry, *Broadcaster) {
	logger := log.Nop()
	reg := NewRegistry()
	bc := NewBroadcaster(reg, logger)
	return NewDispatcher(f, reg, bc, logger), reg, bc
}

func mustOK(t *testing.T, reply proto.Reply) {
	t.Helper()
	if reply.Status != proto.StatusOK {
		t.Fatalf("expected ok reply, got %+v", reply)
	}
}

func mustFail(t *testing.T, reply proto.Reply, wantErr string) {
	t.Helper()
	if reply.Status != proto.StatusError {
		t.Fatalf("expected error reply, got %+v", reply)
	}
	if wantErr != "" && (reply.Error == nil || *reply.Error != wantErr) {
		t.Fatalf("expected error %q, got %+v", wantErr, reply.Error)
	}
}
