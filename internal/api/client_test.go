package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := zerolog.New(io.Discard)
	return NewHTTP(ts.URL, "secret", 5*time.Second, &logger)
}

func TestRequestCarriesAPIKeyAndJSONBody(t *testing.T) {
	var gotKey, gotContentType, gotPath, gotMethod string
	var gotBody map[string]any

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"ID": 12, "Name": "alice"})
	})

	user, err := client.CreateUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != 12 || user.Name != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if gotKey != "secret" || gotContentType != "application/json" {
		t.Fatalf("headers: api-key=%q content-type=%q", gotKey, gotContentType)
	}
	if gotMethod != http.MethodPost || gotPath != "/user" {
		t.Fatalf("request: %s %s", gotMethod, gotPath)
	}
	if gotBody["Username"] != "alice" {
		t.Fatalf("body: %+v", gotBody)
	}
}

func TestErrorBodyWinsOverSuccessStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 200 with an error payload must still fail.
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "room missing"})
	})

	_, err := client.Rooms(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Detail != "room missing" {
		t.Fatalf("detail = %q", apiErr.Detail)
	}
}

func TestNonSuccessStatusBecomesAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.CreateMessage(context.Background(), 1, 2, "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestUserLookupsAcceptFieldVariants(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The service is inconsistent about key names across
		// deployments; both spellings must decode.
		_, _ = w.Write([]byte(`[{"ID":1,"Name":"alice"},{"UserID":2,"Username":"bob"}]`))
	})

	bob, err := client.UserByName(context.Background(), "bob")
	if err != nil {
		t.Fatalf("UserByName: %v", err)
	}
	if bob.ID != 2 {
		t.Fatalf("bob id = %d, want 2", bob.ID)
	}

	alice, err := client.UserByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if alice.Name != "alice" {
		t.Fatalf("alice name = %q", alice.Name)
	}

	if _, err := client.UserByName(context.Background(), "carol"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMessagesSendsRoomQuery(t *testing.T) {
	var gotRoomID string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRoomID = r.URL.Query().Get("RoomID")
		_, _ = w.Write([]byte(`[{"MessageID":9,"UserID":1,"RoomID":7,"Message":"hi"}]`))
	})

	msgs, err := client.Messages(context.Background(), 7)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if gotRoomID != "7" {
		t.Fatalf("RoomID query = %q", gotRoomID)
	}
	if len(msgs) != 1 || msgs[0].MessageID != 9 || msgs[0].Message != "hi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestConfirmReadDetectsNewRecord(t *testing.T) {
	responses := []string{
		`{"message":"Readconfirmation created"}`,
		`{"message":"Readconfirmation already exists"}`,
	}
	i := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[i]))
		i++
	})

	created, err := client.ConfirmRead(context.Background(), 1, 2)
	if err != nil || !created {
		t.Fatalf("first confirm: created=%v err=%v", created, err)
	}
	created, err = client.ConfirmRead(context.Background(), 1, 2)
	if err != nil || created {
		t.Fatalf("second confirm: created=%v err=%v", created, err)
	}
}

func TestRoomDecodeAcceptsNameVariants(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"ID":1,"Roomname":"general"},{"RoomID":2,"Name":"random"}]`))
	})

	rooms, err := client.Rooms(context.Background())
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms", len(rooms))
	}
	if rooms[0].ID != 1 || rooms[0].Name != "general" {
		t.Fatalf("room 0: %+v", rooms[0])
	}
	if rooms[1].ID != 2 || rooms[1].Name != "random" {
		t.Fatalf("room 1: %+v", rooms[1])
	}
}

func TestRenameAndDeleteUseBodyIdentifiers(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var calls []call
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{method: r.Method, path: r.URL.Path, body: body})
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	if err := client.RenameRoom(ctx, 7, "renamed"); err != nil {
		t.Fatalf("RenameRoom: %v", err)
	}
	if err := client.DeleteMessage(ctx, 9); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := client.DeleteRoom(ctx, 7); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if err := client.DeleteUser(ctx, 3); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	want := []call{
		{http.MethodPatch, "/rooms", map[string]any{"RoomID": float64(7), "Name": "renamed"}},
		{http.MethodDelete, "/messages", map[string]any{"MessageID": float64(9)}},
		{http.MethodDelete, "/rooms", map[string]any{"RoomID": float64(7)}},
		{http.MethodDelete, "/user", map[string]any{"UserID": float64(3)}},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i, w := range want {
		got := calls[i]
		if got.method != w.method || got.path != w.path {
			t.Fatalf("call %d: %s %s, want %s %s", i, got.method, got.path, w.method, w.path)
		}
		for k, v := range w.body {
			if got.body[k] != v {
				t.Fatalf("call %d body[%s] = %v, want %v", i, k, got.body[k], v)
			}
		}
	}
}
