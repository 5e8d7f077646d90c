package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LeanderJDev/Shello/internal/core"
	"github.com/LeanderJDev/Shello/internal/proto"
)

const writeTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and runs the per-connection
// command loop against the dispatcher.
type WSHandler struct {
	dispatcher *core.Dispatcher
	lifecycle  *core.Lifecycle
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(dispatcher *core.Dispatcher, lifecycle *core.Lifecycle, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{dispatcher: dispatcher, lifecycle: lifecycle, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	wc := newWSConn(uuid.NewString(), conn, writeTimeout)
	sess := h.lifecycle.Connect(ctx, wc)
	// Membership sweep must run exactly once whichever way the loop
	// exits.
	defer h.lifecycle.Disconnect(sess)

	err = h.readLoop(ctx, conn, wc, sess)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, io.EOF) {
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			status = websocket.StatusInternalError
			reason = "read error"
			h.log.Warn().Err(err).Str("conn_id", wc.ID()).Msg("ws connection closed with error")
		}
	}
	conn.Close(status, reason)
}

// readLoop processes frames sequentially: one command in flight per
// connection, replies in processing order. A malformed frame gets an
// error reply and the connection stays open.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn, sess *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var cmd proto.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.log.Debug().Err(err).Str("conn_id", wc.ID()).Msg("invalid frame")
			if sendErr := wc.Send(proto.InvalidJSON); sendErr != nil {
				return sendErr
			}
			continue
		}

		reply := h.dispatcher.Dispatch(ctx, sess, cmd)
		frame, err := json.Marshal(reply)
		if err != nil {
			h.log.Error().Err(err).Str("func", cmd.Func).Msg("marshal reply")
			continue
		}
		if err := wc.Send(frame); err != nil {
			return err
		}
	}
}
