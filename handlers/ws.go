// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gstrauss42/planning-poker/broadcast"
	"github.com/gstrauss42/planning-poker/engine"
	"github.com/gstrauss42/planning-poker/models"
	"github.com/gstrauss42/planning-poker/presence"
)

type WSHandler struct {
	engine     *engine.Engine
	registry   *presence.Registry
	dispatcher *broadcast.Dispatcher
	upgrader   websocket.Upgrader
}

func NewWSHandler(eng *engine.Engine, reg *presence.Registry, disp *broadcast.Dispatcher) *WSHandler {
	return &WSHandler{
		engine:     eng,
		registry:   reg,
		dispatcher: disp,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The CORS middleware already gates browser origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect handles GET /session/ws: upgrades the connection, registers
// presence, subscribes to the broadcast channel, and pumps messages
// until the client goes away.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	connID := uuid.NewString()

	h.registry.AddConnection(ctx, connID)
	defer h.registry.RemoveConnection(ctx, connID)

	subID, ch := h.dispatcher.Subscribe()
	defer h.dispatcher.Unsubscribe(subID)

	slog.Info("subscriber connected", "connection_id", connID)

	// Writes come from both the broadcast pump and error frames in the
	// read loop; serialize them.
	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	applier := broadcast.NewApplier()

	// Initial snapshot so a late joiner is caught up immediately.
	snapshot := models.BroadcastMessage{
		Action:       "state_update",
		ChangeAction: "snapshot",
		State:        h.engine.GetBroadcastState(ctx),
		Timestamp:    time.Now(),
		BroadcastID:  uuid.NewString(),
	}
	applier.Apply(snapshot)
	if err := writeJSON(snapshot); err != nil {
		slog.Warn("failed to send initial snapshot", "connection_id", connID, "error", err)
		return
	}

	h.dispatcher.Publish(models.ActionPresenceChanged, h.engine.GetBroadcastState(ctx))
	defer func() {
		h.dispatcher.Publish(models.ActionPresenceChanged, h.engine.GetBroadcastState(ctx))
	}()

	// Broadcast pump. Presence-only notifications bypass the applier:
	// they reuse the current state version, which the version rule
	// would otherwise discard.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			if msg.ChangeAction != models.ActionPresenceChanged && !applier.Apply(msg) {
				continue
			}
			if err := writeJSON(msg); err != nil {
				return
			}
		}
	}()

	// Read loop: heartbeats and votes over the socket.
	for {
		var cm models.ClientMessage
		if err := conn.ReadJSON(&cm); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "connection_id", connID, "error", err)
			}
			break
		}

		switch cm.Type {
		case "heartbeat":
			h.registry.Heartbeat(ctx, connID)
		case "vote":
			if cm.User == "" || cm.Vote == nil {
				continue
			}
			if _, err := h.engine.AddVote(ctx, cm.User, *cm.Vote, cm.ExpectedVersion); err != nil {
				_ = writeJSON(models.ErrorResponse{Error: "vote_rejected", Message: err.Error()})
				continue
			}
			// Bind the voter to this exact connection; the engine only
			// knows "most recent".
			h.registry.AssociateUser(ctx, connID, cm.User)
		default:
			slog.Debug("ignoring unknown client message", "type", cm.Type)
		}
	}

	// Unsubscribing closes the broadcast channel, which ends the pump.
	h.dispatcher.Unsubscribe(subID)
	<-done
	slog.Info("subscriber disconnected", "connection_id", connID)
}
