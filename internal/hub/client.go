package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
)

// The methods below wrap the message protocol for callers that want a plain
// request/response API bounded by ctx.

func (h *Hub) Create(ctx context.Context, host engine.Player, at time.Time) (*lobby.Lobby, error) {
	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateLobby{Host: host, At: at, Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.Lobby, res.Err
}

// Get resolves a room code, failing with engine.ErrRoomNotFound.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, engine.ErrRoomNotFound
	}
	return lb, nil
}

// ForPlayer resolves the room a player belongs to, failing with
// engine.ErrPlayerNotFound.
func (h *Hub) ForPlayer(ctx context.Context, playerID string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, LookupPlayer{PlayerID: playerID, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, engine.ErrPlayerNotFound
	}
	return lb, nil
}

func (h *Hub) Restore(ctx context.Context, s engine.State, version int) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, RestoreLobby{State: s, Version: version, Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) Bind(ctx context.Context, playerID, code string) error {
	return h.send(ctx, BindPlayer{PlayerID: playerID, Code: code})
}

func (h *Hub) Unbind(ctx context.Context, playerID string) error {
	return h.send(ctx, UnbindPlayer{PlayerID: playerID})
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.send(ctx, RemoveLobby{Code: code})
}

func (h *Hub) Shutdown(ctx context.Context) error {
	return h.send(ctx, ShutdownHub{})
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return lobby.ErrClosed
	}
}

func await[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, lobby.ErrClosed
	}
}
