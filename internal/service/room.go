package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/hub"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
)

const DefaultTimeout = 5 * time.Second

// RoomService is the request surface the transport layer talks to. It holds
// no per-caller session: every call names the room and the acting player.
type RoomService struct {
	hub     *hub.Hub
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

type Option func(*RoomService)

func WithLogger(log *zap.Logger) Option {
	return func(rs *RoomService) { rs.log = log }
}

func WithTimeout(d time.Duration) Option {
	return func(rs *RoomService) { rs.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(rs *RoomService) { rs.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(rs *RoomService) { rs.newID = gen }
}

func NewRoomService(h *hub.Hub, opts ...Option) *RoomService {
	rs := &RoomService{
		hub:     h,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		now:     time.Now,
		newID:   GenID,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Room is a point-in-time copy of one room.
type Room struct {
	State   engine.State
	Version int
}

func (rs *RoomService) CreateRoom(ctx context.Context, playerName string) (Room, engine.Player, error) {
	name, err := engine.NormalizeName(playerName)
	if err != nil {
		return Room{}, engine.Player{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	now := rs.now()
	player := engine.Player{ID: rs.newID(), Name: name, IsHost: true, JoinedAt: now}

	lb, err := rs.hub.Create(ctx, player, now)
	if err != nil {
		return Room{}, engine.Player{}, err
	}
	view, err := lb.View(ctx)
	if err != nil {
		return Room{}, engine.Player{}, err
	}
	return Room{State: view.State, Version: view.Version}, player, nil
}

func (rs *RoomService) JoinRoom(ctx context.Context, code, playerName string) (Room, engine.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	lb, err := rs.lobby(ctx, code)
	if err != nil {
		return Room{}, engine.Player{}, err
	}

	// Index the id before the join lands so the player is reachable as soon
	// as the room shows them.
	id := rs.newID()
	if err := rs.hub.Bind(ctx, id, code); err != nil {
		return Room{}, engine.Player{}, err
	}
	res, err := lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, PlayerID: id, Name: playerName, At: rs.now()})
	if err != nil {
		rs.abandonJoin(ctx, lb, id, err)
		return Room{}, engine.Player{}, err
	}

	player, _ := res.Snapshot.State.FindPlayer(id)
	rs.log.Info("player joined", zap.String("room_code", code), zap.String("player_id", id))
	return roomOf(res), player, nil
}

// abandonJoin drops the index entry of a join that failed. A rejected join
// never touched the room; any other failure may still land, so it is
// followed by a leave.
func (rs *RoomService) abandonJoin(ctx context.Context, lb *lobby.Lobby, id string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if engine.KindOf(cause) == "" {
		lctx, cancel := context.WithTimeout(ctx, rs.timeout)
		_, err := lb.Apply(lctx, engine.Command{Type: engine.CmdLeave, PlayerID: id, At: rs.now()})
		cancel()
		if err != nil && !errors.Is(err, lobby.ErrClosed) {
			rs.log.Warn("undo join failed", zap.String("room_code", lb.Code()), zap.String("player_id", id), zap.Error(err))
		}
	}
	rs.unbind(ctx, id)
}

func (rs *RoomService) GetRoom(ctx context.Context, code string) (Room, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	lb, err := rs.lobby(ctx, code)
	if err != nil {
		return Room{}, err
	}
	view, err := lb.View(ctx)
	if err != nil {
		return Room{}, err
	}
	return Room{State: view.State, Version: view.Version}, nil
}

func (rs *RoomService) Configure(ctx context.Context, code, playerID string, optional []character.Name) (Room, error) {
	return rs.apply(ctx, code, engine.Command{Type: engine.CmdConfigure, PlayerID: playerID, OptionalCharacters: optional})
}

func (rs *RoomService) Kick(ctx context.Context, code, requesterID, targetID string) (Room, error) {
	room, err := rs.apply(ctx, code, engine.Command{Type: engine.CmdKick, PlayerID: requesterID, TargetID: targetID})
	if err != nil {
		return Room{}, err
	}
	rs.unbind(ctx, targetID)
	rs.log.Info("player kicked", zap.String("room_code", code), zap.String("player_id", targetID))
	return room, nil
}

// Leave removes the player from the room. The last player to leave takes the
// room down with them: the lobby closes itself in the same step, so a join
// racing the leave fails instead of landing in a room about to be removed.
func (rs *RoomService) Leave(ctx context.Context, code, playerID string) (Room, error) {
	room, err := rs.apply(ctx, code, engine.Command{Type: engine.CmdLeave, PlayerID: playerID})
	if err != nil {
		return Room{}, err
	}
	rs.unbind(ctx, playerID)

	if room.State.PlayerCount() == 0 {
		ctx, cancel := context.WithTimeout(ctx, rs.timeout)
		defer cancel()
		if err := rs.hub.Remove(ctx, code); err != nil {
			return Room{}, err
		}
	}
	return room, nil
}

func (rs *RoomService) BackToLobby(ctx context.Context, code, playerID string) (Room, error) {
	return rs.apply(ctx, code, engine.Command{Type: engine.CmdBackToLobby, PlayerID: playerID})
}

func (rs *RoomService) StartGame(ctx context.Context, code, playerID string) (Room, error) {
	return rs.apply(ctx, code, engine.Command{Type: engine.CmdStartGame, PlayerID: playerID})
}

func (rs *RoomService) ResetGame(ctx context.Context, code, playerID string) (Room, error) {
	return rs.apply(ctx, code, engine.Command{Type: engine.CmdResetGame, PlayerID: playerID})
}

// AvailableCharacters returns the pool as seen by viewerID, which may be
// empty. The pool only exists once the host has configured the room.
func (rs *RoomService) AvailableCharacters(ctx context.Context, code, viewerID string) (engine.Pool, error) {
	room, err := rs.GetRoom(ctx, code)
	if err != nil {
		return engine.Pool{}, err
	}
	if room.State.Status == engine.StatusWaiting {
		return engine.Pool{}, engine.ErrInvalidStatus
	}
	return engine.ComputeAvailable(room.State, viewerID), nil
}

// SelectCharacter finds the player's room through the player index, so the
// caller only needs the player id.
func (rs *RoomService) SelectCharacter(ctx context.Context, playerID string, name character.Name) (Room, engine.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	lb, err := rs.hub.ForPlayer(ctx, playerID)
	if err != nil {
		return Room{}, engine.Player{}, err
	}
	res, err := lb.Apply(ctx, engine.Command{Type: engine.CmdSelectCharacter, PlayerID: playerID, Character: name, At: rs.now()})
	if err != nil {
		return Room{}, engine.Player{}, err
	}
	player, ok := res.Snapshot.State.FindPlayer(playerID)
	if !ok {
		return Room{}, engine.Player{}, engine.ErrPlayerNotFound
	}
	return roomOf(res), player, nil
}

// Reveal returns what playerID is allowed to know for the current round.
func (rs *RoomService) Reveal(ctx context.Context, playerID string) (engine.Reveal, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	lb, err := rs.hub.ForPlayer(ctx, playerID)
	if err != nil {
		return engine.Reveal{}, err
	}
	view, err := lb.View(ctx)
	if err != nil {
		return engine.Reveal{}, err
	}
	return engine.GetReveal(view.State, playerID)
}

// Restore re-registers rooms loaded from the store. Reveals are not stored,
// so started rooms get them recomputed from the saved selections.
func (rs *RoomService) Restore(ctx context.Context, rooms []Room) error {
	for _, r := range rooms {
		s := r.State
		if s.PlayerCount() == 0 {
			if err := rs.dropEmpty(ctx, s, r.Version); err != nil {
				return err
			}
			continue
		}
		if s.Status == engine.StatusStarted {
			s.Reveals = engine.ComputeReveals(s.Players)
		}
		if _, err := rs.hub.Restore(ctx, s, r.Version); err != nil {
			return err
		}
		rs.log.Info("room restored", zap.String("room_code", s.Code), zap.Int("version", r.Version))
	}
	return nil
}

// dropEmpty clears a saved room nobody is in. It goes through the hub so the
// store row is deleted the same way a live room's is.
func (rs *RoomService) dropEmpty(ctx context.Context, s engine.State, version int) error {
	if _, err := rs.hub.Restore(ctx, s, version); err != nil {
		return err
	}
	rs.log.Info("dropping empty saved room", zap.String("room_code", s.Code))
	return rs.hub.Remove(ctx, s.Code)
}

// Subscribe registers outbox for snapshots of the room identified by code.
// The returned function unsubscribes.
func (rs *RoomService) Subscribe(ctx context.Context, code, clientID string, outbox chan lobby.Snapshot) (func(), error) {
	lb, err := rs.lobby(ctx, code)
	if err != nil {
		return nil, err
	}
	select {
	case lb.Inbox() <- lobby.Subscribe{ClientID: clientID, Outbox: outbox}:
	case <-lb.Done():
		return nil, lobby.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() {
		select {
		case lb.Inbox() <- lobby.Unsubscribe{ClientID: clientID}:
		case <-lb.Done():
		}
	}, nil
}

func (rs *RoomService) apply(ctx context.Context, code string, cmd engine.Command) (Room, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	lb, err := rs.lobby(ctx, code)
	if err != nil {
		return Room{}, err
	}
	cmd.At = rs.now()
	res, err := lb.Apply(ctx, cmd)
	if err != nil {
		return Room{}, err
	}
	return roomOf(res), nil
}

func (rs *RoomService) lobby(ctx context.Context, code string) (*lobby.Lobby, error) {
	if !engine.ValidRoomCode(code) {
		return nil, engine.ErrInvalidRoomCode
	}
	return rs.hub.Get(ctx, code)
}

func (rs *RoomService) unbind(ctx context.Context, playerID string) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()
	if err := rs.hub.Unbind(ctx, playerID); err != nil {
		rs.log.Warn("unbind player failed", zap.String("player_id", playerID), zap.Error(err))
	}
}

func roomOf(res lobby.Result) Room {
	return Room{State: res.Snapshot.State, Version: res.Snapshot.Version}
}

// GenID returns a time-ordered but unguessable player id.
func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}
