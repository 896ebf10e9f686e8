package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")

type HubMsg interface{ isHubMsg() }

// CreateLobby allocates a fresh code, creates the room with Host as its only
// player and indexes the host.
type CreateLobby struct {
	Host  engine.Player
	At    time.Time
	Reply chan CreateResult
}

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RestoreLobby re-registers a room loaded from the store.
type RestoreLobby struct {
	State   engine.State
	Version int
	Reply   chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type BindPlayer struct {
	PlayerID string
	Code     string
}

type UnbindPlayer struct {
	PlayerID string
}

type LookupPlayer struct {
	PlayerID string
	Reply    chan *lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RestoreLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg()  {}
func (BindPlayer) isHubMsg()   {}
func (UnbindPlayer) isHubMsg() {}
func (LookupPlayer) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Store is what the hub needs from persistence: lobbies save through it and
// removed rooms are deleted from it.
type Store interface {
	lobby.Persister
	DeleteRoom(ctx context.Context, code string) error
}

type Option func(*Hub)

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

func WithStore(s Store) Option {
	return func(h *Hub) { h.store = s }
}

// WithCodeGenerator replaces the random room code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(h *Hub) { h.genCode = gen }
}

const (
	maxCodeAttempts = 100
	storeTimeout    = 2 * time.Second
)

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	players map[string]string // player id -> room code
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
	store   Store
	genCode func() (string, error)
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		players: make(map[string]string),
		ctx:     ctx,
		cancel:  cancel,
		log:     zap.NewNop(),
		genCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create(msg)

			case GetLobby:
				msg.Reply <- live(h.lobbies[msg.Code]) // May be nil

			case RestoreLobby:
				if lb := h.lobbies[msg.State.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := h.newLobby(msg.State, lobby.WithVersion(msg.Version))
				for _, p := range msg.State.Players {
					h.players[p.ID] = msg.State.Code
				}
				msg.Reply <- lb

			case RemoveLobby:
				h.remove(msg.Code)

			case BindPlayer:
				if live(h.lobbies[msg.Code]) != nil {
					h.players[msg.PlayerID] = msg.Code
				}

			case UnbindPlayer:
				delete(h.players, msg.PlayerID)

			case LookupPlayer:
				msg.Reply <- live(h.lobbies[h.players[msg.PlayerID]]) // May be nil

			case ShutdownHub:
				for _, lb := range h.lobbies {
					stopLobby(lb)
				}
				clear(h.lobbies)
				clear(h.players)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(msg CreateLobby) CreateResult {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := h.genCode()
		if err != nil {
			return CreateResult{Err: err}
		}
		if h.lobbies[code] != nil {
			h.log.Debug("collision on code, regenerating", zap.String("room_code", code))
			continue
		}

		state := engine.NewRoomState(code, msg.Host, msg.At)
		lb := h.newLobby(state)
		h.players[msg.Host.ID] = code
		if h.store != nil {
			ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
			if err := h.store.SaveRoom(ctx, state, 0); err != nil {
				h.log.Warn("persist new room failed", zap.String("room_code", code), zap.Error(err))
			}
			cancel()
		}
		h.log.Info("room created", zap.String("room_code", code), zap.String("player_id", msg.Host.ID))
		return CreateResult{Lobby: lb}
	}
	return CreateResult{Err: ErrCodeSpaceExhausted}
}

func (h *Hub) newLobby(s engine.State, opts ...lobby.Option) *lobby.Lobby {
	opts = append(opts, lobby.WithLogger(h.log))
	if h.store != nil {
		opts = append(opts, lobby.WithPersister(h.store))
	}
	lb := lobby.NewLobby(h.ctx, s, opts...)
	h.lobbies[s.Code] = lb
	return lb
}

func (h *Hub) remove(code string) {
	lb := h.lobbies[code]
	if lb == nil {
		return
	}
	stopLobby(lb)
	delete(h.lobbies, code)
	for id, c := range h.players {
		if c == code {
			delete(h.players, id)
		}
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
		defer cancel()
		if err := h.store.DeleteRoom(ctx, code); err != nil {
			h.log.Warn("delete room from store failed", zap.String("room_code", code), zap.Error(err))
		}
	}
	h.log.Info("room removed", zap.String("room_code", code))
}

// live hides a lobby that closed itself after its last player left but has
// not been removed yet.
func live(lb *lobby.Lobby) *lobby.Lobby {
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		return nil
	default:
		return lb
	}
}

func stopLobby(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// GenerateCode returns six random ASCII digits.
func GenerateCode() (string, error) {
	const charset = "0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
