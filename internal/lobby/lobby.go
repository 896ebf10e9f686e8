package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd   engine.Command
	Reply chan Result // buffered; the lobby never blocks on it
}

func (FromClient) isLobbyMsg() {}

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Result struct {
	Events   []engine.Event
	Snapshot Snapshot
	Err      error
}

// Persister mirrors accepted room states somewhere durable.
type Persister interface {
	SaveRoom(ctx context.Context, s engine.State, version int) error
}

type Option func(*Lobby)

func WithLogger(log *zap.Logger) Option {
	return func(l *Lobby) { l.log = log }
}

func WithPersister(p Persister) Option {
	return func(l *Lobby) { l.persist = p }
}

// WithVersion starts the version counter somewhere other than zero, used when
// a room is restored.
func WithVersion(v int) Option {
	return func(l *Lobby) { l.version = v }
}

const persistTimeout = 2 * time.Second

// Lobby owns one room. Every mutation goes through its inbox, so commands on
// the same room are applied one at a time and readers always get a whole
// state, never a half-applied one.
type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	log     *zap.Logger
	persist Persister
}

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    initial.Code,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("room_code", initial.Code))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register client + send current snapshot immediately
				select {
				case msg.Outbox <- Snapshot{Version: l.version, State: l.state}:
					l.clients[msg.ClientID] = msg.Outbox
				default:
					// Outbox must be buffered.
					close(msg.Outbox)
				}

			case Unsubscribe:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				msg.Reply <- l.apply(msg.Cmd)
				if len(l.state.Players) == 0 {
					// Nothing queued behind the last leave may land in the room.
					l.log.Info("last player left, closing room", zap.Int("version", l.version))
					l.shutdown()
					return
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("player_id", cmd.PlayerID),
			zap.String("kind", string(engine.KindOf(err))),
			zap.Error(err),
		)
		return Result{Snapshot: Snapshot{Version: l.version, State: l.state}, Err: err}
	}

	// Idempotent commands change nothing and emit nothing.
	if len(events) == 0 {
		return Result{Snapshot: Snapshot{Version: l.version, State: l.state}}
	}

	l.state = newState
	l.version++
	snap := Snapshot{Version: l.version, State: l.state}

	l.log.Debug("command applied",
		zap.String("command", string(cmd.Type)),
		zap.String("player_id", cmd.PlayerID),
		zap.Int("version", l.version),
	)
	l.logTransitions(events)

	l.save()
	l.broadcast(snap)

	return Result{Events: events, Snapshot: snap}
}

func (l *Lobby) logTransitions(events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtRoomConfigured, engine.EvtGameStarted, engine.EvtGameReset, engine.EvtReturnedToLobby, engine.EvtHostChanged:
			l.log.Info("room transition",
				zap.String("event", string(e.Type)),
				zap.String("status", string(l.state.Status)),
				zap.Int("round", l.state.Round),
			)
		}
	}
}

func (l *Lobby) save() {
	if l.persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, persistTimeout)
	defer cancel()
	if err := l.persist.SaveRoom(ctx, l.state, l.version); err != nil {
		l.log.Warn("persist room failed", zap.Int("version", l.version), zap.Error(err))
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Apply runs cmd on the lobby goroutine and waits for the outcome. Engine
// rejections come back as the returned error.
func (l *Lobby) Apply(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-l.done:
		return Result{}, ErrClosed
	}
}

// View returns a consistent point-in-time copy of the room.
func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		return View{}, ErrClosed
	}
}

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Inbox accepts Subscribe/Unsubscribe from stream handlers.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Code() string { return l.code }
