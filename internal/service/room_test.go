package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/hub"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
)

type fixture struct {
	svc     *RoomService
	code    string
	players []engine.Player // players[0] is the host
}

func newService(t *testing.T, codes ...string) *RoomService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zaptest.NewLogger(t)
	opts := []hub.Option{hub.WithLogger(log)}
	if len(codes) > 0 {
		var i atomic.Int32
		opts = append(opts, hub.WithCodeGenerator(func() (string, error) {
			return codes[int(i.Add(1)-1)%len(codes)], nil
		}))
	}
	h := hub.NewHub(ctx, opts...)

	var n atomic.Int64
	return NewRoomService(h,
		WithLogger(log),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	)
}

func newFixture(t *testing.T, players int) *fixture {
	t.Helper()
	svc := newService(t, "123456")
	ctx := context.Background()

	room, host, err := svc.CreateRoom(ctx, "Host")
	require.NoError(t, err)

	f := &fixture{svc: svc, code: room.State.Code, players: []engine.Player{host}}
	for i := 1; i < players; i++ {
		_, p, err := svc.JoinRoom(ctx, f.code, fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
		f.players = append(f.players, p)
	}
	return f
}

func (f *fixture) id(i int) string { return f.players[i].ID }

func (f *fixture) pick(t *testing.T, picks ...character.Name) {
	t.Helper()
	for i, name := range picks {
		_, _, err := f.svc.SelectCharacter(context.Background(), f.id(i), name)
		require.NoError(t, err)
	}
}

func TestCreateRoom(t *testing.T) {
	svc := newService(t)
	room, host, err := svc.CreateRoom(context.Background(), "  Morgan ")
	require.NoError(t, err)

	assert.Regexp(t, `^\d{6}$`, room.State.Code)
	assert.Equal(t, engine.StatusWaiting, room.State.Status)
	assert.True(t, host.IsHost)
	assert.Equal(t, "Morgan", host.Name)
	require.Len(t, room.State.Players, 1)
	assert.Equal(t, host.ID, room.State.Players[0].ID)

	_, _, err = svc.CreateRoom(context.Background(), "")
	assert.ErrorIs(t, err, engine.ErrInvalidName)
}

func TestJoinRoom_Errors(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, _, err := f.svc.JoinRoom(ctx, "12ab56", "X")
	assert.ErrorIs(t, err, engine.ErrInvalidRoomCode)

	_, _, err = f.svc.JoinRoom(ctx, "654321", "X")
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)

	_, err = f.svc.Configure(ctx, f.code, f.id(0), nil)
	require.NoError(t, err)

	_, _, err = f.svc.JoinRoom(ctx, f.code, "Late")
	assert.ErrorIs(t, err, engine.ErrRoomClosed)
}

// Scenario A: five players, no optional characters.
func TestScenarioA(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	assert.Equal(t, "123456", f.code)

	room, err := f.svc.Configure(ctx, f.code, f.id(0), nil)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCharacterSelection, room.State.Status)

	pool, err := f.svc.AvailableCharacters(ctx, f.code, "")
	require.NoError(t, err)
	assert.Equal(t, 3, pool.RequiredGood)
	assert.Equal(t, 2, pool.RequiredEvil)

	f.pick(t, character.Merlin, character.LoyalServant, character.LoyalServant, character.Assassin, character.MinionOfMordred)

	_, err = f.svc.StartGame(ctx, f.code, f.id(0))
	require.NoError(t, err)

	r, err := f.svc.Reveal(ctx, f.id(3))
	require.NoError(t, err)
	assert.Equal(t, character.Assassin, r.Character)
	assert.Equal(t, []string{"Player 4"}, r.RevealedPlayers)
}

// Scenario B: seven players with Mordred and Percival.
func TestScenarioB(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()

	_, err := f.svc.Configure(ctx, f.code, f.id(0), []character.Name{character.Mordred, character.Percival})
	require.NoError(t, err)

	f.pick(t, character.Merlin, character.Percival, character.LoyalServant, character.LoyalServant,
		character.Assassin, character.Mordred, character.MinionOfMordred)

	_, err = f.svc.StartGame(ctx, f.code, f.id(0))
	require.NoError(t, err)

	percival, err := f.svc.Reveal(ctx, f.id(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"Host"}, percival.RevealedPlayers)

	merlin, err := f.svc.Reveal(ctx, f.id(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Player 4", "Player 6"}, merlin.RevealedPlayers)
}

// Scenario C: a kick mid-selection frees the slot.
func TestScenarioC(t *testing.T) {
	f := newFixture(t, 6)
	ctx := context.Background()

	_, err := f.svc.Configure(ctx, f.code, f.id(0), []character.Name{character.Morgana})
	require.NoError(t, err)

	_, _, err = f.svc.SelectCharacter(ctx, f.id(5), character.Morgana)
	require.NoError(t, err)
	_, _, err = f.svc.SelectCharacter(ctx, f.id(4), character.Morgana)
	require.ErrorIs(t, err, engine.ErrCharacterTaken)

	room, err := f.svc.Kick(ctx, f.code, f.id(0), f.id(5))
	require.NoError(t, err)
	assert.Len(t, room.State.Players, 5)

	_, _, err = f.svc.SelectCharacter(ctx, f.id(5), character.LoyalServant)
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound, "kicked player is gone")

	_, p, err := f.svc.SelectCharacter(ctx, f.id(4), character.Morgana)
	require.NoError(t, err)
	assert.Equal(t, character.Morgana, p.Character)

	f.pick(t, character.Merlin, character.LoyalServant, character.LoyalServant, character.Assassin)

	room, err = f.svc.GetRoom(ctx, f.code)
	require.NoError(t, err)
	assert.True(t, engine.AllReady(room.State))

	_, err = f.svc.StartGame(ctx, f.code, f.id(0))
	require.NoError(t, err)
}

// Scenario C at the minimum size: the kick leaves four players mid-selection.
func TestScenarioC_KickBelowMinimum(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.Configure(ctx, f.code, f.id(0), []character.Name{character.Percival})
	require.NoError(t, err)
	_, _, err = f.svc.SelectCharacter(ctx, f.id(4), character.Percival)
	require.NoError(t, err)

	_, err = f.svc.Kick(ctx, f.code, f.id(0), f.id(4))
	require.NoError(t, err)

	_, p, err := f.svc.SelectCharacter(ctx, f.id(3), character.Percival)
	require.NoError(t, err)
	assert.Equal(t, character.Percival, p.Character)
	_, p, err = f.svc.SelectCharacter(ctx, f.id(1), character.LoyalServant)
	require.NoError(t, err)
	assert.Equal(t, character.LoyalServant, p.Character)

	pool, err := f.svc.AvailableCharacters(ctx, f.code, f.id(2))
	require.NoError(t, err)
	assert.True(t, pool.IsTaken(character.Percival))
	assert.Contains(t, pool.Open(), character.Assassin)

	f.pick(t, character.Merlin)
	_, _, err = f.svc.SelectCharacter(ctx, f.id(2), character.Assassin)
	require.NoError(t, err)

	_, err = f.svc.StartGame(ctx, f.code, f.id(0))
	assert.ErrorIs(t, err, engine.ErrInvalidPlayerCount)

	_, _, err = f.svc.JoinRoom(ctx, f.code, "Late")
	assert.ErrorIs(t, err, engine.ErrRoomClosed)
}

func TestResetInvalidatesReveals(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.Configure(ctx, f.code, f.id(0), nil)
	require.NoError(t, err)

	_, err = f.svc.Reveal(ctx, f.id(1))
	assert.ErrorIs(t, err, engine.ErrNotStarted)

	f.pick(t, character.Merlin, character.LoyalServant, character.LoyalServant, character.Assassin, character.MinionOfMordred)
	_, err = f.svc.StartGame(ctx, f.code, f.id(0))
	require.NoError(t, err)

	_, err = f.svc.ResetGame(ctx, f.code, f.id(1))
	assert.ErrorIs(t, err, engine.ErrNotHost)

	room, err := f.svc.ResetGame(ctx, f.code, f.id(0))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCharacterSelection, room.State.Status)

	_, err = f.svc.Reveal(ctx, f.id(1))
	assert.ErrorIs(t, err, engine.ErrNotStarted)
}

func TestLeave_HostSuccessionAndEmptyRoomRemoval(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	room, err := f.svc.Leave(ctx, f.code, f.id(0))
	require.NoError(t, err)
	host, ok := room.State.Host()
	require.True(t, ok)
	assert.Equal(t, f.id(1), host.ID)

	_, err = f.svc.Reveal(ctx, f.id(0))
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)

	_, err = f.svc.Leave(ctx, f.code, f.id(1))
	require.NoError(t, err)

	_, err = f.svc.GetRoom(ctx, f.code)
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
}

func TestLeave_JoinRacingLastLeaveIsRejected(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	// A join that resolved the room just before the last player left.
	lb, err := f.svc.hub.Get(ctx, f.code)
	require.NoError(t, err)

	_, err = f.svc.Leave(ctx, f.code, f.id(0))
	require.NoError(t, err)

	_, err = lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, PlayerID: "late", Name: "Late"})
	assert.ErrorIs(t, err, lobby.ErrClosed)

	_, _, err = f.svc.JoinRoom(ctx, f.code, "Later")
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
}

func TestJoinRoom_IndexFollowsOutcome(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	require.Equal(t, "id-1", f.id(0))

	_, _, err := f.svc.JoinRoom(ctx, f.code, "host")
	require.ErrorIs(t, err, engine.ErrDuplicateName)
	_, err = f.svc.hub.ForPlayer(ctx, "id-2")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound, "a rejected join leaves no index entry")

	_, p, err := f.svc.JoinRoom(ctx, f.code, "Guest")
	require.NoError(t, err)
	assert.Equal(t, "id-3", p.ID)
	_, err = f.svc.Reveal(ctx, p.ID)
	assert.ErrorIs(t, err, engine.ErrNotStarted, "a successful join is reachable by id")
}

func TestAbandonJoin_UndoesJoinWithUnknownOutcome(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	lb, err := f.svc.hub.Get(ctx, f.code)
	require.NoError(t, err)
	require.NoError(t, f.svc.hub.Bind(ctx, "slow", f.code))
	_, err = lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, PlayerID: "slow", Name: "Slow"})
	require.NoError(t, err)

	f.svc.abandonJoin(ctx, lb, "slow", context.DeadlineExceeded)

	room, err := f.svc.GetRoom(ctx, f.code)
	require.NoError(t, err)
	assert.Equal(t, 1, room.State.PlayerCount())
	_, err = f.svc.hub.ForPlayer(ctx, "slow")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)
}

func TestAvailableCharacters_RequiresConfiguration(t *testing.T) {
	f := newFixture(t, 5)
	_, err := f.svc.AvailableCharacters(context.Background(), f.code, "")
	assert.ErrorIs(t, err, engine.ErrInvalidStatus)
}

func TestBackToLobby_ReopensJoins(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.Configure(ctx, f.code, f.id(0), nil)
	require.NoError(t, err)
	_, err = f.svc.BackToLobby(ctx, f.code, f.id(0))
	require.NoError(t, err)

	room, p, err := f.svc.JoinRoom(ctx, f.code, "Sixth")
	require.NoError(t, err)
	assert.Len(t, room.State.Players, 6)
	assert.False(t, p.IsHost)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	out := make(chan lobby.Snapshot, 4)
	unsubscribe, err := f.svc.Subscribe(ctx, f.code, "watcher", out)
	require.NoError(t, err)

	first := <-out
	_, err = f.svc.Configure(ctx, f.code, f.id(0), nil)
	require.NoError(t, err)

	select {
	case snap := <-out:
		assert.Equal(t, first.Version+1, snap.Version)
		assert.Equal(t, engine.StatusCharacterSelection, snap.State.Status)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after configure")
	}

	unsubscribe()
	_, ok := <-out
	assert.False(t, ok)
}

func TestRestore_RecomputesReveals(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	s := engine.NewRoomState("777777", engine.Player{ID: "a", Name: "A"}, time.Now())
	names := []character.Name{character.LoyalServant, character.LoyalServant, character.Assassin, character.MinionOfMordred}
	s.Players[0].Character = character.Merlin
	for i, name := range names {
		s.Players = append(s.Players, engine.Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("P%d", i), Character: name})
	}
	s.Status = engine.StatusStarted
	s.Round = 3

	require.NoError(t, svc.Restore(ctx, []Room{{State: s, Version: 12}}))

	r, err := svc.Reveal(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, r.RevealedPlayers)

	room, err := svc.GetRoom(ctx, "777777")
	require.NoError(t, err)
	assert.Equal(t, 12, room.Version)
}

func TestRestore_DropsEmptyRooms(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	s := engine.NewRoomState("888888", engine.Player{ID: "a", Name: "A"}, time.Now())
	s.Players = nil

	require.NoError(t, svc.Restore(ctx, []Room{{State: s, Version: 4}}))

	_, err := svc.GetRoom(ctx, "888888")
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
}

func TestGenID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
