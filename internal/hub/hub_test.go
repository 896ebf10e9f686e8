package hub

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
)

type memStore struct {
	mu      sync.Mutex
	saved   map[string]int
	deleted []string
}

func newMemStore() *memStore { return &memStore{saved: map[string]int{}} }

func (m *memStore) SaveRoom(_ context.Context, s engine.State, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[s.Code] = version
	return nil
}

func (m *memStore) DeleteRoom(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, code)
	delete(m.saved, code)
	return nil
}

func host(id string) engine.Player { return engine.Player{ID: id, Name: "Host " + id} }

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)

	lb1, err := h.Create(ctx, host("h1"), time.Now())
	require.NoError(t, err)

	lb2, err := h.Get(ctx, lb1.Code())
	require.NoError(t, err)

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), lb1.Code())
}

func TestHub_Create_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	codes := []string{"111111", "111111", "222222"}
	var i int
	h := NewHub(ctx, WithCodeGenerator(func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}))

	a, err := h.Create(ctx, host("a"), time.Now())
	require.NoError(t, err)
	b, err := h.Create(ctx, host("b"), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "111111", a.Code())
	assert.Equal(t, "222222", b.Code())
}

func TestHub_Create_GivesUpWhenCodesRunOut(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, WithCodeGenerator(func() (string, error) { return "999999", nil }))

	_, err := h.Create(ctx, host("a"), time.Now())
	require.NoError(t, err)

	_, err = h.Create(ctx, host("b"), time.Now())
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)

	boom := errors.New("entropy gone")
	h2 := NewHub(ctx, WithCodeGenerator(func() (string, error) { return "", boom }))
	_, err = h2.Create(ctx, host("c"), time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestHub_Get_UnknownCode(t *testing.T) {
	h := NewHub(context.Background())
	_, err := h.Get(context.Background(), "000000")
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
}

func TestHub_PlayerIndex(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)

	lb, err := h.Create(ctx, host("h1"), time.Now())
	require.NoError(t, err)

	got, err := h.ForPlayer(ctx, "h1")
	require.NoError(t, err)
	assert.Same(t, lb, got)

	require.NoError(t, h.Bind(ctx, "p2", lb.Code()))
	got, err = h.ForPlayer(ctx, "p2")
	require.NoError(t, err)
	assert.Same(t, lb, got)

	require.NoError(t, h.Unbind(ctx, "p2"))
	_, err = h.ForPlayer(ctx, "p2")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)

	require.NoError(t, h.Bind(ctx, "p3", "000000"))
	_, err = h.ForPlayer(ctx, "p3")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound, "binding to an unknown room is ignored")
}

func TestHub_Remove_StopsLobbyAndForgetsPlayers(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHub(ctx, WithStore(store))

	lb, err := h.Create(ctx, host("h1"), time.Now())
	require.NoError(t, err)

	require.NoError(t, h.Remove(ctx, lb.Code()))

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby still running after removal")
	}

	_, err = h.Get(ctx, lb.Code())
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
	_, err = h.ForPlayer(ctx, "h1")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{lb.Code()}, store.deleted)
}

func TestHub_HidesLobbyThatClosedItself(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHub(ctx, WithStore(store))

	lb, err := h.Create(ctx, host("h1"), time.Now())
	require.NoError(t, err)

	_, err = lb.Apply(ctx, engine.Command{Type: engine.CmdLeave, PlayerID: "h1"})
	require.NoError(t, err)
	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("empty lobby still running")
	}

	_, err = h.Get(ctx, lb.Code())
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
	_, err = h.ForPlayer(ctx, "h1")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)

	require.NoError(t, h.Bind(ctx, "p2", lb.Code()))
	_, err = h.ForPlayer(ctx, "p2")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound, "no binding into a closed room")

	require.NoError(t, h.Remove(ctx, lb.Code()))
	_, err = h.Get(ctx, lb.Code())
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{lb.Code()}, store.deleted)
}

func TestHub_Restore(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)

	s := engine.NewRoomState("424242", host("h1"), time.Now())
	s.Players = append(s.Players, engine.Player{ID: "p2", Name: "Two"})

	lb, err := h.Restore(ctx, s, 7)
	require.NoError(t, err)

	v, err := lb.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v.Version)

	got, err := h.ForPlayer(ctx, "p2")
	require.NoError(t, err)
	assert.Same(t, lb, got)
}

func TestHub_Shutdown(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)

	lb, err := h.Create(ctx, host("h1"), time.Now())
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(ctx))

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby still running after hub shutdown")
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
