// Package types converts engine values into the wire shapes of pkg/types.
package types

import (
	"context"
	"errors"
	"slices"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/hub"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
	wire "github.com/DoyleJ11/avalon-companion-backend/pkg/types"
)

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
	MsgResync        = "Resync"
)

// Codes for failures that are not room errors.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL"
)

func NewRoom(s engine.State, version int) wire.Room {
	room := wire.Room{
		RoomCode:           s.Code,
		Status:             string(s.Status),
		OptionalCharacters: names(s.OptionalCharacters),
		Players:            make([]wire.Player, len(s.Players)),
		PlayerCount:        s.PlayerCount(),
		Round:              s.Round,
		Version:            version,
		CreatedAt:          s.CreatedAt,
	}
	if host, ok := s.Host(); ok {
		room.HostPlayerID = host.ID
	}
	for i, p := range s.Players {
		room.Players[i] = NewPlayer(s.Code, p)
	}
	return room
}

// NewRoomFor is NewRoom plus the in_room flag for viewerID.
func NewRoomFor(s engine.State, version int, viewerID string) wire.Room {
	room := NewRoom(s, version)
	_, ok := s.FindPlayer(viewerID)
	room.InRoom = &ok
	return room
}

func NewPlayer(code string, p engine.Player) wire.Player {
	out := wire.Player{
		ID:         p.ID,
		RoomCode:   code,
		PlayerName: p.Name,
		IsHost:     p.IsHost,
		JoinedAt:   p.JoinedAt,
	}
	if p.Character != "" {
		role := string(p.Character)
		out.CharacterRole = &role
	}
	return out
}

func NewSnapshotMessage(snap lobby.Snapshot) wire.ServerMessage {
	room := NewRoom(snap.State, snap.Version)
	return wire.ServerMessage{Type: MsgStateSnapshot, Version: snap.Version, Room: &room}
}

func NewErrorMessage(err error) wire.ServerMessage {
	body := NewErrorBody(err)
	return wire.ServerMessage{Type: MsgError, Error: &body}
}

func NewAvailableCharacters(p engine.Pool) wire.AvailableCharactersResponse {
	taken := make([]string, 0, len(p.TakenNonFiller))
	for name := range p.TakenNonFiller {
		taken = append(taken, string(name))
	}
	slices.Sort(taken)

	return wire.AvailableCharactersResponse{
		AvailableCharacters: wire.AvailableCharacters{
			Good:      names(p.AvailableGood),
			Evil:      names(p.AvailableEvil),
			GoodCount: p.RequiredGood,
			EvilCount: p.RequiredEvil,
			GoodSlots: names(p.SlotsGood),
			EvilSlots: names(p.SlotsEvil),
			Taken:     taken,
		},
		SelectedCharacters: names(p.Selected),
	}
}

func NewReveal(r engine.Reveal) wire.RevealResponse {
	revealed := r.RevealedPlayers
	if revealed == nil {
		revealed = []string{}
	}
	return wire.RevealResponse{Reveals: wire.Reveal{
		YourCharacter:   string(r.Character),
		YourAllegiance:  string(r.Allegiance),
		Message:         r.Message,
		RevealedPlayers: revealed,
		Ambiguous:       r.Ambiguous,
	}}
}

// NewErrorBody describes err for a client. Room errors keep their code and
// message; anything else is reported without internals.
func NewErrorBody(err error) wire.ErrorBody {
	var e *engine.Error
	switch {
	case errors.As(err, &e):
		return wire.ErrorBody{Code: e.Code, Kind: string(e.Kind), Message: err.Error()}
	case errors.Is(err, ErrBadRequest):
		return wire.ErrorBody{Code: CodeBadRequest, Kind: string(engine.KindValidation), Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, lobby.ErrClosed),
		errors.Is(err, hub.ErrCodeSpaceExhausted):
		return wire.ErrorBody{Code: CodeUnavailable, Kind: "unavailable", Message: "room service is busy, try again"}
	default:
		return wire.ErrorBody{Code: CodeInternal, Kind: "internal", Message: "internal error"}
	}
}

func names(in []character.Name) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = string(n)
	}
	return out
}
