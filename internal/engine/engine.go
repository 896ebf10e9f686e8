package engine

import (
	"time"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

type Status string

const (
	StatusWaiting            Status = "waiting"
	StatusCharacterSelection Status = "character_selection"
	StatusStarted            Status = "started"
)

const (
	MinPlayers    = 5
	MaxPlayers    = 10
	MaxNameLength = 100
)

type Player struct {
	ID        string
	Name      string
	IsHost    bool
	Character character.Name // "" until selected
	JoinedAt  time.Time
}

type State struct {
	Code               string
	Status             Status
	OptionalCharacters []character.Name
	Players            []Player
	// Round counts starts; reveals belong to the round that produced them.
	Round     int
	Reveals   map[string]Reveal
	CreatedAt time.Time
}

type CommandType string

const (
	CmdJoin            CommandType = "Join"
	CmdKick            CommandType = "Kick"
	CmdLeave           CommandType = "Leave"
	CmdConfigure       CommandType = "Configure"
	CmdSelectCharacter CommandType = "SelectCharacter"
	CmdStartGame       CommandType = "StartGame"
	CmdResetGame       CommandType = "ResetGame"
	CmdBackToLobby     CommandType = "BackToLobby"
)

/*
	CmdJoin            -> EvtPlayerJoined
	CmdKick            -> EvtPlayerKicked
	CmdLeave           -> EvtPlayerLeft [-> EvtHostChanged]
	CmdConfigure       -> EvtRoomConfigured
	CmdSelectCharacter -> EvtCharacterSelected
	CmdStartGame       -> EvtGameStarted
	CmdResetGame       -> EvtGameReset
	CmdBackToLobby     -> EvtReturnedToLobby
*/

type Command struct {
	Type CommandType
	// PlayerID is the acting player. For CmdJoin it is the id assigned to the newcomer.
	PlayerID           string
	TargetID           string
	Name               string
	Character          character.Name
	OptionalCharacters []character.Name
	At                 time.Time
}

type EventType string

const (
	EvtPlayerJoined      EventType = "PlayerJoined"
	EvtPlayerKicked      EventType = "PlayerKicked"
	EvtPlayerLeft        EventType = "PlayerLeft"
	EvtHostChanged       EventType = "HostChanged"
	EvtRoomConfigured    EventType = "RoomConfigured"
	EvtCharacterSelected EventType = "CharacterSelected"
	EvtCharacterReleased EventType = "CharacterReleased"
	EvtGameStarted       EventType = "GameStarted"
	EvtGameReset         EventType = "GameReset"
	EvtReturnedToLobby   EventType = "ReturnedToLobby"
)

type Event struct {
	Type      EventType
	PlayerID  string
	Character character.Name
}

// Apply validates cmd against s and returns the resulting state. s is never
// modified: a rejected command returns s unchanged together with the error.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s.Clone()

	var (
		events []Event
		err    error
	)

	switch cmd.Type {
	case CmdJoin:
		events, err = join(&newState, cmd)
	case CmdKick:
		events, err = kick(&newState, cmd.PlayerID, cmd.TargetID)
	case CmdLeave:
		events, err = leave(&newState, cmd.PlayerID)
	case CmdConfigure:
		events, err = configure(&newState, cmd.PlayerID, cmd.OptionalCharacters)
	case CmdSelectCharacter:
		events, err = selectCharacter(&newState, cmd.PlayerID, cmd.Character)
	case CmdStartGame:
		events, err = startGame(&newState, cmd.PlayerID)
	case CmdResetGame:
		events, err = reset(&newState, cmd.PlayerID)
	case CmdBackToLobby:
		events, err = backToLobby(&newState, cmd.PlayerID)
	default:
		return nil, s, ErrUnsupportedCommand
	}

	if err != nil {
		return nil, s, err
	}
	return events, newState, nil
}
