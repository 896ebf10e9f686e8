package types

import "time"

// Room is the public view of a room. Every endpoint that returns a room and
// every StateSnapshot frame uses this shape.
type Room struct {
	RoomCode           string    `json:"room_code"`
	Status             string    `json:"status"`
	HostPlayerID       string    `json:"host_player_id"`
	OptionalCharacters []string  `json:"optional_characters"`
	Players            []Player  `json:"players"`
	PlayerCount        int       `json:"player_count"`
	Round              int       `json:"round"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`

	// InRoom is only set when the request named a player. False means that
	// player has been kicked or has left.
	InRoom *bool `json:"in_room,omitempty"`
}

type Player struct {
	ID            string    `json:"id"`
	RoomCode      string    `json:"room_code"`
	PlayerName    string    `json:"player_name"`
	IsHost        bool      `json:"is_host"`
	CharacterRole *string   `json:"character_role"` // null until selected
	JoinedAt      time.Time `json:"joined_at"`
}

type AvailableCharacters struct {
	Good      []string `json:"good"`
	Evil      []string `json:"evil"`
	GoodCount int      `json:"good_count"`
	EvilCount int      `json:"evil_count"`
	// Slot lists are padded with the filler character up to the required count.
	GoodSlots []string `json:"good_slots"`
	EvilSlots []string `json:"evil_slots"`
	Taken     []string `json:"taken"` // non-filler characters held by someone other than the viewer
}

type Reveal struct {
	YourCharacter   string   `json:"your_character"`
	YourAllegiance  string   `json:"your_allegiance"`
	Message         string   `json:"message"`
	RevealedPlayers []string `json:"revealed_players"`
	Ambiguous       bool     `json:"ambiguous"`
}
