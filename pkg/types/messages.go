package types

// HTTP request bodies.

type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type ConfigureRoomRequest struct {
	PlayerID           string   `json:"player_id"`
	OptionalCharacters []string `json:"optional_characters"`
}

type KickPlayerRequest struct {
	PlayerID string `json:"player_id"`
	TargetID string `json:"target_id"`
}

// PlayerRequest is the body of the host and player actions that only need
// to know who is acting: leave, back-to-lobby, start, reset.
type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type SelectCharacterRequest struct {
	Character string `json:"character"`
}

// HTTP responses.

type RoomResponse struct {
	Room Room `json:"room"`
}

type RoomPlayerResponse struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
}

type PlayerResponse struct {
	Player Player `json:"player"`
}

type AvailableCharactersResponse struct {
	AvailableCharacters AvailableCharacters `json:"available_characters"`
	SelectedCharacters  []string            `json:"selected_characters"`
}

type RevealResponse struct {
	Reveals Reveal `json:"reveals"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WebSocket frames.

// Client -> Server
//
//	Resync: asks for the current snapshot again.
type ClientMessage struct {
	Type string `json:"type"`
}

// Server -> Client
//
//	StateSnapshot: version, room
//	Error:         error
type ServerMessage struct {
	Type    string     `json:"type"` // "StateSnapshot" | "Error"
	Version int        `json:"version,omitempty"`
	Room    *Room      `json:"room,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}
