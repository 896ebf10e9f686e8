package engine

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidStatus Kind = "invalid_status"
	KindForbidden     Kind = "forbidden"
	KindCapacity      Kind = "capacity"
	KindConflict      Kind = "conflict"
	KindNotReady      Kind = "not_ready"
	KindValidation    Kind = "validation"
)

// Error is a rejected room operation. Code is stable and machine readable,
// Message is meant for people.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrRoomNotFound   = newError(KindNotFound, "ROOM_NOT_FOUND", "room not found")
	ErrPlayerNotFound = newError(KindNotFound, "PLAYER_NOT_FOUND", "player not found in this room")

	ErrInvalidStatus = newError(KindInvalidStatus, "INVALID_STATUS", "operation not allowed in the current room status")
	ErrRoomClosed    = newError(KindInvalidStatus, "ROOM_CLOSED", "room is no longer accepting players")
	ErrNotStarted    = newError(KindInvalidStatus, "NOT_STARTED", "game has not started yet")

	ErrNotHost        = newError(KindForbidden, "NOT_HOST", "only the host can do that")
	ErrCannotKickSelf = newError(KindForbidden, "CANNOT_KICK_SELF", "the host cannot kick themselves")

	ErrRoomFull           = newError(KindCapacity, "ROOM_FULL", "room is full")
	ErrInvalidPlayerCount = newError(KindCapacity, "INVALID_PLAYER_COUNT", "a game needs between 5 and 10 players")
	ErrTooManyOptional    = newError(KindCapacity, "TOO_MANY_OPTIONAL", "too many optional characters for this player count")

	ErrCharacterTaken = newError(KindConflict, "CHARACTER_TAKEN", "character already selected by another player")
	ErrDuplicateName  = newError(KindConflict, "DUPLICATE_NAME", "player name already taken in this room")

	ErrNotReady = newError(KindNotReady, "NOT_READY", "all players must select a character first")

	ErrInvalidName        = newError(KindValidation, "INVALID_NAME", "player name must be 1 to 100 characters")
	ErrInvalidRoomCode    = newError(KindValidation, "INVALID_ROOM_CODE", "room code must be 6 digits")
	ErrUnknownCharacter   = newError(KindValidation, "UNKNOWN_CHARACTER", "character not available for this game")
	ErrInvalidComposition = newError(KindValidation, "INVALID_COMPOSITION", "selected characters do not form a legal team")
	ErrUnsupportedCommand = newError(KindValidation, "UNSUPPORTED_COMMAND", "unsupported command")
)

// KindOf returns the kind of a room error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the stable code of a room error, or "" for anything else.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// detail keeps the sentinel matchable with errors.Is while adding context.
func detail(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
