package types

import (
	"errors"
	"net/http"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
)

// ErrBadRequest marks a request the transport could not decode.
var ErrBadRequest = errors.New("request body is not valid JSON")

var kindStatus = map[engine.Kind]int{
	engine.KindNotFound:      http.StatusNotFound,
	engine.KindInvalidStatus: http.StatusConflict,
	engine.KindForbidden:     http.StatusForbidden,
	engine.KindCapacity:      http.StatusUnprocessableEntity,
	engine.KindConflict:      http.StatusConflict,
	engine.KindNotReady:      http.StatusConflict,
	engine.KindValidation:    http.StatusBadRequest,
}

// StatusOf is the HTTP status for err, shared by the REST handlers and the
// stream upgrade so both answer the same failure the same way.
func StatusOf(err error) int {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	if status, ok := kindStatus[engine.KindOf(err)]; ok {
		return status
	}
	if NewErrorBody(err).Code == CodeUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
