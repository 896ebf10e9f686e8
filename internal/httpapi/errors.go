package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/types"
	wire "github.com/DoyleJ11/avalon-companion-backend/pkg/types"
)

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := types.StatusOf(err)
	body := types.NewErrorBody(err)

	log = log.With(zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected", zap.String("code", body.Code))
	}
	writeJSON(w, status, wire.ErrorResponse{Error: body})
}
