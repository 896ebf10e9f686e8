package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
	"github.com/DoyleJ11/avalon-companion-backend/internal/service"
	"github.com/DoyleJ11/avalon-companion-backend/internal/types"
	wire "github.com/DoyleJ11/avalon-companion-backend/pkg/types"
)

const maxBodyBytes = 64 << 10

func CreateRoom(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.CreateRoomRequest
		if !decode(w, r, log, &req) {
			return
		}

		room, player, err := svc.CreateRoom(r.Context(), req.PlayerName)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, wire.RoomPlayerResponse{
			Room:   types.NewRoom(room.State, room.Version),
			Player: types.NewPlayer(room.State.Code, player),
		})
	}
}

func JoinRoom(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.JoinRoomRequest
		if !decode(w, r, log, &req) {
			return
		}

		code := chi.URLParam(r, "code")
		room, player, err := svc.JoinRoom(r.Context(), code, req.PlayerName)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, wire.RoomPlayerResponse{
			Room:   types.NewRoom(room.State, room.Version),
			Player: types.NewPlayer(code, player),
		})
	}
}

// GetRoom returns the room. With ?player_id= the response also says whether
// that player is still a member, which is how a kicked client finds out.
func GetRoom(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := svc.GetRoom(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		out := types.NewRoom(room.State, room.Version)
		if viewer := r.URL.Query().Get("player_id"); viewer != "" {
			out = types.NewRoomFor(room.State, room.Version, viewer)
		}
		writeJSON(w, http.StatusOK, wire.RoomResponse{Room: out})
	}
}

func ConfigureRoom(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.ConfigureRoomRequest
		if !decode(w, r, log, &req) {
			return
		}

		optional := make([]character.Name, len(req.OptionalCharacters))
		for i, name := range req.OptionalCharacters {
			optional[i] = character.Name(name)
		}
		room, err := svc.Configure(r.Context(), chi.URLParam(r, "code"), req.PlayerID, optional)
		respondRoom(w, r, log, room, err)
	}
}

func KickPlayer(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.KickPlayerRequest
		if !decode(w, r, log, &req) {
			return
		}
		room, err := svc.Kick(r.Context(), chi.URLParam(r, "code"), req.PlayerID, req.TargetID)
		respondRoom(w, r, log, room, err)
	}
}

// playerAction adapts the service calls that take a room code and the acting
// player and return the updated room.
func playerAction(log *zap.Logger, action func(*http.Request, string, string) (service.Room, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.PlayerRequest
		if !decode(w, r, log, &req) {
			return
		}
		room, err := action(r, chi.URLParam(r, "code"), req.PlayerID)
		respondRoom(w, r, log, room, err)
	}
}

func LeaveRoom(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return playerAction(log, func(r *http.Request, code, playerID string) (service.Room, error) {
		return svc.Leave(r.Context(), code, playerID)
	})
}

func BackToLobby(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return playerAction(log, func(r *http.Request, code, playerID string) (service.Room, error) {
		return svc.BackToLobby(r.Context(), code, playerID)
	})
}

func StartGame(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return playerAction(log, func(r *http.Request, code, playerID string) (service.Room, error) {
		return svc.StartGame(r.Context(), code, playerID)
	})
}

func ResetGame(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return playerAction(log, func(r *http.Request, code, playerID string) (service.Room, error) {
		return svc.ResetGame(r.Context(), code, playerID)
	})
}

func AvailableCharacters(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pool, err := svc.AvailableCharacters(r.Context(), chi.URLParam(r, "code"), r.URL.Query().Get("player_id"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewAvailableCharacters(pool))
	}
}

func SelectCharacter(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.SelectCharacterRequest
		if !decode(w, r, log, &req) {
			return
		}

		room, player, err := svc.SelectCharacter(r.Context(), chi.URLParam(r, "id"), character.Name(req.Character))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, wire.PlayerResponse{Player: types.NewPlayer(room.State.Code, player)})
	}
}

func GetReveal(svc *service.RoomService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reveal, err := svc.Reveal(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewReveal(reveal))
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.HealthResponse{Status: "healthy"})
}

func respondRoom(w http.ResponseWriter, r *http.Request, log *zap.Logger, room service.Room, err error) {
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.RoomResponse{Room: types.NewRoom(room.State, room.Version)})
}

func decode(w http.ResponseWriter, r *http.Request, log *zap.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, log, types.ErrBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
