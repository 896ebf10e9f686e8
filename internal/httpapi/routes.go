package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/avalon-companion-backend/internal/service"
	"github.com/DoyleJ11/avalon-companion-backend/internal/ws"
)

func SetupRoutes(svc *service.RoomService, log *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)

		r.Post("/rooms", CreateRoom(svc, log))
		r.Route("/rooms/{code}", func(r chi.Router) {
			r.Get("/", GetRoom(svc, log))
			r.Post("/join", JoinRoom(svc, log))
			r.Post("/configure", ConfigureRoom(svc, log))
			r.Post("/kick", KickPlayer(svc, log))
			r.Post("/leave", LeaveRoom(svc, log))
			r.Post("/back-to-lobby", BackToLobby(svc, log))
			r.Get("/available-characters", AvailableCharacters(svc, log))
			r.Post("/start", StartGame(svc, log))
			r.Post("/reset", ResetGame(svc, log))
		})

		r.Post("/players/{id}/select-character", SelectCharacter(svc, log))
		r.Get("/players/{id}/reveal", GetReveal(svc, log))
	})

	r.Get("/ws", ws.Handler(svc, log, allowedOrigins))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// cors answers browser preflights. "*" in allowed lets every origin through.
func cors(allowed []string) func(http.Handler) http.Handler {
	anyOrigin := slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || slices.Contains(allowed, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
