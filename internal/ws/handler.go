package ws

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
	"github.com/DoyleJ11/avalon-companion-backend/internal/lobby"
	"github.com/DoyleJ11/avalon-companion-backend/internal/service"
	"github.com/DoyleJ11/avalon-companion-backend/internal/types"
	wire "github.com/DoyleJ11/avalon-companion-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 20 * time.Second
)

// Handler streams StateSnapshot frames for the room named by ?code=. The
// stream is read-only: mutations go through the HTTP API and show up here as
// the next snapshot.
func Handler(svc *service.RoomService, log *zap.Logger, allowedOrigins []string) http.HandlerFunc {
	patterns := originPatterns(allowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		if _, err := svc.GetRoom(r.Context(), code); err != nil {
			http.Error(w, err.Error(), types.StatusOf(err))
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			log.Debug("websocket accept failed", zap.String("room_code", code), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan lobby.Snapshot, 8)
		clientID := service.GenID()
		unsubscribe, err := svc.Subscribe(ctx, code, clientID, out)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer unsubscribe()

		log := log.With(zap.String("room_code", code), zap.String("client_id", clientID))
		log.Debug("stream opened")

		replies := make(chan wire.ServerMessage, 4)
		go func() {
			defer cancel()
			writeLoop(ctx, conn, out, replies, log)
		}()

		// Reader loop
		for {
			var cm wire.ClientMessage
			if err := wsjson.Read(ctx, conn, &cm); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						log.Debug("stream read failed", zap.Error(err))
					}
				}
				return
			}

			var reply wire.ServerMessage
			switch cm.Type {
			case types.MsgResync:
				room, err := svc.GetRoom(ctx, code)
				if err != nil {
					reply = types.NewErrorMessage(err)
					break
				}
				reply = types.NewSnapshotMessage(lobby.Snapshot{Version: room.Version, State: room.State})
			default:
				reply = types.NewErrorMessage(engine.ErrUnsupportedCommand)
			}

			select {
			case replies <- reply:
			default:
				log.Debug("reply dropped, client is not reading")
			}
		}
	}
}

// writeLoop is the only writer on conn.
func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan lobby.Snapshot, replies <-chan wire.ServerMessage, log *zap.Logger) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var msg wire.ServerMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-out:
			if !ok {
				// Dropped as a slow client or the room is gone.
				conn.Close(websocket.StatusGoingAway, "room stream ended")
				return
			}
			msg = types.NewSnapshotMessage(snap)
		case msg = <-replies:
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				return
			}
			continue
		}

		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, msg)
		cancel()
		if err != nil {
			log.Debug("stream write failed", zap.Error(err))
			return
		}
	}
}

// originPatterns turns configured origins into the host patterns the
// websocket library matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
