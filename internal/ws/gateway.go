package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/metrics"
)

// Gateway upgrades authenticated HTTP requests to websocket connections and
// registers them in the hub. A handshake without a valid, unexpired token is
// rejected before the upgrade; such a connection never joins a group.
type Gateway struct {
	hub      *Hub
	verifier auth.Verifier
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewGateway creates a gateway backed by the given hub and verifier.
func NewGateway(hub *Hub, verifier auth.Verifier, logger zerolog.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser clients connect from the SPA origins; CORS policy
			// is enforced at the LB, same as the REST surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "gateway").Logger(),
	}
}

// bearerToken extracts the credential from the handshake: either a "token"
// query parameter or an Authorization bearer header. Both are accepted.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return ""
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		metrics.ConnectionsRejected.Inc()
		g.logger.Warn().Str("remote", r.RemoteAddr).Msg("connection rejected: no token")
		http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
		return
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		metrics.ConnectionsRejected.Inc()
		g.logger.Warn().Str("remote", r.RemoteAddr).Err(err).Msg("connection rejected: verification failed")
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		g.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(g.hub, conn, claims.UserID)
	g.hub.add(client)

	g.logger.Info().
		Str("userId", claims.UserID).
		Str("remote", r.RemoteAddr).
		Msg("client connected")

	go client.writePump()
	go client.readPump()
}
