package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/chat"
)

// handleWebSocket upgrades the connection and runs the chat session. The
// path names the connecting user; the tenant comes from the credential, not
// the path. Handshake failures are fatal and close the channel with a
// policy-violation code; once the session is running, failures are handled
// per frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	channel := chat.NewChannel(conn, chat.ChannelConfig{
		SendTimeout:    s.cfg.SendTimeout,
		MaxMessageSize: s.cfg.MaxMessageSize,
		Logger:         s.log,
	})

	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		channel.Close(websocket.ClosePolicyViolation, "invalid user id")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		channel.Close(websocket.ClosePolicyViolation, "missing credential")
		return
	}

	identity, err := s.auth.Verify(token)
	if err != nil {
		channel.Close(websocket.ClosePolicyViolation, "invalid credential")
		return
	}

	tenant, err := s.tenants.Resolve(r.Context(), identity.TenantID)
	if err != nil {
		channel.Close(websocket.ClosePolicyViolation, "unknown tenant")
		return
	}

	if _, err := tenant.Users().FindByEmail(r.Context(), identity.Role, identity.Email); err != nil {
		channel.Close(websocket.ClosePolicyViolation, "unknown user")
		return
	}

	session := chat.NewSession(chat.SessionParams{
		Key:         chat.Key{TenantID: tenant.ID(), UserID: userID.Hex()},
		UserID:      userID,
		Role:        identity.Role,
		DisplayName: identity.Name,
		Channel:     channel,
		Registry:    s.registry,
		Router:      s.router,
		Presence:    s.presence,
		Messages:    tenant.Messages(),
		Groups:      tenant.Groups(),
		Users:       tenant.Users(),
		Location:    tenant.Location(),
		RateLimit:   s.cfg.RateLimit,
		Logger:      s.log,
	})

	// Run synchronously: the connection is hijacked, so holding the handler
	// goroutine for the session's lifetime is the per-connection task.
	session.Run(r.Context())
}
