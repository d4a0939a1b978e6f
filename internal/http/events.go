package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"smartscribe-backend-go/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventSocket upgrades the connection and joins the caller's own event
// room. Browsers cannot set headers on websocket handshakes, so the
// token rides in the query string.
func (s *Server) EventSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		WriteError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	token, claims, err := s.Tokens.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		WriteError(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	userID, _ := claims["sub"].(string)
	user, err := services.GetUserByID(s.DB, userID)
	if err != nil || user.Status != "ACTIVE" {
		WriteError(w, http.StatusUnauthorized, "User not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade for %s: %v", userID, err)
		return
	}
	s.Hub.Join(userID, conn)
	defer s.Hub.Leave(userID, conn)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(45 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()
	defer close(done)

	// drain frames until the peer goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}
