package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zfogg/ascii-chat/transport"
)

// newUpgrader builds the gorilla/websocket upgrader the /ws endpoint uses,
// restricting cross-origin upgrades to allowedOrigin once configured
// (adapted from the teacher's origin-checking Upgrader, which defaulted to
// a single hardcoded production origin).
func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}
}

// serveWS upgrades an inbound HTTP request to a WebSocket connection and
// runs the same connection lifecycle as a raw TCP client (spec §4.1
// "server listens on both a raw TCP port and a WebSocket endpoint, sharing
// one packet-dispatch path").
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader(s.cfg.AllowedWSOrigin)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	wss := r.TLS != nil
	t := transport.NewWS(conn, wss)
	s.handleConn(r.Context(), t)
}
