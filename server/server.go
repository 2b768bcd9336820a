// Package server wires every other package into the running ascii-chat
// server process: it accepts TCP and WebSocket connections, drives the
// crypto handshake per connection, admits clients into the shared client
// table, and runs the broadcast/audio loops against that table (spec §4,
// §6.2). Its shape is grounded on the teacher's net/http server plus
// WebSocket upgrade wiring, generalized from one signaling room to a flat
// set of video-chat clients and widened to also accept a raw TCP listener.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zfogg/ascii-chat/broadcast"
	"github.com/zfogg/ascii-chat/bufferpool"
	"github.com/zfogg/ascii-chat/clientmanager"
	"github.com/zfogg/ascii-chat/config"
	"github.com/zfogg/ascii-chat/cryptoacip"
	"github.com/zfogg/ascii-chat/metrics"
	"github.com/zfogg/ascii-chat/mixer"
	"github.com/zfogg/ascii-chat/transport"
	"github.com/zfogg/ascii-chat/wire"
)

// senderID the server uses on packets it originates itself (SERVER_STATE,
// mixed AUDIO_BATCH, ASCII_FRAME); client IDs start at 1 (clientmanager.Add).
const senderID = 0

// Server owns every long-lived resource the process needs: the client
// table, the server's own crypto identity, the auth policy clients are
// checked against, and the broadcast/audio loops.
type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	identity cryptoacip.Identity
	auth     cryptoacip.AuthPolicy
	tlsCfg   *tls.Config

	clients  *clientmanager.Manager
	mixer    *mixer.Mixer
	video    *broadcast.Loop
	audio    *broadcast.AudioLoop
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

// New builds a Server from cfg, loading (or generating) the server's
// identity and auth policy. It does not bind any socket yet.
func New(cfg config.Config, log zerolog.Logger) (*Server, error) {
	identity, err := loadIdentity(cfg.IdentityKey)
	if err != nil {
		return nil, err
	}
	auth, err := loadAuthPolicy(cfg)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	clients := clientmanager.New()
	m := mixer.New()
	reg := prometheus.NewRegistry()
	// *2 for the pixel canvas's doubled height (compositor.Composite samples
	// a cells_h*2-tall pixel canvas per spec §4.7/§8).
	canvasPool := bufferpool.New(cfg.CanvasWidth * cfg.CanvasHeight * 2 * 3)

	s := &Server{
		cfg:      cfg,
		log:      log,
		identity: identity,
		auth:     auth,
		tlsCfg:   tlsCfg,
		clients:  clients,
		mixer:    m,
		metrics:  metrics.New(reg),
		registry: reg,
	}
	s.video = broadcast.New(broadcast.Config{
		TargetFPS: cfg.TargetFPS,
		CanvasW:   cfg.CanvasWidth,
		CanvasH:   cfg.CanvasHeight,
		Palette:   []byte(cfg.Palette),
		Color:     cfg.ColorMode,
		Compress:  cfg.CompressionLevel > 0,
		Pool:      canvasPool,
		Metrics:   s.metrics,
	}, clients, senderID, log)
	s.audio = broadcast.NewAudioLoop(m, clients, senderID, cfg.AudioMixMinusSelf)
	return s, nil
}

// Run starts every listener and background loop, blocking until ctx is
// canceled or a fatal error occurs. It returns the first error from any
// goroutine in the group, having canceled the rest.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var tcpLn net.Listener
	var err error
	if s.cfg.TCPPort > 0 {
		addr := fmt.Sprintf(":%d", s.cfg.TCPPort)
		tcpLn, err = net.Listen("tcp", addr)
		if err != nil {
			return bindError{err}
		}
		g.Go(func() error { return s.acceptTCP(ctx, tcpLn) })
	}

	var httpSrv *http.Server
	if s.cfg.WSPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.serveWS)
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		httpSrv = &http.Server{Addr: fmt.Sprintf(":%d", s.cfg.WSPort), Handler: mux}
		ln, lerr := net.Listen("tcp", httpSrv.Addr)
		if lerr != nil {
			if tcpLn != nil {
				tcpLn.Close()
			}
			return bindError{lerr}
		}
		g.Go(func() error {
			if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error { s.video.Run(ctx); return nil })
	g.Go(func() error { s.audio.Run(ctx); return nil })

	g.Go(func() error {
		<-ctx.Done()
		if tcpLn != nil {
			tcpLn.Close()
		}
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}

// bindError marks a listener failure as spec §6.2 exit code 3.
type bindError struct{ err error }

func (b bindError) Error() string { return b.err.Error() }
func (b bindError) Unwrap() error { return b.err }

func (s *Server) acceptTCP(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, s.wrapTCP(conn))
	}
}

func (s *Server) wrapTCP(conn net.Conn) transport.Transport {
	if s.tlsCfg != nil {
		tlsConn := tls.Server(conn, s.tlsCfg)
		return transport.NewTLS(tlsConn)
	}
	return transport.NewTCP(conn)
}

// handleConn runs one connection's full lifecycle: handshake, admission,
// and the receive/send task pair, cleaning up the client table entry on
// exit regardless of how the connection ended (spec §4.8).
func (s *Server) handleConn(ctx context.Context, t transport.Transport) {
	connID := uuid.New().String()
	log := s.log.With().Str("conn", connID).Str("remote", t.RemoteAddr()).Logger()

	secure := cryptoacip.NewSecureTransport(t)

	if s.clients.Count() >= s.cfg.MaxClients {
		s.rejectServerFull(t)
		t.Close()
		return
	}

	session, peerPub, err := s.runServerHandshake(t)
	if err != nil {
		s.metrics.HandshakeFailures.WithLabelValues(handshakeFailureReason(err)).Inc()
		log.Warn().Err(err).Msg("handshake failed")
		s.sendError(t, wire.ErrCodeAuthFailed, "handshake failed")
		t.Close()
		return
	}
	secure.SetSession(session)
	s.metrics.HandshakeSuccesses.Inc()
	_ = peerPub

	limits := clientmanager.DefaultLimits()
	info := s.clients.Add(secure, limits)
	info.SetState(clientmanager.StateAuthenticated)
	s.metrics.ClientsConnected.Inc()
	log = log.With().Uint32("client", info.ID).Logger()
	log.Info().Msg("client admitted")

	defer func() {
		s.clients.Remove(info.ID)
		s.mixer.RemoveSource(info.ID)
		t.Close()
		s.metrics.ClientsConnected.Dec()
		log.Info().Msg("client disconnected")
	}()

	connCtx, cancel := context.WithCancel(ctx)
	info.SetCancel(cancel)
	defer cancel()

	// Whichever task fails first cancels connCtx so its sibling exits too.
	var g errgroup.Group
	g.Go(func() error {
		err := clientmanager.ReceiveLoop(connCtx, info, true, log)
		if err != nil {
			info.Cancel()
		}
		return err
	})
	g.Go(func() error {
		err := clientmanager.SendLoop(connCtx, info)
		if err != nil {
			info.Cancel()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("client task exited")
	}
}

func (s *Server) runServerHandshake(t transport.Transport) (*cryptoacip.Session, []byte, error) {
	hs := cryptoacip.ServerHandshake{Identity: s.identity, Auth: s.auth}
	session, peerPub, err := hs.Run(
		func() (wire.HandshakeHello, error) {
			p, err := t.ReadPacket()
			if err != nil {
				return wire.HandshakeHello{}, err
			}
			if p.Header.Type != wire.TypeHandshakeHello {
				return wire.HandshakeHello{}, wire.ErrProtocol
			}
			return wire.DecodeHandshakeHello(p.Payload)
		},
		func(resp wire.HandshakeResponse) error {
			return t.WritePacket(wire.NewPacket(wire.TypeHandshakeResponse, senderID, resp.Encode()))
		},
		func() (wire.HandshakeFinish, error) {
			p, err := t.ReadPacket()
			if err != nil {
				return wire.HandshakeFinish{}, err
			}
			if p.Header.Type != wire.TypeHandshakeFinish {
				return wire.HandshakeFinish{}, wire.ErrProtocol
			}
			return wire.DecodeHandshakeFinish(p.Payload)
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return session, peerPub, nil
}

func (s *Server) rejectServerFull(t transport.Transport) {
	s.sendError(t, wire.ErrCodeServerFull, "server full")
}

func (s *Server) sendError(t transport.Transport, code uint32, msg string) {
	payload := wire.ErrorPayload{Code: code, Message: msg}.Encode()
	_ = t.WritePacket(wire.NewPacket(wire.TypeError, senderID, payload))
}

func handshakeFailureReason(err error) string {
	switch {
	case err == cryptoacip.ErrBadSignature:
		return "bad_signature"
	case err == cryptoacip.ErrAuthFailed:
		return "auth_failed"
	default:
		return "other"
	}
}
