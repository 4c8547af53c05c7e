// Package server accepts game clients over WebSocket and feeds their commands to the dispatcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/internal/dispatcher"
	"github.com/broadside/server/pkg/protocol"
)

const shutdownTimeout = 5 * time.Second

// Dependencies holds what the server needs to route client commands.
type Dependencies struct {
	Dispatcher *dispatcher.Dispatcher
	Hub        *Hub
	Codec      protocol.Codec
	// OnDisconnect runs after a client has been removed from the hub.
	OnDisconnect func(dispatcher.Client)
	// Status adds fields to the healthcheck response.
	Status func() map[string]any
	Logger *slog.Logger
}

// Server is the WebSocket endpoint.
type Server struct {
	cfg      config.ServerConfig
	deps     Dependencies
	upgrader ws.Upgrader
	started  time.Time

	wg sync.WaitGroup
}

// New creates a server. Zero config values fall back to the config defaults.
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}
	if deps.Codec == nil {
		deps.Codec = protocol.JSONCodec{}
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		upgrader: ws.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		started: time.Now(),
	}
}

// Hub returns the connected clients.
func (s *Server) Hub() *Hub {
	return s.deps.Hub
}

// Handler returns the HTTP routes: the WebSocket endpoint, /healthcheck and,
// when configured, the static client files.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)

	var static http.Handler
	if s.cfg.StaticDir != "" {
		static = http.FileServer(http.Dir(s.cfg.StaticDir))
	}

	mux.HandleFunc(s.cfg.Path, func(w http.ResponseWriter, r *http.Request) {
		if static != nil && !ws.IsWebSocketUpgrade(r) {
			static.ServeHTTP(w, r)
			return
		}
		s.ServeWS(w, r)
	})
	if static != nil && s.cfg.Path != "/" {
		mux.Handle("/", static)
	}
	return mux
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.deps.Hub.Len(),
		"codec":   s.deps.Codec.Name(),
	}
	if s.deps.Status != nil {
		for k, v := range s.deps.Status() {
			body[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.deps.Logger.Warn("healthcheck write failed", "error", err)
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	c := newClient(uuid.NewString(), conn, s.deps.Codec, s.cfg.SendBuffer, s.cfg.WriteTimeout, s.cfg.PingInterval, s.deps.Logger)
	s.deps.Hub.Add(c)
	c.logger.Info("client connected", "remote", r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()

	err = c.readLoop(func(frame []byte) { s.handleFrame(c, frame) })
	if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway, ws.CloseNoStatusReceived) {
		c.logger.Warn("client read error", "error", err)
	}

	s.deps.Hub.Remove(c)
	c.Close()
	if s.deps.OnDisconnect != nil {
		s.deps.OnDisconnect(c)
	}
	c.logger.Info("client disconnected", "user", c.UserName())
}

// handleFrame decodes one frame and dispatches it. Failures are reported to the
// sender as an error message.
func (s *Server) handleFrame(c *Client, frame []byte) {
	msg, err := s.deps.Codec.Decode(frame)
	if err != nil {
		s.replyError(c, "", err)
		return
	}
	if !protocol.IsInput(msg.Type) {
		s.replyError(c, msg.Type, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, msg.Type))
		return
	}

	_, err = s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command:   msg.Type,
		Data:      msg.Data,
		Client:    c,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.replyError(c, msg.Type, err)
	}
}

func (s *Server) replyError(c *Client, forType string, err error) {
	if sendErr := c.Send(protocol.TypeError, protocol.ErrorPayload{For: forType, ErrorText: err.Error()}); sendErr != nil {
		c.logger.Debug("error reply failed", "error", sendErr)
	}
}

// Wait blocks until every client goroutine has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe serves until ctx is cancelled, then closes every client and shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("server listening", "addr", ln.Addr().String(), "path", s.cfg.Path, "codec", s.deps.Codec.Name())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked connections are not tracked by Shutdown
	s.deps.Hub.CloseAll()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	s.deps.Logger.Info("server stopped")
	return err
}
