// Package server exposes advice sessions over a websocket, one session per connection.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spigell/cv-advisor/internal/channel"
	"github.com/spigell/cv-advisor/internal/document"
	"github.com/spigell/cv-advisor/internal/logger"
	"github.com/spigell/cv-advisor/internal/workflow"
	"go.uber.org/zap"
)

const (
	DefaultSessionTimeout = 30 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

// ControllerFactory builds a controller reporting progress to one connection.
type ControllerFactory func(onProgress workflow.ProgressCallback) *workflow.Controller

type Options struct {
	SessionTimeout time.Duration
	// AllowedOrigins is empty to accept any origin.
	AllowedOrigins []string
}

type Server struct {
	newController  ControllerFactory
	logger         *zap.Logger
	upgrader       websocket.Upgrader
	sessionTimeout time.Duration
}

func New(factory ControllerFactory, opts Options, log *zap.Logger) *Server {
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = DefaultSessionTimeout
	}

	s := &Server{
		newController:  factory,
		logger:         logger.WithFields(log, zap.String(logger.FieldStage, "server")),
		sessionTimeout: opts.SessionTimeout,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSession)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws := channel.NewWebSocket(conn)
	defer ws.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.sessionTimeout)
	defer cancel()

	start, err := ws.Start(ctx)
	if err != nil {
		s.logger.Warn("reading start message", zap.Error(err))
		_ = ws.Write(channel.Message{Type: channel.TypeError, Text: err.Error()})
		return
	}

	sessionID := uuid.NewString()
	title := strings.TrimSpace(start.Title)
	if title == "" && strings.TrimSpace(start.Job) != "" {
		title = document.ExtractTitle(start.Job)
	}

	log := logger.WithFields(s.logger, logger.SessionFields(sessionID, title)...)
	log.Info("session started", zap.String("remote_addr", r.RemoteAddr))

	controller := s.newController(func(event workflow.Event) {
		if err := ws.Write(channel.Message{Type: channel.TypeProgress, Step: event.Step, Text: event.Message}); err != nil {
			log.Debug("sending progress", zap.Error(err))
		}
	})

	report, err := controller.Run(ctx, workflow.Input{
		SessionID: sessionID,
		JobTitle:  title,
		CV:        start.CV,
		Job:       start.Job,
	}, ws)
	if err != nil {
		log.Warn("session failed", zap.Error(err))
		_ = ws.Write(channel.Message{Type: channel.TypeError, Text: err.Error()})
		return
	}

	if err := ws.Write(channel.Message{Type: channel.TypeReport, Title: title, Text: report.Render()}); err != nil {
		log.Warn("sending report", zap.Error(err))
		return
	}

	log.Info("session complete")
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
