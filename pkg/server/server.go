// Package server is the HTTP/websocket edge of the interaction layer. It
// upgrades /live connections into sessions, pumps frames in both directions,
// and exposes the metrics, health and upload endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderfood-dev/orderfood/pkg/live"
	"github.com/orderfood-dev/orderfood/pkg/middleware"
	"github.com/orderfood-dev/orderfood/pkg/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// Initializer mounts widgets onto a fresh session once the client's init
// frame names its page.
type Initializer interface {
	InitSession(sess *session.Session, init *live.Init) error
}

// Config holds the server settings.
type Config struct {
	// Listen is the bind address.
	Listen string

	// UploadHandler, when set, is mounted at POST /upload.
	UploadHandler http.Handler

	// StaticUploads, when non-empty, serves that directory at /uploads/.
	StaticUploads string
}

// Server owns the listener and the set of live sessions.
type Server struct {
	cfg     Config
	init    Initializer
	metrics *middleware.Metrics
	logger  *slog.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates the server. metrics may be nil in tests.
func New(cfg Config, init Initializer, metrics *middleware.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		init:    init,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*session.Session),
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/live", s.handleLive)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.cfg.UploadHandler != nil {
		r.Method(http.MethodPost, "/upload", s.cfg.UploadHandler)
	}
	if s.cfg.StaticUploads != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.StaticUploads)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then drains.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Listen)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)

	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()
	return err
}

// handleLive upgrades the connection and runs the read and write pumps
// until either side closes.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	sess := session.New(context.Background(), s.logger)
	s.track(sess)
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	s.logger.Info("session connected", "session", sess.ID, "remote", r.RemoteAddr)

	go s.writePump(conn, sess)
	s.readPump(conn, sess)

	sess.Close()
	s.untrack(sess)
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
	s.logger.Info("session disconnected", "session", sess.ID)
}

func (s *Server) readPump(conn *websocket.Conn, sess *session.Session) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame live.ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				s.logger.Warn("read error", "session", sess.ID, "err", err)
			}
			return
		}

		switch frame.Type {
		case live.FrameInit:
			if frame.Init == nil {
				s.logger.Warn("init frame without payload", "session", sess.ID)
				continue
			}
			if err := s.init.InitSession(sess, frame.Init); err != nil {
				s.logger.Error("session init failed", "session", sess.ID, "err", err)
				return
			}
		case live.FrameEvent:
			if frame.Event != nil {
				sess.HandleEvent(frame.Event)
			}
		case live.FrameDialog:
			if frame.Dialog != nil {
				sess.ResolveDialog(*frame.Dialog)
			}
		default:
			s.logger.Warn("unknown client frame", "session", sess.ID, "type", frame.Type)
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, sess *session.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-sess.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Warn("write error", "session", sess.ID, "err", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.StdContext().Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Server) track(sess *session.Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
}

// SessionCount reports the number of tracked sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
