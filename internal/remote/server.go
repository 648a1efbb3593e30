// Package remote exposes the session over HTTP and a websocket feed so the
// player can be driven from another process or a headless host.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/session"
	"github.com/kikiluvv/reactionsync/internal/topology"
	"github.com/kikiluvv/reactionsync/pkg/util"
)

const requestTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from a page served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// rejectCrossOrigin stops pages on other sites from driving the player
// through the user's browser.
func rejectCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			writeError(w, http.StatusForbidden, "cross-origin request refused")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type Server struct {
	logger zerolog.Logger
	sess   *session.Session
	hub    *Hub
	router chi.Router
}

// NewServer builds the router. The caller subscribes hub.Publish to the
// session and runs the hub.
func NewServer(logger zerolog.Logger, sess *session.Session, hub *Hub) *Server {
	s := &Server{
		logger: logger.With().Str("component", "remote").Logger(),
		sess:   sess,
		hub:    hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	s.routes(r)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(rejectCrossOrigin)
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/state", s.handleState)
		r.Post("/play-pause", s.handlePlayPause)
		r.Post("/play", s.handlePlay)
		r.Post("/offset", s.handleOffset)
		r.Post("/seek", s.handleSeek)
		r.Post("/swap", s.handleSwap)
		r.Post("/overlay", s.handleOverlay)
		r.Post("/theater/exit", s.handleExitTheater)
		r.Post("/load", s.handleLoad)
		r.Post("/volume/{role}", s.handleVolume)
		r.Post("/fullscreen/{role}", s.handleFullscreen)
	})
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
			s.logger.Warn().Str("addr", addr).Msg("remote control is reachable from other hosts")
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("remote control listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.join(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(*session.Session) error { return nil })
}

func (s *Server) handlePlayPause(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(sess *session.Session) error {
		sess.PlayPause()
		return nil
	})
}

type playRequest struct {
	Playing bool `json:"playing"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decode(w, r, &req) {
		return
	}
	s.run(w, r, func(sess *session.Session) error {
		sess.SetPlaying(req.Playing)
		return nil
	})
}

// timeRequest carries a time either as seconds or as a timestamp string
type timeRequest struct {
	Seconds   *float64 `json:"seconds"`
	Timestamp string   `json:"timestamp"`
}

func (t timeRequest) value() (float64, error) {
	if t.Seconds != nil {
		return *t.Seconds, nil
	}
	if t.Timestamp == "" {
		return 0, errors.New("seconds or timestamp is required")
	}
	d, err := util.ParseTimestamp(t.Timestamp)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := req.value()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.run(w, r, func(sess *session.Session) error {
		sess.SetOffset(v)
		return nil
	})
}

// handleSeek performs a complete jump: begin, seek, release
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := req.value()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if v < 0 {
		writeError(w, http.StatusBadRequest, "position must not be negative")
		return
	}
	s.run(w, r, func(sess *session.Session) error {
		sess.SeekTo(v)
		return nil
	})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(sess *session.Session) error { return sess.Swap() })
}

type overlayRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	if !decode(w, r, &req) {
		return
	}
	s.run(w, r, func(sess *session.Session) error { return sess.SetOverlayMode(req.Enabled) })
}

func (s *Server) handleExitTheater(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(sess *session.Session) error {
		sess.ExitTheater()
		return nil
	})
}

type loadRequest struct {
	Role string `json:"role"`
	Path string `json:"path"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Path != "" {
		if !util.FileExists(req.Path) {
			writeError(w, http.StatusNotFound, "file not found: "+req.Path)
			return
		}
		if !util.IsVideoFile(req.Path) {
			writeError(w, http.StatusUnsupportedMediaType, "not a video file: "+req.Path)
			return
		}
	}
	s.run(w, r, func(sess *session.Session) error { return sess.Load(role, req.Path) })
}

type volumeRequest struct {
	Volume int `json:"volume"`
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	role, err := session.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req volumeRequest
	if !decode(w, r, &req) {
		return
	}
	s.run(w, r, func(sess *session.Session) error { return sess.SetVolume(role, req.Volume) })
}

func (s *Server) handleFullscreen(w http.ResponseWriter, r *http.Request) {
	role, err := session.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.run(w, r, func(sess *session.Session) error { return sess.RequestFullscreen(role) })
}

// run executes fn on the control thread and answers with the resulting
// snapshot
func (s *Server) run(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	var snap session.Snapshot
	err := s.sess.Do(r.Context(), func(sess *session.Session) error {
		err := fn(sess)
		snap = sess.Snapshot()
		return err
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, topology.ErrTopologyConfusion):
		return http.StatusConflict
	case errors.Is(err, session.ErrLoadFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
