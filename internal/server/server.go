// Package server exposes a session over HTTP and a websocket state stream.
//
// The session is single-threaded: every handler hands its work to a
// clock.Loop and waits for it, and the session's timers post to the same
// loop.
package server

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/tatianab/who-said-it/internal/app"
	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/stats"
)

const timeout = 10 * time.Second

//go:embed index.html
var indexHTML []byte

// Options configures a Server.
type Options struct {
	Version    string
	Difficulty models.Difficulty
	Log        *slog.Logger
}

// Server routes requests to one session.
type Server struct {
	session *engine.Session
	stats   *stats.Tracker
	loop    *clock.Loop
	hub     *hub
	opts    Options
	log     *slog.Logger
	router  *httprouter.Router
}

// New wires the routes. The loop must already be running, and session's
// scheduler must post to it.
func New(session *engine.Session, tracker *stats.Tracker, loop *clock.Loop, opts Options) *Server {
	if opts.Difficulty == "" {
		opts.Difficulty = models.Easy
	}
	s := &Server{
		session: session,
		stats:   tracker,
		loop:    loop,
		hub:     newHub(opts.Log),
		opts:    opts,
		log:     opts.Log,
		router:  httprouter.New(),
	}
	session.Subscribe(func(st engine.RoundState) {
		s.hub.broadcast(s.view(st))
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := s.router
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.log.Error("handler panic", "path", r.URL.Path, "panic", i)
		writeError(w, http.StatusInternalServerError, "an error has occurred, please try again")
	}

	mux.GET("/", s.serveIndex)
	mux.GET("/healthz", s.serveHealthCheck)
	mux.GET("/version", s.serveVersion)
	mux.GET("/qr.png", s.serveQR)
	mux.GET("/ws", s.serveWS)

	mux.GET("/api/state", s.getState)
	mux.GET("/api/difficulties", s.getDifficulties)
	mux.POST("/api/rounds", s.startRound)
	mux.POST("/api/rounds/answer", s.answer)
	mux.POST("/api/rounds/skip", s.skip)
	mux.DELETE("/api/rounds", s.abandon)
	mux.GET("/api/stats", s.getStats)
	mux.DELETE("/api/stats", s.resetStats)
}

// ServeHTTP logs and serves one request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.log.Debug("served", "method", r.Method, "path", r.URL.Path,
		"remote", realIP(r), "duration", time.Since(start).Round(time.Microsecond))
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.hub.closeAll()
}

// do runs f on the session's loop.
func (s *Server) do(ctx context.Context, f func()) error {
	return s.loop.Do(ctx, f)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (s *Server) serveHealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	securityHeaders(w)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Ok\n")
}

func (s *Server) serveVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	securityHeaders(w)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "who-said-it v"+s.opts.Version+"\n")
}

// Serve runs the HTTP front end for a until ctx is cancelled.
func Serve(ctx context.Context, a *app.App, version string) error {
	loop := clock.NewLoop()
	go loop.Run(ctx)

	session := a.NewSession(clock.NewReal(loop.Post))
	srv := New(session, a.Stats, loop, Options{
		Version:    version,
		Difficulty: a.Config.DefaultDifficulty(),
		Log:        a.Log.With("component", "server"),
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(a.Config.Bind, strconv.Itoa(a.Config.Port)),
		Handler:           srv,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errs := make(chan error, 1)
	go func() {
		a.Log.Info("listening", "addr", "http://"+httpSrv.Addr+"/", "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
