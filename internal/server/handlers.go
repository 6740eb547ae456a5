package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/models"
)

const maxBody = 1 << 16

// stateView is the JSON shape of a session's round.
type stateView struct {
	Active bool              `json:"active"`
	Round  engine.RoundState `json:"round"`
}

type statsView struct {
	models.Stats
	WinRate             int `json:"winRate"`
	AverageResponseTime int `json:"averageResponseTime"`
}

type difficultyView struct {
	Name       models.Difficulty `json:"name"`
	Accuracy   float64           `json:"accuracy"`
	MinDelayMS int64             `json:"minDelayMs"`
	MaxDelayMS int64             `json:"maxDelayMs"`
	Default    bool              `json:"default"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) view(st engine.RoundState) stateView {
	return stateView{Active: st.Phase != engine.PhaseFinished, Round: st}
}

func newStatsView(st models.Stats) statsView {
	return statsView{Stats: st, WinRate: st.WinRate(), AverageResponseTime: st.AverageResponseTime()}
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self'")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	securityHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorView{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	return host
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var v stateView
	if err := s.do(r.Context(), func() { v = s.view(s.session.State()) }); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getDifficulties(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := s.session.Engine()
	out := make([]difficultyView, 0, len(models.Difficulties))
	for _, d := range models.Difficulties {
		p := eng.Profile(d)
		out = append(out, difficultyView{
			Name:       d,
			Accuracy:   p.Accuracy,
			MinDelayMS: p.MinDelay.Milliseconds(),
			MaxDelayMS: p.MaxDelay.Milliseconds(),
			Default:    d == s.opts.Difficulty,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) startRound(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	d := s.opts.Difficulty
	if strings.TrimSpace(req.Difficulty) != "" {
		var err error
		if d, err = models.ParseDifficulty(req.Difficulty); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var (
		v        stateView
		startErr error
	)
	if err := s.do(r.Context(), func() {
		startErr = s.session.Start(d)
		v = s.view(s.session.State())
	}); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	var short *engine.InsufficientContentError
	switch {
	case errors.Is(startErr, content.ErrNoPoets):
		writeError(w, http.StatusServiceUnavailable, startErr.Error())
	case errors.As(startErr, &short):
		writeError(w, http.StatusUnprocessableEntity, startErr.Error())
	case startErr != nil:
		writeError(w, http.StatusInternalServerError, startErr.Error())
	default:
		s.log.Info("round started over http", "difficulty", d, "remote", realIP(r))
		writeJSON(w, http.StatusCreated, v)
	}
}

// act runs one session command and reports the resulting state, or a
// conflict when the command did not apply.
func (s *Server) act(w http.ResponseWriter, r *http.Request, what string, f func() bool) {
	var (
		v  stateView
		ok bool
	)
	if err := s.do(r.Context(), func() {
		ok = f()
		v = s.view(s.session.State())
	}); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, what+" not accepted in the current state")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		PoetID string `json:"poetId"`
	}
	if err := decode(w, r, &req); err != nil || req.PoetID == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"poetId\": \"...\"}")
		return
	}
	s.act(w, r, "answer", func() bool { return s.session.Answer(req.PoetID) })
}

func (s *Server) skip(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.act(w, r, "skip", s.session.Skip)
}

func (s *Server) abandon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.act(w, r, "abandon", s.session.Abandon)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var st models.Stats
	if err := s.do(r.Context(), func() { st = s.stats.Snapshot() }); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newStatsView(st))
}

func (s *Server) resetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var st models.Stats
	if err := s.do(r.Context(), func() {
		s.stats.Reset()
		st = s.stats.Snapshot()
	}); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log.Info("stats reset over http", "remote", realIP(r))
	writeJSON(w, http.StatusOK, newStatsView(st))
}

// serveQR encodes the game's URL so a phone on the same network can join.
func (s *Server) serveQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	const qrSize = 320
	png, err := qrcode.Encode(scheme+"://"+r.Host+"/", qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	securityHeaders(w)
	_, _ = w.Write(png)
}
