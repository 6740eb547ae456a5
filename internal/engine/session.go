package engine

import (
	"log/slog"

	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/models"
)

// StatsRecorder receives round and response results.
type StatsRecorder interface {
	RecordRoundEnd(playerScore, aiScore int)
	RecordResponse(remaining int, correct bool)
}

// Session drives one player's rounds. It performs the effects the engine
// asks for and keeps at most one countdown, one opponent response and one
// display pause armed at a time.
//
// A Session is not safe for concurrent use. Every method, and every
// scheduler callback, must run on the same logical thread; clock.Real
// together with clock.Loop or a bubbletea program provides that.
type Session struct {
	engine *Engine
	sched  clock.Scheduler
	stats  StatsRecorder
	poets  []models.Poet
	log    *slog.Logger

	state  RoundState
	active bool

	ticker  clock.Timer
	pending *ai.Pending
	pause   clock.Timer

	listeners []func(RoundState)
}

// NewSession returns an idle session over poets.
func NewSession(engine *Engine, sched clock.Scheduler, stats StatsRecorder, poets []models.Poet, log *slog.Logger) *Session {
	return &Session{
		engine: engine,
		sched:  sched,
		stats:  stats,
		poets:  poets,
		log:    log,
		state:  RoundState{Phase: PhaseFinished, Challenge: -1},
	}
}

// Subscribe registers fn to receive a copy of the state after every change.
func (s *Session) Subscribe(fn func(RoundState)) {
	s.listeners = append(s.listeners, fn)
}

// Engine returns the engine the session steps.
func (s *Session) Engine() *Engine {
	return s.engine
}

// State returns a copy of the current round.
func (s *Session) State() RoundState {
	return s.state.Clone()
}

// Active reports whether a round has been started and not yet finished.
func (s *Session) Active() bool {
	return s.active && s.state.Phase != PhaseFinished
}

// Start abandons any round in progress and begins a new one.
func (s *Session) Start(d models.Difficulty) error {
	if s.Active() {
		s.dispatch(Abandon{})
	}
	t, err := s.engine.StartRound(s.poets, s.engine.settings.CardsPerRound, d)
	if err != nil {
		return err
	}
	s.active = true
	s.apply(t)
	return nil
}

// Answer submits the player's pick for the verse on screen. It reports
// whether the answer was accepted.
func (s *Session) Answer(poetID string) bool {
	return s.dispatch(Answer{
		Actor:  models.CollectedPlayer,
		PoetID: poetID,
		Turn:   s.state.Turn,
		At:     s.sched.Now(),
	})
}

// Skip ends memorization early.
func (s *Session) Skip() bool {
	return s.dispatch(SkipMemorization{At: s.sched.Now()})
}

// Abandon leaves the current round unscored and disarms every timer.
func (s *Session) Abandon() bool {
	return s.dispatch(Abandon{})
}

func (s *Session) dispatch(ev Event) bool {
	if !s.active {
		return false
	}
	t := s.engine.Step(s.state, ev)
	if !t.Accepted {
		s.log.Debug("event ignored", "event", ev, "phase", s.state.Phase, "turn", s.state.Turn)
		return false
	}
	s.apply(t)
	return true
}

func (s *Session) apply(t Transition) {
	s.state = t.State
	for _, fx := range t.Effects {
		switch fx := fx.(type) {
		case StartTicker:
			s.stopTicker()
			s.armTicker(fx)
		case StopTicker:
			s.stopTicker()
		case ScheduleAI:
			s.cancelAI()
			s.pending = ai.Schedule(s.sched, fx.Plan, s.aiFired)
		case CancelAI:
			s.cancelAI()
		case SchedulePause:
			s.cancelPause()
			s.armPause(fx)
		case CancelPause:
			s.cancelPause()
		case RecordResponse:
			s.stats.RecordResponse(fx.Remaining, fx.Correct)
		case RecordRoundEnd:
			s.stats.RecordRoundEnd(fx.PlayerScore, fx.AIScore)
		}
	}
	for _, fn := range s.listeners {
		fn(s.state.Clone())
	}
}

func (s *Session) armTicker(fx StartTicker) {
	var t clock.Timer
	t = s.sched.AfterFunc(fx.Interval, func() {
		if s.ticker != t {
			return
		}
		s.ticker = nil
		s.dispatch(Tick{At: s.sched.Now()})
		if s.state.Phase == PhaseMemorizing && s.ticker == nil {
			s.armTicker(fx)
		}
	})
	s.ticker = t
}

func (s *Session) armPause(fx SchedulePause) {
	var t clock.Timer
	t = s.sched.AfterFunc(fx.Delay, func() {
		if s.pause != t {
			return
		}
		s.pause = nil
		s.dispatch(PauseElapsed{Kind: fx.Kind, Turn: fx.Turn, At: s.sched.Now()})
	})
	s.pause = t
}

func (s *Session) aiFired(p *ai.Pending) {
	if s.pending != p {
		return
	}
	s.pending = nil
	s.dispatch(AIFired{Plan: p.Plan, At: s.sched.Now()})
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) cancelAI() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

func (s *Session) cancelPause() {
	if s.pause != nil {
		s.pause.Stop()
		s.pause = nil
	}
}
