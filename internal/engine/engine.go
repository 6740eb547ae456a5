// Package engine runs a round: memorization, then one verse at a time
// raced between the player and the scripted opponent, then the result.
//
// Engine is a pure state machine. Step takes the current RoundState and an
// Event and returns the next state plus the effects (timers, stats) the
// caller must perform. Session is the driver that performs them.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/models"
)

// Settings are the round rules.
type Settings struct {
	CardsPerRound   int
	WinThreshold    int
	MemorizeTicks   int
	TickInterval    time.Duration
	ChallengeWindow time.Duration
	CorrectPause    time.Duration
	RevealDelay     time.Duration
	RevealPause     time.Duration
	// StrictContent refuses to start a round with fewer cards than
	// CardsPerRound instead of playing a smaller one.
	StrictContent bool
}

// DefaultSettings are the stock rules: 15 cards, first to 5, one minute
// to memorize.
func DefaultSettings() Settings {
	return Settings{
		CardsPerRound:   15,
		WinThreshold:    5,
		MemorizeTicks:   60,
		TickInterval:    time.Second,
		ChallengeWindow: 60 * time.Second,
		CorrectPause:    1500 * time.Millisecond,
		RevealDelay:     1000 * time.Millisecond,
		RevealPause:     1500 * time.Millisecond,
	}
}

// InsufficientContentError means fewer poets exist than a round asks for.
type InsufficientContentError struct {
	Requested int
	Available int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("round needs %d poets but only %d are available", e.Requested, e.Available)
}

// Engine applies events to round states.
type Engine struct {
	settings  Settings
	responder *ai.Responder
	rng       *rand.Rand
	log       *slog.Logger
}

// New returns an engine. rng drives card sampling and shuffling; the
// responder has its own.
func New(settings Settings, responder *ai.Responder, rng *rand.Rand, log *slog.Logger) *Engine {
	return &Engine{settings: settings, responder: responder, rng: rng, log: log}
}

// Settings returns the rules the engine was built with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Profile returns the opponent profile the engine plays d with.
func (e *Engine) Profile(d models.Difficulty) models.DifficultyProfile {
	return e.responder.Profile(d)
}

// StartRound samples cardsPerRound distinct poets and one verse from each
// and opens the memorization window.
func (e *Engine) StartRound(poets []models.Poet, cardsPerRound int, d models.Difficulty) (Transition, error) {
	if len(poets) == 0 {
		return Transition{}, fmt.Errorf("start round: %w", content.ErrNoPoets)
	}
	if cardsPerRound <= 0 {
		cardsPerRound = e.settings.CardsPerRound
	}
	n := cardsPerRound
	if len(poets) < n {
		err := &InsufficientContentError{Requested: n, Available: len(poets)}
		if e.settings.StrictContent {
			return Transition{}, err
		}
		e.log.Warn("starting a smaller round", "error", err)
		n = len(poets)
	}

	cards := make([]models.Card, n)
	for i, j := range e.rng.Perm(len(poets))[:n] {
		p := poets[j]
		cards[i] = models.Card{
			PoetID:   p.ID,
			PoetName: p.Name,
			Verse:    p.Verses[e.rng.IntN(len(p.Verses))],
		}
	}

	s := RoundState{
		Phase:      PhaseMemorizing,
		Difficulty: d,
		Cards:      cards,
		Challenge:  -1,
		TimeLeft:   e.settings.MemorizeTicks,
	}
	e.log.Info("round started", "difficulty", d, "cards", n)
	return Transition{
		State:    s,
		Effects:  []Effect{StartTicker{Interval: e.settings.TickInterval}},
		Accepted: true,
	}, nil
}

// Step applies ev to s.
func (e *Engine) Step(s RoundState, ev Event) Transition {
	switch ev := ev.(type) {
	case Tick:
		if s.Phase != PhaseMemorizing {
			break
		}
		s.TimeLeft--
		if s.TimeLeft > 0 {
			return Transition{State: s, Accepted: true}
		}
		return e.endMemorization(s, ev.At)
	case SkipMemorization:
		if s.Phase != PhaseMemorizing {
			break
		}
		return e.endMemorization(s, ev.At)
	case Answer:
		return e.answer(s, ev)
	case AIFired:
		return e.aiFired(s, ev)
	case PauseElapsed:
		return e.pauseElapsed(s, ev)
	case Abandon:
		if s.Phase == PhaseFinished {
			break
		}
		s.Phase = PhaseFinished
		s.Outcome = OutcomeAbandoned
		s.Challenge = -1
		s.Options = nil
		return Transition{
			State:    s,
			Effects:  []Effect{StopTicker{}, CancelAI{}, CancelPause{}},
			Accepted: true,
		}
	}
	return Transition{State: s}
}

func (e *Engine) endMemorization(s RoundState, at time.Time) Transition {
	s = s.Clone()
	s.TimeLeft = 0
	e.rng.Shuffle(len(s.Cards), func(i, j int) { s.Cards[i], s.Cards[j] = s.Cards[j], s.Cards[i] })
	s.CurrentCardIndex = 0
	t := e.AdvanceChallenge(s, at)
	t.Effects = append([]Effect{StopTicker{}}, t.Effects...)
	return t
}

// AdvanceChallenge checks whether the round is over and, if not, puts the
// next card's verse up and schedules the opponent's response.
// Termination is checked in order: player threshold, opponent threshold,
// cards exhausted.
func (e *Engine) AdvanceChallenge(s RoundState, at time.Time) Transition {
	s.Phase = PhasePresenting
	s.Challenge = -1
	s.Options = nil
	s.Last = Resolution{}

	if outcome, done := e.outcome(s); done {
		s.Phase = PhaseFinished
		s.Outcome = outcome
		e.log.Info("round finished", "outcome", outcome, "player", s.PlayerScore, "ai", s.AIScore)
		return Transition{
			State: s,
			Effects: []Effect{
				CancelAI{},
				RecordRoundEnd{PlayerScore: s.PlayerScore, AIScore: s.AIScore},
			},
			Accepted: true,
		}
	}

	s.Challenge = s.CurrentCardIndex
	s.Options = e.rng.Perm(len(s.Cards))
	s.CurrentCardIndex++
	s.Turn++
	s.PresentedAt = at
	s.Phase = PhaseAwaiting
	plan := e.responder.Plan(s.Turn, s.Difficulty)
	return Transition{State: s, Effects: []Effect{ScheduleAI{Plan: plan}}, Accepted: true}
}

func (e *Engine) outcome(s RoundState) (Outcome, bool) {
	switch {
	case s.PlayerScore >= e.settings.WinThreshold:
		return OutcomeVictory, true
	case s.AIScore >= e.settings.WinThreshold:
		return OutcomeDefeat, true
	case s.CurrentCardIndex >= len(s.Cards):
		switch {
		case s.PlayerScore > s.AIScore:
			return OutcomeVictory, true
		case s.PlayerScore < s.AIScore:
			return OutcomeDefeat, true
		default:
			return OutcomeDraw, true
		}
	}
	return OutcomePending, false
}

func (e *Engine) answer(s RoundState, ev Answer) Transition {
	if s.Phase != PhaseAwaiting || ev.Turn != s.Turn {
		return Transition{State: s}
	}
	if ev.Actor != models.CollectedPlayer && ev.Actor != models.CollectedAI {
		return Transition{State: s}
	}
	i := s.cardIndex(ev.PoetID)
	if i < 0 || s.Cards[i].Collected != models.CollectedNone {
		return Transition{State: s}
	}
	return e.resolve(s, ev.Actor, ev.PoetID, ev.At)
}

// resolve settles the turn. A correct answer collects the card for the
// answering actor; a wrong one scores for the other side.
func (e *Engine) resolve(s RoundState, actor models.Collector, poetID string, at time.Time) Transition {
	s = s.Clone()
	correct := poetID == s.Cards[s.Challenge].PoetID

	var fx []Effect
	if actor == models.CollectedPlayer {
		fx = append(fx, CancelAI{}, RecordResponse{Remaining: e.remaining(s, at), Correct: correct})
	}

	s.Phase = PhaseResolved
	s.Last = Resolution{Actor: actor, PoetID: poetID, Correct: correct}
	if correct {
		s.Cards[s.Challenge].Collected = actor
		s.credit(actor)
		s.Last.Revealed = true
		fx = append(fx, SchedulePause{Kind: PauseAdvance, Turn: s.Turn, Delay: e.settings.CorrectPause})
	} else {
		s.credit(actor.Opponent())
		fx = append(fx, SchedulePause{Kind: PauseReveal, Turn: s.Turn, Delay: e.settings.RevealDelay})
	}
	e.log.Debug("turn resolved", "turn", s.Turn, "actor", actor, "correct", correct,
		"player", s.PlayerScore, "ai", s.AIScore)
	return Transition{State: s, Effects: fx, Accepted: true}
}

// remaining is the challenge clock in whole seconds at the moment of an
// answer.
func (e *Engine) remaining(s RoundState, at time.Time) int {
	left := e.settings.ChallengeWindow - at.Sub(s.PresentedAt)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

func (e *Engine) aiFired(s RoundState, ev AIFired) Transition {
	if s.Phase != PhaseAwaiting || ev.Plan.Turn != s.Turn {
		return Transition{State: s}
	}
	correctID := s.Cards[s.Challenge].PoetID
	poetID, ok := e.responder.Choose(ev.Plan, s.Cards, correctID)
	if !ok {
		e.log.Debug("opponent abstained", "turn", s.Turn)
		return e.AdvanceChallenge(s, ev.At)
	}
	return e.resolve(s, models.CollectedAI, poetID, ev.At)
}

func (e *Engine) pauseElapsed(s RoundState, ev PauseElapsed) Transition {
	if s.Phase != PhaseResolved || ev.Turn != s.Turn {
		return Transition{State: s}
	}
	switch ev.Kind {
	case PauseReveal:
		s.Last.Revealed = true
		return Transition{
			State:    s,
			Effects:  []Effect{SchedulePause{Kind: PauseAdvance, Turn: s.Turn, Delay: e.settings.RevealPause}},
			Accepted: true,
		}
	case PauseAdvance:
		return e.AdvanceChallenge(s, ev.At)
	}
	return Transition{State: s}
}
