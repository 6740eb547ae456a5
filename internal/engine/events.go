package engine

import (
	"time"

	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/models"
)

// Event is an input to Step.
type Event interface {
	isEvent()
}

// Tick is one beat of the memorization countdown.
type Tick struct{ At time.Time }

// SkipMemorization ends the memorization window early.
type SkipMemorization struct{ At time.Time }

// Answer names a poet for the verse presented on Turn.
type Answer struct {
	Actor  models.Collector
	PoetID string
	Turn   int
	At     time.Time
}

// AIFired is delivered when a scheduled opponent response comes due.
type AIFired struct {
	Plan ai.Plan
	At   time.Time
}

// PauseKind distinguishes the result-display pauses.
type PauseKind int

const (
	// PauseReveal ends the wait before the correct card is highlighted
	// after a wrong answer.
	PauseReveal PauseKind = iota
	// PauseAdvance ends the wait before the next verse.
	PauseAdvance
)

// PauseElapsed is delivered when a display pause for Turn ends.
type PauseElapsed struct {
	Kind PauseKind
	Turn int
	At   time.Time
}

// Abandon leaves the round without scoring it.
type Abandon struct{}

func (Tick) isEvent()             {}
func (SkipMemorization) isEvent() {}
func (Answer) isEvent()           {}
func (AIFired) isEvent()          {}
func (PauseElapsed) isEvent()     {}
func (Abandon) isEvent()          {}

// Effect is work a transition asks the driver to perform.
type Effect interface {
	isEffect()
}

// StartTicker arms the periodic memorization countdown.
type StartTicker struct{ Interval time.Duration }

// StopTicker disarms the countdown.
type StopTicker struct{}

// ScheduleAI arms the opponent's response for the current turn.
type ScheduleAI struct{ Plan ai.Plan }

// CancelAI drops any pending opponent response.
type CancelAI struct{}

// SchedulePause arms a one-shot display pause.
type SchedulePause struct {
	Kind  PauseKind
	Turn  int
	Delay time.Duration
}

// CancelPause drops any pending display pause.
type CancelPause struct{}

// RecordResponse reports a player answer to the stats tracker.
type RecordResponse struct {
	Remaining int
	Correct   bool
}

// RecordRoundEnd reports a finished round to the stats tracker.
type RecordRoundEnd struct {
	PlayerScore int
	AIScore     int
}

func (StartTicker) isEffect()    {}
func (StopTicker) isEffect()     {}
func (ScheduleAI) isEffect()     {}
func (CancelAI) isEffect()       {}
func (SchedulePause) isEffect()  {}
func (CancelPause) isEffect()    {}
func (RecordResponse) isEffect() {}
func (RecordRoundEnd) isEffect() {}

// Transition is the result of applying an event: the next state and the
// effects to run. Accepted is false when the event did not apply to the
// state, in which case State is unchanged and Effects is empty.
type Transition struct {
	State    RoundState
	Effects  []Effect
	Accepted bool
}
