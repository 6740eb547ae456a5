// Package ai implements the scripted opponent: how often it answers
// correctly, how long it takes, and which poet it names when it is wrong.
package ai

import (
	"math/rand/v2"
	"time"

	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/models"
)

// Plan is a response drawn for one turn, before its delay elapses.
type Plan struct {
	Turn    int
	Correct bool
	Delay   time.Duration
}

// Responder draws plans and answers from a difficulty profile table.
type Responder struct {
	profiles map[models.Difficulty]models.DifficultyProfile
	rng      *rand.Rand
}

// NewResponder uses the default profiles when profiles is nil.
func NewResponder(rng *rand.Rand, profiles map[models.Difficulty]models.DifficultyProfile) *Responder {
	if profiles == nil {
		profiles = models.DefaultProfiles()
	}
	return &Responder{profiles: profiles, rng: rng}
}

// Profile returns the profile for d. Unknown levels play as easy.
func (r *Responder) Profile(d models.Difficulty) models.DifficultyProfile {
	if p, ok := r.profiles[d]; ok {
		return p
	}
	return r.profiles[models.Easy]
}

// Plan draws whether the opponent will be right this turn and how long it
// will think.
func (r *Responder) Plan(turn int, d models.Difficulty) Plan {
	p := r.Profile(d)
	delay := p.MinDelay
	if span := p.MaxDelay - p.MinDelay; span > 0 {
		delay += time.Duration(r.rng.Int64N(int64(span) + 1))
	}
	return Plan{
		Turn:    turn,
		Correct: r.rng.Float64() < p.Accuracy,
		Delay:   delay,
	}
}

// Choose names the poet to answer with. A wrong answer is drawn from the
// cards nobody has collected yet, excluding the right one; with none left
// the opponent abstains and ok is false.
func (r *Responder) Choose(plan Plan, cards []models.Card, correctID string) (poetID string, ok bool) {
	if plan.Correct {
		return correctID, true
	}
	var candidates []string
	for _, c := range cards {
		if c.Collected == models.CollectedNone && c.PoetID != correctID {
			candidates = append(candidates, c.PoetID)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[r.rng.IntN(len(candidates))], true
}

// Pending is a scheduled response that has not fired yet.
type Pending struct {
	Plan      Plan
	timer     clock.Timer
	cancelled bool
}

// Schedule arms plan on s. fire runs once the delay elapses unless the
// pending response is cancelled first.
func Schedule(s clock.Scheduler, plan Plan, fire func(*Pending)) *Pending {
	p := &Pending{Plan: plan}
	p.timer = s.AfterFunc(plan.Delay, func() {
		if p.cancelled {
			return
		}
		fire(p)
	})
	return p
}

// Cancel stops the response. Calling it more than once is harmless.
func (p *Pending) Cancel() {
	if p == nil || p.cancelled {
		return
	}
	p.cancelled = true
	p.timer.Stop()
}

// Cancelled reports whether Cancel was called.
func (p *Pending) Cancelled() bool {
	return p != nil && p.cancelled
}
