package engine

import (
	"slices"
	"time"

	"github.com/tatianab/who-said-it/internal/models"
)

// Phase is a round's position in the memorize/challenge/result lifecycle.
type Phase int

const (
	PhaseMemorizing Phase = iota
	PhasePresenting
	PhaseAwaiting
	PhaseResolved
	PhaseFinished
)

var phaseNames = [...]string{"memorizing", "presenting", "awaiting", "resolved", "finished"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Outcome is how a round ended, from the player's point of view.
type Outcome string

const (
	OutcomePending   Outcome = ""
	OutcomeVictory   Outcome = "victory"
	OutcomeDefeat    Outcome = "defeat"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

// Resolution describes how the current turn was decided.
type Resolution struct {
	Actor    models.Collector `json:"actor,omitempty"`
	PoetID   string           `json:"poetId,omitempty"`
	Correct  bool             `json:"correct"`
	Revealed bool             `json:"revealed"`
}

// RoundState is the authoritative state of one round.
type RoundState struct {
	Phase      Phase             `json:"phase"`
	Difficulty models.Difficulty `json:"difficulty"`
	Cards      []models.Card     `json:"cards"`
	// CurrentCardIndex is the next card to present.
	CurrentCardIndex int `json:"currentCardIndex"`
	PlayerScore      int `json:"playerScore"`
	AIScore          int `json:"aiScore"`
	// Challenge indexes Cards; -1 when no verse is on screen.
	Challenge int `json:"challenge"`
	// Options is the order the poets are offered in for the current turn,
	// as indexes into Cards. It is reshuffled every turn.
	Options     []int      `json:"options"`
	Turn        int        `json:"turn"`
	TimeLeft    int        `json:"timeLeft"`
	PresentedAt time.Time  `json:"presentedAt"`
	Last        Resolution `json:"last"`
	Outcome     Outcome    `json:"outcome,omitempty"`
}

// CurrentChallenge returns the card whose verse is being asked about.
func (s RoundState) CurrentChallenge() (models.Card, bool) {
	if s.Challenge < 0 || s.Challenge >= len(s.Cards) {
		return models.Card{}, false
	}
	return s.Cards[s.Challenge], true
}

// Clone copies the cards so the result shares nothing mutable with s.
func (s RoundState) Clone() RoundState {
	s.Cards = slices.Clone(s.Cards)
	s.Options = slices.Clone(s.Options)
	return s
}

// Grid returns the cards in the order they are offered for the current
// turn. Without a shuffled order it falls back to Cards.
func (s RoundState) Grid() []models.Card {
	if len(s.Options) != len(s.Cards) {
		return s.Cards
	}
	grid := make([]models.Card, len(s.Options))
	for i, j := range s.Options {
		grid[i] = s.Cards[j]
	}
	return grid
}

func (s RoundState) cardIndex(poetID string) int {
	return slices.IndexFunc(s.Cards, func(c models.Card) bool { return c.PoetID == poetID })
}

func (s *RoundState) credit(actor models.Collector) {
	switch actor {
	case models.CollectedPlayer:
		s.PlayerScore++
	case models.CollectedAI:
		s.AIScore++
	}
}
