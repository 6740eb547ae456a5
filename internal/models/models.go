package models

import (
	"fmt"
	"strings"
	"time"
)

// Poet is a single author and the verses attributed to them.
type Poet struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Verses []string `json:"verses" yaml:"verses"`
}

// Collector records which actor correctly attributed a card.
type Collector string

const (
	CollectedNone   Collector = ""
	CollectedPlayer Collector = "player"
	CollectedAI     Collector = "ai"
)

// Opponent returns the other actor. CollectedNone has no opponent.
func (c Collector) Opponent() Collector {
	switch c {
	case CollectedPlayer:
		return CollectedAI
	case CollectedAI:
		return CollectedPlayer
	default:
		return CollectedNone
	}
}

// Card pairs a poet with the verse shown for them during a round.
type Card struct {
	PoetID    string    `json:"poetId"`
	PoetName  string    `json:"poetName"`
	Verse     string    `json:"verse"`
	Collected Collector `json:"collected,omitempty"`
}

// Difficulty selects the opponent's profile.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the levels in menu order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty is case-insensitive.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// DifficultyProfile is how accurate and how quick the opponent is.
type DifficultyProfile struct {
	Accuracy float64       `json:"accuracy"`
	MinDelay time.Duration `json:"minDelay"`
	MaxDelay time.Duration `json:"maxDelay"`
}

// Validate checks accuracy is a probability and the delay range is ordered.
func (p DifficultyProfile) Validate() error {
	if p.Accuracy < 0 || p.Accuracy > 1 {
		return fmt.Errorf("accuracy %v outside [0,1]", p.Accuracy)
	}
	if p.MinDelay < 0 || p.MinDelay > p.MaxDelay {
		return fmt.Errorf("invalid delay range %s-%s", p.MinDelay, p.MaxDelay)
	}
	return nil
}

// DefaultProfiles are the stock opponent settings per level.
func DefaultProfiles() map[Difficulty]DifficultyProfile {
	return map[Difficulty]DifficultyProfile{
		Easy:   {Accuracy: 0.25, MinDelay: 4 * time.Second, MaxDelay: 8 * time.Second},
		Medium: {Accuracy: 0.45, MinDelay: 3 * time.Second, MaxDelay: 6 * time.Second},
		Hard:   {Accuracy: 0.65, MinDelay: 2 * time.Second, MaxDelay: 4 * time.Second},
	}
}

// Stats are the cross-session aggregate counters.
type Stats struct {
	CompletedRounds   int `json:"completedRounds" yaml:"completed_rounds"`
	WonRounds         int `json:"wonRounds" yaml:"won_rounds"`
	BestResponseTime  int `json:"bestResponseTime" yaml:"best_response_time"`
	TotalResponseTime int `json:"totalResponseTime" yaml:"total_response_time"`
	TotalResponses    int `json:"totalResponses" yaml:"total_responses"`
}

// AverageResponseTime is the rounded mean time remaining per answer, 0 when
// nothing has been recorded.
func (s Stats) AverageResponseTime() int {
	if s.TotalResponses == 0 {
		return 0
	}
	return (s.TotalResponseTime + s.TotalResponses/2) / s.TotalResponses
}

// WinRate is the percentage of completed rounds won.
func (s Stats) WinRate() int {
	if s.CompletedRounds == 0 {
		return 0
	}
	return s.WonRounds * 100 / s.CompletedRounds
}
