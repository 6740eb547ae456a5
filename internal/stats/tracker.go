// Package stats keeps the cross-session counters and writes them back to
// storage after every change.
package stats

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/storage"
)

// Tracker owns the Stats record. It is not safe for concurrent use; callers
// drive it from the game's single event thread.
type Tracker struct {
	store  storage.Store
	key    string
	log    *slog.Logger
	record models.Stats
}

// NewTracker starts from zeroed stats; call Load to read the saved record.
func NewTracker(store storage.Store, log *slog.Logger) *Tracker {
	return &Tracker{store: store, key: models.StatsKey, log: log}
}

// Load reads the saved record. Anything unreadable leaves zeroed stats.
func (t *Tracker) Load(ctx context.Context) models.Stats {
	t.record = models.Stats{}
	data, err := t.store.Get(ctx, t.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		t.log.Debug("no saved stats, starting fresh")
		return t.record
	case err != nil:
		t.log.Error("failed to read stats, starting fresh", "error", err)
		return t.record
	}
	s, err := models.UnmarshalStats(data)
	if err != nil {
		t.log.Warn("discarding unreadable stats", "error", err)
		return t.record
	}
	t.record = s
	return t.record
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() models.Stats {
	return t.record
}

// RecordRoundEnd counts a finished round, and a win if the player
// outscored the opponent.
func (t *Tracker) RecordRoundEnd(playerScore, aiScore int) {
	t.record.CompletedRounds++
	if playerScore > aiScore {
		t.record.WonRounds++
	}
	t.persist()
}

// RecordResponse counts one player answer. remaining is the challenge
// timer's value when the answer landed. The best time is the lowest
// remaining value among correct answers; 0 means none recorded yet.
func (t *Tracker) RecordResponse(remaining int, correct bool) {
	if remaining < 0 {
		remaining = 0
	}
	t.record.TotalResponses++
	t.record.TotalResponseTime += remaining
	if correct && (t.record.BestResponseTime == 0 || remaining < t.record.BestResponseTime) {
		t.record.BestResponseTime = remaining
	}
	t.persist()
}

// Reset zeroes every counter.
func (t *Tracker) Reset() {
	t.record = models.Stats{}
	t.persist()
}

func (t *Tracker) persist() {
	data, err := models.MarshalStats(t.record)
	if err != nil {
		t.log.Error("failed to encode stats", "error", err)
		return
	}
	if err := t.store.Put(context.Background(), t.key, data); err != nil {
		t.log.Error("failed to save stats", "error", err)
	}
}
