package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/models"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	epoch   = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
)

func testPoets(n int) []models.Poet {
	poets := make([]models.Poet, n)
	for i := range poets {
		poets[i] = models.Poet{
			ID:     fmt.Sprintf("p%02d", i),
			Name:   fmt.Sprintf("Poet %d", i),
			Verses: []string{fmt.Sprintf("p%02d-a", i), fmt.Sprintf("p%02d-b", i)},
		}
	}
	return poets
}

func fixedProfiles(accuracy float64, delay time.Duration) map[models.Difficulty]models.DifficultyProfile {
	p := models.DifficultyProfile{Accuracy: accuracy, MinDelay: delay, MaxDelay: delay}
	return map[models.Difficulty]models.DifficultyProfile{models.Easy: p, models.Medium: p, models.Hard: p}
}

func newEngine(settings Settings, profiles map[models.Difficulty]models.DifficultyProfile) *Engine {
	responder := ai.NewResponder(rand.New(rand.NewPCG(3, 4)), profiles)
	return New(settings, responder, rand.New(rand.NewPCG(1, 2)), discard)
}

// toChallenge starts a round and skips straight to the first verse.
func toChallenge(t *testing.T, e *Engine, poets []models.Poet) RoundState {
	t.Helper()
	tr, err := e.StartRound(poets, len(poets), models.Easy)
	require.NoError(t, err)
	tr = e.Step(tr.State, SkipMemorization{At: epoch})
	require.True(t, tr.Accepted)
	require.Equal(t, PhaseAwaiting, tr.State.Phase)
	return tr.State
}

func otherPoet(s RoundState) string {
	for i, c := range s.Cards {
		if i != s.Challenge && c.Collected == models.CollectedNone {
			return c.PoetID
		}
	}
	return ""
}

func TestStartRoundSamplesDistinctPoets(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	tr, err := e.StartRound(testPoets(40), 15, models.Medium)
	require.NoError(t, err)

	s := tr.State
	assert.Equal(t, PhaseMemorizing, s.Phase)
	assert.Equal(t, models.Medium, s.Difficulty)
	assert.Equal(t, 60, s.TimeLeft)
	assert.Equal(t, -1, s.Challenge)
	assert.Zero(t, s.PlayerScore)
	assert.Zero(t, s.AIScore)
	assert.Zero(t, s.CurrentCardIndex)
	assert.Equal(t, []Effect{StartTicker{Interval: time.Second}}, tr.Effects)

	require.Len(t, s.Cards, 15)
	seen := map[string]bool{}
	for _, c := range s.Cards {
		assert.False(t, seen[c.PoetID], "poet %s sampled twice", c.PoetID)
		seen[c.PoetID] = true
		assert.Contains(t, []string{c.PoetID + "-a", c.PoetID + "-b"}, c.Verse)
		assert.Equal(t, models.CollectedNone, c.Collected)
	}
}

func TestStartRoundContentShortfall(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	tr, err := e.StartRound(testPoets(10), 15, models.Easy)
	require.NoError(t, err)
	assert.Len(t, tr.State.Cards, 10)

	strict := DefaultSettings()
	strict.StrictContent = true
	e = newEngine(strict, nil)
	_, err = e.StartRound(testPoets(10), 15, models.Easy)
	var ice *InsufficientContentError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, 15, ice.Requested)
	assert.Equal(t, 10, ice.Available)

	_, err = e.StartRound(nil, 15, models.Easy)
	assert.True(t, errors.Is(err, content.ErrNoPoets))
}

func TestMemorizationCountdown(t *testing.T) {
	e := newEngine(DefaultSettings(), fixedProfiles(0.5, 3*time.Second))
	tr, err := e.StartRound(testPoets(15), 15, models.Easy)
	require.NoError(t, err)
	s := tr.State

	for i := range 59 {
		tr = e.Step(s, Tick{At: epoch.Add(time.Duration(i+1) * time.Second)})
		require.True(t, tr.Accepted)
		assert.Empty(t, tr.Effects)
		s = tr.State
	}
	assert.Equal(t, PhaseMemorizing, s.Phase)
	assert.Equal(t, 1, s.TimeLeft)

	tr = e.Step(s, Tick{At: epoch.Add(time.Minute)})
	require.True(t, tr.Accepted)
	s = tr.State
	assert.Equal(t, PhaseAwaiting, s.Phase)
	assert.Equal(t, 0, s.Challenge)
	assert.Equal(t, 1, s.CurrentCardIndex)
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, epoch.Add(time.Minute), s.PresentedAt)

	require.Len(t, tr.Effects, 2)
	assert.Equal(t, StopTicker{}, tr.Effects[0])
	sched, ok := tr.Effects[1].(ScheduleAI)
	require.True(t, ok)
	assert.Equal(t, 1, sched.Plan.Turn)
	assert.Equal(t, 3*time.Second, sched.Plan.Delay)

	assert.False(t, e.Step(s, Tick{}).Accepted)
	assert.False(t, e.Step(s, SkipMemorization{}).Accepted)
}

func TestPlayerCorrectAnswer(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := toChallenge(t, e, testPoets(15))
	card, ok := s.CurrentChallenge()
	require.True(t, ok)

	tr := e.Step(s, Answer{
		Actor:  models.CollectedPlayer,
		PoetID: card.PoetID,
		Turn:   s.Turn,
		At:     epoch.Add(18*time.Second + 500*time.Millisecond),
	})
	require.True(t, tr.Accepted)

	next := tr.State
	assert.Equal(t, PhaseResolved, next.Phase)
	assert.Equal(t, 1, next.PlayerScore)
	assert.Zero(t, next.AIScore)
	assert.Equal(t, models.CollectedPlayer, next.Cards[next.Challenge].Collected)
	assert.Equal(t, Resolution{Actor: models.CollectedPlayer, PoetID: card.PoetID, Correct: true, Revealed: true}, next.Last)
	assert.Equal(t, []Effect{
		CancelAI{},
		RecordResponse{Remaining: 41, Correct: true},
		SchedulePause{Kind: PauseAdvance, Turn: 1, Delay: 1500 * time.Millisecond},
	}, tr.Effects)

	assert.Equal(t, models.CollectedNone, s.Cards[s.Challenge].Collected, "earlier state must not change")
}

func TestPlayerWrongAnswerCreditsOpponent(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := toChallenge(t, e, testPoets(15))
	wrong := otherPoet(s)

	tr := e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: wrong, Turn: s.Turn, At: epoch.Add(75 * time.Second)})
	require.True(t, tr.Accepted)
	s = tr.State
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, 1, s.AIScore)
	assert.Zero(t, s.PlayerScore)
	assert.False(t, s.Last.Revealed)
	for _, c := range s.Cards {
		assert.Equal(t, models.CollectedNone, c.Collected)
	}
	assert.Equal(t, []Effect{
		CancelAI{},
		RecordResponse{Remaining: 0, Correct: false},
		SchedulePause{Kind: PauseReveal, Turn: 1, Delay: time.Second},
	}, tr.Effects)

	tr = e.Step(s, PauseElapsed{Kind: PauseReveal, Turn: 1})
	require.True(t, tr.Accepted)
	s = tr.State
	assert.True(t, s.Last.Revealed)
	assert.Equal(t, []Effect{SchedulePause{Kind: PauseAdvance, Turn: 1, Delay: 1500 * time.Millisecond}}, tr.Effects)

	tr = e.Step(s, PauseElapsed{Kind: PauseAdvance, Turn: 1, At: epoch.Add(80 * time.Second)})
	require.True(t, tr.Accepted)
	assert.Equal(t, PhaseAwaiting, tr.State.Phase)
	assert.Equal(t, 2, tr.State.Turn)
	assert.Equal(t, 1, tr.State.Challenge)
	assert.Equal(t, Resolution{}, tr.State.Last)
}

func TestLateAnswersAreIgnored(t *testing.T) {
	e := newEngine(DefaultSettings(), fixedProfiles(1, time.Second))
	s := toChallenge(t, e, testPoets(15))
	card, _ := s.CurrentChallenge()

	tr := e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: card.PoetID, Turn: s.Turn, At: epoch})
	require.True(t, tr.Accepted)
	resolved := tr.State

	assert.False(t, e.Step(resolved, AIFired{Plan: ai.Plan{Turn: 1, Correct: true}}).Accepted)
	assert.False(t, e.Step(resolved, Answer{Actor: models.CollectedPlayer, PoetID: otherPoet(resolved), Turn: 1}).Accepted)
	assert.False(t, e.Step(resolved, PauseElapsed{Kind: PauseAdvance, Turn: 0}).Accepted)

	// Stale turn numbers never apply to a later challenge.
	tr = e.Step(resolved, PauseElapsed{Kind: PauseAdvance, Turn: 1, At: epoch})
	require.True(t, tr.Accepted)
	next := tr.State
	assert.False(t, e.Step(next, AIFired{Plan: ai.Plan{Turn: 1, Correct: true}}).Accepted)
	assert.False(t, e.Step(next, Answer{Actor: models.CollectedAI, PoetID: next.Cards[next.Challenge].PoetID, Turn: 1}).Accepted)
}

func TestOfferOrderIsReshuffledEachTurn(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := toChallenge(t, e, testPoets(15))
	all := make([]int, len(s.Cards))
	for i := range all {
		all[i] = i
	}

	inOrder := 0
	var orders [][]int
	for s.Phase == PhaseAwaiting {
		require.ElementsMatch(t, all, s.Options)
		card, _ := s.CurrentChallenge()
		grid := s.Grid()
		require.Len(t, grid, len(s.Cards))
		for i, j := range s.Options {
			assert.Equal(t, s.Cards[j].PoetID, grid[i].PoetID)
		}
		if grid[s.Turn-1].PoetID == card.PoetID {
			inOrder++
		}
		orders = append(orders, s.Options)

		tr := e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: card.PoetID, Turn: s.Turn, At: epoch})
		require.True(t, tr.Accepted)
		assert.Equal(t, s.Options, tr.State.Options, "order holds while the turn resolves")
		tr = e.Step(tr.State, PauseElapsed{Kind: PauseAdvance, Turn: s.Turn, At: epoch})
		require.True(t, tr.Accepted)
		s = tr.State
	}
	require.Len(t, orders, 5)
	assert.Less(t, inOrder, 5)
	assert.NotEqual(t, orders[0], orders[1])
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Nil(t, s.Options)
	assert.Equal(t, s.Cards, s.Grid())
}

func TestAnswerRejectsCollectedUnknownAndAnonymous(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := RoundState{
		Phase: PhaseAwaiting,
		Cards: []models.Card{
			{PoetID: "a", Collected: models.CollectedPlayer},
			{PoetID: "b"},
			{PoetID: "c"},
		},
		CurrentCardIndex: 2,
		Challenge:        1,
		Turn:             2,
	}
	assert.False(t, e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: "a", Turn: 2}).Accepted)
	assert.False(t, e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: "zzz", Turn: 2}).Accepted)
	assert.False(t, e.Step(s, Answer{Actor: models.CollectedNone, PoetID: "b", Turn: 2}).Accepted)
	assert.True(t, e.Step(s, Answer{Actor: models.CollectedPlayer, PoetID: "c", Turn: 2}).Accepted)
}

func TestOpponentAnswers(t *testing.T) {
	e := newEngine(DefaultSettings(), fixedProfiles(1, time.Second))
	s := toChallenge(t, e, testPoets(15))
	tr := e.Step(s, AIFired{Plan: ai.Plan{Turn: 1, Correct: true}, At: epoch.Add(time.Second)})
	require.True(t, tr.Accepted)
	assert.Equal(t, 1, tr.State.AIScore)
	assert.Equal(t, models.CollectedAI, tr.State.Cards[0].Collected)
	assert.Equal(t, []Effect{SchedulePause{Kind: PauseAdvance, Turn: 1, Delay: 1500 * time.Millisecond}}, tr.Effects)

	tr = e.Step(s, AIFired{Plan: ai.Plan{Turn: 1, Correct: false}, At: epoch.Add(time.Second)})
	require.True(t, tr.Accepted)
	assert.Equal(t, 1, tr.State.PlayerScore)
	assert.Zero(t, tr.State.AIScore)
	assert.False(t, tr.State.Last.Correct)
	assert.Equal(t, models.CollectedAI, tr.State.Last.Actor)
	assert.NotEqual(t, tr.State.Cards[0].PoetID, tr.State.Last.PoetID)
	assert.Equal(t, models.CollectedNone, tr.State.Cards[0].Collected)
	assert.Equal(t, []Effect{SchedulePause{Kind: PauseReveal, Turn: 1, Delay: time.Second}}, tr.Effects)
}

func TestOpponentAbstainsWithoutScoring(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := RoundState{
		Phase: PhaseAwaiting,
		Cards: []models.Card{
			{PoetID: "b", Collected: models.CollectedPlayer},
			{PoetID: "c", Collected: models.CollectedAI},
			{PoetID: "a"},
		},
		CurrentCardIndex: 3,
		Challenge:        2,
		Turn:             3,
		PlayerScore:      1,
		AIScore:          1,
	}
	tr := e.Step(s, AIFired{Plan: ai.Plan{Turn: 3, Correct: false}})
	require.True(t, tr.Accepted)
	assert.Equal(t, 1, tr.State.PlayerScore)
	assert.Equal(t, 1, tr.State.AIScore)
	assert.Equal(t, PhaseFinished, tr.State.Phase)
	assert.Equal(t, OutcomeDraw, tr.State.Outcome)
	assert.Contains(t, tr.Effects, Effect(RecordRoundEnd{PlayerScore: 1, AIScore: 1}))
}

func TestTermination(t *testing.T) {
	cards := testPoets(15)
	tests := []struct {
		name        string
		player, ai  int
		index       int
		wantOutcome Outcome
		wantDone    bool
	}{
		{"player reaches threshold with cards left", 5, 2, 7, OutcomeVictory, true},
		{"opponent reaches threshold with cards left", 1, 5, 6, OutcomeDefeat, true},
		{"player threshold checked first", 5, 5, 10, OutcomeVictory, true},
		{"exhausted player ahead", 3, 2, 15, OutcomeVictory, true},
		{"exhausted opponent ahead", 2, 3, 15, OutcomeDefeat, true},
		{"exhausted level", 2, 2, 15, OutcomeDraw, true},
		{"keeps going", 4, 4, 8, OutcomePending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(DefaultSettings(), nil)
			s := RoundState{Phase: PhaseResolved, Turn: 4, Challenge: tt.index - 1, CurrentCardIndex: tt.index,
				PlayerScore: tt.player, AIScore: tt.ai}
			for _, p := range cards {
				s.Cards = append(s.Cards, models.Card{PoetID: p.ID, PoetName: p.Name, Verse: p.Verses[0]})
			}
			tr := e.Step(s, PauseElapsed{Kind: PauseAdvance, Turn: 4, At: epoch})
			require.True(t, tr.Accepted)
			if !tt.wantDone {
				assert.Equal(t, PhaseAwaiting, tr.State.Phase)
				assert.Equal(t, tt.index, tr.State.Challenge)
				return
			}
			assert.Equal(t, PhaseFinished, tr.State.Phase)
			assert.Equal(t, tt.wantOutcome, tr.State.Outcome)
			assert.Equal(t, -1, tr.State.Challenge)
			assert.Contains(t, tr.Effects, Effect(RecordRoundEnd{PlayerScore: tt.player, AIScore: tt.ai}))
		})
	}
}

func TestAbandon(t *testing.T) {
	e := newEngine(DefaultSettings(), nil)
	s := toChallenge(t, e, testPoets(15))

	tr := e.Step(s, Abandon{})
	require.True(t, tr.Accepted)
	assert.Equal(t, PhaseFinished, tr.State.Phase)
	assert.Equal(t, OutcomeAbandoned, tr.State.Outcome)
	assert.Equal(t, []Effect{StopTicker{}, CancelAI{}, CancelPause{}}, tr.Effects)

	assert.False(t, e.Step(tr.State, Abandon{}).Accepted)
}

// A card's collector is written at most once, whatever order events
// arrive in.
func TestCollectedIsWrittenOnce(t *testing.T) {
	actors := []models.Collector{models.CollectedPlayer, models.CollectedAI}
	for seed := range uint64(40) {
		rng := rand.New(rand.NewPCG(seed, 99))
		e := New(DefaultSettings(), ai.NewResponder(rand.New(rand.NewPCG(seed, 7)), nil), rand.New(rand.NewPCG(seed, 8)), discard)
		tr, err := e.StartRound(testPoets(15), 15, models.Hard)
		require.NoError(t, err)
		s := tr.State

		for range 400 {
			var ev Event
			turn := s.Turn - rng.IntN(2)
			switch rng.IntN(6) {
			case 0:
				ev = Tick{At: epoch}
			case 1:
				ev = SkipMemorization{At: epoch}
			case 2:
				ev = Answer{Actor: actors[rng.IntN(2)], PoetID: fmt.Sprintf("p%02d", rng.IntN(16)), Turn: turn, At: epoch}
			case 3:
				ev = AIFired{Plan: ai.Plan{Turn: turn, Correct: rng.IntN(2) == 0}, At: epoch}
			default:
				ev = PauseElapsed{Kind: PauseKind(rng.IntN(2)), Turn: turn, At: epoch}
			}
			next := e.Step(s, ev).State
			for i, c := range s.Cards {
				if c.Collected != models.CollectedNone {
					require.Equal(t, c.Collected, next.Cards[i].Collected, "seed %d card %d", seed, i)
				}
			}
			s = next
		}
	}
}
