package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"
	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/logger"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/stats"
	"github.com/tatianab/who-said-it/internal/storage"
)

type player struct {
	skill float64
	think time.Duration
	rng   *rand.Rand
}

type result struct {
	outcomes map[engine.Outcome]int
	stats    models.Stats
}

func main() {
	rounds := pflag.Int("rounds", 200, "rounds to play per difficulty")
	skill := pflag.Float64("skill", 0.7, "chance the simulated player names the right poet")
	think := pflag.Duration("think", 5*time.Second, "how long the simulated player takes to answer")
	seed := pflag.Uint64("seed", 1, "random seed")
	pflag.Parse()

	log := logger.Setup("warn", logger.FormatText, os.Stderr)
	poets, err := content.Load(log, content.Options{})
	if err != nil {
		log.Error("failed to load poets", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Simulating %d rounds per level: player skill %.2f, answers after %s\n\n", *rounds, *skill, *think)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LEVEL", "WON", "LOST", "DRAWN", "WIN RATE", "AVG TIME LEFT")
	for i, d := range models.Difficulties {
		p := player{skill: *skill, think: *think, rng: rand.New(rand.NewPCG(*seed, uint64(i)))}
		res := simulate(log, poets, d, *rounds, p, *seed+uint64(i))
		t.Row(
			string(d),
			strconv.Itoa(res.outcomes[engine.OutcomeVictory]),
			strconv.Itoa(res.outcomes[engine.OutcomeDefeat]),
			strconv.Itoa(res.outcomes[engine.OutcomeDraw]),
			strconv.Itoa(res.stats.WinRate())+"%",
			strconv.Itoa(res.stats.AverageResponseTime())+"s",
		)
	}
	fmt.Println(t)
}

// simulate plays rounds on a virtual clock, so a full run takes
// milliseconds.
func simulate(log *slog.Logger, poets []models.Poet, d models.Difficulty, rounds int, p player, seed uint64) result {
	m := clock.NewManual(time.Now())
	tracker := stats.NewTracker(storage.NewMemory(), log)
	responder := ai.NewResponder(rand.New(rand.NewPCG(seed, 1)), nil)
	eng := engine.New(engine.DefaultSettings(), responder, rand.New(rand.NewPCG(seed, 2)), log)
	session := engine.NewSession(eng, m, tracker, poets, log)

	res := result{outcomes: make(map[engine.Outcome]int)}
	lastTurn, round := 0, 0
	session.Subscribe(func(st engine.RoundState) {
		switch {
		case st.Phase == engine.PhaseFinished:
			res.outcomes[st.Outcome]++
			lastTurn = 0
		case st.Phase == engine.PhaseAwaiting && st.Turn != lastTurn:
			lastTurn = st.Turn
			turn, started := st.Turn, round
			pick := p.pick(st)
			m.AfterFunc(p.think, func() {
				if cur := session.State(); round == started && cur.Phase == engine.PhaseAwaiting && cur.Turn == turn {
					session.Answer(pick)
				}
			})
		}
	})

	for range rounds {
		round++
		if err := session.Start(d); err != nil {
			log.Error("round did not start", "error", err)
			break
		}
		session.Skip()
		for session.Active() && m.RunNext() {
		}
	}
	res.stats = tracker.Snapshot()
	return res
}

func (p player) pick(st engine.RoundState) string {
	card, _ := st.CurrentChallenge()
	if p.rng.Float64() < p.skill {
		return card.PoetID
	}
	var others []string
	for _, c := range st.Cards {
		if c.Collected == models.CollectedNone && c.PoetID != card.PoetID {
			others = append(others, c.PoetID)
		}
	}
	if len(others) == 0 {
		return card.PoetID
	}
	return others[p.rng.IntN(len(others))]
}
