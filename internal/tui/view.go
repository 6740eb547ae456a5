package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	verseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFA500")).
			Padding(1, 2).
			Italic(true)

	poetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FD75F"))

	opponentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	revealStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#FFA500")).
			PaddingLeft(1).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

func (m model) View() string {
	var s string

	switch m.screen {
	case screenMenu:
		s = m.viewMenu()
	case screenInstructions:
		s = m.viewInstructions()
	case screenStats:
		s = m.viewStats()
	case screenMemory:
		s = m.viewMemory()
	case screenChallenge:
		s = m.viewChallenge()
	case screenResult:
		s = m.viewResult()
	case screenFatal:
		s = fmt.Sprintf("%s\n\n%v\n\n%s",
			errorStyle.Render("The game cannot start."),
			m.err,
			helpStyle.Render("Add poets with --content <file or directory>. Press q to quit."))
	}

	if m.confirmLeave {
		s += "\n\n" + errorStyle.Render("Leave this round? It will not be scored.") + "\n" +
			m.help.ShortHelpView([]key.Binding{m.keys.Confirm, m.keys.Deny})
	}
	return "\n" + s + "\n"
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("WHO SAID IT?") + "\n\n")
	b.WriteString("Difficulty: ")
	for i, d := range models.Difficulties {
		if i == m.difficulty {
			b.WriteString(selectedStyle.Render(string(d)))
		} else {
			b.WriteString(itemStyle.Render(string(d)))
		}
	}
	b.WriteString("\n\n")
	for i, item := range menuItems {
		if i == m.menuCursor {
			b.WriteString(selectedStyle.Render("> "+item) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+item) + "\n")
		}
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{
		m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right, m.keys.Select, m.keys.Quit,
	}))
	return b.String()
}

func (m model) viewInstructions() string {
	settings := m.session.Engine().Settings()
	text := fmt.Sprintf(`You are dealt %d poets, each with one of their verses.

1. Memorize who wrote which verse. You have %d seconds, or start early.
2. The verses come back one at a time without their authors.
   Pick the poet who said it before your opponent does.
3. A right answer collects the card and scores a point.
   A wrong answer gives the point to the other side.
4. First to %d points wins. If the cards run out, the higher score wins.`,
		settings.CardsPerRound, settings.MemorizeTicks, settings.WinThreshold)

	return titleStyle.Render("HOW TO PLAY") + "\n\n" + text + "\n\n" +
		m.help.ShortHelpView([]key.Binding{m.keys.Back})
}

func (m model) viewStats() string {
	st := m.stats.Snapshot()
	best := "-"
	if st.BestResponseTime > 0 {
		best = fmt.Sprintf("%ds left", st.BestResponseTime)
	}
	rows := []string{
		fmt.Sprintf("Rounds played     %d", st.CompletedRounds),
		fmt.Sprintf("Rounds won        %d", st.WonRounds),
		fmt.Sprintf("Win rate          %d%%", st.WinRate()),
		fmt.Sprintf("Fastest answer    %s", best),
		fmt.Sprintf("Average time left %ds", st.AverageResponseTime()),
		fmt.Sprintf("Answers given     %d", st.TotalResponses),
	}
	return titleStyle.Render("STATISTICS") + "\n\n" + strings.Join(rows, "\n") + "\n\n" +
		m.help.ShortHelpView([]key.Binding{m.keys.Reset, m.keys.Back})
}

func (m model) viewMemory() string {
	st := m.session.State()
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("MEMORIZE"),
		mutedStyle.Render(fmt.Sprintf("  %s  ·  %ds left", st.Difficulty, st.TimeLeft)),
	)
	return header + "\n\n" + m.viewport.View() + "\n\n" +
		m.help.ShortHelpView([]key.Binding{m.keys.Up, m.keys.Down, m.keys.Skip, m.keys.Back})
}

func (m model) renderCards() string {
	var b strings.Builder
	for _, c := range m.session.State().Cards {
		b.WriteString(poetStyle.Render(c.PoetName) + "\n")
		b.WriteString(mutedStyle.Render("  "+c.Verse) + "\n\n")
	}
	return b.String()
}

func (m model) viewChallenge() string {
	st := m.session.State()
	var b strings.Builder

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("WHO SAID IT?"),
		"  ",
		playerStyle.Render(fmt.Sprintf("You %d", st.PlayerScore)),
		mutedStyle.Render(" : "),
		opponentStyle.Render(fmt.Sprintf("%d Opponent", st.AIScore)),
	))
	b.WriteString("\n\n")

	if card, ok := st.CurrentChallenge(); ok {
		b.WriteString(verseStyle.Width(min(m.width-4, 72)).Render(card.Verse) + "\n")
	}
	b.WriteString(m.feedback(st) + "\n\n")

	correct := ""
	if card, ok := st.CurrentChallenge(); ok && st.Last.Revealed {
		correct = card.PoetID
	}
	cellWidth := max((m.width-4)/gridColumns, 18)
	grid := st.Grid()
	var row []string
	for i, c := range grid {
		label := c.PoetName
		switch c.Collected {
		case models.CollectedPlayer:
			label = playerStyle.Render("✓ " + label)
		case models.CollectedAI:
			label = opponentStyle.Render("✗ " + label)
		}
		style := itemStyle
		switch {
		case i == m.cardCursor:
			style = selectedStyle
		case c.PoetID == correct:
			style = revealStyle
		}
		row = append(row, style.Width(cellWidth).Render(label))
		if len(row) == gridColumns || i == len(grid)-1 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...) + "\n")
			row = nil
		}
	}

	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{
		m.keys.Left, m.keys.Right, m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Back,
	}))
	return b.String()
}

func (m model) feedback(st engine.RoundState) string {
	if st.Phase != engine.PhaseResolved {
		return mutedStyle.Render("Who said it?")
	}
	card, _ := st.CurrentChallenge()
	last := st.Last
	var msg string
	switch {
	case last.Actor == models.CollectedPlayer && last.Correct:
		msg = playerStyle.Render("Correct! The card is yours.")
	case last.Actor == models.CollectedPlayer:
		msg = opponentStyle.Render("Wrong answer. The point goes to your opponent.")
	case last.Correct:
		msg = opponentStyle.Render("Your opponent got there first.")
	default:
		msg = playerStyle.Render("Your opponent guessed wrong. The point is yours.")
	}
	if last.Revealed {
		msg += " " + mutedStyle.Render("It was "+card.PoetName+".")
	}
	return msg
}

func (m model) viewResult() string {
	st := m.session.State()
	var title string
	switch st.Outcome {
	case engine.OutcomeVictory:
		title = playerStyle.Bold(true).Render("Victory!")
	case engine.OutcomeDefeat:
		title = opponentStyle.Bold(true).Render("Defeat.")
	default:
		title = titleStyle.Render("A draw.")
	}
	score := fmt.Sprintf("You %d : %d Opponent", st.PlayerScore, st.AIScore)
	return title + "\n\n" + score + "\n\n" +
		m.help.ShortHelpView([]key.Binding{m.keys.Replay, m.keys.Select, m.keys.Quit})
}
