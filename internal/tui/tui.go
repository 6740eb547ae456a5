package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/who-said-it/internal/app"
	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/config"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/logger"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/stats"
)

type screen int

const (
	screenMenu screen = iota
	screenInstructions
	screenStats
	screenMemory
	screenChallenge
	screenResult
	screenFatal
)

const gridColumns = 3

var menuItems = []string{"Start round", "How to play", "Statistics", "Quit"}

const (
	itemStart = iota
	itemInstructions
	itemStats
	itemQuit
)

// runMsg carries a timer callback onto the program's update loop.
type runMsg func()

type model struct {
	screen       screen
	session      *engine.Session
	stats        *stats.Tracker
	difficulty   int
	menuCursor   int
	cardCursor   int
	confirmLeave bool
	err          error

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
}

// NewModel returns the program model. A non-nil loadErr opens on the fatal
// error screen.
func NewModel(session *engine.Session, tracker *stats.Tracker, d models.Difficulty, loadErr error) model {
	m := model{
		screen:   screenMenu,
		session:  session,
		stats:    tracker,
		keys:     newKeyMap(),
		help:     help.New(),
		viewport: viewport.New(76, 16),
		width:    80,
		height:   24,
	}
	for i, level := range models.Difficulties {
		if level == d {
			m.difficulty = i
		}
	}
	if loadErr != nil {
		m.screen = screenFatal
		m.err = loadErr
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-8, 4)
		if m.screen == screenMemory {
			m.viewport.SetContent(m.renderCards())
		}
		return m, nil

	case runMsg:
		msg()
		return m.sync(), nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.session.Abandon()
			return m, tea.Quit
		}
		if m.confirmLeave {
			return m.updateConfirm(msg)
		}
		switch m.screen {
		case screenMenu:
			return m.updateMenu(msg)
		case screenInstructions:
			if key.Matches(msg, m.keys.Back, m.keys.Select, m.keys.Quit) {
				m.screen = screenMenu
			}
		case screenStats:
			switch {
			case key.Matches(msg, m.keys.Reset):
				m.stats.Reset()
			case key.Matches(msg, m.keys.Back, m.keys.Select, m.keys.Quit):
				m.screen = screenMenu
			}
		case screenMemory:
			return m.updateMemory(msg)
		case screenChallenge:
			return m.updateChallenge(msg)
		case screenResult:
			switch {
			case key.Matches(msg, m.keys.Replay):
				return m.start(), nil
			case key.Matches(msg, m.keys.Select, m.keys.Back):
				m.screen = screenMenu
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			}
		case screenFatal:
			if key.Matches(msg, m.keys.Quit, m.keys.Back, m.keys.Select) {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.menuCursor = (m.menuCursor + len(menuItems) - 1) % len(menuItems)
	case key.Matches(msg, m.keys.Down):
		m.menuCursor = (m.menuCursor + 1) % len(menuItems)
	case key.Matches(msg, m.keys.Left):
		m.difficulty = (m.difficulty + len(models.Difficulties) - 1) % len(models.Difficulties)
	case key.Matches(msg, m.keys.Right):
		m.difficulty = (m.difficulty + 1) % len(models.Difficulties)
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Select):
		switch m.menuCursor {
		case itemStart:
			return m.start(), nil
		case itemInstructions:
			m.screen = screenInstructions
		case itemStats:
			m.screen = screenStats
		case itemQuit:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) updateMemory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.confirmLeave = true
		return m, nil
	case key.Matches(msg, m.keys.Skip):
		m.session.Skip()
		return m.sync(), nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) updateChallenge(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.session.State().Cards)
	if n == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		m.confirmLeave = true
	case key.Matches(msg, m.keys.Left):
		m.cardCursor = (m.cardCursor + n - 1) % n
	case key.Matches(msg, m.keys.Right):
		m.cardCursor = (m.cardCursor + 1) % n
	case key.Matches(msg, m.keys.Up):
		if m.cardCursor >= gridColumns {
			m.cardCursor -= gridColumns
		}
	case key.Matches(msg, m.keys.Down):
		if m.cardCursor+gridColumns < n {
			m.cardCursor += gridColumns
		}
	case key.Matches(msg, m.keys.Select):
		grid := m.session.State().Grid()
		m.session.Answer(grid[m.cardCursor].PoetID)
		return m.sync(), nil
	}
	return m, nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.session.Abandon()
		m.confirmLeave = false
		m.screen = screenMenu
	case key.Matches(msg, m.keys.Deny):
		m.confirmLeave = false
	}
	return m, nil
}

func (m model) start() model {
	if err := m.session.Start(models.Difficulties[m.difficulty]); err != nil {
		m.err = err
		m.screen = screenFatal
		return m
	}
	m.screen = screenMemory
	m.cardCursor = 0
	m.confirmLeave = false
	m.viewport.SetContent(m.renderCards())
	m.viewport.GotoTop()
	return m
}

// sync moves between the round screens to follow the session's phase.
func (m model) sync() model {
	if m.screen != screenMemory && m.screen != screenChallenge {
		return m
	}
	st := m.session.State()
	switch st.Phase {
	case engine.PhaseMemorizing:
		m.screen = screenMemory
	case engine.PhaseFinished:
		m.confirmLeave = false
		if st.Outcome == engine.OutcomeAbandoned {
			m.screen = screenMenu
		} else {
			m.screen = screenResult
		}
	default:
		if m.screen == screenMemory {
			m.cardCursor = 0
		}
		m.screen = screenChallenge
	}
	return m
}

// Run drives the program until the player quits. Timer callbacks are
// posted to the program so that the session only ever runs inside Update.
func Run(a *app.App) error {
	var p *tea.Program
	sched := clock.NewReal(func(f func()) { p.Send(runMsg(f)) })
	session := a.NewSession(sched)
	m := NewModel(session, a.Stats, a.Config.DefaultDifficulty(), a.ContentErr)
	p = tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Start runs the game with configuration from the environment.
func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	return StartWith(cfg)
}

// StartWith runs the game with cfg. Logs go to a file because the terminal
// belongs to the program.
func StartWith(cfg *config.Config) error {
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(cfg.SaveDir, "who-said-it.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	log := logger.Setup(cfg.LogLevel, logger.FormatText, f)
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return Run(a)
}
