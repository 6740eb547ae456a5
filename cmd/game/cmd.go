package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tatianab/who-said-it/internal/app"
	"github.com/tatianab/who-said-it/internal/config"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/logger"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/server"
	"github.com/tatianab/who-said-it/internal/stats"
	"github.com/tatianab/who-said-it/internal/storage"
	"github.com/tatianab/who-said-it/internal/tui"
	"gopkg.in/yaml.v3"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "who-said-it",
		Short: "Match verses to their poets before your opponent does.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return tui.StartWith(cfg)
		},
		Version: releaseVersion,
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newServeCmd(), newStatsCmd(), newPoetsCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("who-said-it v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Play in a browser over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.LogLevel, logger.FormatJSON, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return server.Serve(ctx, a, releaseVersion)
		},
	}
}

func newStatsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show saved statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(t *stats.Tracker) error {
				return printStats(cmd.OutOrStdout(), format, t.Snapshot())
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, yaml or json")

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Zero every saved statistic.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(t *stats.Tracker) error {
				t.Reset()
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Statistics reset.")
				return err
			})
		},
	})
	return cmd
}

func withTracker(cmd *cobra.Command, f func(*stats.Tracker) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, logger.FormatText, cmd.ErrOrStderr())
	store, err := storage.Open(cfg.Store, cfg.SaveDir)
	if err != nil {
		return err
	}
	defer store.Close()

	t := stats.NewTracker(store, log)
	t.Load(context.Background())
	return f(t)
}

// statsReport adds the derived figures to the saved counters.
type statsReport struct {
	models.Stats        `yaml:",inline"`
	WinRate             int `json:"winRate" yaml:"win_rate"`
	AverageResponseTime int `json:"averageResponseTime" yaml:"average_response_time"`
}

func printStats(w io.Writer, format string, st models.Stats) error {
	report := statsReport{Stats: st, WinRate: st.WinRate(), AverageResponseTime: st.AverageResponseTime()}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		best := "-"
		if st.BestResponseTime > 0 {
			best = strconv.Itoa(st.BestResponseTime) + "s left"
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Rows(
				[]string{"Rounds played", strconv.Itoa(st.CompletedRounds)},
				[]string{"Rounds won", strconv.Itoa(st.WonRounds)},
				[]string{"Win rate", strconv.Itoa(report.WinRate) + "%"},
				[]string{"Fastest answer", best},
				[]string{"Average time left", strconv.Itoa(report.AverageResponseTime) + "s"},
				[]string{"Answers given", strconv.Itoa(st.TotalResponses)},
			)
		_, err := fmt.Fprintln(w, t)
		return err
	}
	return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
}

func newPoetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poets",
		Short: "List the poets the game would deal from.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.LogLevel, logger.FormatText, cmd.ErrOrStderr())
			poets, err := content.Load(log, cfg.ContentOptions())
			if err != nil {
				return err
			}
			return printPoets(cmd.OutOrStdout(), poets)
		},
	}
}

func printPoets(w io.Writer, poets []models.Poet) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "VERSES")
	for _, p := range poets {
		t.Row(p.ID, p.Name, strconv.Itoa(len(p.Verses)))
	}
	_, err := fmt.Fprintf(w, "%s\n%d poets\n", t, len(poets))
	return err
}
