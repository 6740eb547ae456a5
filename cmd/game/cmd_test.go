package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/who-said-it/internal/logger"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/stats"
	"github.com/tatianab/who-said-it/internal/storage"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestPrintStatsFormats(t *testing.T) {
	st := models.Stats{CompletedRounds: 4, WonRounds: 3, BestResponseTime: 12, TotalResponseTime: 90, TotalResponses: 6}

	var buf bytes.Buffer
	require.NoError(t, printStats(&buf, "json", st))
	var asJSON map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &asJSON))
	assert.Equal(t, 4, asJSON["completedRounds"])
	assert.Equal(t, 75, asJSON["winRate"])
	assert.Equal(t, 15, asJSON["averageResponseTime"])

	buf.Reset()
	require.NoError(t, printStats(&buf, "yaml", st))
	var asYAML map[string]int
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &asYAML))
	assert.Equal(t, 12, asYAML["best_response_time"])
	assert.Equal(t, 75, asYAML["win_rate"])

	buf.Reset()
	require.NoError(t, printStats(&buf, "text", st))
	assert.Contains(t, buf.String(), "Win rate")
	assert.Contains(t, buf.String(), "75%")
	assert.Contains(t, buf.String(), "12s left")

	assert.Error(t, printStats(&buf, "xml", st))
}

func TestStatsCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	tracker := stats.NewTracker(store, logger.Discard())
	tracker.Load(context.Background())
	tracker.RecordRoundEnd(5, 2)
	require.NoError(t, store.Close())

	out, err := run(t, "stats", "--save-dir", dir, "--format", "json")
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got["wonRounds"])

	out, err = run(t, "stats", "reset", "--save-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics reset.")

	out, err = run(t, "stats", "--save-dir", dir, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got["completedRounds"])
}

func TestPoetsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "poets")
	require.NoError(t, err)
	assert.Contains(t, out, "mutanabbi")
	assert.Contains(t, out, "18 poets")

	_, err = run(t, "poets", "--skip-builtin")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "who-said-it v"+releaseVersion+"\n", out)
}
