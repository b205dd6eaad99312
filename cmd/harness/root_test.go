package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharness-go/domain/flow"
	"webharness-go/infrastructure/logging"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HARNESS_HISTORYPATH", filepath.Join(t.TempDir(), "history.db"))
	t.Setenv("HARNESS_LOGLEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFlowsCmd(t *testing.T) {
	out, err := executeCommand(t, "flows")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "landing-categories")
	assert.Contains(t, out, "search-roundtrip")
	assert.Contains(t, out, "smoke,search")
}

func TestFlowsCmd_ExtraFile(t *testing.T) {
	path := writeFlow(t, "name: pause\nui: false\nsteps:\n  - action: wait\n    duration: 1ms\n")

	out, err := executeCommand(t, "flows", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "pause")
}

func TestPagesCmd(t *testing.T) {
	out, err := executeCommand(t, "pages")
	require.NoError(t, err)
	assert.Contains(t, out, "landing")
	assert.Contains(t, out, "searchResult")

	out, err = executeCommand(t, "pages", "landing")
	require.NoError(t, err)
	assert.Contains(t, out, "landing.searchInput")
	assert.Contains(t, out, "xpath=//h2/a/span/span[text()='Mathematics']")

	_, err = executeCommand(t, "pages", "checkout")
	assert.Error(t, err)
}

func TestHistoryCmd_Empty(t *testing.T) {
	out, err := executeCommand(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func TestRunCmd_UnknownFlow(t *testing.T) {
	_, err := executeCommand(t, "run", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flow")
}

func TestRunCmd_NonUIFlowAndHistory(t *testing.T) {
	path := writeFlow(t, "name: pause\nui: false\nsteps:\n  - action: wait\n    duration: 1ms\n")
	t.Setenv("HARNESS_ARTIFACTDIR", t.TempDir())
	history := filepath.Join(t.TempDir(), "runs.db")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--file", path})
	t.Setenv("HARNESS_HISTORYPATH", history)
	t.Setenv("HARNESS_LOGLEVEL", "error")
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "PASS  pause")
	assert.Contains(t, out.String(), "1 flows: 1 passed, 0 failed, 0 inconclusive")

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "pause")
	assert.Contains(t, out.String(), "Success")
}

func TestRunCmd_BadConfig(t *testing.T) {
	_, err := executeCommand(t, "flows", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestExecute_ClosesLogWhenCommandFails(t *testing.T) {
	t.Setenv("HARNESS_HISTORYPATH", filepath.Join(t.TempDir(), "history.db"))
	t.Setenv("HARNESS_LOGLEVEL", "error")

	closes := 0
	a := &app{
		setupLogging: func(cfg *logging.Config) (*slog.Logger, func() error, error) {
			logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: cfg.Level}))
			return logger, func() error { closes++; return nil }, nil
		},
	}

	var out bytes.Buffer
	err := execute(context.Background(), a, []string{"run", "does-not-exist"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flow")
	assert.Equal(t, 1, closes)

	require.NoError(t, a.shutdown())
	assert.Equal(t, 1, closes, "shutdown is idempotent")
}

func TestExecute_ClosesLogOnSuccess(t *testing.T) {
	t.Setenv("HARNESS_HISTORYPATH", filepath.Join(t.TempDir(), "history.db"))
	t.Setenv("HARNESS_LOGLEVEL", "error")

	closes := 0
	a := &app{
		setupLogging: func(cfg *logging.Config) (*slog.Logger, func() error, error) {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { closes++; return nil }, nil
		},
	}

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), a, []string{"flows"}, &out))
	assert.Contains(t, out.String(), "landing-categories")
	assert.Equal(t, 1, closes)
}

func TestSelectFlows(t *testing.T) {
	reg, _, err := loadFlows(nil)
	require.NoError(t, err)

	names := func(fs []*flow.Flow) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}

	all, err := selectFlows(reg, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, reg.List(), names(all))

	tagged, err := selectFlows(reg, []string{"search-roundtrip"}, "smoke", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"search-roundtrip", "landing-categories"}, names(tagged), "duplicates are dropped")

	_, err = selectFlows(reg, nil, "nightly", nil)
	assert.Error(t, err)
}
