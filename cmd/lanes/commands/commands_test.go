package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/lanes/am"
	"github.com/teranos/lanes/pulse/chain"
	"github.com/teranos/lanes/version"
)

// isolate points config discovery at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	am.Reset()
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		am.Reset()
	})
	return dir
}

func TestDemoChainIsValid(t *testing.T) {
	c := demoChain()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Steps, 3)
}

func TestRunChain(t *testing.T) {
	isolate(t)
	c := &chain.Chain{Name: "test", Steps: []chain.Step{
		{Name: "one", Lane: "io"},
		{Name: "two", FailTimes: 1},
	}}

	err := runChain(context.Background(), c, chainOptions{timeout: 5 * time.Second, retries: 1})
	assert.NoError(t, err)

	err = runChain(context.Background(), &chain.Chain{Steps: []chain.Step{{Name: "bad", FailTimes: 2}}},
		chainOptions{timeout: 5 * time.Second})
	assert.ErrorContains(t, err, "simulated failure 1 of 2")
}

func TestAmLaneAndTraceCommands(t *testing.T) {
	dir := isolate(t)
	configPath = filepath.Join(dir, am.ProjectConfigName)
	t.Cleanup(func() { configPath = "" })

	lanePriority = "low"
	require.NoError(t, runAmLaneAdd(AmCmd, []string{"io"}))
	require.NoError(t, runAmTrace(AmCmd, []string{"on"}))
	assert.Error(t, runAmTrace(AmCmd, []string{"maybe"}))

	cfg, err := am.LoadFromFile(configPath)
	require.NoError(t, err)
	assert.True(t, cfg.Trace.Enabled)
	require.Len(t, cfg.Lanes, 1)
	assert.Equal(t, am.LaneConfig{Name: "io", Priority: "low"}, cfg.Lanes[0])

	require.NoError(t, runAmLaneRemove(AmCmd, []string{"io"}))
	cfg, err = am.LoadFromFile(configPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Lanes)
}

func TestRenderResults(t *testing.T) {
	assert.NoError(t, renderResults([]chain.StepResult{
		{Name: "a", Selector: "class:default", Attempts: 1, Done: true},
		{Name: "b", Selector: "lane:db", Attempts: 2},
	}))
}

func TestWriteVersion(t *testing.T) {
	info := version.Info{Version: "v1.2.3", CommitHash: "abcdef0123", BuildTime: "now", GoVersion: "go1.24", Platform: "linux/amd64", Modified: true}

	var text bytes.Buffer
	require.NoError(t, writeVersion(&text, info, false))
	assert.Contains(t, text.String(), "v1.2.3")
	assert.Contains(t, text.String(), "abcdef0")
	assert.Contains(t, text.String(), "modified")

	var raw bytes.Buffer
	require.NoError(t, writeVersion(&raw, info, true))
	var decoded version.Info
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Equal(t, info, decoded)
}
