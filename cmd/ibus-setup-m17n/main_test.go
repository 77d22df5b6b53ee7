package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/metrics"
	"ibus-m17n/internal/store"
)

func newTool(t *testing.T) (*setupTool, *bytes.Buffer) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	var out bytes.Buffer
	return &setupTool{out: &out, store: st}, &out
}

func TestSetGetUnset(t *testing.T) {
	tool, out := newTool(t)
	const name = "m17n:zh:pinyin"

	require.NoError(t, tool.exec(name, command{set: "preedit_background = #ffffff"}))
	require.NoError(t, tool.exec(name, command{get: "preedit_background"}))
	assert.Equal(t, "#ffffff\n", out.String())

	v, ok, err := tool.store.Get("engine/M17N/zh/pinyin", config.KeyPreeditBackground)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "#ffffff", v)

	require.NoError(t, tool.exec(name, command{unset: "preedit_background"}))
	assert.Error(t, tool.exec(name, command{get: "preedit_background"}))
}

func TestSetRejectsInvalid(t *testing.T) {
	tool, _ := newTool(t)
	for _, set := range []string{
		"preedit_underline=7",
		"lookup_table_orientation=sideways",
		"preedit_foreground=blue",
		"no_such_key=1",
		"preedit_underline",
	} {
		assert.Error(t, tool.exec("m17n:hi:itrans", command{set: set}), set)
	}
	sections, err := tool.store.Sections()
	require.NoError(t, err)
	assert.Empty(t, sections)

	assert.Error(t, tool.exec("hi:itrans", command{set: "preedit_underline=1"}))
	assert.Error(t, tool.exec("", command{get: "preedit_underline"}))
}

func TestListEngine(t *testing.T) {
	tool, out := newTool(t)
	require.NoError(t, tool.exec("m17n:zh:pinyin", command{set: "lookup_table_orientation=1"}))
	require.NoError(t, tool.exec("m17n:zh:pinyin", command{list: true}))

	text := out.String()
	assert.Regexp(t, `preedit_background\s+#c8c8f0\s+-`, text)
	assert.Regexp(t, `lookup_table_orientation\s+1\s+1`, text)
	assert.Regexp(t, `preedit_underline\s+0\s+-`, text)

	out.Reset()
	no := false
	tool.overrides = []config.EngineOverride{{Pattern: "m17n:zh:*", PreeditHighlight: &no}}
	require.NoError(t, tool.exec("m17n:zh:pinyin", command{}))
	assert.Regexp(t, `preedit_background\s+none\s+-`, out.String())
}

func TestListSections(t *testing.T) {
	tool, out := newTool(t)
	require.NoError(t, tool.exec("m17n:si:wijesekera", command{set: "preedit_underline=1"}))
	require.NoError(t, tool.exec("m17n:hi:itrans", command{set: "preedit_foreground=#112233"}))

	require.NoError(t, tool.exec("", command{list: true}))
	assert.Equal(t,
		"[engine/M17N/hi/itrans]\npreedit_foreground = #112233\n"+
			"[engine/M17N/si/wijesekera]\npreedit_underline = 1\n",
		out.String())
}

func TestCheck(t *testing.T) {
	tool, out := newTool(t)
	require.NoError(t, tool.exec("", command{check: true}))
	assert.Regexp(t, `: ok \(schema [1-9]\d*, revision 0\)`, out.String())
}

func TestStats(t *testing.T) {
	tool, out := newTool(t)
	tool.metricsFile = filepath.Join(t.TempDir(), "metrics.prom")

	err := tool.exec("", command{stats: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is the engine running")

	m := metrics.NewEngineMetrics(nil)
	m.ObserveKey(true, 0)
	m.Commits.Inc()
	require.NoError(t, m.WriteFile(tool.metricsFile))

	require.NoError(t, tool.exec("", command{stats: true}))
	assert.Regexp(t, `(?m)^ibus_m17n_commits_total\s+1$`, out.String())
	assert.NotContains(t, out.String(), "# TYPE")

	tool.metricsFile = ""
	assert.Error(t, tool.exec("", command{stats: true}))
}
