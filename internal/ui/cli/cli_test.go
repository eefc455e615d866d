package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlscope/internal/core/app"
	"wlscope/internal/core/config"
)

const usedBeforeAssignment = "f[x_] := Module[{y}, Print[y]; y = x]\n"

type project struct {
	root   string
	config string
}

func newProject(t *testing.T, extraConfig string) project {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("Kernel/Main.wl", usedBeforeAssignment)
	write("Kernel/Utils.m", "g[a_] := a + 1\n")

	cfg := fmt.Sprintf("version = 1\n\n[paths]\nproject_root = %q\n\n[db]\nproject_key = \"demo\"\n%s", root, extraConfig)
	write(config.DefaultFileName, cfg)
	return project{root: root, config: filepath.Join(root, config.DefaultFileName)}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "wlscope version")
	assert.Contains(t, out, "go version")
}

func TestAnalyze_Text(t *testing.T) {
	p := newProject(t, "")
	code, out, stderr := run(t, "-c", p.config, "analyze", p.root)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "WL001")
	assert.Contains(t, out, "Kernel/Main.wl:1:")
	assert.Contains(t, out, "demo: ")
	assert.Contains(t, out, "in 2 files (0 failed)")
}

func TestAnalyze_JSON(t *testing.T) {
	p := newProject(t, "")
	code, out, stderr := run(t, "-c", p.config, "analyze", "-f", "json", p.root)
	require.Equal(t, 0, code, stderr)

	var doc struct {
		Project  string `json:"project"`
		Files    int    `json:"files"`
		Findings []struct {
			RuleID   string `json:"rule_id"`
			Severity string `json:"severity"`
			File     string `json:"file"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "demo", doc.Project)
	assert.Equal(t, 2, doc.Files)

	var found bool
	for _, f := range doc.Findings {
		if f.RuleID == "WL001" {
			found = true
			assert.Equal(t, "warning", f.Severity)
			assert.Equal(t, "Kernel/Main.wl", f.File)
		}
	}
	assert.True(t, found, "expected a WL001 finding in %s", out)
}

func TestAnalyze_OutputFile(t *testing.T) {
	p := newProject(t, "")
	target := filepath.Join(t.TempDir(), "reports", "wlscope.sarif")
	code, out, stderr := run(t, "-c", p.config, "analyze", "-f", "sarif", "-o", target, p.root)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "2.1.0"`)
	assert.Contains(t, string(data), "WL001")
}

func TestAnalyze_FailOn(t *testing.T) {
	p := newProject(t, "")

	code, _, _ := run(t, "-c", p.config, "analyze", "--fail-on", "warning", p.root)
	assert.Equal(t, 1, code)

	code, _, _ = run(t, "-c", p.config, "analyze", "--fail-on", "error", p.root)
	assert.Equal(t, 0, code)

	code, _, stderr := run(t, "-c", p.config, "analyze", "--fail-on", "fatal", p.root)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--fail-on")
}

func TestAnalyze_UnknownFormat(t *testing.T) {
	p := newProject(t, "")
	code, _, stderr := run(t, "-c", p.config, "analyze", "-f", "xml", p.root)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "xml")
}

func TestAnalyze_MissingConfig(t *testing.T) {
	code, _, stderr := run(t, "-c", filepath.Join(t.TempDir(), "missing.toml"), "analyze")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "load config")
}

func TestHistory(t *testing.T) {
	p := newProject(t, "enabled = true\n")

	for i := 0; i < 2; i++ {
		code, _, stderr := run(t, "-c", p.config, "analyze", p.root)
		require.Equal(t, 0, code, stderr)
	}

	code, out, stderr := run(t, "-c", p.config, "history", "-f", "json")
	require.Equal(t, 0, code, stderr)
	var trend struct {
		ProjectKey string `json:"project_key"`
		RunCount   int    `json:"run_count"`
		Points     []struct {
			RunID        string `json:"run_id"`
			FindingCount int    `json:"finding_count"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &trend))
	assert.Equal(t, "demo", trend.ProjectKey)
	require.Equal(t, 2, trend.RunCount)
	assert.Equal(t, trend.Points[0].FindingCount, trend.Points[1].FindingCount)

	code, out, stderr = run(t, "-c", p.config, "history", "--run", trend.Points[1].RunID)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "WL001")
	assert.Contains(t, out, "demo: ")

	code, out, stderr = run(t, "-c", p.config, "history", "--run", trend.Points[1].RunID, "-f", "json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"run_id": "`+trend.Points[1].RunID+`"`)

	code, out, stderr = run(t, "-c", p.config, "history", "--prune", "1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "pruned 1 runs of demo")
}

func TestAnalyze_CorruptHistoryIsReplaced(t *testing.T) {
	p := newProject(t, "enabled = true\n")
	dbPath := filepath.Join(p.root, ".wlscope", "history.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))
	require.NoError(t, os.WriteFile(dbPath, bytes.Repeat([]byte("not a history database\n"), 200), 0o644))

	code, _, stderr := run(t, "-c", p.config, "analyze", p.root)
	require.Equal(t, 0, code, stderr)

	backups, err := filepath.Glob(dbPath + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("not a history database")))

	code, out, stderr := run(t, "-c", p.config, "history", "-f", "json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"run_count": 1`)
}

func TestHistory_NoDatabase(t *testing.T) {
	p := newProject(t, "")
	code, _, stderr := run(t, "-c", p.config, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no history database")
}

func TestHistory_BadWindow(t *testing.T) {
	p := newProject(t, "")
	code, _, stderr := run(t, "-c", p.config, "history", "--window", "-1h")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--window")
}

func TestAST(t *testing.T) {
	p := newProject(t, "")
	code, out, stderr := run(t, "ast", filepath.Join(p.root, "Kernel", "Main.wl"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "FunctionDef f[x] :=")
	assert.Contains(t, out, "Scoping Module {y}")
}

func TestAST_MissingFile(t *testing.T) {
	code, _, stderr := run(t, "ast", filepath.Join(t.TempDir(), "none.wl"))
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr)
}

func TestSymbols(t *testing.T) {
	p := newProject(t, "")
	code, out, stderr := run(t, "symbols", "-u", filepath.Join(p.root, "Kernel", "Main.wl"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "parameter")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, " symbols\n")
}

func TestSymbols_References(t *testing.T) {
	p := newProject(t, "")
	code, out, stderr := run(t, "symbols", "--refs", filepath.Join(p.root, "Kernel", "Main.wl"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "y 1:28 read  ")
	assert.Contains(t, out, "y 1:32 write  ")
	assert.Contains(t, out, "x 1:36 read  ")

	code, out, stderr = run(t, "symbols", "-r", writeSource(t, "g[] := Module[{n = 0}, n++; n]\n"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "n 1:24 read-write  ")
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Source.wl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseSince("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-03-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = parseSince("yesterday")
	assert.Error(t, err)
}

func TestParseHistoryWindow(t *testing.T) {
	got, err := parseHistoryWindow("")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, got)

	got, err = parseHistoryWindow("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, got)

	for _, bad := range []string{"soon", "0s", "-2h"} {
		_, err := parseHistoryWindow(bad)
		assert.Error(t, err, bad)
	}
}

func TestObservabilityServer_Handler(t *testing.T) {
	p := newProject(t, "")
	a, err := app.New(config.DefaultConfig(), app.WithProject(p.root, "demo"))
	require.NoError(t, err)

	srv := httptest.NewServer(NewObservabilityServer("127.0.0.1:0", app.NewHealthService(a)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health app.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "up", health.Status)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestExceeds(t *testing.T) {
	sev, err := parseFailOn("warning")
	require.NoError(t, err)
	require.NotNil(t, sev)

	none, err := parseFailOn("")
	require.NoError(t, err)
	assert.Nil(t, none)

	assert.False(t, exceeds(nil, *sev))
	assert.True(t, strings.HasPrefix(exitError{code: 3}.Error(), "exit status"))
}
