package formats

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"wlscope/internal/core/ports"
)

var meta = ports.ReportMeta{ProjectKey: "demo", RunID: "run-1", Files: 2, Failed: 1, Duration: 1500 * time.Millisecond}

func TestNew(t *testing.T) {
	for _, name := range []string{"text", "JSON", " yaml ", "sarif"} {
		w, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if w.Format() != strings.ToLower(strings.TrimSpace(name)) {
			t.Errorf("New(%q).Format() = %q", name, w.Format())
		}
	}
	if _, err := New("html"); err == nil || !strings.Contains(err.Error(), "json, sarif, text, yaml") {
		t.Fatalf("expected unknown format error listing formats, got %v", err)
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (TextWriter{}).Write(&buf, meta, sampleFindings()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"LOCATION", "Kernel/Main.wl:3:9", "WL001", "y is used before assignment in f", "Kernel/Broken.wl", "demo: 3 findings in 2 files (1 failed) in 1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := (TextWriter{}).Write(&buf, ports.ReportMeta{Files: 4}, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "wlscope: 0 findings in 4 files (0 failed) in 0s\n" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONWriter{}).Write(&buf, meta, sampleFindings()); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Project    string `json:"project"`
		DurationMS int64  `json:"duration_ms"`
		Findings   []struct {
			RuleID   string `json:"rule_id"`
			Severity string `json:"severity"`
			Line     int    `json:"line"`
		} `json:"findings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Project != "demo" || doc.DurationMS != 1500 || len(doc.Findings) != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Findings[0].RuleID != "WL001" || doc.Findings[0].Severity != "warning" || doc.Findings[0].Line != 3 {
		t.Fatalf("unexpected first finding %+v", doc.Findings[0])
	}
}

func TestJSONWriter_EmptyFindingsIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONWriter{}).Write(&buf, meta, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"findings": []`) {
		t.Fatalf("expected empty array, got:\n%s", buf.String())
	}
}

func TestYAMLWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLWriter{}).Write(&buf, meta, sampleFindings()); err != nil {
		t.Fatal(err)
	}
	var doc document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.RunID != "run-1" || doc.Failed != 1 || len(doc.Findings) != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Findings[1].Level != "note" || doc.Findings[1].Column != 17 {
		t.Fatalf("unexpected second finding %+v", doc.Findings[1])
	}
}
