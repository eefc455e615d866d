package formats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"wlscope/internal/core/ports"
	"wlscope/internal/engine/findings"
)

// document is the JSON and YAML report shape.
type document struct {
	Project    string             `json:"project" yaml:"project"`
	RunID      string             `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Files      int                `json:"files" yaml:"files"`
	Failed     int                `json:"failed" yaml:"failed"`
	DurationMS int64              `json:"duration_ms" yaml:"duration_ms"`
	Findings   []findings.Finding `json:"findings" yaml:"findings"`
}

func newDocument(meta ports.ReportMeta, fs []findings.Finding) document {
	if fs == nil {
		fs = []findings.Finding{}
	}
	return document{
		Project:    meta.ProjectKey,
		RunID:      meta.RunID,
		Files:      meta.Files,
		Failed:     meta.Failed,
		DurationMS: meta.Duration.Milliseconds(),
		Findings:   fs,
	}
}

type JSONWriter struct{}

func (JSONWriter) Format() string { return "json" }

func (JSONWriter) Write(w io.Writer, meta ports.ReportMeta, fs []findings.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(meta, fs))
}

type YAMLWriter struct{}

func (YAMLWriter) Format() string { return "yaml" }

func (YAMLWriter) Write(w io.Writer, meta ports.ReportMeta, fs []findings.Finding) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(meta, fs)); err != nil {
		return err
	}
	return enc.Close()
}
