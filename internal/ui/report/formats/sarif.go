package formats

import (
	"encoding/json"
	"io"
	"path/filepath"

	"wlscope/internal/core/ports"
	"wlscope/internal/engine/findings"
	"wlscope/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

type SARIFWriter struct{}

func (SARIFWriter) Format() string { return "sarif" }

func (SARIFWriter) Write(w io.Writer, _ ports.ReportMeta, fs []findings.Finding) error {
	data, err := GenerateSARIF("", fs)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// GenerateSARIF builds a SARIF v2.1.0 document from findings. File URIs are
// made relative to projectRoot; absolute paths are never included so that
// reports are safe to share. SARIF columns are 1-based.
func GenerateSARIF(projectRoot string, fs []findings.Finding) ([]byte, error) {
	rules, index := buildSARIFRules(fs)
	results := make([]sarifResult, 0, len(fs))

	for _, f := range fs {
		result := sarifResult{
			RuleID:    f.RuleID,
			RuleIndex: index[f.RuleID],
			Level:     sarifLevel(f.Level),
			Message:   sarifMessage{Text: f.Message},
		}
		if f.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, f.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if f.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{
					StartLine:   f.Line,
					StartColumn: f.Column + 1,
				}
			}
			result.Locations = []sarifLocation{loc}
		}
		results = append(results, result)
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "wlscope",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given
// findings, in rule ID order, with each rule's index.
func buildSARIFRules(fs []findings.Finding) ([]sarifRule, map[string]int) {
	used := make(map[string]bool, len(fs))
	for _, f := range fs {
		used[f.RuleID] = true
	}

	rules := make([]sarifRule, 0, len(used))
	index := make(map[string]int, len(used))
	for _, r := range findings.Rules {
		if !used[r.ID] {
			continue
		}
		index[r.ID] = len(rules)
		rules = append(rules, sarifRule{
			ID:               r.ID,
			Name:             r.Name,
			ShortDescription: sarifMessage{Text: r.Description},
			DefaultConfig:    sarifRuleDefaultConfig{Level: sarifLevel(r.Severity.String())},
		})
	}
	return rules, index
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}

func sarifLevel(severity string) string {
	switch severity {
	case "error":
		return "error"
	case "warning":
		return "warning"
	default:
		return "note"
	}
}
