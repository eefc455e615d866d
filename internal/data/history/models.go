package history

import "time"

const SchemaVersion = 1

// Snapshot is one recorded analysis run.
type Snapshot struct {
	RunID         string
	ProjectKey    string
	SchemaVersion int
	Timestamp     time.Time
	CommitHash    string
	Duration      time.Duration
	FileCount     int
	FailedCount   int
	FindingCount  int
	// RuleCounts is keyed by rule ID.
	RuleCounts map[string]int
	Findings   []FindingRecord
}

type FindingRecord struct {
	RuleID   string
	Severity string
	File     string
	Line     int
	Column   int
	Message  string
}

type TrendPoint struct {
	RunID           string    `json:"run_id" yaml:"run_id"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	FileCount       int       `json:"file_count" yaml:"file_count"`
	FailedCount     int       `json:"failed_count" yaml:"failed_count"`
	FindingCount    int       `json:"finding_count" yaml:"finding_count"`
	DeltaFiles      int       `json:"delta_files" yaml:"delta_files"`
	DeltaFindings   int       `json:"delta_findings" yaml:"delta_findings"`
	FindingsPerFile float64   `json:"findings_per_file" yaml:"findings_per_file"`
	AvgFindings     float64   `json:"avg_findings" yaml:"avg_findings"`
	WindowHours     float64   `json:"window_hours" yaml:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version" yaml:"schema_version"`
	ProjectKey    string       `json:"project_key" yaml:"project_key"`
	Since         time.Time    `json:"since" yaml:"since"`
	Until         time.Time    `json:"until" yaml:"until"`
	Window        string       `json:"window" yaml:"window"`
	RunCount      int          `json:"run_count" yaml:"run_count"`
	Points        []TrendPoint `json:"points" yaml:"points"`
}
