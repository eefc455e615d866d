package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport derives per-run deltas and a moving average of finding
// counts over window from snapshots ordered oldest first.
func BuildTrendReport(projectKey string, snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots available")
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			RunID:        current.RunID,
			Timestamp:    current.Timestamp,
			CommitHash:   current.CommitHash,
			FileCount:    current.FileCount,
			FailedCount:  current.FailedCount,
			FindingCount: current.FindingCount,
		}
		if current.FileCount > 0 {
			point.FindingsPerFile = round2(float64(current.FindingCount) / float64(current.FileCount))
		}
		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaFiles = current.FileCount - prev.FileCount
			point.DeltaFindings = current.FindingCount - prev.FindingCount
		}
		point.AvgFindings = round2(movingAverage(snapshots, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		ProjectKey:    projectKey,
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverage(snapshots []Snapshot, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(snapshots[index].FindingCount)
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	total, count := 0, 0
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		total += snapshots[i].FindingCount
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
