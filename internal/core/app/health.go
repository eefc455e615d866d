package app

import (
	"context"
	"fmt"
	"time"

	"wlscope/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.pipeline == nil {
		status.Status = "degraded"
		status.Components["pipeline"] = "missing"
	} else {
		status.Components["pipeline"] = "ok"
	}

	if s.app.history != nil {
		status.Components["history"] = "ok"
	} else if s.app.Config.DB.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	if s.app.results != nil {
		st := s.app.results.stats()
		status.Components["result_cache"] = fmt.Sprintf("ok (%d/%d entries, %d hits, %d misses)", st.Len, st.Cap, st.Hits, st.Misses)
	}

	if last, ok := s.app.LastRun(); ok {
		status.Components["last_run"] = fmt.Sprintf("%s (%d files, %d failed, %d findings)",
			last.StartedAt.Format(time.RFC3339), len(last.Files), last.Failed, len(last.Findings))
		if len(last.Files) > 0 && last.Failed == len(last.Files) {
			status.Status = "degraded"
		}
	} else {
		status.Components["last_run"] = "none"
	}

	mem := util.ReadMemStats()
	status.Components["memory"] = fmt.Sprintf("heap %dMB, sys %dMB, %d GCs", mem.HeapMB, mem.SysMB, mem.NumGC)
	return status
}
