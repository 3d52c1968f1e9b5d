package app

import (
	"context"
	"fmt"
	"time"

	"molgraph/internal/core/pipeline"
	"molgraph/internal/shared/observability"
	"molgraph/internal/shared/util"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports the run state. A failed run marks the process degraded.
func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	s.app.mu.Lock()
	collection, last := s.app.collection, s.app.last
	s.app.mu.Unlock()

	if collection == nil {
		status.Components["pipeline"] = "idle"
	} else {
		state := collection.State()
		status.Components["pipeline"] = fmt.Sprintf("%s (%d queries)", state, collection.Len())
		if state == pipeline.StateFailed {
			status.Status = "degraded"
		}
	}
	if last != nil && last.Result != nil {
		status.Components["last_run"] = fmt.Sprintf("%s: %d succeeded, %d failed",
			last.RunID, len(last.Result.Succeeded()), len(last.Result.Failed()))
	}

	if s.app.manifest != nil {
		status.Components["manifest"] = "ok"
	} else if s.app.Config.Manifest.Path != "" {
		status.Status = "degraded"
		status.Components["manifest"] = "missing but enabled in config"
	}

	status.Components["heap_mb"] = fmt.Sprintf("%d", util.HeapAllocMB())
	return status
}
