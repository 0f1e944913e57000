package analytics

import (
	"time"

	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/models"
)

// Analytics provides analytics functionality
type Analytics struct {
	logger *zap.Logger
}

// NewAnalytics creates a new analytics instance
func NewAnalytics(logger *zap.Logger) *Analytics {
	return &Analytics{
		logger: logger,
	}
}

// AnalyzeRuns summarizes the outcome of runs. Runs still in flight are
// counted but take no part in rates and durations.
func (a *Analytics) AnalyzeRuns(runs []models.Run) *AnalyticsReport {
	report := &AnalyticsReport{
		TotalRuns:      len(runs),
		FailuresByKind: make(map[string]int),
	}

	var finished time.Duration
	for _, run := range runs {
		switch run.State {
		case models.StateCompleted:
			report.CompletedRuns++
			report.TotalSteps += len(run.Steps)
		case models.StateFailed:
			report.FailedRuns++
			report.FailuresByKind[run.ErrorKind]++
		default:
			report.RunningRuns++
			continue
		}
		finished += run.Duration()
	}

	if done := report.CompletedRuns + report.FailedRuns; done > 0 {
		report.SuccessRate = float64(report.CompletedRuns) / float64(done) * 100
		report.AverageDuration = finished / time.Duration(done)
	}

	a.logger.Debug("Runs analyzed",
		zap.Int("total", report.TotalRuns),
		zap.Int("failed", report.FailedRuns))

	return report
}

// AnalyticsReport contains analytics results
type AnalyticsReport struct {
	TotalRuns       int            `json:"total_runs"`
	CompletedRuns   int            `json:"completed_runs"`
	FailedRuns      int            `json:"failed_runs"`
	RunningRuns     int            `json:"running_runs"`
	SuccessRate     float64        `json:"success_rate"`
	TotalSteps      int            `json:"total_steps"`
	AverageDuration time.Duration  `json:"average_duration_ns"`
	FailuresByKind  map[string]int `json:"failures_by_kind"`
}
