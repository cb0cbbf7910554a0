package alerts

import "storefix.io/maintenance/internal/retention"

// AlertService fans a finished sweep out to the operators watching the
// maintenance desk.
type AlertService interface {
	PublishSweepSummary(result retention.FullSweepResult) error
}
