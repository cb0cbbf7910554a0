package retention

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/images"
)

const (
	// DefaultRequestRetentionDays is the engine's own default for
	// completed request sweeps. The HTTP cleanup boundary carries a
	// different fallback (7) when its request body omits daysOld; the
	// two are deliberately distinct constants. See routes/admin.
	DefaultRequestRetentionDays = 30

	DefaultNotificationRetentionDays = 7

	// statisticsThresholdDays is fixed regardless of whatever daysOld a
	// caller later passes to a sweep. Storage statistics answer "what
	// would the default policy reclaim", not "what would this caller's
	// sweep reclaim".
	statisticsThresholdDays = 30
)

type RequestSweepResult struct {
	DeletedCount    int    `json:"deletedCount"`
	ImagesProcessed int    `json:"imagesProcessed"`
	ImagesRemoved   int    `json:"imagesRemoved"`
	Success         bool   `json:"success"`
	Message         string `json:"message"`
}

type NotificationSweepResult struct {
	DeletedCount int    `json:"deletedCount"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
}

type FullSweepResult struct {
	Requests             RequestSweepResult      `json:"requests"`
	Notifications        NotificationSweepResult `json:"notifications"`
	TotalDeleted         int                     `json:"totalDeleted"`
	TotalImagesProcessed int                     `json:"totalImagesProcessed"`
}

type StorageStatistics struct {
	TotalRequests           int `json:"totalRequests"`
	CompletedRequests       int `json:"completedRequests"`
	OldCompletedRequests    int `json:"oldCompletedRequests"`
	TotalNotifications      int `json:"totalNotifications"`
	TotalImagesStored       int `json:"totalImagesStored"`
	OldImagesForCleanup     int `json:"oldImagesForCleanup"`
	EstimatedCleanupSavings int `json:"estimatedCleanupSavings"`
	EstimatedImageCleanup   int `json:"estimatedImageCleanup"`
}

// Engine enforces bounded retention of completed requests and of
// notifications. It is stateless between invocations; repeated sweeps
// converge because the age filter naturally excludes documents a prior
// sweep already deleted.
type Engine struct {
	requests      data.RequestRepository
	notifications data.NotificationRepository
	images        images.Store
	logger        *zap.Logger
	now           func() time.Time
}

func NewEngine(requests data.RequestRepository, notifications data.NotificationRepository, store images.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		requests:      requests,
		notifications: notifications,
		images:        store,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock replaces the engine's wall clock. Tests pin it to exercise
// the age boundary.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ComputeCutoff returns "now minus daysOld days". Documents are
// eligible only when strictly older than the cutoff.
func (e *Engine) ComputeCutoff(daysOld int) time.Time {
	return e.now().AddDate(0, 0, -daysOld)
}

// SweepCompletedRequests deletes requests with status COMPLETED created
// strictly before the cutoff. Image handling runs first, fan-out then
// join, and document deletes follow the same way; the deletes carry no
// batch atomicity, so a failure mid-sweep leaves earlier deletes in
// place. DeletedCount reports confirmed deletes only, not the matched
// snapshot.
func (e *Engine) SweepCompletedRequests(daysOld int) RequestSweepResult {
	cutoff := e.ComputeCutoff(daysOld)
	matched, err := e.collectRequests(cutoff)
	if err != nil {
		e.logger.Error("request sweep query failed", zap.Error(err))
		return RequestSweepResult{
			Success: false,
			Message: fmt.Sprintf("failed to query completed requests: %s", err),
		}
	}
	result := RequestSweepResult{Success: true}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, dto := range matched {
		if dto.ImageUrl == nil {
			continue
		}
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			removed := false
			if e.images.SupportsDelete() {
				if err := e.images.Delete(url); err != nil {
					e.logger.Warn("image delete failed", zap.String("imageUrl", url), zap.Error(err))
				} else {
					removed = true
				}
			}
			mu.Lock()
			result.ImagesProcessed++
			if removed {
				result.ImagesRemoved++
			}
			mu.Unlock()
		}(*dto.ImageUrl)
	}
	wg.Wait()

	var firstErr error
	for _, dto := range matched {
		wg.Add(1)
		go func(branchCode, id string) {
			defer wg.Done()
			err := e.requests.Delete(branchCode, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			result.DeletedCount++
		}(dto.BranchCode, dto.SK)
	}
	wg.Wait()
	if firstErr != nil {
		e.logger.Error("request sweep delete failed", zap.Error(firstErr), zap.Int("deleted", result.DeletedCount))
		result.Success = false
		result.Message = fmt.Sprintf("failed to delete matched requests: %s", firstErr)
		return result
	}
	result.Message = fmt.Sprintf("deleted %d completed requests older than %d days", result.DeletedCount, daysOld)
	e.logger.Info("request sweep completed",
		zap.Int("deleted", result.DeletedCount),
		zap.Int("imagesProcessed", result.ImagesProcessed),
		zap.Int("imagesRemoved", result.ImagesRemoved),
		zap.Int("daysOld", daysOld),
	)
	return result
}

// SweepOldNotifications deletes notifications created strictly before
// the cutoff, read or not.
func (e *Engine) SweepOldNotifications(daysOld int) NotificationSweepResult {
	cutoff := e.ComputeCutoff(daysOld)
	matched, err := e.collectNotifications(cutoff)
	if err != nil {
		e.logger.Error("notification sweep query failed", zap.Error(err))
		return NotificationSweepResult{
			Success: false,
			Message: fmt.Sprintf("failed to query old notifications: %s", err),
		}
	}
	result := NotificationSweepResult{Success: true}
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	for _, dto := range matched {
		wg.Add(1)
		go func(branchCode, id string) {
			defer wg.Done()
			err := e.notifications.Delete(branchCode, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			result.DeletedCount++
		}(dto.BranchCode, dto.SK)
	}
	wg.Wait()
	if firstErr != nil {
		e.logger.Error("notification sweep delete failed", zap.Error(firstErr), zap.Int("deleted", result.DeletedCount))
		result.Success = false
		result.Message = fmt.Sprintf("failed to delete matched notifications: %s", firstErr)
		return result
	}
	result.Message = fmt.Sprintf("deleted %d notifications older than %d days", result.DeletedCount, daysOld)
	e.logger.Info("notification sweep completed", zap.Int("deleted", result.DeletedCount), zap.Int("daysOld", daysOld))
	return result
}

// RunFullSweep runs both sweeps at their engine defaults. A failing
// sweep never blocks the other.
func (e *Engine) RunFullSweep() FullSweepResult {
	requests := e.SweepCompletedRequests(DefaultRequestRetentionDays)
	notifications := e.SweepOldNotifications(DefaultNotificationRetentionDays)
	return FullSweepResult{
		Requests:             requests,
		Notifications:        notifications,
		TotalDeleted:         requests.DeletedCount + notifications.DeletedCount,
		TotalImagesProcessed: requests.ImagesProcessed,
	}
}

// GetStorageStatistics aggregates over the full collections. The "old"
// counts always use the fixed statistics threshold.
func (e *Engine) GetStorageStatistics() (StorageStatistics, error) {
	cutoff := e.ComputeCutoff(statisticsThresholdDays)
	stats := StorageStatistics{}
	params := data.QueryParams{Limit: 100}
	for {
		page, err := e.requests.ListAll(params)
		if err != nil {
			return StorageStatistics{}, err
		}
		for _, dto := range page.Items {
			stats.TotalRequests++
			if dto.ImageUrl != nil {
				stats.TotalImagesStored++
			}
			if dto.Status == data.StatusCompleted {
				stats.CompletedRequests++
				if dto.Timestamp.Before(cutoff) {
					stats.OldCompletedRequests++
					if dto.ImageUrl != nil {
						stats.OldImagesForCleanup++
					}
				}
			}
		}
		if page.NextToken == "" {
			break
		}
		params.NextToken = page.NextToken
	}
	params = data.QueryParams{Limit: 100}
	for {
		page, err := e.notifications.ListAll(params)
		if err != nil {
			return StorageStatistics{}, err
		}
		stats.TotalNotifications += len(page.Items)
		if page.NextToken == "" {
			break
		}
		params.NextToken = page.NextToken
	}
	stats.EstimatedCleanupSavings = stats.OldCompletedRequests
	stats.EstimatedImageCleanup = stats.OldImagesForCleanup
	return stats, nil
}

func (e *Engine) collectRequests(cutoff time.Time) ([]data.MaintenanceRequestDTO, error) {
	var matched []data.MaintenanceRequestDTO
	params := data.QueryParams{Limit: 100}
	for {
		page, err := e.requests.ListCompletedBefore(cutoff, params)
		if err != nil {
			return nil, err
		}
		matched = append(matched, page.Items...)
		if page.NextToken == "" {
			return matched, nil
		}
		params.NextToken = page.NextToken
	}
}

func (e *Engine) collectNotifications(cutoff time.Time) ([]data.NotificationDTO, error) {
	var matched []data.NotificationDTO
	params := data.QueryParams{Limit: 100}
	for {
		page, err := e.notifications.ListCreatedBefore(cutoff, params)
		if err != nil {
			return nil, err
		}
		matched = append(matched, page.Items...)
		if page.NextToken == "" {
			return matched, nil
		}
		params.NextToken = page.NextToken
	}
}
