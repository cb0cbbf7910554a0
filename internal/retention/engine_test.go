package retention_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/retention"
	"storefix.io/maintenance/internal/test"
)

type fixture struct {
	engine        *retention.Engine
	requests      *test.RequestStore
	notifications *test.NotificationStore
	images        *test.ImageStore
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		requests:      test.NewRequestStore(),
		notifications: test.NewNotificationStore(),
		images:        test.NewImageStore(false),
		now:           time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC),
	}
	f.engine = retention.NewEngine(f.requests, f.notifications, f.images, nil).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) seedRequest(status data.RequestStatus, age time.Duration, imageUrl *string) data.MaintenanceRequestDTO {
	return f.requests.Seed(data.MaintenanceRequestDTO{
		BranchCode:  "BR-014",
		Title:       "Broken freezer aisle 3",
		Description: "Compressor will not start",
		Status:      status,
		ImageUrl:    imageUrl,
		Timestamp:   f.now.Add(-age),
	})
}

func (f *fixture) seedNotification(age time.Duration, read bool) data.NotificationDTO {
	return f.notifications.Seed(data.NotificationDTO{
		BranchCode: "BR-014",
		Title:      "New maintenance request",
		Message:    "Broken freezer aisle 3",
		Type:       data.NotificationNewRequest,
		Read:       read,
		Timestamp:  f.now.Add(-age),
	})
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func TestComputeCutoff(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, f.now, f.engine.ComputeCutoff(0))
	prev := f.engine.ComputeCutoff(1)
	for _, daysOld := range []int{2, 7, 30, 365} {
		cutoff := f.engine.ComputeCutoff(daysOld)
		assert.True(t, cutoff.Before(prev), "cutoff for %d days should precede cutoff for fewer days", daysOld)
		prev = cutoff
	}
}

func TestSweepCompletedRequests(t *testing.T) {
	t.Run("OldCompletedWithImage", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(40), aws.String("https://img.host/abc.jpg"))
		result := f.engine.SweepCompletedRequests(30)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.DeletedCount)
		assert.Equal(t, 1, result.ImagesProcessed)
		assert.Equal(t, 0, result.ImagesRemoved, "free plan exposes no delete endpoint")
		assert.Empty(t, f.images.Deleted)
		assert.Equal(t, 0, f.requests.Len())
	})

	t.Run("RecentCompletedSurvives", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(10), nil)
		result := f.engine.SweepCompletedRequests(30)
		assert.True(t, result.Success)
		assert.Equal(t, 0, result.DeletedCount)
		assert.Equal(t, 1, f.requests.Len())
	})

	t.Run("StatusFilterBeatsAge", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusInProgress, days(400), nil)
		for _, daysOld := range []int{1, 30, 365} {
			result := f.engine.SweepCompletedRequests(daysOld)
			assert.True(t, result.Success)
			assert.Equal(t, 0, result.DeletedCount)
		}
		assert.Equal(t, 1, f.requests.Len())
	})

	t.Run("BoundaryAgeIsNotDeleted", func(t *testing.T) {
		f := newFixture(t)
		// Age of exactly daysOld days: timestamp == cutoff, and the
		// comparison is strict less-than, so the document stays.
		f.seedRequest(data.StatusCompleted, days(30), nil)
		result := f.engine.SweepCompletedRequests(30)
		assert.True(t, result.Success)
		assert.Equal(t, 0, result.DeletedCount)
		assert.Equal(t, 1, f.requests.Len())
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(45), nil)
		f.seedRequest(data.StatusCompleted, days(60), nil)
		first := f.engine.SweepCompletedRequests(30)
		require.True(t, first.Success)
		assert.Equal(t, 2, first.DeletedCount)
		second := f.engine.SweepCompletedRequests(30)
		require.True(t, second.Success)
		assert.Equal(t, 0, second.DeletedCount)
	})

	t.Run("ImageRemovalWhenSupported", func(t *testing.T) {
		f := newFixture(t)
		f.images.CanDelete = true
		f.seedRequest(data.StatusCompleted, days(40), aws.String("https://img.host/abc.jpg"))
		f.seedRequest(data.StatusCompleted, days(50), nil)
		result := f.engine.SweepCompletedRequests(30)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.DeletedCount)
		assert.Equal(t, 1, result.ImagesProcessed)
		assert.Equal(t, 1, result.ImagesRemoved)
		assert.Equal(t, []string{"https://img.host/abc.jpg"}, f.images.Deleted)
	})

	t.Run("QueryFailure", func(t *testing.T) {
		f := newFixture(t)
		f.requests.FailList = errors.New("store unavailable")
		result := f.engine.SweepCompletedRequests(30)
		assert.False(t, result.Success)
		assert.Equal(t, 0, result.DeletedCount)
		assert.Contains(t, result.Message, "store unavailable")
	})

	t.Run("PartialDeleteFailure", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(40), nil)
		poisoned := f.seedRequest(data.StatusCompleted, days(50), nil)
		f.seedRequest(data.StatusCompleted, days(60), nil)
		f.requests.FailDelete = map[string]error{poisoned.SK: errors.New("delete rejected")}
		result := f.engine.SweepCompletedRequests(30)
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "delete rejected")
		// DeletedCount reports confirmed deletes, not the matched
		// snapshot size.
		assert.Equal(t, 2, result.DeletedCount)
		assert.Equal(t, 1, f.requests.Len())
		_, err := f.requests.Get(poisoned.BranchCode, poisoned.SK)
		assert.NoError(t, err)
	})
}

func TestSweepOldNotifications(t *testing.T) {
	t.Run("ReadFlagIrrelevant", func(t *testing.T) {
		f := newFixture(t)
		f.seedNotification(days(10), true)
		f.seedNotification(days(10), false)
		f.seedNotification(days(3), false)
		result := f.engine.SweepOldNotifications(7)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.DeletedCount)
		assert.Equal(t, 1, f.notifications.Len())
	})

	t.Run("NonInterference", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(400), nil)
		f.seedNotification(days(400), false)
		notifications := f.engine.SweepOldNotifications(7)
		assert.Equal(t, 1, notifications.DeletedCount)
		assert.Equal(t, 1, f.requests.Len(), "notification sweep must not touch requests")
		requests := f.engine.SweepCompletedRequests(30)
		assert.Equal(t, 1, requests.DeletedCount)
		assert.Equal(t, 0, f.notifications.Len())
	})

	t.Run("QueryFailure", func(t *testing.T) {
		f := newFixture(t)
		f.notifications.FailList = errors.New("store unavailable")
		result := f.engine.SweepOldNotifications(7)
		assert.False(t, result.Success)
		assert.Equal(t, 0, result.DeletedCount)
		assert.Contains(t, result.Message, "store unavailable")
	})
}

func TestRunFullSweep(t *testing.T) {
	t.Run("FreshInstall", func(t *testing.T) {
		f := newFixture(t)
		result := f.engine.RunFullSweep()
		assert.True(t, result.Requests.Success)
		assert.True(t, result.Notifications.Success)
		assert.Equal(t, 0, result.TotalDeleted)
		assert.Equal(t, 0, result.TotalImagesProcessed)
	})

	t.Run("IndependentFailure", func(t *testing.T) {
		f := newFixture(t)
		f.requests.FailList = errors.New("store unavailable")
		f.seedNotification(days(10), false)
		result := f.engine.RunFullSweep()
		assert.False(t, result.Requests.Success)
		assert.True(t, result.Notifications.Success, "request sweep failure must not block the notification sweep")
		assert.Equal(t, 1, result.TotalDeleted)
	})

	t.Run("AggregatesDefaults", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(40), aws.String("https://img.host/a.jpg"))
		// Older than the 7 day notification default but younger than
		// the 30 day request default.
		f.seedRequest(data.StatusCompleted, days(10), nil)
		f.seedNotification(days(10), false)
		result := f.engine.RunFullSweep()
		assert.Equal(t, 1, result.Requests.DeletedCount)
		assert.Equal(t, 1, result.Notifications.DeletedCount)
		assert.Equal(t, 2, result.TotalDeleted)
		assert.Equal(t, 1, result.TotalImagesProcessed)
	})
}

func TestGetStorageStatistics(t *testing.T) {
	t.Run("FreshInstall", func(t *testing.T) {
		f := newFixture(t)
		stats, err := f.engine.GetStorageStatistics()
		require.NoError(t, err)
		assert.Equal(t, retention.StorageStatistics{}, stats)
	})

	t.Run("MixedCollections", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(40), aws.String("https://img.host/a.jpg"))
		f.seedRequest(data.StatusCompleted, days(10), aws.String("https://img.host/b.jpg"))
		f.seedRequest(data.StatusInProgress, days(90), nil)
		f.seedNotification(days(2), false)
		f.seedNotification(days(20), true)
		stats, err := f.engine.GetStorageStatistics()
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalRequests)
		assert.Equal(t, 2, stats.CompletedRequests)
		assert.Equal(t, 1, stats.OldCompletedRequests)
		assert.Equal(t, 2, stats.TotalNotifications)
		assert.Equal(t, 2, stats.TotalImagesStored)
		assert.Equal(t, 1, stats.OldImagesForCleanup)
		assert.Equal(t, 1, stats.EstimatedCleanupSavings)
		assert.Equal(t, 1, stats.EstimatedImageCleanup)
	})

	t.Run("FixedThresholdIgnoresSweepAge", func(t *testing.T) {
		f := newFixture(t)
		f.seedRequest(data.StatusCompleted, days(10), nil)
		// A 7 day sweep would claim this document; statistics still
		// count against their own fixed 30 day threshold.
		stats, err := f.engine.GetStorageStatistics()
		require.NoError(t, err)
		assert.Equal(t, 0, stats.OldCompletedRequests)
		result := f.engine.SweepCompletedRequests(7)
		assert.Equal(t, 1, result.DeletedCount)
	})

	t.Run("CollaboratorFailure", func(t *testing.T) {
		f := newFixture(t)
		f.requests.FailList = errors.New("store unavailable")
		_, err := f.engine.GetStorageStatistics()
		assert.Error(t, err)
	})
}
