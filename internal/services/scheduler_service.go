package services

import (
	"time"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// SchedulerService enqueues one refresh run per day at the configured hour
type SchedulerService struct {
	runRepo     *repositories.RefreshRunRepository
	refreshHour int
}

func NewSchedulerService(runRepo *repositories.RefreshRunRepository, refreshHour int) *SchedulerService {
	return &SchedulerService{
		runRepo:     runRepo,
		refreshHour: refreshHour,
	}
}

// StartScheduler starts the automatic refresh scheduler. A negative hour
// disables scheduling entirely.
func (s *SchedulerService) StartScheduler() {
	if s.refreshHour < 0 || s.refreshHour > 23 {
		logger.Info("Scheduled refreshes disabled")
		return
	}

	go func() {
		for {
			now := time.Now()
			if now.Hour() == s.refreshHour {
				if err := s.enqueueRefresh(); err != nil {
					logger.WithError(err).Error("Failed to schedule refresh")
				}
			}

			// Sleep until the next full hour
			nextHour := now.Add(1 * time.Hour)
			nextHour = time.Date(nextHour.Year(), nextHour.Month(), nextHour.Day(), nextHour.Hour(), 0, 0, 0, nextHour.Location())
			time.Sleep(nextHour.Sub(now))
		}
	}()
}

// enqueueRefresh creates a pending run unless one is already queued or
// executing; refreshes never overlap
func (s *SchedulerService) enqueueRefresh() error {
	pending, err := s.runRepo.GetNextPending()
	if err != nil {
		return err
	}
	if pending != nil {
		return nil
	}

	inProgress, err := s.runRepo.HasInProgress()
	if err != nil {
		return err
	}
	if inProgress {
		return nil
	}

	run := models.NewRefreshRun()
	if err := s.runRepo.Create(run); err != nil {
		return err
	}

	logger.WithField("run", run.ID).Info("Scheduled refresh enqueued")
	return nil
}
