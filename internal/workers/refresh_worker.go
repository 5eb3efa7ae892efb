package workers

import (
	"context"
	"time"

	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/internal/services"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// RefreshWorker executes pending refresh runs one at a time. A single worker
// is the whole concurrency story: the pipeline is an exclusive batch process,
// so refreshes never overlap.
type RefreshWorker struct {
	*BaseWorker
	runRepo        *repositories.RefreshRunRepository
	refreshService *services.RefreshService
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(workerID string, runRepo *repositories.RefreshRunRepository, refreshService *services.RefreshService) *RefreshWorker {
	return &RefreshWorker{
		BaseWorker:     NewBaseWorker(workerID),
		runRepo:        runRepo,
		refreshService: refreshService,
	}
}

// Start begins polling for pending refresh runs
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("Refresh worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Refresh worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("Refresh worker %s stopping", w.WorkerID)
			return nil
		default:
			run, err := w.runRepo.GetNextPending()
			if err != nil {
				logger.WithError(err).Errorf("Refresh worker %s error getting run", w.WorkerID)
				time.Sleep(5 * time.Second)
				continue
			}

			if run == nil {
				time.Sleep(10 * time.Second)
				continue
			}

			logger.Infof("Refresh worker %s processing run %s", w.WorkerID, run.ID)
			if err := w.refreshService.Run(ctx, run); err != nil {
				logger.WithError(err).Errorf("Refresh worker %s run %s failed", w.WorkerID, run.ID)
				continue
			}
			logger.Infof("Refresh worker %s completed run %s", w.WorkerID, run.ID)
		}
	}
}
