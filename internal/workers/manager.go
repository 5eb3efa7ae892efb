package workers

import (
	"context"
	"sync"

	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/internal/services"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

// WorkerManager manages the background workers
type WorkerManager struct {
	workers []Worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(runRepo *repositories.RefreshRunRepository, refreshService *services.RefreshService) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	manager := &WorkerManager{
		ctx:    ctx,
		cancel: cancel,
	}

	// Exactly one refresh worker: refreshes are exclusive by design
	manager.workers = append(manager.workers, NewRefreshWorker("refresh-1", runRepo, refreshService))
	return manager
}

// StartAll starts all workers
func (wm *WorkerManager) StartAll() {
	for _, worker := range wm.workers {
		wm.startWorker(worker)
	}
	logger.Infof("Started %d workers", len(wm.workers))
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() {
	logger.Info("Stopping all workers...")

	wm.cancel()
	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("Error stopping worker %s", worker.GetWorkerID())
		}
	}

	wm.wg.Wait()
	logger.Info("All workers stopped")
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("Worker %s stopped with error", worker.GetWorkerID())
		}
	}()
}
