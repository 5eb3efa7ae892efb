package handlers

import (
	"database/sql"
	"net/http"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/gin-gonic/gin"
)

// RefreshHandler enqueues refresh runs and reports their progress
type RefreshHandler struct {
	runRepo *repositories.RefreshRunRepository
}

func NewRefreshHandler(runRepo *repositories.RefreshRunRepository) *RefreshHandler {
	return &RefreshHandler{runRepo: runRepo}
}

// Trigger enqueues a new refresh run unless one is already queued or running
func (h *RefreshHandler) Trigger(c *gin.Context) {
	pending, err := h.runRepo.GetNextPending()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if pending != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a refresh is already queued", "run": pending})
		return
	}

	inProgress, err := h.runRepo.HasInProgress()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "a refresh is already running"})
		return
	}

	run := models.NewRefreshRun()
	if err := h.runRepo.Create(run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// Latest returns the most recent refresh run, its stage and anomaly counts
func (h *RefreshHandler) Latest(c *gin.Context) {
	run, err := h.runRepo.GetLatest()
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "no refresh has run yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

// Status returns one refresh run by ID
func (h *RefreshHandler) Status(c *gin.Context) {
	run, err := h.runRepo.GetByID(c.Param("id"))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
