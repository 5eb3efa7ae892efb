package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/internal/services"
	"github.com/gin-gonic/gin"
)

// ReportsHandler exposes read-only access to the materialized reporting
// views. Report generators never get write access.
type ReportsHandler struct {
	summaryRepo   *repositories.ActivitySummaryRepository
	developerRepo *repositories.DeveloperRepository
	sprintRepo    *repositories.SprintRepository
	velocityRepo  *repositories.SprintVelocityRepository
	exportService *services.ExportService
}

func NewReportsHandler(
	summaryRepo *repositories.ActivitySummaryRepository,
	developerRepo *repositories.DeveloperRepository,
	sprintRepo *repositories.SprintRepository,
	velocityRepo *repositories.SprintVelocityRepository,
	exportService *services.ExportService,
) *ReportsHandler {
	return &ReportsHandler{
		summaryRepo:   summaryRepo,
		developerRepo: developerRepo,
		sprintRepo:    sprintRepo,
		velocityRepo:  velocityRepo,
		exportService: exportService,
	}
}

// DailyReport returns the activity report for one date, active developers
// with zero activity included
func (h *ReportsHandler) DailyReport(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	report, err := h.summaryRepo.GetDailyReport(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "rows": report})
}

// Developers lists all developers
func (h *ReportsHandler) Developers(c *gin.Context) {
	developers, err := h.developerRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"developers": developers})
}

// Sprints lists all sprints, including those without boundaries
func (h *ReportsHandler) Sprints(c *gin.Context) {
	sprints, err := h.sprintRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sprints": sprints})
}

// Velocity lists planned vs delivered points per sprint
func (h *ReportsHandler) Velocity(c *gin.Context) {
	velocities, err := h.velocityRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"velocity": velocities})
}

// SprintVelocity returns the velocity row for one sprint
func (h *ReportsHandler) SprintVelocity(c *gin.Context) {
	velocity, err := h.velocityRepo.GetBySprintID(c.Param("id"))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "no velocity for this sprint"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, velocity)
}

// Export streams the reporting views for a date as an xlsx workbook
func (h *ReportsHandler) Export(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	var buf bytes.Buffer
	if err := h.exportService.ExportDailyActivity(date, &buf); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="activity-`+date+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
