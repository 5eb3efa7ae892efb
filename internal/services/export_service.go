package services

import (
	"fmt"
	"io"
	"time"

	"github.com/alimgiray/sprintscope/internal/models"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportService writes the materialized reporting views into an Excel
// workbook, one sheet for daily activity and one for sprint velocity
type ExportService struct {
	summaryRepo   *repositories.ActivitySummaryRepository
	developerRepo *repositories.DeveloperRepository
	sprintRepo    *repositories.SprintRepository
	velocityRepo  *repositories.SprintVelocityRepository
}

func NewExportService(
	summaryRepo *repositories.ActivitySummaryRepository,
	developerRepo *repositories.DeveloperRepository,
	sprintRepo *repositories.SprintRepository,
	velocityRepo *repositories.SprintVelocityRepository,
) *ExportService {
	return &ExportService{
		summaryRepo:   summaryRepo,
		developerRepo: developerRepo,
		sprintRepo:    sprintRepo,
		velocityRepo:  velocityRepo,
	}
}

// ExportDailyActivity writes the daily report for a date plus the velocity
// table as an xlsx workbook to w
func (s *ExportService) ExportDailyActivity(date string, w io.Writer) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return &models.ValidationError{Field: "date", Message: "Date must be YYYY-MM-DD"}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeDailySheet(f, date); err != nil {
		return err
	}
	if err := s.writeVelocitySheet(f); err != nil {
		return err
	}

	// Drop the default sheet excelize creates
	f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (s *ExportService) writeDailySheet(f *excelize.File, date string) error {
	sheet := "Daily Activity"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Developer", "Email", "Sprint", "Time Bucket", "Jira", "Repo", "Total"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	report, err := s.summaryRepo.GetDailyReport(date)
	if err != nil {
		return fmt.Errorf("failed to load daily report: %w", err)
	}

	sprintNames, err := s.sprintNamesByID()
	if err != nil {
		return err
	}

	for i, row := range report {
		sprintName := ""
		if row.SprintID != nil {
			sprintName = sprintNames[*row.SprintID]
		}
		values := []interface{}{
			row.DeveloperName, row.CanonicalEmail, sprintName, row.TimeBucket,
			row.JiraCount, row.RepoCount, row.TotalCount,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ExportService) writeVelocitySheet(f *excelize.File) error {
	sheet := "Sprint Velocity"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Sprint", "Planned", "Delivered", "Completion %"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	velocities, err := s.velocityRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load velocity: %w", err)
	}

	sprintNames, err := s.sprintNamesByID()
	if err != nil {
		return err
	}

	for i, velocity := range velocities {
		values := []interface{}{
			sprintNames[velocity.SprintID], velocity.PlannedPoints,
			velocity.DeliveredPoints, velocity.CompletionRate,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ExportService) sprintNamesByID() (map[string]string, error) {
	sprints, err := s.sprintRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load sprints: %w", err)
	}

	names := make(map[string]string, len(sprints))
	for _, sprint := range sprints {
		names[sprint.ID] = sprint.Name
	}
	return names, nil
}
