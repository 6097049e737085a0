package dto

import "github.com/cramplan/cramplan-api/internal/models"

// CreateExportRequest queues a plan export job.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	From   string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ExportJobResponse is the job's current state, with a signed download URL
// once finished.
type ExportJobResponse struct {
	models.PlanExportJob
	DownloadURL string `json:"downloadUrl,omitempty"`
}
