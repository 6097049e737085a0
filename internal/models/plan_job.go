package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat enumerates supported plan export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// PlanExportJob is persisted background job metadata for plan exports.
type PlanExportJob struct {
	ID           string              `db:"id" json:"id"`
	UserID       string              `db:"user_id" json:"user_id"`
	Params       PlanExportParams    `db:"params" json:"params"`
	Status       ExportStatus        `db:"status" json:"status"`
	ResultURL    *string             `db:"result_url" json:"result_url,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time          `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string             `db:"error_message" json:"error_message,omitempty"`
}

// PlanExportParams stores request-scoped options persisted as JSONB.
type PlanExportParams struct {
	Format ExportFormat `json:"format"`
	From   *time.Time   `json:"from,omitempty"`
	To     *time.Time   `json:"to,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p PlanExportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal plan export params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *PlanExportParams) Scan(value interface{}) error {
	if value == nil {
		*p = PlanExportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for PlanExportParams", value)
	}
	if len(data) == 0 {
		*p = PlanExportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal plan export params: %w", err)
	}
	return nil
}
