package models

import "time"

// ExportFormat enumerates supported triage report formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks report job lifecycle.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob describes one triage report generation request.
type ExportJob struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"-"`
	Format        ExportFormat `json:"format"`
	Status        ExportStatus `json:"status"`
	FileName      string       `json:"file_name,omitempty"`
	DownloadToken string       `json:"download_token,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}
