package dto

// CreateExportRequest asks for a triage report in the given format.
type CreateExportRequest struct {
	Format string `json:"format" binding:"required,oneof=csv pdf"`
}
