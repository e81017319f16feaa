package dto

import "github.com/swipeclean/triage-api/internal/models"

// DecideRequest records the verdict for the current queue head.
type DecideRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=kept deleted"`
}

// RecoverRequest moves soft-deleted photos back to undecided.
type RecoverRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,required"`
}

// PurgeRequest permanently removes soft-deleted photos from the library.
// An empty id list purges the entire deleted list.
type PurgeRequest struct {
	IDs []string `json:"ids"`
}

// PurgeResult reports which ids were permanently removed.
type PurgeResult struct {
	PurgedIDs []string `json:"purged_ids"`
}

// SessionSnapshot is the presentation-facing view of a review session.
type SessionSnapshot struct {
	Current       *models.PhotoRecord `json:"current,omitempty"`
	Next          *models.PhotoRecord `json:"next,omitempty"`
	QueueLength   int                 `json:"queue_length"`
	ReviewedCount int                 `json:"reviewed_count"`
	TotalCount    int                 `json:"total_count"`
	Progress      float64             `json:"progress"`
	LastAction    *models.LastAction  `json:"last_action,omitempty"`
	Loaded        bool                `json:"loaded"`
	LoadError     string              `json:"load_error,omitempty"`
}

// DecisionState exposes the persisted decision collections.
type DecisionState struct {
	Deleted []models.PhotoRecord `json:"deleted"`
	KeptIDs []string             `json:"kept_ids"`
	Loaded  bool                 `json:"loaded"`
}
