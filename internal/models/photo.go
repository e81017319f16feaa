package models

// PhotoRecord is an immutable snapshot of a library asset at the time it was
// loaded. CreatedAt is epoch milliseconds; Width/Height of 0 mean the
// dimensions were unavailable when the asset was indexed.
type PhotoRecord struct {
	ID          string `db:"id" json:"id"`
	OwnerID     string `db:"owner_id" json:"-"`
	LocationRef string `db:"location_ref" json:"location_ref"`
	DisplayName string `db:"display_name" json:"display_name"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	Width       int    `db:"width" json:"width"`
	Height      int    `db:"height" json:"height"`
}

// PhotoPage is a single page of library results, created_at ascending.
type PhotoPage struct {
	Records    []PhotoRecord `json:"records"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
	TotalCount int           `json:"total_count"`
}

// SimilarGroup holds two or more records whose creation times are pairwise
// within the proximity window of their neighbour in time-sorted order.
type SimilarGroup struct {
	Photos []PhotoRecord `json:"photos"`
}
