package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/swipeclean/triage-api/internal/models"
)

type queryMetrics interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// LibraryRepository provides paginated read access to the photo library and
// the permanent-delete operation. It is the only component that touches the
// photos table.
type LibraryRepository struct {
	db      *sqlx.DB
	metrics queryMetrics
}

// NewLibraryRepository constructs the repository. metrics may be nil.
func NewLibraryRepository(db *sqlx.DB, metrics queryMetrics) *LibraryRepository {
	return &LibraryRepository{db: db, metrics: metrics}
}

func (r *LibraryRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// GetPage returns one page of an owner's photos in created_at ascending
// order. The cursor is opaque to callers; an empty cursor starts from the
// beginning. TotalCount reflects the whole library, not the page.
func (r *LibraryRepository) GetPage(ctx context.Context, ownerID, cursor string, limit int) (*models.PhotoPage, error) {
	if limit <= 0 {
		limit = 50
	}

	start := time.Now()
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM photos WHERE owner_id = $1`, ownerID); err != nil {
		return nil, fmt.Errorf("count photos: %w", err)
	}
	r.observe("photos_count", start)

	query := `SELECT id, owner_id, location_ref, display_name, created_at, width, height
FROM photos WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if cursor != "" {
		afterCreated, afterID, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		query += ` AND (created_at, id) > ($2, $3)`
		args = append(args, afterCreated, afterID)
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT %d`, limit+1)

	start = time.Now()
	var records []models.PhotoRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("select photos page: %w", err)
	}
	r.observe("photos_page", start)

	page := &models.PhotoPage{TotalCount: total}
	if len(records) > limit {
		page.HasMore = true
		records = records[:limit]
	}
	page.Records = records
	if page.HasMore && len(records) > 0 {
		last := records[len(records)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// Purge permanently deletes the given photos. The delete runs in a single
// transaction so a failure leaves every row in place.
func (r *LibraryRepository) Purge(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	defer r.observe("photos_purge", start)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge tx: %w", err)
	}
	const query = `DELETE FROM photos WHERE owner_id = $1 AND id = ANY($2)`
	if _, err := tx.ExecContext(ctx, query, ownerID, pq.Array(ids)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("purge photos: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge tx: %w", err)
	}
	return nil
}

func encodeCursor(createdAt int64, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt, id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed cursor")
	}
	createdAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed cursor timestamp")
	}
	return createdAt, parts[1], nil
}
