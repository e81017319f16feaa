package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	"github.com/swipeclean/triage-api/pkg/config"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/export"
	"github.com/swipeclean/triage-api/pkg/jobs"
	"github.com/swipeclean/triage-api/pkg/storage"
)

// ExportService renders triage reports (deleted entries plus kept ids) to
// CSV or PDF on a background worker queue and hands out signed download
// tokens. Job state is held in memory; reports are one-shot artifacts with a
// disk TTL enforced by the cleanup loop.
type ExportService struct {
	decisions *DecisionManager
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	files     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	logger    *zap.Logger

	cleanupInterval time.Duration
	fileTTL         time.Duration

	mu       sync.Mutex
	jobsByID map[string]*models.ExportJob
	cancel   context.CancelFunc
}

// NewExportService constructs the service and its worker queue.
func NewExportService(decisions *DecisionManager, files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg config.ExportsConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		decisions:       decisions,
		csv:             export.NewCSVExporter(),
		pdf:             export.NewPDFExporter(),
		files:           files,
		signer:          signer,
		logger:          logger,
		cleanupInterval: cfg.CleanupInterval,
		fileTTL:         cfg.SignedURLTTL,
		jobsByID:        make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("triage-exports", s.handleExport, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker queue and the storage cleanup loop.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.cleanupInterval > 0 && s.files != nil {
		go s.cleanupLoop(loopCtx)
	}
}

// Stop tears down workers and the cleanup loop.
func (s *ExportService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.queue.Stop()
}

// CreateJob enqueues a report generation job for the owner.
func (s *ExportService) CreateJob(ctx context.Context, ownerID string, format models.ExportFormat) (*models.ExportJob, error) {
	switch format {
	case models.ExportFormatCSV, models.ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	// Decisions must be hydrated before we snapshot them in the worker.
	s.decisions.GetOrCreate(ctx, ownerID)

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Format:    format,
		Status:    models.ExportStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobsByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "triage-report", Payload: job.ID}); err != nil {
		s.failJob(job.ID, "export queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return s.jobCopy(job.ID), nil
}

// GetJob returns the job when it belongs to ownerID.
func (s *ExportService) GetJob(ownerID, jobID string) (*models.ExportJob, error) {
	job := s.jobCopy(jobID)
	if job == nil || job.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// OpenDownload validates a signed token and opens the referenced report.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report no longer available")
	}
	return file, relPath, nil
}

func (s *ExportService) handleExport(ctx context.Context, queued jobs.Job) error {
	jobID, ok := queued.Payload.(string)
	if !ok {
		return nil
	}
	job := s.jobCopy(jobID)
	if job == nil {
		return nil
	}
	s.setStatus(jobID, models.ExportStatusProcessing)

	store := s.decisions.GetOrCreate(ctx, job.OwnerID)
	dataset := buildTriageDataset(store.DeletedEntries(), store.KeptIDs())

	var payload []byte
	var err error
	ext := string(job.Format)
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "photo triage report")
	}
	if err != nil {
		s.failJob(jobID, "report rendering failed")
		return fmt.Errorf("render %s report: %w", ext, err)
	}

	fileName := fmt.Sprintf("reports/%s.%s", jobID, ext)
	if _, err := s.files.Save(fileName, payload); err != nil {
		s.failJob(jobID, "report storage failed")
		return err
	}

	token, expiresAt, err := s.signer.Generate(jobID, fileName)
	if err != nil {
		s.failJob(jobID, "report signing failed")
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if stored, ok := s.jobsByID[jobID]; ok {
		stored.Status = models.ExportStatusCompleted
		stored.FileName = fileName
		stored.DownloadToken = token
		stored.ExpiresAt = &expiresAt
		stored.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("report ready",
		zap.String("job_id", jobID),
		zap.String("path", s.files.Path(fileName)))
	return nil
}

func buildTriageDataset(deleted []models.PhotoRecord, keptIDs []string) export.Dataset {
	headers := []string{"photo_id", "display_name", "taken_at", "dimensions", "outcome"}
	rows := make([]map[string]string, 0, len(deleted)+len(keptIDs))
	for _, entry := range deleted {
		rows = append(rows, map[string]string{
			"photo_id":     entry.ID,
			"display_name": entry.DisplayName,
			"taken_at":     time.UnixMilli(entry.CreatedAt).UTC().Format(time.RFC3339),
			"dimensions":   fmt.Sprintf("%dx%d", entry.Width, entry.Height),
			"outcome":      string(models.DecisionDeleted),
		})
	}
	for _, id := range keptIDs {
		rows = append(rows, map[string]string{
			"photo_id": id,
			"outcome":  string(models.DecisionKept),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.files.CleanupOlderThan(s.fileTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("cleaned up expired reports", zap.Int("count", len(deleted)))
			}
		}
	}
}

func (s *ExportService) setStatus(jobID string, status models.ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobsByID[jobID]; ok {
		job.Status = status
	}
}

func (s *ExportService) failJob(jobID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobsByID[jobID]; ok {
		job.Status = models.ExportStatusFailed
		job.Error = message
	}
}

func (s *ExportService) jobCopy(jobID string) *models.ExportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobsByID[jobID]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}
