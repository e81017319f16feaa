package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swipeclean/triage-api/internal/models"
	"github.com/swipeclean/triage-api/pkg/config"
	appErrors "github.com/swipeclean/triage-api/pkg/errors"
	"github.com/swipeclean/triage-api/pkg/storage"
)

func newExportFixture(t *testing.T) (*ExportService, *DecisionManager, func()) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-test-secret", time.Hour)

	decisions := NewDecisionManager(newKVStub(), zap.NewNop())
	decisions.Start(context.Background())

	svc := NewExportService(decisions, files, signer, zap.NewNop(), config.ExportsConfig{
		SignedURLTTL:      time.Hour,
		WorkerConcurrency: 1,
		WorkerRetries:     0,
	})
	svc.Start(context.Background())

	stop := func() {
		svc.Stop()
		decisions.Stop()
	}
	return svc, decisions, stop
}

func waitForJob(t *testing.T, svc *ExportService, ownerID, jobID string) *models.ExportJob {
	t.Helper()
	var job *models.ExportJob
	require.Eventually(t, func() bool {
		current, err := svc.GetJob(ownerID, jobID)
		if err != nil {
			return false
		}
		job = current
		return current.Status == models.ExportStatusCompleted || current.Status == models.ExportStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestExportCSVReportRoundTrip(t *testing.T) {
	svc, decisions, stop := newExportFixture(t)
	defer stop()

	store := decisions.GetOrCreate(context.Background(), "user-1")
	store.RecordDeleted(photo("blurry", 1700000000000))
	store.RecordKept(photo("keeper", 1700000001000))

	job, err := svc.CreateJob(context.Background(), "user-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusPending, job.Status)

	done := waitForJob(t, svc, "user-1", job.ID)
	require.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.NotEmpty(t, done.DownloadToken)
	require.NotNil(t, done.ExpiresAt)

	file, _, err := svc.OpenDownload(done.DownloadToken)
	require.NoError(t, err)
	defer file.Close()

	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "photo_id,display_name,taken_at,dimensions,outcome"))
	assert.Contains(t, content, "blurry")
	assert.Contains(t, content, string(models.DecisionDeleted))
	assert.Contains(t, content, "keeper")
	assert.Contains(t, content, string(models.DecisionKept))
}

func TestExportPDFReportCompletes(t *testing.T) {
	svc, decisions, stop := newExportFixture(t)
	defer stop()

	store := decisions.GetOrCreate(context.Background(), "user-1")
	store.RecordDeleted(photo("blurry", 1700000000000))

	job, err := svc.CreateJob(context.Background(), "user-1", models.ExportFormatPDF)
	require.NoError(t, err)

	done := waitForJob(t, svc, "user-1", job.ID)
	require.Equal(t, models.ExportStatusCompleted, done.Status)

	file, _, err := svc.OpenDownload(done.DownloadToken)
	require.NoError(t, err)
	defer file.Close()

	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc, _, stop := newExportFixture(t)
	defer stop()

	_, err := svc.CreateJob(context.Background(), "user-1", models.ExportFormat("xlsx"))
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportJobOwnership(t *testing.T) {
	svc, _, stop := newExportFixture(t)
	defer stop()

	job, err := svc.CreateJob(context.Background(), "user-1", models.ExportFormatCSV)
	require.NoError(t, err)

	_, err = svc.GetJob("intruder", job.ID)
	assertCode(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.GetJob("user-1", "missing")
	assertCode(t, err, appErrors.ErrNotFound.Code)
}

func TestExportDownloadRejectsBadToken(t *testing.T) {
	svc, _, stop := newExportFixture(t)
	defer stop()

	_, _, err := svc.OpenDownload("not.a.valid.token")
	assertCode(t, err, appErrors.ErrUnauthorized.Code)
}
