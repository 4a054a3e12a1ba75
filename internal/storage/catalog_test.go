package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/recon/internal/model"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func testManifest(runID string) *model.Manifest {
	return &model.Manifest{
		RunID: runID,
		Years: []int{2024, 2025},
		SelectedFiles: []model.ManifestFile{
			{
				Source:     model.SourceElectra,
				ReportType: model.ReportSalesSummary,
				ReportDate: "2025-06-30",
				InboxPath:  "electra/electra_sales_summary_2025-06-30.csv",
				Sha256:     "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				SizeBytes:  120,
				Year:       2025,
			},
			{
				Source:     model.SourceHotelRunner,
				ReportType: model.ReportDailySales,
				ReportDate: "2025-06-30",
				InboxPath:  "hotelrunner/hotelrunner_daily_sales_2025-06-30.csv",
				Sha256:     "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				SizeBytes:  240,
				Year:       2025,
			},
		},
	}
}

func TestCatalog_MigrateIsIdempotent(t *testing.T) {
	c := testCatalog(t)
	require.NoError(t, c.Migrate(context.Background()), "re-running migrations is a no-op")
}

func TestCatalog_RecordAndGetRun(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()

	manifest := testManifest("inbox_2025-06-30_0123456789ab")
	require.NoError(t, c.RecordRun(ctx, manifest, "/runs/inbox_2025-06-30_0123456789ab"))

	run, err := c.GetRun(ctx, manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, manifest.RunID, run.RunID)
	assert.Equal(t, "/runs/inbox_2025-06-30_0123456789ab", run.RunPath)
	assert.Equal(t, "2024,2025", run.Years)
	assert.Equal(t, 2, run.FileCount)
	assert.False(t, run.CreatedAt.IsZero())

	require.Len(t, run.Files, 2)
	assert.Equal(t, model.SourceElectra, run.Files[0].Source, "files ordered by source")
	assert.Equal(t, "electra/electra_sales_summary_2025-06-30.csv", run.Files[0].InboxPath)
	assert.Equal(t, int64(240), run.Files[1].SizeBytes)
}

func TestCatalog_RecordRunIsIdempotent(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()

	manifest := testManifest("inbox_2025-06-30_0123456789ab")
	require.NoError(t, c.RecordRun(ctx, manifest, "/runs/first"))
	require.NoError(t, c.RecordRun(ctx, manifest, "/runs/second"))

	run, err := c.GetRun(ctx, manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, "/runs/first", run.RunPath, "second record is a no-op")
	assert.Len(t, run.Files, 2, "files are not duplicated")
}

func TestCatalog_RecordRunRequiresManifest(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()

	require.Error(t, c.RecordRun(ctx, nil, "/runs/x"))
	require.Error(t, c.RecordRun(ctx, &model.Manifest{}, "/runs/x"))
}

func TestCatalog_ListRunsNewestFirst(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()

	// Same created_at second is possible; run_id descends as the tie-break.
	require.NoError(t, c.RecordRun(ctx, testManifest("inbox_2025-06-29_aaaaaaaaaaaa"), "/runs/a"))
	require.NoError(t, c.RecordRun(ctx, testManifest("inbox_2025-06-30_bbbbbbbbbbbb"), "/runs/b"))

	runs, err := c.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "inbox_2025-06-30_bbbbbbbbbbbb", runs[0].RunID)
	assert.Nil(t, runs[0].Files, "listing skips file detail")
}

func TestCatalog_GetRunNotFound(t *testing.T) {
	c := testCatalog(t)

	_, err := c.GetRun(context.Background(), "inbox_2025-01-01_missing00000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Contains(t, err.Error(), "inbox_2025-01-01_missing00000")
}

func TestNewCatalog_EmptyPath(t *testing.T) {
	_, err := NewCatalog("  ")
	require.Error(t, err)
}
