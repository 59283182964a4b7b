package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/storage"
)

type stubSizeEntryStore struct {
	entries []models.FileEntry
}

func (s *stubSizeEntryStore) ListZone(_ context.Context, _ models.Zone) ([]models.FileEntry, error) {
	return s.entries, nil
}

type stubSnapshotStore struct {
	replaced *models.ZoneSizeAggregate
	rollUp   *models.SizeRollUp
	rollUps  int
}

func (s *stubSnapshotStore) Replace(_ context.Context, agg *models.ZoneSizeAggregate) error {
	s.replaced = agg
	return nil
}

func (s *stubSnapshotStore) Get(_ context.Context, _ models.Zone) (*models.ZoneSizeAggregate, error) {
	return s.replaced, nil
}

func (s *stubSnapshotStore) RollUp(_ context.Context, _ models.HierarchyScope, _ []models.ZoneKind) (*models.SizeRollUp, error) {
	s.rollUps++
	return s.rollUp, nil
}

type stubRollUpCache struct {
	cached  *models.SizeRollUp
	sets    int
	purged  []string
	lastKey string
}

func (c *stubRollUpCache) Get(_ context.Context, key string, dest interface{}) error {
	c.lastKey = key
	if c.cached == nil {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.SizeRollUp) = *c.cached
	return nil
}

func (c *stubRollUpCache) Set(_ context.Context, _ string, value interface{}, _ time.Duration) error {
	c.sets++
	if roll, ok := value.(*models.SizeRollUp); ok {
		c.cached = roll
	}
	return nil
}

func (c *stubRollUpCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.purged = append(c.purged, pattern)
	c.cached = nil
	return nil
}

func newSizeFixture(t *testing.T) (*SizeService, *stubSizeEntryStore, *stubSnapshotStore, *stubRollUpCache) {
	t.Helper()
	entries := &stubSizeEntryStore{}
	sizes := &stubSnapshotStore{}
	cache := &stubRollUpCache{}
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewSizeService(entries, sizes, cache, files, signer, SizeConfig{}, nil)
	return svc, entries, sizes, cache
}

func TestPathDepth(t *testing.T) {
	require.Zero(t, pathDepth(""))
	require.Equal(t, 1, pathDepth("readme.txt"))
	require.Equal(t, 3, pathDepth("a/b/c"))
	require.Equal(t, 2, pathDepth("/a/b/"))
}

func TestSizeRecomputeZoneAggregatesEntries(t *testing.T) {
	svc, entries, sizes, cache := newSizeFixture(t)
	entries.entries = []models.FileEntry{
		{Path: "docs", Kind: models.EntryFolder},
		{Path: "docs/unit1", Kind: models.EntryFolder},
		{Path: "docs/unit1/a.pdf", Kind: models.EntryFile, SizeBytes: 1000},
		{Path: "docs/unit1/b.pdf", Kind: models.EntryFile, SizeBytes: 500},
		{Path: "readme.txt", Kind: models.EntryFile, SizeBytes: 10},
	}

	err := svc.RecomputeZone(context.Background(), testZone())
	require.NoError(t, err)
	require.Equal(t, int64(2), sizes.replaced.Folders)
	require.Equal(t, int64(3), sizes.replaced.Files)
	require.Equal(t, int64(1510), sizes.replaced.TotalBytes)
	require.Equal(t, 3, sizes.replaced.Depth)
	require.Equal(t, []string{rollUpCachePrefix + "*"}, cache.purged)
}

func TestSizeRecomputeEmptyZoneWritesZeroSnapshot(t *testing.T) {
	svc, _, sizes, _ := newSizeFixture(t)

	err := svc.RecomputeZone(context.Background(), testZone())
	require.NoError(t, err)
	require.NotNil(t, sizes.replaced)
	require.Zero(t, sizes.replaced.Files)
	require.Zero(t, sizes.replaced.Depth)
}

func TestSizeRollUpCachesResult(t *testing.T) {
	svc, _, sizes, cache := newSizeFixture(t)
	sizes.rollUp = &models.SizeRollUp{Courses: 3, Groups: -1, Users: -1, Files: 40}
	scope := models.HierarchyScope{Level: models.LevelDegree, Code: 12}

	first, err := svc.RollUp(context.Background(), scope, models.GroupCourseZones)
	require.NoError(t, err)
	require.Equal(t, int64(3), first.Courses)
	require.Equal(t, 1, sizes.rollUps)
	require.Equal(t, 1, cache.sets)
	require.Equal(t, "filezone:rollup:degree:12:course", cache.lastKey)

	// Second call is served from the cache.
	second, err := svc.RollUp(context.Background(), scope, models.GroupCourseZones)
	require.NoError(t, err)
	require.Equal(t, first.Files, second.Files)
	require.Equal(t, 1, sizes.rollUps)
}

func TestSizeRollUpRejectsUnknownGroup(t *testing.T) {
	svc, _, _, _ := newSizeFixture(t)

	_, err := svc.RollUp(context.Background(), models.HierarchyScope{Level: models.LevelSystem}, "attic")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportCount(t *testing.T) {
	require.Equal(t, "-", reportCount(-1))
	require.Equal(t, "0", reportCount(0))
	require.Equal(t, "37", reportCount(37))
}

func TestSizeExportUsageReportSignsDownload(t *testing.T) {
	svc, _, sizes, _ := newSizeFixture(t)
	sizes.rollUp = &models.SizeRollUp{Courses: 2, Groups: -1, Users: -1, Files: 12, TotalBytes: 2048}
	scope := models.HierarchyScope{Level: models.LevelInstitution, Code: 1}

	report, err := svc.ExportUsageReport(context.Background(), scope, "csv")
	require.NoError(t, err)
	require.NotEmpty(t, report.Token)
	require.True(t, report.ExpiresAt.After(time.Now()))

	path, err := svc.OpenReport(report.Token)
	require.NoError(t, err)
	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(payload), "Zone group")

	_, err = svc.OpenReport("not-a-token")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSizeExportUsageReportRejectsFormat(t *testing.T) {
	svc, _, _, _ := newSizeFixture(t)

	_, err := svc.ExportUsageReport(context.Background(), models.HierarchyScope{Level: models.LevelSystem}, "xlsx")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
