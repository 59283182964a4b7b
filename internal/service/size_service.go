package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openedu/filezone-api/internal/models"
	appErrors "github.com/openedu/filezone-api/pkg/errors"
	"github.com/openedu/filezone-api/pkg/export"
	"github.com/openedu/filezone-api/pkg/jobs"
	"github.com/openedu/filezone-api/pkg/storage"
)

const rollUpCachePrefix = "filezone:rollup:"

type sizeEntryStore interface {
	ListZone(ctx context.Context, zone models.Zone) ([]models.FileEntry, error)
}

type sizeSnapshotStore interface {
	Replace(ctx context.Context, agg *models.ZoneSizeAggregate) error
	Get(ctx context.Context, zone models.Zone) (*models.ZoneSizeAggregate, error)
	RollUp(ctx context.Context, scope models.HierarchyScope, kinds []models.ZoneKind) (*models.SizeRollUp, error)
}

type rollUpCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SizeConfig tunes caching and the recompute worker pool.
type SizeConfig struct {
	CacheTTL          time.Duration
	WorkerConcurrency int
	QueueSize         int
}

// SizeService maintains the per-zone size snapshots and answers roll-up
// queries over them. Snapshots are recomputed from scratch by a background
// queue fed by structural writes; roll-ups always read the snapshot table,
// never the live index, and go through a short-lived Redis cache.
type SizeService struct {
	entries  sizeEntryStore
	sizes    sizeSnapshotStore
	cache    rollUpCache
	exports  *export.CSVExporter
	pdf      *export.PDFExporter
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	cacheTTL time.Duration
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSizeService constructs the service and its recompute queue. Call
// Start before scheduling recomputes and Stop on shutdown.
func NewSizeService(entries sizeEntryStore, sizes sizeSnapshotStore, cache rollUpCache, files *storage.LocalStorage, signer *storage.SignedURLSigner, cfg SizeConfig, logger *zap.Logger) *SizeService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SizeService{
		entries:  entries,
		sizes:    sizes,
		cache:    cache,
		exports:  export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		files:    files,
		signer:   signer,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
	s.queue = jobs.NewQueue("zone-recompute", s.handleRecomputeJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		BufferSize: cfg.QueueSize,
		Logger:     logger,
	})
	return s
}

// WithMetrics attaches the instrumentation sink.
func (s *SizeService) WithMetrics(m *MetricsService) *SizeService {
	s.metrics = m
	return s
}

// Start launches the recompute workers.
func (s *SizeService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the recompute workers.
func (s *SizeService) Stop() {
	s.queue.Stop()
}

// ScheduleRecompute enqueues a snapshot rebuild for the zone. Failures to
// enqueue are logged, not surfaced: the write that triggered the recompute
// already succeeded and a later write will schedule again.
func (s *SizeService) ScheduleRecompute(zone models.Zone) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "recompute_zone",
		Payload: zone,
	})
	if err != nil {
		s.logger.Warn("recompute enqueue failed",
			zap.String("zone", zone.Kind.String()),
			zap.Int64("owner", zone.OwnerCode),
			zap.Error(err))
	}
}

func (s *SizeService) handleRecomputeJob(ctx context.Context, job jobs.Job) error {
	zone, ok := job.Payload.(models.Zone)
	if !ok {
		return fmt.Errorf("recompute job %s carries %T, want models.Zone", job.ID, job.Payload)
	}
	return s.RecomputeZone(ctx, zone)
}

// RecomputeZone rebuilds the zone's snapshot by walking its live entries
// and fully replacing the stored aggregate.
func (s *SizeService) RecomputeZone(ctx context.Context, zone models.Zone) error {
	if err := validateZone(zone); err != nil {
		return err
	}
	started := time.Now()
	entries, err := s.entries.ListZone(ctx, zone)
	if err != nil {
		return storageErr("list zone for recompute", err)
	}

	agg := &models.ZoneSizeAggregate{
		ZoneKind:       zone.Kind,
		OwnerCode:      zone.OwnerCode,
		SecondaryOwner: zone.SecondaryOwner,
		ComputedAt:     time.Now().UTC(),
	}
	for _, entry := range entries {
		if depth := pathDepth(entry.Path); depth > agg.Depth {
			agg.Depth = depth
		}
		switch entry.Kind {
		case models.EntryFolder:
			agg.Folders++
		default:
			agg.Files++
			agg.TotalBytes += entry.SizeBytes
		}
	}

	if err := s.sizes.Replace(ctx, agg); err != nil {
		return storageErr("replace size snapshot", err)
	}
	if err := s.cache.DeleteByPattern(ctx, rollUpCachePrefix+"*"); err != nil {
		s.logger.Warn("rollup cache invalidation failed", zap.Error(err))
	}
	s.metrics.ObserveRecompute(time.Since(started))
	s.logger.Debug("zone snapshot recomputed",
		zap.String("zone", zone.Kind.String()),
		zap.Int64("owner", zone.OwnerCode),
		zap.Int64("files", agg.Files),
		zap.Int64("bytes", agg.TotalBytes))
	return nil
}

// pathDepth counts the segments of a slash-separated path.
func pathDepth(path string) int {
	path = strings.Trim(path, "/")
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// GetSnapshot returns the stored aggregate of one zone, nil when the zone
// was never computed.
func (s *SizeService) GetSnapshot(ctx context.Context, zone models.Zone) (*models.ZoneSizeAggregate, error) {
	if err := validateZone(zone); err != nil {
		return nil, err
	}
	agg, err := s.sizes.Get(ctx, zone)
	if err != nil {
		return nil, storageErr("get size snapshot", err)
	}
	return agg, nil
}

// RollUp sums the snapshots of every zone of the group under the scope.
// Results come from the cache when fresh enough.
func (s *SizeService) RollUp(ctx context.Context, scope models.HierarchyScope, group models.ZoneKindGroup) (*models.SizeRollUp, error) {
	kinds := models.KindsInGroup(group)
	if len(kinds) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown zone group %q", group))
	}
	if !scope.Level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown scope level %q", scope.Level))
	}

	key := fmt.Sprintf("%s%s:%d:%s", rollUpCachePrefix, scope.Level, scope.Code, group)
	var cached models.SizeRollUp
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("rollup cache read failed", zap.String("key", key), zap.Error(err))
	}
	s.metrics.RecordCacheLookup(false)

	rollUp, err := s.sizes.RollUp(ctx, scope, kinds)
	if err != nil {
		return nil, storageErr("roll up sizes", err)
	}
	if err := s.cache.Set(ctx, key, rollUp, s.cacheTTL); err != nil {
		s.logger.Warn("rollup cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rollUp, nil
}

// reportGroups are the rows of the usage report, in presentation order.
var reportGroups = []models.ZoneKindGroup{
	models.GroupCourseZones,
	models.GroupGroupZones,
	models.GroupPersonalZones,
	models.GroupBriefcases,
}

// UsageReport is one generated report file with its signed download token.
type UsageReport struct {
	ReportID  string    `json:"reportId"`
	FileName  string    `json:"fileName"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportUsageReport renders the per-group roll-ups under the scope into a
// CSV or PDF file and returns a signed download token for it.
func (s *SizeService) ExportUsageReport(ctx context.Context, scope models.HierarchyScope, format string) (*UsageReport, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	data := export.Dataset{
		Headers: []string{"Zone group", "Courses", "Groups", "Users", "Max depth", "Folders", "Files", "Total bytes"},
	}
	for _, group := range reportGroups {
		rollUp, err := s.RollUp(ctx, scope, group)
		if err != nil {
			return nil, err
		}
		data.Rows = append(data.Rows, map[string]string{
			"Zone group":  string(group),
			"Courses":     reportCount(rollUp.Courses),
			"Groups":      reportCount(rollUp.Groups),
			"Users":       reportCount(rollUp.Users),
			"Max depth":   strconv.Itoa(rollUp.MaxDepth),
			"Folders":     strconv.FormatInt(rollUp.Folders, 10),
			"Files":       strconv.FormatInt(rollUp.Files, 10),
			"Total bytes": strconv.FormatInt(rollUp.TotalBytes, 10),
		})
	}

	var payload []byte
	var err error
	title := fmt.Sprintf("Storage usage (%s %d)", scope.Level, scope.Code)
	switch format {
	case "csv":
		payload, err = s.exports.Render(data)
	case "pdf":
		payload, err = s.pdf.Render(data, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render usage report")
	}

	reportID := uuid.NewString()
	fileName := fmt.Sprintf("usage/%s.%s", reportID, format)
	if _, err := s.files.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store usage report")
	}
	token, expiresAt, err := s.signer.Generate(reportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign usage report")
	}

	s.logger.Info("usage report exported",
		zap.String("report_id", reportID),
		zap.String("format", format),
		zap.String("scope", string(scope.Level)),
		zap.Int64("code", scope.Code))
	return &UsageReport{ReportID: reportID, FileName: fileName, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenReport validates the token and opens the referenced report file.
func (s *SizeService) OpenReport(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired report token")
	}
	return s.files.Path(relPath), nil
}

// reportCount formats a dimension count, keeping the -1 "not applicable"
// marker readable.
func reportCount(n int64) string {
	if n < 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}
