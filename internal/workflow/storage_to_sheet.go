package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/extraction"
	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/report"
	"grn-sheet-sync-go/internal/retry"
	"grn-sheet-sync-go/internal/rowsync"
	"grn-sheet-sync-go/internal/schema"
	"grn-sheet-sync-go/internal/sheets"
	"grn-sheet-sync-go/internal/storage"
)

// AgentResolver returns the extractor used for one run.
type AgentResolver func(ctx context.Context) (extraction.Extractor, error)

// StorageToSheet extracts archived PDFs into rows of the destination sheet.
type StorageToSheet struct {
	cfg        config.SheetConfig
	store      storage.Service
	resolve    AgentResolver
	table      *sheets.Table
	engine     *rowsync.Engine
	reports    *report.Writer
	normalizer *extraction.Normalizer
	executor   *retry.Executor
	validate   bool
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewStorageToSheet creates a new storage-to-sheet workflow
func NewStorageToSheet(cfg config.SheetConfig, ext config.ExtractionConfig, store storage.Service, resolve AgentResolver,
	table *sheets.Table, reports *report.Writer, m *metrics.Metrics) *StorageToSheet {
	policy := retry.Policy{MaxAttempts: ext.MaxAttempts, Delay: ext.RetryDelay}
	breaker := retry.BreakerConfig{
		Enabled:      ext.BreakerEnabled,
		MinRequests:  uint32(max(ext.BreakerMinRequests, 0)),
		FailureRatio: ext.BreakerRatio,
		OpenTimeout:  ext.BreakerTimeout,
	}

	return &StorageToSheet{
		cfg:        cfg,
		store:      store,
		resolve:    resolve,
		table:      table,
		engine:     rowsync.NewEngine(table),
		reports:    reports,
		normalizer: extraction.NewNormalizer(extraction.MergeAliases(extraction.DefaultAliases(), ext.Aliases)),
		executor:   retry.NewExecutor(policy, breaker),
		validate:   ext.ValidatePDF,
		metrics:    m,
		now:        time.Now,
	}
}

// ExistingIDs reads the correlation ids already present in the sheet. A read
// failure is logged and yields an empty set.
func (w *StorageToSheet) ExistingIDs(ctx context.Context) map[string]struct{} {
	snapshot, err := w.table.Read(ctx)
	if err != nil {
		logrus.Errorf("Failed to get existing file ids: %v", err)
		return map[string]struct{}{}
	}
	return rowsync.ExistingIDs(snapshot, rowsync.CorrelationColumn)
}

// run carries the per-run state of one execution.
type run struct {
	agent      extraction.Extractor
	reconciler *schema.Reconciler
	stats      models.SheetStats
	failures   []models.FailedExtraction
}

// Run processes the PDFs of folderID created within the configured window
// that are not in the sheet yet.
func (w *StorageToSheet) Run(ctx context.Context, folderID string) models.SheetStats {
	logrus.Info("Starting storage to sheet workflow")

	agent, err := w.resolve(ctx)
	if err != nil {
		logrus.Errorf("Could not resolve extraction agent: %v", err)
		return models.SheetStats{}
	}

	r := &run{agent: agent}

	existing := w.ExistingIDs(ctx)
	logrus.Infof("Found %d files already in sheet", len(existing))

	since := storage.WindowStart(w.now(), w.cfg.DaysBack)
	files, err := w.store.ListObjects(ctx, folderID, storage.MimeTypePDF, since)
	if err != nil {
		logrus.Errorf("Failed to list PDFs: %v", err)
		return r.stats
	}
	r.stats.TotalFiles = len(files)

	pending := make([]models.StoredObject, 0, len(files))
	for _, f := range files {
		if _, ok := existing[f.ID]; ok {
			continue
		}
		pending = append(pending, f)
	}
	r.stats.Skipped = len(files) - len(pending)
	logrus.Infof("After filtering, %d PDFs to process", len(pending))

	if w.cfg.MaxFiles > 0 && len(pending) > w.cfg.MaxFiles {
		pending = pending[:w.cfg.MaxFiles]
		logrus.Infof("Limited to %d PDFs after max_files limit", len(pending))
	}
	if len(pending) == 0 {
		logrus.Warn("No PDF files found to process")
		return r.stats
	}

	header, err := w.table.Header(ctx)
	if err != nil {
		logrus.Errorf("Failed to read sheet header: %v", err)
		return r.stats
	}
	r.reconciler = schema.NewReconciler(header)

	for _, f := range pending {
		if ctx.Err() != nil {
			logrus.Warnf("Sheet workflow interrupted: %v", ctx.Err())
			break
		}
		w.processFile(ctx, r, f)
	}

	if len(r.failures) > 0 {
		if err := w.reports.SaveFailed(ctx, r.failures); err != nil {
			logrus.Errorf("Failed to save failed extractions: %v", err)
		}
		r.stats.Incomplete = len(r.failures)
	}

	logrus.WithFields(logrus.Fields{
		"processed":  r.stats.Processed,
		"total":      r.stats.TotalFiles,
		"skipped":    r.stats.Skipped,
		"failed":     r.stats.Failed,
		"rows_added": r.stats.RowsAdded,
		"incomplete": r.stats.Incomplete,
	}).Info("Storage to sheet workflow complete")
	return r.stats
}

func (w *StorageToSheet) fail(r *run, f models.StoredObject, status string, attempts int, strategy string, completeness float64, issues ...string) {
	r.stats.Failed++
	w.metrics.ExtractionOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
	r.failures = append(r.failures, models.FailedExtraction{
		Timestamp:         w.now(),
		FileName:          f.Name,
		FileID:            f.ID,
		Status:            status,
		CompletenessScore: completeness,
		Issues:            issues,
		Attempts:          attempts,
		StrategyUsed:      strategy,
	})
}

func (w *StorageToSheet) processFile(ctx context.Context, r *run, f models.StoredObject) {
	log := logrus.WithFields(logrus.Fields{"file": f.Name, "file_id": f.ID})
	log.Info("Processing file")

	data, err := w.store.Download(ctx, f.ID)
	if err != nil {
		log.Errorf("Failed to download: %v", err)
		r.stats.DownloadFailed++
		w.fail(r, f, models.StatusDownloadFailed, 0, models.StrategyNone, 0, "Failed to download from storage")
		return
	}
	if w.validate {
		pages, err := extraction.ValidatePDF(data)
		if err != nil {
			log.Errorf("Invalid PDF: %v", err)
			r.stats.DownloadFailed++
			w.fail(r, f, models.StatusDownloadFailed, 0, models.StrategyNone, 0, err.Error())
			return
		}
		log.Debugf("PDF has %d pages", pages)
	}

	path, err := writeTemp(data)
	if err != nil {
		log.Errorf("Failed to stage PDF: %v", err)
		w.fail(r, f, models.StatusProcessingError, 0, models.StrategyNone, 0, err.Error())
		return
	}
	defer os.Remove(path)

	var result *models.ExtractionResult
	attempts, err := w.executor.Execute(ctx, "extract", func(ctx context.Context, _ int) error {
		w.metrics.ExtractionAttempts.Inc()
		res, err := r.agent.Extract(ctx, path)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		issue := "All extraction attempts failed"
		if retry.IsCircuitOpen(err) {
			issue = fmt.Sprintf("Extraction skipped: %v", err)
		}
		log.Errorf("Extraction failed: %v", err)
		r.stats.ExtractionFailed++
		w.fail(r, f, models.StatusExtractionFailed, attempts, models.StrategyStandardRetry, 0, issue)
		return
	}

	norm := w.normalizer.Normalize(result.Data, f)
	if len(norm.Rows) == 0 {
		log.Warn("No items found")
		r.stats.NoRows++
		w.fail(r, f, models.StatusNoRows, attempts, models.StrategyStandardRetry, norm.Completeness, "No rows after processing")
		return
	}
	if len(norm.Missing) > 0 {
		log.WithField("missing", norm.Missing).Warn("Document fields missing")
	}

	previous := r.reconciler.Header()
	header, changed := r.reconciler.Fix(norm.Rows)
	if changed {
		if err := w.table.WriteHeader(ctx, header); err != nil {
			log.Errorf("Failed to update headers: %v", err)
			r.reconciler = schema.NewReconciler(previous)
			w.fail(r, f, models.StatusWriteFailed, attempts, models.StrategyStandardRetry, norm.Completeness, err.Error())
			return
		}
		logrus.Infof("Updated sheet header to %d columns", len(header))
	}

	values, dropped := schema.Flatten(norm.Rows, header)
	if len(dropped) > 0 {
		log.WithField("columns", dropped).Warn("Dropping fields not present in the sheet header")
	}

	res, err := w.engine.Replace(ctx, f.ID, values)
	if err != nil {
		log.Errorf("Failed to write rows: %v", err)
		w.fail(r, f, models.StatusWriteFailed, attempts, models.StrategyStandardRetry, norm.Completeness, err.Error())
		return
	}

	r.stats.Processed++
	r.stats.RowsAdded += res.Appended
	w.metrics.RowsWritten.Add(float64(res.Appended))
	outcome := metrics.OutcomeSuccess
	if len(norm.Missing) > 0 {
		outcome = metrics.OutcomeIncomplete
	}
	w.metrics.ExtractionOutcomes.WithLabelValues(outcome).Inc()
	log.WithField("attempts", attempts).Infof("Processed file: %d rows added", res.Appended)
}

func writeTemp(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "grn-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}
