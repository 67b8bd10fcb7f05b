package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Partition splits records into fixed-size batches, the last one ragged.
func Partition(records []extlicense.Record, size int) [][]extlicense.Record {
	if size <= 0 {
		size = 100
	}
	var out [][]extlicense.Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}

// AdaptiveConcurrency picks the batch worker count: small runs are capped
// at 2 to avoid pool overhead, large runs may grow to 8, everything in
// between uses the configured limit.
func AdaptiveConcurrency(batches, limit, smallRun, largeRun int) int {
	if limit <= 0 {
		limit = 5
	}
	switch {
	case batches <= smallRun:
		return min(limit, 2)
	case batches > largeRun:
		return min(limit, 8)
	default:
		return limit
	}
}

// keyedMutex serializes writers per license ID. Batches may process the
// same matched license concurrently; its row gets one writer at a time.
type keyedMutex struct {
	mu    stdsync.Mutex
	locks map[uint]*stdsync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[uint]*stdsync.Mutex{}}
}

func (k *keyedMutex) lock(id uint) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &stdsync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Outcome accumulates per-record results across all batches. Every input
// record lands in exactly one bucket.
type Outcome struct {
	mu        stdsync.Mutex
	Created   int
	Updated   int
	Unchanged int
	Failed    int
	Failures  []RecordFailure
}

func (o *Outcome) created()   { o.mu.Lock(); o.Created++; o.mu.Unlock() }
func (o *Outcome) updated()   { o.mu.Lock(); o.Updated++; o.mu.Unlock() }
func (o *Outcome) unchanged() { o.mu.Lock(); o.Unchanged++; o.mu.Unlock() }

func (o *Outcome) failed(appID string, err error) {
	o.mu.Lock()
	o.Failed++
	o.Failures = append(o.Failures, RecordFailure{AppID: appID, Reason: err.Error()})
	o.mu.Unlock()
}

// ProcessorConfig holds the batch scheduling knobs.
type ProcessorConfig struct {
	BatchSize        int
	ConcurrencyLimit int
	InnerConcurrency int
	SmallRunBatches  int
	LargeRunBatches  int
	DryRun           bool
}

// Processor reconciles external records against the internal store:
// match, diff, create or update. Record failures are accumulated, they
// never abort a batch.
type Processor struct {
	matcher  *Matcher
	licenses *license.Repository
	monitor  *Monitor
	cfg      ProcessorConfig
	logger   *zap.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(matcher *Matcher, licenses *license.Repository, monitor *Monitor, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.InnerConcurrency <= 0 {
		cfg.InnerConcurrency = 4
	}
	if cfg.SmallRunBatches <= 0 {
		cfg.SmallRunBatches = 3
	}
	if cfg.LargeRunBatches <= 0 {
		cfg.LargeRunBatches = 50
	}
	return &Processor{matcher: matcher, licenses: licenses, monitor: monitor, cfg: cfg, logger: logger}
}

// Process runs the worker pool over all batches and returns the combined
// outcome. Batches complete in any order.
func (p *Processor) Process(ctx context.Context, records []extlicense.Record) *Outcome {
	outcome := &Outcome{}
	batches := Partition(records, p.cfg.BatchSize)
	if len(batches) == 0 {
		return outcome
	}

	workers := AdaptiveConcurrency(len(batches), p.cfg.ConcurrencyLimit, p.cfg.SmallRunBatches, p.cfg.LargeRunBatches)
	p.logger.Info("Reconciling batches",
		zap.Int("records", len(records)),
		zap.Int("batches", len(batches)),
		zap.Int("workers", workers),
	)

	km := newKeyedMutex()
	feed := make(chan []extlicense.Record)

	var wg stdsync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range feed {
				p.processBatch(ctx, batch, km, outcome)
			}
		}()
	}
	for _, b := range batches {
		feed <- b
	}
	close(feed)
	wg.Wait()

	return outcome
}

func (p *Processor) processBatch(ctx context.Context, batch []extlicense.Record, km *keyedMutex, outcome *Outcome) {
	g := errgroup.Group{}
	g.SetLimit(p.cfg.InnerConcurrency)

	for _, rec := range batch {
		rec := rec
		g.Go(func() error {
			if err := p.processRecord(ctx, rec, km, outcome); err != nil {
				outcome.failed(rec.AppID, err)
			}
			p.monitor.Step(1)
			return nil
		})
	}
	g.Wait()
}

func (p *Processor) processRecord(ctx context.Context, rec extlicense.Record, km *keyedMutex, outcome *Outcome) error {
	lic, reason, err := p.matcher.Match(ctx, rec)
	if err != nil {
		return fmt.Errorf("matching: %w", err)
	}

	if lic == nil {
		if p.cfg.DryRun {
			outcome.created()
			return nil
		}
		if err := p.licenses.Create(ctx, newLicense(rec)); err != nil {
			return fmt.Errorf("creating license: %w", err)
		}
		outcome.created()
		return nil
	}

	diff := ComputeDiff(rec, *lic)
	updates := diff.Updates()

	// A match found by email or countId is not linked yet; linking is a
	// real change even when the diff itself is empty.
	if !lic.Linked() && rec.AppID != "" {
		updates["external_app_id"] = rec.AppID
		updates["external_email"] = rec.Email
		updates["external_sync_status"] = models.SyncStatusLinked
		if rec.CountID != nil {
			updates["external_count_id"] = *rec.CountID
		}
	}

	if len(updates) == 0 {
		outcome.unchanged()
		return nil
	}
	if p.cfg.DryRun {
		outcome.updated()
		return nil
	}

	now := time.Now().UTC()
	updates["last_external_sync_at"] = now

	unlock := km.lock(lic.ID)
	err = p.licenses.UpdateFields(ctx, lic.ID, updates)
	unlock()
	if err != nil {
		return fmt.Errorf("updating license %d (matched by %s): %w", lic.ID, reason, err)
	}
	outcome.updated()
	return nil
}

// newLicense builds the internal record for an external record with no
// match. The key is deterministic so re-running a failed sync cannot mint
// a second identity for the same external record.
func newLicense(rec extlicense.Record) *models.License {
	status := models.StatusPending
	if rec.Active() {
		status = models.StatusActive
	}

	appID := rec.AppID
	now := time.Now().UTC()
	lic := &models.License{
		Key:                "EXT-" + appID,
		Status:             status,
		DBA:                rec.DBA,
		Zip:                rec.Zip,
		ExternalAppID:      &appID,
		ExternalEmail:      rec.Email,
		ExternalCountID:    rec.CountID,
		ExternalSyncStatus: models.SyncStatusCreated,
		LastExternalSyncAt: &now,
		CreatedBy:          "sync",
	}
	if rec.ActivateDate != nil {
		lic.StartsAt = rec.ActivateDate
	}
	if rec.ComingExpiredDate != nil {
		lic.ExpiresAt = rec.ComingExpiredDate
	}
	if rec.MonthlyFee != nil {
		lic.LastPayment = rec.MonthlyFee
	}
	if rec.SMSBalance != nil {
		lic.SMSBalance = *rec.SMSBalance
	}
	if rec.Note != nil {
		lic.Notes = *rec.Note
	}
	if len(rec.Package) > 0 {
		lic.PackageData = rec.Package
	}
	if rec.Workspace != nil {
		lic.Workspace = *rec.Workspace
	}
	return lic
}
