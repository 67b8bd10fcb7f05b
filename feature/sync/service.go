package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"license-reconciler/core/breaker"
	"license-reconciler/core/config"
	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/dedupe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSyncInProgress rejects a trigger while another run holds the
// single-flight slot. Requests are rejected, never queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// Phase is the coordinator's current stage.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseDeduplicating
	PhaseReconciling
	PhaseReporting
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseDeduplicating:
		return "deduplicating"
	case PhaseReconciling:
		return "reconciling"
	case PhaseReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// Options select per-run behavior on top of the configured defaults.
type Options struct {
	// Comprehensive forces the full duplicate analysis passes.
	Comprehensive bool
	// DetectDuplicates enables duplicate detection for this run.
	DetectDuplicates bool
	// DryRun computes every decision without persisting anything.
	DryRun bool
}

// StatusReport is the poll endpoint's payload.
type StatusReport struct {
	SyncInProgress      bool     `json:"syncInProgress"`
	Phase               string   `json:"phase"`
	SyncProgress        Progress `json:"syncProgress"`
	LastSyncResult      *Result  `json:"lastSyncResult,omitempty"`
	CircuitBreakerState string   `json:"circuitBreakerState"`
}

// Service coordinates a sync run: fetch, snapshot, duplicate analysis,
// reconcile, report. Exactly one run at a time; the in-flight flag is the
// only cross-request shared state and is held by compare-and-swap.
type Service struct {
	cfg        config.Sync
	client     extlicense.APIClient
	snapshots  *extlicense.Repository
	licenses   *license.Repository
	licenseSvc *license.Service
	detector   *dedupe.Detector
	archiver   *extlicense.Archiver
	breaker    *breaker.Breaker
	ops        *Repository
	monitor    *Monitor
	logger     *zap.Logger

	inFlight atomic.Bool
	phase    atomic.Int32
}

// NewService wires the coordinator. archiver may be nil when snapshot
// archiving is disabled.
func NewService(
	cfg config.Sync,
	client extlicense.APIClient,
	snapshots *extlicense.Repository,
	licenses *license.Repository,
	licenseSvc *license.Service,
	detector *dedupe.Detector,
	archiver *extlicense.Archiver,
	br *breaker.Breaker,
	ops *Repository,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		client:     client,
		snapshots:  snapshots,
		licenses:   licenses,
		licenseSvc: licenseSvc,
		detector:   detector,
		archiver:   archiver,
		breaker:    br,
		ops:        ops,
		monitor:    NewMonitor(),
		logger:     logger,
	}
}

// Monitor exposes the progress monitor.
func (s *Service) Monitor() *Monitor {
	return s.monitor
}

// InProgress reports whether a run currently holds the single-flight slot.
func (s *Service) InProgress() bool {
	return s.inFlight.Load()
}

// Phase returns the coordinator's current stage.
func (s *Service) Phase() Phase {
	return Phase(s.phase.Load())
}

// Status assembles the poll endpoint payload.
func (s *Service) Status() StatusReport {
	return StatusReport{
		SyncInProgress:      s.InProgress(),
		Phase:               s.Phase().String(),
		SyncProgress:        s.monitor.Snapshot(),
		LastSyncResult:      s.monitor.LastResult(),
		CircuitBreakerState: s.breaker.State().String(),
	}
}

// History lists past operations, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Operation, error) {
	return s.ops.History(ctx, limit)
}

// Run executes one sync. The only error it returns is ErrSyncInProgress;
// everything else is reported inside the Result so the trigger endpoint
// always has a payload.
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Store(false)
	defer s.phase.Store(int32(PhaseIdle))

	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dryRun := opts.DryRun || s.cfg.DryRun
	opType := TypeStandard
	if opts.Comprehensive || s.cfg.Comprehensive {
		opType = TypeComprehensive
	}
	if dryRun {
		opType = TypeDryRun
	}
	if s.cfg.Bidirectional {
		s.logger.Warn("Bidirectional sync is configured but not supported; running external to internal only")
	}

	op := &Operation{ID: uuid.NewString(), Type: opType}
	result := &Result{OperationID: op.ID, DryRun: dryRun}
	if err := s.ops.Start(runCtx, op); err != nil {
		result.Error = "starting operation: " + err.Error()
		result.Timestamp = time.Now().UTC()
		return result, nil
	}

	defer func() {
		s.phase.Store(int32(PhaseReporting))
		result.Timestamp = time.Now().UTC()
		op.Status = OperationSuccess
		if !result.Success {
			op.Status = OperationFailed
		}
		op.Fetched = result.Fetched
		op.Created = result.Created
		op.Updated = result.Updated
		op.Unchanged = result.Unchanged
		op.Failed = result.Failed
		op.DuplicatesHandled = result.DuplicatesHandled
		op.Error = result.Error

		// The run context may already be expired; finalization must not be.
		finalizeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.ops.Finalize(finalizeCtx, op); err != nil {
			s.logger.Error("Failed to finalize sync operation", zap.String("operation_id", op.ID), zap.Error(err))
		}
		s.monitor.Done(result)

		s.logger.Info("Sync finished",
			zap.String("operation_id", op.ID),
			zap.String("status", op.Status),
			zap.Int("fetched", result.Fetched),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("unchanged", result.Unchanged),
			zap.Int("failed", result.Failed),
			zap.Int("duplicates_handled", result.DuplicatesHandled),
		)
	}()

	if err := s.run(runCtx, opts, dryRun, result); err != nil {
		result.Success = false
		result.Error = err.Error()
		s.logger.Error("Sync aborted", zap.String("operation_id", op.ID), zap.Error(err))
		return result, nil
	}
	result.Success = true
	return result, nil
}

func (s *Service) run(ctx context.Context, opts Options, dryRun bool, result *Result) error {
	s.phase.Store(int32(PhaseFetching))

	if err := s.client.TestConnectivity(ctx); err != nil {
		return err
	}

	records, skipped, err := extlicense.FetchAll(ctx, s.client, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	result.Fetched = len(records)
	for _, sk := range skipped {
		result.Failed++
		result.Failures = append(result.Failures, RecordFailure{AppID: sk.AppID, Reason: sk.Reason})
	}
	s.monitor.Begin(len(records))

	if !dryRun {
		if err := s.snapshots.BulkUpsert(ctx, records); err != nil {
			return err
		}
	}
	if s.archiver != nil && s.cfg.SnapshotArchive && !dryRun {
		// Best effort; the archiver logs its own failures.
		_ = s.archiver.ArchiveSnapshot(ctx, result.OperationID, records)
	}

	if opts.DetectDuplicates || opts.Comprehensive || s.cfg.Comprehensive {
		s.phase.Store(int32(PhaseDeduplicating))
		if err := s.analyzeDuplicates(ctx, records, dryRun, result); err != nil {
			return err
		}
	}

	s.phase.Store(int32(PhaseReconciling))
	processor := NewProcessor(NewMatcher(s.licenses), s.licenses, s.monitor, ProcessorConfig{
		BatchSize:        s.cfg.BatchSize,
		ConcurrencyLimit: s.cfg.ConcurrencyLimit,
		InnerConcurrency: s.cfg.InnerConcurrency,
		SmallRunBatches:  s.cfg.SmallRunBatches,
		LargeRunBatches:  s.cfg.LargeRunBatches,
		DryRun:           dryRun,
	}, s.logger)

	outcome := processor.Process(ctx, records)
	result.Created += outcome.Created
	result.Updated += outcome.Updated
	result.Unchanged += outcome.Unchanged
	result.Failed += outcome.Failed
	result.Failures = append(result.Failures, outcome.Failures...)
	return ctx.Err()
}

// analyzeDuplicates runs the detector and routes candidates: automatic
// consolidation at or above the auto threshold, the review queue below it.
// Sub-review candidates never arrive here, the detector discards them.
func (s *Service) analyzeDuplicates(ctx context.Context, records []extlicense.Record, dryRun bool, result *Result) error {
	internal, err := s.licenses.ListAll(ctx)
	if err != nil {
		return err
	}

	report, err := s.detector.Detect(ctx, records, internal)
	if err != nil {
		return err
	}

	for _, cand := range report.All() {
		disposition := s.detector.Disposition(cand.Score)
		if dryRun {
			if disposition != dedupe.DispositionDiscard {
				result.DuplicatesHandled++
			}
			continue
		}

		switch disposition {
		case dedupe.DispositionAuto:
			if cand.Scope == dedupe.ScopeInternal {
				if _, err := s.licenseSvc.AutoConsolidate(ctx, cand); err != nil {
					s.logger.Warn("Auto-consolidation failed, queuing for review",
						zap.String("candidate", cand.String()), zap.Error(err))
					if err := s.licenseSvc.QueueCandidate(ctx, cand); err != nil {
						return err
					}
				}
			} else {
				// Cross-system and external groups need a human even at
				// high confidence; there is no master license to keep.
				if err := s.licenseSvc.QueueCandidate(ctx, cand); err != nil {
					return err
				}
			}
			result.DuplicatesHandled++
		case dedupe.DispositionReview:
			if err := s.licenseSvc.QueueCandidate(ctx, cand); err != nil {
				return err
			}
			result.DuplicatesHandled++
		}
	}
	return nil
}
