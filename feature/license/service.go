package license

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"license-reconciler/feature/license/dedupe"
	"license-reconciler/feature/license/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsolidateRequest asks the service to merge duplicate licenses into a
// surviving master record.
type ConsolidateRequest struct {
	MasterID     uint   `json:"masterLicenseId" validate:"required"`
	DuplicateIDs []uint `json:"duplicateLicenseIds" validate:"required,min=1,dive,required"`
	Strategy     string `json:"consolidationStrategy" validate:"required,oneof=merge_records link_external keep_master"`
	Notes        string `json:"notes"`
	AppliedBy    string `json:"appliedBy" validate:"omitempty,oneof=system user"`
}

// Service owns license reads and duplicate consolidation.
type Service struct {
	repo     *Repository
	detector *dedupe.Detector
	logger   *zap.Logger
}

// NewService creates the license service.
func NewService(repo *Repository, detector *dedupe.Detector, logger *zap.Logger) *Service {
	return &Service{repo: repo, detector: detector, logger: logger}
}

// ListLicenses returns licenses matching the filter.
func (s *Service) ListLicenses(ctx context.Context, f Filter) ([]models.License, error) {
	return s.repo.FindLicenses(ctx, f)
}

// GetLicense returns one license, or nil when it does not exist.
func (s *Service) GetLicense(ctx context.Context, id uint) (*models.License, error) {
	return s.repo.FindByID(ctx, id)
}

// CheckDuplicates scores an ad-hoc dba/email probe against every stored
// license and returns matches at or above minScore, best first.
func (s *Service) CheckDuplicates(ctx context.Context, dba, email string, minScore int) ([]dedupe.Candidate, error) {
	licenses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading licenses: %w", err)
	}
	return s.detector.CheckAgainst(dba, email, licenses, minScore), nil
}

// PendingReviews lists duplicate candidates awaiting a decision.
func (s *Service) PendingReviews(ctx context.Context) ([]models.ReviewItem, error) {
	return s.repo.PendingReviews(ctx)
}

// RejectReview closes a queued candidate without merging anything.
func (s *Service) RejectReview(ctx context.Context, reviewID uint) error {
	return s.repo.ResolveReview(ctx, reviewID, models.ReviewRejected)
}

// ApproveReview marks a queued candidate approved and consolidates its
// members per the request.
func (s *Service) ApproveReview(ctx context.Context, reviewID uint, req ConsolidateRequest) (*models.ConsolidationDecision, error) {
	decision, err := s.Consolidate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ResolveReview(ctx, reviewID, models.ReviewApproved); err != nil {
		return nil, err
	}
	return decision, nil
}

// Consolidate merges the duplicate licenses into the master atomically:
// the master keeps its identity and internally owned fields, notes from
// the duplicates are appended, an external link held by a duplicate moves
// to the master, and each duplicate is cancelled with a back-pointer. An
// immutable decision record is written in the same transaction.
func (s *Service) Consolidate(ctx context.Context, req ConsolidateRequest) (*models.ConsolidationDecision, error) {
	if req.AppliedBy == "" {
		req.AppliedBy = "user"
	}

	var decision *models.ConsolidationDecision
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		master, err := tx.FindByID(ctx, req.MasterID)
		if err != nil {
			return err
		}
		if master == nil {
			return fmt.Errorf("master license %d not found", req.MasterID)
		}
		if master.ConsolidatedInto != nil {
			return fmt.Errorf("master license %d was itself consolidated into %d", req.MasterID, *master.ConsolidatedInto)
		}

		masterUpdates := map[string]any{}
		notes := master.Notes

		for _, dupID := range req.DuplicateIDs {
			if dupID == req.MasterID {
				return fmt.Errorf("license %d cannot be its own duplicate", dupID)
			}
			dup, err := tx.FindByID(ctx, dupID)
			if err != nil {
				return err
			}
			if dup == nil {
				return fmt.Errorf("duplicate license %d not found", dupID)
			}

			if dup.Notes != "" {
				if notes != "" {
					notes += "\n"
				}
				notes += dup.Notes
			}

			dupUpdates := map[string]any{
				"status":            models.StatusCancel,
				"consolidated_into": req.MasterID,
			}

			// The external link survives on the master. Clearing the
			// duplicate's link first keeps the unique index happy.
			if dup.Linked() && !master.Linked() {
				masterUpdates["external_app_id"] = *dup.ExternalAppID
				masterUpdates["external_email"] = dup.ExternalEmail
				masterUpdates["external_sync_status"] = models.SyncStatusLinked
				if dup.ExternalCountID != nil {
					masterUpdates["external_count_id"] = *dup.ExternalCountID
				}
				appID := *dup.ExternalAppID
				master.ExternalAppID = &appID
				dupUpdates["external_app_id"] = nil
				dupUpdates["external_count_id"] = nil
			}

			if err := tx.UpdateFields(ctx, dupID, dupUpdates); err != nil {
				return err
			}
		}

		if notes != master.Notes {
			masterUpdates["notes"] = notes
		}
		if err := tx.UpdateFields(ctx, req.MasterID, masterUpdates); err != nil {
			return err
		}

		dupJSON, err := json.Marshal(req.DuplicateIDs)
		if err != nil {
			return err
		}
		decision = &models.ConsolidationDecision{
			ID:           uuid.NewString(),
			MasterID:     req.MasterID,
			DuplicateIDs: dupJSON,
			Strategy:     req.Strategy,
			AppliedBy:    req.AppliedBy,
			Notes:        req.Notes,
			CreatedAt:    time.Now().UTC(),
		}
		return tx.RecordDecision(ctx, decision)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Licenses consolidated",
		zap.Uint("master_id", decision.MasterID),
		zap.Int("duplicates", len(req.DuplicateIDs)),
		zap.String("strategy", decision.Strategy),
		zap.String("applied_by", decision.AppliedBy),
	)
	return decision, nil
}

// QueueCandidate persists a detector candidate for manual review.
func (s *Service) QueueCandidate(ctx context.Context, cand dedupe.Candidate) error {
	members, err := json.Marshal(cand.Members)
	if err != nil {
		return err
	}
	reasons, err := json.Marshal(cand.MatchReasons)
	if err != nil {
		return err
	}
	return s.repo.QueueReview(ctx, &models.ReviewItem{
		Scope:           string(cand.Scope),
		Members:         members,
		ConfidenceScore: cand.Score,
		MatchReasons:    reasons,
	})
}

// AutoConsolidate merges a high-confidence internal candidate without human
// involvement. Only candidates whose members are all internal licenses can
// be merged here; the lowest ID survives as master.
func (s *Service) AutoConsolidate(ctx context.Context, cand dedupe.Candidate) (*models.ConsolidationDecision, error) {
	ids := make([]uint, 0, len(cand.Members))
	for _, m := range cand.Members {
		if m.System != "internal" {
			return nil, fmt.Errorf("candidate member %s/%s is not an internal license", m.System, m.ID)
		}
		id, err := strconv.ParseUint(m.ID, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("candidate member id %q: %w", m.ID, err)
		}
		ids = append(ids, uint(id))
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("candidate needs at least two members, got %d", len(ids))
	}

	master := ids[0]
	for _, id := range ids[1:] {
		if id < master {
			master = id
		}
	}
	dups := make([]uint, 0, len(ids)-1)
	for _, id := range ids {
		if id != master {
			dups = append(dups, id)
		}
	}

	return s.Consolidate(ctx, ConsolidateRequest{
		MasterID:     master,
		DuplicateIDs: dups,
		Strategy:     models.StrategyMergeRecords,
		Notes:        fmt.Sprintf("auto-consolidated at confidence %d", cand.Score),
		AppliedBy:    "system",
	})
}
