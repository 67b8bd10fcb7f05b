package dedupe

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scope identifies which population a candidate group spans.
type Scope string

const (
	ScopeExternal    Scope = "external"
	ScopeInternal    Scope = "internal"
	ScopeCrossSystem Scope = "cross-system"
)

// EntityRef points at one member of a candidate group.
type EntityRef struct {
	System string `json:"system"` // external|internal
	ID     string `json:"id"`     // appId or license id
}

// Candidate is a proposed duplicate grouping with its confidence score.
type Candidate struct {
	Scope        Scope       `json:"scope"`
	Members      []EntityRef `json:"members"`
	Score        int         `json:"confidenceScore"`
	MatchReasons []string    `json:"matchReasons"`
}

// Disposition is the routing decision for a scored candidate.
type Disposition string

const (
	// DispositionAuto marks a candidate eligible for automatic consolidation.
	DispositionAuto Disposition = "auto"
	// DispositionReview routes a candidate to the manual review queue.
	DispositionReview Disposition = "review"
	// DispositionDiscard drops a candidate as too risky to act on.
	DispositionDiscard Disposition = "discard"
)

// Config holds the detector policy knobs.
type Config struct {
	// FuzzyRatio is the minimum normalized Levenshtein similarity for a
	// fuzzy DBA match.
	FuzzyRatio float64
	// AutoThreshold is the minimum score for automatic consolidation.
	AutoThreshold int
	// ReviewThreshold is the minimum score for manual review routing.
	ReviewThreshold int
}

// DefaultConfig returns the standard policy: fuzzy 0.85, auto 90, review 70.
func DefaultConfig() Config {
	return Config{FuzzyRatio: 0.85, AutoThreshold: 90, ReviewThreshold: 70}
}

// Report aggregates the three detection passes of one sync run.
type Report struct {
	External    []Candidate
	Internal    []Candidate
	CrossSystem []Candidate
}

// All returns every candidate across the three passes.
func (r *Report) All() []Candidate {
	out := make([]Candidate, 0, len(r.External)+len(r.Internal)+len(r.CrossSystem))
	out = append(out, r.External...)
	out = append(out, r.Internal...)
	out = append(out, r.CrossSystem...)
	return out
}

// Detector finds duplicate business entities within and across the
// external snapshot and the internal store.
type Detector struct {
	cfg    Config
	logger *zap.Logger
}

// NewDetector creates a detector with the given policy.
func NewDetector(cfg Config, logger *zap.Logger) *Detector {
	if cfg.FuzzyRatio <= 0 || cfg.FuzzyRatio > 1 {
		cfg.FuzzyRatio = 0.85
	}
	if cfg.AutoThreshold <= 0 {
		cfg.AutoThreshold = 90
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = 70
	}
	return &Detector{cfg: cfg, logger: logger}
}

// Disposition routes a score: >= auto threshold consolidate automatically,
// >= review threshold queue for a human, below that discard.
func (d *Detector) Disposition(score int) Disposition {
	switch {
	case score >= d.cfg.AutoThreshold:
		return DispositionAuto
	case score >= d.cfg.ReviewThreshold:
		return DispositionReview
	default:
		return DispositionDiscard
	}
}

// Detect runs the three passes concurrently. Candidates below the review
// threshold are dropped; the caller routes the rest via Disposition.
func (d *Detector) Detect(ctx context.Context, external []extlicense.Record, internal []models.License) (*Report, error) {
	report := &Report{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.External = d.detectExternal(external)
		return nil
	})
	g.Go(func() error {
		report.Internal = d.detectInternal(internal)
		return nil
	})
	g.Go(func() error {
		report.CrossSystem = d.detectCrossSystem(external, internal)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.logger.Info("Duplicate detection finished",
		zap.Int("external", len(report.External)),
		zap.Int("internal", len(report.Internal)),
		zap.Int("cross_system", len(report.CrossSystem)),
	)
	return report, nil
}

// detectExternal groups external records sharing {email domain, normalized
// dba}. Groups whose members occupy disjoint time windows are renewals, not
// duplicates, and are dropped.
func (d *Detector) detectExternal(records []extlicense.Record) []Candidate {
	groups := make(map[string][]entity)
	for _, rec := range records {
		e := externalEntity(rec)
		if e.Domain == "" || e.DBANorm == "" {
			continue
		}
		key := e.Domain + "|" + e.DBANorm
		groups[key] = append(groups[key], e)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Candidate
	for _, k := range keys {
		members := groups[k]
		if len(members) < 2 {
			continue
		}

		// Keep only members whose validity window overlaps at least one
		// other member's.
		overlapping := overlappingMembers(members)
		if len(overlapping) < 2 {
			continue
		}

		score, reasons := bestPairScore(overlapping, d.cfg.FuzzyRatio)
		if score < d.cfg.ReviewThreshold {
			continue
		}

		refs := make([]EntityRef, 0, len(overlapping))
		for _, m := range overlapping {
			refs = append(refs, m.Ref)
		}
		out = append(out, Candidate{
			Scope:        ScopeExternal,
			Members:      refs,
			Score:        score,
			MatchReasons: reasons,
		})
	}
	return out
}

// detectInternal clusters internal licenses by fuzzy DBA equality confirmed
// by a secondary signal (email domain, zip, or phone).
func (d *Detector) detectInternal(licenses []models.License) []Candidate {
	entities := make([]entity, 0, len(licenses))
	for _, lic := range licenses {
		e := internalEntity(lic)
		if e.DBANorm == "" {
			continue
		}
		entities = append(entities, e)
	}

	// Union-find over confirmed pairs.
	parent := make([]int, len(entities))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) { parent[find(i)] = find(j) }

	pairScore := make(map[[2]int]int)
	pairReasons := make(map[[2]int][]string)

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]

			dbaMatch := a.DBANorm == b.DBANorm ||
				Similarity(a.DBANorm, b.DBANorm) >= d.cfg.FuzzyRatio
			if !dbaMatch {
				continue
			}
			if !secondarySignal(a, b) {
				continue
			}

			score, reasons := scorePair(a, b, d.cfg.FuzzyRatio)
			if score < d.cfg.ReviewThreshold {
				continue
			}
			union(i, j)
			pairScore[[2]int{i, j}] = score
			pairReasons[[2]int{i, j}] = reasons
		}
	}

	clusters := make(map[int][]int)
	for i := range entities {
		root := find(i)
		clusters[root] = append(clusters[root], i)
	}

	roots := make([]int, 0, len(clusters))
	for root, members := range clusters {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	var out []Candidate
	for _, root := range roots {
		members := clusters[root]

		best := 0
		var reasons []string
		for pair, score := range pairScore {
			if find(pair[0]) != root {
				continue
			}
			if score > best {
				best = score
				reasons = pairReasons[pair]
			}
		}

		refs := make([]EntityRef, 0, len(members))
		for _, idx := range members {
			refs = append(refs, entities[idx].Ref)
		}
		out = append(out, Candidate{
			Scope:        ScopeInternal,
			Members:      refs,
			Score:        best,
			MatchReasons: reasons,
		})
	}
	return out
}

// detectCrossSystem pairs external records with internal licenses that are
// not yet linked to any external record.
func (d *Detector) detectCrossSystem(external []extlicense.Record, internal []models.License) []Candidate {
	var unlinked []entity
	for _, lic := range internal {
		if lic.Linked() {
			continue
		}
		e := internalEntity(lic)
		if e.DBANorm == "" && e.Domain == "" {
			continue
		}
		unlinked = append(unlinked, e)
	}

	var out []Candidate
	for _, rec := range external {
		ext := externalEntity(rec)
		// Key equality can't apply to unlinked internals.
		ext.Key = ""

		for _, in := range unlinked {
			score, reasons := scorePair(ext, in, d.cfg.FuzzyRatio)
			if score < d.cfg.ReviewThreshold {
				continue
			}
			out = append(out, Candidate{
				Scope:        ScopeCrossSystem,
				Members:      []EntityRef{ext.Ref, in.Ref},
				Score:        score,
				MatchReasons: reasons,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// CheckAgainst scores an ad-hoc probe (dba/email) against the given
// licenses, for the interactive duplicate-check endpoint.
func (d *Detector) CheckAgainst(dba, email string, licenses []models.License, minScore int) []Candidate {
	probe := entity{
		Email:   email,
		Domain:  EmailDomain(email),
		DBA:     dba,
		DBANorm: NormalizeDBA(dba),
	}
	if minScore <= 0 {
		minScore = d.cfg.ReviewThreshold
	}

	var out []Candidate
	for _, lic := range licenses {
		in := internalEntity(lic)
		score, reasons := scorePair(probe, in, d.cfg.FuzzyRatio)
		if score < minScore {
			continue
		}
		out = append(out, Candidate{
			Scope:        ScopeInternal,
			Members:      []EntityRef{in.Ref},
			Score:        score,
			MatchReasons: reasons,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func externalEntity(rec extlicense.Record) entity {
	return entity{
		Ref:      EntityRef{System: "external", ID: rec.AppID},
		Key:      rec.AppID,
		Email:    rec.Email,
		Domain:   EmailDomain(rec.Email),
		DBA:      rec.DBA,
		DBANorm:  NormalizeDBA(rec.DBA),
		Zip:      NormalizeZip(rec.Zip),
		Activate: rec.ActivateDate,
		Expire:   rec.ComingExpiredDate,
	}
}

func internalEntity(lic models.License) entity {
	e := entity{
		Ref:     EntityRef{System: "internal", ID: strconv.FormatUint(uint64(lic.ID), 10)},
		Email:   lic.ExternalEmail,
		Domain:  EmailDomain(lic.ExternalEmail),
		DBA:     lic.DBA,
		DBANorm: NormalizeDBA(lic.DBA),
		Zip:     NormalizeZip(lic.Zip),
		Phone:   NormalizePhone(lic.Phone),
	}
	if lic.ExternalAppID != nil {
		e.Key = *lic.ExternalAppID
	}
	e.Activate = lic.StartsAt
	e.Expire = lic.ExpiresAt
	return e
}

// secondarySignal confirms a fuzzy DBA cluster with an independent field.
func secondarySignal(a, b entity) bool {
	if a.Domain != "" && a.Domain == b.Domain {
		return true
	}
	if a.Zip != "" && a.Zip == b.Zip {
		return true
	}
	if a.Phone != "" && a.Phone == b.Phone {
		return true
	}
	return false
}

// overlappingMembers filters a group down to members whose validity window
// overlaps at least one other member's.
func overlappingMembers(members []entity) []entity {
	var out []entity
	for i, m := range members {
		for j, other := range members {
			if i == j {
				continue
			}
			if windowsOverlap(m.Activate, m.Expire, other.Activate, other.Expire) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// bestPairScore returns the highest pairwise score within a group.
func bestPairScore(members []entity, fuzzyRatio float64) (int, []string) {
	best := 0
	var reasons []string
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			// Within one group the external key is the record identity,
			// never a duplicate signal.
			a.Key, b.Key = "", ""
			score, rs := scorePair(a, b, fuzzyRatio)
			if score > best {
				best = score
				reasons = rs
			}
		}
	}
	if best == 0 {
		return 0, nil
	}
	return best, reasons
}

// String implements fmt.Stringer for log output.
func (c Candidate) String() string {
	return fmt.Sprintf("%s score=%d members=%d", c.Scope, c.Score, len(c.Members))
}
