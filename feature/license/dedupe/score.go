package dedupe

import (
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
)

// Signal weights. Only an exact key match may push a pair above 90 on its
// own; every other signal needs corroboration to reach the auto threshold.
const (
	weightExactKey    = 95 // appId / external key equality
	weightEmailExact  = 40
	weightDBAExact    = 35
	weightDBAFuzzy    = 30
	weightEmailDomain = 25
	weightZip         = 15
	weightPhone       = 15
)

const maxScore = 100

// entity is the signal set extracted from either an external record or an
// internal license, so both sides score through the same code path.
type entity struct {
	Ref      EntityRef
	Key      string // external appId when known
	Email    string
	Domain   string
	DBA      string
	DBANorm  string
	Zip      string
	Phone    string
	Activate *time.Time
	Expire   *time.Time
}

// Similarity returns the normalized Levenshtein similarity of two strings:
// 1 - distance/maxLen, in [0,1]. Inputs are expected to be normalized.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}

// scorePair computes the weighted confidence score for a pair of entities
// together with human-readable match reasons.
func scorePair(a, b entity, fuzzyRatio float64) (int, []string) {
	score := 0
	var reasons []string

	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if a.Key != "" && a.Key == b.Key {
		add(weightExactKey, "external app id match")
	}

	switch {
	case a.Email != "" && a.Email == b.Email:
		add(weightEmailExact, "email exact match")
	case a.Domain != "" && a.Domain == b.Domain:
		add(weightEmailDomain, "email domain match")
	}

	switch {
	case a.DBANorm != "" && a.DBANorm == b.DBANorm:
		add(weightDBAExact, "dba exact match")
	default:
		if sim := Similarity(a.DBANorm, b.DBANorm); sim >= fuzzyRatio {
			add(weightDBAFuzzy, fmt.Sprintf("dba similarity %.2f", sim))
		}
	}

	if a.Zip != "" && a.Zip == b.Zip {
		add(weightZip, "zip match")
	}
	if a.Phone != "" && a.Phone == b.Phone {
		add(weightPhone, "phone match")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, reasons
}

// windowsOverlap reports whether two license validity windows intersect.
// Open ends (missing dates) are treated as unbounded, which overlaps
// everything on that side.
func windowsOverlap(aStart, aEnd, bStart, bEnd *time.Time) bool {
	// a entirely before b
	if aEnd != nil && bStart != nil && aEnd.Before(*bStart) {
		return false
	}
	// b entirely before a
	if bEnd != nil && aStart != nil && bEnd.Before(*aStart) {
		return false
	}
	return true
}
