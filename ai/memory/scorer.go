package memory

import (
	"math"
	"time"

	"github.com/bokpilot/bokpilot/store"
)

// Scoring weights for the composite score.
// Lexical overlap dominates; recency and importance follow; confidence
// nudges. Stable tiers get a flat boost so profile facts survive
// low-overlap queries.
const (
	weightOverlap    = 2.0
	weightRecency    = 0.9
	weightImportance = 0.8
	weightConfidence = 0.4
	stableTierBoost  = 0.2

	// overlapDenominatorCap bounds the overlap denominator so long queries
	// do not dilute a strong partial match.
	overlapDenominatorCap = 6

	// recencyFallback is used when a record has no usable reference
	// timestamp. Deliberately below the pre-filter threshold's complement:
	// a timestamp-less contextual record still needs lexical overlap to
	// survive.
	recencyFallback = 0.3

	// contextualPruneRecency: a contextual record with zero overlap and a
	// recency score below this is dropped before full scoring.
	contextualPruneRecency = 0.35

	// Importance defaults when the record carries none.
	defaultImportanceStable     = 0.7
	defaultImportanceContextual = 0.6
	defaultConfidence           = 0.7
)

// Half-lives for recency decay, per tier.
var tierHalfLifeDays = map[store.MemoryTier]float64{
	store.MemoryTierProject:  30,
	store.MemoryTierEpisodic: 180,
	store.MemoryTierProfile:  365,
	store.MemoryTierFact:     365,
}

// ScoredMemory is a memory record with its per-request ranking scores.
// Ephemeral: computed per request, never persisted.
type ScoredMemory struct {
	Record         *store.MemoryRecord
	IsStable       bool
	OverlapScore   float64
	RecencyScore   float64
	CompositeScore float64
	Reason         string
}

// Scorer computes relevance scores for memory records against a query.
// Pure and deterministic given identical inputs and clock.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer using the real clock.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a scorer with a fixed clock, for tests and replay.
func NewScorerAt(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score ranks the given records against the query. Expired records and
// pruned contextual records are omitted from the result. Input order is
// preserved for surviving candidates so downstream sorting stays stable.
func (s *Scorer) Score(records []*store.MemoryRecord, query string) []*ScoredMemory {
	now := s.now()
	queryTokens := Tokenize(query)

	scored := make([]*ScoredMemory, 0, len(records))
	for _, record := range records {
		if record == nil || record.Expired(now) {
			continue
		}

		stable := record.Tier.IsStable()
		overlap := overlapScore(queryTokens, record.Content)
		recency := s.recencyScore(record, now)

		// Cheap pruning: an old contextual record with no lexical overlap
		// will never rank; skip it before full scoring.
		if !stable && overlap == 0 && recency < contextualPruneRecency {
			continue
		}

		importance := record.Importance
		if importance < 0 || importance > 1 {
			if stable {
				importance = defaultImportanceStable
			} else {
				importance = defaultImportanceContextual
			}
		}
		confidence := record.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = defaultConfidence
		}

		boost := 0.0
		if stable {
			boost = stableTierBoost
		}

		composite := overlap*weightOverlap +
			recency*weightRecency +
			importance*weightImportance +
			confidence*weightConfidence +
			boost

		scored = append(scored, &ScoredMemory{
			Record:         record,
			IsStable:       stable,
			OverlapScore:   overlap,
			RecencyScore:   recency,
			CompositeScore: composite,
			Reason:         reasonFor(record.Tier, overlap),
		})
	}
	return scored
}

// overlapScore is the fraction of distinct query tokens found in the
// content token set, with the denominator capped so long queries are not
// penalized. Repeated query tokens count once on both sides of the ratio.
func overlapScore(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentSet := TokenSet(content)
	if len(contentSet) == 0 {
		return 0
	}

	hits := 0
	seen := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := contentSet[tok]; ok {
			hits++
		}
	}

	denominator := len(seen)
	if denominator > overlapDenominatorCap {
		denominator = overlapDenominatorCap
	}
	return float64(hits) / float64(denominator)
}

// recencyScore computes exp(-ageDays/halfLife) from the record's reference
// timestamp (updatedAt, falling back to createdAt). A missing timestamp
// yields the documented fallback instead of an error: scoring never throws.
func (s *Scorer) recencyScore(record *store.MemoryRecord, now time.Time) float64 {
	ref := record.UpdatedAt
	if ref.IsZero() {
		ref = record.CreatedAt
	}
	if ref.IsZero() {
		return recencyFallback
	}

	ageDays := now.Sub(ref).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	halfLife, ok := tierHalfLifeDays[record.Tier]
	if !ok {
		halfLife = tierHalfLifeDays[store.MemoryTierEpisodic]
	}
	return math.Exp(-ageDays / halfLife)
}

// reasonFor picks the transparency label for a scored record.
func reasonFor(tier store.MemoryTier, overlap float64) string {
	if overlap >= 0.2 {
		return "query match"
	}
	switch tier {
	case store.MemoryTierProfile:
		return "profile/preference"
	case store.MemoryTierFact:
		return "fact"
	case store.MemoryTierProject:
		return "recent project"
	default:
		return "history"
	}
}
