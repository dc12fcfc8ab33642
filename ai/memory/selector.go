package memory

import (
	"sort"
)

// Selection caps. A selection never exceeds the global cap; the per-tier
// caps reserve room for both durable facts and recent context.
const (
	maxSelected           = 10
	maxStableSelected     = 4
	maxContextualSelected = 6

	previewLength = 50
)

// SelectionInfo is the transparency descriptor for one selected record,
// surfaced to the user so they can see why a memory was injected.
type SelectionInfo struct {
	ID              string `json:"id"`
	Tier            string `json:"tier"`
	Preview         string `json:"preview"`
	Reason          string `json:"reason"`
	ConfidenceLevel string `json:"confidence_level"` // "high" or "medium"
}

// Selection is the ordered result of tiered selection.
type Selection struct {
	Memories []*ScoredMemory
	Info     []SelectionInfo
}

// IDs returns the selected record ids in selection order.
func (s *Selection) IDs() []string {
	ids := make([]string, len(s.Memories))
	for i, m := range s.Memories {
		ids[i] = m.Record.ID
	}
	return ids
}

// Select applies the tier budget to scored candidates: up to 4 stable and
// 6 contextual records by descending composite score, then backfill from
// the merged ranking until the global cap of 10 or pool exhaustion.
// Ties keep input order (stable sort), so scoring order matters.
func Select(candidates []*ScoredMemory) *Selection {
	stable := make([]*ScoredMemory, 0, len(candidates))
	contextual := make([]*ScoredMemory, 0, len(candidates))
	for _, c := range candidates {
		if c.IsStable {
			stable = append(stable, c)
		} else {
			contextual = append(contextual, c)
		}
	}
	sortByComposite(stable)
	sortByComposite(contextual)

	taken := make(map[string]struct{}, maxSelected)
	selected := make([]*ScoredMemory, 0, maxSelected)

	take := func(pool []*ScoredMemory, limit int) {
		count := 0
		for _, c := range pool {
			if count >= limit || len(selected) >= maxSelected {
				return
			}
			if _, dup := taken[c.Record.ID]; dup {
				continue
			}
			taken[c.Record.ID] = struct{}{}
			selected = append(selected, c)
			count++
		}
	}

	take(stable, maxStableSelected)
	take(contextual, maxContextualSelected)

	// Backfill from the full merged ranking until the global cap.
	if len(selected) < maxSelected {
		merged := make([]*ScoredMemory, 0, len(candidates))
		merged = append(merged, candidates...)
		sortByComposite(merged)
		take(merged, maxSelected-len(selected))
	}

	info := make([]SelectionInfo, len(selected))
	for i, c := range selected {
		info[i] = describeSelection(c)
	}
	return &Selection{Memories: selected, Info: info}
}

func sortByComposite(pool []*ScoredMemory) {
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].CompositeScore > pool[j].CompositeScore
	})
}

func describeSelection(c *ScoredMemory) SelectionInfo {
	confidenceLevel := "medium"
	importance := c.Record.Importance
	if importance < 0 || importance > 1 {
		if c.IsStable {
			importance = defaultImportanceStable
		} else {
			importance = defaultImportanceContextual
		}
	}
	if importance >= 0.7 {
		confidenceLevel = "high"
	}
	return SelectionInfo{
		ID:              c.Record.ID,
		Tier:            string(c.Record.Tier),
		Preview:         previewContent(c.Record.Content),
		Reason:          c.Reason,
		ConfidenceLevel: confidenceLevel,
	}
}

// previewContent returns the first 50 characters with an ellipsis when
// truncated. Rune-level so multi-byte characters are never split.
func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
