package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bokpilot/bokpilot/ai/metrics"
	"github.com/bokpilot/bokpilot/store"
)

// Service wires relevance scoring and tier selection over the memory store.
type Service struct {
	records store.MemoryRecordStore
	scorer  *Scorer
	group   singleflight.Group
}

// NewService creates a memory selection service.
func NewService(records store.MemoryRecordStore) *Service {
	return &Service{
		records: records,
		scorer:  NewScorer(),
	}
}

// WithScorer overrides the scorer (fixed clock in tests).
func (s *Service) WithScorer(scorer *Scorer) *Service {
	s.scorer = scorer
	return s
}

// SelectForQuery loads the user's memory pool, ranks it against the query
// and returns the tier-budgeted selection. Concurrent identical requests
// are coalesced. The lastUsed touch is best-effort: a failed update is
// logged and never fails the selection.
func (s *Service) SelectForQuery(ctx context.Context, userID int32, companyID, query string) (*Selection, error) {
	key := fmt.Sprintf("%d:%s:%s", userID, companyID, query)
	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.selectForQuery(ctx, userID, companyID, query)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Selection), nil
}

func (s *Service) selectForQuery(ctx context.Context, userID int32, companyID, query string) (*Selection, error) {
	records, err := s.records.ListMemoryRecords(ctx, &store.FindMemoryRecord{
		UserID:    &userID,
		CompanyID: &companyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load memory records: %w", err)
	}

	scored := s.scorer.Score(records, query)
	selection := Select(scored)
	metrics.MemorySelections.WithLabelValues(companyID).Inc()

	if ids := selection.IDs(); len(ids) > 0 {
		if err := s.records.TouchMemoryRecords(ctx, ids, time.Now().UTC()); err != nil {
			slog.Warn("failed to touch memory records",
				"user_id", userID,
				"company_id", companyID,
				"count", len(ids),
				"error", err)
		}
	}

	slog.Debug("memory selection complete",
		"user_id", userID,
		"company_id", companyID,
		"pool", len(records),
		"selected", len(selection.Memories))
	return selection, nil
}
