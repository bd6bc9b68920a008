package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradebill/tradebill/internal/billing"
)

// Lister fetches the full document snapshot for an owner. Reports are always
// recomputed over the whole collection, never merged incrementally.
type Lister interface {
	ListDocuments(ctx context.Context, ownerID int64) ([]billing.Document, error)
}

// Service coordinates report computation with the cache layer.
type Service struct {
	docs   Lister
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a document Lister with a Cache helper.
func NewService(docs Lister, cache *Cache, logger *slog.Logger) *Service {
	return &Service{docs: docs, cache: cache, logger: logger}
}

// Dashboard returns the four-metric report for the owner relative to ref,
// fetching a fresh snapshot on cache miss.
func (s *Service) Dashboard(ctx context.Context, ownerID int64, ref time.Time) (Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		docs, err := s.docs.ListDocuments(ctx, ownerID)
		if err != nil {
			return Report{}, err
		}
		return Aggregate(docs, ref, s.logger), nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Report{}, err
		}
		return value.(Report), nil
	}

	key, err := s.cache.BuildKey(ctx, keyDashboard(ownerID, ref)...)
	if err != nil {
		return Report{}, err
	}
	var rep Report
	if err := s.cache.FetchJSON(ctx, key, &rep, loader); err != nil {
		return Report{}, err
	}
	return rep, nil
}

// DocumentChanged implements the billing.ChangeNotifier contract. The version
// bump invalidates every cached report, not just the owner's: dedup and
// settlement are collection-wide decisions and stale cross-references are
// worse than a recompute.
func (s *Service) DocumentChanged(ctx context.Context, _ int64) error {
	return s.cache.Bump(ctx)
}
