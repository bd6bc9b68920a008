package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradebill/tradebill/internal/billing"
	"github.com/tradebill/tradebill/internal/schedule"
)

// DocumentLister fetches the owner's full document snapshot.
type DocumentLister interface {
	ListDocuments(ctx context.Context, ownerID int64) ([]billing.Document, error)
}

// EventLister fetches the owner's unfinished calendar events.
type EventLister interface {
	ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]schedule.Event, error)
}

// Service assembles the snapshot the selector runs over.
type Service struct {
	docs   DocumentLister
	events EventLister
	logger *slog.Logger
	clock  func() time.Time
}

// NewService constructs an actions service.
func NewService(docs DocumentLister, events EventLister, logger *slog.Logger) *Service {
	return &Service{
		docs:   docs,
		events: events,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// ActionItems computes the owner's work queues. A schedule fetch failure only
// degrades the upcoming queue; the document queues still render.
func (s *Service) ActionItems(ctx context.Context, ownerID int64) (ActionList, error) {
	now := s.clock()
	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return ActionList{}, err
	}

	var events []schedule.Event
	if s.events != nil {
		events, err = s.events.ListUpcoming(ctx, ownerID, now)
		if err != nil {
			s.logger.Warn("list upcoming events", slog.Int64("owner_id", ownerID), slog.Any("error", err))
			events = nil
		}
	}

	return Select(docs, events, now), nil
}
