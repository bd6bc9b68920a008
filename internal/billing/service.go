package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ServiceRepository is the persistence contract the service depends on.
type ServiceRepository interface {
	GetDocument(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context, ownerID int64) ([]Document, error)
	ListByStatus(ctx context.Context, ownerID int64, status Status) ([]Document, error)
	ValidateParent(ctx context.Context, ownerID, parentID, childID int64) error
	UpdateDocumentIf(ctx context.Context, doc Document, expected Status) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// ClientDirectory is the client CRM collaborator. SetClientStatus is a
// fire-and-forget side effect of signing.
type ClientDirectory interface {
	SetClientStatus(ctx context.Context, clientID int64, status string) error
}

// ChangeNotifier is told after every successful write so readers re-fetch and
// recompute from a fresh snapshot. Partial patching of cached snapshots is
// intentionally unsupported.
type ChangeNotifier interface {
	DocumentChanged(ctx context.Context, ownerID int64) error
}

// ClientStatusSigned is the CRM status pushed when a document gets signed.
const ClientStatusSigned = "signed"

// Service provides the document lifecycle business logic.
type Service struct {
	repo      ServiceRepository
	directory ClientDirectory
	notifier  ChangeNotifier
	logger    *slog.Logger
	validate  *validator.Validate
	clock     func() time.Time
}

// NewService constructs a billing service.
func NewService(repo ServiceRepository, directory ClientDirectory, notifier ChangeNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		validate:  validator.New(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateDocument inserts a new draft document with derived totals.
func (s *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("billing: validate create: %w", err)
	}
	if req.ParentID != nil {
		if err := s.repo.ValidateParent(ctx, req.OwnerID, *req.ParentID, 0); err != nil {
			return nil, err
		}
	}

	items := make([]LineItem, 0, len(req.Items))
	for i, line := range req.Items {
		item := LineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			BuyingPrice: line.BuyingPrice,
			LineType:    line.LineType,
			LineOrder:   line.LineOrder,
		}
		if item.LineOrder == 0 {
			item.LineOrder = i + 1
		}
		items = append(items, item)
	}

	doc := Document{
		OwnerID:    req.OwnerID,
		ClientID:   req.ClientID,
		ParentID:   req.ParentID,
		Title:      req.Title,
		Type:       req.Type,
		Status:     StatusDraft,
		VAT:        req.VAT,
		Totals:     ComputeTotals(items, req.VAT),
		Date:       req.Date,
		ValidUntil: req.ValidUntil,
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertDocument(ctx, doc)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.DocumentID = id
			if _, err := tx.InsertLineItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyChanged(ctx, doc.OwnerID)
	return s.repo.GetDocument(ctx, id)
}

// UpdateDraft edits fields on a draft document, recomputing totals when lines
// change. Any other status refuses the edit.
func (s *Service) UpdateDraft(ctx context.Context, id int64, req UpdateDraftRequest) (*Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("billing: validate update: %w", err)
	}
	existing, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEditable, existing.Status)
	}

	if req.ClientID != nil {
		existing.ClientID = *req.ClientID
	}
	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.VAT != nil {
		existing.VAT = *req.VAT
	}
	if req.Date != nil {
		existing.Date = *req.Date
	}
	if req.ValidUntil != nil {
		existing.ValidUntil = req.ValidUntil
	}

	items := existing.Items
	if req.Items != nil {
		items = items[:0]
		for i, line := range *req.Items {
			item := LineItem{
				DocumentID:  id,
				Description: line.Description,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				BuyingPrice: line.BuyingPrice,
				LineType:    line.LineType,
				LineOrder:   line.LineOrder,
			}
			if item.LineOrder == 0 {
				item.LineOrder = i + 1
			}
			items = append(items, item)
		}
	}
	existing.Totals = ComputeTotals(items, existing.VAT)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.Items != nil {
			if err := tx.DeleteLineItems(ctx, id); err != nil {
				return err
			}
			for _, item := range items {
				if _, err := tx.InsertLineItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return tx.UpdateDraftFields(ctx, *existing)
	})
	if err != nil {
		return nil, err
	}

	s.notifyChanged(ctx, existing.OwnerID)
	return s.repo.GetDocument(ctx, id)
}

// GetDocument retrieves a document by id.
func (s *Service) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return s.repo.GetDocument(ctx, id)
}

// ListDocuments returns the owner's full snapshot.
func (s *Service) ListDocuments(ctx context.Context, req ListDocumentsRequest) ([]Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("billing: validate list: %w", err)
	}
	if req.Status != nil {
		return s.repo.ListByStatus(ctx, req.OwnerID, *req.Status)
	}
	return s.repo.ListDocuments(ctx, req.OwnerID)
}

// ApplyTransition re-validates the precondition against the latest fetched
// state, applies the operation, and writes with a compare-and-swap on the
// previous status. A concurrent write surfaces as ErrStaleState; the caller
// must re-fetch the whole snapshot rather than patch.
func (s *Service) ApplyTransition(ctx context.Context, id int64, op TransitionOp, args TransitionArgs) (*Document, error) {
	latest, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if args.Now.IsZero() {
		args.Now = s.clock()
	}
	if op == OpSign && args.SignatureRef == "" {
		args.SignatureRef = uuid.New().String()
	}

	updated, err := Apply(*latest, op, args)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDocumentIf(ctx, updated, latest.Status); err != nil {
		return nil, err
	}

	if op == OpSign {
		s.markClientSigned(updated.ClientID)
	}
	s.notifyChanged(ctx, updated.OwnerID)
	return s.repo.GetDocument(ctx, id)
}

// SetWorkStage updates the job-tracking overlay on an accepted document.
func (s *Service) SetWorkStage(ctx context.Context, id int64, req WorkStageRequest) (*Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("billing: validate work stage: %w", err)
	}
	latest, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := SetWorkStage(*latest, req.Stage)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDocumentIf(ctx, updated, latest.Status); err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, updated.OwnerID)
	return s.repo.GetDocument(ctx, id)
}

// markClientSigned pushes the CRM status without blocking or failing the
// signature. Errors are logged only.
func (s *Service) markClientSigned(clientID int64) {
	if s.directory == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.directory.SetClientStatus(ctx, clientID, ClientStatusSigned); err != nil {
			s.logger.Warn("mark client signed", slog.Int64("client_id", clientID), slog.Any("error", err))
		}
	}()
}

func (s *Service) notifyChanged(ctx context.Context, ownerID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.DocumentChanged(ctx, ownerID); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publish document change", slog.Int64("owner_id", ownerID), slog.Any("error", err))
	}
}
