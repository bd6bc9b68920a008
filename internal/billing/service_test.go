package billing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu sync.Mutex

	documents map[int64]*Document
	items     map[int64][]LineItem
	nextID    int64

	// Error injection
	getError    error
	updateError error
	txError     error

	// Simulates a concurrent writer flipping the status between the service's
	// read and its compare-and-swap write.
	interceptUpdate func()
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		documents: make(map[int64]*Document),
		items:     make(map[int64][]LineItem),
		nextID:    1,
	}
}

func (m *mockRepository) put(doc Document) *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = m.nextID
		m.nextID++
	}
	stored := doc
	m.documents[doc.ID] = &stored
	return &stored
}

func (m *mockRepository) GetDocument(ctx context.Context, id int64) (*Document, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	copied.Items = append([]LineItem(nil), m.items[id]...)
	return &copied, nil
}

func (m *mockRepository) ListDocuments(ctx context.Context, ownerID int64) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *mockRepository) ListByStatus(ctx context.Context, ownerID int64, status Status) ([]Document, error) {
	docs, _ := m.ListDocuments(ctx, ownerID)
	var out []Document
	for _, doc := range docs {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockRepository) ValidateParent(ctx context.Context, ownerID, parentID, childID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.documents[parentID]
	if !ok || parent.OwnerID != ownerID {
		return ErrUnknownParent
	}
	return nil
}

func (m *mockRepository) UpdateDocumentIf(ctx context.Context, doc Document, expected Status) error {
	if m.updateError != nil {
		return m.updateError
	}
	if m.interceptUpdate != nil {
		m.interceptUpdate()
		m.interceptUpdate = nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.documents[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrStaleState
	}
	stored := doc
	m.documents[doc.ID] = &stored
	return nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTxRepo{mock: m})
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	return t.mock.put(doc).ID, nil
}

func (t *mockTxRepo) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	item.ID = t.mock.nextID
	t.mock.nextID++
	t.mock.items[item.DocumentID] = append(t.mock.items[item.DocumentID], item)
	return item.ID, nil
}

func (t *mockTxRepo) DeleteLineItems(ctx context.Context, documentID int64) error {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	delete(t.mock.items, documentID)
	return nil
}

func (t *mockTxRepo) UpdateDraftFields(ctx context.Context, doc Document) error {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	stored := doc
	t.mock.documents[doc.ID] = &stored
	return nil
}

type mockDirectory struct {
	mu       sync.Mutex
	statuses map[int64]string
	done     chan struct{}
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{statuses: make(map[int64]string), done: make(chan struct{}, 1)}
}

func (m *mockDirectory) SetClientStatus(ctx context.Context, clientID int64, status string) error {
	m.mu.Lock()
	m.statuses[clientID] = status
	m.mu.Unlock()
	select {
	case m.done <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockDirectory) status(clientID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[clientID]
}

type mockNotifier struct {
	mu    sync.Mutex
	bumps int
}

func (m *mockNotifier) DocumentChanged(ctx context.Context, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bumps++
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bumps
}

func newTestService(repo *mockRepository) (*Service, *mockDirectory, *mockNotifier) {
	directory := newMockDirectory()
	notifier := &mockNotifier{}
	svc := NewService(repo, directory, notifier, slog.Default())
	return svc, directory, notifier
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateDocumentComputesTotals(t *testing.T) {
	repo := newMockRepository()
	svc, _, notifier := newTestService(repo)

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		OwnerID:  1,
		ClientID: 10,
		Title:    "Bathroom refit",
		Type:     TypeQuote,
		VAT:      true,
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items: []CreateLineItemRequest{
			{Description: "Labour", Quantity: 3, UnitPrice: 350, LineType: LineTypeService},
			{Description: "Shower unit", Quantity: 1, UnitPrice: 820, BuyingPrice: 610, LineType: LineTypeMaterial},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.InDelta(t, 1870.0, doc.Totals.TotalExclTax, 0.001)
	assert.InDelta(t, 2244.0, doc.Totals.TotalInclTax, 0.001)
	assert.Len(t, doc.Items, 2)
	assert.Equal(t, 1, notifier.count())
}

func TestCreateDocumentRejectsInvalidRequest(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		OwnerID: 1,
		// Missing client, title, type, items.
	})
	require.Error(t, err)
}

func TestCreateDocumentValidatesParent(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	parentID := int64(99)
	_, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		OwnerID:  1,
		ClientID: 10,
		ParentID: &parentID,
		Title:    "Amendment",
		Type:     TypeAmendment,
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items:    []CreateLineItemRequest{{Description: "Extra work", Quantity: 1, UnitPrice: 100, LineType: LineTypeService}},
	})
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestUpdateDraftRefusesNonDraft(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Title: "Sent quote", Type: TypeQuote, Status: StatusSent})

	title := "New title"
	_, err := svc.UpdateDraft(context.Background(), doc.ID, UpdateDraftRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestUpdateDraftRecomputesTotals(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Title: "Draft", Type: TypeQuote, Status: StatusDraft, VAT: true})

	items := []CreateLineItemRequest{
		{Description: "Inspection", Quantity: 1, UnitPrice: 120, LineType: LineTypeService},
	}
	updated, err := svc.UpdateDraft(context.Background(), doc.ID, UpdateDraftRequest{Items: &items})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, updated.Totals.TotalExclTax, 0.001)
	assert.InDelta(t, 144.0, updated.Totals.TotalInclTax, 0.001)
}

func TestApplyTransitionHappyPath(t *testing.T) {
	repo := newMockRepository()
	svc, _, notifier := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Title: "Quote", Type: TypeQuote, Status: StatusDraft})

	updated, err := svc.ApplyTransition(context.Background(), doc.ID, OpMarkSent, TransitionArgs{})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, updated.Status)
	assert.Equal(t, 1, notifier.count())
}

func TestApplyTransitionInvalidFromStatus(t *testing.T) {
	repo := newMockRepository()
	svc, _, notifier := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusPaid})

	_, err := svc.ApplyTransition(context.Background(), doc.ID, OpMarkSent, TransitionArgs{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, notifier.count(), "failed transitions do not publish changes")
}

func TestApplyTransitionStaleState(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusDraft})

	// Another writer sends the document between the read and the CAS write.
	repo.interceptUpdate = func() {
		repo.mu.Lock()
		repo.documents[doc.ID].Status = StatusSent
		repo.mu.Unlock()
	}

	_, err := svc.ApplyTransition(context.Background(), doc.ID, OpMarkSent, TransitionArgs{})
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestApplyTransitionSignGeneratesReferenceAndMarksClient(t *testing.T) {
	repo := newMockRepository()
	svc, directory, _ := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 42, Type: TypeQuote, Status: StatusSent})

	updated, err := svc.ApplyTransition(context.Background(), doc.ID, OpSign, TransitionArgs{})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, updated.Status)
	require.NotNil(t, updated.SignatureRef)
	assert.NotEmpty(t, *updated.SignatureRef)
	require.NotNil(t, updated.SignedAt)

	select {
	case <-directory.done:
	case <-time.After(2 * time.Second):
		t.Fatal("client status update never happened")
	}
	assert.Equal(t, ClientStatusSigned, directory.status(42))
}

func TestApplyTransitionNotFound(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.ApplyTransition(context.Background(), 404, OpMarkSent, TransitionArgs{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetWorkStageService(t *testing.T) {
	repo := newMockRepository()
	svc, _, notifier := newTestService(repo)
	doc := repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusAccepted})

	updated, err := svc.SetWorkStage(context.Background(), doc.ID, WorkStageRequest{Stage: WorkStageInProgress})
	require.NoError(t, err)
	require.NotNil(t, updated.WorkStage)
	assert.Equal(t, WorkStageInProgress, *updated.WorkStage)
	assert.Equal(t, 1, notifier.count())

	sent := repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusSent})
	_, err = svc.SetWorkStage(context.Background(), sent.ID, WorkStageRequest{Stage: WorkStagePlanned})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListDocumentsByStatus(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusDraft})
	repo.put(Document{OwnerID: 1, ClientID: 10, Type: TypeQuote, Status: StatusSent})
	repo.put(Document{OwnerID: 2, ClientID: 20, Type: TypeQuote, Status: StatusDraft})

	all, err := svc.ListDocuments(context.Background(), ListDocumentsRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := StatusDraft
	drafts, err := svc.ListDocuments(context.Background(), ListDocumentsRequest{OwnerID: 1, Status: &status})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestCreateDocumentTxFailure(t *testing.T) {
	repo := newMockRepository()
	repo.txError = errors.New("boom")
	svc, _, notifier := newTestService(repo)

	_, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		OwnerID:  1,
		ClientID: 10,
		Title:    "Quote",
		Type:     TypeQuote,
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items:    []CreateLineItemRequest{{Description: "Labour", Quantity: 1, UnitPrice: 100, LineType: LineTypeService}},
	})
	require.Error(t, err)
	assert.Zero(t, notifier.count())
}
