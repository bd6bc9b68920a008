package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradebill/tradebill/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertDocument(ctx context.Context, doc Document) (int64, error)
	InsertLineItem(ctx context.Context, item LineItem) (int64, error)
	DeleteLineItems(ctx context.Context, documentID int64) error
	UpdateDraftFields(ctx context.Context, doc Document) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const documentColumns = `
	id, owner_id, client_id, parent_id, title, doc_type, status, work_stage, vat,
	total_excl_tax, total_tax, total_incl_tax,
	doc_date, valid_until, signed_at, last_followup_at, signature_ref,
	created_at, updated_at`

// GetDocument retrieves a single document with its line items.
func (r *Repository) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: get document: %w", err)
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return doc, nil
}

// ListDocuments returns the complete snapshot for an owner, items included.
// The reporting and action layers depend on this being the whole collection.
func (r *Repository) ListDocuments(ctx context.Context, ownerID int64) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+documentColumns+` FROM documents WHERE owner_id = $1 ORDER BY doc_date, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("billing: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	index := make(map[int64]int)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan document: %w", err)
		}
		index[doc.ID] = len(docs)
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: list documents: %w", err)
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT i.id, i.document_id, i.description, i.quantity, i.unit_price, i.buying_price, i.line_type, i.line_order
		FROM document_items i
		JOIN documents d ON d.id = i.document_id
		WHERE d.owner_id = $1
		ORDER BY i.document_id, i.line_order, i.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("billing: list items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item LineItem
		if err := itemRows.Scan(&item.ID, &item.DocumentID, &item.Description, &item.Quantity, &item.UnitPrice, &item.BuyingPrice, &item.LineType, &item.LineOrder); err != nil {
			return nil, fmt.Errorf("billing: scan item: %w", err)
		}
		if pos, ok := index[item.DocumentID]; ok {
			docs[pos].Items = append(docs[pos].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("billing: list items: %w", err)
	}
	return docs, nil
}

// ListByStatus filters the owner's documents by status, items omitted.
func (r *Repository) ListByStatus(ctx context.Context, ownerID int64, status Status) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+documentColumns+` FROM documents WHERE owner_id = $1 AND status = $2 ORDER BY doc_date, id`, ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("billing: list by status: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ValidateParent checks that the parent exists, belongs to the owner, and that
// linking to it cannot make the child its own ancestor.
func (r *Repository) ValidateParent(ctx context.Context, ownerID, parentID, childID int64) error {
	var parentOwner int64
	err := r.pool.QueryRow(ctx, `SELECT owner_id FROM documents WHERE id = $1`, parentID).Scan(&parentOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownParent
		}
		return fmt.Errorf("billing: validate parent: %w", err)
	}
	if parentOwner != ownerID {
		return ErrUnknownParent
	}
	if childID == 0 {
		// New documents cannot be an ancestor of anything yet.
		return nil
	}
	var cycle bool
	err = r.pool.QueryRow(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM documents WHERE id = $1
			UNION ALL
			SELECT d.id, d.parent_id FROM documents d
			JOIN ancestors a ON d.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`, parentID, childID).Scan(&cycle)
	if err != nil {
		return fmt.Errorf("billing: cycle check: %w", err)
	}
	if cycle {
		return ErrParentCycle
	}
	return nil
}

// UpdateDocumentIf applies the lifecycle-managed fields with a compare-and-swap
// on the expected status. A concurrent write that moved the document away from
// the expected status surfaces as ErrStaleState.
func (r *Repository) UpdateDocumentIf(ctx context.Context, doc Document, expected Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, doc_type = $3, doc_date = $4, signed_at = $5,
		    signature_ref = $6, last_followup_at = $7, work_stage = $8, updated_at = NOW()
		WHERE id = $1 AND status = $9`,
		doc.ID, doc.Status, doc.Type, doc.Date,
		optionalTime(doc.SignedAt), optionalText(doc.SignatureRef),
		optionalTime(doc.LastFollowupAt), optionalStage(doc.WorkStage), expected)
	if err != nil {
		return fmt.Errorf("billing: update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, doc.ID).Scan(&exists); err != nil {
			return fmt.Errorf("billing: update document: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleState
	}
	return nil
}

// ============================================================================
// TRANSACTIONAL OPERATIONS
// ============================================================================

func (t *txRepo) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO documents (
			owner_id, client_id, parent_id, title, doc_type, status, vat,
			total_excl_tax, total_tax, total_incl_tax,
			doc_date, valid_until, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
		RETURNING id`,
		doc.OwnerID, doc.ClientID, optionalInt(doc.ParentID), doc.Title, doc.Type, doc.Status, doc.VAT,
		doc.Totals.TotalExclTax, doc.Totals.TotalTax, doc.Totals.TotalInclTax,
		doc.Date, optionalTime(doc.ValidUntil)).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrUnknownParent
		}
		return 0, fmt.Errorf("billing: insert document: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_items (document_id, description, quantity, unit_price, buying_price, line_type, line_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		item.DocumentID, item.Description, item.Quantity, item.UnitPrice, item.BuyingPrice, item.LineType, item.LineOrder).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("billing: insert line item: %w", err)
	}
	return id, nil
}

func (t *txRepo) DeleteLineItems(ctx context.Context, documentID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("billing: delete line items: %w", err)
	}
	return nil
}

// UpdateDraftFields persists draft-only field edits together with recomputed
// totals. Guarded by status in the predicate so a concurrently advanced
// document is never edited.
func (t *txRepo) UpdateDraftFields(ctx context.Context, doc Document) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE documents
		SET client_id = $2, title = $3, vat = $4,
		    total_excl_tax = $5, total_tax = $6, total_incl_tax = $7,
		    doc_date = $8, valid_until = $9, updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'`,
		doc.ID, doc.ClientID, doc.Title, doc.VAT,
		doc.Totals.TotalExclTax, doc.Totals.TotalTax, doc.Totals.TotalInclTax,
		doc.Date, optionalTime(doc.ValidUntil))
	if err != nil {
		return fmt.Errorf("billing: update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// ============================================================================
// SCANNING
// ============================================================================

func (r *Repository) listItems(ctx context.Context, documentID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, description, quantity, unit_price, buying_price, line_type, line_order
		FROM document_items WHERE document_id = $1 ORDER BY line_order, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("billing: list items: %w", err)
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Description, &item.Quantity, &item.UnitPrice, &item.BuyingPrice, &item.LineType, &item.LineOrder); err != nil {
			return nil, fmt.Errorf("billing: scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var parentID pgtype.Int8
	var workStage, signatureRef pgtype.Text
	var validUntil, signedAt, lastFollowup pgtype.Timestamptz
	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.ClientID, &parentID, &doc.Title, &doc.Type, &doc.Status, &workStage, &doc.VAT,
		&doc.Totals.TotalExclTax, &doc.Totals.TotalTax, &doc.Totals.TotalInclTax,
		&doc.Date, &validUntil, &signedAt, &lastFollowup, &signatureRef,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		v := parentID.Int64
		doc.ParentID = &v
	}
	if workStage.Valid {
		stage := WorkStage(workStage.String)
		doc.WorkStage = &stage
	}
	if signatureRef.Valid {
		ref := signatureRef.String
		doc.SignatureRef = &ref
	}
	if validUntil.Valid {
		t := validUntil.Time
		doc.ValidUntil = &t
	}
	if signedAt.Valid {
		t := signedAt.Time
		doc.SignedAt = &t
	}
	if lastFollowup.Valid {
		t := lastFollowup.Time
		doc.LastFollowupAt = &t
	}
	return &doc, nil
}

// isForeignKeyViolation reports whether err is a PostgreSQL 23503 error,
// raised when a document references a parent that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func optionalInt(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func optionalText(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func optionalStage(v *WorkStage) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*v), Valid: true}
}

func optionalTime(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *v, Valid: true}
}
