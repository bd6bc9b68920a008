package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the client does not exist.
var ErrNotFound = errors.New("directory: client not found")

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetClient retrieves a client by id.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, email, phone, address, status, created_at, updated_at
		FROM clients WHERE id = $1`, id)
	var c Client
	var email, phone, address pgtype.Text
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &email, &phone, &address, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory: get client: %w", err)
	}
	if email.Valid {
		v := email.String
		c.Email = &v
	}
	if phone.Valid {
		v := phone.String
		c.Phone = &v
	}
	if address.Valid {
		v := address.String
		c.Address = &v
	}
	return &c, nil
}

// GetClientName resolves a client's display name.
func (r *Repository) GetClientName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM clients WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("directory: get client name: %w", err)
	}
	return name, nil
}

// SetClientStatus updates the CRM status. Billing calls this fire-and-forget
// when a document is signed.
func (r *Repository) SetClientStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("directory: set client status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
