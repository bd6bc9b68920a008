// Package directory is the client CRM collaborator: it owns client contact
// records and a coarse CRM status the billing lifecycle pushes into.
package directory

import "time"

// CRM statuses.
const (
	StatusProspect = "prospect"
	StatusSigned   = "signed"
)

// Client is a customer contact record, owned outside the billing core.
type Client struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
