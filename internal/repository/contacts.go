// Package repository implements the contact store contract over
// database/sql. Every method excludes soft-deleted rows and orders
// multi-row results by (created_at, id) ascending, so creation order is
// deterministic even when timestamps collide. Survivor selection during
// merges depends on that order being monotonic; any replacement store must
// preserve it.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"contactlink/internal/database"
	"contactlink/internal/errs"
	"contactlink/internal/models"
)

const contactColumns = `id, phone_number, email, linked_id, link_precedence, created_at, updated_at, deleted_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContactRepository provides point and range queries over the contacts
// table, on the pooled connection or inside a transaction.
type ContactRepository struct {
	db *database.DB
	q  querier
}

// New creates a repository bound to the pooled connection.
func New(db *database.DB) *ContactRepository {
	return &ContactRepository{db: db, q: db.Conn}
}

// WithTx runs fn with a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back on error or panic,
// so a mid-sequence failure leaves no partial state.
func (r *ContactRepository) WithTx(ctx context.Context, fn func(*ContactRepository) error) error {
	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&ContactRepository{db: r.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	done = true
	return nil
}

// FindByEmailOrPhone finds all non-deleted contacts whose email equals the
// input email or whose phone equals the input phone. A nil input skips its
// condition; both nil returns no rows.
func (r *ContactRepository) FindByEmailOrPhone(ctx context.Context, email, phone *string) ([]*models.Contact, error) {
	switch {
	case email != nil && phone != nil:
		query := `SELECT ` + contactColumns + ` FROM contacts
			WHERE (email = $1 OR phone_number = $2) AND deleted_at IS NULL
			ORDER BY created_at, id`
		return r.queryContacts(ctx, query, *email, *phone)
	case email != nil:
		query := `SELECT ` + contactColumns + ` FROM contacts
			WHERE email = $1 AND deleted_at IS NULL
			ORDER BY created_at, id`
		return r.queryContacts(ctx, query, *email)
	case phone != nil:
		query := `SELECT ` + contactColumns + ` FROM contacts
			WHERE phone_number = $1 AND deleted_at IS NULL
			ORDER BY created_at, id`
		return r.queryContacts(ctx, query, *phone)
	default:
		return nil, nil
	}
}

// Create inserts a contact and returns it with its assigned id.
func (r *ContactRepository) Create(ctx context.Context, email, phone *string, linkedID *int64, precedence string) (*models.Contact, error) {
	query := `INSERT INTO contacts (phone_number, email, linked_id, link_precedence, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	now := time.Now().UTC()
	var id int64
	if err := r.q.QueryRowContext(ctx, query, phone, email, linkedID, precedence, now, now).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to insert contact: %w", err)
	}

	return &models.Contact{
		ID:             id,
		PhoneNumber:    phone,
		Email:          email,
		LinkedID:       linkedID,
		LinkPrecedence: precedence,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// FindSecondariesOf returns all non-deleted contacts linked to the given
// primary, in creation order.
func (r *ContactRepository) FindSecondariesOf(ctx context.Context, primaryID int64) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE linked_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`
	return r.queryContacts(ctx, query, primaryID)
}

// UpdateLink rewrites a contact's precedence and linkage.
func (r *ContactRepository) UpdateLink(ctx context.Context, id int64, linkedID *int64, precedence string) error {
	query := `UPDATE contacts SET link_precedence = $1, linked_id = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.q.ExecContext(ctx, query, precedence, linkedID, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update contact %d: %w", id, err)
	}
	return nil
}

// RelinkAll bulk-reassigns every secondary of fromPrimaryID to toPrimaryID
// and reports how many rows moved.
func (r *ContactRepository) RelinkAll(ctx context.Context, fromPrimaryID, toPrimaryID int64) (int64, error) {
	query := `UPDATE contacts SET linked_id = $1, updated_at = $2 WHERE linked_id = $3 AND deleted_at IS NULL`
	res, err := r.q.ExecContext(ctx, query, toPrimaryID, time.Now().UTC(), fromPrimaryID)
	if err != nil {
		return 0, fmt.Errorf("failed to relink secondaries of %d: %w", fromPrimaryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count relinked rows: %w", err)
	}
	return n, nil
}

// SoftDelete marks a contact deleted. Administrative operation; the
// reconciliation engine never calls it.
func (r *ContactRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := `UPDATE contacts SET deleted_at = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	if _, err := r.q.ExecContext(ctx, query, now, now, id); err != nil {
		return fmt.Errorf("failed to soft-delete contact %d: %w", id, err)
	}
	return nil
}

// FindByID loads a single non-deleted contact, or errs.ErrNotFound.
func (r *ContactRepository) FindByID(ctx context.Context, id int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND deleted_at IS NULL`
	contacts, err := r.queryContacts(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, errs.ErrNotFound
	}
	return contacts[0], nil
}

// Count returns the number of non-deleted contacts.
func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}

// queryContacts executes a query and scans the resulting contacts.
func (r *ContactRepository) queryContacts(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		c := &models.Contact{}
		var phone, email sql.NullString
		var linkedID sql.NullInt64
		var deletedAt sql.NullTime

		if err := rows.Scan(&c.ID, &phone, &email, &linkedID, &c.LinkPrecedence, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}

		if phone.Valid {
			c.PhoneNumber = &phone.String
		}
		if email.Valid {
			c.Email = &email.String
		}
		if linkedID.Valid {
			c.LinkedID = &linkedID.Int64
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}

		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contact rows: %w", err)
	}
	return contacts, nil
}

// IsTransient reports whether a store error is worth retrying: context
// deadline/cancellation, a driver-level connection failure, or a Postgres
// serialization/deadlock conflict under concurrent merges.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone)
}
