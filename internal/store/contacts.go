package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendalink/server/internal/model/contact"
)

var ErrContactNotFound = errors.New("contact not found")

const contactColumns = `id, user_id, name, phone, COALESCE(email, ''), COALESCE(category, ''), COALESCE(special_date, ''), created_at, updated_at, interactions, last_interaction`

// CreateContact inserts a new agenda entry owned by its UserID.
func (s *Store) CreateContact(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	var lastInteraction any
	if c.LastInteraction != nil {
		lastInteraction = formatTime(*c.LastInteraction)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, phone, email, category, special_date, created_at, updated_at, interactions, last_interaction)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Phone, c.Email, c.Category, c.SpecialDate,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), c.Interactions, lastInteraction)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// GetContact fetches a contact visible to the requester: the owner sees its
// own entries, admins see everything.
func (s *Store) GetContact(ctx context.Context, id, requesterID string, admin bool) (contact.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND (user_id = ? OR ?)`,
		id, requesterID, admin)
	return scanContact(row)
}

// ListContacts returns the contacts visible to the requester.
func (s *Store) ListContacts(ctx context.Context, requesterID string, admin bool) ([]contact.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? OR ? ORDER BY created_at`,
		requesterID, admin)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// AllContacts returns every contact. Used by report aggregation.
func (s *Store) AllContacts(ctx context.Context) ([]contact.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("all contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// UpdateContact rewrites the mutable fields of a contact visible to the
// requester and bumps updated_at.
func (s *Store) UpdateContact(ctx context.Context, c contact.Contact, requesterID string, admin bool) (contact.Contact, error) {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, phone = ?, email = ?, category = ?, special_date = ?, updated_at = ?
		 WHERE id = ? AND (user_id = ? OR ?)`,
		c.Name, c.Phone, c.Email, c.Category, c.SpecialDate, formatTime(c.UpdatedAt),
		c.ID, requesterID, admin)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return contact.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	if affected == 0 {
		return contact.Contact{}, ErrContactNotFound
	}
	return s.GetContact(ctx, c.ID, requesterID, admin)
}

// DeleteContact removes a contact visible to the requester.
func (s *Store) DeleteContact(ctx context.Context, id, requesterID string, admin bool) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND (user_id = ? OR ?)`,
		id, requesterID, admin)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// RecordInteraction bumps a contact's interaction counter and timestamp.
func (s *Store) RecordInteraction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET interactions = interactions + 1, last_interaction = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

func collectContacts(rows *sql.Rows) ([]contact.Contact, error) {
	var contacts []contact.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(row rowScanner) (contact.Contact, error) {
	var c contact.Contact
	var createdAt, updatedAt string
	var lastInteraction sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Category, &c.SpecialDate,
		&createdAt, &updatedAt, &c.Interactions, &lastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		return contact.Contact{}, ErrContactNotFound
	}
	if err != nil {
		return contact.Contact{}, fmt.Errorf("scan contact: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	if lastInteraction.Valid && lastInteraction.String != "" {
		t := parseTime(lastInteraction.String)
		c.LastInteraction = &t
	}
	return c, nil
}
