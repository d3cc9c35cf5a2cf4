package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/docstore/internal/domain"
)

// CreateClient inserts a new client row and returns the assigned id.
// The store assigns both timestamps.
func (s *Store) CreateClient(ctx context.Context, input domain.ClientInput) (int64, error) {
	now := formatTime(time.Now())

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clients
		(first_name, last_name, social_security_number, address, phone_number, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		input.FirstName,
		input.LastName,
		input.SocialSecurityNumber,
		input.Address,
		input.PhoneNumber,
		input.Email,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert client: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert client: %w", err)
	}
	return id, nil
}

// GetClient returns the client with the given id, or (nil, nil) if no
// such client exists. A non-nil error means the read itself failed.
func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, first_name, last_name, social_security_number,
		       address, phone_number, email, created_at, updated_at
		FROM clients
		WHERE client_id = ?
	`, id)

	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query client %d: %w", id, err)
	}
	return client, nil
}

// ListClients returns all clients. Order is unspecified.
func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, first_name, last_name, social_security_number,
		       address, phone_number, email, created_at, updated_at
		FROM clients
	`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		c                  domain.Client
		createdAt, updated string
	)
	if err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.SocialSecurityNumber,
		&c.Address,
		&c.PhoneNumber,
		&c.Email,
		&createdAt,
		&updated,
	); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}
