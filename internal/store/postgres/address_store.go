package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/polywatch/polywatch/internal/domain"
)

// AddressStore is the persisted tracked-address registry. Addresses are
// normalized to lowercase on write so lookups are case-insensitive.
type AddressStore struct {
	client *Client
}

// NewAddressStore creates an AddressStore backed by the given client.
func NewAddressStore(client *Client) *AddressStore {
	return &AddressStore{client: client}
}

// Add registers a tracked address. Returns domain.ErrAlreadyExists when the
// address is already registered.
func (s *AddressStore) Add(ctx context.Context, address string) error {
	tag, err := s.client.pool.Exec(ctx,
		"INSERT INTO user_addresses (address) VALUES ($1) ON CONFLICT (address) DO NOTHING",
		strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Remove unregisters a tracked address. Returns domain.ErrNotFound when the
// address was not registered.
func (s *AddressStore) Remove(ctx context.Context, address string) error {
	tag, err := s.client.pool.Exec(ctx,
		"DELETE FROM user_addresses WHERE address = $1",
		strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("postgres: delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all tracked addresses in registration order.
func (s *AddressStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.client.pool.Query(ctx,
		"SELECT address FROM user_addresses ORDER BY created_at ASC, address ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("postgres: scan address row: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate address rows: %w", err)
	}
	return addresses, nil
}

// Addresses implements domain.AddressProvider on top of the registry.
func (s *AddressStore) Addresses(ctx context.Context) ([]string, error) {
	return s.List(ctx)
}
