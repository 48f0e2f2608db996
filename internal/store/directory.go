package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

// Account loads an account profile.
func (s *Store) Account(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	var role string
	var lat, lon sql.NullFloat64
	err := s.queryRow(ctx,
		`SELECT id, email, role, timezone_name, latitude, longitude FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &role, &a.TimezoneName, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	a.Role = model.Role(role)
	if lat.Valid && lon.Valid {
		a.Coordinates = &model.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &a, nil
}

// Household loads the account with its caregivers and kids in id order.
func (s *Store) Household(ctx context.Context, accountID int64) (*model.Household, error) {
	account, err := s.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	h := &model.Household{Account: account}

	rows, err := s.query(ctx,
		`SELECT id, account_id, first_name, last_name FROM caregivers WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query caregivers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Caregiver
		if err := rows.Scan(&c.ID, &c.AccountID, &c.FirstName, &c.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		h.Caregivers = append(h.Caregivers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate caregivers: %w", err)
	}

	kids, err := s.kids(ctx, accountID)
	if err != nil {
		return nil, err
	}
	h.Kids = kids
	return h, nil
}

func (s *Store) kids(ctx context.Context, accountID int64) ([]model.Kid, error) {
	rows, err := s.query(ctx,
		`SELECT id, account_id, first_name, birthday FROM kids WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		var k model.Kid
		var birthday string
		if err := rows.Scan(&k.ID, &k.AccountID, &k.FirstName, &birthday); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		k.Birthday, err = time.Parse(model.DateLayout, birthday)
		if err != nil {
			return nil, fmt.Errorf("invalid birthday for kid %d: %w", k.ID, err)
		}
		kids = append(kids, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kids: %w", err)
	}
	return kids, nil
}

// InsertAccount stores an account profile.
func (s *Store) InsertAccount(ctx context.Context, a model.Account) error {
	var lat, lon any
	if a.Coordinates != nil {
		lat, lon = a.Coordinates.Latitude, a.Coordinates.Longitude
	}
	_, err := s.exec(ctx,
		`INSERT INTO accounts (id, email, role, timezone_name, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, string(a.Role), a.TimezoneName, lat, lon)
	if err != nil {
		return fmt.Errorf("failed to insert account %d: %w", a.ID, err)
	}
	return nil
}

// InsertCaregiver stores a caregiver.
func (s *Store) InsertCaregiver(ctx context.Context, c model.Caregiver) error {
	_, err := s.exec(ctx,
		`INSERT INTO caregivers (id, account_id, first_name, last_name) VALUES (?, ?, ?, ?)`,
		c.ID, c.AccountID, c.FirstName, c.LastName)
	if err != nil {
		return fmt.Errorf("failed to insert caregiver %d: %w", c.ID, err)
	}
	return nil
}

// InsertKid stores a kid.
func (s *Store) InsertKid(ctx context.Context, k model.Kid) error {
	_, err := s.exec(ctx,
		`INSERT INTO kids (id, account_id, first_name, birthday) VALUES (?, ?, ?, ?)`,
		k.ID, k.AccountID, k.FirstName, k.Birthday.Format(model.DateLayout))
	if err != nil {
		return fmt.Errorf("failed to insert kid %d: %w", k.ID, err)
	}
	return nil
}
