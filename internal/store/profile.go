package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/id"
	"github.com/dukerupert/quietcuration/internal/model"
)

type ProfileStore struct {
	db *database.DB
}

func NewProfileStore(db *database.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(s scanner) (*model.Profile, error) {
	var p model.Profile
	var email sql.NullString
	err := s.Scan(&p.ID, &email, &p.DisplayName, &p.Role, &p.NotificationOptIn, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Email = stringPtr(email)
	return &p, nil
}

const profileCols = `id, email, display_name, role, notification_opt_in, created_at, updated_at`

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a profile. A nil email creates a profile that cannot receive
// invites.
func (s *ProfileStore) Create(ctx context.Context, email *string, displayName, role string) (*model.Profile, error) {
	pid, err := id.Generate(id.Profile)
	if err != nil {
		return nil, err
	}
	var e sql.NullString
	if email != nil {
		norm := NormalizeEmail(*email)
		e = nullString(&norm)
	}
	if role == "" {
		role = model.RoleUser
	}
	ts := now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, display_name, role, notification_opt_in, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pid, e, displayName, role, false, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(ctx, pid)
}

func (s *ProfileStore) GetByID(ctx context.Context, profileID string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = ?`, profileID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profiles WHERE email = ?`, NormalizeEmail(email))
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}

// Update changes the user-editable fields of a profile.
func (s *ProfileStore) Update(ctx context.Context, profileID, displayName string, optIn bool) (*model.Profile, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET display_name = ?, notification_opt_in = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(displayName), optIn, now(), profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, profileID)
}

// SetRole changes the role of the profile with the given email. It returns nil
// when no such profile exists.
func (s *ProfileStore) SetRole(ctx context.Context, email, role string) (*model.Profile, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET role = ?, updated_at = ? WHERE email = ?`,
		role, now(), NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("set profile role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByEmail(ctx, email)
}

// ListOptedIn returns every profile with notification_opt_in set, oldest first.
func (s *ProfileStore) ListOptedIn(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE notification_opt_in = ? ORDER BY created_at, id`, true,
	)
	if err != nil {
		return nil, fmt.Errorf("list opted-in profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
