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

type PairingStore struct {
	db *database.DB
}

func NewPairingStore(db *database.DB) *PairingStore {
	return &PairingStore{db: db}
}

func scanPairing(s scanner) (*model.Pairing, error) {
	var p model.Pairing
	var verseID, curationID, author, title, work, source, text sql.NullString
	err := s.Scan(
		&p.ID, &p.PairingDate, &p.Locale, &p.Status, &verseID, &curationID,
		&author, &title, &work, &source, &text,
		&p.RationaleShort, &p.IsSafeSet, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.VerseID = stringPtr(verseID)
	p.CurationID = stringPtr(curationID)
	p.LiteratureAuthor = stringPtr(author)
	p.LiteratureTitle = stringPtr(title)
	p.LiteratureWork = stringPtr(work)
	p.LiteratureSource = stringPtr(source)
	p.LiteratureText = stringPtr(text)
	return &p, nil
}

const pairingCols = `id, pairing_date, locale, status, verse_id, curation_id, literature_author, literature_title, literature_work, literature_source, literature_text, rationale_short, is_safe_set, created_at, updated_at`

// PairingFields are the editable columns of a pairing. Optional strings are
// trimmed and stored as NULL when blank. Status is only written when set.
type PairingFields struct {
	PairingDate      string
	Locale           string
	Status           string
	VerseID          *string
	CurationID       *string
	LiteratureAuthor *string
	LiteratureTitle  *string
	LiteratureWork   *string
	LiteratureSource *string
	LiteratureText   *string
	RationaleShort   string
	IsSafeSet        bool
}

// TryInsert creates a pairing unless (date, locale) is already taken, in which
// case Existing carries the pairing holding the slot.
func (s *PairingStore) TryInsert(ctx context.Context, f PairingFields) (InsertResult[model.Pairing], error) {
	pid, err := id.Generate(id.Pairing)
	if err != nil {
		return InsertResult[model.Pairing]{}, err
	}
	status := f.Status
	if status == "" {
		status = model.StatusDraft
	}
	ts := now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pairings (`+pairingCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pid, f.PairingDate, f.Locale, status, nullString(f.VerseID), nullString(f.CurationID),
		nullString(f.LiteratureAuthor), nullString(f.LiteratureTitle), nullString(f.LiteratureWork),
		nullString(f.LiteratureSource), nullString(f.LiteratureText),
		strings.TrimSpace(f.RationaleShort), f.IsSafeSet, ts, ts,
	)
	if database.IsUniqueViolation(err) {
		existing, ferr := s.FindBySlot(ctx, f.PairingDate, f.Locale)
		if ferr != nil {
			return InsertResult[model.Pairing]{}, ferr
		}
		return InsertResult[model.Pairing]{Existing: existing}, nil
	}
	if err != nil {
		return InsertResult[model.Pairing]{}, fmt.Errorf("insert pairing: %w", err)
	}

	p, err := s.GetByID(ctx, pid)
	if err != nil {
		return InsertResult[model.Pairing]{}, err
	}
	return InsertResult[model.Pairing]{Created: true, Row: p}, nil
}

// Update overwrites the editable fields of an existing pairing. It returns nil
// when the id does not exist.
func (s *PairingStore) Update(ctx context.Context, pairingID string, f PairingFields) (*model.Pairing, error) {
	set := `pairing_date = ?, locale = ?, verse_id = ?, curation_id = ?, literature_author = ?, literature_title = ?, literature_work = ?, literature_source = ?, literature_text = ?, rationale_short = ?, is_safe_set = ?, updated_at = ?`
	args := []any{
		f.PairingDate, f.Locale, nullString(f.VerseID), nullString(f.CurationID),
		nullString(f.LiteratureAuthor), nullString(f.LiteratureTitle), nullString(f.LiteratureWork),
		nullString(f.LiteratureSource), nullString(f.LiteratureText),
		strings.TrimSpace(f.RationaleShort), f.IsSafeSet, now(),
	}
	if f.Status != "" {
		set += `, status = ?`
		args = append(args, f.Status)
	}
	args = append(args, pairingID)

	res, err := s.db.ExecContext(ctx, `UPDATE pairings SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update pairing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, pairingID)
}

func (s *PairingStore) GetByID(ctx context.Context, pairingID string) (*model.Pairing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pairingCols+` FROM pairings WHERE id = ?`, pairingID)
	p, err := scanPairing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pairing: %w", err)
	}
	return p, nil
}

// FindBySlot returns the pairing scheduled for (date, locale) in any status.
func (s *PairingStore) FindBySlot(ctx context.Context, date, locale string) (*model.Pairing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pairingCols+` FROM pairings WHERE pairing_date = ? AND locale = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		date, locale,
	)
	p, err := scanPairing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pairing by slot: %w", err)
	}
	return p, nil
}

// FindApprovedInSlot returns an approved pairing for (date, locale) other than
// excludeID, or nil.
func (s *PairingStore) FindApprovedInSlot(ctx context.Context, date, locale, excludeID string) (*model.Pairing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pairingCols+` FROM pairings WHERE pairing_date = ? AND locale = ? AND status = ? AND id <> ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		date, locale, model.StatusApproved, excludeID,
	)
	p, err := scanPairing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find approved pairing in slot: %w", err)
	}
	return p, nil
}

// Approved returns the newest approved pairing for (date, locale), or nil.
func (s *PairingStore) Approved(ctx context.Context, date, locale string) (*model.Pairing, error) {
	return s.FindApprovedInSlot(ctx, date, locale, "")
}

// LatestSafeSet returns the newest approved pairing flagged is_safe_set for locale.
func (s *PairingStore) LatestSafeSet(ctx context.Context, locale string) (*model.Pairing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pairingCols+` FROM pairings WHERE status = ? AND locale = ? AND is_safe_set = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		model.StatusApproved, locale, true,
	)
	p, err := scanPairing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get safe set pairing: %w", err)
	}
	return p, nil
}

// SetStatus changes the status of a pairing. It reports whether the row exists.
func (s *PairingStore) SetStatus(ctx context.Context, pairingID, status string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pairings SET status = ?, updated_at = ? WHERE id = ?`,
		status, now(), pairingID,
	)
	if err != nil {
		return false, fmt.Errorf("set pairing status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetDate moves a pairing to another date. A collision with the (date, locale)
// constraint is detectable with database.IsUniqueViolation.
func (s *PairingStore) SetDate(ctx context.Context, pairingID, date string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pairings SET pairing_date = ?, updated_at = ? WHERE id = ?`,
		date, now(), pairingID,
	)
	if err != nil {
		return false, fmt.Errorf("set pairing date: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns pairings matching f, newest date first.
func (s *PairingStore) List(ctx context.Context, f model.PairingFilter) ([]model.Pairing, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Locale != "" {
		where = append(where, "locale = ?")
		args = append(args, f.Locale)
	}
	if f.From != "" {
		where = append(where, "pairing_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "pairing_date <= ?")
		args = append(args, f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT ` + pairingCols + ` FROM pairings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY pairing_date DESC, locale, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pairings: %w", err)
	}
	defer rows.Close()

	var pairings []model.Pairing
	for rows.Next() {
		p, err := scanPairing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pairing: %w", err)
		}
		pairings = append(pairings, *p)
	}
	return pairings, rows.Err()
}
