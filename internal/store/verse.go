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

type VerseStore struct {
	db *database.DB
}

func NewVerseStore(db *database.DB) *VerseStore {
	return &VerseStore{db: db}
}

func scanVerse(s scanner) (*model.Verse, error) {
	var v model.Verse
	err := s.Scan(&v.ID, &v.Locale, &v.Translation, &v.Book, &v.Chapter, &v.Verse, &v.CanonicalRef, &v.Text, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

const verseCols = `id, locale, translation, book, chapter, verse, canonical_ref, verse_text, created_at`

func (s *VerseStore) GetByID(ctx context.Context, verseID string) (*model.Verse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+verseCols+` FROM verses WHERE id = ?`, verseID)
	v, err := scanVerse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verse: %w", err)
	}
	return v, nil
}

// VerseQuery filters a verse search. Empty fields match everything.
type VerseQuery struct {
	Text        string
	Locale      string
	Translation string
	Limit       int
}

// Search matches q.Text case-insensitively against the reference and verse text.
func (s *VerseStore) Search(ctx context.Context, q VerseQuery) ([]model.Verse, error) {
	var where []string
	var args []any
	if q.Locale != "" {
		where = append(where, "locale = ?")
		args = append(args, q.Locale)
	}
	if q.Translation != "" {
		where = append(where, "translation = ?")
		args = append(args, q.Translation)
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		where = append(where, "(LOWER(canonical_ref) LIKE ? OR LOWER(verse_text) LIKE ?)")
		args = append(args, like, like)
	}
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + verseCols + ` FROM verses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY book, chapter, verse LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search verses: %w", err)
	}
	defer rows.Close()

	var verses []model.Verse
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		verses = append(verses, *v)
	}
	return verses, rows.Err()
}

// UpsertBatch writes verses keyed by (locale, translation, book, chapter,
// verse) in a single transaction. With update set, existing rows take the new
// reference and text; otherwise they are left alone. It returns the number of
// rows written.
func (s *VerseStore) UpsertBatch(ctx context.Context, verses []model.Verse, update bool) (int64, error) {
	if len(verses) == 0 {
		return 0, nil
	}

	conflict := ` ON CONFLICT (locale, translation, book, chapter, verse) DO NOTHING`
	if update {
		conflict = ` ON CONFLICT (locale, translation, book, chapter, verse) DO UPDATE SET canonical_ref = excluded.canonical_ref, verse_text = excluded.verse_text`
	}
	query := s.db.Rebind(`INSERT INTO verses (` + verseCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)` + conflict)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin verse batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare verse upsert: %w", err)
	}
	defer stmt.Close()

	ts := now()
	var written int64
	for _, v := range verses {
		vid, err := id.Generate(id.Verse)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, vid, v.Locale, v.Translation, v.Book, v.Chapter, v.Verse, v.CanonicalRef, v.Text, ts)
		if err != nil {
			return 0, fmt.Errorf("upsert verse %s: %w", v.CanonicalRef, err)
		}
		n, _ := res.RowsAffected()
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit verse batch: %w", err)
	}
	return written, nil
}
