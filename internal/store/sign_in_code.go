package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/id"
	"github.com/dukerupert/quietcuration/internal/model"
)

const (
	SignInCodeTTL         = 15 * time.Minute
	MaxSignInCodeAttempts = 5
)

type SignInCodeStore struct {
	db *database.DB
}

func NewSignInCodeStore(db *database.DB) *SignInCodeStore {
	return &SignInCodeStore{db: db}
}

func scanSignInCode(s scanner) (*model.SignInCode, error) {
	var c model.SignInCode
	var usedAt sql.NullTime
	err := s.Scan(&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &usedAt, &c.Attempts, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.UsedAt = timePtr(usedAt)
	return &c, nil
}

const signInCodeCols = `id, email, code_hash, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new code for email and returns it in plain text alongside
// the stored row. Earlier pending codes for the email are invalidated.
func (s *SignInCodeStore) Create(ctx context.Context, email string) (*model.SignInCode, string, error) {
	email = NormalizeEmail(email)
	ts := now()

	_, err := s.db.ExecContext(ctx,
		`UPDATE sign_in_codes SET used_at = ? WHERE email = ? AND used_at IS NULL AND expires_at > ?`,
		ts, email, ts,
	)
	if err != nil {
		return nil, "", fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash code: %w", err)
	}
	cid, err := id.Generate(id.Code)
	if err != nil {
		return nil, "", err
	}

	c := &model.SignInCode{
		ID:        cid,
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: ts.Add(SignInCodeTTL),
		CreatedAt: ts,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sign_in_codes (id, email, code_hash, expires_at, attempts, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		c.ID, c.Email, c.CodeHash, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert sign-in code: %w", err)
	}
	return c, code, nil
}

// GetLatestByEmail returns the most recent valid (unexpired, unused) code for an email.
func (s *SignInCodeStore) GetLatestByEmail(ctx context.Context, email string) (*model.SignInCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+signInCodeCols+` FROM sign_in_codes WHERE email = ? AND expires_at > ? AND used_at IS NULL ORDER BY created_at DESC LIMIT 1`,
		NormalizeEmail(email), now(),
	)
	c, err := scanSignInCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest sign-in code: %w", err)
	}
	return c, nil
}

// Verify checks code against the latest pending code for email. A wrong code
// counts as an attempt; the fifth wrong attempt burns the code. A match marks
// the code used. It reports whether the code matched.
func (s *SignInCodeStore) Verify(ctx context.Context, email, code string) (bool, error) {
	c, err := s.GetLatestByEmail(ctx, email)
	if err != nil || c == nil {
		return false, err
	}
	if c.Attempts >= MaxSignInCodeAttempts {
		return false, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		attempts, err := s.IncrementAttempts(ctx, c.ID)
		if err != nil {
			return false, err
		}
		if attempts >= MaxSignInCodeAttempts {
			if err := s.MarkUsed(ctx, c.ID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if err := s.MarkUsed(ctx, c.ID); err != nil {
		return false, err
	}
	return true, nil
}

// IncrementAttempts increments the attempt count and returns the new value.
func (s *SignInCodeStore) IncrementAttempts(ctx context.Context, codeID string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`UPDATE sign_in_codes SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`,
		codeID,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

func (s *SignInCodeStore) MarkUsed(ctx context.Context, codeID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sign_in_codes SET used_at = ? WHERE id = ?`, now(), codeID)
	if err != nil {
		return fmt.Errorf("mark sign-in code used: %w", err)
	}
	return nil
}

func (s *SignInCodeStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sign_in_codes WHERE expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sign-in codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
