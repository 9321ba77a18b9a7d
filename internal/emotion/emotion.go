// Package emotion records the reader's daily check-in.
package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/today"
)

const MemoMaxLength = 160

type Option struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	UILine string `json:"ui_line"`
}

var Taxonomy = []Option{
	{ID: "peace", Label: "Peace", UILine: "My mind is quiet; I can stay present."},
	{ID: "anxiety", Label: "Anxiety", UILine: "The future feels loud and unsettling."},
	{ID: "weariness", Label: "Weariness", UILine: "I’ve tried hard; my strength feels low."},
	{ID: "loneliness", Label: "Loneliness", UILine: "I feel alone and need connection."},
	{ID: "hope", Label: "Hope", UILine: "A small light is there; I can keep going."},
	{ID: "gratitude", Label: "Gratitude", UILine: "I can name a reason to be thankful today."},
	{ID: "grief", Label: "Grief", UILine: "Loss or disappointment still hurts."},
	{ID: "confusion", Label: "Confusion", UILine: "I’m unsure; I need clarity and discernment."},
	{ID: "joy", Label: "Joy", UILine: "Quiet joy is rising in me."},
}

func Supported(id string) bool {
	for _, o := range Taxonomy {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Label returns the display label for id, or id itself when unknown.
func Label(id string) string {
	for _, o := range Taxonomy {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

type Input struct {
	EmotionPrimary string `json:"emotion_primary"`
	Memo           string `json:"memo"`
	Locale         string `json:"locale"`
}

type Service struct {
	events  *store.EmotionStore
	today   *today.Resolver
	enabled bool
	logger  *slog.Logger
}

func NewService(db *database.DB, resolver *today.Resolver, enabled bool, logger *slog.Logger) *Service {
	return &Service{
		events:  store.NewEmotionStore(db),
		today:   resolver,
		enabled: enabled,
		logger:  logger.With("component", "emotion"),
	}
}

func (s *Service) Enabled() bool { return s.enabled }

// Upsert records today's check-in for userID, replacing an earlier one from
// the same day. The event links to today's pairing when there is one.
func (s *Service) Upsert(ctx context.Context, userID string, in Input) (*model.EmotionEvent, error) {
	if !s.enabled {
		return nil, apperr.Disabled("Emotion logging is currently disabled.")
	}
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}

	primary := strings.TrimSpace(in.EmotionPrimary)
	if primary == "" {
		return nil, apperr.Validation([]string{"Select a primary emotion."})
	}
	if !Supported(primary) {
		return nil, apperr.Validation([]string{"Selected emotion is not supported."})
	}
	memo := strings.TrimSpace(in.Memo)
	if utf8.RuneCountInString(memo) > MemoMaxLength {
		return nil, apperr.Validation([]string{fmt.Sprintf("Memo must be %d characters or fewer.", MemoMaxLength)})
	}

	event := model.EmotionEvent{
		UserID:         userID,
		EventDate:      s.today.Date(),
		EmotionPrimary: primary,
		MemoShort:      &memo,
	}

	p, _, err := s.today.Pairing(ctx, in.Locale)
	if err != nil {
		s.logger.Warn("resolve pairing for emotion event", "user_id", userID, "locale", in.Locale, "error", err)
	}
	if p != nil {
		event.PairingID = &p.ID
		event.CurationID = p.CurationID
	}

	saved, err := s.events.Upsert(ctx, event)
	if err != nil {
		s.logger.Error("save emotion event", "user_id", userID, "emotion_primary", primary, "memo_len", utf8.RuneCountInString(memo), "error", err)
		return nil, apperr.Internal(err)
	}
	return saved, nil
}

// Today returns the caller's check-in for the current date, or nil.
func (s *Service) Today(ctx context.Context, userID string) (*model.EmotionEvent, error) {
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	e, err := s.events.Get(ctx, userID, s.today.Date())
	if err != nil {
		s.logger.Error("load emotion event", "user_id", userID, "error", err)
		return nil, apperr.Internal(err)
	}
	return e, nil
}
