// Package pairing manages the curation lifecycle: drafting, approval and
// scheduling of verse/literature pairings.
package pairing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/validation"
	"github.com/dukerupert/quietcuration/internal/websocket"
)

const (
	msgSlotTaken     = "Pairing already exists for this date and locale."
	msgNotFound      = "Pairing not found."
	msgAlreadyLive   = "Already approved for this date and locale."
	msgNotApproved   = "Only approved pairings can be set as today."
	msgTodayTaken    = "Already approved for today."
	msgLocaleChanged = "Locale does not match the pairing."
)

// Notifier receives change notifications. *websocket.Hub satisfies it.
type Notifier interface {
	Broadcast(msg websocket.Message)
}

// Input is the editor form. An empty ID creates a new pairing.
type Input struct {
	ID               string  `json:"id"`
	PairingDate      string  `json:"pairing_date" validate:"required,isodate"`
	Locale           string  `json:"locale" validate:"required,oneof=en ko"`
	Status           string  `json:"status"`
	VerseID          *string `json:"verse_id"`
	CurationID       *string `json:"curation_id"`
	LiteratureAuthor *string `json:"literature_author"`
	LiteratureTitle  *string `json:"literature_title"`
	LiteratureWork   *string `json:"literature_work"`
	LiteratureSource *string `json:"literature_source"`
	LiteratureText   *string `json:"literature_text"`
	RationaleShort   *string `json:"rationale_short"`
	IsSafeSet        bool    `json:"is_safe_set"`
}

// Result reports the outcome of a successful action.
type Result struct {
	PairingID   string    `json:"pairing_id"`
	Status      string    `json:"status"`
	LastSavedAt time.Time `json:"last_saved_at"`
}

type Service struct {
	pairings  *store.PairingStore
	verses    *store.VerseStore
	calendar  *dates.Calendar
	validator *validation.Validator
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(db *database.DB, calendar *dates.Calendar, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		pairings:  store.NewPairingStore(db),
		verses:    store.NewVerseStore(db),
		calendar:  calendar,
		validator: validation.New(),
		notifier:  notifier,
		logger:    logger.With("component", "pairing"),
	}
}

func requireCurator(actor auth.AuthContext) error {
	if actor.UserID == "" {
		return apperr.ErrNotAuthenticated
	}
	if !model.CanCurate(actor.Role) {
		return apperr.ErrNotAuthorized
	}
	return nil
}

func (s *Service) notify(action, pairingID string, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(websocket.PairingChanged(action, pairingID, extra))
}

func slotConflict(msg string, existing *model.Pairing) *apperr.Error {
	err := apperr.Conflict(msg).WithDetail("errors", []string{msg})
	if existing != nil {
		err = err.WithDetail("existing_pairing_id", existing.ID)
	}
	return err
}

func result(p *model.Pairing) Result {
	return Result{PairingID: p.ID, Status: p.Status, LastSavedAt: p.UpdatedAt}
}

// Save creates or updates a pairing draft.
func (s *Service) Save(ctx context.Context, actor auth.AuthContext, in Input) (Result, error) {
	if err := requireCurator(actor); err != nil {
		return Result{}, err
	}

	in.ID = strings.TrimSpace(in.ID)
	in.PairingDate = strings.TrimSpace(in.PairingDate)
	in.Locale = strings.TrimSpace(in.Locale)
	if msgs := s.validator.Translate(in, slotMessages); len(msgs) > 0 {
		return Result{}, apperr.Validation(msgs)
	}

	if !blank(in.VerseID) {
		verse, err := s.verses.GetByID(ctx, strings.TrimSpace(*in.VerseID))
		if err != nil {
			return Result{}, s.internal("look up verse", err)
		}
		if verse == nil {
			return Result{}, apperr.Validation([]string{"Verse not found in DB."})
		}
	}

	fields := store.PairingFields{
		PairingDate:      in.PairingDate,
		Locale:           in.Locale,
		VerseID:          in.VerseID,
		CurationID:       in.CurationID,
		LiteratureAuthor: in.LiteratureAuthor,
		LiteratureTitle:  in.LiteratureTitle,
		LiteratureWork:   in.LiteratureWork,
		LiteratureSource: in.LiteratureSource,
		LiteratureText:   in.LiteratureText,
		IsSafeSet:        in.IsSafeSet,
	}
	if in.RationaleShort != nil {
		fields.RationaleShort = *in.RationaleShort
	}
	if in.Status == model.StatusDraft {
		fields.Status = model.StatusDraft
	}

	var saved *model.Pairing
	if in.ID == "" {
		existing, err := s.pairings.FindBySlot(ctx, in.PairingDate, in.Locale)
		if err != nil {
			return Result{}, s.internal("check pairing slot", err)
		}
		if existing != nil {
			return Result{}, slotConflict(msgSlotTaken, existing)
		}

		res, err := s.pairings.TryInsert(ctx, fields)
		if err != nil {
			return Result{}, s.internal("insert pairing", err)
		}
		if !res.Created {
			return Result{}, slotConflict(msgSlotTaken, res.Existing)
		}
		saved = res.Row
	} else {
		p, err := s.pairings.Update(ctx, in.ID, fields)
		if err != nil {
			if database.IsUniqueViolation(err) {
				existing, ferr := s.pairings.FindBySlot(ctx, in.PairingDate, in.Locale)
				if ferr != nil {
					s.logger.Error("find conflicting pairing", "error", ferr)
				}
				return Result{}, slotConflict(msgSlotTaken, existing)
			}
			return Result{}, s.internal("update pairing", err)
		}
		if p == nil {
			return Result{}, apperr.NotFound(msgNotFound)
		}
		saved = p
	}

	s.logger.Info("pairing saved", "pairing_id", saved.ID, "date", saved.PairingDate, "locale", saved.Locale, "user_id", actor.UserID)
	s.notify(websocket.ActionSaved, saved.ID, map[string]any{"locale": saved.Locale})
	return result(saved), nil
}

// Approve publishes a pairing once it passes content validation and its slot
// holds no other approved pairing.
func (s *Service) Approve(ctx context.Context, actor auth.AuthContext, pairingID string) (Result, error) {
	if err := requireCurator(actor); err != nil {
		return Result{}, err
	}
	p, err := s.load(ctx, pairingID)
	if err != nil {
		return Result{}, err
	}

	if msgs := s.publishable(ctx, p); len(msgs) > 0 {
		return Result{}, apperr.Validation(msgs)
	}

	// The slot index covers every status, so this only fires if that index
	// is ever narrowed to approved rows.
	other, err := s.pairings.FindApprovedInSlot(ctx, p.PairingDate, p.Locale, p.ID)
	if err != nil {
		return Result{}, s.internal("check approved slot", err)
	}
	if other != nil {
		return Result{}, slotConflict(msgAlreadyLive, other)
	}

	return s.transition(ctx, actor, p, model.StatusApproved, websocket.ActionApproved)
}

// Unapprove reverts a pairing to draft.
func (s *Service) Unapprove(ctx context.Context, actor auth.AuthContext, pairingID string) (Result, error) {
	if err := requireCurator(actor); err != nil {
		return Result{}, err
	}
	p, err := s.load(ctx, pairingID)
	if err != nil {
		return Result{}, err
	}
	return s.transition(ctx, actor, p, model.StatusDraft, websocket.ActionUnapproved)
}

func (s *Service) transition(ctx context.Context, actor auth.AuthContext, p *model.Pairing, status, action string) (Result, error) {
	ok, err := s.pairings.SetStatus(ctx, p.ID, status)
	if err != nil {
		return Result{}, s.internal("set pairing status", err)
	}
	if !ok {
		return Result{}, apperr.NotFound(msgNotFound)
	}
	updated, err := s.load(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("pairing status changed", "pairing_id", p.ID, "status", status, "user_id", actor.UserID)
	s.notify(action, p.ID, map[string]any{"locale": p.Locale})
	return result(updated), nil
}

// SetToday moves an approved pairing to today's date in the audience
// timezone. An empty locale means the pairing's own locale.
func (s *Service) SetToday(ctx context.Context, actor auth.AuthContext, pairingID, locale string) (Result, error) {
	if err := requireCurator(actor); err != nil {
		return Result{}, err
	}
	p, err := s.load(ctx, pairingID)
	if err != nil {
		return Result{}, err
	}

	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = p.Locale
	}
	if locale != p.Locale {
		return Result{}, apperr.Validation([]string{msgLocaleChanged})
	}
	if p.Status != model.StatusApproved {
		return Result{}, apperr.Validation([]string{msgNotApproved})
	}

	today := s.calendar.Today()
	other, err := s.pairings.FindApprovedInSlot(ctx, today, locale, p.ID)
	if err != nil {
		return Result{}, s.internal("check today's slot", err)
	}
	if other != nil {
		return Result{}, slotConflict(msgTodayTaken, other)
	}

	ok, err := s.pairings.SetDate(ctx, p.ID, today)
	if err != nil {
		if database.IsUniqueViolation(err) {
			holder, ferr := s.pairings.FindBySlot(ctx, today, locale)
			if ferr != nil {
				s.logger.Error("find pairing holding today's slot", "error", ferr)
			}
			return Result{}, slotConflict(msgTodayTaken, holder)
		}
		return Result{}, s.internal("set pairing date", err)
	}
	if !ok {
		return Result{}, apperr.NotFound(msgNotFound)
	}
	updated, err := s.load(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("pairing set as today", "pairing_id", p.ID, "from", p.PairingDate, "to", today, "user_id", actor.UserID)
	s.notify(websocket.ActionRescheduled, p.ID, map[string]any{"locale": locale, "pairing_date": today})
	return result(updated), nil
}

// List returns the admin listing.
func (s *Service) List(ctx context.Context, actor auth.AuthContext, filter model.PairingFilter) ([]model.Pairing, error) {
	if err := requireCurator(actor); err != nil {
		return nil, err
	}
	pairings, err := s.pairings.List(ctx, filter)
	if err != nil {
		return nil, s.internal("list pairings", err)
	}
	if pairings == nil {
		pairings = []model.Pairing{}
	}
	return pairings, nil
}

// Get returns a pairing with its verse. Drafts are visible to curators only.
func (s *Service) Get(ctx context.Context, actor auth.AuthContext, pairingID string) (*model.PairingWithVerse, error) {
	p, err := s.load(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.StatusApproved && !model.CanCurate(actor.Role) {
		return nil, apperr.NotFound(msgNotFound)
	}
	return Hydrate(ctx, s.verses, s.logger, p), nil
}

// Hydrate attaches the verse to p. A failed lookup is logged and the pairing
// is returned without it.
func Hydrate(ctx context.Context, verses *store.VerseStore, logger *slog.Logger, p *model.Pairing) *model.PairingWithVerse {
	out := &model.PairingWithVerse{Pairing: *p}
	if p.VerseID == nil {
		return out
	}
	v, err := verses.GetByID(ctx, *p.VerseID)
	if err != nil {
		logger.Error("verse lookup failed", "pairing_id", p.ID, "verse_id", *p.VerseID, "error", err)
		return out
	}
	out.Verse = v
	return out
}

func (s *Service) load(ctx context.Context, pairingID string) (*model.Pairing, error) {
	pairingID = strings.TrimSpace(pairingID)
	if pairingID == "" {
		return nil, apperr.NotFound(msgNotFound)
	}
	p, err := s.pairings.GetByID(ctx, pairingID)
	if err != nil {
		return nil, s.internal("load pairing", err)
	}
	if p == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	return p, nil
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error(op+" failed", "error", err)
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
