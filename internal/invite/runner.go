// Package invite runs the daily quiet-invite batch: one delivery row per
// recipient and date, an email per new row, and a bounded retry pass.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/logging"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/pairing"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/today"
)

// ErrNoCuration means there is nothing to invite readers to.
var ErrNoCuration = errors.New("No pairing for today and FALLBACK_CURATION_ID is not set.")

// Summary counts what one run did.
type Summary struct {
	DeliveryDate string `json:"delivery_date"`
	CurationID   string `json:"curation_id"`
	Recipients   int    `json:"recipients"`
	Inserted     int    `json:"inserted"`
	Skipped      int    `json:"skipped"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Retried      int    `json:"retried"`
}

type Options struct {
	SiteURL            string
	FallbackCurationID string
	Locale             string
}

type Runner struct {
	invites  *store.InviteStore
	profiles *store.ProfileStore
	pairings *store.PairingStore
	verses   *store.VerseStore
	today    *today.Resolver
	sender   email.Sender
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func NewRunner(db *database.DB, resolver *today.Resolver, sender email.Sender, opts Options, logger *slog.Logger) *Runner {
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	return &Runner{
		invites:  store.NewInviteStore(db),
		profiles: store.NewProfileStore(db),
		pairings: store.NewPairingStore(db),
		verses:   store.NewVerseStore(db),
		today:    resolver,
		sender:   sender,
		opts:     opts,
		logger:   logger.With("component", "invite"),
		now:      time.Now,
	}
}

// run carries the per-run state.
type run struct {
	*Runner
	summary  Summary
	rendered map[string]email.Message
}

// Run sends today's invites. Failures for one recipient are counted and never
// stop the batch. The returned summary is valid even when err is not nil.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	rn := &run{Runner: r, rendered: make(map[string]email.Message)}
	rn.summary.DeliveryDate = r.today.Date()

	curationID, err := r.curationID(ctx)
	if err != nil {
		return rn.summary, err
	}
	rn.summary.CurationID = curationID

	profiles, err := r.profiles.ListOptedIn(ctx)
	if err != nil {
		return rn.summary, fmt.Errorf("load recipients: %w", err)
	}
	rn.summary.Recipients = len(profiles)

	recipients := make(map[string]model.Recipient, len(profiles))
	var userIDs []string
	for _, p := range profiles {
		addr := ""
		if p.Email != nil {
			addr = strings.TrimSpace(*p.Email)
		}
		recipients[p.ID] = model.Recipient{UserID: p.ID, Email: addr, DisplayName: p.DisplayName}
		userIDs = append(userIDs, p.ID)
	}

	for _, uid := range userIDs {
		if err := ctx.Err(); err != nil {
			return rn.summary, err
		}
		rn.first(ctx, recipients[uid])
	}

	retryable, err := r.invites.ListRetryable(ctx, rn.summary.DeliveryDate, userIDs, model.MaxDeliveryRetries)
	if err != nil {
		return rn.summary, fmt.Errorf("load retries: %w", err)
	}
	for _, d := range retryable {
		if err := ctx.Err(); err != nil {
			return rn.summary, err
		}
		rn.retry(ctx, d, recipients[d.UserID])
	}

	r.logger.Info("invite run finished",
		"delivery_date", rn.summary.DeliveryDate,
		"curation_id", rn.summary.CurationID,
		"recipients", rn.summary.Recipients,
		"inserted", rn.summary.Inserted,
		"skipped", rn.summary.Skipped,
		"sent", rn.summary.Sent,
		"failed", rn.summary.Failed,
		"retried", rn.summary.Retried,
	)
	return rn.summary, nil
}

// curationID picks today's approved pairing, then the safe set, then the
// configured fallback id.
func (r *Runner) curationID(ctx context.Context) (string, error) {
	p, _, err := r.today.Pairing(ctx, r.opts.Locale)
	if err != nil {
		r.logger.Error("resolve today's pairing", "locale", r.opts.Locale, "error", err)
	}
	if p != nil {
		return p.ID, nil
	}
	if id := strings.TrimSpace(r.opts.FallbackCurationID); id != "" {
		return id, nil
	}
	return "", ErrNoCuration
}

func (rn *run) first(ctx context.Context, rcpt model.Recipient) {
	date := rn.summary.DeliveryDate
	if !strings.Contains(rcpt.Email, "@") {
		rn.summary.Skipped++
		rn.logger.Debug("skip recipient without email", "user_id", rcpt.UserID)
		return
	}

	res, err := rn.invites.TryInsert(ctx, rcpt.UserID, date, rn.summary.CurationID)
	if err != nil {
		rn.summary.Failed++
		rn.logger.Error("insert invite delivery", "user_id", rcpt.UserID, "error", err)
		if ferr := rn.invites.InsertFailed(ctx, rcpt.UserID, date, err.Error(), rn.now()); ferr != nil {
			rn.logger.Error("record failed invite", "user_id", rcpt.UserID, "error", ferr)
		}
		return
	}
	if !res.Created {
		rn.summary.Skipped++
		return
	}

	rn.summary.Inserted++
	rn.deliver(ctx, res.Row, rcpt)
}

func (rn *run) retry(ctx context.Context, d model.InviteDelivery, rcpt model.Recipient) {
	rn.summary.Retried++
	if !strings.Contains(rcpt.Email, "@") {
		rn.summary.Failed++
		if err := rn.invites.MarkFailed(ctx, d.ID, rn.sender.Provider(), "recipient has no email", rn.now()); err != nil {
			rn.logger.Error("mark invite failed", "delivery_id", d.ID, "error", err)
		}
		return
	}
	rn.deliver(ctx, &d, rcpt)
}

func (rn *run) deliver(ctx context.Context, d *model.InviteDelivery, rcpt model.Recipient) {
	curationID := d.CurationID
	if curationID == "" || curationID == store.UnknownCurationID {
		curationID = rn.summary.CurationID
	}
	log := rn.logger.With("user_id", rcpt.UserID, "email", logging.MaskEmail(rcpt.Email), "curation_id", curationID)

	msg, err := rn.message(ctx, curationID)
	if err == nil {
		msg.To = rcpt.Email
		var receipt email.Receipt
		receipt, err = rn.sender.Send(ctx, msg)
		if err == nil {
			rn.summary.Sent++
			log.Info("invite sent", "provider", receipt.Provider, "message_id", receipt.MessageID)
			if merr := rn.invites.MarkSent(ctx, d.ID, receipt.Provider, receipt.MessageID, rn.now()); merr != nil {
				log.Error("mark invite sent", "delivery_id", d.ID, "error", merr)
			}
			return
		}
	}

	rn.summary.Failed++
	provider := rn.sender.Provider()
	var sendErr *email.SendError
	if errors.As(err, &sendErr) {
		provider = sendErr.Provider
	}
	log.Warn("invite failed", "provider", provider, "retry_count", d.RetryCount+1, "error", err)
	if merr := rn.invites.MarkFailed(ctx, d.ID, provider, err.Error(), rn.now()); merr != nil {
		log.Error("mark invite failed", "delivery_id", d.ID, "error", merr)
	}
}

// message renders the invite for curationID once per run.
func (rn *run) message(ctx context.Context, curationID string) (email.Message, error) {
	if msg, ok := rn.rendered[curationID]; ok {
		return msg, nil
	}

	var hydrated *model.PairingWithVerse
	p, err := rn.pairings.GetByID(ctx, curationID)
	if err != nil {
		rn.logger.Error("load curation for invite", "curation_id", curationID, "error", err)
	}
	if p != nil {
		hydrated = pairing.Hydrate(ctx, rn.verses, rn.logger, p)
	}

	msg, err := Render(curationID, hydrated, rn.opts.SiteURL)
	if err != nil {
		return email.Message{}, err
	}
	rn.rendered[curationID] = msg
	return msg, nil
}
