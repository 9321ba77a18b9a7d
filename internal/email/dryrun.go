package email

import (
	"context"
	"log/slog"

	"github.com/dukerupert/quietcuration/internal/id"
	"github.com/dukerupert/quietcuration/internal/logging"
)

// DryRun logs messages instead of sending them.
type DryRun struct {
	logger *slog.Logger
}

func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{logger: logger.With("component", "email")}
}

func (d *DryRun) Provider() string { return "log" }

func (d *DryRun) Send(ctx context.Context, msg Message) (Receipt, error) {
	messageID, err := id.Generate("dry")
	if err != nil {
		return Receipt{}, &SendError{Provider: d.Provider(), Reason: "message id", Err: err}
	}
	d.logger.InfoContext(ctx, "email dry run",
		"to", logging.MaskEmail(msg.To),
		"subject", msg.Subject,
		"message_id", messageID,
	)
	return Receipt{Provider: d.Provider(), MessageID: messageID}, nil
}
