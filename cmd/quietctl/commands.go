package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dukerupert/quietcuration/internal/backup"
	"github.com/dukerupert/quietcuration/internal/config"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/ingest"
	"github.com/dukerupert/quietcuration/internal/invite"
	"github.com/dukerupert/quietcuration/internal/locale"
	"github.com/dukerupert/quietcuration/internal/model"
	"github.com/dukerupert/quietcuration/internal/store"
	"github.com/dukerupert/quietcuration/internal/today"
)

// Context is handed to every command's Run.
type Context struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
}

func (c *Context) open() (*database.DB, error) {
	db, err := database.Open(c.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func (c *Context) printJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type MigrateCmd struct{}

// Run opens the database, which applies any pending migrations.
func (cmd *MigrateCmd) Run(c *Context) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Fprintf(c.Out, "migrations applied (%s)\n", db.Dialect)
	return nil
}

type InvitesSendCmd struct {
	Locale string `help:"Locale of the pairing to invite readers to (en, ko). Defaults to QUIET_DEFAULT_LOCALE."`
}

func (cmd *InvitesSendCmd) Run(c *Context) error {
	calendar, err := dates.NewCalendar(c.Config.Timezone)
	if err != nil {
		return err
	}
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	sender, err := email.New(email.Settings{
		Provider:       c.Config.EmailProvider,
		DryRun:         c.Config.EmailDryRun,
		From:           c.Config.EmailFrom,
		PostmarkToken:  c.Config.PostmarkToken,
		ResendAPIKey:   c.Config.ResendAPIKey,
		SendGridAPIKey: c.Config.SendGridAPIKey,
		SMTPHost:       c.Config.SMTPHost,
		SMTPPort:       c.Config.SMTPPort,
		SMTPUser:       c.Config.SMTPUser,
		SMTPPassword:   c.Config.SMTPPassword,
	}, c.Logger)
	if err != nil {
		return err
	}

	loc := strings.ToLower(strings.TrimSpace(cmd.Locale))
	if loc != "" && !locale.IsSupported(loc) {
		return fmt.Errorf("unsupported locale %q", cmd.Locale)
	}
	if loc == "" {
		loc = c.Config.DefaultLocale
	}
	if !locale.IsSupported(loc) {
		loc = locale.English
	}

	resolver := today.NewResolver(db, calendar, c.Logger)
	runner := invite.NewRunner(db, resolver, sender, invite.Options{
		SiteURL:            c.Config.SiteURL,
		FallbackCurationID: c.Config.FallbackCurationID,
		Locale:             loc,
	}, c.Logger)

	ctx, cancel := interruptible()
	defer cancel()
	summary, err := runner.Run(ctx)
	if perr := c.printJSON(summary); perr != nil {
		return perr
	}
	return err
}

type VersesImportCmd struct {
	Input          string `required:"" type:"existingfile" help:"Path to a .json or .csv verse file."`
	BatchSize      int    `default:"100" help:"Rows per write transaction."`
	DryRun         bool   `help:"Validate and report without writing."`
	UpdateExisting bool   `help:"Overwrite the reference and text of verses that already exist."`
}

func (cmd *VersesImportCmd) Run(c *Context) error {
	ctx, cancel := interruptible()
	defer cancel()

	rows, err := ingest.LoadFile(cmd.Input)
	if err != nil {
		return err
	}
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := ingest.NewImporter(db, c.Logger).Import(ctx, rows, ingest.Options{
		BatchSize:      cmd.BatchSize,
		DryRun:         cmd.DryRun,
		UpdateExisting: cmd.UpdateExisting,
	})
	if perr := c.printJSON(summary); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d verses failed to import", summary.Failed)
	}
	return nil
}

type UsersPromoteCmd struct {
	Email string `required:"" help:"Email of an existing profile."`
	Role  string `default:"editor" enum:"user,editor,admin" help:"Role to grant (user, editor, admin)."`
}

func (cmd *UsersPromoteCmd) Run(c *Context) error {
	if !model.ValidRole(cmd.Role) {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := store.NewProfileStore(db).SetRole(context.Background(), strings.TrimSpace(cmd.Email), cmd.Role)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.New("no profile with that email; the user must sign in once first")
	}
	fmt.Fprintf(c.Out, "%s is now %s\n", *p.Email, p.Role)
	return nil
}

func (c *Context) archiver() (*backup.Archiver, *database.DB, error) {
	db, err := c.open()
	if err != nil {
		return nil, nil, err
	}
	a, err := backup.New(db, backup.S3Config{
		Endpoint:  c.Config.BackupEndpoint,
		Bucket:    c.Config.BackupBucket,
		Region:    c.Config.BackupRegion,
		AccessKey: c.Config.BackupAccessKey,
		SecretKey: c.Config.BackupSecretKey,
		Prefix:    c.Config.BackupPrefix,
	}, c.Config.BackupPassphrase, c.Logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return a, db, nil
}

type BackupCreateCmd struct{}

func (cmd *BackupCreateCmd) Run(c *Context) error {
	a, db, err := c.archiver()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := interruptible()
	defer cancel()
	snap, err := a.Create(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(snap)
}

type BackupListCmd struct{}

func (cmd *BackupListCmd) Run(c *Context) error {
	a, db, err := c.archiver()
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := a.List(context.Background())
	if err != nil {
		return err
	}
	if snaps == nil {
		snaps = []backup.Snapshot{}
	}
	return c.printJSON(snaps)
}

type BackupPruneCmd struct {
	KeepDays int `default:"30" help:"Delete snapshots older than this many days. The newest is always kept."`
}

func (cmd *BackupPruneCmd) Run(c *Context) error {
	if cmd.KeepDays < 0 {
		return fmt.Errorf("keep-days must not be negative")
	}
	a, db, err := c.archiver()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := a.Prune(context.Background(), time.Duration(cmd.KeepDays)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "deleted %d snapshots\n", n)
	return nil
}

type BackupRestoreCmd struct {
	Key    string `arg:"" help:"Object key from 'backup list'."`
	Output string `required:"" type:"path" help:"Where to write the restored database. Must not exist."`
}

func (cmd *BackupRestoreCmd) Run(c *Context) error {
	a, db, err := c.archiver()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := interruptible()
	defer cancel()
	if err := a.Restore(ctx, cmd.Key, cmd.Output); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "restored %s to %s\n", cmd.Key, cmd.Output)
	return nil
}
