package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	_ "time/tzdata"

	"github.com/dukerupert/quietcuration/internal/config"
	"github.com/dukerupert/quietcuration/internal/logging"
)

var CLI struct {
	EnvFile  string `name:"env-file" help:"Dotenv file to load before reading the environment." default:".env" type:"path"`
	Database string `help:"Database URL; overrides QUIET_DATABASE_URL."`
	Verbose  bool   `short:"v" help:"Log at debug level."`

	Migrate MigrateCmd `cmd:"" help:"Apply database migrations."`
	Invites struct {
		Send InvitesSendCmd `cmd:"" help:"Send today's quiet invites now."`
	} `cmd:"" help:"Manage daily invites."`
	Verses struct {
		Import VersesImportCmd `cmd:"" help:"Import verses from a JSON or CSV file."`
	} `cmd:"" help:"Manage the verse catalogue."`
	Users struct {
		Promote UsersPromoteCmd `cmd:"" help:"Change a user's role."`
	} `cmd:"" help:"Manage users."`
	Backup struct {
		Create  BackupCreateCmd  `cmd:"" help:"Upload an encrypted snapshot of the SQLite database."`
		List    BackupListCmd    `cmd:"" help:"List stored snapshots, newest first."`
		Prune   BackupPruneCmd   `cmd:"" help:"Delete old snapshots."`
		Restore BackupRestoreCmd `cmd:"" help:"Download and decrypt a snapshot to a new file."`
	} `cmd:"" help:"Manage encrypted database snapshots."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("quietctl"),
		kong.Description("Operator tools for Quiet Curation."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Database != "" {
		cfg.DatabaseURL = CLI.Database
	}
	level := cfg.LogLevel
	if CLI.Verbose {
		level = "debug"
	}
	logger := logging.Setup(logging.Options{Level: level, Format: cfg.LogFormat, File: cfg.LogFile})

	if err := kctx.Run(&Context{Config: cfg, Logger: logger, Out: os.Stdout}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
