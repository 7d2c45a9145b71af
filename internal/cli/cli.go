// Package cli implements ttctl, the command-line front end for importing,
// previewing and exporting candidates without the web shell.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/database"
	"github.com/JonMunkholm/talenttrack/internal/logging"
)

// app holds what the subcommands share once the root command has set up.
type app struct {
	out    io.Writer
	errOut io.Writer

	dbPath   string
	logLevel string
	envFile  string

	cfg     *config.Config
	service *core.Service
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

// rootCommand builds the ttctl command tree. Command output goes to a.out,
// logs to a.errOut.
func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ttctl",
		Short:         "Manage the TalentTrack candidate store from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.dbPath, "db", "", "SQLite database file (overrides DB_PATH)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load if present")

	root.AddCommand(
		a.importCommand(),
		a.previewCommand(),
		a.exportCommand(),
		a.templateCommand(),
		a.summaryCommand(),
	)
	return root
}

// open loads configuration, sets up logging and opens the store.
func (a *app) open(ctx context.Context) error {
	// A missing dotenv file is normal; real env vars still apply.
	if err := godotenv.Load(a.envFile); err != nil {
		slog.Debug("no dotenv file loaded", "file", a.envFile, "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
		cfg.Database.URL = ""
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.SetupWriter(a.errOut, cfg.Logging.Level, cfg.Logging.Format)

	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	svc, err := core.NewService(store, cfg.Import)
	if err != nil {
		store.Close()
		return err
	}

	a.cfg = cfg
	a.service = svc
	return nil
}

func (a *app) close() error {
	if a.service == nil {
		return nil
	}
	err := a.service.Close()
	a.service = nil
	return err
}

// Execute runs ttctl with args and prints a user-facing message for any
// error. It returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	a := newApp(out, errOut)
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var usage *usageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintf(errOut, "Error: %v\n\n%s", err, cmd.UsageString())
		return 2
	case core.IsUserFacing(err):
		fmt.Fprintf(errOut, "Error: %s\n", core.FormatUserError(err))
	default:
		fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	slog.Debug("command failed", "command", cmd.CommandPath(), "error", err)
	return 1
}

// usageError marks bad invocations so Execute prints usage.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactFile(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return &usageError{err: err}
	}
	return nil
}
