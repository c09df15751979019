package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
)

// ErrCodeUsage tags errors caused by bad command arguments.
const ErrCodeUsage = "USAGE"

// session is what a command body works with: an open engine and the
// formatter for its output.
type session struct {
	ctx context.Context
	out *OutputFormatter
	eng *storage.Engine
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// withEngine loads configuration, opens the engine, runs fn and closes the
// engine again. Every error returned is an *ExitError that has already been
// reported through the formatter.
func withEngine(opts *RootOptions, cmd *cobra.Command, fn func(s *session) error) error {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = out.Error("CONFIG", "invalid configuration", err.Error())
		return WrapExitError(ExitCommandError, "load config", err)
	}
	out.VerboseLog("Using %s storage", cfg.Storage)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := storage.Open(ctx, cfg)
	if err != nil {
		return fail(out, err)
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			slog.Error("error closing storage", "error", closeErr)
		}
	}()

	return fn(&session{ctx: ctx, out: out, eng: eng})
}

// fail reports err through the formatter and converts it to an ExitError.
// Malformed input exits with ExitCommandError, everything else with
// ExitFailure.
func fail(out *OutputFormatter, err error) error {
	code, exit, msg := "ERROR", ExitFailure, err.Error()
	var details any

	var se *storage.Error
	if errors.As(err, &se) {
		code = string(se.Code)
		switch se.Code {
		case storage.ErrCodeNotFound:
			msg = "no instance found"
			details = map[string]string{"kind": string(se.Kind), "id": se.ID}
		case storage.ErrCodeMalformed:
			exit = ExitCommandError
		}
	}

	_ = out.Error(code, msg, details)
	return WrapExitError(exit, msg, err)
}

// usage reports a bad argument.
func usage(out *OutputFormatter, msg string) error {
	_ = out.Error(ErrCodeUsage, msg, nil)
	return NewExitError(ExitCommandError, msg)
}

// parseKind resolves a class tag ("State") or table name ("states").
func parseKind(out *OutputFormatter, arg string) (model.Kind, error) {
	k, err := model.ParseKind(arg)
	if err != nil {
		return "", usage(out, "class doesn't exist")
	}
	return k, nil
}

// lookup fetches kind/id and converts absence into a not-found error.
func (s *session) lookup(kind model.Kind, id string) (model.Entity, error) {
	e, err := s.eng.Get(s.ctx, kind, id)
	if err != nil {
		return nil, fail(s.out, err)
	}
	if e == nil {
		return nil, fail(s.out, storage.NotFoundError("show", kind, id))
	}
	return e, nil
}

// Execute runs the root command with args and returns the process exit
// code. Errors that commands already reported are not printed again.
func Execute(args []string) int {
	return ExecuteWith(args, os.Stdout, os.Stderr)
}

// ExecuteWith is Execute with explicit output streams.
func ExecuteWith(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// cobra's own argument and flag errors
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitCommandError
	}
	return exitErr.Code
}
