package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lhaig/tern/internal/diagnostic"
)

// Exit codes for CLI commands.
const (
	ExitFailure      = 1 // The program has errors (lex, parse, type, runtime, toolchain)
	ExitCommandError = 2 // Command error (bad flags, unreadable input, unwritable output)
)

// ExitError carries the process exit code for a failed command.
// An empty Message means the failure was already reported.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	logger *slog.Logger
}

// Logger returns the logger installed for the running command
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// NewRootCommand creates the root command for ternc.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ternc",
		Short: "ternc - compiler for the tern language",
		Long: `ternc compiles tern programs to x86-64 Linux executables.

A program is a sequence of expressions and definitions. When the final
expression has type Int or Bool its value is printed on exit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			})
			opts.logger = slog.New(handler)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEmitCommand(opts))
	cmd.AddCommand(NewLintCommand(opts))
	cmd.AddCommand(NewFmtCommand(opts))

	return cmd
}

// readSource reads the program named by path. An empty path or "-" reads
// standard input.
func readSource(cmd *cobra.Command, path string) (source, file string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", &ExitError{Code: ExitCommandError, Message: "reading standard input", Err: err}
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", &ExitError{Code: ExitCommandError, Message: "reading source", Err: err}
	}
	return string(data), path, nil
}

// inputArg returns the optional input argument
func inputArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// reportError writes err as a diagnostic to stderr and returns the exit
// error for it
func reportError(cmd *cobra.Command, file string, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), diagnostic.Report(err).Format(file))
	return &ExitError{Code: ExitFailure}
}
