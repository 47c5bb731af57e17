package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lhaig/tern/internal/compiler"
	"github.com/lhaig/tern/internal/formatter"
	"github.com/lhaig/tern/internal/linter"
	"github.com/lhaig/tern/internal/parser"
	"github.com/lhaig/tern/internal/toolchain"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output      string
	Config      string
	KeepWorkDir bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [input|-]",
		Short: "Compile a program to a native executable",
		Long: `Compile a program to an x86-64 Linux executable.

The generated assembly is assembled and linked together with the runtime
(print_int, print_bool, read_int) using the configured toolchain.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, inputArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output executable path")
	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML toolchain config file")
	cmd.Flags().BoolVar(&opts.KeepWorkDir, "keep-work-dir", false, "keep intermediate files after the build")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runCompile(opts *CompileOptions, input string, cmd *cobra.Command) error {
	source, file, err := readSource(cmd, input)
	if err != nil {
		return err
	}

	cfg := toolchain.DefaultConfig()
	if opts.Config != "" {
		cfg, err = toolchain.LoadConfig(opts.Config)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Err: err}
		}
	}
	if opts.KeepWorkDir {
		cfg.KeepWorkDir = true
	}

	c := compiler.New(opts.Logger())
	if err := c.Build(cmd.Context(), source, file, opts.Output, cfg); err != nil {
		return reportError(cmd, file, err)
	}
	return nil
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [input|-]",
		Short: "Parse and type-check a program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, file, err := readSource(cmd, inputArg(args))
			if err != nil {
				return err
			}
			res := compiler.New(rootOpts.Logger()).Check(source, file)
			if res.HasErrors() {
				return reportError(cmd, file, res.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "No errors found. Program type: %s\n", res.Type)
			return nil
		},
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <input>",
		Short: "Run a program in the interpreter",
		Long: `Run a program without building it. The interpreter follows the
semantics of the compiled program, reading read_int input from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return &ExitError{Code: ExitCommandError, Message: "run reads program input from standard input; pass a file"}
			}
			source, file, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			c := compiler.New(rootOpts.Logger())
			if err := c.Interpret(source, file, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return reportError(cmd, file, err)
			}
			return nil
		},
	}
}

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Target string
	Output string
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit [input|-]",
		Short: "Print an intermediate form of a program",
		Long: fmt.Sprintf(`Print the output of one compiler stage.

Targets: %s`, strings.Join(compiler.Targets, ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, file, err := readSource(cmd, inputArg(args))
			if err != nil {
				return err
			}
			text, err := compiler.EmitToTarget(source, file, opts.Target)
			if err != nil {
				return reportError(cmd, file, err)
			}
			if opts.Output == "" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(opts.Output, []byte(text), 0644); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "writing output", Err: err}
			}
			opts.Logger().Info("wrote output", "target", opts.Target, "path", opts.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "asm", "stage to print ("+strings.Join(compiler.Targets, "|")+")")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to a file instead of standard output")

	return cmd
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [input|-]",
		Short: "Run lint checks for style and likely mistakes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, file, err := readSource(cmd, inputArg(args))
			if err != nil {
				return err
			}
			root, err := parser.ParseString(source, file)
			if err != nil {
				return reportError(cmd, file, err)
			}

			diag := linter.Lint(root)
			w := cmd.OutOrStdout()
			if diag.Count() == 0 {
				fmt.Fprintln(w, "No lint warnings.")
				return nil
			}
			fmt.Fprintln(w, diag.Format(file))
			fmt.Fprintf(w, "%d warning(s) found.\n", diag.WarningCount())
			return nil
		},
	}
}

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt [input|-]",
		Short: "Print a program in canonical layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, file, err := readSource(cmd, inputArg(args))
			if err != nil {
				return err
			}
			root, err := parser.ParseString(source, file)
			if err != nil {
				return reportError(cmd, file, err)
			}

			formatted := formatter.Format(root)
			if !opts.Write || file == "<stdin>" {
				fmt.Fprint(cmd.OutOrStdout(), formatted)
				return nil
			}
			if formatted == source {
				return nil
			}
			if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "writing formatted source", Err: err}
			}
			opts.Logger().Info("formatted", "path", file)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write the result back to the input file")

	return cmd
}
