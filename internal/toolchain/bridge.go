// Package toolchain assembles and links generated assembly into a native
// executable by running the system assembler and linker.
package toolchain

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:embed runtime/stdlib.s
var runtimeStub string

// RuntimeStub returns the assembly source of the runtime linked into every
// program
func RuntimeStub() string { return runtimeStub }

// ToolchainError reports a failed assembler or linker run
type ToolchainError struct {
	Stage    string // "assemble" or "link"
	Command  string
	ExitCode int // -1 when the tool could not be started
	Stderr   string
	Err      error
}

func (e *ToolchainError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed", e.Stage)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, " (exit status %d)", e.ExitCode)
	}
	fmt.Fprintf(&sb, ": %s", e.Command)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		sb.WriteString("\n")
		sb.WriteString(stderr)
	} else if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ToolchainError) Unwrap() error { return e.Err }

// Toolchain runs one configured assembler/linker pair. It holds no per-build
// state, so one value may serve concurrent builds.
type Toolchain struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a toolchain for cfg. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) *Toolchain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Toolchain{cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective configuration
func (t *Toolchain) Config() Config { return t.cfg }

// Available reports an error if the assembler or linker is not on PATH
func (t *Toolchain) Available() error {
	for _, tool := range []string{t.cfg.Assembler, t.cfg.Linker} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("toolchain unavailable: %w", err)
		}
	}
	return nil
}

// Build assembles asm together with the runtime stub, links the result and
// returns the executable's bytes.
func (t *Toolchain) Build(ctx context.Context, asm string) (_ []byte, err error) {
	id := uuid.Must(uuid.NewV7()).String()
	logger := t.logger.With("compilation", id)
	start := time.Now()

	dir := t.cfg.WorkDir
	temporary := dir == ""
	if temporary {
		dir, err = os.MkdirTemp("", "ternc-"+id+"-")
		if err != nil {
			return nil, fmt.Errorf("failed to create work dir: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		switch {
		case !temporary:
		case err != nil:
			logger.Warn("build failed, keeping work dir", "dir", dir)
		case t.cfg.KeepWorkDir:
			logger.Info("keeping work dir", "dir", dir)
		default:
			os.RemoveAll(dir)
		}
	}()

	stubPath := filepath.Join(dir, "stdlib.s")
	programPath := filepath.Join(dir, "program.s")
	if err := os.WriteFile(stubPath, []byte(runtimeStub), 0644); err != nil {
		return nil, fmt.Errorf("failed to write runtime stub: %w", err)
	}
	if err := os.WriteFile(programPath, []byte(asm), 0644); err != nil {
		return nil, fmt.Errorf("failed to write program: %w", err)
	}

	stubObj := filepath.Join(dir, "stdlib.o")
	programObj := filepath.Join(dir, "program.o")
	stubFlags := append([]string{}, t.cfg.AssemblerFlags...)
	if t.cfg.LinkWithC {
		stubFlags = append(stubFlags, "--defsym", "LINK_WITH_LIBC=1")
	}
	if err := t.run(ctx, logger, "assemble", t.cfg.Assembler, append(stubFlags, "-o", stubObj, stubPath)); err != nil {
		return nil, err
	}
	programFlags := append([]string{}, t.cfg.AssemblerFlags...)
	if err := t.run(ctx, logger, "assemble", t.cfg.Assembler, append(programFlags, "-o", programObj, programPath)); err != nil {
		return nil, err
	}

	exe := filepath.Join(dir, "program")
	linkArgs := append([]string{}, t.cfg.LinkerFlags...)
	if t.cfg.LinkWithC {
		linkArgs = append(linkArgs, "-no-pie")
	} else {
		linkArgs = append(linkArgs, "-static")
	}
	linkArgs = append(linkArgs, "-o", exe, stubObj, programObj)
	if err := t.run(ctx, logger, "link", t.cfg.Linker, linkArgs); err != nil {
		return nil, err
	}

	out, err := os.ReadFile(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to read executable: %w", err)
	}
	logger.Debug("build finished", "bytes", len(out), "elapsed", time.Since(start))
	return out, nil
}

// run executes one tool and converts a failure into a ToolchainError
func (t *Toolchain) run(ctx context.Context, logger *slog.Logger, stage, tool string, args []string) error {
	command := tool + " " + strings.Join(args, " ")
	logger.Debug("running tool", "stage", stage, "command", command)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ToolchainError{Stage: stage, Command: command, ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	return nil
}
