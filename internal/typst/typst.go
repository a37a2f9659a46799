// Package typst adapts the typst command line to the render pipeline.
//
// Markdown is preprocessed to carry invisible anchors, compiled to PDF by
// "typst compile", and located with "typst query". Pages are rasterized to
// PNG for their pixel heights, and "pdftotext -bbox" supplies the page text
// used by the extraction fallback.
package typst

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

//go:embed template.typ
var template []byte

// File names inside one compile directory.
const (
	mainFile    = "main.typ"
	contentFile = "content.md"
	pdfFile     = "document.pdf"
	pagePattern = "page-{p}.png"
)

// ErrNoPages is returned when rasterizing produced no page images.
var ErrNoPages = errors.New("typst produced no pages")

// Runner executes an external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return f(ctx, dir, name, args...)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts name and waits for it. A non-zero exit becomes a *CommandError
// carrying stderr.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &CommandError{Command: name, Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// CommandError is a failed external command.
type CommandError struct {
	Command string
	Args    []string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	sub := ""
	if len(e.Args) > 0 {
		sub = " " + e.Args[0]
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s%s: %v", e.Command, sub, e.Err)
	}
	return fmt.Sprintf("%s%s: %v: %s", e.Command, sub, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
