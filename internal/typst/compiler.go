package typst

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/render"
)

// DefaultBinary is the typst executable looked up on PATH.
const DefaultBinary = "typst"

// defaultKeep is how many compile directories survive pruning. The
// previous one may still be rasterizing when the next compile finishes.
const defaultKeep = 2

// Compiler runs "typst compile" and "typst query" for every render. Each
// compile gets its own directory below the work directory.
type Compiler struct {
	binary string
	runner Runner
	log    logr.Logger
	keep   int

	mu      sync.Mutex
	root    string
	ownRoot bool
	seq     int
	dirs    []string
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithBinary overrides DefaultBinary.
func WithBinary(path string) CompilerOption {
	return func(c *Compiler) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) CompilerOption {
	return func(c *Compiler) {
		c.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) CompilerOption {
	return func(c *Compiler) {
		c.log = log
	}
}

// NewCompiler creates a compiler working below workDir. An empty workDir
// selects a temporary directory that Close removes.
func NewCompiler(workDir string, opts ...CompilerOption) (*Compiler, error) {
	c := &Compiler{
		binary: DefaultBinary,
		runner: ExecRunner{},
		log:    logr.Discard(),
		keep:   defaultKeep,
		root:   workDir,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithName("typst")

	if c.root == "" {
		dir, err := os.MkdirTemp("", "lockstep-")
		if err != nil {
			return nil, fmt.Errorf("create work directory: %w", err)
		}
		c.root, c.ownRoot = dir, true
	} else if err := os.MkdirAll(c.root, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	return c, nil
}

// Binary returns the typst executable in use.
func (c *Compiler) Binary() string {
	return c.binary
}

// Compile preprocesses source, compiles it to PDF and queries anchor
// positions. A failed query is not an error: anchors are returned without
// positions and the fallback ladder places them.
func (c *Compiler) Compile(ctx context.Context, source string) (*render.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Preprocess(source)
	dir, err := c.nextDir()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, mainFile), template, 0o644); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, contentFile), []byte(out.Markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write content: %w", err)
	}

	if _, err := c.runner.Run(ctx, dir, c.binary, "compile", "--root", dir, mainFile, pdfFile); err != nil {
		return nil, fmt.Errorf("typst compile: %w", err)
	}

	anchors := out.Anchors
	data, err := c.runner.Run(ctx, dir, c.binary, "query", "--root", dir, "--format", "json", mainFile, QueryLabel)
	switch {
	case err != nil:
		c.log.Info("typst query failed, anchors have no positions", "error", err.Error())
	default:
		locs, perr := ParsePositions(data)
		if perr != nil {
			c.log.Info("unreadable typst query output", "error", perr.Error())
			break
		}
		anchors = AttachPositions(anchors, locs)
		c.log.V(1).Info("anchors located", "anchors", len(anchors), "located", len(locs))
	}

	c.prune()
	return &render.Document{
		Artifact: filepath.Join(dir, pdfFile),
		Anchors:  anchors,
		Source:   source,
	}, nil
}

// Close removes the work directory if the compiler created it.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ownRoot {
		return nil
	}
	return os.RemoveAll(c.root)
}

func (c *Compiler) nextDir() (string, error) {
	c.seq++
	dir := filepath.Join(c.root, fmt.Sprintf("build-%06d", c.seq))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create compile directory: %w", err)
	}
	c.dirs = append(c.dirs, dir)
	return dir, nil
}

func (c *Compiler) prune() {
	for len(c.dirs) > c.keep {
		old := c.dirs[0]
		c.dirs = c.dirs[1:]
		if err := os.RemoveAll(old); err != nil {
			c.log.V(1).Info("could not remove old compile directory", "dir", old, "error", err.Error())
		}
	}
}
