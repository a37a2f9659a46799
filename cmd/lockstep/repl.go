package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/app"
	"github.com/dshills/lockstep/internal/syncmode"
)

var (
	errQuit  = errors.New("quit")
	errUsage = errors.New("usage")
)

// controller is the part of app.App the command reader drives.
type controller interface {
	ScrollEditor(ctx context.Context, top int) error
	RevealLine(ctx context.Context, line int) error
	ResizeEditor(ctx context.Context, lines int) error
	ResizePreview(ctx context.Context, height float64) error
	Keystroke(ctx context.Context) error
	ScrollPreview(ctx context.Context, top float64) error
	ClickPreview(ctx context.Context, y float64) error
	SetMode(ctx context.Context, m syncmode.Mode) error
	ReleaseLock(ctx context.Context) error
	Status(ctx context.Context) (app.Status, error)
	Save(ctx context.Context) error
	Reload(ctx context.Context) error
}

const helpText = `commands:
  scroll <line>    user scroll of the editor (top line, 1-based)
  reveal <line>    move the cursor to a line
  resize editor <lines> | resize preview <px>
                   change a viewport height
  type             a keystroke
  preview <px>     user scroll of the preview
  click <px>       click the preview at a content offset
  mode [name]      set the sync mode, or cycle it
  release          clear the manual-position lock
  status           print the current state
  save             persist the position now
  reload           re-render from disk
  quit
`

// repl reads one command per line and applies it to ctl.
type repl struct {
	ctl controller
	out io.Writer
	log logr.Logger
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := r.execute(ctx, line)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case errors.Is(err, app.ErrNotRunning):
				return nil
			case err != nil:
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
	}
}

func (r *repl) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	r.log.V(2).Info("command", "name", cmd, "args", args)

	switch cmd {
	case "scroll":
		n, err := lineArg(cmd, args)
		if err != nil {
			return err
		}
		return r.ctl.ScrollEditor(ctx, n)
	case "reveal":
		n, err := lineArg(cmd, args)
		if err != nil {
			return err
		}
		return r.ctl.RevealLine(ctx, n)
	case "resize":
		return r.resize(ctx, args)
	case "type":
		return r.ctl.Keystroke(ctx)
	case "preview":
		y, err := pixelArg(cmd, args)
		if err != nil {
			return err
		}
		return r.ctl.ScrollPreview(ctx, y)
	case "click":
		y, err := pixelArg(cmd, args)
		if err != nil {
			return err
		}
		return r.ctl.ClickPreview(ctx, y)
	case "mode":
		return r.mode(ctx, args)
	case "release":
		return r.ctl.ReleaseLock(ctx)
	case "status":
		return r.status(ctx)
	case "save":
		return r.ctl.Save(ctx)
	case "reload":
		return r.ctl.Reload(ctx)
	case "help", "?":
		_, err := io.WriteString(r.out, helpText)
		return err
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (r *repl) mode(ctx context.Context, args []string) error {
	var m syncmode.Mode
	switch len(args) {
	case 0:
		st, err := r.ctl.Status(ctx)
		if err != nil {
			return err
		}
		m = st.Mode.Cycle()
	case 1:
		parsed, err := syncmode.ParseMode(args[0])
		if err != nil {
			return err
		}
		m = parsed
	default:
		return fmt.Errorf("%w: mode [name]", errUsage)
	}
	if err := r.ctl.SetMode(ctx, m); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "mode %s\n", m)
	return nil
}

func (r *repl) resize(ctx context.Context, args []string) error {
	usage := fmt.Errorf("%w: resize editor <lines> | resize preview <px>", errUsage)
	if len(args) != 2 {
		return usage
	}
	switch strings.ToLower(args[0]) {
	case "editor":
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return usage
		}
		return r.ctl.ResizeEditor(ctx, n)
	case "preview":
		h, err := strconv.ParseFloat(args[1], 64)
		if err != nil || h <= 0 {
			return usage
		}
		return r.ctl.ResizePreview(ctx, h)
	default:
		return usage
	}
}

func (r *repl) status(ctx context.Context) error {
	st, err := r.ctl.Status(ctx)
	if err != nil {
		return err
	}
	locked := ""
	if st.Locked {
		locked = " locked"
	}
	active := "none"
	if st.Active.ID != "" {
		active = fmt.Sprintf("%s line %d (%s)", st.Active.ID, st.Active.SourceLine+1, st.Active.Origin)
	}
	_, err = fmt.Fprintf(r.out,
		"generation %d mode %s%s\nactive %s\neditor top %d preview top %.0f of %.0f\nplaced %d of %d anchors (%s)\n",
		st.Generation, st.Mode, locked,
		active,
		st.EditorTop+1, st.PreviewTop, st.ContentHeight,
		st.Placed, st.Anchors, st.Rung,
	)
	return err
}

// lineArg parses a 1-based line number.
func lineArg(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s <line>", errUsage, cmd)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s <line>: line must be a positive integer", errUsage, cmd)
	}
	return n - 1, nil
}

func pixelArg(cmd string, args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s <px>", errUsage, cmd)
	}
	y, err := strconv.ParseFloat(args[0], 64)
	if err != nil || y < 0 {
		return 0, fmt.Errorf("%w: %s <px>: offset must be a non-negative number", errUsage, cmd)
	}
	return y, nil
}
