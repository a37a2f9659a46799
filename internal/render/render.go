// Package render coalesces compile requests for one document.
//
// At most one compile runs at a time. Requests that arrive while a compile
// is running replace each other in a single pending slot, so the next
// compile always uses the latest content. Every caller that joined while
// the coalescer was busy receives the result of the last compile of that
// busy period.
package render

import (
	"context"
	"errors"

	"github.com/dshills/lockstep/internal/anchor"
)

var (
	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("render coalescer closed")

	// ErrNoDocument is returned when a compiler reports success without a document.
	ErrNoDocument = errors.New("compiler returned no document")
)

// Document is the output of one successful compile.
type Document struct {
	// Artifact identifies the compiled output (for example a PDF path).
	Artifact string

	// Anchors is the complete anchor set of this compile.
	Anchors []anchor.Anchor

	// Source is the content that was compiled.
	Source string
}

// Compiler is the typesetting service. Implementations must tolerate being
// called from a goroutine other than the caller of Render.
type Compiler interface {
	Compile(ctx context.Context, source string) (*Document, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, source string) (*Document, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, source string) (*Document, error) {
	return f(ctx, source)
}

// Observer receives compile lifecycle notifications. Callbacks run on the
// coalescer's worker goroutine and must not block.
type Observer interface {
	CompileStarted(source string)
	CompileFinished(doc *Document, err error)
}
