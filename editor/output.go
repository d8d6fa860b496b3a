// Package editor is the broker's boundary with the text editor: decoding
// inbound request records and writing outbound script fragments, including
// the synchronous reply fifo a handler closes exactly once per request.
package editor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/markup"
)

// Channel is the single-writer sink every rendered script passes through.
// One Channel serves the whole broker process; Emit/EmitUnbuffered may be
// called from any goroutine, serialized by an internal mutex, matching the
// single-threaded cooperative model's assumption that the editor sees
// writes in the order the dispatcher's continuations produce them.
type Channel struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewChannel wraps w (typically os.Stdout, read by the editor's plugin
// loop) as the broker's outbound script sink.
func NewChannel(w io.Writer, logger *slog.Logger) *Channel {
	return &Channel{w: w, logger: logger.With(slog.String("component", "editor.channel"))}
}

// Emit writes body as an "evaluate-commands -buffer <buffile> %§…§"
// envelope, the form every buffer-scoped rendered script uses.
func (c *Channel) Emit(buffile, body string) error {
	return c.write(markup.EvaluateCommandsBuffer(buffile, body))
}

// EmitUnbuffered writes body as a bare "evaluate-commands %§…§" envelope,
// for scripts not tied to a single buffer.
func (c *Channel) EmitUnbuffered(body string) error {
	return c.write(markup.EvaluateCommands(body))
}

// EmitResult writes body as the single reply to one editor request: to the
// request's synchronous fifo when it has one (opened, written, and closed
// exactly once — the editor blocks reading this path), otherwise as a
// normal buffer-scoped envelope. Callers pass the same body ("nop"
// included) regardless of which path is taken.
func (c *Channel) EmitResult(meta dispatch.EditorMeta, body string) error {
	if meta.Synchronous() {
		rf, err := OpenReplyFifo(meta.Fifo)
		if err != nil {
			return err
		}
		return rf.Write(body)
	}
	return c.Emit(meta.Buffile, body)
}

func (c *Channel) write(script string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, script); err != nil {
		return fmt.Errorf("editor channel write: %w", err)
	}
	if _, err := io.WriteString(c.w, "\n"); err != nil {
		return fmt.Errorf("editor channel write: %w", err)
	}
	return nil
}

// ReplyFifo is the outgoing response channel for one synchronous editor
// request. The editor blocks reading this path, so it must be opened,
// written at most once, and closed on every exit path including the
// no-op case.
type ReplyFifo struct {
	path   string
	f      *os.File
	once   sync.Once
	closed error
}

// OpenReplyFifo opens path for writing. The editor is expected to have
// already created the named pipe and to be blocked reading from it, so the
// open itself may block until that reader is ready.
func OpenReplyFifo(path string) (*ReplyFifo, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open reply fifo %s: %w", path, err)
	}
	return &ReplyFifo{path: path, f: f}, nil
}

// Write sends script as the synchronous reply body, as is (no envelope),
// then closes the fifo. Write may be
// called at most once per ReplyFifo; a second call is a no-op returning the
// first call's result, so callers on every exit path may call it (or Nop)
// unconditionally without double-closing.
func (r *ReplyFifo) Write(script string) error {
	r.once.Do(func() {
		_, err := io.WriteString(r.f, script)
		closeErr := r.f.Close()
		if err == nil {
			err = closeErr
		}
		r.closed = err
	})
	return r.closed
}

// Nop writes the literal "nop" reply, the synchronous no-op used when a
// fusion produced no edits to apply.
func (r *ReplyFifo) Nop() error {
	return r.Write("nop")
}

// Close releases the fifo without writing a reply, for non-success exit
// paths that still must honor the close-exactly-once contract.
func (r *ReplyFifo) Close() error {
	r.once.Do(func() {
		r.closed = r.f.Close()
	})
	return r.closed
}
