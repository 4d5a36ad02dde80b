// Package console is a line-oriented front end for the listening client.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// Listener is the client surface the console drives.
type Listener interface {
	SubmitUserText(text, voice string) error
	PreviewVoice(ctx context.Context, voice string) error
	TogglePause(ctx context.Context) (bool, error)
	SelectVoice(voice string)
	CurrentVoice() string
	Pending() []speech.Request
	Cancel(id string) bool
	Clear() int
}

const help = `commands:
  <text>          speak text
  /pause          toggle pause
  /queue          show held requests
  /voice ID       select voice
  /preview [ID]   preview a voice
  /cancel ID      drop a held request
  /clear          drop every held request
  /quit           exit`

// Console reads commands and prints results.
type Console struct {
	listener Listener

	mu  sync.Mutex
	out io.Writer
}

// New creates a console writing to out.
func New(l Listener, out io.Writer) *Console {
	return &Console{listener: l, out: out}
}

// Printf writes one line of output. Safe for use from callbacks.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// PrintQueue prints a pause-queue snapshot.
func (c *Console) PrintQueue(reqs []speech.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(reqs) == 0 {
		fmt.Fprintln(c.out, "queue: empty")
		return
	}
	fmt.Fprintf(c.out, "queue: %d held\n", len(reqs))
	for i, req := range reqs {
		fmt.Fprintf(c.out, "  %d. [%s] %s (%s)\n", i+1, shortID(req.ID), req.Text, req.Voice)
	}
}

// Run processes lines from in until it is exhausted, /quit is read or ctx
// is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errCh <- scanner.Err()
		close(lines)
	}()

	c.Printf("voice %s, type /help for commands", c.listener.CurrentVoice())

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errCh
			}
			if quit := c.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// Handle runs one input line and reports whether the console should exit.
func (c *Console) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		if err := c.listener.SubmitUserText(line, ""); err != nil {
			c.Printf("error: %v", err)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.Printf("%s", help)
	case "/pause":
		paused, err := c.listener.TogglePause(ctx)
		if err != nil {
			c.Printf("error: %v", err)
			return false
		}
		if paused {
			c.Printf("paused")
		} else {
			c.Printf("resumed")
		}
	case "/queue":
		c.PrintQueue(c.listener.Pending())
	case "/voice":
		if arg == "" {
			c.Printf("voice %s", c.listener.CurrentVoice())
			return false
		}
		c.listener.SelectVoice(arg)
		c.Printf("voice %s", arg)
	case "/preview":
		if err := c.listener.PreviewVoice(ctx, arg); err != nil {
			c.Printf("error: %v", err)
		}
	case "/cancel":
		if !c.cancel(arg) {
			c.Printf("no held request %q", arg)
		}
	case "/clear":
		c.Printf("cleared %d", c.listener.Clear())
	default:
		c.Printf("unknown command %s, type /help", cmd)
	}
	return false
}

// cancel accepts a full ID or the short prefix shown by /queue.
func (c *Console) cancel(arg string) bool {
	if arg == "" {
		return false
	}
	for _, req := range c.listener.Pending() {
		if req.ID == arg || strings.HasPrefix(req.ID, arg) {
			return c.listener.Cancel(req.ID)
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
