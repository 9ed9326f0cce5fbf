package exhibit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// Driver is the part of a board the console can drive.
type Driver interface {
	SetDigital(line hw.Line, level bool)
	SetAnalog(ch hw.Analog, v uint32)
}

// ConsoleBuffer bounds the number of commands waiting for the loop.
const ConsoleBuffer = 64

// Console is the operator's keyboard. Lines are read on any goroutine and
// queued; Check applies them on the loop goroutine, one cycle at a time.
//
// Commands:
//
//	set <line> <0|1>              drive a digital input
//	analog <channel> <millivolts> drive an analog input
//	post <service> <event> [n]    post an event
//	status                        print service states and the board
//	help                          list the commands
type Console struct {
	sched  *engine.Scheduler
	board  Driver
	out    io.Writer
	logger *slog.Logger
	lines  chan string
}

// NewConsole creates a console acting on sched and board. Replies and
// errors go to out.
func NewConsole(sched *engine.Scheduler, board Driver, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		sched:  sched,
		board:  board,
		out:    out,
		logger: logger.With("component", "console"),
		lines:  make(chan string, ConsoleBuffer),
	}
}

// Feed queues one command line. Safe from any goroutine; returns false
// when the buffer is full.
func (c *Console) Feed(line string) bool {
	select {
	case c.lines <- line:
		return true
	default:
		return false
	}
}

// ReadFrom feeds every line of r until EOF or ctx is cancelled.
func (c *Console) ReadFrom(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !c.Feed(line) {
			c.logger.Warn("console buffer full, dropping", "line", line)
		}
	}
	return sc.Err()
}

// Check implements engine.Checker: every queued command is applied.
func (c *Console) Check() bool {
	did := false
	for {
		select {
		case line := <-c.lines:
			if err := c.Exec(line); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
				continue
			}
			did = true
		default:
			return did
		}
	}
}

// Exec applies one command line.
func (c *Console) Exec(line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	switch strings.ToLower(f[0]) {
	case "set":
		return c.set(f[1:])
	case "analog":
		return c.analog(f[1:])
	case "post":
		return c.post(f[1:])
	case "status":
		c.status()
		return nil
	case "help":
		fmt.Fprintln(c.out, "commands: set <line> <0|1>, analog <channel> <mv>, post <service> <event> [n], status, help")
		return nil
	default:
		return fmt.Errorf("unknown command %q", f[0])
	}
}

func (c *Console) set(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set <line> <0|1>")
	}
	line, err := hw.ParseLine(args[0])
	if err != nil {
		return err
	}
	level, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("level %q: want 0 or 1", args[1])
	}
	c.board.SetDigital(line, level)
	c.logger.Debug("line set", "line", line, "level", level)
	return nil
}

func (c *Console) analog(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: analog <channel> <millivolts>")
	}
	ch, err := hw.ParseAnalog(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("value %q: %w", args[1], err)
	}
	c.board.SetAnalog(ch, uint32(v))
	return nil
}

func (c *Console) post(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: post <service> <event> [n]")
	}
	ev, err := ParseEvent(args[1], args[2:]...)
	if err != nil {
		return err
	}
	return c.sched.Post(args[0], ev)
}

func (c *Console) status() {
	for _, s := range c.sched.Services() {
		fmt.Fprintf(c.out, "%-14s %-18s queue %d/%d\n", s.Name, s.State, s.Pending, s.QueueCap)
	}
	if b, ok := c.board.(fmt.Stringer); ok {
		fmt.Fprintln(c.out, b.String())
	}
}

// ParseEvent builds an event from its name and an optional integer
// payload, e.g. ("StartGame", "1").
func ParseEvent(name string, param ...string) (event.Event, error) {
	t, err := event.Parse(name)
	if err != nil {
		return event.Event{}, err
	}
	v := 0
	if len(param) > 0 {
		if v, err = strconv.Atoi(param[0]); err != nil {
			return event.Event{}, fmt.Errorf("param %q: %w", param[0], err)
		}
	}
	return event.Make(t, v)
}
