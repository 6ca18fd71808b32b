// Package terminal drives a scheduler from a raw mode tty.
//
// Terminals report key presses but never releases, so a pressed key is held
// for a fixed number of ticks and released unless the terminal repeats it.
package terminal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/guslan/playback"
	"github.com/pkg/term"
)

// ErrQuit is returned by ReadFrom when the quit key is pressed
var ErrQuit = errors.New("quit requested from the keyboard")

// DefaultHoldTicks covers the initial delay of a typical key repeat
const DefaultHoldTicks = 30

type Host struct {
	sched *playback.Scheduler
	loop  *playback.Loop
	log   *slog.Logger

	holdTicks int
	held      map[playback.KeyCode]int
	handle    playback.TickHandle
}

type HostConfig struct {
	HoldTicks int
	Logger    *slog.Logger
}
type HostConfigCb func(config *HostConfig)

func NewHost(sched *playback.Scheduler, loop *playback.Loop, configs ...HostConfigCb) *Host {
	config := &HostConfig{
		HoldTicks: DefaultHoldTicks,
		Logger:    slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	h := &Host{
		sched:     sched,
		loop:      loop,
		log:       config.Logger,
		holdTicks: max(config.HoldTicks, 1),
		held:      map[playback.KeyCode]int{},
	}
	h.handle = loop.Register(h.releaseExpired)

	return h
}

// Close stops releasing held keys
func (h *Host) Close() {
	h.handle.Cancel()
}

// Held reports whether code is currently held down
func (h *Host) Held(code playback.KeyCode) bool {
	_, ok := h.held[code]
	return ok
}

// Dispatch applies one input to the scheduler. It must run on the loop.
func (h *Host) Dispatch(in Input) error {
	switch in.Action {
	case ActionQuit:
		return ErrQuit
	case ActionPause:
		h.sched.TogglePause()
	case ActionFaster:
		h.sched.IncreaseSpeed()
	case ActionSlower:
		h.sched.DecreaseSpeed()
	case ActionPlay:
		return h.sched.StartFreePlay()
	case ActionReplay:
		return h.sched.StartReplay()
	case ActionNone:
		if h.sched.KeyDown(in.Key) {
			h.held[in.Key] = h.holdTicks
		}
	}

	return nil
}

func (h *Host) releaseExpired() error {
	for code, left := range h.held {
		if left > 1 {
			h.held[code] = left - 1
			continue
		}
		delete(h.held, code)
		h.sched.KeyUp(code)
	}

	return nil
}

// ReadFrom decodes keystrokes from r and dispatches them on the loop until
// r is exhausted, ctx is done or the quit key is pressed. Start and replay
// failures are logged and do not stop reading.
func (h *Host) ReadFrom(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 64)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := r.Read(buf)
		for _, in := range Decode(buf[:n]) {
			err := h.loop.Call(ctx, func() error { return h.Dispatch(in) })
			switch {
			case errors.Is(err, ErrQuit):
				return err
			case errors.Is(err, context.Canceled), errors.Is(err, playback.ErrLoopStopped):
				return nil
			case err != nil:
				h.log.Error("Keyboard command failed",
					slog.String("action", in.Action.String()),
					slog.Any("error", err))
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// TTY is a raw mode terminal whose reads time out so callers can notice
// cancellation
type TTY struct {
	t *term.Term
}

// OpenTTY puts the terminal at path in raw mode
func OpenTTY(path string, readTimeout time.Duration) (*TTY, error) {
	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, err
	}
	if err := t.SetReadTimeout(readTimeout); err != nil {
		t.Restore()
		t.Close()
		return nil, err
	}

	return &TTY{t: t}, nil
}

// Read reports a timeout as an empty read
func (tty *TTY) Read(b []byte) (int, error) {
	n, err := tty.t.Read(b)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, nil
	}

	return n, err
}

func (tty *TTY) Write(b []byte) (int, error) {
	return tty.t.Write(b)
}

// Close restores the original terminal mode
func (tty *TTY) Close() error {
	return errors.Join(tty.t.Restore(), tty.t.Close())
}
