package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrLoopStopped is returned by Call once Run has returned
var ErrLoopStopped = errors.New("loop stopped")

// DefaultTickInterval approximates a 60 Hz display refresh
const DefaultTickInterval = time.Second / 60

// Loop serializes ticks and host events onto a single goroutine.
//
// Everything that touches the scheduler must run inside the loop, either as
// a tick registration or through Post and Call.
type Loop struct {
	*FrameTicker

	interval time.Duration
	events   chan func()
	onError  func(error)

	done     chan struct{}
	stopOnce sync.Once
}

type LoopConfig struct {
	Interval time.Duration
	// OnError receives the errors returned by tick callbacks
	OnError func(error)
}
type LoopConfigCb func(config *LoopConfig)

func NewLoop(configs ...LoopConfigCb) *Loop {
	config := &LoopConfig{
		Interval: DefaultTickInterval,
		OnError: func(err error) {
			slog.Error("Tick failed", slog.Any("error", err))
		},
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Loop{
		FrameTicker: NewFrameTicker(),
		interval:    config.Interval,
		events:      make(chan func(), 64),
		onError:     config.OnError,
		done:        make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. It reports false, dropping
// fn, when the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop goroutine and waits for its result
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)

	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.events <- func() { done <- fn() }:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-l.done:
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes ticks and events until ctx is done. A loop runs once;
// after Run returns, Post drops events and Call fails with ErrLoopStopped.
func (l *Loop) Run(ctx context.Context) error {
	t := time.NewTicker(l.interval)
	defer t.Stop()
	defer l.stopOnce.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return nil

		case fn := <-l.events:
			fn()

		case <-t.C:
			if err := l.Tick(); err != nil {
				l.onError(err)
			}
		}
	}
}
