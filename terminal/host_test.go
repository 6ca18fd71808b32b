package terminal_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/guslan/playback"
	"github.com/guslan/playback/chip8"
	"github.com/guslan/playback/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// jumps to itself forever
var idleProgram = []byte{0x12, 0x00}

func newFreePlay(t *testing.T, holdTicks int) (*playback.Scheduler, *playback.Loop, *terminal.Host) {
	t.Helper()

	loop := playback.NewLoop(func(config *playback.LoopConfig) {
		config.Interval = time.Millisecond
	})
	machine := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer())
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Logger = discard
	})
	host := terminal.NewHost(sched, loop, func(config *terminal.HostConfig) {
		config.HoldTicks = holdTicks
		config.Logger = discard
	})

	require.NoError(t, sched.SetSession(idleProgram, nil))
	require.NoError(t, sched.StartFreePlay())

	return sched, loop, host
}

func TestHostReleasesKeysAfterHoldTicks(t *testing.T) {
	sched, loop, host := newFreePlay(t, 2)

	require.NoError(t, host.Dispatch(terminal.Input{Key: playback.KeyZ}))
	assert.True(t, sched.Input()[playback.Port1].IsPressed(playback.A))
	assert.True(t, host.Held(playback.KeyZ))

	require.NoError(t, loop.Tick())
	assert.True(t, sched.Input()[playback.Port1].IsPressed(playback.A))

	require.NoError(t, loop.Tick())
	assert.False(t, sched.Input()[playback.Port1].IsPressed(playback.A))
	assert.False(t, host.Held(playback.KeyZ))
}

func TestHostRepeatExtendsHold(t *testing.T) {
	sched, loop, host := newFreePlay(t, 2)

	require.NoError(t, host.Dispatch(terminal.Input{Key: playback.KeyLeft}))
	require.NoError(t, loop.Tick())
	require.NoError(t, host.Dispatch(terminal.Input{Key: playback.KeyLeft}))
	require.NoError(t, loop.Tick())

	assert.True(t, sched.Input()[playback.Port1].IsPressed(playback.Left))
}

func TestHostActions(t *testing.T) {
	sched, _, host := newFreePlay(t, 2)

	require.NoError(t, host.Dispatch(terminal.Input{Action: terminal.ActionFaster}))
	assert.Equal(t, 2, sched.Speed())
	require.NoError(t, host.Dispatch(terminal.Input{Action: terminal.ActionSlower}))
	require.NoError(t, host.Dispatch(terminal.Input{Action: terminal.ActionSlower}))
	assert.Equal(t, -2, sched.Speed())

	require.NoError(t, host.Dispatch(terminal.Input{Action: terminal.ActionPause}))
	assert.True(t, sched.Paused())

	assert.ErrorIs(t, host.Dispatch(terminal.Input{Action: terminal.ActionReplay}), playback.ErrNoMovie)
	assert.Equal(t, playback.FreePlay, sched.Mode())

	assert.ErrorIs(t, host.Dispatch(terminal.Input{Action: terminal.ActionQuit}), terminal.ErrQuit)
}

func TestHostIgnoresKeysDuringIdle(t *testing.T) {
	loop := playback.NewLoop()
	machine := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer())
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Logger = discard
	})
	host := terminal.NewHost(sched, loop)

	require.NoError(t, host.Dispatch(terminal.Input{Key: playback.KeyZ}))
	assert.False(t, host.Held(playback.KeyZ))
	assert.Equal(t, playback.Controllers{}, sched.Input())
}

func TestReadFromDispatchesOnTheLoop(t *testing.T) {
	sched, loop, host := newFreePlay(t, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	err := host.ReadFrom(ctx, strings.NewReader("z+rq"))
	require.ErrorIs(t, err, terminal.ErrQuit)

	var speed int
	var input playback.Controllers
	require.NoError(t, loop.Call(ctx, func() error {
		speed = sched.Speed()
		input = sched.Input()
		return nil
	}))
	assert.Equal(t, 2, speed)
	assert.True(t, input[playback.Port1].IsPressed(playback.A))
}

func TestReadFromStopsAtEndOfInput(t *testing.T) {
	_, loop, host := newFreePlay(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	assert.NoError(t, host.ReadFrom(ctx, strings.NewReader("p")))
}
