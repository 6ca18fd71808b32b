/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/guslan/playback"
	"github.com/guslan/playback/assets"
	"github.com/guslan/playback/chip8"
	"github.com/guslan/playback/internal/logger"
	"github.com/guslan/playback/internal/options"
	"github.com/guslan/playback/movie"
	"github.com/guslan/playback/terminal"
)

type CLI struct {
	options.Assets   `embed:""`
	options.Playback `embed:""`

	TTY       string `default:"/dev/tty" help:"Terminal used for the keyboard and the display"`
	LogFile   string `type:"path" help:"Write logs to this file instead of stderr, which shares the terminal"`
	HoldTicks int    `default:"30" help:"Ticks a key stays pressed after the terminal reports it"`
}

func (c *CLI) Validate() error {
	if c.Assets.IsEmpty() {
		return errors.New("must provide a program to run")
	}
	if c.HoldTicks <= 0 {
		return errors.New("hold ticks must be positive")
	}

	return errors.Join(c.Assets.Validate(), c.Playback.Validate())
}

func (c *CLI) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := c.Assets.Load(ctx, assets.NewLoader())
	if err != nil {
		return err
	}

	tty, err := terminal.OpenTTY(c.TTY, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer tty.Close()

	loop := playback.NewLoop()
	machine := chip8.NewMachine(chip8.NewTerminalDisplayWithOutput(tty), chip8.NewDummyBuzzer(),
		func(config *chip8.MachineConfig) {
			config.CyclesPerFrame = c.Cycles
		})
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Decoder = movie.Decoder
		config.EndPolicy = c.Policy()
	})
	host := terminal.NewHost(sched, loop, func(config *terminal.HostConfig) {
		config.HoldTicks = c.HoldTicks
	})
	defer host.Close()

	if err := sched.SetSession(a.Program, a.Movie); err != nil {
		return err
	}
	if c.Autostart {
		if err := sched.Start(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(ctx)
	})
	g.Go(func() error {
		return host.ReadFrom(ctx, tty)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, terminal.ErrQuit) {
		return err
	}

	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("playback-cli"),
		kong.Description("Play a program in the terminal, or replay a movie of it. Z X space enter and the arrows are the pad; p pauses, + and - change the speed, f plays, r replays, q quits."),
		kong.UsageOnError(),
	)

	var out io.Writer = os.Stderr
	if cli.LogFile != "" {
		f, err := os.OpenFile(cli.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	_, thisFile, _, _ := runtime.Caller(0)
	if err := logger.SetupSLog(out, path.Dir(path.Dir(path.Dir(thisFile)))); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := ctx.Run(); err != nil {
		slog.Error("Exiting", slog.Any("error", err))
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
