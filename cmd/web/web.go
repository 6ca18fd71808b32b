/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime"

	"github.com/alecthomas/kong"

	"github.com/guslan/playback"
	"github.com/guslan/playback/assets"
	"github.com/guslan/playback/chip8"
	"github.com/guslan/playback/internal/logger"
	"github.com/guslan/playback/internal/options"
	"github.com/guslan/playback/movie"
	"github.com/guslan/playback/web"
)

type Web struct {
	options.Assets   `embed:""`
	options.Playback `embed:""`

	Port      int    `short:"p" default:"9999" help:"Port to listen on"`
	Static    string `type:"existingdir" help:"Directory served at the root"`
	SendEvery uint64 `default:"1" help:"Send a status event every this many frames"`
	Debug     bool   `help:"Add the machine registers to status events"`
}

func (w *Web) Validate() error {
	if w.Port <= 0 || w.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535]")
	}

	return errors.Join(w.Assets.Validate(), w.Playback.Validate())
}

func (w *Web) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader := assets.NewLoader()
	loop := playback.NewLoop()
	screen := web.NewScreenSocket(slog.Default())
	machine := chip8.NewMachine(screen, chip8.NewDummyBuzzer(), func(config *chip8.MachineConfig) {
		config.CyclesPerFrame = w.Cycles
	})
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Decoder = movie.Decoder
		config.EndPolicy = w.Policy()
	})
	server := web.NewServer(sched, loop, func(config *web.ServerConfig) {
		config.Screen = screen
		config.StaticDir = w.Static
		config.SendEvery = w.SendEvery
		config.Loader = loader
		if w.Debug {
			config.Probe = func() any { return machine.Registers() }
		}
	})

	// the loop is not running yet so the scheduler can be set up directly
	if !w.Assets.IsEmpty() {
		a, err := w.Assets.Load(ctx, loader)
		if err != nil {
			return err
		}
		if err := sched.SetSession(a.Program, a.Movie); err != nil {
			return err
		}
		if w.Autostart {
			if err := sched.Start(); err != nil {
				return err
			}
		}
	}

	return server.Listen(ctx, fmt.Sprintf(":%d", w.Port))
}

func main() {
	_, thisFile, _, _ := runtime.Caller(0)
	if err := logger.SetupSLog(os.Stdout, path.Dir(path.Dir(path.Dir(thisFile)))); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli Web
	ctx := kong.Parse(&cli,
		kong.Name("playback-web"),
		kong.Description("Serve a program over HTTP and websockets, with the same playback controls as the desktop host."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
