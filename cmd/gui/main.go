package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/alecthomas/kong"

	"github.com/guslan/playback/assets"
	"github.com/guslan/playback/gui"
	"github.com/guslan/playback/internal/logger"
	"github.com/guslan/playback/internal/options"
)

type GUI struct {
	options.Assets   `embed:""`
	options.Playback `embed:""`
}

func (g *GUI) Validate() error {
	return errors.Join(g.Assets.Validate(), g.Playback.Validate())
}

func (g *GUI) Run() error {
	app := gui.NewApp(func(config *gui.AppConfig) {
		config.CyclesPerFrame = g.Cycles
		config.EndPolicy = g.Policy()
	})

	// without assets the window opens empty and files can be dropped on it
	if !g.Assets.IsEmpty() {
		a, err := g.Assets.Load(context.Background(), assets.NewLoader())
		if err != nil {
			return err
		}
		if err := app.LoadAssets(a); err != nil {
			return err
		}
	}

	app.Run(g.Autostart)

	return nil
}

func main() {
	_, thisFile, _, _ := runtime.Caller(0)
	if err := logger.SetupSLog(os.Stdout, path.Dir(path.Dir(path.Dir(thisFile)))); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli GUI
	ctx := kong.Parse(&cli,
		kong.Name("playback-gui"),
		kong.Description("Play a program in a window, or replay a movie of it. Drop a program or an .fm2 movie on the window to load it."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
