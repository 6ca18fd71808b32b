// Package gui is a raylib desktop host. Every drawn window frame is one
// scheduler tick.
package gui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/playback"
	"github.com/guslan/playback/assets"
	"github.com/guslan/playback/chip8"
	"github.com/guslan/playback/movie"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	ScreenPixelSize = 15
	ScreenPositionX = 0
	ScreenPositionY = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30

	// raylib redraws at the rate the scheduler expects ticks
	TargetFPS = 60
)

var MessageBarBgColor = rl.DarkGray
var MessageBarInfoColor = rl.SkyBlue
var MessageBarSuccessColor = rl.Lime
var MessageBarWarningColor = rl.Gold
var MessageBarErrorColor = rl.Red

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

type App struct {
	Machine *chip8.Machine
	Sched   *playback.Scheduler

	ticker *playback.FrameTicker
	log    *slog.Logger

	// Unpacked screen representation
	screen []byte

	// Window width and height
	winW, winH int

	// Toolbar
	playBtn, replayBtn, pauseBtn, slowerBtn, fasterBtn bool

	program []byte
	movie   []byte

	lastMessage      string
	lastMessageColor rl.Color
}

type AppConfig struct {
	CyclesPerFrame uint
	EndPolicy      playback.EndPolicy
	Logger         *slog.Logger
}
type AppConfigCb func(config *AppConfig)

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		CyclesPerFrame: chip8.DefaultCyclesPerFrame,
		EndPolicy:      playback.EndPause,
		Logger:         slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		ticker: playback.NewFrameTicker(),
		log:    config.Logger,
	}

	app.Machine = chip8.NewMachine(app, chip8.NewDummyBuzzer(), func(mc *chip8.MachineConfig) {
		mc.CyclesPerFrame = config.CyclesPerFrame
	})
	app.Sched = playback.NewScheduler(app.Machine, app.ticker, func(sc *playback.Config) {
		sc.Decoder = movie.Decoder
		sc.EndPolicy = config.EndPolicy
		sc.Logger = config.Logger
	})
	app.Sched.AddMovieEndHook(func(s *playback.Scheduler) {
		app.showMessage(fmt.Sprintf("Movie ended after %d frames", s.Frames()), MessageSuccess)
	})
	app.Sched.AddErrorHook(func(s *playback.Scheduler, err error) {
		app.showMessage(err.Error(), MessageError)
	})

	app.screen = make([]byte, app.Machine.ScreenSettings.Pixels())
	app.updateWindowSize()

	return app
}

// Load reads a program or, for .fm2 files, a movie from disk and makes it
// part of the session used by the next start
func (app *App) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		app.fail("Error loading file", err)
		return err
	}

	program, mov := app.program, app.movie
	if strings.EqualFold(filepath.Ext(path), ".fm2") {
		mov = data
	} else {
		program = data
	}

	if err := app.LoadAssets(assets.Assets{Program: program, Movie: mov}); err != nil {
		return err
	}

	app.log.Info("File loaded", slog.String("path", path))
	app.showMessage(fmt.Sprintf("'%s' loaded", filepath.Base(path)), MessageInfo)

	return nil
}

// LoadAssets replaces the session
func (app *App) LoadAssets(a assets.Assets) error {
	if err := app.Sched.SetSession(a.Program, a.Movie); err != nil {
		app.fail("Error loading session", err)
		return err
	}
	app.program, app.movie = a.Program, a.Movie

	return nil
}

// Run opens the window and drives the scheduler until it is closed
func (app *App) Run(autostart bool) {
	rl.InitWindow(int32(app.winW), int32(app.winH), "playback")
	defer rl.CloseWindow()

	rl.SetTargetFPS(TargetFPS)

	if autostart && len(app.program) > 0 {
		app.start(app.Sched.Start)
	}

	for !rl.WindowShouldClose() {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeys()

		// AdapterErrors are already reported by the error hook
		if err := app.ticker.Tick(); err != nil {
			var adapterErr *playback.AdapterError
			if !errors.As(err, &adapterErr) {
				app.fail("Tick failed", err)
			}
		}

		// Sections get rendered from bottom to the top so that the toolbar stays on top
		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}
}

func (app *App) updateWindowSize() {
	app.winW = app.Machine.ScreenSettings.Width * ScreenPixelSize
	app.winH = app.Machine.ScreenSettings.Height*ScreenPixelSize + ToolbarHeight + MessageBarHeigh
	app.log.Info("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *App) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		app.log.Info("Files were dropped", "files", strings.Join(files, ","))

		for _, f := range files {
			app.Load(f)
		}
	}
}

func (app *App) start(fn func() error) {
	if err := fn(); err != nil {
		app.fail("Error starting playback", err)
		return
	}
	app.showMessage(fmt.Sprintf("Playing in %s mode", app.Sched.Mode()), MessageInfo)
}

func (app *App) fail(msg string, err error) {
	app.log.Error(msg, slog.Any("error", err))
	app.showMessage(err.Error(), MessageError)
}

func (app *App) handleActions() {
	if app.playBtn {
		app.start(app.Sched.StartFreePlay)
	}
	if app.replayBtn {
		app.start(app.Sched.StartReplay)
	}
	if app.pauseBtn || rl.IsKeyPressed(rl.KeyP) {
		app.Sched.TogglePause()
	}
	if app.slowerBtn || rl.IsKeyPressed(rl.KeyMinus) {
		app.Sched.DecreaseSpeed()
	}
	if app.fasterBtn || rl.IsKeyPressed(rl.KeyEqual) {
		app.Sched.IncreaseSpeed()
	}
}

func (app *App) handleKeys() {
	for key, code := range keyCodes {
		if rl.IsKeyPressed(key) {
			app.Sched.KeyDown(code)
		}
		if rl.IsKeyReleased(key) {
			app.Sched.KeyUp(code)
		}
	}
}

func (app *App) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	app.playBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*0, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PLAY, "Play"),
	)
	app.replayBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*1, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_ROTATE, "Replay"),
	)
	app.pauseBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*2, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PAUSE, "Pause"),
	)

	state := app.Sched.Mode().String()
	if app.Sched.Paused() {
		state += " (paused)"
	}
	gui.Label(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*3, ToolbarGap, ToolbarBtnWidth*2, ToolbarBtnHeight),
		state,
	)

	app.slowerBtn = gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, ToolbarGap, 40, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PREVIOUS, ""),
	)
	gui.Label(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-105, ToolbarGap, 60, ToolbarBtnHeight),
		speedLabel(app.Sched.Speed()),
	)
	app.fasterBtn = gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-40, ToolbarGap, 40, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_NEXT, ""),
	)
}

// speedLabel shows fast forward as a multiplier and slow motion as a fraction
func speedLabel(speed int) string {
	if speed < 0 {
		return fmt.Sprintf("1/%dx", -speed)
	}
	return fmt.Sprintf("%dx", speed)
}

func (app *App) showMessage(msg string, mType MessageType) {
	app.lastMessage = msg
	switch mType {
	case MessageInfo:
		app.lastMessageColor = MessageBarInfoColor

	case MessageSuccess:
		app.lastMessageColor = MessageBarSuccessColor

	case MessageWarning:
		app.lastMessageColor = MessageBarWarningColor

	case MessageError:
		app.lastMessageColor = MessageBarErrorColor
	}
}

func (app *App) drawMessageBar() {
	rl.DrawRectangle(
		0,
		int32(app.winH)-MessageBarHeigh,
		int32(app.winW),
		MessageBarHeigh,
		MessageBarBgColor,
	)

	rl.DrawText(
		app.lastMessage,
		MessageBarGap,
		int32(app.winH)-MessageBarHeigh+MessageBarGap,
		16,
		app.lastMessageColor,
	)
}
