package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/playback"
	"github.com/guslan/playback/chip8"
)

var ScreenBgColor = rl.Gold
var ScreenPixelColor = rl.Yellow

// keyCodes binds raylib keys to the browser key codes the scheduler maps
var keyCodes = map[int32]playback.KeyCode{
	rl.KeyZ:     playback.KeyZ,
	rl.KeyX:     playback.KeyX,
	rl.KeySpace: playback.KeySpace,
	rl.KeyEnter: playback.KeyEnter,
	rl.KeyUp:    playback.KeyUp,
	rl.KeyDown:  playback.KeyDown,
	rl.KeyLeft:  playback.KeyLeft,
	rl.KeyRight: playback.KeyRight,
}

// Boot implements chip8.Display.
func (app *App) Boot() error {
	return nil
}

// Render implements chip8.Display.
func (app *App) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	if len(app.screen) != settings.Pixels() {
		app.screen = make([]byte, settings.Pixels())
	}
	screen.Unpack(settings, app.screen)

	return nil
}

func (app *App) drawScreen() {
	s := app.Machine.ScreenSettings

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			color := ScreenBgColor
			if app.screen[y*s.Width+x] > 0 {
				color = ScreenPixelColor
			}

			rl.DrawRectangle(
				ScreenPositionX+ScreenPixelSize*int32(x),
				ScreenPositionY+ScreenPixelSize*int32(y),
				ScreenPixelSize,
				ScreenPixelSize,
				color)
		}
	}
}
