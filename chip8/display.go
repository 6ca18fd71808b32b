package chip8

import (
	"io"
	"os"
)

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render is called after every frame that changed the screen
	Render(Screen, ScreenSettings) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen Screen, settings ScreenSettings) error {
	return nil
}

const ESC = 0x1B

// TerminalDisplay draws the screen with ANSI escapes, two characters per pixel
type TerminalDisplay struct {
	terminal        io.Writer
	OnChar, OffChar string
}

func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWithOutput(os.Stdout)
}

func NewTerminalDisplayWithOutput(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		terminal: out,
		OnChar:   "##",
		OffChar:  "  ",
	}
}

// Boot implements Display.
func (disp *TerminalDisplay) Boot() error {
	_, err := disp.terminal.Write([]byte{
		// Move cursor to start
		ESC, '[', '1', 'H',
		// clear the terminal
		ESC, '[', '0', 'J',
	})

	return err
}

// Render implements Display.
func (disp *TerminalDisplay) Render(screen Screen, settings ScreenSettings) error {
	buff := make([]byte, 0, settings.Pixels()*len(disp.OnChar)+settings.Height*3+8)
	buff = append(buff, ESC, '[', '1', 'H')

	for y := 0; y < settings.Height; y++ {
		for x := 0; x < settings.Width; x++ {
			if screen.Pixel(settings, x, y) {
				buff = append(buff, disp.OnChar...)
			} else {
				buff = append(buff, disp.OffChar...)
			}
		}
		// raw terminals do not translate \n
		buff = append(buff, '|', '\r', '\n')
	}

	_, err := disp.terminal.Write(buff)
	return err
}
