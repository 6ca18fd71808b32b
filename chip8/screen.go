package chip8

// Screen is a 1 bit per pixel frame buffer, 8 pixels per byte, most
// significant bit first
type Screen []byte

// ScreenSettings for the console
// Common display sizes are 64x32 and 128x64.
type ScreenSettings struct {
	Width, Height int
}

var SmallScreen = ScreenSettings{
	Width:  64,
	Height: 32,
}

func (s ScreenSettings) Pixels() int {
	return s.Width * s.Height
}

func newScreen(s ScreenSettings) Screen {
	return make(Screen, (s.Pixels()+7)/8)
}

func (scr Screen) Clone() Screen {
	c := make(Screen, len(scr))
	copy(c, scr)

	return c
}

// Pixel reports whether the pixel at x, y is lit
func (scr Screen) Pixel(s ScreenSettings, x, y int) bool {
	t := y*s.Width + x
	return scr[t/8]&(0x80>>(t%8)) != 0
}

// Unpack writes one byte per pixel, 1 for lit and 0 for dark, into dst
func (scr Screen) Unpack(s ScreenSettings, dst []byte) {
	for t := 0; t < s.Pixels() && t < len(dst); t++ {
		dst[t] = (scr[t/8] >> (7 - t%8)) & 0b1
	}
}

// flip toggles a pixel and reports whether it was lit before
func (scr Screen) flip(s ScreenSettings, x, y int) bool {
	t := y*s.Width + x
	mask := byte(0x80 >> (t % 8))
	erased := scr[t/8]&mask != 0
	scr[t/8] ^= mask

	return erased
}

func (m *Machine) clearScreen() {
	m.screen = newScreen(m.ScreenSettings)
	m.isScreenDirty = true
}

// drawSprite XORs an 8 pixel wide sprite row onto the screen, wrapping
// around the edges. Returns whether any lit pixel was erased.
func (m *Machine) drawSprite(x, y int, row byte) bool {
	s := m.ScreenSettings
	y %= s.Height

	collision := false
	for bit := 0; bit < 8; bit++ {
		if row&(0x80>>bit) == 0 {
			continue
		}
		if m.screen.flip(s, (x+bit)%s.Width, y) {
			collision = true
		}
	}
	m.isScreenDirty = true

	return collision
}
