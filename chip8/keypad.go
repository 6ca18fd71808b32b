package chip8

import "github.com/guslan/playback"

// Keypad is the state of the 16 hex keys, bit n set while key n is held
type Keypad uint16

func (kp Keypad) IsPressed(k byte) bool {
	if k > 0xF {
		return false
	}
	return kp&(1<<k) != 0
}

// FirstPressed returns the lowest held key
func (kp Keypad) FirstPressed() (byte, bool) {
	for k := byte(0); k <= 0xF; k++ {
		if kp.IsPressed(k) {
			return k, true
		}
	}

	return 0, false
}

// NoKey marks a button that is not mapped to any key
const NoKey byte = 0xFF

// ButtonLayout maps every controller button of every port to a hex key
type ButtonLayout [playback.MaxPorts][8]byte

// DefaultButtonLayout puts the directions of the first port on the 2/4/6/8
// cross most programs use, and the second port on the right-hand column.
var DefaultButtonLayout = ButtonLayout{
	{
		playback.ButtonA:      0x5,
		playback.ButtonB:      0x0,
		playback.ButtonSelect: 0xE,
		playback.ButtonStart:  0xF,
		playback.ButtonUp:     0x2,
		playback.ButtonDown:   0x8,
		playback.ButtonLeft:   0x4,
		playback.ButtonRight:  0x6,
	},
	{
		playback.ButtonA:      0x3,
		playback.ButtonB:      0x9,
		playback.ButtonSelect: NoKey,
		playback.ButtonStart:  NoKey,
		playback.ButtonUp:     0xC,
		playback.ButtonDown:   0xD,
		playback.ButtonLeft:   0xA,
		playback.ButtonRight:  0xB,
	},
}

// Keypad converts controller input into the keys held
func (l ButtonLayout) Keypad(c playback.Controllers) Keypad {
	var kp Keypad
	for port, mask := range c {
		for b, k := range l[port] {
			if k != NoKey && mask.IsPressed(playback.Button(b)) {
				kp |= 1 << k
			}
		}
	}

	return kp
}
