package playback

import "strings"

// Button is a logical controller button
type Button byte

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight

	numButtons
)

var buttonNames = [numButtons]string{"A", "B", "SELECT", "START", "UP", "DOWN", "LEFT", "RIGHT"}

func (b Button) String() string {
	if b >= numButtons {
		return "NONE"
	}
	return buttonNames[b]
}

// ParseButton looks a button up by its name, case insensitive
func ParseButton(name string) (Button, bool) {
	for i, n := range buttonNames {
		if strings.EqualFold(n, name) {
			return Button(i), true
		}
	}

	return 0, false
}

// InputBitmask holds one bit per button of a single controller port.
// Bit n is set while Button(n) is held.
type InputBitmask uint8

func (m InputBitmask) IsPressed(b Button) bool {
	if b >= numButtons {
		return false
	}
	return m&(1<<b) != 0
}

func (m InputBitmask) With(b Button) InputBitmask {
	if b >= numButtons {
		return m
	}
	return m | 1<<b
}

func (m InputBitmask) Without(b Button) InputBitmask {
	if b >= numButtons {
		return m
	}
	return m &^ (1 << b)
}

func (m InputBitmask) String() string {
	sb := strings.Builder{}
	for b := Button(0); b < numButtons; b++ {
		if m.IsPressed(b) {
			sb.WriteByte(buttonNames[b][0])
		} else {
			sb.WriteByte('.')
		}
	}

	return sb.String()
}

const MaxPorts = 2

// Port selects a controller port, starting at 0
type Port byte

const (
	Port1 Port = iota
	Port2
)

// Controllers is the input of every port for one frame
type Controllers [MaxPorts]InputBitmask

// KeyCode is a raw host key code. The values follow the browser keyCode numbering.
type KeyCode int

const (
	KeyEnter KeyCode = 13
	KeySpace KeyCode = 32
	KeyLeft  KeyCode = 37
	KeyUp    KeyCode = 38
	KeyRight KeyCode = 39
	KeyDown  KeyCode = 40
	KeyX     KeyCode = 88
	KeyZ     KeyCode = 90
)

var keyCodes = map[KeyCode]Button{
	KeyZ:     ButtonA,
	KeyX:     ButtonB,
	KeySpace: ButtonSelect,
	KeyEnter: ButtonStart,
	KeyUp:    ButtonUp,
	KeyDown:  ButtonDown,
	KeyLeft:  ButtonLeft,
	KeyRight: ButtonRight,
}

// MapKeyCode returns the button bound to code. Unknown codes report false and
// should be ignored.
func MapKeyCode(code KeyCode) (Button, bool) {
	b, ok := keyCodes[code]
	return b, ok
}

// KeyCodes lists the key bindings, mostly for help screens
func KeyCodes() map[KeyCode]Button {
	m := make(map[KeyCode]Button, len(keyCodes))
	for k, b := range keyCodes {
		m[k] = b
	}
	return m
}

// InputMapper keeps the live pressed/released state of every port.
// It has a single writer: the host delivers input events serially.
type InputMapper struct {
	state Controllers
}

func NewInputMapper() *InputMapper {
	return &InputMapper{
		state: Controllers{},
	}
}

func (im *InputMapper) Press(port Port, b Button) {
	if port >= MaxPorts {
		return
	}
	im.state[port] = im.state[port].With(b)
}

func (im *InputMapper) Release(port Port, b Button) {
	if port >= MaxPorts {
		return
	}
	im.state[port] = im.state[port].Without(b)
}

// Clear releases every button of every port
func (im *InputMapper) Clear() {
	im.state = Controllers{}
}

func (im InputMapper) State() Controllers {
	return im.state
}
