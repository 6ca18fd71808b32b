package terminal

import "github.com/guslan/playback"

// Action is a host command bound to a key outside of the controller keys
type Action byte

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
	ActionFaster
	ActionSlower
	ActionPlay
	ActionReplay
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionQuit:
		return "quit"
	case ActionPause:
		return "pause"
	case ActionFaster:
		return "faster"
	case ActionSlower:
		return "slower"
	case ActionPlay:
		return "play"
	case ActionReplay:
		return "replay"
	}

	return "unknown"
}

// Input is one decoded keystroke. Exactly one of Key and Action is set.
type Input struct {
	Key    playback.KeyCode
	Action Action
}

const (
	keyInterrupt = 3
	keyEsc       = 27
	escCursor    = '['
)

var cursorKeys = map[byte]playback.KeyCode{
	'A': playback.KeyUp,
	'B': playback.KeyDown,
	'C': playback.KeyRight,
	'D': playback.KeyLeft,
}

var actionKeys = map[byte]Action{
	keyInterrupt: ActionQuit,
	'q':          ActionQuit,
	'p':          ActionPause,
	'+':          ActionFaster,
	'=':          ActionFaster,
	'-':          ActionSlower,
	'f':          ActionPlay,
	'r':          ActionReplay,
}

// Decode turns raw terminal bytes into inputs. Unknown bytes and
// escape sequences are dropped.
func Decode(buf []byte) []Input {
	inputs := make([]Input, 0, len(buf))

	for i := 0; i < len(buf); i++ {
		b := buf[i]

		if b == keyEsc {
			if i+2 < len(buf) && buf[i+1] == escCursor {
				if code, ok := cursorKeys[buf[i+2]]; ok {
					inputs = append(inputs, Input{Key: code})
				}
				i += 2
			}
			continue
		}

		if a, ok := actionKeys[b]; ok {
			inputs = append(inputs, Input{Action: a})
			continue
		}

		switch b {
		case '\r', '\n':
			inputs = append(inputs, Input{Key: playback.KeyEnter})
		case ' ':
			inputs = append(inputs, Input{Key: playback.KeySpace})
		case 'z', 'Z':
			inputs = append(inputs, Input{Key: playback.KeyZ})
		case 'x', 'X':
			inputs = append(inputs, Input{Key: playback.KeyX})
		}
	}

	return inputs
}
