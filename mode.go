// Package playback schedules an emulator frame by frame, either from live
// controller input or by replaying a recorded movie, at an adjustable speed.
package playback

// Mode is the active input source of the scheduler
type Mode byte

const (
	// Idle means nothing is loaded or running
	Idle Mode = iota
	// FreePlay means live keyboard input drives the machine
	FreePlay
	// Replay means a recorded movie drives the machine
	Replay
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case FreePlay:
		return "free-play"
	case Replay:
		return "replay"
	}

	return "unknown"
}
