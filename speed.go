package playback

// SpeedController converts an integer speed into a per-tick number of frames.
//
// Positive values run that many frames per tick (2 is 200%).
// Negative values run one frame every |speed| ticks (-2 is 50%).
// 0 and -1 have no meaning, so Increase and Decrease skip over them.
type SpeedController struct {
	speed    int
	subframe int
}

const DefaultSpeed = 1

func NewSpeedController() *SpeedController {
	return &SpeedController{
		speed:    DefaultSpeed,
		subframe: 0,
	}
}

func (sc SpeedController) Speed() int {
	return sc.speed
}

// Subframe is the number of ticks since the last slow-motion frame
func (sc SpeedController) Subframe() int {
	return sc.subframe
}

// Reset goes back to normal speed
func (sc *SpeedController) Reset() {
	sc.speed = DefaultSpeed
	sc.subframe = 0
}

// ResetSubframe restarts the slow-motion interval without touching the speed
func (sc *SpeedController) ResetSubframe() {
	sc.subframe = 0
}

// Increase speeds the playback up by one step.
// The subframe counter is set to 1 so a slow-motion tick follows right away.
func (sc *SpeedController) Increase() {
	sc.speed++
	if sc.speed == -1 {
		sc.speed = 1
	}
	sc.subframe = 1
}

// Decrease slows the playback down by one step
func (sc *SpeedController) Decrease() {
	sc.speed--
	if sc.speed == 0 {
		sc.speed = -2
	}
}

// FramesToAdvance must be called exactly once per tick.
func (sc *SpeedController) FramesToAdvance() int {
	if sc.speed >= 1 {
		return sc.speed
	}

	// the counter stays below -speed between ticks: Decrease only widens
	// the interval and Increase restarts it at 1
	sc.subframe++
	if sc.subframe == -sc.speed {
		sc.subframe = 0
		return 1
	}

	return 0
}
