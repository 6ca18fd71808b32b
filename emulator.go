package playback

// Emulator is the capability set the scheduler needs from the emulated machine.
//
// AdvanceFrame runs exactly one frame even while the machine is paused;
// SetPaused only stops the machine from running on its own.
type Emulator interface {
	LoadProgram(program []byte) error
	AdvanceFrame() error
	// SetControllerBits sets the input consumed by the next AdvanceFrame
	SetControllerBits(Controllers)
	SaveState() error
	LoadState() error
	SetPaused(paused bool)
}

// Warmup runs the sequence an emulator needs before replaying a movie from
// a freshly loaded program.
//
// Pausing only takes effect once a frame has run, and running that frame
// changes the machine state. The state is saved first and restored after
// the pause so the movie starts from the power-on frame. The saved state is
// kept by the emulator and is the checkpoint a looping replay returns to.
func Warmup(e Emulator) error {
	if err := e.SaveState(); err != nil {
		return adapterError("save state", err)
	}
	if err := e.AdvanceFrame(); err != nil {
		return adapterError("advance", err)
	}
	e.SetPaused(true)
	if err := e.LoadState(); err != nil {
		return adapterError("load state", err)
	}

	return nil
}

// MovieSource is a cursor over recorded per-frame input
type MovieSource interface {
	// Reset moves the cursor back to the first frame
	Reset()
	// NextFrameInput returns the input of the current frame and moves the
	// cursor forward. Past the end it returns neutral input.
	NextFrameInput() Controllers
	// IsEndOfStream reports whether every frame has been consumed
	IsEndOfStream() bool
	// Position is the number of frames consumed since the last Reset
	Position() int
	// Len is the number of frames in the movie
	Len() int
}

// MovieDecoder turns raw movie bytes into a MovieSource
type MovieDecoder func(data []byte) (MovieSource, error)
