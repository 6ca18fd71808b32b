package playback

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoDecoder is returned when movie data is set on a scheduler built without a MovieDecoder
var ErrNoDecoder = errors.New("no movie decoder configured")

// EndPolicy decides what a replay does once the movie has no frames left
type EndPolicy byte

const (
	// EndPause pauses on the last recorded frame
	EndPause EndPolicy = iota
	// EndHold keeps running with neutral input
	EndHold
	// EndLoop restarts the movie from the warm-up checkpoint
	EndLoop
)

func (p EndPolicy) String() string {
	switch p {
	case EndPause:
		return "pause"
	case EndHold:
		return "hold"
	case EndLoop:
		return "loop"
	}

	return "unknown"
}

// ParseEndPolicy is the inverse of EndPolicy.String
func ParseEndPolicy(s string) (EndPolicy, error) {
	for _, p := range []EndPolicy{EndPause, EndHold, EndLoop} {
		if p.String() == s {
			return p, nil
		}
	}

	return EndPause, fmt.Errorf("unknown end policy %q", s)
}

type Config struct {
	Decoder   MovieDecoder
	EndPolicy EndPolicy
	Logger    *slog.Logger
}
type ConfigCb func(config *Config)

// Scheduler drives the emulator once per tick, in free play or replaying a
// movie, at the current speed.
//
// It is not safe for concurrent use. Ticks and input events must be
// delivered from a single context, see Loop.
type Scheduler struct {
	emu       Emulator
	ticker    Ticker
	decode    MovieDecoder
	endPolicy EndPolicy
	log       *slog.Logger

	session Session
	movie   MovieSource
	mode    Mode
	handle  TickHandle

	speed *SpeedController
	input *InputMapper

	paused     bool
	keysBound  bool
	movieEnded bool
	frames     uint64
	lastError  error

	// Hooks that run after every advanced frame
	afterFrameHooks []Hook
	// Hooks that run when a replay runs out of frames
	movieEndHooks []Hook
	// Hooks that run after the emulator failed during a tick
	errorHooks []ErrorHook
}

func NewScheduler(emu Emulator, ticker Ticker, configs ...ConfigCb) *Scheduler {
	config := &Config{
		Decoder:   nil,
		EndPolicy: EndPause,
		Logger:    slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Scheduler{
		emu:       emu,
		ticker:    ticker,
		decode:    config.Decoder,
		endPolicy: config.EndPolicy,
		log:       config.Logger,

		mode:   Idle,
		handle: nil,

		speed: NewSpeedController(),
		input: NewInputMapper(),

		afterFrameHooks: make([]Hook, 0),
		movieEndHooks:   make([]Hook, 0),
		errorHooks:      make([]ErrorHook, 0),
	}
}

func (s Scheduler) Mode() Mode {
	return s.mode
}

func (s Scheduler) Speed() int {
	return s.speed.Speed()
}

func (s Scheduler) Paused() bool {
	return s.paused
}

// Frames is the number of frames advanced since playback last started
func (s Scheduler) Frames() uint64 {
	return s.frames
}

// Err is the emulator failure that stopped the last playback, if any
func (s Scheduler) Err() error {
	return s.lastError
}

func (s Scheduler) Session() Session {
	return s.session
}

// Input is the live controller state
func (s Scheduler) Input() Controllers {
	return s.input.State()
}

// MoviePosition is the replay cursor, 0 outside of replay
func (s Scheduler) MoviePosition() int {
	if s.mode != Replay || s.movie == nil {
		return 0
	}
	return s.movie.Position()
}

// SetSession replaces the assets used by the next start. A non-empty movie
// is decoded right away so a broken movie is reported here. Playback in
// progress is not affected.
func (s *Scheduler) SetSession(program, movie []byte) error {
	session := Session{Program: program}

	if len(movie) > 0 {
		if s.decode == nil {
			return ErrNoDecoder
		}
		source, err := s.decode(movie)
		if err != nil {
			return fmt.Errorf("decoding movie: %w", err)
		}
		session.Movie = movie
		session.source = source
	}

	s.session = session
	s.log.Info("Session set",
		slog.Int("program_size", len(program)),
		slog.Int("movie_size", len(movie)))

	return nil
}

// Start replays the movie when the session has one and starts free play otherwise
func (s *Scheduler) Start() error {
	if !s.session.HasProgram() {
		return ErrNoProgram
	}
	if s.session.HasMovie() {
		return s.StartReplay()
	}

	return s.StartFreePlay()
}

// StartFreePlay loads the program and lets live input drive the machine
func (s *Scheduler) StartFreePlay() error {
	if !s.session.HasProgram() {
		return ErrNoProgram
	}

	s.cancelTick()
	s.movie = nil

	if err := s.emu.LoadProgram(s.session.Program); err != nil {
		return s.stop(adapterError("load program", err))
	}
	s.emu.SetPaused(false)

	s.speed.ResetSubframe()
	s.frames = 0
	s.lastError = nil
	s.keysBound = true
	s.mode = FreePlay
	s.handle = s.ticker.Register(s.tickFreePlay)

	s.log.Info("Free play started", slog.Int("speed", s.speed.Speed()))

	return nil
}

// StartReplay loads the program and replays the movie from its first frame at normal speed
func (s *Scheduler) StartReplay() error {
	if !s.session.HasProgram() {
		return ErrNoProgram
	}
	if !s.session.HasMovie() {
		return ErrNoMovie
	}

	s.cancelTick()
	s.unbindKeys()
	s.movie = s.session.source
	s.movie.Reset()

	if err := s.emu.LoadProgram(s.session.Program); err != nil {
		return s.stop(adapterError("load program", err))
	}
	if err := Warmup(s.emu); err != nil {
		return s.stop(err)
	}

	s.speed.Reset()
	s.paused = false
	s.movieEnded = false
	s.frames = 0
	s.lastError = nil
	s.mode = Replay
	s.handle = s.ticker.Register(s.tickReplay)

	s.log.Info("Replay started", slog.Int("movie_frames", s.movie.Len()))

	return nil
}

// TogglePause flips the pause state and returns it
func (s *Scheduler) TogglePause() bool {
	s.paused = !s.paused
	s.log.Debug("Pause toggled", slog.Bool("paused", s.paused))

	return s.paused
}

func (s *Scheduler) IncreaseSpeed() int {
	s.speed.Increase()
	s.log.Debug("Speed changed", slog.Int("speed", s.speed.Speed()))

	return s.speed.Speed()
}

func (s *Scheduler) DecreaseSpeed() int {
	s.speed.Decrease()
	s.log.Debug("Speed changed", slog.Int("speed", s.speed.Speed()))

	return s.speed.Speed()
}

// Press holds b on the first port
func (s *Scheduler) Press(b Button) {
	s.input.Press(Port1, b)
}

// Release lets go of b on the first port
func (s *Scheduler) Release(b Button) {
	s.input.Release(Port1, b)
}

func (s *Scheduler) PressOn(port Port, b Button) {
	s.input.Press(port, b)
}

func (s *Scheduler) ReleaseOn(port Port, b Button) {
	s.input.Release(port, b)
}

// KeyDown handles a raw key press. Keys are only bound during free play;
// unbound or unknown keys are ignored and report false.
func (s *Scheduler) KeyDown(code KeyCode) bool {
	if !s.keysBound {
		return false
	}
	b, ok := MapKeyCode(code)
	if !ok {
		return false
	}
	s.input.Press(Port1, b)

	return true
}

// KeyUp is the release counterpart of KeyDown
func (s *Scheduler) KeyUp(code KeyCode) bool {
	if !s.keysBound {
		return false
	}
	b, ok := MapKeyCode(code)
	if !ok {
		return false
	}
	s.input.Release(Port1, b)

	return true
}

func (s *Scheduler) cancelTick() {
	if s.handle != nil {
		s.handle.Cancel()
		s.handle = nil
	}
}

// unbindKeys also drops the held buttons, their key ups would be ignored
func (s *Scheduler) unbindKeys() {
	s.keysBound = false
	s.input.Clear()
}

// stop tears the playback down after an emulator failure
func (s *Scheduler) stop(err error) error {
	s.cancelTick()
	s.mode = Idle
	s.unbindKeys()
	s.lastError = err
	s.log.Error("Playback stopped", slog.Any("error", err))

	return err
}

func (s *Scheduler) tickFreePlay() error {
	if s.paused {
		return nil
	}

	for n := s.speed.FramesToAdvance(); n > 0; n-- {
		s.emu.SetControllerBits(s.input.State())
		if err := s.advance(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) tickReplay() error {
	if s.paused {
		return nil
	}

	for n := s.speed.FramesToAdvance(); n > 0; n-- {
		s.emu.SetControllerBits(s.movie.NextFrameInput())
		if err := s.advance(); err != nil {
			return err
		}

		if s.movie.IsEndOfStream() {
			if err := s.endOfMovie(); err != nil {
				return err
			}
			if s.paused {
				break
			}
		}
	}

	return nil
}

func (s *Scheduler) advance() error {
	if err := s.emu.AdvanceFrame(); err != nil {
		err = s.stop(adapterError("advance", err))
		s.runErrorHooks(err)
		return err
	}
	s.frames++
	s.runHooks(s.afterFrameHooks)

	return nil
}

func (s *Scheduler) endOfMovie() error {
	if s.movieEnded {
		return nil
	}
	s.movieEnded = true

	s.log.Info("Movie ended",
		slog.Int("movie_frames", s.movie.Len()),
		slog.String("policy", s.endPolicy.String()))
	s.runHooks(s.movieEndHooks)

	switch s.endPolicy {
	case EndPause:
		s.paused = true

	case EndLoop:
		s.movie.Reset()
		if err := s.emu.LoadState(); err != nil {
			err = s.stop(adapterError("load state", err))
			s.runErrorHooks(err)
			return err
		}
		s.movieEnded = false
	}

	return nil
}

// Status is a snapshot of the scheduler for display
type Status struct {
	Mode          string `json:"mode"`
	Speed         int    `json:"speed"`
	Paused        bool   `json:"paused"`
	Frames        uint64 `json:"frames"`
	MoviePosition int    `json:"moviePosition"`
	MovieLength   int    `json:"movieLength"`
	MovieEnded    bool   `json:"movieEnded"`
	HasProgram    bool   `json:"hasProgram"`
	HasMovie      bool   `json:"hasMovie"`
	Error         string `json:"error,omitempty"`
}

func (s Scheduler) Status() Status {
	st := Status{
		Mode:          s.mode.String(),
		Speed:         s.speed.Speed(),
		Paused:        s.paused,
		Frames:        s.frames,
		MoviePosition: s.MoviePosition(),
		MovieEnded:    s.movieEnded,
		HasProgram:    s.session.HasProgram(),
		HasMovie:      s.session.HasMovie(),
	}
	if s.mode == Replay && s.movie != nil {
		st.MovieLength = s.movie.Len()
	}
	if s.lastError != nil {
		st.Error = s.lastError.Error()
	}

	return st
}
