package chip8

import "fmt"

// snapshot is everything SaveState keeps. The keypad is input, not state,
// and is left alone by LoadState.
type snapshot struct {
	memory *Memory
	v      [16]byte
	i      uint16
	dt, st byte
	pc     uint16
	sp     byte
	stack  [16]uint16

	cycles, frames uint
	screen         Screen

	rng []byte

	waitingForKey  bool
	keyDstRegister byte
}

// SaveState implements playback.Emulator.
// Only the most recent state is kept.
func (m *Machine) SaveState() error {
	if !m.isLoaded {
		return ErrNoProgramLoaded
	}

	rng, err := m.rng.MarshalBinary()
	if err != nil {
		return fmt.Errorf("saving random generator: %w", err)
	}

	m.saved = &snapshot{
		memory: m.Memory.Clone(),
		v:      m.V,
		i:      m.I,
		dt:     m.Dt,
		st:     m.St,
		pc:     m.Pc,
		sp:     m.Sp,
		stack:  m.Stack,

		cycles: m.cycles,
		frames: m.frames,
		screen: m.screen.Clone(),

		rng: rng,

		waitingForKey:  m.waitingForKey,
		keyDstRegister: m.keyDstRegister,
	}

	return nil
}

// LoadState implements playback.Emulator.
// The saved state stays available so it can be loaded again.
func (m *Machine) LoadState() error {
	s := m.saved
	if s == nil {
		return ErrNoSavedState
	}

	if err := m.rng.UnmarshalBinary(s.rng); err != nil {
		return fmt.Errorf("loading random generator: %w", err)
	}

	m.Memory = s.memory.Clone()
	m.V = s.v
	m.I = s.i
	m.Dt = s.dt
	m.St = s.st
	m.Pc = s.pc
	m.Sp = s.sp
	m.Stack = s.stack

	m.cycles = s.cycles
	m.frames = s.frames
	m.screen = s.screen.Clone()
	m.isScreenDirty = true

	m.waitingForKey = s.waitingForKey
	m.keyDstRegister = s.keyDstRegister
	m.lastError = nil

	return nil
}

// HasSavedState reports whether LoadState has something to load
func (m Machine) HasSavedState() bool {
	return m.saved != nil
}
