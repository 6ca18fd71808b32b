package chip8

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/guslan/playback"
)

var ErrNoProgramLoaded = errors.New("no program has been loaded into the machine")

var ErrNoSavedState = errors.New("there is no saved state to load")

type ErrOpCodeUnknown struct {
	OpCode uint16
	Pc     uint16
}

func (err ErrOpCodeUnknown) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=%03X", err.OpCode, err.Pc)
}

var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

const (
	// DefaultCyclesPerFrame gives roughly 600 instructions per second at 60 frames per second
	DefaultCyclesPerFrame uint = 10
	MaxCyclesPerFrame     uint = 1000
)

// DefaultSeed seeds the RND instruction so replays are deterministic
const DefaultSeed = 0x5EED

// Machine is a CHIP-8 console driven one frame at a time.
// It implements playback.Emulator.
type Machine struct {
	Memory *Memory
	// V 8-bit registers
	V [16]byte
	// I 16-bit register (12-bit usable)
	I uint16
	// Delay timer register
	Dt byte
	// Sound timer register
	St byte
	// Program counter
	Pc uint16
	// Stack pointer
	Sp byte
	// Stack
	Stack [16]uint16

	cycles uint
	frames uint

	CyclesPerFrame uint

	ScreenSettings ScreenSettings
	screen         Screen
	isScreenDirty  bool

	Display Display
	Buzzer  Buzzer

	Layout ButtonLayout
	keypad Keypad

	rng  *rand.PCG
	seed uint64

	isBooted       bool
	isLoaded       bool
	isPaused       bool
	waitingForKey  bool
	keyDstRegister byte
	lastError      error

	saved *snapshot
}

var _ playback.Emulator = (*Machine)(nil)

type MachineConfig struct {
	ScreenSettings ScreenSettings
	CyclesPerFrame uint
	Layout         ButtonLayout
	Seed           uint64
}
type MachineConfigCb func(config *MachineConfig)

func NewMachine(display Display, buzzer Buzzer, configs ...MachineConfigCb) *Machine {
	config := &MachineConfig{
		ScreenSettings: SmallScreen,
		CyclesPerFrame: DefaultCyclesPerFrame,
		Layout:         DefaultButtonLayout,
		Seed:           DefaultSeed,
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Machine{
		Memory: NewMemory(),

		CyclesPerFrame: min(max(config.CyclesPerFrame, 1), MaxCyclesPerFrame),

		ScreenSettings: config.ScreenSettings,
		screen:         newScreen(config.ScreenSettings),

		Display: display,
		Buzzer:  buzzer,

		Layout: config.Layout,

		rng:  rand.NewPCG(config.Seed, config.Seed),
		seed: config.Seed,
	}
}

func (m Machine) IsPaused() bool {
	return m.isPaused
}

func (m Machine) Cycles() uint {
	return m.cycles
}

func (m Machine) Frames() uint {
	return m.frames
}

func (m Machine) Keypad() Keypad {
	return m.keypad
}

// Screen returns a copy of the frame buffer
func (m Machine) Screen() Screen {
	return m.screen.Clone()
}

// Boot initializes the display
// If the machine was already booted, this method is a noop
func (m *Machine) Boot() error {
	if m.isBooted {
		return nil
	}

	if err := m.Display.Boot(); err != nil {
		return err
	}

	m.isBooted = true

	return nil
}

// LoadProgram implements playback.Emulator.
// The machine is reset to its power-on state with the program in memory.
func (m *Machine) LoadProgram(program []byte) error {
	if err := m.Boot(); err != nil {
		return err
	}

	mem := NewMemory()
	if err := mem.LoadProgram(program); err != nil {
		return err
	}

	m.Memory = mem
	m.Reset()
	m.isLoaded = true
	m.saved = nil

	return nil
}

// Reset puts the registers, timers and screen back to power-on values
func (m *Machine) Reset() {
	m.V = [16]byte{}
	m.I = 0
	m.Dt = 0
	m.St = 0
	m.Pc = startOfProgram
	m.Sp = 0
	m.Stack = [16]uint16{}

	m.frames = 0
	m.cycles = 0
	m.waitingForKey = false
	m.lastError = nil
	m.rng.Seed(m.seed, m.seed)
	m.Buzzer.Stop()

	m.clearScreen()
}

// SetPaused implements playback.Emulator.
// A paused machine still runs frames requested through AdvanceFrame.
func (m *Machine) SetPaused(paused bool) {
	m.isPaused = paused
}

// SetControllerBits implements playback.Emulator.
func (m *Machine) SetControllerBits(c playback.Controllers) {
	m.keypad = m.Layout.Keypad(c)
}

// AdvanceFrame implements playback.Emulator.
// It runs CyclesPerFrame instructions, ticks the timers once and renders
// the screen if it changed.
func (m *Machine) AdvanceFrame() error {
	if !m.isLoaded {
		return ErrNoProgramLoaded
	}

	if m.lastError != nil {
		return m.lastError
	}

	for i := uint(0); i < m.CyclesPerFrame; i++ {
		if m.waitingForKey {
			k, pressed := m.keypad.FirstPressed()
			if !pressed {
				break
			}
			m.V[m.keyDstRegister] = k
			m.waitingForKey = false
		}

		// a program that ran off the end of memory just idles
		if int(m.Pc) >= MemorySize-1 {
			break
		}

		if err := m.step(); err != nil {
			m.lastError = err
			return err
		}
		m.cycles++
	}

	if m.Dt > 0 {
		m.Dt--
	}
	if m.St > 0 {
		m.St--
		m.Buzzer.Play()
	} else {
		m.Buzzer.Stop()
	}

	if m.isScreenDirty {
		m.isScreenDirty = false
		if err := m.Display.Render(m.screen, m.ScreenSettings); err != nil {
			m.lastError = err
			return err
		}
	}

	m.frames++

	return nil
}

func (m *Machine) step() error {
	var opCode uint16
	opCode |= uint16(m.Memory[m.Pc+0]) << 8
	opCode |= uint16(m.Memory[m.Pc+1]) << 0
	m.Pc += 2

	return m.execute(opCode)
}
