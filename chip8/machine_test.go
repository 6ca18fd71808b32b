package chip8_test

import (
	"testing"

	"github.com/guslan/playback"
	"github.com/guslan/playback/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDisplay counts the frames it was asked to render
type recordingDisplay struct {
	renders int
	last    chip8.Screen
}

func (d *recordingDisplay) Boot() error {
	return nil
}

func (d *recordingDisplay) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	d.renders++
	d.last = screen.Clone()
	return nil
}

// newSteppingMachine builds a machine that runs one instruction per frame
func newSteppingMachine(t *testing.T, program []byte) *chip8.Machine {
	t.Helper()

	m := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer(), func(config *chip8.MachineConfig) {
		config.CyclesPerFrame = 1
	})
	require.NoError(t, m.LoadProgram(program))

	return m
}

func runNFrames(t *testing.T, m *chip8.Machine, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(t, m.AdvanceFrame())
	}
}

// TestProgramLoading loads a program that jumps to the last address to exit immediately
func TestProgramLoading(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		// move to the last address
		0x1F, 0xFE,
	})

	runNFrames(t, m, 3)

	assert.Equal(t, uint16(chip8.MemorySize), m.Pc)
	assert.Equal(t, uint(2), m.Cycles())
	assert.Equal(t, uint(3), m.Frames())
}

func TestAdvanceWithoutProgram(t *testing.T) {
	m := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer())

	assert.ErrorIs(t, m.AdvanceFrame(), chip8.ErrNoProgramLoaded)
	assert.ErrorIs(t, m.SaveState(), chip8.ErrNoProgramLoaded)
}

func TestProgramTooLarge(t *testing.T) {
	m := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer())

	err := m.LoadProgram(make([]byte, chip8.MemorySize))
	assert.ErrorIs(t, err, chip8.ErrProgramDoesNotFitIntoMemory)
}

func TestConstantSetInstructions(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 1
		0x62, 1,
		// add to v2 4
		0x72, 4,
	})

	runNFrames(t, m, 4)

	assert.Equal(t, byte(128), m.V[0])
	assert.Equal(t, byte(16), m.V[1])
	assert.Equal(t, byte(5), m.V[2])
}

func TestSimpleSkips(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 128
		0x62, 128,

		// if v0 == 128, do not set v3 to 1
		0x30, 128,
		0x63, 1,

		// if v0 == 16, do not set vA to 1
		0x30, 16,
		0x6A, 1,

		// if v0 != 128, do not set v4 to 1
		0x40, 128,
		0x64, 1,

		// if v0 != 16, do not set vB to 1
		0x40, 16,
		0x6B, 1,

		// if v0 == v1, do not set v5 to 1
		0x50, 0x10,
		0x65, 1,

		// if v0 == v2, do not set v6 to 1
		0x50, 0x20,
		0x66, 1,
	})

	runNFrames(t, m, 12)

	assert.Equal(t, byte(0), m.V[0x3], "SE Vx kk true")
	assert.Equal(t, byte(1), m.V[0xA], "SE Vx kk false")
	assert.Equal(t, byte(0), m.V[0xB], "SNE Vx kk true")
	assert.Equal(t, byte(1), m.V[0x4], "SNE Vx kk false")
	assert.Equal(t, byte(0), m.V[0x6], "SE Vx Vy true")
	assert.Equal(t, byte(1), m.V[0x5], "SE Vx Vy false")
}

func TestArithmeticFlags(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		0x60, 200,
		0x61, 100,
		// v0 += v1 overflows
		0x80, 0x14,
		0x62, 10,
		0x63, 20,
		// v2 -= v3 borrows
		0x82, 0x35,
	})

	runNFrames(t, m, 3)
	assert.Equal(t, byte(44), m.V[0])
	assert.Equal(t, byte(1), m.V[0xF])

	runNFrames(t, m, 3)
	assert.Equal(t, byte(246), m.V[2])
	assert.Equal(t, byte(0), m.V[0xF])
}

func TestBCD(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		0x60, 254,
		// I = 0x300
		0xA3, 0x00,
		0xF0, 0x33,
	})

	runNFrames(t, m, 3)

	assert.Equal(t, []byte{2, 5, 4}, m.Memory[0x300:0x303])
}

func TestCallAndReturn(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		// 0x200: call 0x206
		0x22, 0x06,
		// 0x202: v1 = 1
		0x61, 1,
		// 0x204: halt
		0x1F, 0xFE,
		// 0x206: v0 = 7, return
		0x60, 7,
		0x00, 0xEE,
	})

	runNFrames(t, m, 4)

	assert.Equal(t, byte(7), m.V[0])
	assert.Equal(t, byte(1), m.V[1])
	assert.Equal(t, byte(0), m.Sp)
}

func TestErrorsStickUntilReload(t *testing.T) {
	program := []byte{
		// return with an empty stack
		0x00, 0xEE,
	}
	m := newSteppingMachine(t, program)

	assert.ErrorIs(t, m.AdvanceFrame(), chip8.ErrStackUnderflow)
	assert.ErrorIs(t, m.AdvanceFrame(), chip8.ErrStackUnderflow)

	require.NoError(t, m.LoadProgram([]byte{0x60, 1}))
	assert.NoError(t, m.AdvanceFrame())
}

func TestUnknownOpCode(t *testing.T) {
	m := newSteppingMachine(t, []byte{0xF0, 0xFF})

	err := m.AdvanceFrame()

	var unknown chip8.ErrOpCodeUnknown
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(0xF0FF), unknown.OpCode)
	assert.Equal(t, uint16(0x200), unknown.Pc)
}

func TestControllerSkips(t *testing.T) {
	program := []byte{
		0x60, 0x05,
		// skip if key 5 is pressed
		0xE0, 0x9E,
		0x61, 1,
	}

	m := newSteppingMachine(t, program)
	m.SetControllerBits(playback.Controllers{playback.InputBitmask(0).With(playback.ButtonA)})
	runNFrames(t, m, 3)
	assert.Equal(t, byte(0), m.V[1], "A is mapped to key 5")

	m = newSteppingMachine(t, program)
	m.SetControllerBits(playback.Controllers{playback.InputBitmask(0).With(playback.ButtonB)})
	runNFrames(t, m, 3)
	assert.Equal(t, byte(1), m.V[1])
}

func TestWaitForKey(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		0xF2, 0x0A,
		0x63, 1,
	})

	runNFrames(t, m, 3)
	assert.Equal(t, byte(0), m.V[3], "no key held, the machine waits")

	m.SetControllerBits(playback.Controllers{playback.InputBitmask(0).With(playback.ButtonUp)})
	runNFrames(t, m, 1)
	assert.Equal(t, byte(2), m.V[2])
	assert.Equal(t, byte(1), m.V[3])
}

func TestSecondPortLayout(t *testing.T) {
	kp := chip8.DefaultButtonLayout.Keypad(playback.Controllers{
		0,
		playback.InputBitmask(0).With(playback.ButtonUp).With(playback.ButtonStart),
	})

	assert.True(t, kp.IsPressed(0xC))
	k, ok := kp.FirstPressed()
	assert.True(t, ok)
	assert.Equal(t, byte(0xC), k, "start is not mapped on the second port")
}

func TestDrawRendersAndCollides(t *testing.T) {
	d := &recordingDisplay{}
	m := chip8.NewMachine(d, chip8.NewDummyBuzzer(), func(config *chip8.MachineConfig) {
		config.CyclesPerFrame = 1
	})
	require.NoError(t, m.LoadProgram([]byte{
		// I = sprite of 0
		0x60, 0x00,
		0xF0, 0x29,
		// draw it twice at 0, 0
		0xD0, 0x05,
		0xD0, 0x05,
	}))

	runNFrames(t, m, 3)
	assert.Equal(t, byte(0), m.V[0xF])
	assert.True(t, m.Screen().Pixel(m.ScreenSettings, 0, 0))
	assert.False(t, m.Screen().Pixel(m.ScreenSettings, 1, 1))

	renders := d.renders
	runNFrames(t, m, 1)
	assert.Equal(t, byte(1), m.V[0xF])
	assert.False(t, d.last.Pixel(m.ScreenSettings, 0, 0))
	assert.Equal(t, renders+1, d.renders)
}

func TestSoundTimerPlaysBuzzer(t *testing.T) {
	b := chip8.NewDummyBuzzer()
	m := chip8.NewMachine(chip8.NewDummyDisplay(), b, func(config *chip8.MachineConfig) {
		config.CyclesPerFrame = 1
	})
	require.NoError(t, m.LoadProgram([]byte{
		0x60, 2,
		0xF0, 0x18,
	}))

	runNFrames(t, m, 2)
	assert.True(t, b.IsPlaying)
	assert.Equal(t, byte(1), m.St)

	runNFrames(t, m, 2)
	assert.False(t, b.IsPlaying)
}

func TestSaveAndLoadState(t *testing.T) {
	m := newSteppingMachine(t, []byte{
		0x60, 1,
		// random v1
		0xC1, 0xFF,
		0x70, 1,
		0x70, 1,
	})

	assert.ErrorIs(t, m.LoadState(), chip8.ErrNoSavedState)

	runNFrames(t, m, 1)
	require.NoError(t, m.SaveState())

	runNFrames(t, m, 3)
	first := m.V[1]
	assert.Equal(t, byte(3), m.V[0])

	require.NoError(t, m.LoadState())
	assert.Equal(t, byte(1), m.V[0])
	assert.Equal(t, uint16(0x202), m.Pc)
	assert.Equal(t, uint(1), m.Frames())

	runNFrames(t, m, 3)
	assert.Equal(t, first, m.V[1], "random numbers replay from the saved state")

	require.NoError(t, m.LoadState(), "a saved state can be loaded more than once")
}

func TestLoadProgramDropsSavedState(t *testing.T) {
	m := newSteppingMachine(t, []byte{0x60, 1})
	require.NoError(t, m.SaveState())
	require.True(t, m.HasSavedState())

	require.NoError(t, m.LoadProgram([]byte{0x60, 2}))
	assert.False(t, m.HasSavedState())
}

func TestSameSeedSameRun(t *testing.T) {
	program := []byte{0xC0, 0xFF, 0xC1, 0xFF, 0xC2, 0xFF}

	a := newSteppingMachine(t, program)
	b := newSteppingMachine(t, program)
	runNFrames(t, a, 3)
	runNFrames(t, b, 3)

	assert.Equal(t, a.V, b.V)
}

func TestPauseDoesNotStopAdvance(t *testing.T) {
	m := newSteppingMachine(t, []byte{0x60, 9})
	m.SetPaused(true)

	runNFrames(t, m, 1)

	assert.True(t, m.IsPaused())
	assert.Equal(t, byte(9), m.V[0])
}

func TestRegistersShowNextOpCode(t *testing.T) {
	m := newSteppingMachine(t, []byte{0x60, 0x07, 0xA2, 0x34})

	r := m.Registers()
	assert.Equal(t, uint16(0x6007), r.OpCode)
	assert.Equal(t, uint16(0x200), r.Pc)

	runNFrames(t, m, 1)

	r = m.Registers()
	assert.Equal(t, uint16(0xA234), r.OpCode)
	assert.Equal(t, byte(7), r.V[0])
	assert.Equal(t, uint(1), r.Cycles)
	assert.Equal(t, uint(1), r.Frames)
}
