package chip8

import (
	"errors"
	"fmt"
	"strings"
)

var ErrProgramDoesNotFitIntoMemory = errors.New("the program does not fit into memory")

const startOfProgram = 0x200

const MemorySize = 4096

// fontSize is the number of bytes of each hex digit sprite
const fontSize = 5

type Memory [MemorySize]byte

// NewMemory creates an empty memory with the font loaded at address 0
func NewMemory() *Memory {
	m := &Memory{}
	copy(m[:], font[:])

	return m
}

func (mem Memory) Clone() *Memory {
	m := &Memory{}
	copy(m[:], mem[:])

	return m
}

func (mem Memory) Equal(other *Memory) bool {
	return mem == *other
}

// String dumps the program area
func (mem Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[startOfProgram:] {
		sb.WriteString(fmt.Sprintf("%02X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}

// LoadProgram copies the program to the start-of-program address
func (mem *Memory) LoadProgram(program []byte) error {
	if len(program) > MemorySize-startOfProgram {
		return ErrProgramDoesNotFitIntoMemory
	}

	copy(mem[startOfProgram:], program)

	return nil
}

var font = [16 * fontSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
