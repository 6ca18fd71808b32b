package chip8

// Registers is a copy of the machine state shown by debuggers
type Registers struct {
	// OpCode is the instruction at Pc, run next
	OpCode uint16     `json:"opcode"`
	Pc     uint16     `json:"pc"`
	V      [16]byte   `json:"v"`
	I      uint16     `json:"i"`
	Sp     byte       `json:"sp"`
	Stack  [16]uint16 `json:"stack"`
	Dt     byte       `json:"dt"`
	St     byte       `json:"st"`
	Cycles uint       `json:"cycles"`
	Frames uint       `json:"frames"`
	Keypad Keypad     `json:"keypad"`
}

func (m Machine) Registers() Registers {
	r := Registers{
		Pc:     m.Pc,
		V:      m.V,
		I:      m.I,
		Sp:     m.Sp,
		Stack:  m.Stack,
		Dt:     m.Dt,
		St:     m.St,
		Cycles: m.cycles,
		Frames: m.frames,
		Keypad: m.keypad,
	}
	if int(m.Pc) < MemorySize-1 {
		r.OpCode = uint16(m.Memory[m.Pc])<<8 | uint16(m.Memory[m.Pc+1])
	}

	return r
}
