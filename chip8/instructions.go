package chip8

type opcode uint16

func (op opcode) x() byte     { return byte(op>>8) & 0xF }
func (op opcode) y() byte     { return byte(op>>4) & 0xF }
func (op opcode) n() byte     { return byte(op) & 0xF }
func (op opcode) kk() byte    { return byte(op) }
func (op opcode) nnn() uint16 { return uint16(op) & 0x0FFF }

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.Pc += 2
	}
}

func (m *Machine) execute(raw uint16) error {
	op := opcode(raw)
	vx, vy := &m.V[op.x()], m.V[op.y()]

	switch raw >> 12 {
	case 0x0:
		switch raw {
		case 0x00E0:
			// CLS
			m.clearScreen()
		case 0x00EE:
			// RET
			if m.Sp == 0 {
				return ErrStackUnderflow
			}
			m.Sp--
			m.Pc = m.Stack[m.Sp]
		default:
			// SYS addr is ignored by modern interpreters
		}

	case 0x1:
		// JP addr
		m.Pc = op.nnn()

	case 0x2:
		// CALL addr
		if int(m.Sp) >= len(m.Stack) {
			return ErrStackOverflow
		}
		m.Stack[m.Sp] = m.Pc
		m.Sp++
		m.Pc = op.nnn()

	case 0x3:
		// SE Vx, byte
		m.skipIf(*vx == op.kk())

	case 0x4:
		// SNE Vx, byte
		m.skipIf(*vx != op.kk())

	case 0x5:
		// SE Vx, Vy
		m.skipIf(*vx == vy)

	case 0x6:
		// LD Vx, byte
		*vx = op.kk()

	case 0x7:
		// ADD Vx, byte, no carry
		*vx += op.kk()

	case 0x8:
		return m.executeALU(op)

	case 0x9:
		// SNE Vx, Vy
		m.skipIf(*vx != vy)

	case 0xA:
		// LD I, addr
		m.I = op.nnn()

	case 0xB:
		// JP V0, addr
		m.Pc = uint16(m.V[0]) + op.nnn()

	case 0xC:
		// RND Vx, byte
		*vx = byte(m.rng.Uint64()) & op.kk()

	case 0xD:
		// DRW Vx, Vy, nibble
		x, y := int(*vx), int(vy)
		m.V[0xF] = 0
		for i := uint16(0); i < uint16(op.n()); i++ {
			if m.drawSprite(x, y+int(i), m.Memory[(m.I+i)%MemorySize]) {
				m.V[0xF] = 1
			}
		}

	case 0xE:
		switch op.kk() {
		case 0x9E:
			// SKP Vx
			m.skipIf(m.keypad.IsPressed(*vx))
		case 0xA1:
			// SKNP Vx
			m.skipIf(!m.keypad.IsPressed(*vx))
		default:
			return ErrOpCodeUnknown{OpCode: raw, Pc: m.Pc - 2}
		}

	case 0xF:
		return m.executeMisc(op)
	}

	return nil
}

func (m *Machine) executeALU(op opcode) error {
	x, y := op.x(), op.y()

	switch op.n() {
	case 0x0:
		// LD Vx, Vy
		m.V[x] = m.V[y]
	case 0x1:
		// OR Vx, Vy
		m.V[x] |= m.V[y]
	case 0x2:
		// AND Vx, Vy
		m.V[x] &= m.V[y]
	case 0x3:
		// XOR Vx, Vy
		m.V[x] ^= m.V[y]
	case 0x4:
		// ADD Vx, Vy, VF = carry
		r := uint16(m.V[x]) + uint16(m.V[y])
		m.V[x] = byte(r)
		m.V[0xF] = byte(r >> 8)
	case 0x5:
		// SUB Vx, Vy, VF = NOT borrow
		flag := bool2byte(m.V[x] >= m.V[y])
		m.V[x] -= m.V[y]
		m.V[0xF] = flag
	case 0x6:
		// SHR Vx
		flag := m.V[x] & 0b1
		m.V[x] >>= 1
		m.V[0xF] = flag
	case 0x7:
		// SUBN Vx, Vy, VF = NOT borrow
		flag := bool2byte(m.V[y] >= m.V[x])
		m.V[x] = m.V[y] - m.V[x]
		m.V[0xF] = flag
	case 0xE:
		// SHL Vx
		flag := m.V[x] >> 7
		m.V[x] <<= 1
		m.V[0xF] = flag
	default:
		return ErrOpCodeUnknown{OpCode: uint16(op), Pc: m.Pc - 2}
	}

	return nil
}

func (m *Machine) executeMisc(op opcode) error {
	x := op.x()

	switch op.kk() {
	case 0x07:
		// LD Vx, DT
		m.V[x] = m.Dt
	case 0x0A:
		// LD Vx, K waits for a key before the next instruction
		m.waitingForKey = true
		m.keyDstRegister = x
	case 0x15:
		// LD DT, Vx
		m.Dt = m.V[x]
	case 0x18:
		// LD ST, Vx
		m.St = m.V[x]
	case 0x1E:
		// ADD I, Vx
		m.I += uint16(m.V[x])
	case 0x29:
		// LD F, Vx
		m.I = uint16(m.V[x]&0xF) * fontSize
	case 0x33:
		// LD B, Vx
		v := m.V[x]
		m.Memory[(m.I+0)%MemorySize] = v / 100
		m.Memory[(m.I+1)%MemorySize] = v / 10 % 10
		m.Memory[(m.I+2)%MemorySize] = v % 10
	case 0x55:
		// LD [I], Vx
		for i := uint16(0); i <= uint16(x); i++ {
			m.Memory[(m.I+i)%MemorySize] = m.V[i]
		}
	case 0x65:
		// LD Vx, [I]
		for i := uint16(0); i <= uint16(x); i++ {
			m.V[i] = m.Memory[(m.I+i)%MemorySize]
		}
	default:
		return ErrOpCodeUnknown{OpCode: uint16(op), Pc: m.Pc - 2}
	}

	return nil
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
