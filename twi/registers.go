package twi

type regState int

const (
	regIdle regState = iota
	regAddress
	regWrite
	regRead
)

func (s regState) String() string {
	switch s {
	case regIdle:
		return "idle"
	case regAddress:
		return "address"
	case regWrite:
		return "write"
	case regRead:
		return "read"
	default:
		return "?"
	}
}

// RegisterMachine implements the address-then-data protocol shared by
// register file devices: a START for writing, one byte selecting a register,
// then data bytes written to or read from consecutive registers.
type RegisterMachine struct {
	Name string
	Regs []uint8

	// Select decodes the register address byte. Nil uses the byte as is.
	Select func(b uint8) uint8

	// Next returns the register that follows reg after a transfer. Nil
	// disables auto-increment.
	Next func(reg uint8) uint8

	// OnWrite runs after a data byte has been stored.
	OnWrite func(reg, old, new uint8)

	// OnRead runs after a register has been sent to the firmware.
	OnRead func(reg uint8)

	// KeepPointer keeps the selected register across transactions, so a
	// read may begin without an address phase.
	KeepPointer bool

	Log Logger

	adapter  *Adapter
	state    regState
	selected uint8
	pointer  bool
}

// Attach connects m to the host bus.
func (m *RegisterMachine) Attach(host Host, addr uint8, match Matcher) *Adapter {
	m.Log = LoggerOrNop(m.Log)
	m.adapter = Attach(host, addr, match, m)
	return m.adapter
}

// Detach disconnects m from the host bus.
func (m *RegisterMachine) Detach() {
	if m.adapter != nil {
		m.adapter.Detach()
	}
}

// Idle reports whether no transaction is in progress.
func (m *RegisterMachine) Idle() bool { return m.state == regIdle }

// Selected returns the register pointer and whether one has been set.
func (m *RegisterMachine) Selected() (uint8, bool) { return m.selected, m.pointer }

// Snapshot returns a copy of the register file.
func (m *RegisterMachine) Snapshot() []uint8 {
	return append([]uint8(nil), m.Regs...)
}

// Modify replaces the bits of reg selected by mask with those of v.
func (m *RegisterMachine) Modify(reg, v, mask uint8) {
	m.check(reg)
	m.Regs[reg] = m.Regs[reg]&^mask | v&mask
}

func (m *RegisterMachine) HandleMessage(msg Message) {
	switch {
	case msg.Cond.Has(CondStart):
		if msg.Read {
			if m.state != regWrite && m.state != regRead && !(m.KeepPointer && m.pointer) {
				Fatalf(m.Name, Desync, "read started with no register selected (state %v)", m.state)
			}
			m.state = regRead
		} else {
			m.state = regAddress
		}
		m.adapter.Ack()
	case msg.Cond.Has(CondStop):
		m.state = regIdle
	case msg.Cond.Has(CondWrite):
		switch m.state {
		case regAddress:
			m.adapter.Ack()
			m.selected = msg.Data
			if m.Select != nil {
				m.selected = m.Select(msg.Data)
			}
			m.pointer = true
			m.state = regWrite
		case regWrite:
			m.adapter.Ack()
			reg := m.selected
			m.check(reg)
			old := m.Regs[reg]
			m.Regs[reg] = msg.Data
			// m.Log.Printf("%s: wrote register %02x = %02x\n", m.Name, reg, msg.Data)
			if m.OnWrite != nil {
				m.OnWrite(reg, old, msg.Data)
			}
			m.advance()
		default:
			Fatalf(m.Name, Desync, "write %02x in state %v", msg.Data, m.state)
		}
	case msg.Cond.Has(CondRead):
		if m.state != regRead {
			Fatalf(m.Name, Desync, "read in state %v", m.state)
		}
		reg := m.selected
		m.check(reg)
		m.adapter.AckByte(m.Regs[reg])
		if m.OnRead != nil {
			m.OnRead(reg)
		}
		m.advance()
	default:
		Fatalf(m.Name, Desync, "unexpected condition %v", msg.Cond)
	}
}

func (m *RegisterMachine) ResetStateMachine() {
	m.state = regIdle
	if !m.KeepPointer {
		m.selected = 0
		m.pointer = false
	}
}

func (m *RegisterMachine) advance() {
	if m.Next != nil {
		m.selected = m.Next(m.selected)
	}
}

func (m *RegisterMachine) check(reg uint8) {
	if int(reg) >= len(m.Regs) {
		Fatalf(m.Name, OutOfRange, "register %02x outside %d byte register file", reg, len(m.Regs))
	}
}

// Wrap returns an auto-increment policy that counts from first to last and
// then rolls over to first.
func Wrap(first, last uint8) func(uint8) uint8 {
	return func(reg uint8) uint8 {
		if reg >= last || reg < first {
			return first
		}
		return reg + 1
	}
}
