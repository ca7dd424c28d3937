package device

import (
	"fmt"
	"os"
	"time"

	"github.com/davecheney/twisim/twi"
)

// EEPROMSize is the capacity of a 47L04.
const EEPROMSize = 512

// EEPROMAddress returns the bus address selected by the A2 and A1 pins.
func EEPROMAddress(a2, a1 bool) uint8 {
	addr := uint8(0x50)
	if a2 {
		addr |= 1 << 2
	}
	if a1 {
		addr |= 1 << 1
	}
	return addr
}

type eepromState int

const (
	eeStopped eepromState = iota
	eeAddrHigh
	eeAddrLow
	eeStarted
)

// EEPROM is a byte addressed serial memory. A write transaction sends a big
// endian 16 bit address followed by data; a read continues from the last
// address after a repeated START.
type EEPROM struct {
	// Latency is spent in Wait for every message handled, modelling the
	// device's bus latency. Wait defaults to doing nothing.
	Latency time.Duration
	Wait    func(time.Duration)

	mem     []uint8
	adapter *twi.Adapter
	log     twi.Logger

	state   eepromState
	addr    uint16
	counter int
}

// NewEEPROM attaches a memory of size bytes at addr.
func NewEEPROM(host twi.Host, addr uint8, size int, log twi.Logger) *EEPROM {
	if size <= 0 {
		size = EEPROMSize
	}
	e := &EEPROM{
		mem: make([]uint8, size),
		log: twi.LoggerOrNop(log),
	}
	e.adapter = twi.Attach(host, addr, nil, e)
	return e
}

// Close detaches the memory.
func (e *EEPROM) Close() { e.adapter.Detach() }

// Load fills the memory from an image file.
func (e *EEPROM) Load(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(buf) > len(e.mem) {
		return fmt.Errorf("eeprom: image %s is %d bytes, memory is %d", path, len(buf), len(e.mem))
	}
	copy(e.mem, buf)
	return nil
}

// Save writes the memory to an image file.
func (e *EEPROM) Save(path string) error {
	return os.WriteFile(path, e.mem, 0644)
}

// Bytes returns a copy of the memory.
func (e *EEPROM) Bytes() []uint8 { return append([]uint8(nil), e.mem...) }

// Idle reports whether no transaction is in progress.
func (e *EEPROM) Idle() bool { return e.state == eeStopped }

func (e *EEPROM) HandleMessage(m twi.Message) {
	if e.Latency > 0 && e.Wait != nil {
		e.Wait(e.Latency)
	}

	switch {
	case m.Cond.Has(twi.CondStop):
		e.state = eeStopped
	case m.Cond.Has(twi.CondStart):
		// A read is addressed by a write of the address word followed by
		// a repeated START.
		if m.Read {
			e.state = eeStarted
		} else {
			e.state = eeAddrHigh
		}
		e.log.Printf("47l04: start, read=%v\n", m.Read)
		e.adapter.Ack()
	case m.Cond.Has(twi.CondWrite):
		e.adapter.Ack()
		switch e.state {
		case eeAddrHigh:
			e.addr = uint16(m.Data) << 8
			e.state = eeAddrLow
		case eeAddrLow:
			e.addr |= uint16(m.Data)
			e.counter = 0
			e.state = eeStarted
			e.log.Printf("47l04: address %04x\n", e.addr)
		case eeStarted:
			e.mem[e.index()] = m.Data
			e.counter++
		default:
			twi.Fatalf("47l04", twi.Desync, "write %02x with no transaction", m.Data)
		}
	case m.Cond.Has(twi.CondRead):
		if e.state != eeStarted {
			twi.Fatalf("47l04", twi.Desync, "read in state %d", e.state)
		}
		v := e.mem[e.index()]
		// e.log.Printf("47l04: read %04x = %02x\n", e.index(), v)
		e.counter++
		e.adapter.AckByte(v)
	}
}

func (e *EEPROM) index() int {
	i := int(e.addr) + e.counter
	if i >= len(e.mem) {
		twi.Fatalf("47l04", twi.OutOfRange, "address %04x beyond %d bytes", i, len(e.mem))
	}
	return i
}

func (e *EEPROM) ResetStateMachine() {
	e.state = eeStopped
	e.addr = 0
	e.counter = 0
}
