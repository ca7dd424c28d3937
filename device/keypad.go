package device

import "github.com/davecheney/twisim/twi"

// KeypadAddress is the TCA8418 bus address.
const KeypadAddress = 0x34

// TCA8418 registers.
const (
	KeypadCFG        = 0x01
	KeypadIntStat    = 0x02
	KeypadKeyLckEC   = 0x03
	KeypadKeyEventA  = 0x04
	KeypadKeyEventJ  = 0x0D
	KeypadGPIOIntEn1 = 0x1A
	KeypadGPIO1      = 0x1D
	KeypadGPIOEM1    = 0x20
	KeypadGPIODir1   = 0x23
	KeypadGPIOIntLv1 = 0x26
	KeypadGPIOPull1  = 0x2C
	KeypadGPIOPull3  = 0x2E

	keypadRegs = KeypadGPIOPull3 + 1
)

// CFG and INT_STAT bits.
const (
	cfgKeyEventIE  = 1 << 0
	cfgOverflowIE  = 1 << 3
	cfgOverflowM   = 1 << 5
	cfgAutoInc     = 1 << 7
	intKeyEvent    = 1 << 0
	intOverflow    = 1 << 3
	keyFIFOSize    = KeypadKeyEventJ - KeypadKeyEventA + 1
	keyCountMask   = 0x0f
	keyReleaseTime = 200000 // usec
)

// KeyEvent is the direction bit of a raw key code.
type KeyEvent uint8

const (
	KeyRelease KeyEvent = 0x00
	KeyPress   KeyEvent = 0x80
)

// Keypad is a TCA8418 keypad scanner. Key events are queued in a ten entry
// FIFO which the firmware drains by reading KEY_EVENT_A.
type Keypad struct {
	twi.RegisterMachine

	clock   twi.Clock
	irq     twi.Pin
	unacked uint8
	release *twi.PendingSet[uint8]
}

// NewKeypad attaches a keypad at addr. irq is the active low INT line.
func NewKeypad(host twi.Host, addr uint8, irq twi.Pin, log twi.Logger) *Keypad {
	k := &Keypad{
		clock:   host,
		irq:     irq,
		release: twi.NewPendingSet[uint8](host),
	}
	k.RegisterMachine = twi.RegisterMachine{
		Name: "tca8418",
		// "The default value in all registers is 0"
		Regs:    make([]uint8, keypadRegs),
		Next:    k.next,
		OnWrite: k.written,
		OnRead:  k.read,
		Log:     log,
	}
	k.Attach(host, addr, nil)
	return k
}

// Close detaches the keypad and drops scheduled releases.
func (k *Keypad) Close() {
	k.release.CancelAll()
	k.Detach()
}

// Count returns the number of queued key events.
func (k *Keypad) Count() int { return int(k.Regs[KeypadKeyLckEC] & keyCountMask) }

// Events returns the queued raw key codes, oldest first.
func (k *Keypad) Events() []uint8 {
	n := k.Count()
	return append([]uint8(nil), k.Regs[KeypadKeyEventA:KeypadKeyEventA+n]...)
}

// Interrupt reports whether the INT line is asserted.
func (k *Keypad) Interrupt() bool { return k.unacked != 0 }

// KeyCode returns the raw code of the key at row, col.
func KeyCode(row, col uint8) uint8 { return row*10 + col + 1 }

// AddKeyEvent queues a press or release of the key at row, col.
func (k *Keypad) AddKeyEvent(ev KeyEvent, row, col uint8) {
	k.AddKeyRawEvent(uint8(ev) | KeyCode(row, col))
}

// AddKeyPress queues a press of code.
func (k *Keypad) AddKeyPress(code uint8) { k.AddKeyRawEvent(code | uint8(KeyPress)) }

// AddKeyRelease queues a release of code.
func (k *Keypad) AddKeyRelease(code uint8) { k.AddKeyRawEvent(code &^ uint8(KeyPress)) }

// AddKeyPressAndRelease queues a press of code now and its release 200 ms
// later. Pressing a key whose release is still pending keeps it held and
// restarts the hold time.
func (k *Keypad) AddKeyPressAndRelease(code uint8) {
	code &^= uint8(KeyPress)
	if !k.release.Has(code) {
		k.AddKeyPress(code)
	}
	k.release.Arm(code, keyReleaseTime, func() { k.AddKeyRelease(code) })
}

// AddKeyRawEvent pushes a raw event byte into the FIFO.
func (k *Keypad) AddKeyRawEvent(raw uint8) {
	n := k.Count()
	if n == keyFIFOSize {
		k.Modify(KeypadIntStat, intOverflow, intOverflow)
		if k.Regs[KeypadCFG]&cfgOverflowIE != 0 {
			k.assert(intOverflow)
		}
		if k.Regs[KeypadCFG]&cfgOverflowM == 0 {
			k.Log.Printf("tca8418: fifo overflow, dropped %02x\n", raw)
			return
		}
		k.pop()
		n--
	}
	k.Regs[KeypadKeyEventA+n] = raw
	k.Modify(KeypadKeyLckEC, uint8(n+1), keyCountMask)

	if k.Regs[KeypadCFG]&cfgKeyEventIE != 0 {
		k.Modify(KeypadIntStat, intKeyEvent, intKeyEvent)
		k.assert(intKeyEvent)
	}
}

func (k *Keypad) assert(bits uint8) {
	k.unacked |= bits
	k.irq.Raise(0)
}

func (k *Keypad) next(reg uint8) uint8 {
	if k.Regs[KeypadCFG]&cfgAutoInc == 0 {
		return reg
	}
	// 0x2F is reserved; the pointer rolls over to 0 even though 0 is reserved too.
	if reg >= KeypadGPIOPull3 {
		return 0
	}
	return reg + 1
}

func (k *Keypad) written(reg, old, v uint8) {
	switch reg {
	case KeypadIntStat:
		// writing 1 clears a bit
		k.Regs[reg] = old &^ v
		if k.unacked == 0 {
			return
		}
		k.unacked &^= v
		if k.unacked == 0 {
			k.irq.Raise(1)
		}
	case KeypadKeyLckEC:
		// the event count is read only
		k.Regs[reg] = v&^keyCountMask | old&keyCountMask
	default:
		if reg >= KeypadKeyEventA && reg <= KeypadKeyEventJ {
			// the FIFO is read only
			k.Regs[reg] = old
		}
	}
}

func (k *Keypad) read(reg uint8) {
	if reg == KeypadKeyEventA {
		k.pop()
	}
}

// pop drops the oldest FIFO entry.
func (k *Keypad) pop() {
	n := k.Count()
	if n == 0 {
		return
	}
	copy(k.Regs[KeypadKeyEventA:], k.Regs[KeypadKeyEventA+1:KeypadKeyEventA+n])
	k.Regs[KeypadKeyEventA+n-1] = 0
	k.Modify(KeypadKeyLckEC, uint8(n-1), keyCountMask)
}
