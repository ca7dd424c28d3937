package device

import "github.com/davecheney/twisim/twi"

// ShiftRegister is a TLP9202 style SPI output latch. A byte shifted out by
// the firmware is latched while chip select is low.
type ShiftRegister struct {
	cs     twi.Line
	value  uint8
	cancel func()
}

// NewShiftRegister listens to spi, latching bytes while cs is low.
func NewShiftRegister(spi twi.Wire, cs twi.Line) *ShiftRegister {
	s := &ShiftRegister{cs: cs}
	s.cancel = spi.Notify(func(v uint32) {
		if s.cs.Value() == 0 {
			s.value = uint8(v)
		}
	})
	return s
}

// Value returns the latched outputs.
func (s *ShiftRegister) Value() uint8 { return s.value }

// Close stops listening to the bus.
func (s *ShiftRegister) Close() { s.cancel() }
