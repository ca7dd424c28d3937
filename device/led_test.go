package device

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

const ledAddr = 0x60

func TestLEDAutoIncrementAllWraps(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	d := NewLEDDriver(b, ledAddr, testLog(t))

	_, err := m.Tx(ledAddr, []uint8{0x80 | 0x1A, 0xa0, 0xa1, 0xa2}, 0)
	is.NoErr(err)
	is.Equal(d.Regs[0x1A], uint8(0xa0))
	is.Equal(d.Regs[0x1B], uint8(0xa1))
	is.Equal(d.Regs[LEDMode1], uint8(0xa2))
}

func TestLEDAutoIncrementModes(t *testing.T) {
	tests := []struct {
		name    string
		control uint8
		want    []uint8 // registers written by three bytes
	}{
		{"none", 0x05, []uint8{0x05, 0x05, 0x05}},
		{"brightness", 0xA0 | LEDPWM15, []uint8{LEDPWM15, LEDPWM0, LEDPWM0 + 1}},
		{"global", 0xC0 | LEDGrpFreq, []uint8{LEDGrpFreq, LEDGrpPWM, LEDGrpFreq}},
		{"individual and global", 0xE0 | LEDGrpFreq, []uint8{LEDGrpFreq, LEDPWM0, LEDPWM0 + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			b, m := newBoard(t)
			d := NewLEDDriver(b, ledAddr, nil)
			var wrote []uint8
			d.OnWrite = func(reg, _, _ uint8) { wrote = append(wrote, reg) }

			_, err := m.Tx(ledAddr, []uint8{tt.control, 1, 2, 3}, 0)
			is.NoErr(err)
			is.Equal(wrote, tt.want)
		})
	}
}

func TestLEDState(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	d := NewLEDDriver(b, ledAddr, nil)

	// channel 0 off, 1 on, 2 PWM
	_, err := m.Tx(ledAddr, []uint8{LEDOut0, 0x24}, 0)
	is.NoErr(err)
	_, err = m.Tx(ledAddr, []uint8{LEDPWM0 + 2, 0x80}, 0)
	is.NoErr(err)

	got := d.State()
	is.Equal(got[0], uint8(0))
	is.Equal(got[1], uint8(0xff))
	is.Equal(got[2], uint8(0x80))
	is.Equal(got[15], uint8(0))
}

func TestLEDGroupModeIsFatal(t *testing.T) {
	is := is.New(t)
	b, _ := newBoard(t)
	d := NewLEDDriver(b, ledAddr, nil)
	d.Regs[LEDOut0+3] = 0xC0 // channel 15 on group control

	err := b.Step(func() { d.State() })
	var f *twi.Fault
	is.True(errors.As(err, &f))
	is.Equal(f.Kind, twi.Unimplemented)
}

func TestLEDAllCall(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	d := NewLEDDriver(b, ledAddr, nil)

	_, err := m.Tx(LEDAllCallAddress, []uint8{LEDPWM0, 1}, 0)
	is.True(errors.Is(err, board.ErrNack))

	_, err = m.Tx(ledAddr, []uint8{LEDMode1, mode1AllCall}, 0)
	is.NoErr(err)
	_, err = m.Tx(LEDAllCallAddress, []uint8{LEDPWM0, 7}, 0)
	is.NoErr(err)
	is.Equal(d.Regs[LEDPWM0], uint8(7))
}

func TestLEDRead(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	d := NewLEDDriver(b, ledAddr, nil)
	d.Regs[LEDIRef] = 0x3f

	got, err := m.Tx(ledAddr, []uint8{LEDIRef}, 1)
	is.NoErr(err)
	is.Equal(got, []uint8{0x3f})
}
