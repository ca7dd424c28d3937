package twi_test

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

func newMachine(b *board.Board, size int, next func(uint8) uint8) *twi.RegisterMachine {
	m := &twi.RegisterMachine{
		Name: "test",
		Regs: make([]uint8, size),
		Next: next,
	}
	m.Attach(b, 0x40, nil)
	return m
}

func TestRegisterWriteAutoIncrementWraps(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	m := newMachine(b, 8, twi.Wrap(0, 5))
	bus := b.Master()

	_, err := bus.Tx(0x40, []uint8{4, 0xa, 0xb, 0xc, 0xd}, 0)
	is.NoErr(err)
	is.Equal(m.Snapshot(), []uint8{0xc, 0xd, 0, 0, 0xa, 0xb, 0, 0})
	is.True(m.Idle())
}

func TestRegisterReadAfterRepeatedStart(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	m := newMachine(b, 4, twi.Wrap(0, 3))
	copy(m.Regs, []uint8{1, 2, 3, 4})
	bus := b.Master()

	r, err := bus.Tx(0x40, []uint8{2}, 3)
	is.NoErr(err)
	is.Equal(r, []uint8{3, 4, 1})
}

func TestRegisterHooks(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	m := newMachine(b, 4, nil)
	var wrote, read []uint8
	m.OnWrite = func(reg, old, v uint8) { wrote = append(wrote, reg, old, v) }
	m.OnRead = func(reg uint8) { read = append(read, reg) }
	m.Regs[1] = 7
	bus := b.Master()

	_, err := bus.Tx(0x40, []uint8{1, 9}, 0)
	is.NoErr(err)
	is.Equal(wrote, []uint8{1, 7, 9})

	// without auto-increment every read returns the same register
	r, err := bus.Tx(0x40, []uint8{1}, 2)
	is.NoErr(err)
	is.Equal(r, []uint8{9, 9})
	is.Equal(read, []uint8{1, 1})
}

func TestRegisterReadWithoutSelectIsFatal(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	newMachine(b, 4, nil)
	bus := b.Master()

	err := bus.Start(0x40, true)
	var f *twi.Fault
	is.True(errors.As(err, &f))
	is.Equal(f.Kind, twi.Desync)
	is.Equal(f.Device, "test")
}

func TestRegisterOutOfRangeIsFatal(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	newMachine(b, 4, nil)
	bus := b.Master()

	_, err := bus.Tx(0x40, []uint8{9, 1}, 0)
	var f *twi.Fault
	is.True(errors.As(err, &f))
	is.Equal(f.Kind, twi.OutOfRange)
}

func TestRegisterKeepPointer(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	m := newMachine(b, 4, twi.Wrap(0, 3))
	m.KeepPointer = true
	copy(m.Regs, []uint8{1, 2, 3, 4})
	bus := b.Master()

	_, err := bus.Tx(0x40, []uint8{3}, 0)
	is.NoErr(err)
	reg, ok := m.Selected()
	is.True(ok)
	is.Equal(reg, uint8(3))

	// a read may start without an address phase
	r, err := bus.Tx(0x40, nil, 2)
	is.NoErr(err)
	is.Equal(r, []uint8{4, 1})
}

func TestRegisterOtherDeviceLeavesStateAlone(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	m := newMachine(b, 4, twi.Wrap(0, 3))
	bus := b.Master()

	_, err := bus.Tx(0x41, []uint8{0, 1, 2, 3}, 0)
	is.True(errors.Is(err, board.ErrNack))
	is.Equal(m.Snapshot(), []uint8{0, 0, 0, 0})
	_, ok := m.Selected()
	is.True(!ok)
}

func TestModify(t *testing.T) {
	is := is.New(t)
	m := &twi.RegisterMachine{Regs: []uint8{0xf0}}
	m.Modify(0, 0x0f, 0x3c)
	is.Equal(m.Regs[0], uint8(0xcc))
}

func TestWrap(t *testing.T) {
	is := is.New(t)
	next := twi.Wrap(0x02, 0x11)
	is.Equal(next(0x02), uint8(0x03))
	is.Equal(next(0x11), uint8(0x02))
	is.Equal(next(0x00), uint8(0x02))
}
