package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/davecheney/twisim/twi"
)

func TestEEPROMAddress(t *testing.T) {
	is := is.New(t)
	is.Equal(EEPROMAddress(false, false), uint8(0x50))
	is.Equal(EEPROMAddress(false, true), uint8(0x52))
	is.Equal(EEPROMAddress(true, false), uint8(0x54))
	is.Equal(EEPROMAddress(true, true), uint8(0x56))
}

func TestEEPROMWriteRead(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	addr := EEPROMAddress(true, false)
	e := NewEEPROM(b, addr, EEPROMSize, testLog(t))

	_, err := m.Tx(addr, []uint8{0x01, 0x10, 'h', 'e', 'y'}, 0)
	is.NoErr(err)
	is.True(e.Idle())
	is.Equal(e.Bytes()[0x110:0x113], []uint8("hey"))

	got, err := m.Tx(addr, []uint8{0x01, 0x11}, 2)
	is.NoErr(err)
	is.Equal(got, []uint8("ey"))
}

func TestEEPROMOutOfRange(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	addr := EEPROMAddress(false, false)
	NewEEPROM(b, addr, EEPROMSize, nil)

	_, err := m.Tx(addr, []uint8{0x01, 0xff, 1}, 0)
	is.NoErr(err)

	_, err = m.Tx(addr, []uint8{0x01, 0xff, 1, 2}, 0)
	var f *twi.Fault
	is.True(errors.As(err, &f))
	is.Equal(f.Kind, twi.OutOfRange)

	_, err = m.Tx(addr, []uint8{0x02, 0x00}, 1)
	is.True(errors.As(err, &f))
}

func TestEEPROMLatency(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	addr := EEPROMAddress(false, false)
	e := NewEEPROM(b, addr, 16, nil)
	var waited time.Duration
	e.Latency = time.Millisecond
	e.Wait = func(d time.Duration) { waited += d }

	_, err := m.Tx(addr, []uint8{0, 0, 7}, 0)
	is.NoErr(err)
	is.Equal(waited, 5*time.Millisecond) // START, three bytes, STOP
}

func TestEEPROMImage(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	addr := EEPROMAddress(false, false)
	e := NewEEPROM(b, addr, 8, nil)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	is.NoErr(os.WriteFile(in, []byte{1, 2, 3}, 0644))

	is.NoErr(e.Load(in))
	got, err := m.Tx(addr, []uint8{0, 1}, 2)
	is.NoErr(err)
	is.Equal(got, []uint8{2, 3})

	out := filepath.Join(dir, "out.bin")
	is.NoErr(e.Save(out))
	buf, err := os.ReadFile(out)
	is.NoErr(err)
	is.Equal(buf, []byte{1, 2, 3, 0, 0, 0, 0, 0})

	big := filepath.Join(dir, "big.bin")
	is.NoErr(os.WriteFile(big, make([]byte, 9), 0644))
	is.True(e.Load(big) != nil)
}

func TestEEPROMIgnoresOtherDevices(t *testing.T) {
	is := is.New(t)
	b, m := newBoard(t)
	e := NewEEPROM(b, 0x50, 16, nil)

	_, _ = m.Tx(0x51, []uint8{0, 0, 9, 9}, 0)
	is.Equal(e.Bytes(), make([]uint8, 16))
}
