package twi_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/matryer/is"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

func TestListenerWriteTransaction(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	l := twi.NewListener(b, nil)
	var seen []twi.Transaction
	l.OnTransaction(func(t twi.Transaction) { seen = append(seen, t) })

	raise(b,
		twi.Message{Address: 0x50, Cond: twi.CondStart},
		twi.Message{Address: 0x50, Cond: twi.CondWrite, Data: 0x10},
		twi.Message{Address: 0x50, Cond: twi.CondStop},
	)
	got := l.Finished()
	want := []twi.Transaction{{Address: 0x50, Direction: twi.DirWrite, Write: []uint8{0x10}}}
	is.Equal(len(got), 1)
	is.Equal(got, want)
	is.Equal(seen, want)
	is.Equal(got[0].String(), "50 W w[10]")
}

func TestListenerRepeatedStartRead(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	l := twi.NewListener(b, nil)
	regs := &twi.RegisterMachine{Name: "test", Regs: []uint8{0xaa, 0xbb}, Next: twi.Wrap(0, 1)}
	regs.Attach(b, 0x68, nil)

	_, err := b.Master().Tx(0x68, []uint8{0}, 2)
	is.NoErr(err)

	got := l.Finished()
	is.Equal(len(got), 1)
	tx := got[0]
	is.Equal(tx.Address, uint8(0x68))
	is.True(tx.RepeatedStart)
	is.Equal(tx.Direction, twi.DirRead)
	is.Equal(tx.Write, []uint8{0})
	is.Equal(tx.Read, []uint8{0xaa, 0xbb})
}

func TestListenerKeepsMostRecent(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	l := twi.NewListener(b, nil)

	for i := 0; i < twi.MaxFinished+20; i++ {
		raise(b,
			twi.Message{Address: 0x50, Cond: twi.CondStart},
			twi.Message{Address: 0x50, Cond: twi.CondWrite, Data: uint8(i)},
			twi.Message{Address: 0x50, Cond: twi.CondStop},
		)
	}
	got := l.Finished()
	is.Equal(len(got), twi.MaxFinished)
	is.Equal(got[0].Write, []uint8{twi.MaxFinished + 19})
	if got[len(got)-1].Write[0] != 20 {
		t.Fatalf("oldest kept transaction:\n%s", spew.Sdump(got[len(got)-1]))
	}
}

func TestListenerOrphans(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	var log strings.Builder
	l := twi.NewListener(b, twi.LogFunc(func(format string, args ...interface{}) {
		fmt.Fprintf(&log, format, args...)
	}))

	raise(b,
		twi.Message{Address: 0x50, Cond: twi.CondWrite, Data: 1},
		twi.Message{Address: 0x50, Cond: twi.CondStop},
	)
	is.Equal(len(l.Finished()), 0)
	is.True(strings.HasPrefix(log.String(), "bad i2c: write"))
}

func TestListenerClose(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	l := twi.NewListener(b, nil)
	l.Close()
	raise(b,
		twi.Message{Address: 0x50, Cond: twi.CondStart},
		twi.Message{Address: 0x50, Cond: twi.CondStop},
	)
	is.Equal(len(l.Finished()), 0)
}
