package board

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/davecheney/twisim/twi"
)

type echo struct {
	a    *twi.Adapter
	last uint8
}

func (e *echo) HandleMessage(m twi.Message) {
	switch {
	case m.Cond.Has(twi.CondStart):
		e.a.Ack()
	case m.Cond.Has(twi.CondWrite):
		e.last = m.Data
		e.a.Ack()
	case m.Cond.Has(twi.CondRead):
		e.a.AckByte(e.last + 1)
	}
}

func (e *echo) ResetStateMachine() {}

func TestMasterTx(t *testing.T) {
	is := is.New(t)
	b := New(0, nil)
	e := new(echo)
	e.a = twi.Attach(b, 0x22, nil, e)
	m := b.Master()
	defer m.Close()

	r, err := m.Tx(0x22, []uint8{0x41}, 2)
	is.NoErr(err)
	is.Equal(r, []uint8{0x42, 0x42})
}

func TestMasterNack(t *testing.T) {
	is := is.New(t)
	b := New(0, nil)
	m := b.Master()

	err := m.Start(0x22, false)
	is.True(errors.Is(err, ErrNack))
	_, err = m.Tx(0x22, []uint8{1}, 0)
	is.True(errors.Is(err, ErrNack))
}

func TestMasterNegativeReadCount(t *testing.T) {
	is := is.New(t)
	b := New(0, nil)
	e := new(echo)
	e.a = twi.Attach(b, 0x22, nil, e)
	m := b.Master()
	defer m.Close()
	sent := 0
	b.TWIOutput().Notify(func(uint32) { sent++ })

	_, err := m.Tx(0x22, []uint8{1}, -1)
	is.True(err != nil)
	is.Equal(sent, 0) // nothing reached the bus
}
