package twi_test

import (
	"testing"

	"github.com/matryer/is"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

type recorder struct {
	msgs   []twi.Message
	resets int
	ack    *twi.Adapter
}

func (r *recorder) HandleMessage(m twi.Message) {
	r.msgs = append(r.msgs, m)
	if r.ack != nil && !m.Cond.Has(twi.CondStop) {
		r.ack.Ack()
	}
}

func (r *recorder) ResetStateMachine() { r.resets++ }

func raise(b *board.Board, msgs ...twi.Message) {
	for _, m := range msgs {
		b.TWIOutput().Raise(m.Encode())
	}
}

func TestAdapterIgnoresOtherAddresses(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	var r recorder
	twi.Attach(b, 0x50, nil, &r)

	raise(b,
		twi.Message{Address: 0x51, Cond: twi.CondWrite, Data: 1},
		twi.Message{Address: 0x51, Cond: twi.CondWrite, Data: 2},
		twi.Message{Address: 0x51, Cond: twi.CondStop},
	)
	is.Equal(len(r.msgs), 0)
	is.Equal(r.resets, 0)

	// a START for someone else deselects us
	raise(b, twi.Message{Address: 0x51, Cond: twi.CondStart})
	is.Equal(len(r.msgs), 0)
	is.Equal(r.resets, 1)
}

func TestAdapterDelivers(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	var r recorder
	r.ack = twi.Attach(b, 0x50, nil, &r)

	var acks []twi.Message
	b.TWIInput().Notify(func(v uint32) { acks = append(acks, twi.Decode(v)) })

	raise(b,
		twi.Message{Address: 0x50, Cond: twi.CondStart},
		twi.Message{Address: 0x50, Cond: twi.CondWrite, Data: 0x10},
	)
	is.Equal(len(r.msgs), 2)
	is.Equal(r.resets, 0)
	is.Equal(len(acks), 2)
	is.True(acks[0].Cond.Has(twi.CondAck))
	is.Equal(acks[0].Address, uint8(0x50))

	raise(b, twi.Message{Address: 0x50, Cond: twi.CondStop})
	is.Equal(len(r.msgs), 3) // STOP is delivered
	is.Equal(r.resets, 1)    // and then the machine is reset
}

func TestAdapterMatchers(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	var multi, masked recorder
	twi.Attach(b, 0x20, twi.MatchAddress(0x20, 0x21), &multi)
	twi.Attach(b, 0x50, twi.MatchMask(0x50, 0x78), &masked)

	raise(b,
		twi.Message{Address: 0x21, Cond: twi.CondWrite},
		twi.Message{Address: 0x57, Cond: twi.CondWrite},
		twi.Message{Address: 0x58, Cond: twi.CondWrite},
	)
	is.Equal(len(multi.msgs), 1)
	is.Equal(len(masked.msgs), 1)
	is.Equal(masked.msgs[0].Address, uint8(0x57))
}

func TestAdapterDetach(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	var r recorder
	a := twi.Attach(b, 0x50, nil, &r)
	a.Detach()
	a.Detach()
	raise(b, twi.Message{Address: 0x50, Cond: twi.CondStart})
	is.Equal(len(r.msgs), 0)
}

func TestAckByte(t *testing.T) {
	is := is.New(t)
	b := board.New(0, nil)
	a := twi.Attach(b, 0x68, nil, new(recorder))
	var got twi.Message
	b.TWIInput().Notify(func(v uint32) { got = twi.Decode(v) })
	a.AckByte(0x42)
	is.True(got.Cond.Has(twi.CondAck))
	is.True(got.Cond.Has(twi.CondRead))
	is.Equal(got.Data, uint8(0x42))
	is.Equal(got.Address, uint8(0x68))
}
