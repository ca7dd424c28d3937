package board

import (
	"errors"
	"fmt"

	"github.com/davecheney/twisim/twi"
)

// ErrNack is returned when no device acknowledges a bus phase.
var ErrNack = errors.New("i2c: no acknowledge")

// Master drives the bus the way the firmware's TWI peripheral does. Device
// faults raised while it drives the bus are returned as errors.
type Master struct {
	b      *Board
	addr   uint8
	acked  bool
	data   uint8
	read   bool
	cancel func()
}

// Master returns a bus master attached to the board's TWI wires.
func (b *Board) Master() *Master {
	m := &Master{b: b}
	m.cancel = b.twiIn.Notify(m.reply)
	return m
}

// Close detaches the master.
func (m *Master) Close() { m.cancel() }

func (m *Master) reply(v uint32) {
	msg := twi.Decode(v)
	if msg.Cond.Has(twi.CondAck) {
		m.acked = true
	}
	if msg.Cond.Has(twi.CondRead) {
		m.data = msg.Data
		m.read = true
	}
}

func (m *Master) raise(msg twi.Message) {
	m.acked, m.read = false, false
	m.b.twiOut.Raise(msg.Encode())
}

// Start issues a START (or repeated START) for addr.
func (m *Master) Start(addr uint8, read bool) (err error) {
	defer twi.Recover(&err)
	m.addr = addr & 0x7f
	m.raise(twi.Message{Address: m.addr, Read: read, Cond: twi.CondStart})
	if !m.acked {
		m.b.log.Printf("i2c: start %02x not acknowledged\n", m.addr)
		return fmt.Errorf("start %02x: %w", m.addr, ErrNack)
	}
	return nil
}

// Write sends one data byte.
func (m *Master) Write(v uint8) (err error) {
	defer twi.Recover(&err)
	m.raise(twi.Message{Address: m.addr, Cond: twi.CondWrite, Data: v})
	if !m.acked {
		return fmt.Errorf("write %02x to %02x: %w", v, m.addr, ErrNack)
	}
	return nil
}

// Read requests one data byte.
func (m *Master) Read() (v uint8, err error) {
	defer twi.Recover(&err)
	m.raise(twi.Message{Address: m.addr, Read: true, Cond: twi.CondRead})
	if !m.read {
		return 0, fmt.Errorf("read from %02x: %w", m.addr, ErrNack)
	}
	return m.data, nil
}

// Stop issues a STOP.
func (m *Master) Stop() (err error) {
	defer twi.Recover(&err)
	m.raise(twi.Message{Address: m.addr, Cond: twi.CondStop})
	return nil
}

// Tx writes w to addr and then, if n > 0, reads n bytes after a repeated
// START. The transaction always ends with a STOP.
func (m *Master) Tx(addr uint8, w []uint8, n int) ([]uint8, error) {
	if n < 0 {
		return nil, fmt.Errorf("tx %02x: negative read count %d", addr&0x7f, n)
	}
	r, err := m.tx(addr, w, n)
	if serr := m.Stop(); err == nil {
		err = serr
	}
	return r, err
}

func (m *Master) tx(addr uint8, w []uint8, n int) ([]uint8, error) {
	if len(w) > 0 || n == 0 {
		if err := m.Start(addr, false); err != nil {
			return nil, err
		}
		for _, v := range w {
			if err := m.Write(v); err != nil {
				return nil, err
			}
		}
	}
	if n == 0 {
		return nil, nil
	}
	if err := m.Start(addr, true); err != nil {
		return nil, err
	}
	r := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		v, err := m.Read()
		if err != nil {
			return r, err
		}
		r = append(r, v)
	}
	return r, nil
}
