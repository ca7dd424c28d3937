// Package twi models the device side of a two-wire (I2C) bus attached to a
// simulated microcontroller.
package twi

import (
	"fmt"
	"strings"
)

// Cond is the set of bus conditions carried by one message.
type Cond uint8

const (
	CondStart Cond = 1 << iota
	CondStop
	CondAddr
	CondAck
	CondWrite
	CondRead
)

func (c Cond) Has(f Cond) bool { return c&f != 0 }

func (c Cond) String() string {
	var s []string
	for _, n := range []struct {
		c    Cond
		name string
	}{
		{CondStart, "START"},
		{CondStop, "STOP"},
		{CondAddr, "ADDR"},
		{CondAck, "ACK"},
		{CondWrite, "WRITE"},
		{CondRead, "READ"},
	} {
		if c.Has(n.c) {
			s = append(s, n.name)
		}
	}
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, "|")
}

// Message is one phase of a bus transaction.
//
// Address is the 7 bit device address. Read is the R/W bit sent along with
// the address byte, meaningful on START.
type Message struct {
	Address uint8
	Read    bool
	Cond    Cond
	Data    uint8
}

// Decode unpacks a 32 bit wire value. Bits 8-15 hold the condition, bits
// 16-23 the address byte (address<<1 | R/W) and bits 24-31 the data byte.
func Decode(v uint32) Message {
	ab := uint8(v >> 16)
	return Message{
		Address: ab >> 1,
		Read:    ab&1 == 1,
		Cond:    Cond(v >> 8),
		Data:    uint8(v >> 24),
	}
}

// Encode packs m into its 32 bit wire value.
func (m Message) Encode() uint32 {
	ab := uint32(m.Address&0x7f) << 1
	if m.Read {
		ab |= 1
	}
	return uint32(m.Cond)<<8 | ab<<16 | uint32(m.Data)<<24
}

func (m Message) String() string {
	rw := "W"
	if m.Read {
		rw = "R"
	}
	return fmt.Sprintf("%s addr=%02x/%s data=%02x", m.Cond, m.Address, rw, m.Data)
}
