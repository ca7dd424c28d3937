// Package board is a cooperative host for simulated peripherals: a cycle
// counter with timers, the I2C and SPI wires, named pins and serial lines.
package board

import (
	"container/heap"
	"fmt"

	"github.com/davecheney/twisim/twi"
)

// DefaultFrequency is the clock of a 16 MHz AVR.
const DefaultFrequency = 16000000

// Board is a single threaded host. Everything it calls runs to completion
// on the caller's stack.
type Board struct {
	cycles uint64
	freq   uint64

	timers timerHeap
	live   map[twi.TimerID]*timer
	nextID twi.TimerID
	seq    uint64

	twiOut, twiIn Wire
	spi           Wire
	pins          map[string]*Pin
	uarts         map[int]*Wire

	log twi.Logger
}

// New returns a board clocked at freq cycles per second.
func New(freq uint64, log twi.Logger) *Board {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Board{
		freq:  freq,
		live:  make(map[twi.TimerID]*timer),
		pins:  make(map[string]*Pin),
		uarts: make(map[int]*Wire),
		log:   twi.LoggerOrNop(log),
	}
}

func (b *Board) Cycles() uint64    { return b.cycles }
func (b *Board) Frequency() uint64 { return b.freq }

func (b *Board) TWIOutput() twi.Wire { return &b.twiOut }
func (b *Board) TWIInput() twi.Wire  { return &b.twiIn }

// SPI returns the wire carrying bytes shifted out by the firmware.
func (b *Board) SPI() *Wire { return &b.spi }

// UART returns the transmit line of serial port n.
func (b *Board) UART(n int) *Wire {
	w, ok := b.uarts[n]
	if !ok {
		w = new(Wire)
		b.uarts[n] = w
	}
	return w
}

// Pin returns the named pin, creating it at level init if it does not exist.
func (b *Board) Pin(name string, init uint32) *Pin {
	p, ok := b.pins[name]
	if !ok {
		p = &Pin{Name: name}
		p.value = init
		b.pins[name] = p
	}
	return p
}

// Pins returns the names and levels of all pins.
func (b *Board) Pins() map[string]uint32 {
	m := make(map[string]uint32, len(b.pins))
	for n, p := range b.pins {
		m[n] = p.Value()
	}
	return m
}

func (b *Board) RegisterTimer(when uint64, fn twi.TimerFunc) twi.TimerID {
	b.nextID++
	t := &timer{id: b.nextID, when: when, fn: fn}
	b.push(t)
	b.live[t.id] = t
	return t.id
}

func (b *Board) CancelTimer(id twi.TimerID) {
	if t, ok := b.live[id]; ok {
		t.cancelled = true
		delete(b.live, id)
	}
}

// Pending returns the number of timers that have yet to fire.
func (b *Board) Pending() int { return len(b.live) }

// Advance moves the clock forward by n cycles, firing due timers in cycle
// order. A device fault stops the clock at the faulting cycle and is
// returned.
func (b *Board) Advance(n uint64) (err error) {
	defer twi.Recover(&err)
	target := b.cycles + n
	for len(b.timers) > 0 && b.timers[0].when <= target {
		t := heap.Pop(&b.timers).(*timer)
		if t.cancelled {
			continue
		}
		if t.when > b.cycles {
			b.cycles = t.when
		}
		next := b.fire(t)
		if next == 0 || t.cancelled {
			delete(b.live, t.id)
			continue
		}
		if next <= b.cycles {
			next = b.cycles + 1
		}
		t.when = next
		b.push(t)
	}
	b.cycles = target
	return nil
}

// fire runs t. A timer that faults is dropped.
func (b *Board) fire(t *timer) uint64 {
	done := false
	defer func() {
		if !done {
			delete(b.live, t.id)
		}
	}()
	next := t.fn(b.cycles)
	done = true
	return next
}

// AdvanceUSec moves the clock forward by usec microseconds.
func (b *Board) AdvanceUSec(usec uint64) error {
	return b.Advance(twi.USecToCycles(b, usec))
}

// Step runs fn as one host step, converting a device fault into an error.
func (b *Board) Step(fn func()) (err error) {
	defer twi.Recover(&err)
	fn()
	return nil
}

func (b *Board) String() string {
	return fmt.Sprintf("board: cycle %d @ %d Hz, %d timers", b.cycles, b.freq, len(b.live))
}

func (b *Board) push(t *timer) {
	b.seq++
	t.seq = b.seq
	heap.Push(&b.timers, t)
}

type timer struct {
	id        twi.TimerID
	when      uint64
	seq       uint64
	fn        twi.TimerFunc
	cancelled bool
}

// timerHeap orders timers by cycle, then by registration.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	t := old[len(old)-1]
	*h = old[:len(old)-1]
	return t
}
