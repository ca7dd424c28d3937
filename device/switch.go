package device

import (
	"math/rand/v2"

	"github.com/davecheney/twisim/twi"
)

const (
	switchBounces   = 10
	switchBounceMax = 1000 // usec between bounces
)

type levelShift struct {
	bounces int
	closed  bool
	hold    uint64 // msec to stay at this level before the next shift
}

// Switch is a mechanical contact on an input pin. Every change of level
// chatters a few times at random intervals before it settles.
type Switch struct {
	clock  twi.Clock
	pin    twi.Pin
	closed uint32 // pin level while the contact is closed
	rand   *rand.Rand

	shifts  []levelShift
	level   bool
	running bool
	timer   twi.TimerID
}

// NewSwitch drives pin with closedLevel while the contact is closed. A nil r
// uses a randomly seeded generator.
func NewSwitch(c twi.Clock, pin twi.Pin, closedLevel uint32, r *rand.Rand) *Switch {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Switch{clock: c, pin: pin, closed: closedLevel, rand: r}
}

// Close closes the contact.
func (s *Switch) Close() { s.queue(levelShift{closed: true}) }

// Open opens the contact.
func (s *Switch) Open() { s.queue(levelShift{closed: false}) }

// Set closes the contact if closed is true, otherwise opens it.
func (s *Switch) Set(closed bool) { s.queue(levelShift{closed: closed}) }

// CloseFor closes the contact for msec milliseconds, then opens it.
func (s *Switch) CloseFor(msec uint64) {
	s.queue(levelShift{closed: true, hold: msec}, levelShift{closed: false})
}

// OpenFor opens the contact for msec milliseconds, then closes it.
func (s *Switch) OpenFor(msec uint64) {
	s.queue(levelShift{closed: false, hold: msec}, levelShift{closed: true})
}

// Settled reports whether every queued change has completed.
func (s *Switch) Settled() bool { return !s.running }

// Stop drops queued changes, leaving the pin where it is.
func (s *Switch) Stop() {
	if s.running {
		s.clock.CancelTimer(s.timer)
		s.running = false
	}
	s.shifts = nil
}

func (s *Switch) queue(shifts ...levelShift) {
	for _, ls := range shifts {
		ls.bounces = switchBounces
		s.shifts = append(s.shifts, ls)
	}
	if s.running {
		return
	}
	s.running = true
	s.timer = s.clock.RegisterTimer(s.clock.Cycles()+s.bounceDelay(), s.bounce)
}

func (s *Switch) bounceDelay() uint64 {
	return twi.USecToCycles(s.clock, s.rand.Uint64N(switchBounceMax))
}

func (s *Switch) bounce(now uint64) uint64 {
	ls := &s.shifts[0]
	if ls.bounces > 0 {
		ls.bounces--
		if s.rand.IntN(10) >= 6 {
			s.level = !s.level
		}
		s.raise(s.level)
		return now + s.bounceDelay()
	}

	s.level = ls.closed
	s.raise(ls.closed)
	hold := ls.hold
	s.shifts = s.shifts[1:]
	if len(s.shifts) == 0 {
		s.running = false
		return 0
	}
	return now + twi.USecToCycles(s.clock, hold*1000)
}

func (s *Switch) raise(closed bool) {
	v := s.closed
	if !closed {
		v ^= 1
	}
	s.pin.Raise(v)
}
