package twi

// Pending is a one-shot action scheduled on a Clock.
type Pending struct {
	clock Clock
	id    TimerID
	done  bool
}

// After calls fn once, usec microseconds of simulated time from now.
func After(c Clock, usec uint64, fn func()) *Pending {
	p := &Pending{clock: c}
	p.id = c.RegisterTimer(c.Cycles()+USecToCycles(c, usec), func(uint64) uint64 {
		p.done = true
		fn()
		return 0
	})
	return p
}

// Every calls fn each period microseconds of simulated time until the
// returned action is cancelled.
func Every(c Clock, period uint64, fn func()) *Pending {
	p := &Pending{clock: c}
	step := max(USecToCycles(c, period), 1)
	p.id = c.RegisterTimer(c.Cycles()+step, func(now uint64) uint64 {
		fn()
		if p.done {
			return 0
		}
		return now + step
	})
	return p
}

// Cancel stops p from firing. Cancelling a fired action does nothing.
func (p *Pending) Cancel() {
	if p.done {
		return
	}
	p.done = true
	p.clock.CancelTimer(p.id)
}

// Done reports whether p has fired or been cancelled.
func (p *Pending) Done() bool { return p.done }

// PendingSet tracks at most one scheduled action per key. Arming a key that
// already has an action cancels the old one first.
type PendingSet[K comparable] struct {
	clock   Clock
	pending map[K]*Pending
}

func NewPendingSet[K comparable](c Clock) *PendingSet[K] {
	return &PendingSet[K]{clock: c, pending: make(map[K]*Pending)}
}

// Arm schedules fn for key k after usec microseconds. It reports whether an
// earlier action for k was superseded.
func (s *PendingSet[K]) Arm(k K, usec uint64, fn func()) (superseded bool) {
	if old, ok := s.pending[k]; ok {
		old.Cancel()
		superseded = true
	}
	var p *Pending
	p = After(s.clock, usec, func() {
		if s.pending[k] != p {
			return
		}
		delete(s.pending, k)
		fn()
	})
	s.pending[k] = p
	return superseded
}

// Cancel removes the action for k before it fires.
func (s *PendingSet[K]) Cancel(k K) bool {
	p, ok := s.pending[k]
	if !ok {
		return false
	}
	delete(s.pending, k)
	p.Cancel()
	return true
}

// Has reports whether an action for k is outstanding.
func (s *PendingSet[K]) Has(k K) bool {
	_, ok := s.pending[k]
	return ok
}

func (s *PendingSet[K]) Len() int { return len(s.pending) }

// CancelAll drops every outstanding action.
func (s *PendingSet[K]) CancelAll() {
	for k, p := range s.pending {
		p.Cancel()
		delete(s.pending, k)
	}
}
