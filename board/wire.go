package board

type subscriber struct {
	fn   func(uint32)
	dead bool
}

// Wire delivers every raised value to its subscribers, in the order they
// subscribed. The zero value is ready to use.
type Wire struct {
	subs []*subscriber
	last uint32
}

func (w *Wire) Raise(v uint32) {
	w.last = v
	subs := w.subs
	for _, s := range subs {
		if !s.dead {
			s.fn(v)
		}
	}
}

func (w *Wire) Notify(fn func(uint32)) (cancel func()) {
	s := &subscriber{fn: fn}
	w.subs = append(w.subs, s)
	return func() {
		if s.dead {
			return
		}
		s.dead = true
		for i, x := range w.subs {
			if x == s {
				w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
				break
			}
		}
	}
}

// Last returns the most recently raised value.
func (w *Wire) Last() uint32 { return w.last }

// Pin is a discrete line with a current level.
type Pin struct {
	Name  string
	value uint32
	Wire
}

// Raise sets the level and notifies subscribers.
func (p *Pin) Raise(v uint32) {
	p.value = v
	p.Wire.Raise(v)
}

// Value returns the current level.
func (p *Pin) Value() uint32 { return p.value }
