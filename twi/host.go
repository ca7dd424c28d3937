package twi

// Wire is a value line owned by the host. Raising a value notifies every
// subscriber synchronously, in subscription order.
type Wire interface {
	Raise(v uint32)
	Notify(fn func(v uint32)) (cancel func())
}

// Pin is a discrete output line such as an interrupt or busy signal.
type Pin interface {
	Raise(v uint32)
}

// Line is an input the device samples.
type Line interface {
	Value() uint32
}

// TimerID identifies a registered timer.
type TimerID uint64

// TimerFunc is called when a timer fires. It returns the cycle at which to
// fire again, or 0 to stop.
type TimerFunc func(now uint64) (next uint64)

// Clock is the host's cycle counter and timer facility.
type Clock interface {
	// Cycles returns the current, monotonic cycle count.
	Cycles() uint64

	// Frequency returns the number of cycles per simulated second.
	Frequency() uint64

	// RegisterTimer arranges for fn to be called no earlier than cycle when.
	RegisterTimer(when uint64, fn TimerFunc) TimerID

	// CancelTimer removes a timer that has not fired yet.
	CancelTimer(id TimerID)
}

// Host is the simulation engine the devices are attached to.
type Host interface {
	Clock

	// TWIOutput carries the conditions issued by the firmware.
	TWIOutput() Wire

	// TWIInput carries device replies back to the firmware.
	TWIInput() Wire
}

// USecToCycles converts microseconds of simulated time to cycles of c.
func USecToCycles(c Clock, usec uint64) uint64 {
	return usec * c.Frequency() / 1000000
}
