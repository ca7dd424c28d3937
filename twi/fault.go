package twi

import "fmt"

// FaultKind classifies a fatal device condition.
type FaultKind int

const (
	// Desync is a message delivered in a state that cannot handle it.
	Desync FaultKind = iota + 1

	// OutOfRange is an access outside a device's register or memory space.
	OutOfRange

	// Unimplemented is a device mode that is not modeled.
	Unimplemented
)

func (k FaultKind) String() string {
	switch k {
	case Desync:
		return "bus desync"
	case OutOfRange:
		return "out of range"
	case Unimplemented:
		return "unimplemented"
	default:
		return fmt.Sprintf("fault(%d)", int(k))
	}
}

// Fault is panicked by a device when the simulation cannot continue.
type Fault struct {
	Device string
	Kind   FaultKind
	Msg    string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Device, f.Kind, f.Msg)
}

// Fatalf aborts the current host step with a *Fault.
func Fatalf(device string, kind FaultKind, format string, args ...interface{}) {
	panic(&Fault{Device: device, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Recover converts a panicking *Fault into an error stored in *err. Other
// panics are propagated. Use it as defer twi.Recover(&err).
func Recover(err *error) {
	switch r := recover().(type) {
	case nil:
	case *Fault:
		*err = r
	default:
		panic(r)
	}
}
