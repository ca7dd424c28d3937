package twi

import (
	"fmt"
	"strings"
)

// MaxFinished is the number of completed transactions a Listener keeps.
const MaxFinished = 100

// Dir is the data direction of a transaction.
type Dir int

const (
	DirNone Dir = iota
	DirWrite
	DirRead
)

func (d Dir) String() string {
	switch d {
	case DirWrite:
		return "W"
	case DirRead:
		return "R"
	default:
		return "-"
	}
}

// Transaction is one START..STOP span as seen on the bus.
type Transaction struct {
	Address       uint8
	Direction     Dir
	RepeatedStart bool
	Write         []uint8
	Read          []uint8
}

func (t Transaction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%02x %v", t.Address, t.Direction)
	if t.RepeatedStart {
		sb.WriteString(" rs")
	}
	if len(t.Write) > 0 {
		fmt.Fprintf(&sb, " w[% x]", t.Write)
	}
	if len(t.Read) > 0 {
		fmt.Fprintf(&sb, " r[% x]", t.Read)
	}
	return sb.String()
}

// Listener reconstructs transactions from both bus wires without taking
// part in them.
type Listener struct {
	log      Logger
	current  *Transaction
	finished []Transaction // most recent first
	fn       func(Transaction)
	cancel   []func()
}

// NewListener subscribes to host's bus wires.
func NewListener(host Host, log Logger) *Listener {
	l := &Listener{log: LoggerOrNop(log)}
	l.cancel = []func(){
		host.TWIOutput().Notify(l.fromFirmware),
		host.TWIInput().Notify(l.toFirmware),
	}
	return l
}

// Close unsubscribes the listener.
func (l *Listener) Close() {
	for _, c := range l.cancel {
		c()
	}
	l.cancel = nil
}

// Finished returns the completed transactions, most recent first.
func (l *Listener) Finished() []Transaction {
	return append([]Transaction(nil), l.finished...)
}

// OnTransaction registers fn to be called each time a transaction completes.
func (l *Listener) OnTransaction(fn func(Transaction)) { l.fn = fn }

func (l *Listener) fromFirmware(v uint32) {
	m := Decode(v)
	switch {
	case m.Cond.Has(CondStart):
		if l.current != nil {
			l.current.RepeatedStart = true
			return
		}
		l.current = &Transaction{Address: m.Address}
	case m.Cond.Has(CondWrite):
		if l.orphan("write", m) {
			return
		}
		l.current.Direction = DirWrite
		l.current.Write = append(l.current.Write, m.Data)
	case m.Cond.Has(CondRead):
		if l.orphan("read", m) {
			return
		}
		l.current.Direction = DirRead
	case m.Cond.Has(CondStop):
		if l.current == nil {
			return
		}
		t := *l.current
		l.current = nil
		l.finished = append([]Transaction{t}, l.finished...)
		if len(l.finished) > MaxFinished {
			l.finished = l.finished[:MaxFinished]
		}
		if l.fn != nil {
			l.fn(t)
		}
	}
}

func (l *Listener) toFirmware(v uint32) {
	m := Decode(v)
	if !m.Cond.Has(CondRead) {
		return
	}
	if l.orphan("reply", m) {
		return
	}
	l.current.Read = append(l.current.Read, m.Data)
}

func (l *Listener) orphan(what string, m Message) bool {
	if l.current != nil {
		return false
	}
	l.log.Printf("bad i2c: %s outside a transaction: %v\n", what, m)
	return true
}
