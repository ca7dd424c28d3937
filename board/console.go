package board

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// UART collects the bytes a serial port transmits and hands complete lines
// to a sink.
type UART struct {
	n    int
	line []byte
	sink func(string)
	stop func()
}

// AttachUART listens to serial port n of b and passes each line, prefixed
// with the port number, to sink.
func AttachUART(b *Board, n int, sink func(string)) *UART {
	u := &UART{n: n, sink: sink}
	u.stop = b.UART(n).Notify(func(v uint32) { u.WriteByte(byte(v)) })
	return u
}

// Close stops listening.
func (u *UART) Close() { u.stop() }

// WriteByte appends c to the current line, flushing it on newline.
func (u *UART) WriteByte(c byte) error {
	u.line = append(u.line, c)
	if c != '\n' {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Serial %d] ", u.n)
	for _, c := range u.line {
		switch r := rune(c); {
		case unicode.IsPrint(r), unicode.IsSpace(r):
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "0x%X ", c)
		}
	}
	u.line = u.line[:0]
	u.sink(sb.String())
	return nil
}

// LogRingSize is the number of lines a LogRing keeps.
const LogRingSize = 250

// LogRing keeps the most recent log lines for a consumer that may run on
// another goroutine.
type LogRing struct {
	mu    sync.Mutex
	lines []string // most recent first
}

// Insert adds s as the newest line.
func (r *LogRing) Insert(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, "")
	copy(r.lines[1:], r.lines)
	r.lines[0] = s
	if len(r.lines) > LogRingSize {
		r.lines = r.lines[:LogRingSize]
	}
}

// Printf formats a line into the ring.
func (r *LogRing) Printf(format string, args ...interface{}) {
	r.Insert(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Each calls fn for every line, newest first.
func (r *LogRing) Each(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.lines {
		fn(s)
	}
}

func (r *LogRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}
