package device

import (
	"testing"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

// testLog sends device diagnostics to the test log.
func testLog(t *testing.T) twi.Logger {
	return twi.LogFunc(func(format string, args ...interface{}) {
		t.Helper()
		t.Logf(format, args...)
	})
}

func newBoard(t *testing.T) (*board.Board, *board.Master) {
	b := board.New(board.DefaultFrequency, testLog(t))
	m := b.Master()
	t.Cleanup(m.Close)
	return b, m
}

// usec converts microseconds to cycles of b.
func usec(b *board.Board, n uint64) uint64 { return twi.USecToCycles(b, n) }
