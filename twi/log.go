package twi

// Logger receives optional diagnostic text from devices.
type Logger interface {
	Printf(format string, args ...interface{})
}

type nop struct{}

func (nop) Printf(string, ...interface{}) {}

// Nop discards everything.
var Nop Logger = nop{}

// LoggerOrNop returns l, or Nop if l is nil.
func LoggerOrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

// LogFunc adapts a printf-style function to a Logger.
type LogFunc func(format string, args ...interface{})

func (f LogFunc) Printf(format string, args ...interface{}) { f(format, args...) }
