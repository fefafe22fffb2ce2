package gamedata

// Logger receives diagnostic messages. It never influences control flow.
type Logger interface {
	Logf(format string, args ...any)
}

// LoggerFunc adapts a plain function to Logger.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Logf(format string, args ...any) { f(format, args...) }

type discard struct{}

func (discard) Logf(string, ...any) {}

// Discard drops every message.
var Discard Logger = discard{}

// OrDiscard returns log, or Discard when log is nil.
func OrDiscard(log Logger) Logger {
	if log == nil {
		return Discard
	}
	return log
}
