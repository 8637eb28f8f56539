package core

// Logger is any leveled logger that can report to an error tracker.
// Extra args may carry the error, structured data or the acting account.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
