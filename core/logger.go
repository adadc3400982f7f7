package core

// Logger is any service that can log & report app messages.
// Args may contain errors, maps of extra data or the user.User the message is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
