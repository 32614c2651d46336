package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers do not need to import logrus.
type Fields = logrus.Fields

var std = logrus.New()

// SetLevel parses level ("debug", "info", ...) and applies it. Unknown levels
// leave the current level unchanged and return the parse error.
func SetLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(l)
	return nil
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetJSON switches between JSON and text formatting.
func SetJSON(on bool) {
	if on {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// With returns an entry carrying the given structured fields.
func With(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Fatal logs at fatal level and exits.
// Arguments are handled in the manner of [fmt.Printf].
func Fatal(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}

// Error logs at error level.
// Arguments are handled in the manner of [fmt.Printf].
func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Warn logs at warn level.
// Arguments are handled in the manner of [fmt.Printf].
func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Info logs at info level.
// Arguments are handled in the manner of [fmt.Printf].
func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Debug logs at debug level.
// Arguments are handled in the manner of [fmt.Printf].
func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}
