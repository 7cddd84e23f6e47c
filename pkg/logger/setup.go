package logger

import "io"

// SetupLogger replaces the default logger for command-line use and returns
// it. Logs go to w so that command output stays machine readable.
func SetupLogger(w io.Writer, logLevel string, logJSON, logSource bool) Logger {
	Init(&Config{
		Level:      ParseLevel(logLevel),
		Output:     w,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
	return GetDefault()
}
