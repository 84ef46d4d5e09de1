package observability

import (
	"log"
	"log/slog"
	"strings"
)

// logWriter is an io.Writer that redirects a stdlib *log.Logger (http.Server
// ErrorLog) into the application's slog.Logger.
type logWriter struct {
	logger    *slog.Logger
	component string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	// Remove the trailing newline the log package always appends
	msg := strings.TrimRight(string(p), "\n")

	w.logger.Error(msg, "component", w.component)
	return len(p), nil
}

// NewErrorLog returns a *log.Logger writing at error level through logger.
func NewErrorLog(logger *slog.Logger, component string) *log.Logger {
	return log.New(&logWriter{logger: logger, component: component}, "", 0)
}
