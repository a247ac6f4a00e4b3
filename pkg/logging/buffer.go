package logging

import (
	"strings"
	"sync"
)

// captureLines is how many recent lines a LogCaptureWriter keeps.
const captureLines = 50

// LogCaptureWriter is a thread-safe writer that keeps the most recent log lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
}

// GlobalLogCapture receives every INFO+ record of the default logger.
var GlobalLogCapture = &LogCaptureWriter{}

// Write implements io.Writer. Each call is one formatted record.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, strings.TrimRight(string(p), "\n"))
	if len(w.lines) > captureLines {
		w.lines = w.lines[len(w.lines)-captureLines:]
	}
	return len(p), nil
}

// GetLastLine returns the most recent log line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Lines returns up to n recent lines, oldest first.
func (w *LogCaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.lines) {
		n = len(w.lines)
	}
	out := make([]string, n)
	copy(out, w.lines[len(w.lines)-n:])
	return out
}
