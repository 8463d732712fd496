// Package logger provides a small ring-buffered log used by every component
// of the emulation core to record diagnostics: unmapped address access,
// unknown GP0/GP1/CD-ROM commands. None of these abort the guest; they are
// simply recorded for the host to inspect. A misaligned bus access is
// returned to the caller as bus.ErrMisaligned and is not logged.
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Permission is implemented by callers that want to conditionally suppress
// logging (for example, during save-state round-trip tests where repeated
// diagnostics would otherwise be noisy).
type Permission interface {
	AllowLogging() bool
}

// Allow is the zero-overhead Permission that always allows logging.
var Allow = allowPermission{}

type allowPermission struct{}

func (allowPermission) AllowLogging() bool { return true }

type entry struct {
	tag    string
	detail string
}

func (e entry) String() string {
	return fmt.Sprintf("%s: %s\n", e.tag, e.detail)
}

// Logger is a capped ring buffer of log entries, safe for concurrent use
// (although the core itself is single-threaded, the host's debugger poll and
// TTY callback may run on a different goroutine than the step loop).
type Logger struct {
	mu      sync.Mutex
	entries []entry
	cap     int
	next    int
	count   int
}

// NewLogger creates a Logger that retains at most cap entries, discarding the
// oldest entry once full.
func NewLogger(cap int) *Logger {
	if cap <= 0 {
		cap = 1
	}
	return &Logger{
		entries: make([]entry, cap),
		cap:     cap,
	}
}

func formatDetail(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Log records an entry under the given tag, provided perm allows logging.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, formatDetail(detail))
}

// Logf records a formatted entry under the given tag, provided perm allows
// logging.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry{tag: tag, detail: detail}
	l.next = (l.next + 1) % l.cap
	if l.count < l.cap {
		l.count++
	}
}

// Clear discards every recorded entry.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = 0
	l.count = 0
}

// ordered returns the retained entries oldest-first.
func (l *Logger) ordered() []entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entry, 0, l.count)
	if l.count < l.cap {
		out = append(out, l.entries[:l.count]...)
		return out
	}
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// Write writes every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	for _, e := range l.ordered() {
		fmt.Fprint(w, e.String())
	}
}

// Tail writes, at most, the last n retained entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	all := l.ordered()
	if n > len(all) {
		n = len(all)
	}
	if n <= 0 {
		return
	}
	for _, e := range all[len(all)-n:] {
		fmt.Fprint(w, e.String())
	}
}

// central is the default Logger used by the package-level convenience
// functions below, which every core component calls without needing to
// thread a *Logger reference through construction.
var central = NewLogger(1024)

// Log records an entry on the central logger, always allowed.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf records a formatted entry on the central logger, always allowed.
func Logf(tag string, format string, args ...interface{}) {
	central.Logf(Allow, tag, format, args...)
}

// Write writes every entry retained by the central logger to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the last n entries retained by the central logger to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear discards every entry retained by the central logger.
func Clear() {
	central.Clear()
}
