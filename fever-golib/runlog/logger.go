// Package runlog is the logger shared by the pipeline commands: the standard
// log package with a run prefix, plus a tracker for stage durations.
package runlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var flags = log.LstdFlags | log.Lshortfile | log.Lmicroseconds

func init() {
	// for code still using the standard log package
	log.SetFlags(flags)
}

// Basic is the process-wide logger; it writes to stderr.
var Basic = New(os.Stderr, "")

// Logger encapsulates multiple logging handlers
type Logger struct {
	Default   *log.Logger
	Durations Durations
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// New returns a Logger writing to w. A non-empty run name is rendered as a
// "[run=<name>] " prefix.
func New(w io.Writer, run string) *Logger {
	return &Logger{Default: log.New(w, prefix(run), flags)}
}

func prefix(run string) string {
	if run == "" {
		return ""
	}
	return fmt.Sprintf("[run=%s] ", run)
}

// SetRun switches the prefix of l, and of the standard logger, to the given
// run name.
func (l *Logger) SetRun(run string) {
	l.Default.SetPrefix(prefix(run))
	log.SetPrefix(prefix(run))
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Default.Output(2, fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	l.Default.Output(2, fmt.Sprintln(v...))
}
