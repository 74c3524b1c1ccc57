// Package logging selects the process's single log sink once at startup and
// hands callers an explicit zerolog.Logger to thread through components,
// rather than a package-level singleton.
//
// Sink selection: prefer a real terminal if one is reachable via /dev/tty
// (the process may have had stderr redirected but still be attached to a
// controlling terminal), fall back to checking whether stderr itself is a
// TTY, and otherwise ship log lines to the system log at INFO severity.
package logging

import (
	"log/syslog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New picks the sink and returns a ready-to-use Logger. name identifies the
// process in syslog output.
func New(name string) zerolog.Logger {
	if useStderr() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	}

	w, err := syslog.New(syslog.LOG_INFO, name)
	if err != nil {
		// syslog unreachable; stderr is the only sink left even though it
		// isn't a terminal.
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.SyslogLevelWriter(w)).With().Timestamp().Logger()
}

// useStderr: a reachable /dev/tty means the process has a controlling
// terminal regardless of what stderr was redirected to; failing that, ask
// whether stderr itself is a terminal.
func useStderr() bool {
	if tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0); err == nil {
		_ = tty.Close()
		return true
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
