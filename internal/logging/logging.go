package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New configures a logger from level and format ("json" or "text") and returns its root entry.
func New(level, format string) *log.Entry {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *log.Entry {
	logger := log.New()
	logger.SetOutput(out)

	if format == "text" {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	return log.NewEntry(logger).WithField("service", "vsbridge")
}

// Discard returns an entry that drops everything. Used by tests.
func Discard() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}
