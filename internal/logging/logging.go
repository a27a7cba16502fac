// Package logging builds the logrus logger shared by the API, the worker and
// the job queue.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/config"
)

// New returns a text logger writing to stderr. Timestamps are dropped in
// production where the log collector stamps lines itself.
func New(cfg *config.Config) *logrus.Logger {
	return newLogger(os.Stderr, cfg.LogLevel, cfg.IsProduction())
}

func newLogger(out io.Writer, level string, production bool) *logrus.Logger {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	return &logrus.Logger{
		Out: out,
		Formatter: &logrus.TextFormatter{
			DisableTimestamp: production,
			FullTimestamp:    true,
			TimestampFormat:  time.DateTime,
		},
		Hooks:        make(logrus.LevelHooks),
		Level:        lvl,
		ExitFunc:     os.Exit,
		ReportCaller: false,
	}
}
