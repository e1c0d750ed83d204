// Package logx builds the process logger.
package logx

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger at level ("debug", "info", ...) writing text with
// full timestamps, or JSON when format is "json". Unknown levels fall back
// to info.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
