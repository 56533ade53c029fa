package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. Unknown levels fall back to info.
func New(level string, jsonFormat bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, jsonFormat)
}

// NewWithOutput is New writing to out
func NewWithOutput(out io.Writer, level string, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
	return logger
}
