package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger builds the process logger. Progress events reach it through an
// events.LogrusSink.
func newLogger(out io.Writer, verbose, jsonOutput bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if jsonOutput {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
