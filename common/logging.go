package common

import (
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the process-wide logger once at startup. Severity is
// a named level from configuration; nothing patches the logger afterwards.
func ConfigureLogging(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
