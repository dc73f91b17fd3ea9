package config

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the log section to the standard logrus logger.
func (c LogConfig) ConfigureLogging(out io.Writer) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	log.SetLevel(level)
	if out != nil {
		log.SetOutput(out)
	}

	switch strings.ToLower(c.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format: %q", c.Format)
	}
	return nil
}
