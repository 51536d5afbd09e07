package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ParseLevel parses a logrus level name. Empty means info.
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}

// SetupLogging configures the standard logrus logger.
func SetupLogging(cfg LogConfig, out io.Writer) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(out)

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: level < logrus.DebugLevel,
		})
	default:
		return fmt.Errorf("config: unknown log format %q", cfg.Format)
	}
	return nil
}
