// Package logging builds the structured logger shared by the forecasting
// services.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger configured from the log level and environment.
// Production environments log JSON; development keeps the readable text
// format.
func New(logLevel, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(logLevel))

	if strings.ToLower(environment) == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
