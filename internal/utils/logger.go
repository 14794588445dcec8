package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets level and formatter on the process logger.
func ConfigureLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// LogEvent prints standardized log line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	entry(requestID, module, action).Info(message)
}

// LogError is LogEvent at error level with the error attached.
func LogError(requestID, module, action string, err error) {
	entry(requestID, module, action).WithError(err).Error(action + " failed")
}

func entry(requestID, module, action string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"module":     strings.ToUpper(module),
		"action":     action,
		"request_id": strings.TrimSpace(requestID),
	})
}
