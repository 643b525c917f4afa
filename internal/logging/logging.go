// Package logging configures logrus for the agent and keeps credentials
// out of the log stream.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup applies the configured log level (overridable via
// DNSANCHOR_LOG_LEVEL) and the standard formatter, and installs the
// credential-redacting hook.
func Setup(logLevel string) {
	if envLevel := os.Getenv("DNSANCHOR_LOG_LEVEL"); envLevel != "" {
		logLevel = envLevel
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.AddHook(&redactingHook{})
}

// sensitiveFieldNames are field names whose values never belong in logs.
var sensitiveFieldNames = map[string]bool{
	"password":        true,
	"secret":          true,
	"token":           true,
	"accesskeyid":     true,
	"secretkey":       true,
	"secretaccesskey": true,
	"apikey":          true,
	"credentials":     true,
	"authorization":   true,
}

// redactingHook replaces the values of credential-named fields before an
// entry is written.
type redactingHook struct{}

func (h *redactingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *redactingHook) Fire(entry *logrus.Entry) error {
	for key := range entry.Data {
		if sensitiveFieldNames[strings.ToLower(key)] {
			entry.Data[key] = "[REDACTED]"
		}
	}
	return nil
}
