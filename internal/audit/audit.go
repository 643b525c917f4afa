// Package audit records the enforcement lifecycle as JSON lines: session
// start and stop, target changes, drift corrections and restorations. The
// trail is what an operator reads to answer "who changed this machine's
// DNS and when".
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of audit event
type EventType string

const (
	// Session lifecycle
	EventSessionInit   EventType = "SESSION_INIT"
	EventSessionDeinit EventType = "SESSION_DEINIT"

	// Enforcement operations
	EventEnforceSet       EventType = "ENFORCE_SET"
	EventEnforceReset     EventType = "ENFORCE_RESET"
	EventDriftCorrected   EventType = "DRIFT_CORRECTED"
	EventSnapshotRestored EventType = "SNAPSHOT_RESTORED"
	EventApplyFailure     EventType = "APPLY_FAILURE"

	// Monitoring
	EventMonitorArmed    EventType = "MONITOR_ARMED"
	EventMonitorDisarmed EventType = "MONITOR_DISARMED"
	EventMonitorFailure  EventType = "MONITOR_FAILURE"
)

// Event represents an audit log entry
type Event struct {
	Timestamp   time.Time              `json:"timestamp"`
	Type        EventType              `json:"type"`
	Severity    string                 `json:"severity"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	User        string                 `json:"user,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
}

// Logger handles audit logging
type Logger struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
	logPath string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Initialize sets up the audit logger
func Initialize() error {
	var err error
	once.Do(func() {
		home, _ := os.UserHomeDir()
		auditDir := filepath.Join(home, ".dnsanchor", "audit")
		if mkErr := os.MkdirAll(auditDir, 0700); mkErr != nil {
			err = mkErr
			return
		}

		logFile := fmt.Sprintf("audit-%s.log", time.Now().Format("2006-01-02"))
		logPath := filepath.Join(auditDir, logFile)

		file, openErr := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if openErr != nil {
			err = openErr
			return
		}

		defaultLogger = &Logger{
			file:    file,
			encoder: json.NewEncoder(file),
			logPath: logPath,
		}
	})

	return err
}

// Log records an audit event
func Log(eventType EventType, severity string, message string, details map[string]interface{}) {
	if defaultLogger == nil {
		// Fallback to regular logging if audit not initialized
		logrus.WithFields(logrus.Fields{
			"audit_type": eventType,
			"details":    details,
		}).Debug(message)
		return
	}

	event := Event{
		Timestamp:   time.Now(),
		Type:        eventType,
		Severity:    severity,
		Message:     message,
		Details:     details,
		ProcessID:   os.Getpid(),
		ProcessName: filepath.Base(os.Args[0]),
	}

	if user := os.Getenv("USER"); user != "" {
		event.User = user
	}

	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	if err := defaultLogger.encoder.Encode(event); err != nil {
		logrus.WithError(err).Error("Failed to write audit log")
	}
}

// Close closes the audit logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.file.Close()
	}
	return nil
}

// GetLogPath returns the current audit log path
func GetLogPath() string {
	if defaultLogger != nil {
		return defaultLogger.logPath
	}
	return ""
}
