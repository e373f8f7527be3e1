// Package audit provides security audit logging for SIEM consumption.
// Events are emitted as structured JSON under a dedicated logger namespace
// so downstream systems can filter on them.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and
// alerting.
type SecurityEventType string

const (
	// EventInjectionAttempt is logged when libinjection flags SQL patterns
	// inside a natural-language question.
	EventInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventStatementRejected is logged when generated SQL fails the
	// read-only statement gate.
	EventStatementRejected SecurityEventType = "statement_rejected"
	// EventQueryExecution is logged per executed query. High volume;
	// enable per audit requirements.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent is one auditable event with the context a SIEM needs.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	OrgID       int64             `json:"org_id"`
	ExecutionID uuid.UUID         `json:"execution_id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"` // info, warning, critical
}

// InjectionDetails carries the specifics of a flagged question.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// SecurityAuditor logs security events. Events carry both a pre-serialized
// JSON payload and discrete fields so SIEM pipelines can pick either.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor under the "security_audit" logger
// namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records SQL patterns detected in free-text input.
// Logged at ERROR with critical severity for immediate alerting.
func (a *SecurityAuditor) LogInjectionAttempt(orgID int64, userID string, details InjectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionAttempt,
		OrgID:     orgID,
		UserID:    userID,
		Details:   details,
		Severity:  "critical",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.Int64("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogStatementRejected records a generated statement that failed the
// read-only gate. Logged at WARN; these are usually model mistakes, not
// attacks, but the pattern is worth watching.
func (a *SecurityAuditor) LogStatementRejected(orgID int64, userID, sqlText, reason string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventStatementRejected,
		OrgID:     orgID,
		UserID:    userID,
		Details: map[string]string{
			"sql":    logging.SanitizeQuery(sqlText),
			"reason": reason,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Generated statement rejected",
		zap.String("event_json", string(eventJSON)),
		zap.Int64("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.String("severity", "warning"),
	)
}

// LogQueryExecution records an executed query for the audit trail.
func (a *SecurityAuditor) LogQueryExecution(orgID int64, executionID uuid.UUID, userID string, status string) {
	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventQueryExecution,
		OrgID:       orgID,
		ExecutionID: executionID,
		UserID:      userID,
		Details: map[string]string{
			"status": status,
		},
		Severity: "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Query executed",
		zap.String("event_json", string(eventJSON)),
		zap.Int64("org_id", orgID),
		zap.String("execution_id", executionID.String()),
		zap.String("user_id", userID),
		zap.String("status", status),
		zap.String("severity", "info"),
	)
}
