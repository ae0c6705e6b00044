// Package recovery implements the error-recovery engine: classification of
// failures into severity and category, selection and execution of a
// recovery action, recovery-decision caching, retry bookkeeping, error
// analytics, and threshold alerting. The Handler entry point is a total
// function: it never returns an error and never panics outward.
package recovery

import (
	"fmt"
	"time"
)

// Severity grades how serious a classified error is.
type Severity string

// Severities, most to least serious.
const (
	SeverityFatal    Severity = "FATAL"
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityDebug    Severity = "DEBUG"
	SeverityTrace    Severity = "TRACE"
)

// Category names the subsystem or failure mode an error belongs to.
type Category string

// Error categories.
const (
	CategorySystem          Category = "SYSTEM"
	CategoryNetwork         Category = "NETWORK"
	CategoryParsing         Category = "PARSING"
	CategoryValidation      Category = "VALIDATION"
	CategoryGeneration      Category = "GENERATION"
	CategoryTemplate        Category = "TEMPLATE"
	CategoryCache           Category = "CACHE"
	CategoryConfiguration   Category = "CONFIGURATION"
	CategoryAuthentication  Category = "AUTHENTICATION"
	CategoryAuthorization   Category = "AUTHORIZATION"
	CategoryRateLimit       Category = "RATE_LIMIT"
	CategoryQuotaExceeded   Category = "QUOTA_EXCEEDED"
	CategoryTimeout         Category = "TIMEOUT"
	CategoryFileSystem      Category = "FILE_SYSTEM"
	CategoryExternalService Category = "EXTERNAL_SERVICE"
	CategoryUserInput       Category = "USER_INPUT"
	CategoryBusinessLogic   Category = "BUSINESS_LOGIC"
	CategoryDependency      Category = "DEPENDENCY"
	CategoryPerformance     Category = "PERFORMANCE"
	CategoryMemory          Category = "MEMORY"
	CategoryCustom          Category = "CUSTOM"
)

// Action is the recovery strategy chosen for a classified error.
type Action string

// Recovery actions.
const (
	ActionRetry              Action = "retry"
	ActionFallback           Action = "fallback"
	ActionClearCache         Action = "clear_cache"
	ActionRestart            Action = "restart"
	ActionManualIntervention Action = "manual_intervention"
)

// Outcome distinguishes how a recovery attempt concluded. Handler-internal
// failures are modeled explicitly instead of being swallowed by catch
// blocks.
type Outcome string

// Recovery outcomes.
const (
	OutcomeRecovered      Outcome = "recovered"
	OutcomeNotRecovered   Outcome = "not_recovered"
	OutcomeHandlerFailure Outcome = "handler_failure"
)

// ErrorContext captures where a failure happened. The service wrapper
// builds one per call; it is treated as immutable for the duration of one
// Handle invocation.
type ErrorContext struct {
	Service   string
	Operation string
	Params    map[string]any
	SessionID string
	UserID    string
	RequestID string
	StartTime time.Time
}

// RetryKey identifies the retry counter for this context.
func (c ErrorContext) RetryKey() string {
	return c.Service + ":" + c.Operation
}

// ErrorRecord is one deduplicated error in the handler's log. Repeats of
// the same fingerprint increment OccurrenceCount instead of appending a
// new record.
type ErrorRecord struct {
	ID              string
	Timestamp       time.Time
	Severity        Severity
	Category        Category
	Message         string
	Hash            string
	Context         ErrorContext
	OccurrenceCount int
	Tags            []string
	Suggestions     []string
}

// RecoveryResult is the Handler's answer for one error. Success combined
// with Action tells the wrapper what to do next: retry once, invoke the
// fallback, or rethrow.
type RecoveryResult struct {
	Success       bool           `cbor:"1,keyasint"`
	Action        Action         `cbor:"2,keyasint"`
	Outcome       Outcome        `cbor:"3,keyasint"`
	Message       string         `cbor:"4,keyasint"`
	RetryAttempts int            `cbor:"5,keyasint"`
	TimeToRecover time.Duration  `cbor:"6,keyasint"`
	FromCache     bool           `cbor:"7,keyasint"`
	Data          map[string]any `cbor:"8,keyasint,omitempty"`
}

// FatalError marks an error as unrecoverable regardless of its message.
// The strategist maps it to a restart signal.
type FatalError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal: %s: %v", e.Msg, e.Err)
	}
	return "fatal: " + e.Msg
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError creates a FatalError wrapping err.
func NewFatalError(msg string, err error) *FatalError {
	return &FatalError{Msg: msg, Err: err}
}
