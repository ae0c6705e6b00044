package recovery

import "time"

// Analytics is an aggregate view over everything the handler has seen.
type Analytics struct {
	TotalErrors      int `json:"total_errors"`      // distinct fingerprints
	TotalOccurrences int `json:"total_occurrences"` // including repeats

	BySeverity map[Severity]int `json:"by_severity"`
	ByCategory map[Category]int `json:"by_category"`
	ByService  map[string]int   `json:"by_service"`
	ByAction   map[Action]int   `json:"by_action"`

	RecoveryAttempts  int `json:"recovery_attempts"`
	RecoverySuccesses int `json:"recovery_successes"`
	RecoveryFailures  int `json:"recovery_failures"`

	AlertsFired int       `json:"alerts_fired"`
	Since       time.Time `json:"since"`
}

// analyticsState is the handler's mutable aggregate block, guarded by the
// handler mutex. Counters only grow; distinct-error counts follow the
// record map.
type analyticsState struct {
	occurrences int

	bySeverity map[Severity]int
	byCategory map[Category]int
	byService  map[string]int
	byAction   map[Action]int

	attempts  int
	successes int
	failures  int

	since time.Time
}

func newAnalyticsState(since time.Time) *analyticsState {
	return &analyticsState{
		bySeverity: make(map[Severity]int),
		byCategory: make(map[Category]int),
		byService:  make(map[string]int),
		byAction:   make(map[Action]int),
		since:      since,
	}
}

func (a *analyticsState) recordError(record *ErrorRecord) {
	a.occurrences++
	a.bySeverity[record.Severity]++
	a.byCategory[record.Category]++
	a.byService[record.Context.Service]++
}

func (a *analyticsState) recordRecovery(result RecoveryResult) {
	a.attempts++
	a.byAction[result.Action]++
	if result.Success {
		a.successes++
	} else {
		a.failures++
	}
}

func (a *analyticsState) snapshot(distinctErrors, alertsFired int) Analytics {
	out := Analytics{
		TotalErrors:       distinctErrors,
		TotalOccurrences:  a.occurrences,
		BySeverity:        make(map[Severity]int, len(a.bySeverity)),
		ByCategory:        make(map[Category]int, len(a.byCategory)),
		ByService:         make(map[string]int, len(a.byService)),
		ByAction:          make(map[Action]int, len(a.byAction)),
		RecoveryAttempts:  a.attempts,
		RecoverySuccesses: a.successes,
		RecoveryFailures:  a.failures,
		AlertsFired:       alertsFired,
		Since:             a.since,
	}
	for k, v := range a.bySeverity {
		out.BySeverity[k] = v
	}
	for k, v := range a.byCategory {
		out.ByCategory[k] = v
	}
	for k, v := range a.byService {
		out.ByService[k] = v
	}
	for k, v := range a.byAction {
		out.ByAction[k] = v
	}
	return out
}
