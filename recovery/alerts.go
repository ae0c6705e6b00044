package recovery

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// Alert types.
const (
	AlertErrorRate      = "error_rate"
	AlertCriticalErrors = "critical_errors"
	AlertSameError      = "same_error"
)

// alertWindow is the sliding window for rate-based alert counts.
const alertWindow = 60 * time.Second

// AlertThresholds configures when alerts fire. A zero threshold disables
// that alert type.
type AlertThresholds struct {
	// ErrorRate fires when more than this many errors were logged in the
	// last 60 seconds.
	ErrorRate int

	// CriticalErrors fires when more than this many CRITICAL or FATAL
	// errors were logged in the last 60 seconds.
	CriticalErrors int

	// SameErrorCount fires when a single fingerprint has accumulated more
	// than this many occurrences overall.
	SameErrorCount int
}

// DefaultAlertThresholds returns the built-in thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ErrorRate:      10,
		CriticalErrors: 3,
		SameErrorCount: 5,
	}
}

// Alert is one fired alert, delivered to every registered sink.
type Alert struct {
	Type      string
	Message   string
	Count     int
	Threshold int
	Timestamp time.Time
}

// AlertFunc receives fired alerts. Sinks are invoked synchronously.
type AlertFunc func(Alert)

// alerter evaluates thresholds and deduplicates deliveries per alert type
// per calendar minute.
type alerter struct {
	thresholds AlertThresholds
	clk        clock.Clock
	log        logger.Logger

	mu    sync.Mutex
	fired map[string]struct{} // "type:unixMinute"
	sinks []AlertFunc
	count int
}

func newAlerter(thresholds AlertThresholds, clk clock.Clock, log logger.Logger) *alerter {
	return &alerter{
		thresholds: thresholds,
		clk:        clk,
		log:        log,
		fired:      make(map[string]struct{}),
	}
}

func (a *alerter) addSink(fn AlertFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, fn)
}

// check evaluates every threshold against the supplied counts and fires
// deduplicated alerts. recent and recentCritical are counts over the last
// 60 seconds; sameCount is the total occurrences of the current record's
// fingerprint.
func (a *alerter) check(recent, recentCritical, sameCount int, hash string) {
	if a.thresholds.ErrorRate > 0 && recent > a.thresholds.ErrorRate {
		a.fire(AlertErrorRate,
			fmt.Sprintf("%d errors in the last minute", recent),
			recent, a.thresholds.ErrorRate)
	}
	if a.thresholds.CriticalErrors > 0 && recentCritical > a.thresholds.CriticalErrors {
		a.fire(AlertCriticalErrors,
			fmt.Sprintf("%d critical errors in the last minute", recentCritical),
			recentCritical, a.thresholds.CriticalErrors)
	}
	if a.thresholds.SameErrorCount > 0 && sameCount > a.thresholds.SameErrorCount {
		a.fire(AlertSameError,
			fmt.Sprintf("error %s occurred %d times", hash, sameCount),
			sameCount, a.thresholds.SameErrorCount)
	}
}

// fire delivers an alert unless the same type already fired during this
// calendar minute.
func (a *alerter) fire(alertType, message string, count, threshold int) {
	a.prune()

	now := a.clk.Now()
	dedupKey := fmt.Sprintf("%s:%d", alertType, now.Unix()/60)

	a.mu.Lock()
	if _, dup := a.fired[dedupKey]; dup {
		a.mu.Unlock()
		return
	}
	a.fired[dedupKey] = struct{}{}
	sinks := make([]AlertFunc, len(a.sinks))
	copy(sinks, a.sinks)
	a.count++
	a.mu.Unlock()

	alert := Alert{
		Type:      alertType,
		Message:   message,
		Count:     count,
		Threshold: threshold,
		Timestamp: now,
	}

	a.log.Warn().
		Str("alert_type", alertType).
		Int("count", count).
		Int("threshold", threshold).
		Msg(message)

	for _, sink := range sinks {
		sink(alert)
	}
}

// firedCount returns how many alerts have been delivered.
func (a *alerter) firedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// prune drops dedup buckets older than the current minute so the map does
// not grow unbounded. Called opportunistically from check paths.
func (a *alerter) prune() {
	currentMinute := a.clk.Now().Unix() / 60

	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.fired {
		idx := strings.LastIndex(key, ":")
		if idx < 0 {
			continue
		}
		minute, err := strconv.ParseInt(key[idx+1:], 10, 64)
		if err == nil && minute < currentMinute-1 {
			delete(a.fired, key)
		}
	}
}
