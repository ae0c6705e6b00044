package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// HandlerConfig configures recovery caching and alerting.
type HandlerConfig struct {
	// CacheResults enables persisting successful recovery decisions into
	// the cache's error_recovery category, keyed by error fingerprint.
	CacheResults bool

	// CacheResultsFor is the TTL for cached recovery decisions.
	CacheResultsFor time.Duration

	// Strategist bounds retry behavior.
	Strategist StrategistConfig

	// Thresholds configures alerting.
	Thresholds AlertThresholds
}

// DefaultHandlerConfig returns the built-in handler settings.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		CacheResults:    true,
		CacheResultsFor: 5 * time.Minute,
		Strategist:      DefaultStrategistConfig(),
		Thresholds:      DefaultAlertThresholds(),
	}
}

// CustomRecovery is a caller-supplied recovery function tried before the
// strategist's decision table. Returning an error (or panicking) is
// absorbed: the handler logs it and proceeds with normal classification.
type CustomRecovery func(ctx context.Context, err error, errCtx ErrorContext) (RecoveryResult, error)

// occurrence is one logged failure instant, kept for windowed alert counts.
type occurrence struct {
	at       time.Time
	severity Severity
}

// Handler orchestrates the recovery pipeline: classify, consult the
// recovery cache, execute a strategy, update retry counters and
// analytics, and evaluate alert thresholds. Handle is total: any
// internal failure is converted into a manual-intervention result.
type Handler struct {
	cfg        HandlerConfig
	classifier *Classifier
	strategist *Strategist
	cache      *cache.Manager // optional
	clk        clock.Clock
	log        logger.Logger

	mu          sync.Mutex
	records     map[string]*ErrorRecord
	order       []string
	occurrences []occurrence

	analytics *analyticsState
	alerts    *alerter
}

// NewHandler creates a recovery handler. cacheManager may be nil; recovery
// caching and clear-cache execution degrade gracefully without it.
func NewHandler(cfg HandlerConfig, clk clock.Clock, log logger.Logger, cacheManager *cache.Manager) *Handler {
	if cfg.CacheResultsFor <= 0 {
		cfg.CacheResultsFor = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Handler{
		cfg:        cfg,
		classifier: NewClassifier(),
		strategist: NewStrategist(cfg.Strategist, clk, log, cacheManager),
		cache:      cacheManager,
		clk:        clk,
		log:        log,
		records:    make(map[string]*ErrorRecord),
		analytics:  newAnalyticsState(clk.Now()),
		alerts:     newAlerter(cfg.Thresholds, clk, log),
	}
}

// AddAlertFunc registers an alert sink.
func (h *Handler) AddAlertFunc(fn AlertFunc) {
	h.alerts.addSink(fn)
}

// Handle runs the recovery pipeline for one failure and always produces a
// result: it never returns an error and converts its own panics into a
// manual-intervention result.
func (h *Handler) Handle(ctx context.Context, err error, errCtx ErrorContext, custom CustomRecovery) (result RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("service", errCtx.Service).
				Str("operation", errCtx.Operation).
				Interface("panic", r).
				Msg("recovery handler internal failure")
			result = RecoveryResult{
				Success: false,
				Action:  ActionManualIntervention,
				Outcome: OutcomeHandlerFailure,
				Message: fmt.Sprintf("recovery handler failed: %v", r),
			}
		}
	}()

	// received → logged
	record := h.logError(err, errCtx)

	// logged → cache-checked: a cached decision for this fingerprint
	// short-circuits the rest of the pipeline.
	if cached, ok := h.cachedRecovery(ctx, record.Hash); ok {
		h.log.Debug().
			Str("hash", record.Hash).
			Str("action", string(cached.Action)).
			Msg("recovery decision served from cache")
		return cached
	}

	// cache-checked → recovering. Custom recovery runs first; its own
	// failure is absorbed and recorded as a handler-internal outcome,
	// then the decision table proceeds normally.
	if custom != nil {
		if res, ok := h.tryCustomRecovery(ctx, custom, err, errCtx); ok {
			h.finishRecovery(ctx, record, res)
			return res
		}
	}

	action := h.strategist.Choose(err, errCtx)
	result = h.strategist.Execute(ctx, action, err, errCtx)
	if result.Success {
		result.Outcome = OutcomeRecovered
	} else {
		result.Outcome = OutcomeNotRecovered
	}

	// recovering → analytics-updated → complete
	h.finishRecovery(ctx, record, result)
	return result
}

// tryCustomRecovery runs the caller's recovery function, absorbing errors
// and panics. The second return value reports whether the custom result
// should be used.
func (h *Handler) tryCustomRecovery(ctx context.Context, custom CustomRecovery, err error, errCtx ErrorContext) (res RecoveryResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().
				Str("service", errCtx.Service).
				Interface("panic", r).
				Msg("custom recovery panicked, continuing with classification")
			res, ok = RecoveryResult{}, false
		}
	}()

	res, cerr := custom(ctx, err, errCtx)
	if cerr != nil {
		h.log.Warn().
			Err(cerr).
			Str("service", errCtx.Service).
			Msg("custom recovery failed, continuing with classification")
		return RecoveryResult{}, false
	}
	if !res.Success {
		return RecoveryResult{}, false
	}

	res.Outcome = OutcomeRecovered
	return res, true
}

// logError classifies the failure and records it, deduplicating by
// fingerprint: repeats increment OccurrenceCount on the existing record.
func (h *Handler) logError(err error, errCtx ErrorContext) *ErrorRecord {
	cls := h.classifier.Classify(err, errCtx)
	hash := Fingerprint(err, errCtx.Service, errCtx.Operation)
	now := h.clk.Now()

	message := ""
	if err != nil {
		message = err.Error()
	}

	h.mu.Lock()
	record, exists := h.records[hash]
	if exists {
		record.OccurrenceCount++
		record.Timestamp = now
	} else {
		record = &ErrorRecord{
			ID:              uuid.NewString(),
			Timestamp:       now,
			Severity:        cls.Severity,
			Category:        cls.Category,
			Message:         message,
			Hash:            hash,
			Context:         errCtx,
			OccurrenceCount: 1,
			Tags:            []string{string(cls.Category), string(cls.Severity)},
			Suggestions:     Suggestions(cls),
		}
		h.records[hash] = record
		h.order = append(h.order, hash)
	}

	h.occurrences = append(h.occurrences, occurrence{at: now, severity: record.Severity})
	h.pruneOccurrencesLocked(now)

	recent := 0
	recentCritical := 0
	for _, occ := range h.occurrences {
		recent++
		if occ.severity == SeverityCritical || occ.severity == SeverityFatal {
			recentCritical++
		}
	}
	sameCount := record.OccurrenceCount

	h.analytics.recordError(record)
	h.mu.Unlock()

	h.log.Error().
		Str("service", errCtx.Service).
		Str("operation", errCtx.Operation).
		Str("severity", string(record.Severity)).
		Str("category", string(record.Category)).
		Str("hash", hash).
		Int("occurrences", sameCount).
		Msg(message)

	h.alerts.check(recent, recentCritical, sameCount, hash)
	return record
}

// pruneOccurrencesLocked drops occurrences older than the alert window.
func (h *Handler) pruneOccurrencesLocked(now time.Time) {
	cutoff := now.Add(-alertWindow)
	keep := h.occurrences[:0]
	for _, occ := range h.occurrences {
		if occ.at.After(cutoff) {
			keep = append(keep, occ)
		}
	}
	h.occurrences = keep
}

// cachedRecovery looks up a previously cached decision for a fingerprint.
func (h *Handler) cachedRecovery(ctx context.Context, hash string) (RecoveryResult, bool) {
	if !h.cfg.CacheResults || h.cache == nil {
		return RecoveryResult{}, false
	}

	data, found, err := h.cache.GetRecovery(ctx, hash)
	if err != nil || !found {
		return RecoveryResult{}, false
	}

	result, err := cache.Unmarshal[RecoveryResult](data)
	if err != nil {
		// Corrupt cached decision: drop it and fall through to the
		// strategist.
		_ = h.cache.Delete(ctx, cache.CategoryRecovery, hash)
		return RecoveryResult{}, false
	}

	result.FromCache = true
	return result, true
}

// finishRecovery persists successful decisions and updates analytics.
func (h *Handler) finishRecovery(ctx context.Context, record *ErrorRecord, result RecoveryResult) {
	if result.Success && h.cfg.CacheResults && h.cache != nil {
		if data, err := cache.Marshal(result); err == nil {
			if err := h.cache.SetRecovery(ctx, record.Hash, data, h.cfg.CacheResultsFor); err != nil {
				h.log.Warn().Err(err).Str("hash", record.Hash).Msg("failed to cache recovery decision")
			}
		}
	}

	h.mu.Lock()
	h.analytics.recordRecovery(result)
	h.mu.Unlock()
}

// ResetRetries clears the retry counter for a context. The wrapper calls
// this after a retried operation succeeds.
func (h *Handler) ResetRetries(errCtx ErrorContext) {
	h.strategist.ResetRetries(errCtx)
}

// RetryAttempts reports the live counter for a service:operation key.
func (h *Handler) RetryAttempts(key string) int {
	return h.strategist.Attempts(key)
}

// Analytics returns an aggregate snapshot.
func (h *Handler) Analytics() Analytics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.analytics.snapshot(len(h.records), h.alerts.firedCount())
}

// ErrorLog returns the deduplicated error records in insertion order.
func (h *Handler) ErrorLog() []ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ErrorRecord, 0, len(h.order))
	for _, hash := range h.order {
		out = append(out, *h.records[hash])
	}
	return out
}

// ClearErrorLog drops every record and occurrence. Retry counters and
// analytics aggregates are unaffected.
func (h *Handler) ClearErrorLog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = make(map[string]*ErrorRecord)
	h.order = nil
	h.occurrences = nil
}

// ExportStatistics serializes analytics plus the current error log as JSON.
func (h *Handler) ExportStatistics() ([]byte, error) {
	export := struct {
		GeneratedAt time.Time     `json:"generated_at"`
		Analytics   Analytics     `json:"analytics"`
		Errors      []ErrorRecord `json:"errors"`
	}{
		GeneratedAt: h.clk.Now(),
		Analytics:   h.Analytics(),
		Errors:      h.ErrorLog(),
	}
	return json.MarshalIndent(export, "", "  ")
}
